package observe

import (
	"context"
	"sync"
)

// defaultCostPerHourUSD is the default recognizer billing rate used when the
// configuration does not override it. It mirrors typical cloud streaming
// speech-to-text pricing for a long-running model tier.
const defaultCostPerHourUSD = 2.16

// CostTracker accumulates processed-audio duration and converts it to an
// estimated dollar cost using a configurable hourly rate. It is read
// alongside [Metrics.AudioSecondsProcessed] so that both the OTel counter
// (for dashboards) and the in-process estimate (for alerting, see
// [AlertManager]) stay consistent.
type CostTracker struct {
	perHourUSD float64

	mu           sync.Mutex
	audioSeconds float64
}

// NewCostTracker creates a [CostTracker]. A zero or negative perHourUSD falls
// back to [defaultCostPerHourUSD].
func NewCostTracker(perHourUSD float64) *CostTracker {
	if perHourUSD <= 0 {
		perHourUSD = defaultCostPerHourUSD
	}
	return &CostTracker{perHourUSD: perHourUSD}
}

// Add records processedSeconds of recognized audio and reports the running
// total through m.
func (c *CostTracker) Add(ctx context.Context, m *Metrics, processedSeconds float64) {
	c.mu.Lock()
	c.audioSeconds += processedSeconds
	c.mu.Unlock()
	if m != nil {
		m.AudioSecondsProcessed.Add(ctx, processedSeconds)
	}
}

// EstimatedUSD returns the cumulative estimated cost at the configured rate.
func (c *CostTracker) EstimatedUSD() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (c.audioSeconds / 3600.0) * c.perHourUSD
}

// AudioSeconds returns the cumulative processed-audio duration, in seconds.
func (c *CostTracker) AudioSeconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioSeconds
}
