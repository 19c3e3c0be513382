package observe

import (
	"sort"
	"sync"
	"time"
)

// sampleCap bounds every ring below to the last 1000 samples, matching the
// window size spec.md calls out for rolling confidence and latency percentiles.
const sampleCap = 1000

// LatencyTracker is a bounded ring of recognition-latency samples used to
// compute p50/p95/p99 on demand. [Metrics.RecognitionLatency] is the
// OTel-exported view of the same data; this tracker exists because the
// nearest-rank percentiles alerting needs (see [AlertManager]) are cheaper to
// compute from a local ring than to query back out of the metrics backend.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
}

// NewLatencyTracker creates an empty [LatencyTracker].
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{samples: make([]time.Duration, sampleCap)}
}

// Add records a new latency sample, evicting the oldest once the ring fills.
func (t *LatencyTracker) Add(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples[t.next] = d
	t.next = (t.next + 1) % sampleCap
	if t.next == 0 {
		t.full = true
	}
}

// LatencyStats summarizes a [LatencyTracker] snapshot.
type LatencyStats struct {
	P50, P95, P99 time.Duration
	Avg, Min, Max time.Duration
	Count         int
}

// Stats computes percentile and summary statistics over the current samples.
// Uses the simplified nearest-rank percentile (sorted index at n*p), not
// interpolation — adequate for alerting thresholds, not for billing.
func (t *LatencyTracker) Stats() LatencyStats {
	t.mu.Lock()
	n := sampleCap
	if !t.full {
		n = t.next
	}
	buf := make([]time.Duration, n)
	copy(buf, t.samples[:n])
	t.mu.Unlock()

	if n == 0 {
		return LatencyStats{}
	}
	sort.Slice(buf, func(i, j int) bool { return buf[i] < buf[j] })

	var sum time.Duration
	for _, d := range buf {
		sum += d
	}
	return LatencyStats{
		P50:   percentile(buf, 0.50),
		P95:   percentile(buf, 0.95),
		P99:   percentile(buf, 0.99),
		Avg:   sum / time.Duration(n),
		Min:   buf[0],
		Max:   buf[n-1],
		Count: n,
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// ConfidenceTracker is a bounded ring of final-result confidence scores.
type ConfidenceTracker struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

// NewConfidenceTracker creates an empty [ConfidenceTracker].
func NewConfidenceTracker() *ConfidenceTracker {
	return &ConfidenceTracker{samples: make([]float64, sampleCap)}
}

// Add records a confidence score. Values outside [0, 1] are ignored.
func (t *ConfidenceTracker) Add(score float64) {
	if score < 0 || score > 1 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples[t.next] = score
	t.next = (t.next + 1) % sampleCap
	if t.next == 0 {
		t.full = true
	}
}

// ConfidenceStats summarizes a [ConfidenceTracker] snapshot.
type ConfidenceStats struct {
	Avg, Min, Max, Median float64
	Count                 int
}

// Stats computes summary statistics over the current samples.
func (t *ConfidenceTracker) Stats() ConfidenceStats {
	t.mu.Lock()
	n := sampleCap
	if !t.full {
		n = t.next
	}
	buf := make([]float64, n)
	copy(buf, t.samples[:n])
	t.mu.Unlock()

	if n == 0 {
		return ConfidenceStats{}
	}
	sort.Float64s(buf)

	var sum float64
	for _, v := range buf {
		sum += v
	}
	return ConfidenceStats{
		Avg:    sum / float64(n),
		Min:    buf[0],
		Max:    buf[n-1],
		Median: buf[n/2],
		Count:  n,
	}
}
