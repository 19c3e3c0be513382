package observe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AlertSeverity classifies how urgently an [Alert] should be treated.
type AlertSeverity int

const (
	AlertSeverityWarning AlertSeverity = iota
	AlertSeverityCritical
)

func (s AlertSeverity) String() string {
	switch s {
	case AlertSeverityWarning:
		return "warning"
	case AlertSeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Alert is a single threshold breach observed by the [AlertManager].
type Alert struct {
	Severity  AlertSeverity
	Kind      string
	Message   string
	At        time.Time
	Value     float64
	Threshold float64
}

// AlertConfig bundles the thresholds the [AlertManager] evaluates on every
// tick. A zero value for any *_critical field below its *_warn counterpart
// disables the critical tier for that check (warn still fires).
type AlertConfig struct {
	CheckInterval time.Duration

	LatencyP95Warn, LatencyP95Critical         time.Duration
	ErrorRateWarn, ErrorRateCritical           float64
	ConfidenceWarn, ConfidenceCritical         float64
	MaxActiveSessions                          int
	StuckSessionDuration                       time.Duration
	CostPerHourLimitUSD                        float64
}

// DefaultAlertConfig returns the thresholds used when configuration omits
// the alerts section entirely.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		CheckInterval:         30 * time.Second,
		LatencyP95Warn:        800 * time.Millisecond,
		LatencyP95Critical:    1500 * time.Millisecond,
		ErrorRateWarn:         0.05,
		ErrorRateCritical:     0.10,
		ConfidenceWarn:        0.7,
		ConfidenceCritical:    0.5,
		StuckSessionDuration:  10 * time.Minute,
		CostPerHourLimitUSD:   0,
	}
}

// Snapshot is the point-in-time view of system health the [AlertManager]
// evaluates against [AlertConfig]. Callers (typically the session manager)
// assemble one from their own bookkeeping plus the [LatencyTracker] /
// [ConfidenceTracker] rings rather than reading OTel's aggregation back out,
// keeping the alert evaluator decoupled from the exporter pipeline.
type Snapshot struct {
	Latency           LatencyStats
	Confidence        ConfidenceStats
	FramesTotal       int64
	ErrorsTotal       int64
	ActiveSessions    int
	OldestSessionIdle time.Duration
	CostPerHourUSD    float64
}

// SnapshotFunc produces the current [Snapshot]. It must be cheap and
// non-blocking — it is called from the [AlertManager]'s own goroutine on
// every tick.
type SnapshotFunc func() Snapshot

// ringSize bounds the number of alerts retained for introspection via
// [AlertManager.Recent].
const ringSize = 500

// AlertManager periodically evaluates a [Snapshot] against [AlertConfig]
// thresholds and fires [Alert] values through an optional callback. It
// follows the same explicit init/shutdown discipline as
// [internal/health.Checker] — no ambient package-level state, construct one
// per session-core instance and call [AlertManager.Run] from a goroutine the
// caller owns.
type AlertManager struct {
	cfg      AlertConfig
	snapshot SnapshotFunc
	onAlert  func(Alert)
	logger   *slog.Logger

	mu      sync.Mutex
	ring    []Alert
	ringPos int
	ringLen int

	// firing tracks which (kind) alerts are currently active so repeat
	// evaluations of an unresolved condition don't spam the callback.
	firing map[string]AlertSeverity
}

// NewAlertManager constructs an [AlertManager]. onAlert may be nil, in which
// case alerts are only logged and retained in the ring.
func NewAlertManager(cfg AlertConfig, snapshot SnapshotFunc, onAlert func(Alert), logger *slog.Logger) *AlertManager {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultAlertConfig().CheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertManager{
		cfg:      cfg,
		snapshot: snapshot,
		onAlert:  onAlert,
		logger:   logger,
		ring:     make([]Alert, ringSize),
		firing:   make(map[string]AlertSeverity),
	}
}

// Run evaluates thresholds every CheckInterval until ctx is cancelled. It is
// meant to be started in its own goroutine.
func (a *AlertManager) Run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.evaluate()
		}
	}
}

// evaluate runs one threshold-check pass.
func (a *AlertManager) evaluate() {
	snap := a.snapshot()
	now := time.Now()

	a.checkThreshold("latency_p95", snap.Latency.P95.Seconds(),
		a.cfg.LatencyP95Warn.Seconds(), a.cfg.LatencyP95Critical.Seconds(), now,
		func(v, t float64) string {
			return fmt.Sprintf("p95 recognition latency %.3fs exceeds threshold %.3fs", v, t)
		})

	var errorRate float64
	if snap.FramesTotal > 0 {
		errorRate = float64(snap.ErrorsTotal) / float64(snap.FramesTotal)
	}
	a.checkThreshold("error_rate", errorRate, a.cfg.ErrorRateWarn, a.cfg.ErrorRateCritical, now,
		func(v, t float64) string {
			return fmt.Sprintf("error rate %.2f%% exceeds threshold %.2f%%", v*100, t*100)
		})

	if snap.Confidence.Count > 0 {
		a.checkInverseThreshold("confidence_avg", snap.Confidence.Avg,
			a.cfg.ConfidenceWarn, a.cfg.ConfidenceCritical, now,
			func(v, t float64) string {
				return fmt.Sprintf("average confidence %.2f below threshold %.2f", v, t)
			})
	}

	if a.cfg.MaxActiveSessions > 0 && snap.ActiveSessions > a.cfg.MaxActiveSessions {
		a.fire(Alert{
			Severity:  AlertSeverityWarning,
			Kind:      "active_sessions",
			Message:   fmt.Sprintf("active sessions %d exceeds limit %d", snap.ActiveSessions, a.cfg.MaxActiveSessions),
			At:        now,
			Value:     float64(snap.ActiveSessions),
			Threshold: float64(a.cfg.MaxActiveSessions),
		})
	} else {
		a.resolve("active_sessions")
	}

	if a.cfg.StuckSessionDuration > 0 && snap.OldestSessionIdle > a.cfg.StuckSessionDuration {
		a.fire(Alert{
			Severity:  AlertSeverityCritical,
			Kind:      "stuck_session",
			Message:   fmt.Sprintf("oldest session idle for %s exceeds %s", snap.OldestSessionIdle, a.cfg.StuckSessionDuration),
			At:        now,
			Value:     snap.OldestSessionIdle.Seconds(),
			Threshold: a.cfg.StuckSessionDuration.Seconds(),
		})
	} else {
		a.resolve("stuck_session")
	}

	if a.cfg.CostPerHourLimitUSD > 0 && snap.CostPerHourUSD > a.cfg.CostPerHourLimitUSD {
		a.fire(Alert{
			Severity:  AlertSeverityWarning,
			Kind:      "cost_per_hour",
			Message:   fmt.Sprintf("estimated cost $%.2f/h exceeds limit $%.2f/h", snap.CostPerHourUSD, a.cfg.CostPerHourLimitUSD),
			At:        now,
			Value:     snap.CostPerHourUSD,
			Threshold: a.cfg.CostPerHourLimitUSD,
		})
	} else {
		a.resolve("cost_per_hour")
	}
}

// checkThreshold fires warning/critical alerts when value exceeds warn/crit,
// and resolves the kind otherwise.
func (a *AlertManager) checkThreshold(kind string, value, warn, critical float64, now time.Time, msg func(v, t float64) string) {
	switch {
	case critical > 0 && value > critical:
		a.fire(Alert{Severity: AlertSeverityCritical, Kind: kind, Message: msg(value, critical), At: now, Value: value, Threshold: critical})
	case warn > 0 && value > warn:
		a.fire(Alert{Severity: AlertSeverityWarning, Kind: kind, Message: msg(value, warn), At: now, Value: value, Threshold: warn})
	default:
		a.resolve(kind)
	}
}

// checkInverseThreshold fires when value drops below warn/critical (used for
// confidence, where low is bad).
func (a *AlertManager) checkInverseThreshold(kind string, value, warn, critical float64, now time.Time, msg func(v, t float64) string) {
	switch {
	case critical > 0 && value < critical:
		a.fire(Alert{Severity: AlertSeverityCritical, Kind: kind, Message: msg(value, critical), At: now, Value: value, Threshold: critical})
	case warn > 0 && value < warn:
		a.fire(Alert{Severity: AlertSeverityWarning, Kind: kind, Message: msg(value, warn), At: now, Value: value, Threshold: warn})
	default:
		a.resolve(kind)
	}
}

// fire records the alert and invokes the callback unless this exact kind is
// already firing at the same or higher severity.
func (a *AlertManager) fire(alert Alert) {
	a.mu.Lock()
	prev, already := a.firing[alert.Kind]
	if already && prev >= alert.Severity {
		a.mu.Unlock()
		return
	}
	a.firing[alert.Kind] = alert.Severity
	a.ring[a.ringPos] = alert
	a.ringPos = (a.ringPos + 1) % ringSize
	if a.ringLen < ringSize {
		a.ringLen++
	}
	a.mu.Unlock()

	a.logger.Warn("alert fired", "kind", alert.Kind, "severity", alert.Severity.String(),
		"value", alert.Value, "threshold", alert.Threshold, "message", alert.Message)
	if a.onAlert != nil {
		a.onAlert(alert)
	}
}

// resolve clears a kind's firing state so the next breach fires again.
func (a *AlertManager) resolve(kind string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.firing, kind)
}

// Recent returns up to ringSize most recently fired alerts, oldest first.
func (a *AlertManager) Recent() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Alert, a.ringLen)
	start := a.ringPos - a.ringLen
	for i := 0; i < a.ringLen; i++ {
		idx := (start + i + ringSize) % ringSize
		out[i] = a.ring[idx]
	}
	return out
}
