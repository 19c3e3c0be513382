// Package observe provides application-wide observability primitives for the
// streaming session core: OpenTelemetry metrics, distributed tracing,
// structured logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all session-core metrics.
const meterName = "github.com/slidestream/sessioncore"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency ---

	// RecognitionLatency tracks elapsed time between a frame being sent to the
	// recognizer and the matching final result arriving.
	RecognitionLatency metric.Float64Histogram

	// RenewalDuration tracks how long a session renewal swap takes end to end.
	RenewalDuration metric.Float64Histogram

	// MatchDuration tracks slide-matcher scoring latency per final result.
	MatchDuration metric.Float64Histogram

	// --- Counters ---

	// FramesSent counts audio frames handed to the recognizer stream adapter.
	FramesSent metric.Int64Counter

	// BytesSent counts audio bytes handed to the recognizer stream adapter.
	BytesSent metric.Int64Counter

	// FinalResults counts final recognition events received, per session.
	FinalResults metric.Int64Counter

	// InterimResults counts interim recognition events received, per session.
	InterimResults metric.Int64Counter

	// BackpressureDrops counts frames dropped because SendAudio timed out.
	BackpressureDrops metric.Int64Counter

	// RenewalsStarted counts session renewal attempts started.
	RenewalsStarted metric.Int64Counter

	// RenewalsCompleted counts session renewals that completed successfully.
	RenewalsCompleted metric.Int64Counter

	// RenewalsFailed counts session renewals that failed.
	RenewalsFailed metric.Int64Counter

	// RenewalBufferOverflows counts audio frames dropped from the renewal
	// buffer because it reached capacity before the swap completed.
	RenewalBufferOverflows metric.Int64Counter

	// Errors counts errors by kind (see internal/session errors).
	Errors metric.Int64Counter

	// CallbackFailures counts panics/errors recovered from consumer callbacks.
	CallbackFailures metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of sessions currently registered with
	// the session manager.
	ActiveSessions metric.Int64UpDownCounter

	// RenewingSessions tracks the number of sessions currently mid-renewal.
	RenewingSessions metric.Int64UpDownCounter

	// --- Confidence & cost ---

	// ConfidenceScore records the confidence value of every final result for
	// rolling average/median computation (see [ConfidenceStats]).
	ConfidenceScore metric.Float64Histogram

	// AudioSecondsProcessed accumulates cumulative processed audio duration,
	// the basis for cost estimation (see internal/observe/cost.go).
	AudioSecondsProcessed metric.Float64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// sub-second streaming-transcription latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 0.8, 1.2, 1.5, 2, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RecognitionLatency, err = m.Float64Histogram("sessioncore.recognition.latency",
		metric.WithDescription("Latency between a sent audio frame and the matching final result."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RenewalDuration, err = m.Float64Histogram("sessioncore.renewal.duration",
		metric.WithDescription("Duration of a session renewal swap from PREPARING to COMPLETED/FAILED."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.MatchDuration, err = m.Float64Histogram("sessioncore.match.duration",
		metric.WithDescription("Slide-matcher scoring latency per final result."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.FramesSent, err = m.Int64Counter("sessioncore.frames.sent",
		metric.WithDescription("Audio frames handed to the recognizer stream adapter."),
	); err != nil {
		return nil, err
	}
	if met.BytesSent, err = m.Int64Counter("sessioncore.bytes.sent",
		metric.WithDescription("Audio bytes handed to the recognizer stream adapter."),
	); err != nil {
		return nil, err
	}
	if met.FinalResults, err = m.Int64Counter("sessioncore.results.final",
		metric.WithDescription("Final recognition events received."),
	); err != nil {
		return nil, err
	}
	if met.InterimResults, err = m.Int64Counter("sessioncore.results.interim",
		metric.WithDescription("Interim recognition events received."),
	); err != nil {
		return nil, err
	}
	if met.BackpressureDrops, err = m.Int64Counter("sessioncore.backpressure.drops",
		metric.WithDescription("Audio frames dropped due to SendAudio timeout."),
	); err != nil {
		return nil, err
	}
	if met.RenewalsStarted, err = m.Int64Counter("sessioncore.renewals.started",
		metric.WithDescription("Session renewal attempts started."),
	); err != nil {
		return nil, err
	}
	if met.RenewalsCompleted, err = m.Int64Counter("sessioncore.renewals.completed",
		metric.WithDescription("Session renewals completed successfully."),
	); err != nil {
		return nil, err
	}
	if met.RenewalsFailed, err = m.Int64Counter("sessioncore.renewals.failed",
		metric.WithDescription("Session renewals that failed."),
	); err != nil {
		return nil, err
	}
	if met.RenewalBufferOverflows, err = m.Int64Counter("sessioncore.renewal_buffer.overflows",
		metric.WithDescription("Audio frames dropped from the renewal buffer at capacity."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("sessioncore.errors",
		metric.WithDescription("Errors by kind."),
	); err != nil {
		return nil, err
	}
	if met.CallbackFailures, err = m.Int64Counter("sessioncore.callback.failures",
		metric.WithDescription("Errors or panics recovered from consumer callbacks."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("sessioncore.sessions.active",
		metric.WithDescription("Number of sessions currently registered with the session manager."),
	); err != nil {
		return nil, err
	}
	if met.RenewingSessions, err = m.Int64UpDownCounter("sessioncore.sessions.renewing",
		metric.WithDescription("Number of sessions currently mid-renewal."),
	); err != nil {
		return nil, err
	}

	if met.ConfidenceScore, err = m.Float64Histogram("sessioncore.confidence.score",
		metric.WithDescription("Confidence value of final recognition results."),
		metric.WithExplicitBucketBoundaries(0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0),
	); err != nil {
		return nil, err
	}
	if met.AudioSecondsProcessed, err = m.Float64Counter("sessioncore.audio.seconds",
		metric.WithDescription("Cumulative processed audio duration, in seconds."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("sessioncore.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordError is a convenience method that records an error counter
// increment tagged with its kind.
func (m *Metrics) RecordError(ctx context.Context, kind string) {
	m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordRenewalOutcome records a completed or failed renewal's duration and
// outcome counter in one call.
func (m *Metrics) RecordRenewalOutcome(ctx context.Context, completed bool, duration float64) {
	m.RenewalDuration.Record(ctx, duration)
	if completed {
		m.RenewalsCompleted.Add(ctx, 1)
	} else {
		m.RenewalsFailed.Add(ctx, 1)
	}
}
