// Package observe provides application-wide observability primitives for
// lectern: OpenTelemetry metrics and the HTTP middleware that records them.
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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all lectern metrics.
const meterName = "github.com/lectern-ai/lectern"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// NarrationDuration tracks how long the model narrated one slide, from
	// narration request to turn completion.
	NarrationDuration metric.Float64Histogram

	// TurnLatency tracks time from the end of user speech to the first
	// played-back model audio.
	TurnLatency metric.Float64Histogram

	// ToolCallDuration tracks tool-call round-trip latency. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCallDuration metric.Float64Histogram

	// --- Counters ---

	// BargeIns counts user interruptions of active playback.
	BargeIns metric.Int64Counter

	// SlidesNarrated counts completed slide narrations.
	SlidesNarrated metric.Int64Counter

	// StateTransitions counts lecture state machine transitions. Use with
	// attributes: attribute.String("from", ...), attribute.String("to", ...)
	StateTransitions metric.Int64Counter

	// CollaboratorErrors counts classifier/research/visual failures. Use with
	// attribute: attribute.String("collaborator", ...)
	CollaboratorErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveLectures tracks the number of lectures currently running.
	ActiveLectures metric.Int64UpDownCounter

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// PlaybackQueueDepth records the playback scheduler's pending item count.
	PlaybackQueueDepth metric.Int64Gauge

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.NarrationDuration, err = m.Float64Histogram("lectern.narration.duration",
		metric.WithDescription("Duration of one slide narration, request to turn completion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnLatency, err = m.Float64Histogram("lectern.turn.latency",
		metric.WithDescription("Time from end of user speech to first played-back model audio."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolCallDuration, err = m.Float64Histogram("lectern.tool_call.duration",
		metric.WithDescription("Tool-call round-trip latency by tool and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.BargeIns, err = m.Int64Counter("lectern.barge_ins",
		metric.WithDescription("User interruptions of active playback."),
	); err != nil {
		return nil, err
	}
	if met.SlidesNarrated, err = m.Int64Counter("lectern.slides.narrated",
		metric.WithDescription("Completed slide narrations."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("lectern.tutor.transitions",
		metric.WithDescription("Lecture state machine transitions by from and to state."),
	); err != nil {
		return nil, err
	}
	if met.CollaboratorErrors, err = m.Int64Counter("lectern.collaborator.errors",
		metric.WithDescription("External collaborator failures by collaborator name."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.ActiveLectures, err = m.Int64UpDownCounter("lectern.active_lectures",
		metric.WithDescription("Number of lectures currently running."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("lectern.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackQueueDepth, err = m.Int64Gauge("lectern.playback.queue_depth",
		metric.WithDescription("Pending items in the playback scheduler."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("lectern.http.request.duration",
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

// BargeIn records one user interruption.
func (m *Metrics) BargeIn(ctx context.Context) {
	m.BargeIns.Add(ctx, 1)
}

// Narration records the duration of one completed slide narration.
func (m *Metrics) Narration(ctx context.Context, d time.Duration) {
	m.NarrationDuration.Record(ctx, d.Seconds())
	m.SlidesNarrated.Add(ctx, 1)
}

// Transition records one lecture state machine transition.
func (m *Metrics) Transition(ctx context.Context, from, to string) {
	m.StateTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// CollaboratorError records one external collaborator failure.
func (m *Metrics) CollaboratorError(ctx context.Context, name string) {
	m.CollaboratorErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("collaborator", name)),
	)
}

// ToolCall records one tool-call round trip.
func (m *Metrics) ToolCall(ctx context.Context, tool string, d time.Duration, timedOut bool) {
	status := "ok"
	if timedOut {
		status = "timeout"
	}
	m.ToolCallDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// SessionOpened and SessionClosed maintain the live session gauge.
func (m *Metrics) SessionOpened(ctx context.Context) { m.ActiveSessions.Add(ctx, 1) }
func (m *Metrics) SessionClosed(ctx context.Context) { m.ActiveSessions.Add(ctx, -1) }

// LectureStarted and LectureEnded maintain the running lecture gauge.
func (m *Metrics) LectureStarted(ctx context.Context) { m.ActiveLectures.Add(ctx, 1) }
func (m *Metrics) LectureEnded(ctx context.Context)   { m.ActiveLectures.Add(ctx, -1) }

// PlaybackDepth records the current playback queue depth.
func (m *Metrics) PlaybackDepth(ctx context.Context, n int) {
	m.PlaybackQueueDepth.Record(ctx, int64(n))
}
