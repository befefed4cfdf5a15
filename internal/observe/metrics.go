// Package observe provides application-wide observability primitives for the
// e-PHIT server: OpenTelemetry metrics, tracing, and HTTP middleware that
// ties them together.
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

// meterName is the instrumentation scope name used for all e-PHIT metrics.
const meterName = "github.com/fitnessuom/ephit-mental-health"

// Frame outcome attribute values for [Metrics.RecordFrame].
const (
	FrameContent   = "content"
	FrameDone      = "done"
	FrameMalformed = "malformed"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TurnDuration tracks end-to-end chat turn latency (submit to settled).
	TurnDuration metric.Float64Histogram

	// StreamFrames counts decoded stream events. Use with attribute:
	//   attribute.String("outcome", FrameContent|FrameDone|FrameMalformed)
	StreamFrames metric.Int64Counter

	// GatewayRequests counts AI gateway calls. Use with attribute:
	//   attribute.String("status", ...)
	GatewayRequests metric.Int64Counter

	// GatewayErrors counts failed gateway calls. Use with attribute:
	//   attribute.String("reason", ...)
	GatewayErrors metric.Int64Counter

	// LinkedVideos counts videos linked under settled assistant messages.
	LinkedVideos metric.Int64Counter

	// QuizCompletions counts completed quiz runs.
	QuizCompletions metric.Int64Counter

	// ActiveChatSessions tracks the number of open chat connections.
	ActiveChatSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// streamed chat turns.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TurnDuration, err = m.Float64Histogram("ephit.chat.turn.duration",
		metric.WithDescription("End-to-end chat turn latency from submit to settled."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.StreamFrames, err = m.Int64Counter("ephit.stream.frames",
		metric.WithDescription("Decoded stream events by outcome."),
	); err != nil {
		return nil, err
	}
	if met.GatewayRequests, err = m.Int64Counter("ephit.gateway.requests",
		metric.WithDescription("Total AI gateway requests by status."),
	); err != nil {
		return nil, err
	}
	if met.GatewayErrors, err = m.Int64Counter("ephit.gateway.errors",
		metric.WithDescription("Total failed AI gateway requests by reason."),
	); err != nil {
		return nil, err
	}
	if met.LinkedVideos, err = m.Int64Counter("ephit.chat.linked_videos",
		metric.WithDescription("Videos linked under settled assistant messages."),
	); err != nil {
		return nil, err
	}
	if met.QuizCompletions, err = m.Int64Counter("ephit.quiz.completions",
		metric.WithDescription("Completed quiz runs."),
	); err != nil {
		return nil, err
	}

	if met.ActiveChatSessions, err = m.Int64UpDownCounter("ephit.chat.active_sessions",
		metric.WithDescription("Number of open chat connections."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("ephit.http.request.duration",
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

// RecordFrame records one decoded stream event with the given outcome.
func (m *Metrics) RecordFrame(ctx context.Context, outcome string) {
	m.StreamFrames.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordGatewayRequest records a gateway call with its response status.
func (m *Metrics) RecordGatewayRequest(ctx context.Context, status string) {
	m.GatewayRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordGatewayError records a failed gateway call.
func (m *Metrics) RecordGatewayError(ctx context.Context, reason string) {
	m.GatewayErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordTurn records one settled chat turn's duration in seconds with an
// outcome of "settled" or "errored".
func (m *Metrics) RecordTurn(ctx context.Context, seconds float64, outcome string) {
	m.TurnDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
