// Package observe provides the service's observability primitives:
// OpenTelemetry metrics and tracing, trace-aware structured logging, HTTP
// middleware, and instrumented wrappers around the provider interfaces.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// scraping through the Prometheus exporter installed by [InitProvider] and
// served by [MetricsHandler]. Tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MrWong99/storyboard"

// Segment statuses recorded by [Metrics.RecordSegment].
const (
	SegmentOK     = "ok"
	SegmentFailed = "failed"
	SegmentCached = "cached"
)

// Metrics holds all OpenTelemetry metric instruments for the service.
type Metrics struct {
	// LLMDuration tracks storyboard text generation latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks single-segment speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// ImageDuration tracks scene illustration latency.
	ImageDuration metric.Float64Histogram

	// NarrationDuration tracks a whole narration: segmenting, every
	// synthesis call, and stitching.
	NarrationDuration metric.Float64Histogram

	// ProviderRequests counts provider calls by provider, kind and status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts failed provider calls by provider and kind.
	ProviderErrors metric.Int64Counter

	// NarrationSegments counts synthesized segments by status
	// (ok, failed, cached).
	NarrationSegments metric.Int64Counter

	// StitchSkipped counts audio buffers dropped while stitching, by reason.
	StitchSkipped metric.Int64Counter

	// StoryboardsBuilt counts generated storyboards by language.
	StoryboardsBuilt metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes by provider and
	// target state.
	BreakerTransitions metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time by method,
	// route and status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds. Remote generation calls
// take from a few hundred milliseconds up to a minute.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histogram := func(name, desc string) (metric.Float64Histogram, error) {
		return m.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
	}

	if met.LLMDuration, err = histogram("storyboard.llm.duration", "Latency of storyboard text generation."); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = histogram("storyboard.tts.duration", "Latency of one speech synthesis call."); err != nil {
		return nil, err
	}
	if met.ImageDuration, err = histogram("storyboard.image.duration", "Latency of one image generation call."); err != nil {
		return nil, err
	}
	if met.NarrationDuration, err = histogram("storyboard.narration.duration", "Latency of a complete narration."); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("storyboard.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("storyboard.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.NarrationSegments, err = m.Int64Counter("storyboard.narration.segments",
		metric.WithDescription("Narration segments by outcome."),
	); err != nil {
		return nil, err
	}
	if met.StitchSkipped, err = m.Int64Counter("storyboard.stitch.skipped",
		metric.WithDescription("Audio buffers left out of a stitched file, by reason."),
	); err != nil {
		return nil, err
	}
	if met.StoryboardsBuilt, err = m.Int64Counter("storyboard.storyboards.built",
		metric.WithDescription("Generated storyboards by language."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("storyboard.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by provider and new state."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("storyboard.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Call it after [InitProvider] so
// the instruments bind to the exporting provider.
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

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest increments the provider request counter.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(Attr("provider", provider), Attr("kind", kind), Attr("status", status)),
	)
}

// RecordProviderError increments the provider error counter.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(Attr("provider", provider), Attr("kind", kind)),
	)
}

// RecordSegment counts one narration segment with the given status.
func (m *Metrics) RecordSegment(ctx context.Context, status string) {
	m.NarrationSegments.Add(ctx, 1, metric.WithAttributes(Attr("status", status)))
}

// RecordStitchSkipped counts n buffers dropped for reason.
func (m *Metrics) RecordStitchSkipped(ctx context.Context, reason string, n int) {
	if n <= 0 {
		return
	}
	m.StitchSkipped.Add(ctx, int64(n), metric.WithAttributes(Attr("reason", reason)))
}

// RecordStoryboard counts one generated storyboard.
func (m *Metrics) RecordStoryboard(ctx context.Context, language string) {
	m.StoryboardsBuilt.Add(ctx, 1, metric.WithAttributes(Attr("language", language)))
}

// RecordBreakerTransition counts one circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(provider, state string) {
	m.BreakerTransitions.Add(context.Background(), 1,
		metric.WithAttributes(Attr("provider", provider), Attr("state", state)),
	)
}
