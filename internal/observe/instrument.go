package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/storyboard/pkg/provider/image"
	"github.com/MrWong99/storyboard/pkg/provider/llm"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

// observeCall wraps one provider call in a span and records its latency,
// request counter and, on failure, error counter.
func observeCall[R any](ctx context.Context, m *Metrics, h metric.Float64Histogram, kind, name string, fn func(context.Context) (R, error)) (R, error) {
	ctx, span := StartSpan(ctx, kind+"."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("provider", name)),
	)
	defer span.End()

	start := time.Now()
	res, err := fn(ctx)
	h.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(Attr("provider", name)))

	status := "ok"
	if err != nil {
		status = "error"
		Fail(span, err)
		m.RecordProviderError(ctx, name, kind)
	}
	m.RecordProviderRequest(ctx, name, kind, status)
	return res, err
}

// InstrumentedLLM decorates an [llm.Provider] with tracing and metrics.
type InstrumentedLLM struct {
	llm.Provider
	name string
	m    *Metrics
}

// InstrumentLLM wraps p; name is the provider's registry name.
func InstrumentLLM(p llm.Provider, name string, m *Metrics) *InstrumentedLLM {
	return &InstrumentedLLM{Provider: p, name: name, m: m}
}

// Complete implements [llm.Provider].
func (i *InstrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return observeCall(ctx, i.m, i.m.LLMDuration, "llm", i.name, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return i.Provider.Complete(ctx, req)
	})
}

// InstrumentedTTS decorates a [tts.Provider] with tracing and metrics.
type InstrumentedTTS struct {
	tts.Provider
	name string
	m    *Metrics
}

// InstrumentTTS wraps p; name is the provider's registry name.
func InstrumentTTS(p tts.Provider, name string, m *Metrics) *InstrumentedTTS {
	return &InstrumentedTTS{Provider: p, name: name, m: m}
}

// Synthesize implements [tts.Provider].
func (i *InstrumentedTTS) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	return observeCall(ctx, i.m, i.m.TTSDuration, "tts", i.name, func(ctx context.Context) ([]byte, error) {
		return i.Provider.Synthesize(ctx, text, voice)
	})
}

// InstrumentedImage decorates an [image.Provider] with tracing and metrics.
type InstrumentedImage struct {
	image.Provider
	name string
	m    *Metrics
}

// InstrumentImage wraps p; name is the provider's registry name.
func InstrumentImage(p image.Provider, name string, m *Metrics) *InstrumentedImage {
	return &InstrumentedImage{Provider: p, name: name, m: m}
}

// Generate implements [image.Provider].
func (i *InstrumentedImage) Generate(ctx context.Context, req image.Request) (*image.Image, error) {
	return observeCall(ctx, i.m, i.m.ImageDuration, "image", i.name, func(ctx context.Context) (*image.Image, error) {
		return i.Provider.Generate(ctx, req)
	})
}

var (
	_ llm.Provider   = (*InstrumentedLLM)(nil)
	_ tts.Provider   = (*InstrumentedTTS)(nil)
	_ image.Provider = (*InstrumentedImage)(nil)
)
