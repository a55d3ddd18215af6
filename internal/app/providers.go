package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/storyboard/internal/config"
	"github.com/MrWong99/storyboard/internal/observe"
	"github.com/MrWong99/storyboard/internal/resilience"
	"github.com/MrWong99/storyboard/pkg/provider/image"
	"github.com/MrWong99/storyboard/pkg/provider/llm"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

// BuildProviders instantiates every provider named in cfg using the
// registry. Each backend is instrumented with m, which must not be nil; a slot with fallbacks is
// wrapped in a failover group whose breakers report their transitions to m.
// Names without a registered factory are skipped with a warning.
func BuildProviders(cfg *config.Config, reg *config.Registry, m *observe.Metrics) (*Providers, error) {
	ps := &Providers{}
	fb := fallbackConfig(m)

	if entry := cfg.Providers.LLM; entry.Name != "" {
		p, err := buildSlot("llm", entry, reg.CreateLLM,
			func(p llm.Provider, name string) llm.Provider { return observe.InstrumentLLM(p, name, m) },
			func(primary llm.Provider, name string) slot[llm.Provider] {
				return resilience.NewLLMFallback(primary, name, fb)
			})
		if err != nil {
			return nil, err
		}
		ps.LLM = p
	}

	if entry := cfg.Providers.TTS; entry.Name != "" {
		p, err := buildSlot("tts", entry, reg.CreateTTS,
			func(p tts.Provider, name string) tts.Provider { return observe.InstrumentTTS(p, name, m) },
			func(primary tts.Provider, name string) slot[tts.Provider] {
				return resilience.NewTTSFallback(primary, name, fb)
			})
		if err != nil {
			return nil, err
		}
		ps.TTS = p
	}

	if entry := cfg.Providers.Image; entry.Name != "" {
		p, err := buildSlot("image", entry, reg.CreateImage,
			func(p image.Provider, name string) image.Provider { return observe.InstrumentImage(p, name, m) },
			func(primary image.Provider, name string) slot[image.Provider] {
				return resilience.NewImageFallback(primary, name, fb)
			})
		if err != nil {
			return nil, err
		}
		ps.Image = p
	}

	return ps, nil
}

// slot is a failover group that is itself a provider of type P.
type slot[P any] interface {
	AddFallback(name string, provider P)
}

// buildSlot creates the primary and fallback backends of one provider kind.
// The returned value is the bare instrumented primary when no fallback could
// be created.
func buildSlot[P any](
	kind string,
	entry config.ProviderEntry,
	create func(config.ProviderEntry) (P, error),
	instrument func(P, string) P,
	group func(P, string) slot[P],
) (P, error) {
	var zero P

	primary, err := create(entry)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Warn("provider not registered, skipping", "kind", kind, "name", entry.Name)
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("create %s provider %q: %w", kind, entry.Name, err)
	}
	primary = instrument(primary, entry.Name)
	slog.Info("provider created", "kind", kind, "name", entry.Name, "model", entry.Model)

	if len(entry.Fallbacks) == 0 {
		return primary, nil
	}

	g := group(primary, entry.Name)
	added := 0
	for _, fe := range entry.Fallbacks {
		p, err := create(fe)
		if err != nil {
			slog.Warn("fallback provider unavailable", "kind", kind, "name", fe.Name, "err", err)
			continue
		}
		g.AddFallback(fe.Name, instrument(p, fe.Name))
		added++
		slog.Info("fallback provider created", "kind", kind, "name", fe.Name, "model", fe.Model)
	}
	if added == 0 {
		return primary, nil
	}
	// Every group type implements the provider interface of its slot.
	return any(g).(P), nil
}

func fallbackConfig(m *observe.Metrics) resilience.FallbackConfig {
	return resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, _, to resilience.State) {
				m.RecordBreakerTransition(name, to.String())
			},
		},
	}
}
