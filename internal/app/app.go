// Package app wires the storyboard subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API until the context ends, ApplyConfig
// swaps the hot-reloadable parts, and Shutdown tears everything down in
// order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/MrWong99/storyboard/internal/cache"
	"github.com/MrWong99/storyboard/internal/config"
	"github.com/MrWong99/storyboard/internal/health"
	"github.com/MrWong99/storyboard/internal/illustrator"
	"github.com/MrWong99/storyboard/internal/narrator"
	"github.com/MrWong99/storyboard/internal/observe"
	"github.com/MrWong99/storyboard/internal/server"
	"github.com/MrWong99/storyboard/internal/storyboard"
	"github.com/MrWong99/storyboard/pkg/audio"
	"github.com/MrWong99/storyboard/pkg/provider/image"
	"github.com/MrWong99/storyboard/pkg/provider/llm"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by [BuildProviders].
type Providers struct {
	LLM   llm.Provider
	TTS   tts.Provider
	Image image.Provider
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics

	// Subsystems, initialised in New and torn down in Shutdown.
	store       storyboard.Store
	cache       *cache.Synthesis
	builder     atomic.Pointer[storyboard.Builder]
	narrator    atomic.Pointer[narrator.Narrator]
	illustrator atomic.Pointer[illustrator.Illustrator]
	server      *server.Server

	// mu serialises ApplyConfig.
	mu sync.Mutex

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a storyboard store instead of creating a MemStore.
func WithStore(s storyboard.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics records to m instead of the global meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers come
// from [BuildProviders]; missing slots disable the routes that need them.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.store == nil {
		a.store = storyboard.NewMemStore()
	}

	if cfg.Narration.Cache.Enabled {
		c, err := cache.New(cfg.Narration.Cache.MaxEntries)
		if err != nil {
			return nil, fmt.Errorf("app: init cache: %w", err)
		}
		a.cache = c
		a.closers = append(a.closers, c.Close)
	}

	if err := a.initBuilder(cfg.Storyboard); err != nil {
		return nil, fmt.Errorf("app: init builder: %w", err)
	}
	if err := a.initNarrator(cfg.Narration); err != nil {
		return nil, fmt.Errorf("app: init narrator: %w", err)
	}
	if err := a.initIllustrator(cfg.Storyboard); err != nil {
		return nil, fmt.Errorf("app: init illustrator: %w", err)
	}
	a.initServer()

	slog.InfoContext(ctx, "app initialised",
		"llm", providers.LLM != nil,
		"tts", providers.TTS != nil,
		"image", providers.Image != nil,
		"cache", a.cache != nil,
	)
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initBuilder(sc config.StoryboardConfig) error {
	if a.providers.LLM == nil {
		return nil
	}
	opts := []storyboard.BuilderOption{
		storyboard.WithStore(a.store),
		storyboard.WithDefaultLanguage(sc.Language),
		storyboard.WithBuilderMetrics(a.metrics),
	}
	if sc.Temperature != nil {
		opts = append(opts, storyboard.WithTemperature(*sc.Temperature))
	}
	b, err := storyboard.NewBuilder(a.providers.LLM, opts...)
	if err != nil {
		return err
	}
	a.builder.Store(b)
	return nil
}

func (a *App) initNarrator(nc config.NarrationConfig) error {
	if a.providers.TTS == nil {
		return nil
	}
	opts := []narrator.Option{
		narrator.WithMaxSegmentChars(nc.MaxSegmentChars),
		narrator.WithPause(nc.PauseInterval()),
		narrator.WithConcurrency(nc.Concurrency),
		narrator.WithMetrics(a.metrics),
	}
	if a.cache != nil {
		opts = append(opts, narrator.WithCache(a.cache, a.cfg.Providers.TTS.Name))
	}
	if nf := nc.Normalize; nf != nil {
		opts = append(opts, narrator.WithConverter(audio.NewConverter(nf.SampleRate, nf.Channels)))
	}
	nr, err := narrator.New(a.providers.TTS, opts...)
	if err != nil {
		return err
	}
	a.narrator.Store(nr)
	return nil
}

func (a *App) initIllustrator(sc config.StoryboardConfig) error {
	if a.providers.Image == nil {
		return nil
	}
	il, err := illustrator.New(a.providers.Image, a.store,
		illustrator.WithAspectRatio(sc.AspectRatio),
		illustrator.WithCharacter(true),
	)
	if err != nil {
		return err
	}
	a.illustrator.Store(il)
	return nil
}

func (a *App) initServer() {
	checks := health.New(
		health.Configured("llm", a.providers.LLM),
		health.Configured("tts", a.providers.TTS),
		health.Checker{Name: "store", Check: func(ctx context.Context) error {
			_, err := a.store.List(ctx)
			return err
		}},
	)

	opts := []server.Option{
		server.WithHealth(checks),
		server.WithMetrics(a.metrics),
		server.WithDefaultVoice(a.cfg.Narration.Voice),
	}
	if a.providers.LLM != nil {
		opts = append(opts, server.WithBuilder(builderFunc(a.currentBuilder)))
	}
	if a.providers.TTS != nil {
		opts = append(opts,
			server.WithNarrator(narratorFunc(a.currentNarrator)),
			server.WithVoices(a.providers.TTS),
		)
	}
	if a.providers.Image != nil {
		opts = append(opts, server.WithIllustrator(illustratorFunc(a.currentIllustrator)))
	}
	a.server = server.New(a.store, opts...)
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Store returns the storyboard store.
func (a *App) Store() storyboard.Store { return a.store }

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler { return a.server }

// Builder returns the current storyboard builder, or nil without an LLM.
func (a *App) Builder() *storyboard.Builder { return a.builder.Load() }

// Narrator returns the current narrator, or nil without a TTS provider.
func (a *App) Narrator() *narrator.Narrator { return a.narrator.Load() }

// Illustrator returns the current illustrator, or nil without an image
// provider.
func (a *App) Illustrator() *illustrator.Illustrator { return a.illustrator.Load() }

// Voices lists the voices of the TTS provider, or the built-in catalogue.
func (a *App) Voices(ctx context.Context) ([]tts.VoiceProfile, error) {
	if a.providers.TTS == nil {
		return tts.GeminiVoices, nil
	}
	return a.providers.TTS.ListVoices(ctx)
}

func (a *App) currentBuilder() *storyboard.Builder { return a.builder.Load() }
func (a *App) currentNarrator() *narrator.Narrator { return a.narrator.Load() }
func (a *App) currentIllustrator() *illustrator.Illustrator { return a.illustrator.Load() }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP API and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	lc := server.ListenConfig{Addr: a.cfg.Server.ListenAddr}
	if tls := a.cfg.Server.TLS; tls != nil {
		lc.CertFile, lc.KeyFile = tls.CertFile, tls.KeyFile
	}
	slog.Info("app running", "addr", lc.Addr)
	return a.server.ListenAndServe(ctx, lc)
}

// ─── Hot reload ──────────────────────────────────────────────────────────────

// ApplyConfig rebuilds the parts of the app that can change at runtime:
// narration settings and storyboard defaults. Provider changes need a
// restart and are only logged.
func (a *App) ApplyConfig(next *config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	d := config.Diff(a.cfg, next)
	if !d.Any() {
		return nil
	}
	if d.ProvidersChanged {
		slog.Warn("provider configuration changed; restart to apply")
	}

	prev := a.cfg
	a.cfg = next
	if d.NarrationChanged {
		if err := a.initNarrator(next.Narration); err != nil {
			a.cfg = prev
			return fmt.Errorf("app: reload narrator: %w", err)
		}
		slog.Info("narration settings reloaded",
			"max_segment_chars", next.Narration.MaxSegmentChars,
			"pause", next.Narration.PauseInterval(),
			"concurrency", next.Narration.Concurrency,
		)
	}
	if d.StoryboardChanged {
		if err := a.initBuilder(next.Storyboard); err != nil {
			a.cfg = prev
			return fmt.Errorf("app: reload builder: %w", err)
		}
		if err := a.initIllustrator(next.Storyboard); err != nil {
			a.cfg = prev
			return fmt.Errorf("app: reload illustrator: %w", err)
		}
		slog.Info("storyboard settings reloaded", "language", next.Storyboard.Language, "aspect_ratio", next.Storyboard.AspectRatio)
	}
	return nil
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Adapters ────────────────────────────────────────────────────────────────

// The server holds these instead of the concrete subsystems so that
// ApplyConfig can swap them without restarting the listener.

type builderFunc func() *storyboard.Builder

func (f builderFunc) Build(ctx context.Context, req storyboard.Request) (*storyboard.Storyboard, error) {
	return f().Build(ctx, req)
}

type narratorFunc func() *narrator.Narrator

func (f narratorFunc) Narrate(ctx context.Context, text string, voice tts.VoiceProfile) (*narrator.Result, error) {
	return f().Narrate(ctx, text, voice)
}

type illustratorFunc func() *illustrator.Illustrator

func (f illustratorFunc) Illustrate(ctx context.Context, storyboardID string, sceneID int) (*image.Image, error) {
	return f().Illustrate(ctx, storyboardID, sceneID)
}
