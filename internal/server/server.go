// Package server exposes storyboards, narration and scene images over HTTP.
//
// Routes:
//
//	POST /api/storyboards                          build a storyboard
//	GET  /api/storyboards                          list storyboards
//	GET  /api/storyboards/{id}                     one storyboard
//	POST /api/storyboards/{id}/audio               narrate the storyboard
//	GET  /api/storyboards/{id}/audio               last narration
//	POST /api/storyboards/{id}/scenes/{scene}/image  illustrate a scene
//	GET  /api/storyboards/{id}/scenes/{scene}/image  stored illustration
//	GET  /api/storyboards/{id}/export              zip archive
//	POST /api/narrations                           narrate arbitrary text
//	GET  /api/voices                               voice catalogue
//	GET  /healthz, /readyz, /metrics
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/MrWong99/storyboard/internal/health"
	"github.com/MrWong99/storyboard/internal/narrator"
	"github.com/MrWong99/storyboard/internal/observe"
	"github.com/MrWong99/storyboard/internal/storyboard"
	"github.com/MrWong99/storyboard/pkg/provider/image"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Builder builds storyboards.
type Builder interface {
	Build(ctx context.Context, req storyboard.Request) (*storyboard.Storyboard, error)
}

// Narrator synthesizes narrations.
type Narrator interface {
	Narrate(ctx context.Context, text string, voice tts.VoiceProfile) (*narrator.Result, error)
}

// Illustrator generates scene images.
type Illustrator interface {
	Illustrate(ctx context.Context, storyboardID string, sceneID int) (*image.Image, error)
}

// VoiceLister lists the voices of the active speech provider.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]tts.VoiceProfile, error)
}

// Option configures a [Server].
type Option func(*Server)

// WithBuilder enables POST /api/storyboards.
func WithBuilder(b Builder) Option { return func(s *Server) { s.builder = b } }

// WithNarrator enables the narration routes.
func WithNarrator(n Narrator) Option { return func(s *Server) { s.narrator = n } }

// WithIllustrator enables POST .../scenes/{scene}/image.
func WithIllustrator(il Illustrator) Option { return func(s *Server) { s.illustrator = il } }

// WithVoices sets the voice catalogue source. Without it, or when it fails,
// the built-in Gemini catalogue is served.
func WithVoices(v VoiceLister) Option { return func(s *Server) { s.voices = v } }

// WithDefaultVoice sets the voice used when neither the request nor the
// storyboard names one.
func WithDefaultVoice(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.defaultVoice = name
		}
	}
}

// WithHealth mounts /healthz and /readyz.
func WithHealth(h *health.Handler) Option { return func(s *Server) { s.health = h } }

// WithMetrics instruments every route and mounts /metrics.
func WithMetrics(m *observe.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithMaxBodyBytes caps JSON request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// Server is the HTTP front end.
type Server struct {
	store        storyboard.Store
	builder      Builder
	narrator     Narrator
	illustrator  Illustrator
	voices       VoiceLister
	defaultVoice string
	health       *health.Handler
	metrics      *observe.Metrics
	maxBody      int64

	handler http.Handler
}

// New creates a Server over store.
func New(store storyboard.Store, opts ...Option) *Server {
	s := &Server{
		store:        store,
		defaultVoice: tts.DefaultVoiceName,
		maxBody:      DefaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(s)
	}

	mux := http.NewServeMux()
	s.routes(mux)
	var h http.Handler = mux
	if s.metrics != nil {
		h = observe.Middleware(s.metrics)(mux)
	}
	s.handler = h
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/storyboards", s.handleCreateStoryboard)
	mux.HandleFunc("GET /api/storyboards", s.handleListStoryboards)
	mux.HandleFunc("GET /api/storyboards/{id}", s.handleGetStoryboard)
	mux.HandleFunc("POST /api/storyboards/{id}/audio", s.handleNarrateStoryboard)
	mux.HandleFunc("GET /api/storyboards/{id}/audio", s.handleGetAudio)
	mux.HandleFunc("POST /api/storyboards/{id}/scenes/{scene}/image", s.handleIllustrate)
	mux.HandleFunc("GET /api/storyboards/{id}/scenes/{scene}/image", s.handleGetImage)
	mux.HandleFunc("GET /api/storyboards/{id}/export", s.handleExport)
	mux.HandleFunc("POST /api/narrations", s.handleNarrate)
	mux.HandleFunc("GET /api/voices", s.handleVoices)

	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", observe.MetricsHandler())
	}
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenConfig describes where and how [Server.ListenAndServe] listens.
type ListenConfig struct {
	Addr string

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string

	// ShutdownTimeout bounds the graceful shutdown. Zero means 10s.
	ShutdownTimeout time.Duration
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, cfg ListenConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", cfg.Addr, err)
	}
	return s.Serve(ctx, ln, cfg)
}

// Serve is [Server.ListenAndServe] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, cfg ListenConfig) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Narrating a long storyboard can take minutes.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String(), "tls", cfg.CertFile != "")
		var err error
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			err = srv.ServeTLS(ln, cfg.CertFile, cfg.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	slog.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
