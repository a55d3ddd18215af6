package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/storyboard/internal/app"
	"github.com/MrWong99/storyboard/internal/config"
	"github.com/MrWong99/storyboard/internal/observe"
)

func newServeCmd() *cobra.Command {
	var (
		listenAddr string
		watch      bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, listenAddr, watch)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "override server.listen_addr")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload narration and storyboard settings when the config file changes")
	return cmd
}

func serve(ctx context.Context, listenAddr string, watch bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: Version})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	slog.Info("storyboard starting",
		"version", Version,
		"config", configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	providers, err := app.BuildProviders(cfg, reg, observe.DefaultMetrics())
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		return fmt.Errorf("initialise application: %w", err)
	}

	if watch {
		w, err := config.NewWatcher(configPath, func(_, next *config.Config) {
			if listenAddr != "" {
				next.Server.ListenAddr = listenAddr
			}
			logLevel.Set(slogLevel(next.Server.LogLevel))
			if err := application.ApplyConfig(next); err != nil {
				slog.Error("config reload failed", "err", err)
			}
		})
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer w.Stop()
			go reloadOnHangup(ctx, w)
		}
	}

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("goodbye")
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// reloadOnHangup forces a config reload on every SIGHUP until ctx ends.
func reloadOnHangup(ctx context.Context, w *config.Watcher) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			changed, err := w.Reload()
			if err != nil {
				slog.Warn("config reload on SIGHUP failed", "err", err)
				continue
			}
			slog.Info("config reload on SIGHUP", "changed", changed)
		}
	}
}
