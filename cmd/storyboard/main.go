// Command storyboard turns stories into narrated, illustrated storyboards.
// It serves an HTTP API and offers one-shot subcommands for scripting.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/storyboard/internal/app"
	"github.com/MrWong99/storyboard/internal/config"
	"github.com/MrWong99/storyboard/internal/observe"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	envFiles   []string

	// logLevel backs the default logger so that a config reload can change
	// verbosity without replacing the handler.
	logLevel = new(slog.LevelVar)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "storyboard: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storyboard",
		Short:         "Generate narrated, illustrated storyboards from a story",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
			return config.LoadEnvFiles(envFiles...)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "storyboard.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config is read")

	root.AddCommand(newServeCmd(), newBuildCmd(), newNarrateCmd(), newVoicesCmd())
	return root
}

// loadConfig reads the config file and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found, copy configs/example.yaml to get started", configPath)
		}
		return nil, err
	}
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	return cfg, nil
}

// newApp loads the config and wires an application for the one-shot
// subcommands. The returned cleanup shuts it down.
func newApp(ctx context.Context) (*app.App, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := app.BuildProviders(cfg, reg, observe.DefaultMetrics())
	if err != nil {
		return nil, nil, nil, err
	}
	a, err := app.New(ctx, cfg, providers)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, cfg, func() { _ = a.Shutdown(context.Background()) }, nil
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
