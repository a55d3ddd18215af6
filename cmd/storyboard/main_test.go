package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/storyboard/internal/config"
)

func TestRegisterBuiltinProviders(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	for kind, want := range config.ValidProviderNames {
		got := reg.Names(kind)
		for _, name := range want {
			if !slices.Contains(got, name) {
				t.Errorf("%s provider %q not registered (have %v)", kind, name, got)
			}
		}
	}
}

func TestBuiltinFactories(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "gemini"}); err == nil {
		t.Error("gemini tts without api key should fail")
	}
	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "gemini", APIKey: "k", Timeout: time.Second}); err != nil {
		t.Errorf("gemini tts: %v", err)
	}
	if _, err := reg.CreateImage(config.ProviderEntry{
		Name:    "imagen",
		APIKey:  "k",
		Options: map[string]any{"models": []any{"imagen-3.0-generate-002", 7}},
	}); err != nil {
		t.Errorf("imagen: %v", err)
	}
	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "coqui"}); err == nil {
		t.Error("coqui without server url should fail")
	}
	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "openai", APIKey: "k"}); err != nil {
		t.Errorf("openai llm: %v", err)
	}
}

func TestOptionHelpers(t *testing.T) {
	t.Parallel()
	opts := map[string]any{
		"language":    "id",
		"sample_rate": 24000,
		"ratio":       1.5,
		"models":      []any{"a", "", 3, "b"},
		"wrong":       42,
	}
	if got := optString(opts, "language"); got != "id" {
		t.Errorf("optString = %q", got)
	}
	if got := optString(opts, "wrong"); got != "" {
		t.Errorf("optString non-string = %q", got)
	}
	if got := optString(nil, "x"); got != "" {
		t.Errorf("optString nil map = %q", got)
	}
	if got := optInt(opts, "sample_rate"); got != 24000 {
		t.Errorf("optInt = %d", got)
	}
	if got := optInt(opts, "ratio"); got != 1 {
		t.Errorf("optInt float = %d", got)
	}
	if got := optStrings(opts, "models"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("optStrings = %v", got)
	}
}

func TestReadText(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "story.txt")
	if err := os.WriteFile(path, []byte("Dari berkas."), 0o644); err != nil {
		t.Fatal(err)
	}

	if got, err := readText([]string{"arg"}, ""); err != nil || got != "arg" {
		t.Errorf("arg: %q, %v", got, err)
	}
	if got, err := readText(nil, path); err != nil || got != "Dari berkas." {
		t.Errorf("file: %q, %v", got, err)
	}
	if _, err := readText([]string{"arg"}, path); err == nil {
		t.Error("expected error for arg and file")
	}
	if _, err := readText(nil, ""); err == nil {
		t.Error("expected error without input")
	}
	if _, err := readText(nil, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()
	tests := map[config.LogLevel]slog.Level{
		config.LogDebug: slog.LevelDebug,
		config.LogInfo:  slog.LevelInfo,
		config.LogWarn:  slog.LevelWarn,
		config.LogError: slog.LevelError,
		"":              slog.LevelInfo,
	}
	for in, want := range tests {
		if got := slogLevel(in); got != want {
			t.Errorf("slogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRootCommand(t *testing.T) {
	t.Parallel()
	root := newRootCmd()
	for _, name := range []string{"serve", "build", "narrate", "voices"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q missing: %v", name, err)
		}
	}
	if f := root.PersistentFlags().Lookup("config"); f == nil || f.DefValue != "storyboard.yaml" {
		t.Error("missing --config flag")
	}
}
