package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/storyboard/internal/config"
)

const fullYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  llm:
    name: gemini
    api_key: test-key
    model: gemini-1.5-flash
    timeout: 45s
  tts:
    name: gemini
    api_key: test-key
    model: gemini-2.0-flash-exp
    fallbacks:
      - name: openai
        api_key: sk-test
  image:
    name: imagen
    api_key: test-key
narration:
  max_segment_chars: 1200
  pause: 250ms
  concurrency: 2
  voice: "Puck (Male)"
  cache:
    enabled: true
  normalize:
    sample_rate: 24000
    channels: 1
storyboard:
  language: English
  temperature: 0.3
  aspect_ratio: "16:9"
`

func TestLoadFromReader_Full(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Providers.LLM.Timeout != 45*time.Second {
		t.Errorf("llm timeout = %s, want 45s", cfg.Providers.LLM.Timeout)
	}
	if len(cfg.Providers.TTS.Fallbacks) != 1 || cfg.Providers.TTS.Fallbacks[0].Name != "openai" {
		t.Errorf("tts fallbacks = %+v", cfg.Providers.TTS.Fallbacks)
	}
	n := cfg.Narration
	if n.MaxSegmentChars != 1200 || n.PauseInterval() != 250*time.Millisecond || n.Concurrency != 2 {
		t.Errorf("narration = %+v", n)
	}
	if n.Cache.MaxEntries != config.DefaultCacheMaxEntries {
		t.Errorf("cache max entries = %d, want default %d", n.Cache.MaxEntries, config.DefaultCacheMaxEntries)
	}
	if n.Normalize == nil || n.Normalize.SampleRate != 24000 || n.Normalize.Channels != 1 {
		t.Errorf("normalize = %+v", n.Normalize)
	}
	if cfg.Storyboard.Temperature == nil || *cfg.Storyboard.Temperature != 0.3 {
		t.Errorf("temperature = %v", cfg.Storyboard.Temperature)
	}
	if cfg.Storyboard.AspectRatio != "16:9" {
		t.Errorf("aspect ratio = %q", cfg.Storyboard.AspectRatio)
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Narration.PauseInterval() != config.DefaultPause {
		t.Errorf("pause = %s", cfg.Narration.PauseInterval())
	}
	if cfg.Narration.Concurrency != 1 {
		t.Errorf("concurrency = %d", cfg.Narration.Concurrency)
	}
	if cfg.Storyboard.Language != "Indonesia" || cfg.Storyboard.AspectRatio != "9:16" {
		t.Errorf("storyboard = %+v", cfg.Storyboard)
	}
}

func TestLoadFromReader_ExplicitZeroPause(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("narration:\n  pause: 0s\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Narration.PauseInterval(); got != 0 {
		t.Errorf("pause = %s, want 0", got)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("narration:\n  speed: fast\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadFromReader_ExpandsEnv(t *testing.T) {
	t.Setenv("STORYBOARD_TEST_KEY", "from-env")
	cfg, err := config.LoadFromReader(strings.NewReader("providers:\n  llm:\n    name: gemini\n    api_key: ${STORYBOARD_TEST_KEY}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.LLM.APIKey != "from-env" {
		t.Errorf("api_key = %q, want from-env", cfg.Providers.LLM.APIKey)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"log level", "server:\n  log_level: loud\n", "server.log_level"},
		{"tls incomplete", "server:\n  tls:\n    cert_file: a.pem\n", "server.tls"},
		{"negative segment", "narration:\n  max_segment_chars: -1\n", "max_segment_chars"},
		{"negative pause", "narration:\n  pause: -1s\n", "narration.pause"},
		{"negative concurrency", "narration:\n  concurrency: -2\n", "concurrency"},
		{"normalize channels", "narration:\n  normalize:\n    sample_rate: 16000\n    channels: 6\n", "channels"},
		{"normalize rate", "narration:\n  normalize:\n    channels: 1\n", "sample_rate"},
		{"temperature", "storyboard:\n  temperature: 3\n", "temperature"},
		{"aspect ratio", "storyboard:\n  aspect_ratio: tall\n", "aspect_ratio"},
		{"fallback without name", "providers:\n  tts:\n    name: gemini\n    fallbacks:\n      - model: x\n", "fallbacks[0].name"},
		{"fallback without primary", "providers:\n  tts:\n    fallbacks:\n      - name: openai\n", "without a primary"},
		{"nested fallback", "providers:\n  llm:\n    name: gemini\n    fallbacks:\n      - name: openai\n        fallbacks:\n          - name: ollama\n", "nested"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: loud\nnarration:\n  concurrency: -1\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "log_level") || !strings.Contains(msg, "concurrency") {
		t.Errorf("joined error should list both failures, got %q", msg)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("STORYBOARD_DOTENV_VALUE=dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORYBOARD_DOTENV_VALUE", "")
	os.Unsetenv("STORYBOARD_DOTENV_VALUE")

	if err := config.LoadEnvFiles(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	if got := os.Getenv("STORYBOARD_DOTENV_VALUE"); got != "dotenv" {
		t.Errorf("env = %q, want dotenv", got)
	}
}

func TestLoadEnvFiles_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("STORYBOARD_DOTENV_KEEP=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORYBOARD_DOTENV_KEEP", "process")

	if err := config.LoadEnvFiles(path); err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	if got := os.Getenv("STORYBOARD_DOTENV_KEEP"); got != "process" {
		t.Errorf("env = %q, want process", got)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "oai-key")

	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.LLM.APIKey != "gem-key" {
		t.Errorf("llm api_key = %q, want expanded env value", cfg.Providers.LLM.APIKey)
	}
	if len(cfg.Providers.LLM.Fallbacks) != 1 || cfg.Providers.LLM.Fallbacks[0].APIKey != "oai-key" {
		t.Errorf("llm fallbacks = %+v", cfg.Providers.LLM.Fallbacks)
	}
	if got := cfg.Narration.PauseInterval(); got != 200*time.Millisecond {
		t.Errorf("pause = %s, want 200ms", got)
	}
	if cfg.Storyboard.AspectRatio != "9:16" {
		t.Errorf("aspect_ratio = %q", cfg.Storyboard.AspectRatio)
	}
}
