// Package config provides the configuration schema, loader, and provider registry
// for the storyboard service.
package config

import "time"

// LogLevel controls log verbosity for the storyboard server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Default values applied by [ApplyDefaults].
const (
	DefaultListenAddr      = ":8080"
	DefaultLanguage        = "Indonesia"
	DefaultPause           = 200 * time.Millisecond
	DefaultConcurrency     = 1
	DefaultCacheMaxEntries = 256
	DefaultAspectRatio     = "9:16"
)

// SupportedLanguages lists the narration languages offered to users.
var SupportedLanguages = []string{"Indonesia", "English"}

// Config is the root configuration structure for the storyboard service.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Narration  NarrationConfig  `yaml:"narration"`
	Storyboard StoryboardConfig `yaml:"storyboard"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ProvidersConfig selects the backend for each remote service. Each field
// names a provider registered in the [Registry].
type ProvidersConfig struct {
	LLM   ProviderEntry `yaml:"llm"`
	TTS   ProviderEntry `yaml:"tts"`
	Image ProviderEntry `yaml:"image"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "gemini", "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	// ${VAR} references are expanded from the environment at load time.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Timeout bounds a single request. Zero uses the provider default.
	Timeout time.Duration `yaml:"timeout"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`

	// Fallbacks are tried in order when this provider fails or its circuit
	// breaker is open.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// NarrationConfig controls how long texts are turned into one WAV file.
type NarrationConfig struct {
	// MaxSegmentChars is the segment budget in characters. Zero means 1500.
	MaxSegmentChars int `yaml:"max_segment_chars"`

	// Pause is the minimum interval between two synthesis calls. Nil means
	// [DefaultPause]; an explicit 0s disables pacing.
	Pause *time.Duration `yaml:"pause"`

	// Concurrency caps in-flight synthesis calls. Zero means sequential.
	Concurrency int `yaml:"concurrency"`

	// Voice is the default voice name or label ("Zephyr", "Puck (Male)").
	Voice string `yaml:"voice"`

	// Cache configures the in-memory synthesis cache.
	Cache CacheConfig `yaml:"cache"`

	// Normalize, when set, converts every synthesized chunk to this format
	// before stitching.
	Normalize *AudioFormat `yaml:"normalize"`
}

// PauseInterval returns the effective pause between synthesis calls.
func (n NarrationConfig) PauseInterval() time.Duration {
	if n.Pause == nil {
		return DefaultPause
	}
	return *n.Pause
}

// CacheConfig configures the synthesis cache.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
}

// AudioFormat is a PCM target format.
type AudioFormat struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

// StoryboardConfig controls scene generation.
type StoryboardConfig struct {
	// Language is the default narration language.
	Language string `yaml:"language"`

	// Temperature is passed to the LLM. Nil uses the builder default.
	Temperature *float64 `yaml:"temperature"`

	// AspectRatio is used for scene illustrations.
	AspectRatio string `yaml:"aspect_ratio"`
}

// ApplyDefaults fills zero values with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Narration.Concurrency == 0 {
		cfg.Narration.Concurrency = DefaultConcurrency
	}
	if cfg.Narration.Cache.Enabled && cfg.Narration.Cache.MaxEntries == 0 {
		cfg.Narration.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Storyboard.Language == "" {
		cfg.Storyboard.Language = DefaultLanguage
	}
	if cfg.Storyboard.AspectRatio == "" {
		cfg.Storyboard.AspectRatio = DefaultAspectRatio
	}
}
