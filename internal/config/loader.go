package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"slices"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":   {"gemini", "openai", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts":   {"gemini", "openai", "elevenlabs", "coqui"},
	"image": {"imagen", "openai"},
}

var aspectRatioPattern = regexp.MustCompile(`^[1-9][0-9]*:[1-9][0-9]*$`)

// LoadEnvFiles loads KEY=VALUE pairs from the given dotenv files into the
// process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load env file %q: %w", p, err)
		}
		slog.Debug("loaded environment file", "path", p)
	}
	return nil
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references
// from the environment, applies defaults and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	errs = append(errs, validateProvider("llm", "providers.llm", cfg.Providers.LLM)...)
	errs = append(errs, validateProvider("tts", "providers.tts", cfg.Providers.TTS)...)
	errs = append(errs, validateProvider("image", "providers.image", cfg.Providers.Image)...)

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; storyboards cannot be generated")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; narration is unavailable")
	}

	n := cfg.Narration
	if n.MaxSegmentChars < 0 {
		errs = append(errs, fmt.Errorf("narration.max_segment_chars %d must not be negative", n.MaxSegmentChars))
	}
	if n.Pause != nil && *n.Pause < 0 {
		errs = append(errs, fmt.Errorf("narration.pause %s must not be negative", *n.Pause))
	}
	if n.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("narration.concurrency %d must not be negative", n.Concurrency))
	}
	if n.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("narration.cache.max_entries %d must not be negative", n.Cache.MaxEntries))
	}
	if f := n.Normalize; f != nil {
		if f.SampleRate <= 0 {
			errs = append(errs, fmt.Errorf("narration.normalize.sample_rate %d must be positive", f.SampleRate))
		}
		if f.Channels != 1 && f.Channels != 2 {
			errs = append(errs, fmt.Errorf("narration.normalize.channels %d is invalid; valid values: 1, 2", f.Channels))
		}
	}

	sb := cfg.Storyboard
	if sb.Temperature != nil && (*sb.Temperature < 0 || *sb.Temperature > 2) {
		errs = append(errs, fmt.Errorf("storyboard.temperature %.2f is out of range [0, 2]", *sb.Temperature))
	}
	if sb.AspectRatio != "" && !aspectRatioPattern.MatchString(sb.AspectRatio) {
		errs = append(errs, fmt.Errorf("storyboard.aspect_ratio %q must look like W:H", sb.AspectRatio))
	}
	if sb.Language != "" && !slices.Contains(SupportedLanguages, sb.Language) {
		slog.Warn("storyboard language is not one of the offered languages", "language", sb.Language, "known", SupportedLanguages)
	}

	return errors.Join(errs...)
}

// validateProvider checks one entry and its fallbacks.
func validateProvider(kind, prefix string, e ProviderEntry) []error {
	var errs []error
	validateProviderName(kind, e.Name)
	if e.Name == "" && len(e.Fallbacks) > 0 {
		errs = append(errs, fmt.Errorf("%s.fallbacks set without a primary name", prefix))
	}
	if e.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%s.timeout %s must not be negative", prefix, e.Timeout))
	}
	for i, fb := range e.Fallbacks {
		p := fmt.Sprintf("%s.fallbacks[%d]", prefix, i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", p))
		}
		if len(fb.Fallbacks) > 0 {
			errs = append(errs, fmt.Errorf("%s.fallbacks must not be nested", p))
		}
		errs = append(errs, validateProvider(kind, p, ProviderEntry{Name: fb.Name, Timeout: fb.Timeout})...)
	}
	return errs
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
