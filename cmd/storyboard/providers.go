package main

import (
	"context"
	"log/slog"
	"slices"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"google.golang.org/genai"

	"github.com/MrWong99/storyboard/internal/config"
	"github.com/MrWong99/storyboard/pkg/provider/googleai"
	"github.com/MrWong99/storyboard/pkg/provider/image"
	"github.com/MrWong99/storyboard/pkg/provider/image/imagen"
	imgopenai "github.com/MrWong99/storyboard/pkg/provider/image/openai"
	"github.com/MrWong99/storyboard/pkg/provider/llm"
	"github.com/MrWong99/storyboard/pkg/provider/llm/anyllm"
	llmopenai "github.com/MrWong99/storyboard/pkg/provider/llm/openai"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
	"github.com/MrWong99/storyboard/pkg/provider/tts/coqui"
	"github.com/MrWong99/storyboard/pkg/provider/tts/elevenlabs"
	ttsgemini "github.com/MrWong99/storyboard/pkg/provider/tts/gemini"
	ttsopenai "github.com/MrWong99/storyboard/pkg/provider/tts/openai"
)

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// Everything except openai goes through any-llm; openai uses the official
	// SDK for native JSON mode.
	for _, name := range anyllm.Backends {
		if name == "openai" {
			continue
		}
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(name, entry.Model, opts...)
		})
	}

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		if entry.Timeout > 0 {
			opts = append(opts, llmopenai.WithTimeout(entry.Timeout))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, llmopenai.WithOrganization(org))
		}
		model := entry.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return llmopenai.New(entry.APIKey, model, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("gemini", func(entry config.ProviderEntry) (tts.Provider, error) {
		client, err := googleClient(entry)
		if err != nil {
			return nil, err
		}
		var opts []ttsgemini.Option
		if entry.Model != "" {
			opts = append(opts, ttsgemini.WithModel(entry.Model))
		}
		return ttsgemini.New(client, opts...)
	})

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []ttsopenai.Option
		if entry.Model != "" {
			opts = append(opts, ttsopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, ttsopenai.WithBaseURL(entry.BaseURL))
		}
		if entry.Timeout > 0 {
			opts = append(opts, ttsopenai.WithTimeout(entry.Timeout))
		}
		return ttsopenai.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if mode := optString(entry.Options, "api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		if rate := optInt(entry.Options, "sample_rate"); rate > 0 {
			opts = append(opts, coqui.WithOutputSampleRate(rate))
		}
		if entry.Timeout > 0 {
			opts = append(opts, coqui.WithTimeout(entry.Timeout))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	// ── Image ─────────────────────────────────────────────────────────────────

	reg.RegisterImage("imagen", func(entry config.ProviderEntry) (image.Provider, error) {
		client, err := googleClient(entry)
		if err != nil {
			return nil, err
		}
		var models []string
		if entry.Model != "" {
			models = append(models, entry.Model)
		}
		for _, m := range optStrings(entry.Options, "models") {
			if !slices.Contains(models, m) {
				models = append(models, m)
			}
		}
		return imagen.New(client, imagen.WithModels(models...))
	})

	reg.RegisterImage("openai", func(entry config.ProviderEntry) (image.Provider, error) {
		var opts []imgopenai.Option
		if entry.Model != "" {
			opts = append(opts, imgopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, imgopenai.WithBaseURL(entry.BaseURL))
		}
		if entry.Timeout > 0 {
			opts = append(opts, imgopenai.WithTimeout(entry.Timeout))
		}
		return imgopenai.New(entry.APIKey, opts...)
	})

	for _, kind := range []string{"llm", "tts", "image"} {
		slog.Debug("registered providers", "kind", kind, "names", reg.Names(kind))
	}
}

// googleClient builds the genai client shared by the gemini and imagen
// factories.
func googleClient(entry config.ProviderEntry) (*genai.Client, error) {
	var opts []googleai.Option
	if entry.BaseURL != "" {
		opts = append(opts, googleai.WithBaseURL(entry.BaseURL))
	}
	if entry.Timeout > 0 {
		opts = append(opts, googleai.WithTimeout(entry.Timeout))
	}
	return googleai.New(context.Background(), entry.APIKey, opts...)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}

// optInt extracts an integer option. YAML numbers decode as int.
func optInt(opts map[string]any, key string) int {
	switch v := opts[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// optStrings extracts a list of strings, ignoring non-string items.
func optStrings(opts map[string]any, key string) []string {
	items, _ := opts[key].([]any)
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
