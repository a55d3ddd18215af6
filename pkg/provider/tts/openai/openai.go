// Package openai provides a TTS provider backed by the OpenAI audio speech
// endpoint. Responses are requested as WAV.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/storyboard/pkg/audio/wav"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

const (
	defaultModel = "gpt-4o-mini-tts"
	defaultVoice = "alloy"

	// speechSampleRate is the rate of raw PCM returned by the speech endpoint.
	speechSampleRate = 24000
)

// Voices is the built-in OpenAI voice catalogue.
var Voices = []tts.VoiceProfile{
	{ID: "alloy", Name: "Alloy", Provider: "openai"},
	{ID: "ash", Name: "Ash", Provider: "openai"},
	{ID: "coral", Name: "Coral", Provider: "openai"},
	{ID: "echo", Name: "Echo", Provider: "openai"},
	{ID: "fable", Name: "Fable", Provider: "openai"},
	{ID: "nova", Name: "Nova", Provider: "openai"},
	{ID: "onyx", Name: "Onyx", Provider: "openai"},
	{ID: "sage", Name: "Sage", Provider: "openai"},
	{ID: "shimmer", Name: "Shimmer", Provider: "openai"},
}

type config struct {
	model   string
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithModel sets the speech model (e.g. "tts-1", "gpt-4o-mini-tts").
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements tts.Provider using the OpenAI speech API.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai tts: apiKey must not be empty")
	}
	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}
	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}
	voiceID := strings.ToLower(voice.ID)
	if _, ok := tts.FindVoice(Voices, voiceID); !ok {
		voiceID = defaultVoice
	}

	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(voiceID),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormat("wav"),
	})
	if err != nil {
		return nil, fmt.Errorf("openai tts: speech: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai tts: read response: %w", err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("openai tts: %w", tts.ErrNoAudio)
	}
	return tts.AsWAV(payload, wav.Mono16(speechSampleRate)), nil
}

// ListVoices implements tts.Provider.
func (p *Provider) ListVoices(_ context.Context) ([]tts.VoiceProfile, error) {
	out := make([]tts.VoiceProfile, len(Voices))
	copy(out, Voices)
	return out, nil
}

var _ tts.Provider = (*Provider)(nil)
