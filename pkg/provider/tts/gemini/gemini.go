// Package gemini provides a TTS provider backed by Gemini generateContent
// with the AUDIO response modality, called through google.golang.org/genai.
// The model answers with raw 16-bit PCM which is wrapped into a WAV container.
package gemini

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/MrWong99/storyboard/pkg/audio/wav"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

const (
	// DefaultModel is the speech-capable model used when none is configured.
	DefaultModel = "gemini-2.0-flash-exp"

	// defaultSampleRate applies when the response MIME type carries no rate.
	defaultSampleRate = 24000
)

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// Provider implements tts.Provider using Gemini speech generation.
type Provider struct {
	client *genai.Client
	model  string
}

// New creates a Provider on top of a Gemini API client.
func New(client *genai.Client, opts ...Option) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini: client must not be nil")
	}
	p := &Provider{client: client, model: DefaultModel}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}
	voiceName := voice.ID
	if voiceName == "" {
		voiceName = tts.DefaultVoiceName
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceName},
			},
		},
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: synthesize: %w", err)
	}
	blob := firstAudio(resp)
	if blob == nil {
		return nil, fmt.Errorf("gemini: synthesize: %w", tts.ErrNoAudio)
	}
	return tts.AsWAV(blob.Data, wav.Mono16(sampleRateFromMIME(blob.MIMEType))), nil
}

// firstAudio returns the first non-empty inline payload of the first
// candidate.
func firstAudio(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}

// ListVoices implements tts.Provider. The prebuilt catalogue is static.
func (p *Provider) ListVoices(_ context.Context) ([]tts.VoiceProfile, error) {
	out := make([]tts.VoiceProfile, len(tts.GeminiVoices))
	copy(out, tts.GeminiVoices)
	return out, nil
}

// sampleRateFromMIME extracts the rate parameter from a MIME type such as
// "audio/L16;codec=pcm;rate=24000".
func sampleRateFromMIME(mime string) int {
	for _, param := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(k, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
			return rate
		}
	}
	return defaultSampleRate
}

var _ tts.Provider = (*Provider)(nil)
