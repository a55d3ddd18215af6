// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A provider turns one piece of text into one self-contained WAV container.
// Backends that natively return raw PCM or a stream wrap their output with
// [AsWAV] so that every provider hands the narrator the same shape.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/storyboard/pkg/audio/wav"
)

// ErrEmptyText is returned when Synthesize is called with blank text.
var ErrEmptyText = errors.New("tts: text must not be empty")

// ErrNoAudio is returned when a backend answered without an audio payload.
var ErrNoAudio = errors.New("tts: response contained no audio")

// VoiceProfile describes a voice offered by a provider.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string `json:"id"`

	// Name is the human-readable voice name.
	Name string `json:"name"`

	// Provider identifies which TTS provider this voice belongs to.
	Provider string `json:"provider,omitempty"`

	// Gender is "Male", "Female" or empty when unknown.
	Gender string `json:"gender,omitempty"`

	// Metadata holds provider-specific attributes (accent, category, ...).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Label renders the voice as shown in pickers, e.g. "Puck (Male)".
func (v VoiceProfile) Label() string {
	name := v.Name
	if name == "" {
		name = v.ID
	}
	if v.Gender == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, v.Gender)
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text with voice and returns a complete WAV container.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)

	// ListVoices returns the voices available from this provider.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}

var riffMagic = []byte("RIFF")

// AsWAV returns payload unchanged when it already is a RIFF container and
// otherwise wraps it as raw PCM in format f.
func AsWAV(payload []byte, f wav.Format) []byte {
	if bytes.HasPrefix(payload, riffMagic) {
		return payload
	}
	ba := f.BlockAlign()
	if ba > 0 {
		payload = payload[:len(payload)-len(payload)%ba]
	}
	return wav.Encode(f, payload)
}
