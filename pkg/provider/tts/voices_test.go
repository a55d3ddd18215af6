package tts

import (
	"bytes"
	"testing"

	"github.com/MrWong99/storyboard/pkg/audio/wav"
)

func TestParseVoiceLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Puck (Male)", "Puck"},
		{"Zephyr (Female)", "Zephyr"},
		{"Kore", "Kore"},
		{"  Aoede  ", "Aoede"},
		{"", ""},
		{"Name (with) (parens)", "Name"},
	}
	for _, tt := range tests {
		if got := ParseVoiceLabel(tt.in); got != tt.want {
			t.Errorf("ParseVoiceLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGeminiVoices_Labels(t *testing.T) {
	t.Parallel()

	want := []string{"Puck (Male)", "Charon (Male)", "Kore (Female)", "Fenrir (Male)", "Aoede (Female)", "Zephyr (Female)"}
	if len(GeminiVoices) != len(want) {
		t.Fatalf("catalogue has %d voices, want %d", len(GeminiVoices), len(want))
	}
	for i, v := range GeminiVoices {
		if v.Label() != want[i] {
			t.Errorf("voice %d label = %q, want %q", i, v.Label(), want[i])
		}
		if ParseVoiceLabel(v.Label()) != v.ID {
			t.Errorf("label of %s does not round-trip", v.ID)
		}
	}
	if GeminiVoices[5].ID != DefaultVoiceName {
		t.Errorf("default voice should be the sixth entry")
	}
}

func TestFindVoice(t *testing.T) {
	t.Parallel()

	if v, ok := FindVoice(GeminiVoices, "charon (Male)"); !ok || v.ID != "Charon" {
		t.Errorf("FindVoice by label = %+v, %v", v, ok)
	}
	if v, ok := FindVoice(GeminiVoices, "KORE"); !ok || v.Gender != "Female" {
		t.Errorf("FindVoice by name = %+v, %v", v, ok)
	}
	if _, ok := FindVoice(GeminiVoices, "Nobody"); ok {
		t.Error("expected miss for unknown voice")
	}
	if _, ok := FindVoice(GeminiVoices, ""); ok {
		t.Error("expected miss for empty name")
	}
}

func TestResolveVoice(t *testing.T) {
	t.Parallel()

	if v := ResolveVoice(GeminiVoices, "", DefaultVoiceName); v.ID != "Zephyr" {
		t.Errorf("empty resolves to %q, want Zephyr", v.ID)
	}
	if v := ResolveVoice(GeminiVoices, "Puck (Male)", DefaultVoiceName); v.Gender != "Male" {
		t.Errorf("label resolves to %+v", v)
	}
	if v := ResolveVoice(GeminiVoices, "21m00Tcm4TlvDq8ikWAM", DefaultVoiceName); v.ID != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("unknown id should pass through, got %+v", v)
	}
}

func TestLabel_NoGender(t *testing.T) {
	t.Parallel()
	if got := (VoiceProfile{ID: "v1"}).Label(); got != "v1" {
		t.Errorf("Label = %q, want v1", got)
	}
}

func TestAsWAV(t *testing.T) {
	t.Parallel()

	f := wav.Mono16(24000)
	pcm := []byte{1, 0, 2, 0, 3}
	out := AsWAV(pcm, f)
	c, err := wav.Parse(out)
	if err != nil {
		t.Fatalf("wrapped PCM does not parse: %v", err)
	}
	if c.Format != f || c.FrameCount() != 2 {
		t.Errorf("got %v with %d frames", c.Format, c.FrameCount())
	}

	already := wav.Encode(wav.Mono16(16000), []byte{9, 9})
	if got := AsWAV(already, f); !bytes.Equal(got, already) {
		t.Error("existing RIFF container should pass through untouched")
	}
}
