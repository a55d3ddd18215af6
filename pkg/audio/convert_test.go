package audio_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/MrWong99/storyboard/pkg/audio"
	"github.com/MrWong99/storyboard/pkg/audio/wav"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func equalSamples(t *testing.T, got, want []int16) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMonoToStereo(t *testing.T) {
	t.Parallel()
	stereo := audio.MonoToStereo(samplesToBytes([]int16{100, 200, 300}))
	equalSamples(t, bytesToSamples(stereo), []int16{100, 100, 200, 200, 300, 300})
}

func TestMonoToStereo_OddLengthInput(t *testing.T) {
	t.Parallel()
	stereo := audio.MonoToStereo([]byte{0x64, 0x00, 0xC8, 0x00, 0xFF})
	if len(stereo) != 8 {
		t.Fatalf("expected 8 bytes for 2 complete mono samples, got %d", len(stereo))
	}
	equalSamples(t, bytesToSamples(stereo), []int16{100, 100, 200, 200})
}

func TestStereoToMono(t *testing.T) {
	t.Parallel()
	mono := audio.StereoToMono(samplesToBytes([]int16{100, 200, -100, -200}))
	equalSamples(t, bytesToSamples(mono), []int16{150, -150})
}

func TestStereoToMono_Clamping(t *testing.T) {
	t.Parallel()
	mono := audio.StereoToMono(samplesToBytes([]int16{32767, 32767}))
	equalSamples(t, bytesToSamples(mono), []int16{32767})
}

func TestResampleMono16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       []int16
		src, dst int
		wantLen  int
	}{
		{"same rate", []int16{100, 200, 300}, 48000, 48000, 3},
		{"upsample 3x", []int16{1000, 2000}, 16000, 48000, 6},
		{"downsample 3x", []int16{100, 200, 300, 400, 500, 600}, 48000, 16000, 2},
		{"zero src", []int16{100, 200}, 0, 48000, 2},
		{"zero dst", []int16{100, 200}, 48000, 0, 2},
		{"negative src", []int16{100, 200}, -1, 48000, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := bytesToSamples(audio.ResampleMono16(samplesToBytes(tt.in), tt.src, tt.dst))
			if len(got) != tt.wantLen {
				t.Fatalf("got %d samples, want %d", len(got), tt.wantLen)
			}
			if got[0] != tt.in[0] {
				t.Errorf("first sample: got %d, want %d", got[0], tt.in[0])
			}
		})
	}
}

func TestResampleMono16_UpsampleInterpolates(t *testing.T) {
	t.Parallel()
	got := bytesToSamples(audio.ResampleMono16(samplesToBytes([]int16{1000, 2000}), 16000, 48000))
	last := got[len(got)-1]
	if last < 1800 || last > 2200 {
		t.Errorf("last sample: got %d, want close to 2000", last)
	}
}

func TestResampleStereo16(t *testing.T) {
	t.Parallel()
	got := bytesToSamples(audio.ResampleStereo16(samplesToBytes([]int16{100, 200, 300, 400}), 16000, 48000))
	if len(got) != 12 {
		t.Fatalf("expected 12 samples, got %d", len(got))
	}
	// Channels must not bleed into each other.
	if got[0] != 100 || got[1] != 200 {
		t.Errorf("first frame = %d,%d; want 100,200", got[0], got[1])
	}
}

func TestConverter_NoOp(t *testing.T) {
	t.Parallel()

	cv := audio.NewConverter(24000, 1)
	in := &wav.Container{Format: wav.Mono16(24000), Frames: samplesToBytes([]int16{1, 2})}
	out, err := cv.Convert(in)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out != in {
		t.Error("expected the same container for matching format")
	}
}

func TestConverter_FullConversion(t *testing.T) {
	t.Parallel()

	cv := audio.NewConverter(48000, 2)
	in := &wav.Container{Format: wav.Mono16(16000), Frames: samplesToBytes([]int16{1000, 2000})}
	out, err := cv.Convert(in)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out.Format != cv.Target {
		t.Errorf("format = %v, want %v", out.Format, cv.Target)
	}
	if out.FrameCount() != 6 {
		t.Errorf("FrameCount = %d, want 6", out.FrameCount())
	}
}

func TestConverter_RejectsNon16Bit(t *testing.T) {
	t.Parallel()

	cv := audio.NewConverter(16000, 1)
	in := &wav.Container{Format: wav.Format{Channels: 1, SampleRate: 8000, BitsPerSample: 8}, Frames: []byte{1, 2}}
	if _, err := cv.Convert(in); !errors.Is(err, audio.ErrUnsupportedWidth) {
		t.Fatalf("err = %v, want ErrUnsupportedWidth", err)
	}
}

func TestConverter_ConvertAll(t *testing.T) {
	t.Parallel()

	cv := audio.NewConverter(16000, 1)
	results := []wav.ChunkResult{
		{Index: 0, Container: &wav.Container{Format: wav.Mono16(32000), Frames: samplesToBytes([]int16{1, 2, 3, 4})}},
		{Index: 1, Err: wav.ErrNotRIFF},
		{Index: 2, Container: &wav.Container{Format: wav.Format{Channels: 1, SampleRate: 8000, BitsPerSample: 8}, Frames: []byte{1}}},
	}
	cv.ConvertAll(results)

	if results[0].Err != nil || results[0].Container.FrameCount() != 2 {
		t.Errorf("result 0 = %+v", results[0])
	}
	if !errors.Is(results[1].Err, wav.ErrNotRIFF) {
		t.Errorf("result 1 err = %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, audio.ErrUnsupportedWidth) {
		t.Errorf("result 2 err = %v", results[2].Err)
	}

	c, rep := wav.Fold(results)
	if c == nil || rep.Used != 1 || len(rep.Mismatched) != 0 {
		t.Errorf("fold after conversion: %+v", rep)
	}
}
