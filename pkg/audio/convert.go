// Package audio converts 16-bit PCM payloads between sample rates and channel
// layouts. It is used to bring narration chunks from different speech
// providers into one output format before they are stitched.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/storyboard/pkg/audio/wav"
)

// ErrUnsupportedWidth is returned when a container is not 16-bit PCM.
var ErrUnsupportedWidth = errors.New("audio: only 16-bit PCM can be converted")

// Converter converts containers to a fixed target format. It logs a warning
// the first time it has to convert. Safe for concurrent use.
type Converter struct {
	Target wav.Format

	warnOnce sync.Once
}

// NewConverter returns a Converter for the target sample rate and channel
// count. Output is always 16-bit.
func NewConverter(sampleRate, channels int) *Converter {
	return &Converter{Target: wav.Format{Channels: channels, SampleRate: sampleRate, BitsPerSample: 16}}
}

// Convert returns c in the target format. A container already in the target
// format is returned unchanged. Resampling happens before channel conversion
// so that a stereo source going to mono is only resampled once per frame.
func (cv *Converter) Convert(c *wav.Container) (*wav.Container, error) {
	if c == nil {
		return nil, nil
	}
	if c.Format == cv.Target {
		return c, nil
	}
	if c.Format.BitsPerSample != 16 || cv.Target.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedWidth, c.Format, cv.Target)
	}
	if cv.Target.Channels < 1 || cv.Target.Channels > 2 || c.Format.Channels > 2 {
		return nil, fmt.Errorf("audio: cannot convert %s -> %s", c.Format, cv.Target)
	}

	cv.warnOnce.Do(func() {
		slog.Warn("audio format mismatch: converting",
			"from", c.Format.String(),
			"to", cv.Target.String(),
		)
	})

	pcm := c.Frames
	if c.Format.SampleRate != cv.Target.SampleRate {
		if c.Format.Channels == 1 {
			pcm = ResampleMono16(pcm, c.Format.SampleRate, cv.Target.SampleRate)
		} else {
			pcm = ResampleStereo16(pcm, c.Format.SampleRate, cv.Target.SampleRate)
		}
	}
	switch {
	case c.Format.Channels == 1 && cv.Target.Channels == 2:
		pcm = MonoToStereo(pcm)
	case c.Format.Channels == 2 && cv.Target.Channels == 1:
		pcm = StereoToMono(pcm)
	}

	return &wav.Container{Format: cv.Target, Frames: pcm}, nil
}

// ConvertAll converts every successful result in place. Results whose
// conversion fails are turned into failures.
func (cv *Converter) ConvertAll(results []wav.ChunkResult) {
	for i := range results {
		if results[i].Err != nil || results[i].Container == nil {
			continue
		}
		c, err := cv.Convert(results[i].Container)
		results[i].Container = c
		results[i].Err = err
	}
}

// MonoToStereo duplicates each int16 mono sample into a stereo L+R pair.
// Input must be little-endian int16 PCM (2 bytes per sample). A trailing odd
// byte is ignored.
func MonoToStereo(pcm []byte) []byte {
	out := make([]byte, (len(pcm)/2)*4)
	for i := 0; i+1 < len(pcm); i += 2 {
		lo, hi := pcm[i], pcm[i+1]
		j := i * 2
		out[j], out[j+1] = lo, hi
		out[j+2], out[j+3] = lo, hi
	}
	return out
}

// StereoToMono averages L+R per stereo frame (4 bytes) to produce mono output.
func StereoToMono(pcm []byte) []byte {
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		l := int32(sample(pcm, i*2))
		r := int32(sample(pcm, i*2+1))
		putSample(out, i, clamp16((l+r)/2))
	}
	return out
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using linear
// interpolation. Invalid or equal rates return the input unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	return resample16(pcm, 1, srcRate, dstRate)
}

// ResampleStereo16 is ResampleMono16 for interleaved stereo frames.
func ResampleStereo16(pcm []byte, srcRate, dstRate int) []byte {
	return resample16(pcm, 2, srcRate, dstRate)
}

func resample16(pcm []byte, channels, srcRate, dstRate int) []byte {
	frameSize := 2 * channels
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < frameSize {
		return pcm
	}
	srcFrames := len(pcm) / frameSize
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(srcRate))
	if dstFrames == 0 {
		return nil
	}

	out := make([]byte, dstFrames*frameSize)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstFrames {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		next := idx + 1
		if next >= srcFrames {
			next = idx
		}
		for ch := range channels {
			s0 := float64(sample(pcm, idx*channels+ch))
			s1 := float64(sample(pcm, next*channels+ch))
			putSample(out, i*channels+ch, int32(s0*(1-frac)+s1*frac))
		}
	}
	return out
}

// sample reads the n-th little-endian int16 sample.
func sample(pcm []byte, n int) int16 {
	return int16(pcm[n*2]) | int16(pcm[n*2+1])<<8
}

func putSample(pcm []byte, n int, v int32) {
	pcm[n*2] = byte(v)
	pcm[n*2+1] = byte(v >> 8)
}

func clamp16(v int32) int32 {
	return max(-32768, min(32767, v))
}
