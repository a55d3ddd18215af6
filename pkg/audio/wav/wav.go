// Package wav reads, writes, and stitches uncompressed RIFF/WAVE containers.
//
// Only integer PCM payloads are supported: format tag 1 (WAVE_FORMAT_PCM) and
// WAVE_FORMAT_EXTENSIBLE with a PCM sub-format. Compressed or floating point
// containers are rejected by [Parse].
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	// FormatPCM is the WAVE_FORMAT_PCM format tag.
	FormatPCM uint16 = 0x0001

	// formatExtensible is the WAVE_FORMAT_EXTENSIBLE format tag. The actual
	// encoding is carried in the first two bytes of the sub-format GUID.
	formatExtensible uint16 = 0xFFFE

	// HeaderSize is the size of the canonical header written by [Encode].
	HeaderSize = 44

	// unknownDataSize is written by some streaming encoders that do not know
	// the payload length up front. The payload then extends to the end of the
	// buffer.
	unknownDataSize = 0xFFFFFFFF
)

var (
	// ErrTooShort is returned when a buffer cannot hold a RIFF header.
	ErrTooShort = errors.New("wav: buffer too short")

	// ErrNotRIFF is returned when the RIFF or WAVE magic is missing.
	ErrNotRIFF = errors.New("wav: not a RIFF/WAVE container")

	// ErrMissingFmt is returned when no usable fmt chunk precedes the data chunk.
	ErrMissingFmt = errors.New("wav: missing fmt chunk")

	// ErrMissingData is returned when the container has no data chunk.
	ErrMissingData = errors.New("wav: missing data chunk")

	// ErrUnsupported is returned for non-PCM encodings.
	ErrUnsupported = errors.New("wav: unsupported encoding")

	// ErrInvalidFormat is returned when the fmt chunk carries zero or
	// inconsistent parameters.
	ErrInvalidFormat = errors.New("wav: invalid format parameters")

	// ErrTruncated is returned when a chunk claims more bytes than the buffer holds.
	ErrTruncated = errors.New("wav: truncated chunk")
)

// Format holds the parameters from a fmt chunk.
type Format struct {
	// Channels is the number of interleaved channels (1 = mono).
	Channels int

	// SampleRate is the number of frames per second.
	SampleRate int

	// BitsPerSample is the sample width in bits (8, 16, 24 or 32).
	BitsPerSample int
}

// Mono16 returns the 16-bit mono format at the given sample rate. This is what
// the supported speech services emit.
func Mono16(sampleRate int) Format {
	return Format{Channels: 1, SampleRate: sampleRate, BitsPerSample: 16}
}

// SampleWidth returns the number of bytes per sample.
func (f Format) SampleWidth() int {
	return (f.BitsPerSample + 7) / 8
}

// BlockAlign returns the number of bytes per frame (all channels).
func (f Format) BlockAlign() int {
	return f.SampleWidth() * f.Channels
}

// ByteRate returns the number of payload bytes per second.
func (f Format) ByteRate() int {
	return f.BlockAlign() * f.SampleRate
}

// Valid reports whether f describes a writable PCM stream.
func (f Format) Valid() bool {
	return f.Channels > 0 && f.SampleRate > 0 && f.BitsPerSample > 0 && f.BitsPerSample <= 32
}

// String returns a short human-readable description such as "24000Hz mono s16".
func (f Format) String() string {
	ch := "mono"
	switch {
	case f.Channels == 2:
		ch = "stereo"
	case f.Channels > 2:
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s s%d", f.SampleRate, ch, f.BitsPerSample)
}

// Container is a decoded WAV file: its format and the raw sample frames.
type Container struct {
	Format Format

	// Frames is the interleaved sample payload. Its length is always a
	// multiple of Format.BlockAlign() for parsed containers.
	Frames []byte
}

// FrameCount returns the number of complete frames in the payload.
func (c *Container) FrameCount() int {
	ba := c.Format.BlockAlign()
	if ba == 0 {
		return 0
	}
	return len(c.Frames) / ba
}

// Duration returns the playback length of the payload.
func (c *Container) Duration() time.Duration {
	if c.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.FrameCount()) * time.Second / time.Duration(c.Format.SampleRate)
}

// Bytes encodes c as a canonical WAV file.
func (c *Container) Bytes() []byte {
	return Encode(c.Format, c.Frames)
}

// Encode writes frames behind a canonical 44-byte PCM header. An odd-length
// payload is followed by a RIFF pad byte which is not counted in the data
// chunk size.
func Encode(f Format, frames []byte) []byte {
	dataSize := len(frames)
	pad := dataSize % 2

	buf := make([]byte, HeaderSize, HeaderSize+dataSize+pad)
	le := binary.LittleEndian

	copy(buf[0:4], "RIFF")
	le.PutUint32(buf[4:8], uint32(HeaderSize-8+dataSize+pad))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	le.PutUint32(buf[16:20], 16)
	le.PutUint16(buf[20:22], FormatPCM)
	le.PutUint16(buf[22:24], uint16(f.Channels))
	le.PutUint32(buf[24:28], uint32(f.SampleRate))
	le.PutUint32(buf[28:32], uint32(f.ByteRate()))
	le.PutUint16(buf[32:34], uint16(f.BlockAlign()))
	le.PutUint16(buf[34:36], uint16(f.BitsPerSample))

	copy(buf[36:40], "data")
	le.PutUint32(buf[40:44], uint32(dataSize))

	buf = append(buf, frames...)
	if pad == 1 {
		buf = append(buf, 0)
	}
	return buf
}

// Parse decodes a RIFF/WAVE container. It walks the chunk list so that
// optional chunks (LIST, fact, ...) and non-16-byte fmt chunks are handled.
// A trailing partial frame in the data chunk is dropped.
func Parse(buf []byte) (*Container, error) {
	if len(buf) < 12 {
		return nil, ErrTooShort
	}
	if string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
		return nil, ErrNotRIFF
	}

	var (
		format   Format
		foundFmt bool
		le       = binary.LittleEndian
	)

	offset := 12
	for offset+8 <= len(buf) {
		chunkID := string(buf[offset : offset+4])
		chunkSize := le.Uint32(buf[offset+4 : offset+8])
		body := offset + 8

		switch chunkID {
		case "fmt ":
			f, err := parseFmt(buf, body, int(chunkSize))
			if err != nil {
				return nil, err
			}
			format = f
			foundFmt = true

		case "data":
			if !foundFmt {
				return nil, ErrMissingFmt
			}
			end := body + int(chunkSize)
			if chunkSize == unknownDataSize {
				end = len(buf)
			} else if end > len(buf) || end < body {
				return nil, fmt.Errorf("%w: data chunk declares %d bytes, %d available",
					ErrTruncated, chunkSize, len(buf)-body)
			}
			data := buf[body:end]
			ba := format.BlockAlign()
			data = data[:len(data)-len(data)%ba]

			frames := make([]byte, len(data))
			copy(frames, data)
			return &Container{Format: format, Frames: frames}, nil
		}

		next := body + int(chunkSize)
		if chunkSize%2 != 0 {
			next++
		}
		if next <= offset || next > len(buf) {
			break
		}
		offset = next
	}
	if !foundFmt {
		return nil, ErrMissingFmt
	}
	return nil, ErrMissingData
}

// parseFmt decodes the fmt chunk body starting at buf[off:].
func parseFmt(buf []byte, off, size int) (Format, error) {
	if size < 16 {
		return Format{}, fmt.Errorf("%w: fmt chunk is %d bytes", ErrInvalidFormat, size)
	}
	if off+16 > len(buf) {
		return Format{}, fmt.Errorf("%w: fmt chunk", ErrTruncated)
	}
	le := binary.LittleEndian
	b := buf[off:]

	tag := le.Uint16(b[0:2])
	if tag == formatExtensible {
		// cbSize(2) validBits(2) channelMask(4) subFormat(16)
		if size < 40 || off+26 > len(buf) {
			return Format{}, fmt.Errorf("%w: short WAVE_FORMAT_EXTENSIBLE fmt chunk", ErrInvalidFormat)
		}
		tag = le.Uint16(b[24:26])
	}
	if tag != FormatPCM {
		return Format{}, fmt.Errorf("%w: format tag 0x%04x", ErrUnsupported, tag)
	}

	f := Format{
		Channels:      int(le.Uint16(b[2:4])),
		SampleRate:    int(le.Uint32(b[4:8])),
		BitsPerSample: int(le.Uint16(b[14:16])),
	}
	if !f.Valid() {
		return Format{}, fmt.Errorf("%w: %d channel(s), %d Hz, %d bits",
			ErrInvalidFormat, f.Channels, f.SampleRate, f.BitsPerSample)
	}
	return f, nil
}
