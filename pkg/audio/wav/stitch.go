package wav

import "fmt"

// ChunkResult is the outcome of parsing one input buffer.
type ChunkResult struct {
	// Index is the position of the buffer in the input slice.
	Index int

	// Container is the parsed buffer. Nil when Err is set.
	Container *Container

	// Err is the parse failure, if any.
	Err error
}

// Skip records one input buffer that did not contribute to the output.
type Skip struct {
	Index int
	Err   error
}

// Report summarises a [Fold].
type Report struct {
	// Total is the number of inputs considered.
	Total int

	// Used is the number of inputs whose frames were appended.
	Used int

	// Skipped lists the inputs that failed to parse, in input order.
	Skipped []Skip

	// Mismatched lists the used inputs whose own format differed from the
	// output format. Their frames were appended unchanged.
	Mismatched []int

	// Format is the output format. Zero when nothing was used.
	Format Format

	// Frames is the number of frames in the output.
	Frames int
}

// String renders a one-line summary suitable for logging.
func (r Report) String() string {
	return fmt.Sprintf("used %d/%d chunks, %d skipped, %d mismatched, %d frames",
		r.Used, r.Total, len(r.Skipped), len(r.Mismatched), r.Frames)
}

// ParseAll parses every buffer independently. The result has one entry per
// input, in input order.
func ParseAll(bufs [][]byte) []ChunkResult {
	out := make([]ChunkResult, len(bufs))
	for i, b := range bufs {
		c, err := Parse(b)
		out[i] = ChunkResult{Index: i, Container: c, Err: err}
	}
	return out
}

// Fold concatenates the successful results. The output takes the format of
// the first success; the frames of later successes are appended as-is, even
// when their own format differs (see Report.Mismatched). Fold returns nil when
// no result succeeded.
func Fold(results []ChunkResult) (*Container, Report) {
	rep := Report{Total: len(results)}

	var (
		out  *Container
		size int
	)
	for _, r := range results {
		if r.Err == nil && r.Container != nil {
			size += len(r.Container.Frames)
		}
	}

	for _, r := range results {
		if r.Err != nil || r.Container == nil {
			err := r.Err
			if err == nil {
				err = ErrMissingData
			}
			rep.Skipped = append(rep.Skipped, Skip{Index: r.Index, Err: err})
			continue
		}
		if out == nil {
			out = &Container{
				Format: r.Container.Format,
				Frames: make([]byte, 0, size),
			}
		} else if r.Container.Format != out.Format {
			rep.Mismatched = append(rep.Mismatched, r.Index)
		}
		out.Frames = append(out.Frames, r.Container.Frames...)
		rep.Used++
	}

	if out == nil {
		return nil, rep
	}
	// Mismatched inputs can leave a partial frame at the tail.
	ba := out.Format.BlockAlign()
	out.Frames = out.Frames[:len(out.Frames)-len(out.Frames)%ba]
	rep.Format = out.Format
	rep.Frames = out.FrameCount()
	return out, rep
}

// Stitch concatenates WAV buffers into a single WAV file. Buffers that fail
// to parse are skipped. The second return value is false when no buffer could
// be parsed, in which case no audio is returned.
func Stitch(bufs [][]byte) ([]byte, bool) {
	c, _ := Fold(ParseAll(bufs))
	if c == nil {
		return nil, false
	}
	return c.Bytes(), true
}
