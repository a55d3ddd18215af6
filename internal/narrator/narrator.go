// Package narrator turns a long text into one WAV file: the text is cut into
// segments, each segment is synthesized by a speech provider, and the
// resulting chunks are stitched in segment order. A segment whose synthesis
// or parsing fails is left out; the narration itself only fails when the
// caller's context ends.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/MrWong99/storyboard/internal/cache"
	"github.com/MrWong99/storyboard/internal/observe"
	"github.com/MrWong99/storyboard/pkg/audio"
	"github.com/MrWong99/storyboard/pkg/audio/wav"
	"github.com/MrWong99/storyboard/pkg/narration"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

// DefaultPause is the minimum spacing between two synthesis calls.
const DefaultPause = 200 * time.Millisecond

// ErrNoProvider is returned by [New] without a speech provider.
var ErrNoProvider = errors.New("narrator: no tts provider configured")

// Option configures a [Narrator].
type Option func(*Narrator)

// WithMaxSegmentChars sets the segment budget. Values <= 0 select
// [narration.DefaultMaxLen].
func WithMaxSegmentChars(n int) Option {
	return func(nr *Narrator) { nr.maxLen = n }
}

// WithPause sets the minimum spacing between synthesis calls. Zero disables
// pacing.
func WithPause(d time.Duration) Option {
	return func(nr *Narrator) {
		if d >= 0 {
			nr.pause = d
		}
	}
}

// WithConcurrency caps the number of in-flight synthesis calls. Values below
// one mean sequential.
func WithConcurrency(n int) Option {
	return func(nr *Narrator) {
		if n < 1 {
			n = 1
		}
		nr.concurrency = n
	}
}

// WithCache stores synthesized chunks in c. namespace separates providers
// that share a cache.
func WithCache(c *cache.Synthesis, namespace string) Option {
	return func(nr *Narrator) {
		nr.cache = c
		nr.cacheNS = namespace
	}
}

// WithConverter normalizes every chunk to cv's target format before
// stitching.
func WithConverter(cv *audio.Converter) Option {
	return func(nr *Narrator) { nr.conv = cv }
}

// WithMetrics records segment outcomes and narration latency to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(nr *Narrator) { nr.metrics = m }
}

// Narrator synthesizes and stitches narrations. It is safe for concurrent
// use; each call to [Narrator.Narrate] paces its own provider calls.
type Narrator struct {
	tts         tts.Provider
	maxLen      int
	pause       time.Duration
	concurrency int
	cache       *cache.Synthesis
	cacheNS     string
	conv        *audio.Converter
	metrics     *observe.Metrics
}

// New creates a Narrator backed by p.
func New(p tts.Provider, opts ...Option) (*Narrator, error) {
	if p == nil {
		return nil, ErrNoProvider
	}
	nr := &Narrator{
		tts:         p,
		maxLen:      narration.DefaultMaxLen,
		pause:       DefaultPause,
		concurrency: 1,
	}
	for _, o := range opts {
		o(nr)
	}
	return nr, nil
}

// SegmentResult is the outcome of one segment.
type SegmentResult struct {
	// Index is the segment's position in the text.
	Index int

	// Text is the segment text.
	Text string

	// Audio is the provider's WAV payload. Nil when Err is set.
	Audio []byte

	// Cached is true when Audio came from the synthesis cache.
	Cached bool

	// Err is the synthesis or parse failure for this segment.
	Err error

	container *wav.Container
}

// Result is a finished narration.
type Result struct {
	// Audio is the stitched WAV file. Nil when Present is false.
	Audio []byte

	// Present is false when no segment produced usable audio.
	Present bool

	// Segments holds one entry per segment, in text order.
	Segments []SegmentResult

	// Report describes how the chunks were stitched.
	Report wav.Report
}

// Duration returns the playing time of the stitched audio.
func (r *Result) Duration() time.Duration {
	if !r.Present || r.Report.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(r.Report.Frames) * time.Second / time.Duration(r.Report.Format.SampleRate)
}

// Narrate segments text, synthesizes every segment with voice and stitches
// the chunks in order. The error is non-nil only when ctx ends first.
func (nr *Narrator) Narrate(ctx context.Context, text string, voice tts.VoiceProfile) (*Result, error) {
	ctx, span := observe.StartSpan(ctx, "narrator.Narrate")
	defer span.End()
	start := time.Now()
	log := observe.Logger(ctx)

	segments := narration.Segment(text, nr.maxLen)
	res := &Result{Segments: make([]SegmentResult, len(segments))}
	if len(segments) == 0 {
		return res, nil
	}

	var limiter *rate.Limiter
	if nr.pause > 0 {
		limiter = rate.NewLimiter(rate.Every(nr.pause), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nr.concurrency)
	for i, seg := range segments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			sr, err := nr.synthesize(gctx, limiter, i, seg, voice)
			res.Segments[i] = sr
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("narrator: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("narrator: %w", err)
	}

	chunks := make([]wav.ChunkResult, len(res.Segments))
	for i, sr := range res.Segments {
		chunks[i] = wav.ChunkResult{Index: i, Container: sr.container, Err: sr.Err}
	}
	if nr.conv != nil {
		nr.conv.ConvertAll(chunks)
	}
	out, rep := wav.Fold(chunks)
	res.Report = rep

	for _, sk := range rep.Skipped {
		log.Warn("narration chunk skipped", "segment", sk.Index, "err", sk.Err)
	}
	if len(rep.Mismatched) > 0 {
		log.Warn("narration chunks differ from output format", "segments", rep.Mismatched, "format", rep.Format.String())
	}
	if nr.metrics != nil {
		nr.metrics.RecordStitchSkipped(ctx, "unusable", len(rep.Skipped))
		nr.metrics.NarrationDuration.Record(ctx, time.Since(start).Seconds())
	}

	if out == nil {
		log.Warn("narration produced no audio", "segments", len(segments))
		return res, nil
	}
	res.Audio = out.Bytes()
	res.Present = true
	log.Info("narration stitched", "report", rep.String(), "duration", res.Duration())
	return res, nil
}

// synthesize produces one segment. The returned error is non-nil only for
// context cancellation; provider and parse failures are recorded in the
// result.
func (nr *Narrator) synthesize(ctx context.Context, limiter *rate.Limiter, i int, text string, voice tts.VoiceProfile) (SegmentResult, error) {
	sr := SegmentResult{Index: i, Text: text}

	var key string
	if nr.cache != nil {
		key = cache.Key(nr.cacheNS, voiceKey(voice), text)
		if audio, ok := nr.cache.Get(key); ok {
			if c, err := wav.Parse(audio); err == nil {
				sr.Audio, sr.Cached, sr.container = audio, true, c
				nr.record(ctx, observe.SegmentCached)
				return sr, nil
			}
		}
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return sr, err
		}
	}

	audio, err := nr.tts.Synthesize(ctx, text, voice)
	if err != nil {
		if ctx.Err() != nil {
			return sr, ctx.Err()
		}
		sr.Err = fmt.Errorf("synthesize: %w", err)
		nr.record(ctx, observe.SegmentFailed)
		observe.Logger(ctx).Warn("segment synthesis failed", "segment", i, "chars", len([]rune(text)), "err", err)
		return sr, nil
	}

	c, err := wav.Parse(audio)
	if err != nil {
		sr.Err = fmt.Errorf("parse: %w", err)
		nr.record(ctx, observe.SegmentFailed)
		return sr, nil
	}
	sr.Audio, sr.container = audio, c
	nr.record(ctx, observe.SegmentOK)
	if nr.cache != nil {
		nr.cache.Put(key, audio)
	}
	return sr, nil
}

func (nr *Narrator) record(ctx context.Context, status string) {
	if nr.metrics != nil {
		nr.metrics.RecordSegment(ctx, status)
	}
}

func voiceKey(v tts.VoiceProfile) string {
	if v.ID != "" {
		return v.ID
	}
	return v.Name
}
