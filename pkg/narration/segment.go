// Package narration splits long narration scripts into segments that fit the
// request-size limit of a speech synthesis service.
//
// Splitting happens on sentence boundaries only. A boundary is any '.', '!'
// or '?' that is immediately followed by whitespace; the punctuation stays
// with the preceding sentence and the whitespace run is discarded. This is a
// deliberately simple heuristic: abbreviations ("Dr. Who"), decimals and
// quoted punctuation are not special-cased.
//
// All functions in this package are pure and safe for concurrent use.
package narration

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLen is the character budget used when the caller passes a
// non-positive maximum to [Segment].
const DefaultMaxLen = 1500

// Sentences splits text at every sentence boundary. The returned slice
// preserves input order. A trailing boundary yields a final empty sentence,
// and leading whitespace stays attached to the first sentence.
func Sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Consume the whitespace run following the punctuation, if any.
		end := i
		j := i
		for j < len(text) {
			ws, wsSize := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += wsSize
		}
		if j == end {
			continue
		}
		out = append(out, text[start:end])
		start = j
		i = j
	}
	return append(out, text[start:])
}

// Segment groups the sentences of text into segments whose length stays
// strictly below maxLen characters. Sentences are accumulated greedily; when
// appending the next sentence would reach or exceed maxLen the current
// segment is closed and the sentence starts a new one.
//
// A single sentence that is already longer than maxLen is never split and is
// returned as its own oversized segment. Empty segments are never produced,
// so empty or whitespace-only input yields nil.
//
// maxLen <= 0 selects [DefaultMaxLen].
func Segment(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	var (
		segments []string
		buf      strings.Builder
		// bufLen counts runes in buf including the trailing separator space.
		bufLen int
	)
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			segments = append(segments, s)
		}
		buf.Reset()
		bufLen = 0
	}

	for _, sentence := range Sentences(text) {
		n := utf8.RuneCountInString(sentence)
		if bufLen+n >= maxLen {
			flush()
		}
		buf.WriteString(sentence)
		buf.WriteByte(' ')
		bufLen += n + 1
	}
	flush()

	return segments
}
