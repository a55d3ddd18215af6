// Package cache holds synthesized audio in memory so that repeated narration
// of the same text with the same voice does not call the speech provider
// again. Entries are stored zstd-compressed and evicted least-recently-used.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries         int
	Hits            int64
	Misses          int64
	Evictions       int64
	StoredBytes     int64
	UncompressedLen int64
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

type entry struct {
	key    string
	data   []byte
	rawLen int
}

// Synthesis is an LRU cache of audio keyed by (provider, voice, text).
// It is safe for concurrent use.
type Synthesis struct {
	maxEntries int
	enc        *zstd.Encoder
	dec        *zstd.Decoder

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List
	stats Stats
}

// New creates a cache holding at most maxEntries items.
func New(maxEntries int) (*Synthesis, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache: maxEntries must be positive, got %d", maxEntries)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("cache: create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: create zstd decoder: %w", err)
	}
	return &Synthesis{
		maxEntries: maxEntries,
		enc:        enc,
		dec:        dec,
		items:      make(map[string]*list.Element),
		order:      list.New(),
	}, nil
}

// Key derives the cache key for one synthesis call.
func Key(provider, voice, text string) string {
	h := sha256.New()
	for _, part := range []string{provider, voice, text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the audio stored under key.
func (c *Synthesis) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}
	c.order.MoveToFront(elem)
	e := elem.Value.(*entry)
	compressed, rawLen := e.data, e.rawLen
	c.mu.Unlock()

	out, err := c.dec.DecodeAll(compressed, make([]byte, 0, rawLen))
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.remove(key)
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return out, true
}

// Put stores audio under key, evicting the least recently used entry when
// the cache is full.
func (c *Synthesis) Put(key string, audio []byte) {
	compressed := c.enc.EncodeAll(audio, nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		c.stats.StoredBytes += int64(len(compressed) - len(e.data))
		c.stats.UncompressedLen += int64(len(audio) - e.rawLen)
		e.data, e.rawLen = compressed, len(audio)
		c.order.MoveToFront(elem)
		return
	}
	for c.order.Len() >= c.maxEntries {
		oldest := c.order.Back()
		c.remove(oldest.Value.(*entry).key)
		c.stats.Evictions++
	}
	c.items[key] = c.order.PushFront(&entry{key: key, data: compressed, rawLen: len(audio)})
	c.stats.StoredBytes += int64(len(compressed))
	c.stats.UncompressedLen += int64(len(audio))
}

// remove must be called with c.mu held.
func (c *Synthesis) remove(key string) {
	elem, ok := c.items[key]
	if !ok {
		return
	}
	e := elem.Value.(*entry)
	c.order.Remove(elem)
	delete(c.items, key)
	c.stats.StoredBytes -= int64(len(e.data))
	c.stats.UncompressedLen -= int64(e.rawLen)
}

// Len returns the number of cached entries.
func (c *Synthesis) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Synthesis) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.order.Len()
	return s
}

// Close releases the encoder and decoder resources.
func (c *Synthesis) Close() error {
	c.dec.Close()
	return c.enc.Close()
}
