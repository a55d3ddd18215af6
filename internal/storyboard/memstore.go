package storyboard

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/MrWong99/storyboard/pkg/provider/image"
)

var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. Nothing
// survives a restart.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	sb     *Storyboard
	audio  *Audio
	images map[int]*image.Image
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*entry)}
}

// Put implements [Store.Put].
func (s *MemStore) Put(_ context.Context, sb *Storyboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[sb.ID]; exists {
		return ErrDuplicateID
	}
	s.entries[sb.ID] = &entry{sb: sb.clone(), images: make(map[int]*image.Image)}
	return nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(_ context.Context, id string) (*Storyboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.sb.clone(), nil
}

// List implements [Store.List].
func (s *MemStore) List(_ context.Context) ([]*Storyboard, error) {
	s.mu.RLock()
	out := make([]*Storyboard, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.sb.clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Storyboard) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// SetAudio implements [Store.SetAudio].
func (s *MemStore) SetAudio(_ context.Context, id string, a Audio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	a.WAV = slices.Clone(a.WAV)
	e.audio = &a
	return nil
}

// Audio implements [Store.Audio].
func (s *MemStore) Audio(_ context.Context, id string) (Audio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return Audio{}, ErrNotFound
	}
	if e.audio == nil {
		return Audio{}, ErrNoAudio
	}
	a := *e.audio
	a.WAV = slices.Clone(a.WAV)
	return a, nil
}

// SetImage implements [Store.SetImage].
func (s *MemStore) SetImage(_ context.Context, id string, sceneID int, img *image.Image) error {
	if img == nil {
		return ErrNoImage
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	if _, ok := e.sb.Scene(sceneID); !ok {
		return ErrSceneNotFound
	}
	e.images[sceneID] = cloneImage(img)
	return nil
}

// Image implements [Store.Image].
func (s *MemStore) Image(_ context.Context, id string, sceneID int) (*image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if _, ok := e.sb.Scene(sceneID); !ok {
		return nil, ErrSceneNotFound
	}
	img, ok := e.images[sceneID]
	if !ok {
		return nil, ErrNoImage
	}
	return cloneImage(img), nil
}

// Images implements [Store.Images].
func (s *MemStore) Images(_ context.Context, id string) (map[int]*image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(map[int]*image.Image, len(e.images))
	for k, img := range e.images {
		out[k] = cloneImage(img)
	}
	return out, nil
}

func cloneImage(img *image.Image) *image.Image {
	cp := *img
	cp.Data = slices.Clone(img.Data)
	return &cp
}
