package storyboard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/storyboard/internal/storyboard"
	"github.com/MrWong99/storyboard/pkg/provider/image"
)

func newBoard(id string, created time.Time) *storyboard.Storyboard {
	return &storyboard.Storyboard{
		ID:        id,
		Story:     "story " + id,
		Language:  "English",
		Scenes:    []storyboard.Scene{{ID: 1, ScriptText: "One."}, {ID: 2, ScriptText: "Two."}},
		CreatedAt: created,
	}
}

func TestMemStore_PutGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := storyboard.NewMemStore()

	sb := newBoard("a", time.Now())
	if err := s.Put(ctx, sb); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, sb); !errors.Is(err, storyboard.ErrDuplicateID) {
		t.Fatalf("second Put: err = %v, want ErrDuplicateID", err)
	}

	// Mutating the original or the returned copy must not leak into the store.
	sb.Scenes[0].ScriptText = "changed"
	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Scenes[0].ScriptText != "One." {
		t.Errorf("store shares scenes with caller: %q", got.Scenes[0].ScriptText)
	}
	got.Scenes[1].ScriptText = "changed"
	again, _ := s.Get(ctx, "a")
	if again.Scenes[1].ScriptText != "Two." {
		t.Errorf("returned copy aliases store: %q", again.Scenes[1].ScriptText)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, storyboard.ErrNotFound) {
		t.Errorf("Get missing: err = %v", err)
	}
}

func TestMemStore_ListNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := storyboard.NewMemStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new", "mid"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		if err := s.Put(ctx, newBoard(id, base.Add(offsets[i]))); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, sb := range list {
		ids = append(ids, sb.ID)
	}
	if len(ids) != 3 || ids[0] != "new" || ids[1] != "mid" || ids[2] != "old" {
		t.Errorf("order = %v", ids)
	}
}

func TestMemStore_Audio(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := storyboard.NewMemStore()
	_ = s.Put(ctx, newBoard("a", time.Now()))

	if _, err := s.Audio(ctx, "a"); !errors.Is(err, storyboard.ErrNoAudio) {
		t.Fatalf("Audio before set: err = %v, want ErrNoAudio", err)
	}
	if err := s.SetAudio(ctx, "missing", storyboard.Audio{}); !errors.Is(err, storyboard.ErrNotFound) {
		t.Fatalf("SetAudio missing: err = %v", err)
	}

	wav := []byte("RIFF....WAVE")
	if err := s.SetAudio(ctx, "a", storyboard.Audio{WAV: wav, Voice: "Puck", SegmentsTotal: 3, SegmentsUsed: 2}); err != nil {
		t.Fatal(err)
	}
	wav[0] = 'X'

	got, err := s.Audio(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.WAV) != "RIFF....WAVE" || got.Voice != "Puck" || got.SegmentsUsed != 2 {
		t.Errorf("audio = %+v", got)
	}
}

func TestMemStore_Images(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := storyboard.NewMemStore()
	_ = s.Put(ctx, newBoard("a", time.Now()))
	img := &image.Image{Data: []byte{1, 2, 3}, MimeType: "image/png", Model: "m"}

	tests := []struct {
		name    string
		id      string
		scene   int
		img     *image.Image
		wantErr error
	}{
		{"unknown storyboard", "x", 1, img, storyboard.ErrNotFound},
		{"unknown scene", "a", 9, img, storyboard.ErrSceneNotFound},
		{"nil image", "a", 1, nil, storyboard.ErrNoImage},
		{"ok", "a", 2, img, nil},
	}
	for _, tt := range tests {
		if err := s.SetImage(ctx, tt.id, tt.scene, tt.img); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.wantErr)
		}
	}

	if _, err := s.Image(ctx, "a", 1); !errors.Is(err, storyboard.ErrNoImage) {
		t.Errorf("Image scene 1: err = %v, want ErrNoImage", err)
	}
	if _, err := s.Image(ctx, "a", 7); !errors.Is(err, storyboard.ErrSceneNotFound) {
		t.Errorf("Image scene 7: err = %v, want ErrSceneNotFound", err)
	}
	got, err := s.Image(ctx, "a", 2)
	if err != nil {
		t.Fatal(err)
	}
	got.Data[0] = 9
	all, err := s.Images(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[2].Data[0] != 1 {
		t.Errorf("images = %+v", all)
	}
	if _, err := s.Images(ctx, "x"); !errors.Is(err, storyboard.ErrNotFound) {
		t.Errorf("Images missing: err = %v", err)
	}
}

func TestMemStore_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := storyboard.NewMemStore()
	_ = s.Put(ctx, newBoard("a", time.Now()))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SetAudio(ctx, "a", storyboard.Audio{WAV: []byte{byte(i)}})
			_, _ = s.Audio(ctx, "a")
			_ = s.SetImage(ctx, "a", 1+i%2, &image.Image{Data: []byte{byte(i)}})
			_, _ = s.List(ctx)
		}()
	}
	wg.Wait()

	if _, err := s.Audio(ctx, "a"); err != nil {
		t.Errorf("Audio after concurrent writes: %v", err)
	}
}
