package illustrator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/storyboard/internal/illustrator"
	"github.com/MrWong99/storyboard/internal/storyboard"
	"github.com/MrWong99/storyboard/pkg/provider/image"
	imagemock "github.com/MrWong99/storyboard/pkg/provider/image/mock"
)

var pngData = []byte("\x89PNG\r\n\x1a\n rest")

func seed(t *testing.T) *storyboard.MemStore {
	t.Helper()
	s := storyboard.NewMemStore()
	err := s.Put(context.Background(), &storyboard.Storyboard{
		ID:        "sb",
		Character: "a red fox",
		Scenes: []storyboard.Scene{
			{ID: 1, ImagePrompt: "a red fox in snow"},
			{ID: 2, ImagePrompt: "a frozen lake at dawn"},
			{ID: 3, ImagePrompt: "   "},
		},
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNew_RequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := illustrator.New(nil, storyboard.NewMemStore()); !errors.Is(err, illustrator.ErrNoProvider) {
		t.Errorf("nil provider: err = %v", err)
	}
	if _, err := illustrator.New(&imagemock.Provider{}, nil); !errors.Is(err, illustrator.ErrNoProvider) {
		t.Errorf("nil store: err = %v", err)
	}
}

func TestIllustrate(t *testing.T) {
	t.Parallel()
	store := seed(t)
	p := &imagemock.Provider{Image: &image.Image{Data: pngData, Model: "imagen-test"}}
	il, _ := illustrator.New(p, store)

	img, err := il.Illustrate(context.Background(), "sb", 1)
	if err != nil {
		t.Fatalf("Illustrate: %v", err)
	}
	if img.MimeType != "image/png" {
		t.Errorf("mime = %q", img.MimeType)
	}
	calls := p.Calls()
	if len(calls) != 1 || calls[0].Req.Prompt != "a red fox in snow" || calls[0].Req.AspectRatio != "9:16" {
		t.Errorf("calls = %+v", calls)
	}
	stored, err := store.Image(context.Background(), "sb", 1)
	if err != nil {
		t.Fatalf("stored image: %v", err)
	}
	if string(stored.Data) != string(pngData) {
		t.Error("stored image differs")
	}
}

func TestIllustrate_CharacterAndAspect(t *testing.T) {
	t.Parallel()
	store := seed(t)
	p := &imagemock.Provider{Image: &image.Image{Data: pngData}}
	il, _ := illustrator.New(p, store, illustrator.WithAspectRatio("16:9"), illustrator.WithCharacter(true))

	for _, scene := range []int{1, 2} {
		if _, err := il.Illustrate(context.Background(), "sb", scene); err != nil {
			t.Fatal(err)
		}
	}
	calls := p.Calls()
	if calls[0].Req.Prompt != "a red fox in snow" {
		t.Errorf("prompt already naming the character was changed: %q", calls[0].Req.Prompt)
	}
	if calls[1].Req.Prompt != "a frozen lake at dawn. a red fox" {
		t.Errorf("prompt = %q", calls[1].Req.Prompt)
	}
	if calls[1].Req.AspectRatio != "16:9" {
		t.Errorf("aspect ratio = %q", calls[1].Req.AspectRatio)
	}
}

func TestIllustrate_Errors(t *testing.T) {
	t.Parallel()
	errQuota := errors.New("quota")

	tests := []struct {
		name    string
		p       *imagemock.Provider
		id      string
		scene   int
		wantErr error
	}{
		{"unknown storyboard", &imagemock.Provider{}, "nope", 1, storyboard.ErrNotFound},
		{"unknown scene", &imagemock.Provider{}, "sb", 42, storyboard.ErrSceneNotFound},
		{"blank prompt", &imagemock.Provider{}, "sb", 3, image.ErrEmptyPrompt},
		{"provider failure", &imagemock.Provider{GenerateErr: errQuota}, "sb", 1, errQuota},
		{"empty image", &imagemock.Provider{Image: &image.Image{}}, "sb", 1, image.ErrNoImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := seed(t)
			il, _ := illustrator.New(tt.p, store)
			if _, err := il.Illustrate(context.Background(), tt.id, tt.scene); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if imgs, _ := store.Images(context.Background(), "sb"); len(imgs) != 0 {
				t.Errorf("failure stored %d images", len(imgs))
			}
		})
	}
}
