// Package illustrator renders the image prompt of a storyboard scene and
// stores the result next to the storyboard.
package illustrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/storyboard/internal/observe"
	"github.com/MrWong99/storyboard/internal/storyboard"
	"github.com/MrWong99/storyboard/pkg/provider/image"
)

// ErrNoProvider is returned by [New] without an image provider or store.
var ErrNoProvider = errors.New("illustrator: image provider and store are required")

// Option configures an [Illustrator].
type Option func(*Illustrator)

// WithAspectRatio sets the "W:H" ratio of generated images.
func WithAspectRatio(r string) Option {
	return func(il *Illustrator) {
		if r != "" {
			il.aspectRatio = r
		}
	}
}

// WithCharacter makes every prompt mention the storyboard's character when
// the model forgot to include it.
func WithCharacter(enabled bool) Option {
	return func(il *Illustrator) { il.character = enabled }
}

// Illustrator generates scene images.
type Illustrator struct {
	images      image.Provider
	store       storyboard.Store
	aspectRatio string
	character   bool
}

// New creates an Illustrator that generates with p and saves into s.
func New(p image.Provider, s storyboard.Store, opts ...Option) (*Illustrator, error) {
	if p == nil || s == nil {
		return nil, ErrNoProvider
	}
	il := &Illustrator{images: p, store: s, aspectRatio: image.DefaultAspectRatio}
	for _, o := range opts {
		o(il)
	}
	return il, nil
}

// Illustrate generates the image of one scene and stores it. A provider
// failure is returned as is and nothing is stored.
func (il *Illustrator) Illustrate(ctx context.Context, storyboardID string, sceneID int) (*image.Image, error) {
	ctx, span := observe.StartSpan(ctx, "illustrator.Illustrate")
	defer span.End()

	sb, err := il.store.Get(ctx, storyboardID)
	if err != nil {
		return nil, err
	}
	scene, ok := sb.Scene(sceneID)
	if !ok {
		return nil, storyboard.ErrSceneNotFound
	}

	prompt := il.prompt(sb, scene)
	if prompt == "" {
		return nil, image.ErrEmptyPrompt
	}

	img, err := il.images.Generate(ctx, image.Request{Prompt: prompt, AspectRatio: il.aspectRatio})
	if err != nil {
		observe.Fail(span, err)
		return nil, fmt.Errorf("illustrator: scene %d: %w", sceneID, err)
	}
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("illustrator: scene %d: %w", sceneID, image.ErrNoImage)
	}
	if img.MimeType == "" {
		img.MimeType = image.DetectMimeType(img.Data)
	}

	if err := il.store.SetImage(ctx, storyboardID, sceneID, img); err != nil {
		return nil, fmt.Errorf("illustrator: save scene %d: %w", sceneID, err)
	}
	observe.Logger(ctx).Info("scene illustrated",
		"storyboard", storyboardID,
		"scene", sceneID,
		"model", img.Model,
		"bytes", len(img.Data),
	)
	return img, nil
}

func (il *Illustrator) prompt(sb *storyboard.Storyboard, sc storyboard.Scene) string {
	p := strings.TrimSpace(sc.ImagePrompt)
	if p == "" || !il.character || sb.Character == "" {
		return p
	}
	if strings.Contains(strings.ToLower(p), strings.ToLower(sb.Character)) {
		return p
	}
	return p + ". " + sb.Character
}
