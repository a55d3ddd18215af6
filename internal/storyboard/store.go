package storyboard

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/storyboard/pkg/provider/image"
)

var (
	// ErrNotFound is returned when the requested storyboard does not exist.
	ErrNotFound = errors.New("storyboard: not found")

	// ErrDuplicateID is returned by Put when a storyboard with the same ID exists.
	ErrDuplicateID = errors.New("storyboard: duplicate id")

	// ErrSceneNotFound is returned when a storyboard has no scene with the given ID.
	ErrSceneNotFound = errors.New("storyboard: scene not found")

	// ErrNoAudio is returned by Audio when no narration was stored yet.
	ErrNoAudio = errors.New("storyboard: no narration audio")

	// ErrNoImage is returned by Image when the scene was not illustrated yet.
	ErrNoImage = errors.New("storyboard: no scene image")
)

// Audio is a stored narration.
type Audio struct {
	// WAV is the stitched narration.
	WAV []byte

	// Voice is the name of the voice that spoke it.
	Voice string

	// SegmentsTotal is the number of text segments synthesized.
	SegmentsTotal int

	// SegmentsUsed is the number of segments that made it into WAV.
	SegmentsUsed int

	// Duration is the playing time of WAV.
	Duration time.Duration

	CreatedAt time.Time
}

// Store keeps storyboards and their generated assets.
//
// All implementations must be safe for concurrent use. Returned values are
// copies; mutating them does not change the store.
type Store interface {
	// Put adds a new storyboard. Returns [ErrDuplicateID] if sb.ID is taken.
	Put(ctx context.Context, sb *Storyboard) error

	// Get returns the storyboard with the given ID or [ErrNotFound].
	Get(ctx context.Context, id string) (*Storyboard, error)

	// List returns all storyboards, newest first.
	List(ctx context.Context) ([]*Storyboard, error)

	// SetAudio replaces the narration of storyboard id.
	SetAudio(ctx context.Context, id string, a Audio) error

	// Audio returns the narration of storyboard id, [ErrNotFound] or
	// [ErrNoAudio].
	Audio(ctx context.Context, id string) (Audio, error)

	// SetImage replaces the illustration of one scene. Returns
	// [ErrSceneNotFound] for an unknown scene.
	SetImage(ctx context.Context, id string, sceneID int, img *image.Image) error

	// Image returns the illustration of one scene, [ErrNotFound],
	// [ErrSceneNotFound] or [ErrNoImage].
	Image(ctx context.Context, id string, sceneID int) (*image.Image, error)

	// Images returns every stored illustration of storyboard id keyed by
	// scene ID.
	Images(ctx context.Context, id string) (map[int]*image.Image, error)
}
