// Package image defines the Provider interface for still image generation
// backends used to illustrate storyboard scenes.
//
// Implementations must be safe for concurrent use.
package image

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// DefaultAspectRatio is the portrait ratio used for scene illustrations.
const DefaultAspectRatio = "9:16"

// ErrEmptyPrompt is returned when Generate is called with a blank prompt.
var ErrEmptyPrompt = errors.New("image: prompt must not be empty")

// ErrNoImage is returned when a backend answered without image data.
var ErrNoImage = errors.New("image: response contained no image")

// Request describes one image to generate.
type Request struct {
	// Prompt is the text description of the image.
	Prompt string

	// AspectRatio is "W:H", e.g. "9:16". Empty means DefaultAspectRatio.
	AspectRatio string
}

// Image is a generated still image.
type Image struct {
	// Data is the encoded image (PNG or JPEG).
	Data []byte

	// MimeType is the content type of Data.
	MimeType string

	// Model is the backend model that produced the image.
	Model string
}

// Provider is the abstraction over any image generation backend.
type Provider interface {
	// Generate renders one image for req.
	Generate(ctx context.Context, req Request) (*Image, error)
}

// DetectMimeType sniffs the content type of image data, defaulting to PNG.
func DetectMimeType(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/png"
}
