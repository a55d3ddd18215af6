package resilience

import (
	"context"

	"github.com/MrWong99/storyboard/pkg/provider/image"
)

// ImageFallback implements [image.Provider] with failover across several
// image generation backends.
type ImageFallback struct {
	group *FallbackGroup[image.Provider]
}

var _ image.Provider = (*ImageFallback)(nil)

// NewImageFallback creates an [ImageFallback] with primary as the preferred backend.
func NewImageFallback(primary image.Provider, primaryName string, cfg FallbackConfig) *ImageFallback {
	return &ImageFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional image provider as a fallback.
func (f *ImageFallback) AddFallback(name string, provider image.Provider) {
	f.group.AddFallback(name, provider)
}

// Generate renders req with the first healthy provider.
func (f *ImageFallback) Generate(ctx context.Context, req image.Request) (*image.Image, error) {
	return ExecuteWithResult(ctx, f.group, func(p image.Provider) (*image.Image, error) {
		return p.Generate(ctx, req)
	})
}
