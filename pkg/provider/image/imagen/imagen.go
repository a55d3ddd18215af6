// Package imagen provides an image provider backed by Imagen through the
// google.golang.org/genai GenerateImages call. A list of models is tried in
// order; the first one that returns an image wins.
package imagen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/MrWong99/storyboard/pkg/provider/image"
)

// DefaultModels is the model list tried when none is configured.
var DefaultModels = []string{"imagen-3.0-generate-001", "image-generation-002"}

// Option configures a Provider.
type Option func(*Provider)

// WithModels replaces the ordered model list.
func WithModels(models ...string) Option {
	return func(p *Provider) {
		var clean []string
		for _, m := range models {
			if m = strings.TrimSpace(m); m != "" {
				clean = append(clean, m)
			}
		}
		if len(clean) > 0 {
			p.models = clean
		}
	}
}

// Provider implements image.Provider.
type Provider struct {
	client *genai.Client
	models []string
}

// New creates a Provider on top of a Gemini API client.
func New(client *genai.Client, opts ...Option) (*Provider, error) {
	if client == nil {
		return nil, errors.New("imagen: client must not be nil")
	}
	p := &Provider{client: client, models: append([]string(nil), DefaultModels...)}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Generate implements image.Provider. Every model in the list is tried once;
// the returned error joins the failures of all of them.
func (p *Provider) Generate(ctx context.Context, req image.Request) (*image.Image, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, image.ErrEmptyPrompt
	}
	ratio := req.AspectRatio
	if ratio == "" {
		ratio = image.DefaultAspectRatio
	}
	cfg := &genai.GenerateImagesConfig{NumberOfImages: 1, AspectRatio: ratio}

	var errs []error
	for _, model := range p.models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := p.generate(ctx, model, req.Prompt, cfg)
		if err == nil {
			return img, nil
		}
		slog.Debug("imagen: model failed, trying next", "model", model, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", model, err))
	}
	return nil, fmt.Errorf("imagen: all models failed: %w", errors.Join(errs...))
}

func (p *Provider) generate(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*image.Image, error) {
	resp, err := p.client.Models.GenerateImages(ctx, model, prompt, cfg)
	if err != nil {
		return nil, err
	}
	for _, gen := range resp.GeneratedImages {
		if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
			if gen != nil && gen.RAIFilteredReason != "" {
				slog.Debug("imagen: image filtered", "model", model, "reason", gen.RAIFilteredReason)
			}
			continue
		}
		mime := gen.Image.MIMEType
		if mime == "" {
			mime = image.DetectMimeType(gen.Image.ImageBytes)
		}
		return &image.Image{Data: gen.Image.ImageBytes, MimeType: mime, Model: model}, nil
	}
	return nil, image.ErrNoImage
}

var _ image.Provider = (*Provider)(nil)
