// Package openai provides an image provider backed by the OpenAI images API.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/storyboard/pkg/provider/image"
)

const defaultModel = "dall-e-3"

// sizes maps aspect ratios to the closest supported output size.
var sizes = map[string]string{
	"9:16": "1024x1792",
	"16:9": "1792x1024",
	"1:1":  "1024x1024",
}

type config struct {
	model   string
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithModel sets the image model.
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements image.Provider using the OpenAI images API.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai image: apiKey must not be empty")
	}
	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}
	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Generate implements image.Provider.
func (p *Provider) Generate(ctx context.Context, req image.Request) (*image.Image, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, image.ErrEmptyPrompt
	}

	resp, err := p.client.Images.Generate(ctx, oai.ImageGenerateParams{
		Prompt:         req.Prompt,
		Model:          oai.ImageModel(p.model),
		N:              param.NewOpt(int64(1)),
		Size:           oai.ImageGenerateParamsSize(sizeFor(req.AspectRatio)),
		ResponseFormat: oai.ImageGenerateParamsResponseFormat("b64_json"),
	})
	if err != nil {
		return nil, fmt.Errorf("openai image: generate: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai image: %w", image.ErrNoImage)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai image: decode: %w", err)
	}
	return &image.Image{Data: data, MimeType: image.DetectMimeType(data), Model: p.model}, nil
}

func sizeFor(ratio string) string {
	if ratio == "" {
		ratio = image.DefaultAspectRatio
	}
	if s, ok := sizes[ratio]; ok {
		return s
	}
	return sizes["1:1"]
}

var _ image.Provider = (*Provider)(nil)
