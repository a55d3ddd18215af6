// Package googleai builds the google.golang.org/genai client shared by the
// Gemini speech and Imagen image providers.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ErrNoKey is returned by New when no API key is configured.
var ErrNoKey = errors.New("googleai: api key must not be empty")

// Option configures the client built by New.
type Option func(*genai.ClientConfig)

// WithBaseURL overrides the Generative Language endpoint. The API version is
// appended by the SDK.
func WithBaseURL(u string) Option {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = strings.TrimRight(u, "/") + "/"
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *genai.ClientConfig) {
		c.HTTPClient = hc
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *genai.ClientConfig) {
		if d > 0 {
			c.HTTPOptions.Timeout = &d
		}
	}
}

// New returns a Gemini API client authenticated with key. The backend is
// pinned to the Gemini API so GOOGLE_GENAI_USE_VERTEXAI cannot switch it.
func New(ctx context.Context, key string, opts ...Option) (*genai.Client, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrNoKey
	}
	cfg := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	for _, o := range opts {
		o(cfg)
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("googleai: create client: %w", err)
	}
	return c, nil
}
