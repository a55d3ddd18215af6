// Package mock provides a test double for the image.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/storyboard/pkg/provider/image"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	Ctx context.Context
	Req image.Request
}

// Provider is a mock implementation of image.Provider.
type Provider struct {
	mu sync.Mutex

	// Image is returned by Generate. May be nil.
	Image *image.Image

	// GenerateErr, if non-nil, is returned as the error from Generate.
	GenerateErr error

	// GenerateCalls records every invocation of Generate in order.
	GenerateCalls []GenerateCall
}

// Generate records the call and returns Image, GenerateErr.
func (p *Provider) Generate(ctx context.Context, req image.Request) (*image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GenerateCalls = append(p.GenerateCalls, GenerateCall{Ctx: ctx, Req: req})
	if p.GenerateErr != nil {
		return nil, p.GenerateErr
	}
	return p.Image, nil
}

// Calls returns a copy of the recorded calls. Thread-safe.
func (p *Provider) Calls() []GenerateCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]GenerateCall, len(p.GenerateCalls))
	copy(out, p.GenerateCalls)
	return out
}

var _ image.Provider = (*Provider)(nil)
