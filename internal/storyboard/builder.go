package storyboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/storyboard/internal/observe"
	"github.com/MrWong99/storyboard/pkg/provider/llm"
)

// DefaultTemperature keeps the scene list close to the story.
const DefaultTemperature = 0.4

// ErrNoProvider is returned by [NewBuilder] without a text provider.
var ErrNoProvider = errors.New("storyboard: no llm provider configured")

// BuilderOption configures a [Builder].
type BuilderOption func(*Builder)

// WithStore saves every built storyboard in s.
func WithStore(s Store) BuilderOption {
	return func(b *Builder) { b.store = s }
}

// WithDefaultLanguage sets the language used when a request names none.
func WithDefaultLanguage(lang string) BuilderOption {
	return func(b *Builder) {
		if lang != "" {
			b.language = lang
		}
	}
}

// WithTemperature sets the sampling temperature of the text model.
func WithTemperature(t float64) BuilderOption {
	return func(b *Builder) { b.temperature = t }
}

// WithBuilderMetrics records built storyboards to m.
func WithBuilderMetrics(m *observe.Metrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

// Builder asks a text model for a scene list and assembles storyboards.
type Builder struct {
	llm         llm.Provider
	store       Store
	language    string
	temperature float64
	metrics     *observe.Metrics
	now         func() time.Time
}

// NewBuilder creates a Builder backed by p.
func NewBuilder(p llm.Provider, opts ...BuilderOption) (*Builder, error) {
	if p == nil {
		return nil, ErrNoProvider
	}
	b := &Builder{
		llm:         p,
		language:    DefaultLanguage,
		temperature: DefaultTemperature,
		now:         time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// Build generates the scene list for req. When a store is configured the
// storyboard is saved before it is returned.
func (b *Builder) Build(ctx context.Context, req Request) (*Storyboard, error) {
	ctx, span := observe.StartSpan(ctx, "storyboard.Build")
	defer span.End()

	req.Story = strings.TrimSpace(req.Story)
	if req.Story == "" {
		return nil, ErrEmptyStory
	}
	if req.Language == "" {
		req.Language = b.language
	}

	resp, err := b.llm.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: BuildPrompt(req)}},
		Temperature: b.temperature,
		JSON:        true,
	})
	if err != nil {
		observe.Fail(span, err)
		return nil, fmt.Errorf("storyboard: generate scenes: %w", err)
	}
	if resp == nil {
		return nil, ErrNoJSON
	}

	scenes, err := ParseScenes(resp.Content)
	if err != nil {
		observe.Logger(ctx).Warn("unusable storyboard reply", "chars", len(resp.Content), "err", err)
		observe.Fail(span, err)
		return nil, err
	}

	sb := &Storyboard{
		ID:        uuid.NewString(),
		Story:     req.Story,
		Character: strings.TrimSpace(req.Character),
		Language:  req.Language,
		Voice:     req.Voice,
		Scenes:    scenes,
		CreatedAt: b.now().UTC(),
	}
	if b.store != nil {
		if err := b.store.Put(ctx, sb); err != nil {
			return nil, fmt.Errorf("storyboard: save: %w", err)
		}
	}
	if b.metrics != nil {
		b.metrics.RecordStoryboard(ctx, sb.Language)
	}
	observe.Logger(ctx).Info("storyboard built",
		"id", sb.ID,
		"language", sb.Language,
		"scenes", len(sb.Scenes),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return sb, nil
}
