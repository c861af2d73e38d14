// Package pipeline composes the two end-to-end flows of better-prompts:
// ingesting methodologies from text or URLs, and enhancing user prompts
// with retrieved methodologies.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/dulicode/better-prompts/internal/config"
	"github.com/dulicode/better-prompts/internal/knowledge"
)

// Resolver turns raw ingest input (literal text or a URL) into plain text.
type Resolver interface {
	Resolve(ctx context.Context, candidate string) (string, error)
}

// Extractor distills methodologies from article text into a raw payload.
type Extractor interface {
	Extract(ctx context.Context, content string) (string, error)
}

// Enhancer rewrites a user prompt using retrieved methodologies.
type Enhancer interface {
	Enhance(ctx context.Context, userInput string, methodologies []knowledge.Methodology) (string, error)
}

// IngestResult reports one completed ingest flow.
type IngestResult struct {
	// Extraction is the raw extractor output, shown to the caller so they
	// can see what the model distilled.
	Extraction string

	// Stored reports the per-item storage outcome.
	Stored knowledge.StoreResult

	// Backend names the store that received the records.
	Backend string
}

// EnhanceResult reports one completed enhancement flow.
type EnhanceResult struct {
	// Retrieved holds the methodologies found for the user input, in
	// relevance order.
	Retrieved []knowledge.Methodology

	// Backend names the store that served the retrieval.
	Backend string

	// Prompt is the raw enhancer output.
	Prompt string
}

// Pipeline wires the resolver, extractor, enhancer and knowledge store
// into the two tool flows.
type Pipeline struct {
	resolver    Resolver
	extractor   Extractor
	enhancer    Enhancer
	store       knowledge.Store
	logger      *slog.Logger
	defaultTopK int
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithDefaultTopK sets the retrieval count used when a caller does not
// request one. Non-positive values are ignored.
func WithDefaultTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.defaultTopK = k
		}
	}
}

// New assembles a Pipeline from its stages.
func New(resolver Resolver, extractor Extractor, enhancer Enhancer, store knowledge.Store, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		resolver:    resolver,
		extractor:   extractor,
		enhancer:    enhancer,
		store:       store,
		logger:      logger,
		defaultTopK: config.DefaultTopK,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest resolves content to text, extracts methodologies from it and
// stores them. Stage failures abort the flow; nothing is stored unless
// extraction succeeded.
func (p *Pipeline) Ingest(ctx context.Context, content string) (IngestResult, error) {
	text, err := p.resolver.Resolve(ctx, content)
	if err != nil {
		return IngestResult{}, err
	}

	extraction, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return IngestResult{}, err
	}

	stored, err := p.store.Store(ctx, []byte(extraction))
	if err != nil {
		return IngestResult{}, err
	}

	p.logger.Info("ingest complete",
		"backend", p.store.Backend(), "stored_count", stored.StoredCount)

	return IngestResult{
		Extraction: extraction,
		Stored:     stored,
		Backend:    p.store.Backend(),
	}, nil
}

// Enhance retrieves the topK methodologies most relevant to userInput and
// rewrites the prompt with them. A non-positive topK falls back to the
// configured default. Zero retrieved methodologies is not an error; the
// enhancer handles that case itself.
func (p *Pipeline) Enhance(ctx context.Context, userInput string, topK int) (EnhanceResult, error) {
	if topK <= 0 {
		topK = p.defaultTopK
	}

	retrieved, err := p.store.Search(ctx, userInput, topK)
	if err != nil {
		return EnhanceResult{}, err
	}

	prompt, err := p.enhancer.Enhance(ctx, userInput, retrieved)
	if err != nil {
		return EnhanceResult{}, err
	}

	p.logger.Info("enhancement complete",
		"backend", p.store.Backend(), "retrieved", len(retrieved))

	return EnhanceResult{
		Retrieved: retrieved,
		Backend:   p.store.Backend(),
		Prompt:    prompt,
	}, nil
}
