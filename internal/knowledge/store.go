package knowledge

import (
	"context"
	"log/slog"

	"github.com/dulicode/better-prompts/internal/config"
	"github.com/dulicode/better-prompts/internal/embeddings"
)

// Store is the capability contract shared by both knowledge backends.
//
// Store parses the raw extractor payload and persists each methodology. A
// malformed payload fails with ErrInvalidPayload before any write; an
// item-level failure aborts the remaining items with already-inserted ones
// left in place. Callers must treat storage as at-least-once.
//
// Search returns at most topK methodologies, most relevant first, and fails
// with ErrRetrieval on backend unavailability.
type Store interface {
	Store(ctx context.Context, raw []byte) (StoreResult, error)
	Search(ctx context.Context, query string, topK int) ([]Methodology, error)

	// Backend returns a human-readable backend label for result bundles.
	Backend() string

	Close() error
}

// Embedder is the embedding capability the local backend requires.
// Defined here, by the consumer, rather than exported from the provider.
type Embedder interface {
	Ready(ctx context.Context) error
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

// New selects and constructs the configured backend. This is the single
// decision point for backend identity; it is made once per invocation
// context and not re-evaluated mid-pipeline.
func New(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.KnowledgeStorage == config.StorageCloud {
		return NewDify(DifyConfig{
			BaseURL:    cfg.DifyBaseURL,
			APIKey:     cfg.DifyAPIKey,
			DatasetID:  cfg.DifyDatasetID,
			DocumentID: cfg.DifyDocumentID,
		}, logger.With("component", "knowledge.dify"))
	}

	embedder, err := embeddings.NewOllama(embeddings.Config{
		Host:  cfg.OllamaHost,
		Model: cfg.EmbeddingModel,
	}, logger.With("component", "embeddings"))
	if err != nil {
		return nil, err
	}

	return NewPostgres(PostgresConfig{
		ConnString: cfg.PostgresConnString(),
		MigrateURL: cfg.PostgresMigrateURL(),
	}, embedder, logger.With("component", "knowledge.postgres")), nil
}
