// Package embeddings provides the embedding provider for the local knowledge
// store.
//
// Texts are embedded with an Ollama model (nomic-embed-text by default,
// 768 dimensions). Before the first embedding call the provider verifies
// once that the Ollama server is reachable and the model is installed; the
// outcome of that check is cached for the process lifetime behind a
// sync.Once so concurrent first use cannot race.
package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
)

// ErrUnavailable indicates the embedding backend is unreachable or
// mis-configured (server down, model not pulled).
var ErrUnavailable = errors.New("embedding provider unavailable")

// Dimension is the vector dimension produced by nomic-embed-text. The
// methodologies table schema declares vector(768); an embedder producing a
// different dimension is a fatal storage error.
const Dimension = 768

const (
	// readinessTimeout bounds the one-time /api/tags probe.
	readinessTimeout = 5 * time.Second

	// embedTimeout bounds a single embedding call.
	embedTimeout = 30 * time.Second
)

// Config holds the Ollama connection settings.
type Config struct {
	Host  string // e.g. http://localhost:11434
	Model string // e.g. nomic-embed-text
}

// Ollama embeds text via a local Ollama server.
// Safe for concurrent use; the readiness check runs at most once.
type Ollama struct {
	cfg    Config
	client *ollama.LLM
	http   *http.Client
	logger *slog.Logger

	readyOnce sync.Once
	readyErr  error
}

// NewOllama creates the provider. No network calls happen here; readiness
// is checked lazily on first use.
func NewOllama(cfg Config, logger *slog.Logger) (*Ollama, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: creating ollama client: %v", ErrUnavailable, err)
	}

	return &Ollama{
		cfg:    cfg,
		client: client,
		http:   &http.Client{Timeout: readinessTimeout},
		logger: logger,
	}, nil
}

// Ready verifies the Ollama server is reachable and the configured model is
// installed. The check runs once per process; its outcome (success or
// failure) is cached. A failure therefore sticks for the process lifetime:
// if Ollama was down at first use, restart the process after bringing it
// back rather than waiting for a retry that will not come.
func (o *Ollama) Ready(ctx context.Context) error {
	o.readyOnce.Do(func() {
		o.readyErr = o.checkModel(ctx)
		if o.readyErr == nil {
			o.logger.Debug("embedding provider ready",
				"host", o.cfg.Host, "model", o.cfg.Model)
		}
	})
	return o.readyErr
}

// checkModel lists installed models via the native Ollama API and confirms
// the configured model is present.
func (o *Ollama) checkModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.Host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("%w: building readiness request: %v", ErrUnavailable, err)
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama not reachable at %s: %v", ErrUnavailable, o.cfg.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("%w: parsing model list: %v", ErrUnavailable, err)
	}

	for _, m := range tags.Models {
		// Installed names carry a tag suffix ("nomic-embed-text:latest").
		if m.Name == o.cfg.Model || strings.HasPrefix(m.Name, o.cfg.Model+":") {
			return nil
		}
	}

	return fmt.Errorf("%w: model %q not installed (run: ollama pull %s)",
		ErrUnavailable, o.cfg.Model, o.cfg.Model)
}

// Embed returns the embedding vector for the given text.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := o.Ready(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vectors, err := o.client.CreateEmbedding(callCtx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrUnavailable)
	}

	return vectors[0], nil
}

// Dim reports the embedding dimension this provider produces.
func (o *Ollama) Dim() int {
	return Dimension
}
