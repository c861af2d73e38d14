// Package app provides application initialization and wiring.
//
// App is the container that assembles the pipeline from configuration:
// the LLM client, the knowledge store backend, the URL fetcher, and the
// extract and enhance stages.
package app

import (
	"fmt"
	"log/slog"

	"github.com/dulicode/better-prompts/internal/config"
	"github.com/dulicode/better-prompts/internal/enhance"
	"github.com/dulicode/better-prompts/internal/extract"
	"github.com/dulicode/better-prompts/internal/fetch"
	"github.com/dulicode/better-prompts/internal/knowledge"
	"github.com/dulicode/better-prompts/internal/llm"
	"github.com/dulicode/better-prompts/internal/pipeline"
)

// App is the assembled application.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    knowledge.Store
	Pipeline *pipeline.Pipeline
}

// New builds an App from configuration. Construction fails fast on
// missing LLM credentials or incomplete backend configuration; backend
// connections themselves are deferred until first use.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	completer, err := llm.New(llm.Config{
		APIBase: cfg.LLMAPIBase,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModelName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	store, err := knowledge.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}

	p := pipeline.New(
		fetch.New(logger),
		extract.New(completer, logger),
		enhance.New(completer, logger),
		store,
		logger,
		pipeline.WithDefaultTopK(cfg.TopK),
	)

	logger.Info("application assembled",
		"backend", store.Backend(), "model", cfg.LLMModelName)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Pipeline: p,
	}, nil
}

// Close releases backend resources.
func (a *App) Close() error {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("closing knowledge store: %w", err)
		}
	}
	return nil
}
