// Package llm provides the chat completion transport for the pipeline.
//
// The transport targets any OpenAI-compatible /chat/completions endpoint,
// configured via LLM_API_BASE, LLM_API_KEY, and LLM_MODEL_NAME. Calls are
// single-shot and non-streaming; there is no internal retry, a failed call
// is terminal for the workflow that issued it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrMissingAPIKey indicates LLM_API_KEY is not configured.
	ErrMissingAPIKey = errors.New("missing LLM API key")

	// ErrCallFailed indicates the chat completion call failed
	// (network, auth, non-2xx, or an empty response).
	ErrCallFailed = errors.New("LLM call failed")
)

// completionTimeout bounds a single chat completion call.
const completionTimeout = 60 * time.Second

// defaultTemperature matches the upstream prompt workflows; extraction and
// enhancement both want some variability.
const defaultTemperature = 0.7

// Config holds the transport configuration.
type Config struct {
	APIBase string // e.g. https://api.openai.com/v1
	APIKey  string
	Model   string // e.g. gpt-4o-mini
}

// Client is a thin wrapper around the OpenAI-compatible chat API.
// It is safe for concurrent use.
type Client struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

// New creates a chat completion client. It fails fast with ErrMissingAPIKey
// so a misconfigured process dies at startup rather than on first use.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: set LLM_API_KEY", ErrMissingAPIKey)
	}
	if logger == nil {
		logger = slog.Default()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		apiCfg.BaseURL = cfg.APIBase
	}

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Complete performs a single non-streaming chat completion with the given
// system and user prompts and returns the assistant's text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: defaultTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		c.logger.Error("chat completion failed", "model", c.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrCallFailed, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", ErrCallFailed)
	}

	c.logger.Debug("chat completion succeeded",
		"model", c.model,
		"duration", time.Since(start),
		"response_length", len(resp.Choices[0].Message.Content))

	return resp.Choices[0].Message.Content, nil
}
