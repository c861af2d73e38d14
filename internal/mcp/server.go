// Package mcp exposes the better-prompts pipeline over the Model Context
// Protocol. Two tools are served: extract_methodology ingests text or
// URLs into the knowledge store, and enhance_prompt retrieves stored
// methodologies to rewrite a user prompt.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dulicode/better-prompts/internal/pipeline"
)

// Pipeline is the subset of the pipeline the server needs.
type Pipeline interface {
	Ingest(ctx context.Context, content string) (pipeline.IngestResult, error)
	Enhance(ctx context.Context, userInput string, topK int) (pipeline.EnhanceResult, error)
}

// Server wraps the MCP SDK server around the better-prompts pipeline.
type Server struct {
	mcpServer *mcp.Server
	pipeline  Pipeline
	logger    *slog.Logger
	name      string
	version   string
}

// Config holds MCP server configuration.
type Config struct {
	Name     string
	Version  string
	Pipeline Pipeline
	Logger   *slog.Logger
}

// NewServer creates an MCP server with both tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		pipeline:  cfg.Pipeline,
		logger:    cfg.Logger,
		name:      cfg.Name,
		version:   cfg.Version,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server on the given transport. This is a blocking
// call that handles all MCP protocol communication.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("starting MCP server", "name", s.name, "version", s.version)
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	if err := s.registerExtractMethodology(); err != nil {
		return fmt.Errorf("registering extract_methodology: %w", err)
	}
	if err := s.registerEnhancePrompt(); err != nil {
		return fmt.Errorf("registering enhance_prompt: %w", err)
	}
	return nil
}

// ExtractInput defines the input schema for the extract_methodology tool.
type ExtractInput struct {
	Content string `json:"content" jsonschema:"Text content or a URL to extract methodologies from"`
}

// EnhanceInput defines the input schema for the enhance_prompt tool.
type EnhanceInput struct {
	UserInput string `json:"user_input" jsonschema:"The original user prompt to enhance"`
	TopK      int    `json:"top_k,omitempty" jsonschema:"How many related methodologies to retrieve (default 3)"`
}

func (s *Server) registerExtractMethodology() error {
	inputSchema, err := jsonschema.For[ExtractInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name: "extract_methodology",
		Description: `Extract methodologies from text or a URL and store them in the knowledge base.

This tool:
1. Accepts either literal text content or a URL
2. For URLs, automatically extracts the readable page content
3. Uses an LLM to distill actionable methodologies from the content
4. Stores the methodologies in the configured knowledge base (local or cloud)
5. Returns the extraction output and storage status`,
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, s.handleExtract)
	return nil
}

func (s *Server) registerEnhancePrompt() error {
	inputSchema, err := jsonschema.For[EnhanceInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name: "enhance_prompt",
		Description: `Retrieve related methodologies from the knowledge base and generate an enhanced prompt.

This tool:
1. Accepts the user's original prompt
2. Retrieves the most relevant methodologies from the knowledge base (top 3 by default)
3. Uses an LLM to rewrite the prompt around the retrieved methodologies
4. Returns a more professional, more directive prompt`,
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, s.handleEnhance)
	return nil
}

func (s *Server) handleExtract(ctx context.Context, _ *mcp.CallToolRequest, in ExtractInput) (*mcp.CallToolResult, any, error) {
	if in.Content == "" {
		return errorResult("content is required"), nil, nil
	}

	result, err := s.pipeline.Ingest(ctx, in.Content)
	if err != nil {
		s.logger.Error("extract_methodology failed", "error", err)
		return errorResult(err.Error()), nil, nil
	}

	text := fmt.Sprintf(`Extraction complete!

Extracted methodologies:
%s

Storage result:
- Backend: %s
- Stored count: %d
- Status: success`, result.Extraction, result.Backend, result.Stored.StoredCount)

	return textResult(text), nil, nil
}

func (s *Server) handleEnhance(ctx context.Context, _ *mcp.CallToolRequest, in EnhanceInput) (*mcp.CallToolResult, any, error) {
	if in.UserInput == "" {
		return errorResult("user_input is required"), nil, nil
	}

	result, err := s.pipeline.Enhance(ctx, in.UserInput, in.TopK)
	if err != nil {
		s.logger.Error("enhance_prompt failed", "error", err)
		return errorResult(err.Error()), nil, nil
	}

	text := fmt.Sprintf(`Prompt enhancement complete!

Related methodologies retrieved: %d
Retrieval backend: %s

Enhanced prompt:
%s`, len(result.Retrieved), result.Backend, result.Prompt)

	return textResult(text), nil, nil
}
