package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dulicode/better-prompts/internal/app"
	"github.com/dulicode/better-prompts/internal/config"
	"github.com/dulicode/better-prompts/internal/log"
	"github.com/dulicode/better-prompts/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools on stdio",
	Long: `Start the Model Context Protocol server on stdio.

The server exposes two tools: extract_methodology stores methodologies
distilled from text or URLs, and enhance_prompt rewrites a user prompt
with retrieved methodologies.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// runMCP initializes the application and serves MCP on stdio until the
// process is signalled.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Stdout carries JSON-RPC; the logger writes to stderr.
	logger := log.New(log.Config{JSON: true})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	server, err := mcp.NewServer(mcp.Config{
		Name:     "better-prompts",
		Version:  AppVersion,
		Pipeline: a.Pipeline,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "transport", "stdio", "backend", a.Store.Backend())

	if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	logger.Info("MCP server shut down gracefully")
	return nil
}
