package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dulicode/better-prompts/internal/app"
	"github.com/dulicode/better-prompts/internal/config"
	"github.com/dulicode/better-prompts/internal/log"
)

var extractCmd = &cobra.Command{
	Use:   "extract <text-or-url>",
	Short: "Extract methodologies from text or a URL and store them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, content string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.Pipeline.Ingest(ctx, content)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Extracted methodologies:")
	fmt.Fprintln(out, result.Extraction)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Backend: %s\n", result.Backend)
	fmt.Fprintf(out, "Stored count: %d\n", result.Stored.StoredCount)
	for _, item := range result.Stored.Items {
		fmt.Fprintf(out, "  - %s (id %s): %s\n", item.Title, item.ID, item.Status)
	}
	return nil
}

// setupApp loads configuration and assembles the application for one-shot
// commands.
func setupApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: slog.LevelWarn})

	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}
