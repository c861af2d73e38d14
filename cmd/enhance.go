package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var enhanceTopK int

var enhanceCmd = &cobra.Command{
	Use:   "enhance <prompt>",
	Short: "Enhance a prompt with retrieved methodologies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnhance(cmd, args[0])
	},
}

func init() {
	enhanceCmd.Flags().IntVar(&enhanceTopK, "top-k", 0,
		"number of methodologies to retrieve (default 3)")
	rootCmd.AddCommand(enhanceCmd)
}

func runEnhance(cmd *cobra.Command, userInput string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.Pipeline.Enhance(ctx, userInput, enhanceTopK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Retrieved %d methodologies from %s\n", len(result.Retrieved), result.Backend)
	for i, m := range result.Retrieved {
		fmt.Fprintf(out, "  %d. %s (score %.3f)\n", i+1, m.Title, m.Score)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Enhanced prompt:")
	fmt.Fprintln(out, result.Prompt)
	return nil
}
