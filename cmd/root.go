// Package cmd implements the better-prompts command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "better-prompts",
	Short: "Methodology knowledge base and prompt enhancer",
	Long: `better-prompts distills actionable methodologies from articles and uses
them to enhance prompts.

Run "better-prompts mcp" to serve the extract_methodology and
enhance_prompt tools over the Model Context Protocol on stdio, or use the
extract and enhance subcommands for one-shot runs.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
