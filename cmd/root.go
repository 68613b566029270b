// Package cmd implements the salesagent CLI.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"salesagent/internal/app"
	"salesagent/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "salesagent",
	Short: "LLM-driven sales analysis agent",
	Long: `salesagent answers sales questions by orchestrating an LLM with tools:
a text-to-SQL tool over the sales database, semantic search over local
documents, chart generation and Wikipedia lookups.

Running salesagent without a subcommand starts the interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setupApp loads configuration and assembles the application.
// The returned cleanup must be called before exit.
func setupApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, a.Close, nil
}
