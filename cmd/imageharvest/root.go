// Package main provides the entry point for the imageharvest CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for imageharvest.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imageharvest",
		Short: "Batch image fetcher driven by a keyword list",
		Long: `imageharvest walks a keyword list and fetches one representative image
per keyword from Google Custom Search. Candidates can be ranked by Gemini
before the winner is chosen. Every accepted candidate is archived alongside
the primary output, and finished keywords are skipped on re-runs, so an
interrupted batch resumes exactly where it stopped.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewEvaluateCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
