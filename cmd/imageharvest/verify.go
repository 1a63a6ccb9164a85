package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"imageharvest/internal/config"
	"imageharvest/internal/log"
	"imageharvest/internal/verify"
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit the output directory against the keyword list",
		Long: `Verify checks that every selected keyword has a usable primary output:
the file exists, meets the minimum size, and decodes as a JPEG. Corrupted
outputs can be removed so the next fetch run regenerates them.

Verification touches no APIs and runs file checks concurrently.

Examples:
  # Report missing and corrupted outputs
  imageharvest verify

  # Remove corrupted outputs so fetch redoes them
  imageharvest verify --remove`,
		Args: cobra.NoArgs,
		RunE: runVerifyCmd,
	}

	cmd.Flags().StringP("keywords", "k", config.DefaultKeywordsFile,
		"Keyword list JSON file")
	cmd.Flags().String("output-dir", config.DefaultOutputDir,
		"Directory holding primary output images")
	cmd.Flags().StringSlice("ids", nil,
		"Verify only these keyword IDs; accepts single IDs and same-part ranges")
	cmd.Flags().StringSlice("parts", nil,
		"Verify only keywords whose ID starts with one of these part prefixes")
	cmd.Flags().Int("start", 0,
		"Zero-based index of the first keyword to verify")
	cmd.Flags().Int("end", 0,
		"Index after the last keyword to verify (0 = end of list)")
	cmd.Flags().Bool("remove", false,
		"Delete corrupted output files")
	cmd.Flags().Int("concurrency", 8,
		"Number of files checked in parallel")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .imageharvest.yaml in current or home directory)")

	return cmd
}

// runVerifyCmd executes the verify command.
func runVerifyCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	remove, err := cmd.Flags().GetBool("remove")
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	selected, err := selectKeywords(cfg)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("selection matched no keywords in %s", cfg.KeywordsFile)
	}

	scanner := verify.NewScanner(cfg.OutputDir,
		verify.WithConcurrency(concurrency),
		verify.WithRemoveCorrupted(remove),
		verify.WithLogger(logger),
	)

	rep, err := scanner.Scan(ctx, selected)
	if err != nil {
		return err
	}

	printVerifyReport(cmd, rep)

	if n := rep.Missing() + rep.Corrupted(); n > 0 {
		return fmt.Errorf("%d of %d outputs need fetching", n, len(rep.Findings))
	}
	return nil
}

// printVerifyReport writes the audit outcome to the command's output.
func printVerifyReport(cmd *cobra.Command, rep *verify.Report) {
	out := cmd.OutOrStdout()

	for _, f := range rep.Findings {
		if f.Status == verify.StatusValid {
			continue
		}
		suffix := ""
		if f.Removed {
			suffix = " (removed)"
		}
		fmt.Fprintf(out, "[%s] %s %s: %s%s\n",
			f.Status, f.Keyword.ID, f.Keyword.KeywordFormatted, f.Reason, suffix)
	}

	fmt.Fprintf(out, "\nChecked %d keywords: %d valid, %d missing, %d corrupted\n",
		len(rep.Findings), rep.Valid(), rep.Missing(), rep.Corrupted())
}
