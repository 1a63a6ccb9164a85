package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"imageharvest/internal/config"
	"imageharvest/internal/evaluate"
	"imageharvest/internal/log"
	"imageharvest/internal/pipeline"
)

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Re-evaluate archived candidates without new searches",
		Long: `Evaluate re-runs candidate selection over images already archived by a
previous fetch run. For each selected keyword missing its primary output,
the archived candidates are sent to Gemini, and the chosen one is promoted
to the primary output directory.

No search or download requests are made, so this command spends Gemini
quota only. It is useful after a fetch run with evaluation disabled, or to
redo choices with a different model.

Examples:
  # Evaluate archived candidates for every unfinished keyword
  imageharvest evaluate

  # Evaluate only part 3
  imageharvest evaluate --parts 3`,
		Args: cobra.NoArgs,
		RunE: runEvaluateCmd,
	}

	addCommonFlags(cmd)

	cmd.Flags().String("gemini-key", "", "Gemini API key for candidate evaluation")

	return cmd
}

// runEvaluateCmd executes the evaluate command.
func runEvaluateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	// Re-evaluation is this command's whole purpose; the search
	// credentials required by fetch are not needed here.
	cfg.UseEvaluation = true
	if cfg.GeminiAPIKey == "" {
		return config.ErrMissingGeminiKey
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runEvaluate(ctx, cfg, logger)
}

// runEvaluate wires the evaluator and re-processes archived candidates.
func runEvaluate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	selected, err := selectKeywords(cfg)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("selection matched no keywords in %s", cfg.KeywordsFile)
	}

	logger.Info("starting re-evaluation",
		"keywords", len(selected),
		"candidatesDir", cfg.CandidatesDir,
		"outputDir", cfg.OutputDir,
	)

	gemini := evaluate.NewGeminiClient(cfg.GeminiAPIKey,
		evaluate.WithGeminiLogger(logger),
	)
	evaluator := evaluate.New(gemini, evaluate.WithLogger(logger))

	runner := pipeline.New(nil, evaluator, nil,
		pipeline.WithLogger(logger),
		pipeline.WithDirs(cfg.OutputDir, cfg.CandidatesDir),
		pipeline.WithCooldown(cfg.CooldownEvery, cfg.Cooldown),
	)

	summary, runErr := runner.RunEvaluate(ctx, selected)

	if err := outputReport(cfg, summary); err != nil {
		logger.Error("report failed", "error", err)
	}

	return runErr
}
