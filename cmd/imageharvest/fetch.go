package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"imageharvest/internal/config"
	"imageharvest/internal/evaluate"
	"imageharvest/internal/fetch"
	"imageharvest/internal/log"
	"imageharvest/internal/pipeline"
	"imageharvest/internal/search"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch one image per keyword from Google Custom Search",
		Long: `Fetch walks the keyword list and downloads one representative image per
keyword. For each keyword it searches Google Custom Search for image
candidates, optionally asks Gemini to pick the best one, downloads and
normalizes the winner to JPEG, and archives every accepted candidate.

Keywords whose primary output already exists are skipped, so an
interrupted run resumes where it stopped. When the search API reports its
daily quota is spent, the run stops immediately; unfinished keywords stay
eligible for the next run.

Examples:
  # Fetch images for every keyword in keywords.json
  imageharvest fetch

  # Fetch with Gemini picking among 8 candidates per keyword
  imageharvest fetch --evaluate --num 8

  # Fetch only part 3, keywords 3-2 through 3-9
  imageharvest fetch --ids 3-2:3-9

  # Restrict to large recent photos and write a Markdown summary
  imageharvest fetch --img-size xlarge --date-restrict m6 --markdown --report run.md

Credentials come from flags, the config file, or the environment
(GOOGLE_CUSTOM_API_KEY, GOOGLE_CX, and GOOGLE_AI_API_KEY).`,
		Args: cobra.NoArgs,
		RunE: runFetchCmd,
	}

	addCommonFlags(cmd)

	// Credentials
	cmd.Flags().String("search-key", "", "Google Custom Search API key")
	cmd.Flags().String("engine-id", "", "Custom Search Engine ID (cx)")
	cmd.Flags().String("gemini-key", "", "Gemini API key for candidate evaluation")

	// Search behavior
	cmd.Flags().IntP("num", "n", config.DefaultNumResults,
		"Number of candidates to request per keyword (1-100)")
	cmd.Flags().BoolP("evaluate", "e", false,
		"Let Gemini choose the best candidate instead of taking the first")
	cmd.Flags().String("img-size", config.DefaultImgSize,
		"Image size filter (icon, small, medium, large, xlarge, xxlarge, huge)")
	cmd.Flags().String("img-type", config.DefaultImgType,
		"Image type filter (clipart, face, lineart, stock, photo, animated)")
	cmd.Flags().String("img-color-type", "",
		"Image color filter (color, gray, mono, trans)")
	cmd.Flags().String("img-dominant-color", "",
		"Dominant color filter (e.g. red, blue, white)")
	cmd.Flags().String("file-type", "",
		"Restrict results to one file type (e.g. jpg, png)")
	cmd.Flags().String("date-restrict", "",
		"Restrict results to a recent period (d7, w2, m6, y1)")
	cmd.Flags().Bool("sort-by-date", false,
		"Sort results newest first instead of by relevance")
	cmd.Flags().Bool("exclude-watermark", true,
		"Append stock-photo exclusion terms to every query")

	// Download behavior
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each image download")
	cmd.Flags().Int("retries", config.DefaultSearchRetries,
		"Attempts per search request before the keyword fails")

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runFetch(ctx, cfg, logger)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// runFetch wires the pipeline and processes the selected keywords.
func runFetch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	selected, err := selectKeywords(cfg)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("selection matched no keywords in %s", cfg.KeywordsFile)
	}

	logger.Info("starting fetch",
		"keywords", len(selected),
		"numResults", cfg.NumResults,
		"evaluate", cfg.UseEvaluation,
		"outputDir", cfg.OutputDir,
	)

	searcher := search.NewClient(cfg.SearchAPIKey, cfg.SearchEngineID,
		search.WithLogger(logger),
		search.WithFilters(search.Filters{
			Size:          cfg.ImgSize,
			Type:          cfg.ImgType,
			ColorType:     cfg.ImgColorType,
			DominantColor: cfg.ImgDominantColor,
			FileType:      cfg.FileType,
			DateRestrict:  cfg.DateRestrict,
			SortByDate:    cfg.SortByDate,
		}),
		search.WithExcludeWatermark(cfg.ExcludeWatermark),
		search.WithRetries(cfg.SearchRetries),
	)

	var gemini *evaluate.GeminiClient
	if cfg.UseEvaluation {
		gemini = evaluate.NewGeminiClient(cfg.GeminiAPIKey,
			evaluate.WithGeminiLogger(logger),
		)
	}
	evaluator := evaluate.New(gemini, evaluate.WithLogger(logger))

	fetcher := fetch.New(
		fetch.WithTimeout(cfg.RequestTimeout),
		fetch.WithMaxBytes(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	)

	runner := pipeline.New(searcher, evaluator, fetcher,
		pipeline.WithLogger(logger),
		pipeline.WithDirs(cfg.OutputDir, cfg.CandidatesDir),
		pipeline.WithNumResults(cfg.NumResults),
		pipeline.WithCooldown(cfg.CooldownEvery, cfg.Cooldown),
	)

	summary, runErr := runner.Run(ctx, selected)

	if err := outputReport(cfg, summary); err != nil {
		logger.Error("report failed", "error", err)
	}

	return runErr
}
