package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"imageharvest/internal/config"
	"imageharvest/internal/keyword"
	"imageharvest/internal/model"
	"imageharvest/internal/report"
)

// addCommonFlags registers the flags shared by every keyword-walking
// subcommand: paths, keyword selection, pacing, and report output.
func addCommonFlags(cmd *cobra.Command) {
	// Paths
	cmd.Flags().StringP("keywords", "k", config.DefaultKeywordsFile,
		"Keyword list JSON file")
	cmd.Flags().String("output-dir", config.DefaultOutputDir,
		"Directory for primary output images")
	cmd.Flags().String("candidates-dir", config.DefaultCandidatesDir,
		"Directory for per-keyword candidate archives")

	// Keyword selection
	cmd.Flags().StringSlice("ids", nil,
		"Process only these keyword IDs; accepts single IDs (3-2) and same-part ranges (3-2:3-9)")
	cmd.Flags().StringSlice("parts", nil,
		"Process only keywords whose ID starts with one of these part prefixes")
	cmd.Flags().Int("start", 0,
		"Zero-based index of the first keyword to process")
	cmd.Flags().Int("end", 0,
		"Index after the last keyword to process (0 = end of list)")

	// Pacing
	cmd.Flags().Int("cooldown-every", config.DefaultCooldownEvery,
		"Pause after this many processed keywords (0 disables cooldown)")
	cmd.Flags().Duration("cooldown", config.DefaultCooldown,
		"Pause duration between keyword batches")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .imageharvest.yaml in current or home directory)")

	// Report output
	cmd.Flags().BoolP("markdown", "m", false,
		"Output a Markdown run summary instead of plain text")
	cmd.Flags().StringP("report", "r", "",
		"Write the run summary to this file instead of stdout")
}

// buildConfig assembles a Config for cmd. Precedence from weakest to
// strongest: built-in defaults, configuration file, environment
// credentials, explicitly set flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	explicitPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = explicitPath

	configPath := config.FindConfigFile(explicitPath)
	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	} else if explicitPath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", explicitPath)
	}

	cfg.ApplyEnv()

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// applyFlags copies every explicitly set flag onto cfg. Unset flags leave
// the file/env/default value alone, which is what gives flags the highest
// precedence without clobbering the rest.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	apply := func(name string, fn func() error) error {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			return nil
		}
		return fn()
	}

	stringFlags := map[string]*string{
		"keywords":           &cfg.KeywordsFile,
		"output-dir":         &cfg.OutputDir,
		"candidates-dir":     &cfg.CandidatesDir,
		"search-key":         &cfg.SearchAPIKey,
		"engine-id":          &cfg.SearchEngineID,
		"gemini-key":         &cfg.GeminiAPIKey,
		"img-size":           &cfg.ImgSize,
		"img-type":           &cfg.ImgType,
		"img-color-type":     &cfg.ImgColorType,
		"img-dominant-color": &cfg.ImgDominantColor,
		"file-type":          &cfg.FileType,
		"date-restrict":      &cfg.DateRestrict,
		"report":             &cfg.ReportFile,
	}
	for name, dst := range stringFlags {
		if err = apply(name, func() error {
			*dst, err = flags.GetString(name)
			return err
		}); err != nil {
			return err
		}
	}

	boolFlags := map[string]*bool{
		"evaluate":          &cfg.UseEvaluation,
		"sort-by-date":      &cfg.SortByDate,
		"exclude-watermark": &cfg.ExcludeWatermark,
		"markdown":          &cfg.MarkdownReport,
	}
	for name, dst := range boolFlags {
		if err = apply(name, func() error {
			*dst, err = flags.GetBool(name)
			return err
		}); err != nil {
			return err
		}
	}

	intFlags := map[string]*int{
		"num":            &cfg.NumResults,
		"start":          &cfg.StartIndex,
		"end":            &cfg.EndIndex,
		"cooldown-every": &cfg.CooldownEvery,
		"retries":        &cfg.SearchRetries,
	}
	for name, dst := range intFlags {
		if err = apply(name, func() error {
			*dst, err = flags.GetInt(name)
			return err
		}); err != nil {
			return err
		}
	}

	durationFlags := map[string]*time.Duration{
		"cooldown": &cfg.Cooldown,
		"timeout":  &cfg.RequestTimeout,
	}
	for name, dst := range durationFlags {
		if err = apply(name, func() error {
			*dst, err = flags.GetDuration(name)
			return err
		}); err != nil {
			return err
		}
	}

	sliceFlags := map[string]*[]string{
		"ids":   &cfg.ProcessIDs,
		"parts": &cfg.ProcessParts,
	}
	for name, dst := range sliceFlags {
		if err = apply(name, func() error {
			*dst, err = flags.GetStringSlice(name)
			return err
		}); err != nil {
			return err
		}
	}

	return nil
}

// selectKeywords loads the keyword list and applies the configured
// selection.
func selectKeywords(cfg *config.Config) ([]model.Keyword, error) {
	keywords, err := keyword.Load(cfg.KeywordsFile)
	if err != nil {
		return nil, err
	}

	return keyword.Resolve(keywords, keyword.Selection{
		IDs:        cfg.ProcessIDs,
		Parts:      cfg.ProcessParts,
		StartIndex: cfg.StartIndex,
		EndIndex:   cfg.EndIndex,
	})
}

// outputReport renders the run summary in the requested format.
func outputReport(cfg *config.Config, summary *model.RunSummary) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644) //nolint:gosec // Run summaries carry no secrets
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	if cfg.MarkdownReport {
		writer = report.NewMarkdownWriter(output)
	} else {
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(summary)
	return err
}
