package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"imageharvest/internal/config"
	"imageharvest/internal/fetch"
	"imageharvest/internal/model"
	"imageharvest/internal/retry"
	"imageharvest/internal/search"
)

// Per-keyword failure causes. Both mark the keyword Failed while the run
// continues with the next keyword.
var (
	// ErrNoResults marks a search that returned zero candidates.
	ErrNoResults = errors.New("search returned no results")

	// ErrAllCandidatesFailed marks a keyword whose every candidate was
	// rejected during download or validation.
	ErrAllCandidatesFailed = errors.New("all candidates failed validation")
)

// Searcher returns ranked image candidates for a query.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]model.Candidate, error)
}

// Evaluator picks the best candidate among downloaded images.
type Evaluator interface {
	// Enabled reports whether evaluation is configured. When false the
	// pipeline takes the top-ranked candidate without downloading extras
	// up front.
	Enabled() bool

	// Evaluate chooses among images. It never fails the keyword: on any
	// evaluation problem it returns the fallback choice.
	Evaluate(ctx context.Context, kw model.Keyword, images []model.CandidateImage, total int) model.EvaluationResult
}

// Fetcher downloads and validates a single candidate image.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) model.DownloadOutcome
}

// Runner processes keywords sequentially through the
// search/evaluate/fetch pipeline.
type Runner struct {
	searcher  Searcher
	evaluator Evaluator
	fetcher   Fetcher
	clock     retry.Clock
	logger    *slog.Logger
	progress  io.Writer

	outputDir     string
	candidatesDir string
	numResults    int
	cooldownEvery int
	cooldown      time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock used for cooldown pacing and timing.
func WithClock(c retry.Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithProgress sets the writer for human-readable progress lines.
func WithProgress(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.progress = w
		}
	}
}

// WithDirs sets the primary output and candidate archive directories.
func WithDirs(outputDir, candidatesDir string) Option {
	return func(r *Runner) {
		if outputDir != "" {
			r.outputDir = outputDir
		}
		if candidatesDir != "" {
			r.candidatesDir = candidatesDir
		}
	}
}

// WithNumResults sets how many candidates are requested per keyword.
func WithNumResults(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.numResults = n
		}
	}
}

// WithCooldown pauses for d after every n processed keywords. Skipped
// keywords do not count toward the threshold. n == 0 disables cooldown.
func WithCooldown(n int, d time.Duration) Option {
	return func(r *Runner) {
		r.cooldownEvery = n
		r.cooldown = d
	}
}

// New creates a Runner over the given pipeline stages.
func New(searcher Searcher, evaluator Evaluator, fetcher Fetcher, opts ...Option) *Runner {
	r := &Runner{
		searcher:      searcher,
		evaluator:     evaluator,
		fetcher:       fetcher,
		clock:         retry.SystemClock{},
		progress:      os.Stdout,
		outputDir:     config.DefaultOutputDir,
		candidatesDir: config.DefaultCandidatesDir,
		numResults:    config.DefaultNumResults,
		cooldownEvery: config.DefaultCooldownEvery,
		cooldown:      config.DefaultCooldown,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run processes keywords in order and returns a summary of every keyword
// reached. A daily-quota error or a filesystem write failure aborts the
// run; the summary is still returned alongside the error so partial
// progress can be reported.
func (r *Runner) Run(ctx context.Context, keywords []model.Keyword) (*model.RunSummary, error) {
	summary := &model.RunSummary{StartedAt: r.clock.Now()}
	defer func() { summary.Elapsed = r.clock.Now().Sub(summary.StartedAt) }()

	processed := 0
	for i, kw := range keywords {
		if err := ctx.Err(); err != nil {
			summary.Aborted = err
			return summary, err
		}

		res, fatal := r.processKeyword(ctx, kw)
		summary.Add(res)
		r.report(res)

		if fatal != nil {
			summary.Aborted = fatal
			return summary, fatal
		}
		if res.State == model.StateFailed && errors.Is(res.Err, search.ErrQuotaExceeded) {
			summary.Aborted = res.Err
			return summary, res.Err
		}

		if res.State == model.StateSkipped {
			continue
		}
		processed++
		if r.cooldownEvery > 0 && processed%r.cooldownEvery == 0 && i < len(keywords)-1 {
			fmt.Fprintf(r.progress, "processed %d keywords, cooling down for %s\n", processed, r.cooldown)
			if err := r.clock.Sleep(ctx, r.cooldown); err != nil {
				summary.Aborted = err
				return summary, err
			}
		}
	}
	return summary, nil
}

// processKeyword drives one keyword through its state machine. The second
// return value is non-nil only for failures that must abort the whole run,
// such as the output directory becoming unwritable.
func (r *Runner) processKeyword(ctx context.Context, kw model.Keyword) (*model.KeywordResult, error) {
	res := model.NewKeywordResult(kw)
	start := r.clock.Now()
	defer func() { res.Elapsed = r.clock.Now().Sub(start) }()

	if AlreadyDone(r.outputDir, kw) {
		res.State = model.StateSkipped
		r.logger.Debug("keyword already done", "id", kw.ID, "path", kw.PrimaryPath(r.outputDir))
		return res, nil
	}

	res.State = model.StateSearching
	candidates, err := r.searcher.Search(ctx, kw.KeywordFormatted, r.numResults)
	if err != nil {
		res.State = model.StateFailed
		res.Err = fmt.Errorf("search for %q failed: %w", kw.KeywordFormatted, err)
		return res, nil
	}
	if len(candidates) == 0 {
		res.State = model.StateFailed
		res.Err = fmt.Errorf("%w: %q", ErrNoResults, kw.KeywordFormatted)
		return res, nil
	}
	res.CandidatesFound = len(candidates)

	// Download outcomes are cached by rank so the evaluation and fetch
	// phases never download the same URL twice.
	outcomes := make([]*model.DownloadOutcome, len(candidates))
	dedup := &fetch.DedupFilter{}

	res.State = model.StateEvaluating
	chosen := 0
	if r.evaluator.Enabled() {
		var images []model.CandidateImage
		for _, c := range candidates {
			out, werr := r.fetchCandidate(ctx, kw, c, outcomes, dedup, res)
			if werr != nil {
				res.State = model.StateFailed
				res.Err = werr
				return res, werr
			}
			if out.OK {
				images = append(images, model.CandidateImage{Rank: c.Rank, Data: out.Data})
			}
		}
		if len(images) > 0 {
			er := r.evaluator.Evaluate(ctx, kw, images, len(candidates))
			chosen = er.ChosenIndex
			if er.Fallback {
				r.logger.Warn("evaluation fell back to top-ranked candidate", "id", kw.ID)
			}
		}
	}

	res.State = model.StateFetching
	var lastErr error
	for _, idx := range fallbackOrder(chosen, len(candidates)) {
		out, werr := r.fetchCandidate(ctx, kw, candidates[idx], outcomes, dedup, res)
		if werr != nil {
			res.State = model.StateFailed
			res.Err = werr
			return res, werr
		}
		if !out.OK {
			lastErr = out.Err
			continue
		}
		if res.ChosenRank < 0 {
			if werr := writePrimary(r.outputDir, kw, out.Data); werr != nil {
				res.State = model.StateFailed
				res.Err = werr
				return res, werr
			}
			res.ChosenRank = idx
		}
	}

	if res.ChosenRank < 0 {
		res.State = model.StateFailed
		res.Err = fmt.Errorf("%w: %q", ErrAllCandidatesFailed, kw.KeywordFormatted)
		if lastErr != nil {
			res.Err = fmt.Errorf("%w (last: %v)", res.Err, lastErr)
		}
		return res, nil
	}

	res.State = model.StateDone
	return res, nil
}

// fetchCandidate downloads one candidate, caching the outcome by rank and
// archiving every successful image into the candidate directory. Perceptual
// duplicates of earlier candidates are archived too and counted on the
// result, so the archive always mirrors what the downloads produced.
// The returned error is a filesystem write failure and is fatal to the run.
func (r *Runner) fetchCandidate(ctx context.Context, kw model.Keyword, c model.Candidate, outcomes []*model.DownloadOutcome, dedup *fetch.DedupFilter, res *model.KeywordResult) (model.DownloadOutcome, error) {
	if cached := outcomes[c.Rank]; cached != nil {
		return *cached, nil
	}

	out := r.fetcher.Fetch(ctx, c.URL)
	outcomes[c.Rank] = &out
	if !out.OK {
		r.logger.Debug("candidate rejected",
			"id", kw.ID,
			"rank", c.Rank,
			"url", c.URL,
			"error", out.Err,
		)
		return out, nil
	}

	if dedup.IsDuplicate(out.Image) {
		res.DuplicateCandidates++
		r.logger.Debug("candidate is a perceptual duplicate of an earlier one",
			"id", kw.ID,
			"rank", c.Rank,
		)
	}

	if err := writeCandidate(r.candidatesDir, kw, c.Rank, out.Data); err != nil {
		return out, err
	}
	res.CandidatesArchived++
	return out, nil
}

// fallbackOrder returns candidate indexes starting at chosen and then
// walking the remaining ranks in ascending order. Every index appears
// exactly once, so the fetch phase both finds a primary and completes the
// candidate archive in one pass.
func fallbackOrder(chosen, n int) []int {
	if chosen < 0 || chosen >= n {
		chosen = 0
	}
	order := make([]int, 0, n)
	order = append(order, chosen)
	for i := 0; i < n; i++ {
		if i != chosen {
			order = append(order, i)
		}
	}
	return order
}

// report emits one human-readable line per finished keyword.
func (r *Runner) report(res *model.KeywordResult) {
	switch res.State {
	case model.StateSkipped:
		fmt.Fprintf(r.progress, "[skip] %s %s (already done)\n", res.Keyword.ID, res.Keyword.KeywordFormatted)
	case model.StateDone:
		fmt.Fprintf(r.progress, "[done] %s %s (rank %d of %d, %d archived)\n",
			res.Keyword.ID, res.Keyword.KeywordFormatted, res.ChosenRank+1, res.CandidatesFound, res.CandidatesArchived)
	case model.StateFailed:
		fmt.Fprintf(r.progress, "[fail] %s %s: %v\n", res.Keyword.ID, res.Keyword.KeywordFormatted, res.Err)
	}
}
