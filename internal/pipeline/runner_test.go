package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"imageharvest/internal/model"
	"imageharvest/internal/search"
)

// fakeClock records sleeps without blocking.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// mockSearcher returns canned candidates per query.
type mockSearcher struct {
	results map[string][]model.Candidate
	errs    map[string]error
	calls   []string
}

func (m *mockSearcher) Search(_ context.Context, query string, _ int) ([]model.Candidate, error) {
	m.calls = append(m.calls, query)
	if err := m.errs[query]; err != nil {
		return nil, err
	}
	return m.results[query], nil
}

// mockEvaluator returns a fixed evaluation result.
type mockEvaluator struct {
	enabled bool
	result  model.EvaluationResult
	calls   int
}

func (m *mockEvaluator) Enabled() bool { return m.enabled }

func (m *mockEvaluator) Evaluate(_ context.Context, _ model.Keyword, _ []model.CandidateImage, _ int) model.EvaluationResult {
	m.calls++
	return m.result
}

// mockFetcher returns canned outcomes per URL and records every call.
type mockFetcher struct {
	outcomes map[string]model.DownloadOutcome
	calls    []string
}

func (m *mockFetcher) Fetch(_ context.Context, rawURL string) model.DownloadOutcome {
	m.calls = append(m.calls, rawURL)
	return m.outcomes[rawURL]
}

// stripeImage builds an image whose difference hash equals mask repeated
// per row, so images with masks differing in several bits are reliably
// distinct to the dedup filter.
func stripeImage(mask uint8) image.Image {
	const block = 8
	img := image.NewRGBA(image.Rect(0, 0, 9*block, 8*block))
	v := make([]uint8, 9)
	v[0] = 128
	for i := 0; i < 8; i++ {
		if mask&(1<<i) != 0 {
			v[i+1] = v[i] + 12
		} else {
			v[i+1] = v[i] - 12
		}
	}
	for y := 0; y < 8*block; y++ {
		for x := 0; x < 9*block; x++ {
			c := v[x/block]
			img.Set(x, y, color.RGBA{R: c, G: c, B: c, A: 255})
		}
	}
	return img
}

// okOutcome builds a successful download outcome with distinct bytes and
// a distinct perceptual image per rank.
func okOutcome(rank int) model.DownloadOutcome {
	masks := []uint8{0xAA, 0x55, 0xF0, 0x0F, 0xCC}
	return model.DownloadOutcome{
		OK:           true,
		Data:         []byte(fmt.Sprintf("jpeg-bytes-%d", rank)),
		Image:        stripeImage(masks[rank%len(masks)]),
		SourceFormat: "jpeg",
	}
}

// testKeyword builds a keyword with a predictable output name.
func testKeyword(id, kw string) model.Keyword {
	return model.Keyword{ID: id, Keyword: kw, KeywordFormatted: kw}
}

// candidates builds n ranked candidates with URLs derived from prefix.
func candidates(prefix string, n int) []model.Candidate {
	cands := make([]model.Candidate, n)
	for i := 0; i < n; i++ {
		cands[i] = model.Candidate{
			URL:  fmt.Sprintf("https://img.example.com/%s/%d.jpg", prefix, i),
			Rank: i,
		}
	}
	return cands
}

// newTestRunner wires a Runner over mocks with temp directories.
func newTestRunner(t *testing.T, s Searcher, e Evaluator, f Fetcher, opts ...Option) (*Runner, string, string) {
	t.Helper()

	outputDir := filepath.Join(t.TempDir(), "output")
	candidatesDir := filepath.Join(t.TempDir(), "candidates")

	base := []Option{
		WithDirs(outputDir, candidatesDir),
		WithClock(&fakeClock{}),
		WithProgress(&bytes.Buffer{}),
		WithCooldown(0, 0),
		WithNumResults(5),
	}
	return New(s, e, f, append(base, opts...)...), outputDir, candidatesDir
}

// TestRunnerRun tests the keyword processing state machine.
func TestRunnerRun(t *testing.T) {
	t.Parallel()

	t.Run("writes primary output and archives all candidates", func(t *testing.T) {
		t.Parallel()

		kw := testKeyword("3-2", "red car")
		cands := candidates("redcar", 3)
		searcher := &mockSearcher{results: map[string][]model.Candidate{"red car": cands}}
		fetcher := &mockFetcher{outcomes: map[string]model.DownloadOutcome{
			cands[0].URL: okOutcome(0),
			cands[1].URL: okOutcome(1),
			cands[2].URL: okOutcome(2),
		}}
		runner, outputDir, candidatesDir := newTestRunner(t, searcher, &mockEvaluator{}, fetcher)

		summary, err := runner.Run(context.Background(), []model.Keyword{kw})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Processed() != 1 {
			t.Fatalf("expected 1 processed, got %d", summary.Processed())
		}

		res := summary.Results[0]
		if res.State != model.StateDone || res.ChosenRank != 0 {
			t.Errorf("unexpected result: state=%s rank=%d", res.State, res.ChosenRank)
		}
		if res.CandidatesFound != 3 || res.CandidatesArchived != 3 {
			t.Errorf("candidates found/archived = %d/%d, want 3/3", res.CandidatesFound, res.CandidatesArchived)
		}

		primary, err := os.ReadFile(filepath.Join(outputDir, "3-2_red_car.jpg"))
		if err != nil {
			t.Fatalf("primary output missing: %v", err)
		}
		if string(primary) != "jpeg-bytes-0" {
			t.Errorf("primary holds %q, want first candidate bytes", primary)
		}

		for slot := 1; slot <= 3; slot++ {
			path := filepath.Join(candidatesDir, "3-2_red_car", fmt.Sprintf("candidate_%d.jpg", slot))
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("candidate %d missing: %v", slot, err)
			}
			if want := fmt.Sprintf("jpeg-bytes-%d", slot-1); string(data) != want {
				t.Errorf("candidate %d holds %q, want %q", slot, data, want)
			}
		}

		if len(searcher.calls) != 1 || searcher.calls[0] != "red car" {
			t.Errorf("unexpected search calls: %v", searcher.calls)
		}
		if len(fetcher.calls) != 3 {
			t.Errorf("expected 3 downloads, got %v", fetcher.calls)
		}
	})

	t.Run("skips keywords whose primary output exists", func(t *testing.T) {
		t.Parallel()

		kw := testKeyword("3-2", "red car")
		searcher := &mockSearcher{}
		runner, outputDir, _ := newTestRunner(t, searcher, &mockEvaluator{}, &mockFetcher{})

		if err := os.MkdirAll(outputDir, 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(kw.PrimaryPath(outputDir), []byte("existing"), 0600); err != nil {
			t.Fatal(err)
		}

		summary, err := runner.Run(context.Background(), []model.Keyword{kw})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Skipped() != 1 {
			t.Fatalf("expected 1 skipped, got %d", summary.Skipped())
		}
		if len(searcher.calls) != 0 {
			t.Errorf("skip must not search, got calls %v", searcher.calls)
		}

		data, _ := os.ReadFile(kw.PrimaryPath(outputDir))
		if string(data) != "existing" {
			t.Errorf("existing output was overwritten: %q", data)
		}
	})

	t.Run("search failure fails the keyword and continues", func(t *testing.T) {
		t.Parallel()

		kw1 := testKeyword("3-1", "broken")
		kw2 := testKeyword("3-2", "red car")
		cands := candidates("redcar", 1)
		searcher := &mockSearcher{
			results: map[string][]model.Candidate{"red car": cands},
			errs:    map[string]error{"broken": errors.New("boom")},
		}
		fetcher := &mockFetcher{outcomes: map[string]model.DownloadOutcome{cands[0].URL: okOutcome(0)}}
		runner, _, _ := newTestRunner(t, searcher, &mockEvaluator{}, fetcher)

		summary, err := runner.Run(context.Background(), []model.Keyword{kw1, kw2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Failed() != 1 || summary.Processed() != 1 {
			t.Errorf("failed/processed = %d/%d, want 1/1", summary.Failed(), summary.Processed())
		}
	})

	t.Run("zero search results fail the keyword", func(t *testing.T) {
		t.Parallel()

		kw := testKeyword("3-2", "red car")
		searcher := &mockSearcher{results: map[string][]model.Candidate{}}
		runner, _, _ := newTestRunner(t, searcher, &mockEvaluator{}, &mockFetcher{})

		summary, err := runner.Run(context.Background(), []model.Keyword{kw})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !errors.Is(summary.Results[0].Err, ErrNoResults) {
			t.Errorf("expected ErrNoResults, got %v", summary.Results[0].Err)
		}
	})

	t.Run("quota exhaustion aborts the run", func(t *testing.T) {
		t.Parallel()

		kw1 := testKeyword("3-1", "first")
		kw2 := testKeyword("3-2", "second")
		searcher := &mockSearcher{
			errs: map[string]error{"first": fmt.Errorf("page 1: %w", search.ErrQuotaExceeded)},
		}
		runner, _, _ := newTestRunner(t, searcher, &mockEvaluator{}, &mockFetcher{})

		summary, err := runner.Run(context.Background(), []model.Keyword{kw1, kw2})
		if !errors.Is(err, search.ErrQuotaExceeded) {
			t.Fatalf("expected quota error, got %v", err)
		}
		if !errors.Is(summary.Aborted, search.ErrQuotaExceeded) {
			t.Errorf("summary.Aborted = %v", summary.Aborted)
		}
		if len(summary.Results) != 1 {
			t.Errorf("expected 1 result before abort, got %d", len(summary.Results))
		}
		if len(searcher.calls) != 1 {
			t.Errorf("second keyword must not be searched, got calls %v", searcher.calls)
		}
	})

	t.Run("evaluation chooses the primary candidate", func(t *testing.T) {
		t.Parallel()

		kw := testKeyword("3-2", "red car")
		cands := candidates("redcar", 3)
		searcher := &mockSearcher{results: map[string][]model.Candidate{"red car": cands}}
		evaluator := &mockEvaluator{enabled: true, result: model.EvaluationResult{ChosenIndex: 2}}
		fetcher := &mockFetcher{outcomes: map[string]model.DownloadOutcome{
			cands[0].URL: okOutcome(0),
			cands[1].URL: okOutcome(1),
			cands[2].URL: okOutcome(2),
		}}
		runner, outputDir, _ := newTestRunner(t, searcher, evaluator, fetcher)

		summary, err := runner.Run(context.Background(), []model.Keyword{kw})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		res := summary.Results[0]
		if res.ChosenRank != 2 {
			t.Errorf("ChosenRank = %d, want 2", res.ChosenRank)
		}
		if evaluator.calls != 1 {
			t.Errorf("expected 1 evaluation, got %d", evaluator.calls)
		}

		primary, err := os.ReadFile(kw.PrimaryPath(outputDir))
		if err != nil {
			t.Fatalf("primary output missing: %v", err)
		}
		if string(primary) != "jpeg-bytes-2" {
			t.Errorf("primary holds %q, want chosen candidate bytes", primary)
		}

		// Each candidate is downloaded once; the fetch phase reuses the
		// evaluation phase's downloads.
		if len(fetcher.calls) != 3 {
			t.Errorf("expected 3 downloads total, got %v", fetcher.calls)
		}
	})

	t.Run("falls back in rank order when the chosen candidate fails", func(t *testing.T) {
		t.Parallel()

		kw := testKeyword("3-2", "red car")
		cands := candidates("redcar", 3)
		searcher := &mockSearcher{results: map[string][]model.Candidate{"red car": cands}}
		fetcher := &mockFetcher{outcomes: map[string]model.DownloadOutcome{
			cands[0].URL: {Err: errors.New("download failed")},
			cands[1].URL: okOutcome(1),
			cands[2].URL: okOutcome(2),
		}}
		runner, outputDir, _ := newTestRunner(t, searcher, &mockEvaluator{}, fetcher)

		summary, err := runner.Run(context.Background(), []model.Keyword{kw})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		res := summary.Results[0]
		if res.State != model.StateDone || res.ChosenRank != 1 {
			t.Errorf("unexpected result: state=%s rank=%d", res.State, res.ChosenRank)
		}
		if res.CandidatesArchived != 2 {
			t.Errorf("CandidatesArchived = %d, want 2", res.CandidatesArchived)
		}

		primary, _ := os.ReadFile(kw.PrimaryPath(outputDir))
		if string(primary) != "jpeg-bytes-1" {
			t.Errorf("primary holds %q, want rank 1 bytes", primary)
		}
	})

	t.Run("all candidates failing fails the keyword", func(t *testing.T) {
		t.Parallel()

		kw := testKeyword("3-2", "red car")
		cands := candidates("redcar", 2)
		searcher := &mockSearcher{results: map[string][]model.Candidate{"red car": cands}}
		fetcher := &mockFetcher{outcomes: map[string]model.DownloadOutcome{
			cands[0].URL: {Err: errors.New("too small")},
			cands[1].URL: {Err: errors.New("not an image")},
		}}
		runner, outputDir, _ := newTestRunner(t, searcher, &mockEvaluator{}, fetcher)

		summary, err := runner.Run(context.Background(), []model.Keyword{kw})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !errors.Is(summary.Results[0].Err, ErrAllCandidatesFailed) {
			t.Errorf("expected ErrAllCandidatesFailed, got %v", summary.Results[0].Err)
		}
		if _, err := os.Stat(kw.PrimaryPath(outputDir)); !os.IsNotExist(err) {
			t.Error("no primary output should exist")
		}
	})

	t.Run("perceptual duplicates are archived and counted", func(t *testing.T) {
		t.Parallel()

		kw := testKeyword("3-2", "red car")
		cands := candidates("redcar", 2)
		duplicate := okOutcome(0)
		duplicate.Data = []byte("jpeg-bytes-dup")
		searcher := &mockSearcher{results: map[string][]model.Candidate{"red car": cands}}
		fetcher := &mockFetcher{outcomes: map[string]model.DownloadOutcome{
			cands[0].URL: okOutcome(0),
			cands[1].URL: duplicate,
		}}
		runner, _, candidatesDir := newTestRunner(t, searcher, &mockEvaluator{}, fetcher)

		summary, err := runner.Run(context.Background(), []model.Keyword{kw})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Every successful download lands in its numbered slot; a rehosted
		// copy of an earlier candidate is written too, just counted.
		if got := summary.Results[0].CandidatesArchived; got != 2 {
			t.Errorf("CandidatesArchived = %d, want 2", got)
		}
		if got := summary.Results[0].DuplicateCandidates; got != 1 {
			t.Errorf("DuplicateCandidates = %d, want 1", got)
		}
		data, err := os.ReadFile(filepath.Join(candidatesDir, "3-2_red_car", "candidate_2.jpg"))
		if err != nil {
			t.Fatalf("duplicate candidate not archived: %v", err)
		}
		if string(data) != "jpeg-bytes-dup" {
			t.Errorf("candidate_2.jpg content = %q, want %q", data, "jpeg-bytes-dup")
		}
	})

	t.Run("cooldown pauses after each processed batch", func(t *testing.T) {
		t.Parallel()

		keywords := []model.Keyword{
			testKeyword("3-1", "one"),
			testKeyword("3-2", "two"),
			testKeyword("3-3", "three"),
		}
		results := make(map[string][]model.Candidate)
		outcomes := make(map[string]model.DownloadOutcome)
		for i, kw := range keywords {
			cands := candidates(kw.Keyword, 1)
			results[kw.KeywordFormatted] = cands
			outcomes[cands[0].URL] = okOutcome(i)
		}
		clock := &fakeClock{}
		runner, _, _ := newTestRunner(t,
			&mockSearcher{results: results},
			&mockEvaluator{},
			&mockFetcher{outcomes: outcomes},
			WithClock(clock),
			WithCooldown(2, 30*time.Second),
		)

		if _, err := runner.Run(context.Background(), keywords); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// One pause after the second keyword; none after the last.
		if len(clock.sleeps) != 1 || clock.sleeps[0] != 30*time.Second {
			t.Errorf("expected one 30s cooldown, got %v", clock.sleeps)
		}
	})

	t.Run("skipped keywords do not count toward cooldown", func(t *testing.T) {
		t.Parallel()

		keywords := []model.Keyword{
			testKeyword("3-1", "one"),
			testKeyword("3-2", "two"),
			testKeyword("3-3", "three"),
		}
		results := make(map[string][]model.Candidate)
		outcomes := make(map[string]model.DownloadOutcome)
		for i, kw := range keywords {
			cands := candidates(kw.Keyword, 1)
			results[kw.KeywordFormatted] = cands
			outcomes[cands[0].URL] = okOutcome(i)
		}
		clock := &fakeClock{}
		runner, outputDir, _ := newTestRunner(t,
			&mockSearcher{results: results},
			&mockEvaluator{},
			&mockFetcher{outcomes: outcomes},
			WithClock(clock),
			WithCooldown(2, 30*time.Second),
		)

		// Two keywords already done leaves one processed, below the batch
		// threshold.
		if err := os.MkdirAll(outputDir, 0750); err != nil {
			t.Fatal(err)
		}
		for _, kw := range keywords[:2] {
			if err := os.WriteFile(kw.PrimaryPath(outputDir), []byte("done"), 0600); err != nil {
				t.Fatal(err)
			}
		}

		if _, err := runner.Run(context.Background(), keywords); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(clock.sleeps) != 0 {
			t.Errorf("expected no cooldown, got %v", clock.sleeps)
		}
	})

	t.Run("cancelled context aborts before the next keyword", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		searcher := &mockSearcher{}
		runner, _, _ := newTestRunner(t, searcher, &mockEvaluator{}, &mockFetcher{})

		summary, err := runner.Run(ctx, []model.Keyword{testKeyword("3-1", "one")})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(summary.Results) != 0 {
			t.Errorf("expected no results, got %d", len(summary.Results))
		}
		if len(searcher.calls) != 0 {
			t.Errorf("expected no searches, got %v", searcher.calls)
		}
	})

	t.Run("progress lines name the outcome", func(t *testing.T) {
		t.Parallel()

		kw := testKeyword("3-2", "red car")
		cands := candidates("redcar", 1)
		var progress bytes.Buffer
		runner, _, _ := newTestRunner(t,
			&mockSearcher{results: map[string][]model.Candidate{"red car": cands}},
			&mockEvaluator{},
			&mockFetcher{outcomes: map[string]model.DownloadOutcome{cands[0].URL: okOutcome(0)}},
			WithProgress(&progress),
		)

		if _, err := runner.Run(context.Background(), []model.Keyword{kw}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(progress.String(), "[done] 3-2 red car") {
			t.Errorf("unexpected progress output: %q", progress.String())
		}
	})
}
