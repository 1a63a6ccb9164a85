package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"imageharvest/internal/model"
)

// ErrNoCandidateFiles marks a keyword whose candidate directory holds no
// archived candidates to re-evaluate.
var ErrNoCandidateFiles = errors.New("no archived candidates")

// RunEvaluate re-runs evaluation over previously archived candidates
// without touching the network for downloads. For each keyword missing a
// primary output it loads the candidate_N.jpg files, asks the evaluator
// to pick one, and promotes the winner to the primary output path.
func (r *Runner) RunEvaluate(ctx context.Context, keywords []model.Keyword) (*model.RunSummary, error) {
	summary := &model.RunSummary{StartedAt: r.clock.Now()}
	defer func() { summary.Elapsed = r.clock.Now().Sub(summary.StartedAt) }()

	processed := 0
	for i, kw := range keywords {
		if err := ctx.Err(); err != nil {
			summary.Aborted = err
			return summary, err
		}

		res, fatal := r.reevaluateKeyword(ctx, kw)
		summary.Add(res)
		r.report(res)

		if fatal != nil {
			summary.Aborted = fatal
			return summary, fatal
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

func (r *Runner) reevaluateKeyword(ctx context.Context, kw model.Keyword) (*model.KeywordResult, error) {
	res := model.NewKeywordResult(kw)
	start := r.clock.Now()
	defer func() { res.Elapsed = r.clock.Now().Sub(start) }()

	if AlreadyDone(r.outputDir, kw) {
		res.State = model.StateSkipped
		return res, nil
	}

	images, err := loadCandidates(kw.CandidateDir(r.candidatesDir))
	if err != nil {
		res.State = model.StateFailed
		res.Err = err
		return res, nil
	}
	res.CandidatesFound = len(images)
	res.CandidatesArchived = len(images)

	res.State = model.StateEvaluating
	chosen := images[0].Rank
	if r.evaluator.Enabled() {
		er := r.evaluator.Evaluate(ctx, kw, images, len(images))
		chosen = er.ChosenIndex
		if er.Fallback {
			r.logger.Warn("evaluation fell back to first archived candidate", "id", kw.ID)
		}
	}

	var winner []byte
	for _, img := range images {
		if img.Rank == chosen {
			winner = img.Data
			break
		}
	}
	if winner == nil {
		winner = images[0].Data
		chosen = images[0].Rank
	}

	res.State = model.StateFetching
	if werr := writePrimary(r.outputDir, kw, winner); werr != nil {
		res.State = model.StateFailed
		res.Err = werr
		return res, werr
	}
	res.ChosenRank = chosen

	res.State = model.StateDone
	return res, nil
}

// loadCandidates reads candidate_N.jpg files from dir in slot order.
// The returned images carry the zero-based rank each slot was archived
// under, so evaluation choices map back to the original search ranking.
func loadCandidates(dir string) ([]model.CandidateImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoCandidateFiles, dir)
		}
		return nil, fmt.Errorf("failed to read candidate directory %s: %w", dir, err)
	}

	type slotFile struct {
		slot int
		name string
	}
	var slots []slotFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		slot, ok := candidateSlot(e.Name())
		if !ok {
			continue
		}
		slots = append(slots, slotFile{slot: slot, name: e.Name()})
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCandidateFiles, dir)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].slot < slots[j].slot })

	images := make([]model.CandidateImage, 0, len(slots))
	for _, s := range slots {
		data, err := os.ReadFile(filepath.Join(dir, s.name))
		if err != nil {
			return nil, fmt.Errorf("failed to read candidate %s: %w", s.name, err)
		}
		images = append(images, model.CandidateImage{Rank: s.slot - 1, Data: data})
	}
	return images, nil
}

// candidateSlot extracts N from a "candidate_N.jpg" file name.
func candidateSlot(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "candidate_")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, ".jpg")
	if !ok {
		return 0, false
	}
	slot, err := strconv.Atoi(rest)
	if err != nil || slot < 1 {
		return 0, false
	}
	return slot, true
}
