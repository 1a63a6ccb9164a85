package model

import "time"

// State is the processing state of a single keyword.
type State int

// Keyword processing states. A keyword moves Pending → Skipped, or
// Pending → Searching → Evaluating → Fetching → Done, with any state able
// to transition to Failed.
const (
	StatePending State = iota
	StateSkipped
	StateSearching
	StateEvaluating
	StateFetching
	StateDone
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSkipped:
		return "skipped"
	case StateSearching:
		return "searching"
	case StateEvaluating:
		return "evaluating"
	case StateFetching:
		return "fetching"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a keyword's processing.
func (s State) Terminal() bool {
	return s == StateSkipped || s == StateDone || s == StateFailed
}

// KeywordResult accumulates the outcome of processing one keyword.
type KeywordResult struct {
	// Keyword is the keyword that was processed.
	Keyword Keyword

	// State is the terminal state the keyword reached.
	State State

	// Err is the failure cause when State is StateFailed.
	Err error

	// ChosenRank is the zero-based rank of the candidate written as the
	// primary output. -1 when no primary was written.
	ChosenRank int

	// CandidatesFound is the number of candidates returned by search.
	CandidatesFound int

	// CandidatesArchived is the number of candidate files written to the
	// keyword's candidate directory.
	CandidatesArchived int

	// DuplicateCandidates is the number of archived candidates that are
	// perceptual near-duplicates of an earlier candidate for the same
	// keyword. Search engines often return the same photo rehosted at
	// several URLs.
	DuplicateCandidates int

	// Elapsed is the wall time spent on this keyword.
	Elapsed time.Duration
}

// NewKeywordResult creates a pending result for kw.
func NewKeywordResult(kw Keyword) *KeywordResult {
	return &KeywordResult{
		Keyword:    kw,
		State:      StatePending,
		ChosenRank: -1,
	}
}

// RunSummary aggregates the outcome of a whole pipeline run.
type RunSummary struct {
	// StartedAt is when the run began.
	StartedAt time.Time

	// Elapsed is the total run duration.
	Elapsed time.Duration

	// Results holds one entry per selected keyword, in processing order.
	// A run aborted by quota exhaustion carries entries only for the
	// keywords reached before the abort.
	Results []*KeywordResult

	// Aborted holds the fatal error that stopped the run early, if any.
	Aborted error
}

// Add appends a keyword result to the summary.
func (s *RunSummary) Add(r *KeywordResult) {
	s.Results = append(s.Results, r)
}

// Processed returns the number of keywords that reached Done.
func (s *RunSummary) Processed() int { return s.count(StateDone) }

// Skipped returns the number of keywords skipped via the done-ledger.
func (s *RunSummary) Skipped() int { return s.count(StateSkipped) }

// Failed returns the number of keywords that ended in Failed.
func (s *RunSummary) Failed() int { return s.count(StateFailed) }

// FailedResults returns the results that ended in Failed, in order.
func (s *RunSummary) FailedResults() []*KeywordResult {
	var failed []*KeywordResult
	for _, r := range s.Results {
		if r.State == StateFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

func (s *RunSummary) count(state State) int {
	n := 0
	for _, r := range s.Results {
		if r.State == state {
			n++
		}
	}
	return n
}
