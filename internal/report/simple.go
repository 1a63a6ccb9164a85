package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"imageharvest/internal/model"
)

// SimpleWriter outputs human-readable text summaries for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose enables a per-keyword result listing in addition to totals.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-keyword result listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeTotals(&sb, summary)
	if w.verbose {
		w.writeResults(&sb, summary)
	}
	w.writeFailures(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                  IMAGE HARVEST SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Started:  %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Elapsed:  %s\n", summary.Elapsed.Round(time.Millisecond)))

	if summary.Aborted != nil {
		sb.WriteString(fmt.Sprintf("Status:   ABORTED - %v\n", summary.Aborted))
	} else {
		sb.WriteString("Status:   Complete\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTotals(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString("TOTALS\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Selected:  %d\n", len(summary.Results)))
	sb.WriteString(fmt.Sprintf("  Done:      %d\n", summary.Processed()))
	sb.WriteString(fmt.Sprintf("  Skipped:   %d\n", summary.Skipped()))
	sb.WriteString(fmt.Sprintf("  Failed:    %d\n", summary.Failed()))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResults(sb *strings.Builder, summary *model.RunSummary) {
	if len(summary.Results) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString("RESULTS\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n\n")

	for _, r := range summary.Results {
		sb.WriteString(fmt.Sprintf("  [%s] %s %s", r.State, r.Keyword.ID, r.Keyword.KeywordFormatted))
		if r.State == model.StateDone {
			sb.WriteString(fmt.Sprintf(" (rank %d of %d, %d archived)", r.ChosenRank+1, r.CandidatesFound, r.CandidatesArchived))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, summary *model.RunSummary) {
	failed := summary.FailedResults()
	if len(failed) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString("FAILED KEYWORDS\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n\n")

	for _, r := range failed {
		sb.WriteString(fmt.Sprintf("  * %s %s\n", r.Keyword.ID, r.Keyword.KeywordFormatted))
		if r.Err != nil {
			sb.WriteString(fmt.Sprintf("    Cause: %v\n", r.Err))
		}
	}
	sb.WriteString("\n")
}
