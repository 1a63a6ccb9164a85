package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"imageharvest/internal/model"
)

// MarkdownWriter outputs run summaries in Markdown format for
// documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTotals(md, summary)
	w.writeResults(md, summary)
	w.writeFailures(md, summary)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.RunSummary) {
	md.H1("Image Harvest Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", summary.Elapsed.Round(time.Millisecond).String()},
			{"Status", w.statusText(summary)},
		},
	})
	md.PlainText("")

	if summary.Aborted != nil {
		md.Cautionf("Run aborted: %v. Re-run the fetch command to resume; finished keywords are skipped automatically.", summary.Aborted)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) statusText(summary *model.RunSummary) string {
	if summary.Aborted != nil {
		return "⚠️ Aborted (partial results)"
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Totals")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Done", strconv.Itoa(summary.Processed())},
			{"Skipped", strconv.Itoa(summary.Skipped())},
			{"Failed", strconv.Itoa(summary.Failed())},
			{"**Selected**", "**" + strconv.Itoa(len(summary.Results)) + "**"},
		},
	})
	md.PlainText("")

	if len(summary.Results) > 0 {
		w.writePieChart(md, summary)
	}
}

// writePieChart writes a mermaid pie chart of outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Keyword Outcomes"),
		piechart.WithShowData(true),
	)

	if n := summary.Processed(); n > 0 {
		chart.LabelAndIntValue("Done", uint64(n))
	}
	if n := summary.Skipped(); n > 0 {
		chart.LabelAndIntValue("Skipped", uint64(n))
	}
	if n := summary.Failed(); n > 0 {
		chart.LabelAndIntValue("Failed", uint64(n))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Results")
	md.PlainText("")

	if len(summary.Results) == 0 {
		md.PlainText("No keywords were selected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Results))
	for i, r := range summary.Results {
		chosen := "-"
		if r.ChosenRank >= 0 {
			chosen = strconv.Itoa(r.ChosenRank + 1)
		}
		rows[i] = []string{
			r.Keyword.ID,
			truncateString(r.Keyword.KeywordFormatted, 40),
			r.State.String(),
			chosen,
			strconv.Itoa(r.CandidatesFound),
			strconv.Itoa(r.CandidatesArchived),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"ID", "Keyword", "State", "Chosen", "Found", "Archived"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, summary *model.RunSummary) {
	failed := summary.FailedResults()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Keywords")
	md.PlainText("")

	rows := make([][]string, len(failed))
	for i, r := range failed {
		cause := "-"
		if r.Err != nil {
			cause = truncateString(r.Err.Error(), 80)
		}
		rows[i] = []string{r.Keyword.ID, truncateString(r.Keyword.KeywordFormatted, 40), cause}
	}

	md.Table(markdown.TableSet{
		Header: []string{"ID", "Keyword", "Cause"},
		Rows:   rows,
	})
	md.PlainText("")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
