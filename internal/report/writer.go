package report

import (
	"io"

	"imageharvest/internal/model"
)

// Writer outputs a run summary to a configured destination.
type Writer interface {
	// Write renders the summary. It returns the number of bytes written
	// and any error encountered.
	Write(summary *model.RunSummary) (int, error)
}

// MultiWriter fans a summary out to several Writers, stopping on the
// first error. It lets one run report to the terminal and a file at once.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Returns the total bytes written across all writers.
func (m *MultiWriter) Write(summary *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides the shared output destination for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
