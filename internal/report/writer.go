package report

import (
	"io"

	"github.com/shiftpages/funneltrace/internal/model"
)

// Writer renders funnel statistics to a configured destination.
// Implementations exist for plain text, JSON, and Markdown output.
type Writer interface {
	// Write renders the statistics and returns the number of bytes
	// written and any error encountered.
	Write(stats *model.FunnelStats) (int, error)
}

// MultiWriter writes one report to several Writers, for example the
// terminal and a file at the same time. It is a separate type rather
// than io.MultiWriter because Writers consume statistics, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders the statistics to all configured Writers.
// It returns the total bytes written and stops on the first error.
func (m *MultiWriter) Write(stats *model.FunnelStats) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(stats)
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
