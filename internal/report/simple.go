package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shiftpages/funneltrace/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
// Plain ASCII formatting keeps the output pipeable and readable in any
// terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no data are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
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

// Write renders the statistics in human-readable format.
func (w *SimpleWriter) Write(stats *model.FunnelStats) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)
	w.writeTotals(&sb, stats)
	w.writeBreakdown(&sb, "VISITS BY DAY", stats.VisitsByDay)
	w.writeBreakdown(&sb, "VISITS BY COUNTRY", stats.VisitsByCountry)
	w.writeBreakdown(&sb, "VISITS BY PAGE", stats.VisitsByPage)
	w.writeBreakdown(&sb, "CLICKS BY BUTTON", stats.ClicksByButton)
	w.writeVariants(&sb, stats)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         FUNNEL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeTotals(sb *strings.Builder, stats *model.FunnelStats) {
	sb.WriteString(fmt.Sprintf("  Total Events:    %d\n", stats.TotalEvents))
	sb.WriteString(fmt.Sprintf("  Page Visits:     %d\n", stats.PageVisits))
	sb.WriteString(fmt.Sprintf("  Page Exits:      %d\n", stats.PageExits))
	sb.WriteString(fmt.Sprintf("  Button Clicks:   %d\n", stats.ButtonClicks))
	sb.WriteString(fmt.Sprintf("  Registrations:   %d\n", stats.Registrations))
	sb.WriteString(fmt.Sprintf("  Unique Visitors: %d\n", stats.UniqueVisitors))
	sb.WriteString(fmt.Sprintf("  Avg Time on Page: %.1fs\n", stats.AverageDuration))
	sb.WriteString("\n")
}

// writeBreakdown writes one count map as a sorted section.
func (w *SimpleWriter) writeBreakdown(sb *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(counts) == 0 {
		sb.WriteString("  No data\n\n")
		return
	}

	for _, key := range sortedKeys(counts) {
		sb.WriteString(fmt.Sprintf("  %-40s %d\n", key, counts[key]))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeVariants(sb *strings.Builder, stats *model.FunnelStats) {
	if len(stats.Variants) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("HOOK VARIANTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(stats.Variants) == 0 {
		sb.WriteString("  No data\n\n")
		return
	}

	ids := make([]string, 0, len(stats.Variants))
	for id := range stats.Variants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		vs := stats.Variants[id]
		sb.WriteString(fmt.Sprintf("  Variant %s\n", id))
		sb.WriteString(fmt.Sprintf("    Visits:          %d\n", vs.Visits))
		sb.WriteString(fmt.Sprintf("    Clicks:          %d\n", vs.Clicks))
		sb.WriteString(fmt.Sprintf("    Registrations:   %d\n", vs.Registrations))
		sb.WriteString(fmt.Sprintf("    Unique Visitors: %d\n", vs.UniqueVisitors))
		sb.WriteString(fmt.Sprintf("    Conversion Rate: %.1f%%\n", vs.ConversionRate*100))
	}
	sb.WriteString("\n")
}

// sortedKeys returns the map keys in lexical order for stable output.
func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
