package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/shiftpages/funneltrace/internal/model"
)

// MarkdownWriter outputs statistics in Markdown format, suitable for
// committing next to the recorded data or sharing in a review.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write renders the statistics as a Markdown report.
func (w *MarkdownWriter) Write(stats *model.FunnelStats) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeOverview(md, stats)
	w.writeBreakdown(md, "Visits by Day", "Day", stats.VisitsByDay)
	w.writeBreakdown(md, "Visits by Country", "Country", stats.VisitsByCountry)
	w.writeBreakdown(md, "Visits by Page", "Page", stats.VisitsByPage)
	w.writeBreakdown(md, "Clicks by Button", "Button", stats.ClicksByButton)
	w.writeVariants(md, stats)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeOverview(md *markdown.Markdown, stats *model.FunnelStats) {
	md.H1("Funnel Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Events", strconv.Itoa(stats.TotalEvents)},
			{"Page Visits", strconv.Itoa(stats.PageVisits)},
			{"Page Exits", strconv.Itoa(stats.PageExits)},
			{"Button Clicks", strconv.Itoa(stats.ButtonClicks)},
			{"Registrations", strconv.Itoa(stats.Registrations)},
			{"Unique Visitors", strconv.Itoa(stats.UniqueVisitors)},
			{"Avg Time on Page", fmt.Sprintf("%.1fs", stats.AverageDuration)},
		},
	})
	md.PlainText("")

	if stats.TotalEvents > 0 {
		w.writeEventPieChart(md, stats)
	}
}

// writeEventPieChart writes a mermaid pie chart of the event mix.
func (w *MarkdownWriter) writeEventPieChart(md *markdown.Markdown, stats *model.FunnelStats) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Event Distribution"),
		piechart.WithShowData(true),
	)

	if stats.PageVisits > 0 {
		chart.LabelAndIntValue("Visits", uint64(stats.PageVisits))
	}
	if stats.PageExits > 0 {
		chart.LabelAndIntValue("Exits", uint64(stats.PageExits))
	}
	if stats.ButtonClicks > 0 {
		chart.LabelAndIntValue("Clicks", uint64(stats.ButtonClicks))
	}
	if stats.Registrations > 0 {
		chart.LabelAndIntValue("Registrations", uint64(stats.Registrations))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeBreakdown writes one count map as a sorted two-column table.
func (w *MarkdownWriter) writeBreakdown(md *markdown.Markdown, title, keyHeader string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}

	md.H2(title)
	md.PlainText("")

	rows := make([][]string, 0, len(counts))
	for _, key := range sortedKeys(counts) {
		rows = append(rows, []string{key, strconv.Itoa(counts[key])})
	}

	md.Table(markdown.TableSet{
		Header: []string{keyHeader, "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeVariants(md *markdown.Markdown, stats *model.FunnelStats) {
	if len(stats.Variants) == 0 {
		return
	}

	md.H2("Hook Variants")
	md.PlainText("")

	ids := make([]string, 0, len(stats.Variants))
	for id := range stats.Variants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		vs := stats.Variants[id]
		rows = append(rows, []string{
			id,
			strconv.Itoa(vs.Visits),
			strconv.Itoa(vs.Clicks),
			strconv.Itoa(vs.Registrations),
			strconv.Itoa(vs.UniqueVisitors),
			fmt.Sprintf("%.1f%%", vs.ConversionRate*100),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Variant", "Visits", "Clicks", "Registrations", "Unique Visitors", "Conversion"},
		Rows:   rows,
	})
	md.PlainText("")
}
