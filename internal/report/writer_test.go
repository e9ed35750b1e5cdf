package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shiftpages/funneltrace/internal/model"
)

func sampleStats() *model.FunnelStats {
	return &model.FunnelStats{
		TotalEvents:     7,
		PageVisits:      3,
		PageExits:       2,
		ButtonClicks:    1,
		Registrations:   1,
		UniqueVisitors:  3,
		AverageDuration: 45,
		VisitsByDay:     map[string]int{"2026-03-14": 2, "2026-03-15": 1},
		VisitsByCountry: map[string]int{"Kenya": 2, "Nigeria": 1},
		ClicksByButton:  map[string]int{"Register Now": 1},
		Variants: map[string]*model.VariantStats{
			"A": {Visits: 2, Clicks: 1, Registrations: 1, UniqueVisitors: 2, ConversionRate: 0.5},
			"B": {Visits: 1, UniqueVisitors: 1},
		},
	}
}

func TestSimpleWriter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf)

	n, err := w.Write(sampleStats())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != buf.Len() {
		t.Errorf("Write() n = %d, want %d", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"FUNNEL REPORT",
		"Total Events:    7",
		"Unique Visitors: 3",
		"VISITS BY COUNTRY",
		"Kenya",
		"Variant A",
		"Conversion Rate: 50.0%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q", want)
		}
	}
}

func TestSimpleWriter_HidesEmptySections(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf)

	if _, err := w.Write(&model.FunnelStats{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if strings.Contains(buf.String(), "HOOK VARIANTS") {
		t.Error("empty variant section was written without WithShowEmpty")
	}

	buf.Reset()
	w = NewSimpleWriter(&buf, WithShowEmpty(true))
	if _, err := w.Write(&model.FunnelStats{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "HOOK VARIANTS") {
		t.Error("WithShowEmpty(true) should write empty sections")
	}
}

func TestJSONWriter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewJSONWriter(&buf, WithPrettyPrint())

	if _, err := w.Write(sampleStats()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var decoded model.FunnelStats
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.TotalEvents != 7 {
		t.Errorf("decoded total events = %d, want 7", decoded.TotalEvents)
	}
	if decoded.Variants["A"].ConversionRate != 0.5 {
		t.Errorf("decoded conversion rate = %v, want 0.5", decoded.Variants["A"].ConversionRate)
	}
}

func TestMarkdownWriter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)

	if _, err := w.Write(sampleStats()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Funnel Report",
		"## Visits by Country",
		"## Hook Variants",
		"mermaid",
		"50.0%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q", want)
		}
	}
}

// failWriter fails after the first write to exercise MultiWriter's
// stop-on-error behavior.
type failWriter struct{}

func (failWriter) Write(*model.FunnelStats) (int, error) {
	return 0, errors.New("destination unavailable")
}

func TestMultiWriter_Write(t *testing.T) {
	t.Parallel()

	var first, second bytes.Buffer
	mw := NewMultiWriter(NewJSONWriter(&first), NewJSONWriter(&second))

	n, err := mw.Write(sampleStats())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != first.Len()+second.Len() {
		t.Errorf("Write() n = %d, want %d", n, first.Len()+second.Len())
	}

	mw = NewMultiWriter(failWriter{}, NewJSONWriter(&first))
	if _, err := mw.Write(sampleStats()); err == nil {
		t.Error("Write() error = nil, want error from failing writer")
	}
}
