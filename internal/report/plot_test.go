package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/sarge/internal/model"
)

func TestPlotCurves(t *testing.T) {
	var buf bytes.Buffer
	err := PlotCurves(&buf, "Test Plot", []Curve{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
	}, 5, 4, false)
	if err != nil {
		t.Fatalf("PlotCurves failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected title, 4 rows and legend, got %d lines", len(lines))
	}
	if lines[0] != "Test Plot" {
		t.Fatalf("expected title first, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "4 │ ") {
		t.Fatalf("expected top axis label 4, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "2 │ ") || !strings.HasPrefix(lines[4], "0 │ ") {
		t.Fatalf("unexpected axis labels: %q %q", lines[3], lines[4])
	}
	if !strings.Contains(lines[5], "A (solid)") || !strings.Contains(lines[5], "B (dashed)") {
		t.Fatalf("unexpected legend: %q", lines[5])
	}
}

func TestPlotCurvesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotCurves(&buf, "Empty", []Curve{{Name: "A"}}, 20, 4, false); err != nil {
		t.Fatalf("PlotCurves failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80, 2); got != 75 {
		t.Fatalf("expected width 75, got %d", got)
	}
	if got := PlotWidthFor(0, 2); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
	if got := PlotWidthFor(12, 5); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestRenderTrendsNeedsTwoSessions(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTrends(&buf, []model.HistoryEntry{{FocusMinutes: 25}}, 3, 80, 6, false); err != nil {
		t.Fatalf("RenderTrends failed: %v", err)
	}
	if got := buf.String(); got != "Not enough sessions for a trend.\n" {
		t.Fatalf("unexpected output %q", got)
	}

	buf.Reset()
	entries := []model.HistoryEntry{{FocusMinutes: 25, SessionXP: 25}, {FocusMinutes: 10, SessionXP: 5}}
	if err := RenderTrends(&buf, entries, 1, 80, 6, false); err != nil {
		t.Fatalf("RenderTrends failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Focus and XP (moving average 1)\n25 │ ") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "Session XP (dashed)") {
		t.Fatalf("expected legend in output")
	}
}
