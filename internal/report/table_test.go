package report

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Goal", "Minutes", "XP"}
	rows := [][]string{
		{"report", "25", "12"},
		{"日本語", "5", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Goal    Minutes  XP" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "report       25  12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "日本語        5   3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableNoTrailingSpace(t *testing.T) {
	lines := formatTable([]string{"A", "Goal"}, [][]string{{"1", "x"}}, nil)
	if lines[1] != "1  x" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
