package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Topic", "Minutes", "XP"}
	rows := [][]string{
		{"Algebra", "25", "250"},
		{"Calculus II", "5", "40"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Topic       Minutes  XP" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Algebra          25 250" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Calculus II       5  40" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Icon", "Name"}, [][]string{{"🚀", "First Steps"}, {"x", "Other"}}, nil)
	if lines[1] != "🚀   First Steps" {
		t.Fatalf("unexpected wide row %q", lines[1])
	}
	if lines[2] != "x    Other" {
		t.Fatalf("unexpected narrow row %q", lines[2])
	}
}
