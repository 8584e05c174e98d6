package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func TestFormatters(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FormatNumber(1234567), "1,234,567"},
		{FormatNumber(-1000), "-1,000"},
		{FormatCount(1234), "1.2K"},
		{FormatPercent(42.26), "42.3%"},
		{FormatFraction(0.5), "50.0%"},
		{FormatIndex(0.94), "0.940"},
		{FormatFileSize(512), "512 B"},
		{FormatFileSize(1536), "1.5 KB"},
		{FormatFileSize(3 * 1024 * 1024), "3.0 MB"},
		{FormatDate(time.Time{}), "-"},
		{FormatDate(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)), "2024-03-09"},
		{FormatDays(400), "1y 1m 5d"},
		{FormatDays(0), "0d"},
		{FormatMoney(1500), "SAR 1,500.00"},
		{FormatDelta(10), "+SAR 10.00"},
	}
	for i, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("case %d: got %q, want %q", i, tt.got, tt.want)
		}
	}
}

func TestRenderTableAlignsWideRunes(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Project", "Budget"},
		Rows: [][]string{
			{"مشروع", "1"},
			{"---"},
			{"Road", "22"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	w := lipgloss.Width(lines[0])
	for i, l := range lines {
		if lipgloss.Width(l) != w {
			t.Errorf("line %d width %d, want %d:\n%s", i, lipgloss.Width(l), w, out)
		}
	}
}

func TestRenderHorizontalBar(t *testing.T) {
	got := RenderHorizontalBar("Water Projects", 3, 6, 10)
	if !strings.Contains(got, "Water Projects") || !strings.HasSuffix(got, " 3") {
		t.Fatalf("RenderHorizontalBar = %q", got)
	}
	if n := strings.Count(got, "█"); n != 5 {
		t.Fatalf("bar length = %d, want 5", n)
	}
	if got := RenderHorizontalBar("Empty", 0, 0, 10); got != "  Empty" {
		t.Fatalf("zero max = %q", got)
	}
}
