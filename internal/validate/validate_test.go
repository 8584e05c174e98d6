package validate

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestProjectName(t *testing.T) {
	if err := ProjectName("  "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("blank name: got %v", err)
	}
	if err := ProjectName(strings.Repeat("a", 201)); !errors.Is(err, ErrNameTooLong) {
		t.Errorf("long name: got %v", err)
	}
	if err := ProjectName("Phase: 2"); !errors.Is(err, ErrNameChars) {
		t.Errorf("colon: got %v", err)
	}
	if err := ProjectName("مشروع الصرف الصحي"); err != nil {
		t.Errorf("arabic name rejected: %v", err)
	}
}

func TestParseBudget(t *testing.T) {
	v, err := ParseBudget("١٬٢٠٠٬٠٠٠ SAR")
	if err != nil {
		t.Fatalf("ParseBudget: %v", err)
	}
	if v != 1_200_000 {
		t.Errorf("ParseBudget = %v, want 1200000", v)
	}

	if _, err := ParseBudget("0"); !errors.Is(err, ErrBudgetRange) {
		t.Errorf("zero budget: got %v", err)
	}
	if _, err := ParseBudget("2,000,000,000,000"); err == nil {
		t.Error("expected error for out-of-range budget")
	}
	if _, err := ParseBudget("n/a"); !errors.Is(err, ErrBudgetInvalid) {
		t.Errorf("text budget: got %v", err)
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  <b>Main</b>\t\troad  "); got != "bMain/b road" {
		t.Errorf("CleanText = %q", got)
	}
}

func TestDurationBetween(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := DurationBetween(start, start.AddDate(0, 0, 70))
	if d.Days != 70 || d.Weeks != 10 {
		t.Errorf("Duration = %+v", d)
	}
	if got := DurationBetween(start, start.AddDate(0, 0, -1)); got != (Duration{}) {
		t.Errorf("inverted duration = %+v", got)
	}
	if err := DateRange(start, start.AddDate(0, 0, -1)); !errors.Is(err, ErrDateRange) {
		t.Errorf("DateRange: got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"25/03/2024", "2024-03-25", "25-03-2024", "2024-03-25 00:00:00"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v", in, got)
		}
	}
	if _, err := ParseDate("March 25"); err == nil {
		t.Error("expected error")
	}
}
