package model

import (
	"testing"
	"time"
)

func TestDisplayCode(t *testing.T) {
	p := Project{Name: "Riyadh Water Network", Code: "WN-12", PurchaseOrder: "PO-77"}
	if got := p.DisplayCode(); got != "PO-77" {
		t.Errorf("DisplayCode = %q, want PO-77", got)
	}
	p.PurchaseOrder = ""
	if got := p.DisplayCode(); got != "WN-12" {
		t.Errorf("DisplayCode = %q, want WN-12", got)
	}
	p.Code = ""
	if got := p.DisplayCode(); got != "RWN" {
		t.Errorf("DisplayCode = %q, want RWN", got)
	}
}

func TestAbbreviate(t *testing.T) {
	cases := map[string]string{
		"":                       "",
		"sewerage":               "SEWERA",
		"pump":                   "PUMP",
		"north east south west":  "NES",
		"main  road":             "MR",
	}
	for in, want := range cases {
		if got := Abbreviate(in); got != want {
			t.Errorf("Abbreviate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResourceCost(t *testing.T) {
	r := Resource{
		Quantity:  4,
		DailyRate: 150,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	if r.Days() != 10 {
		t.Fatalf("Days = %d, want 10", r.Days())
	}
	if r.Cost() != 6000 {
		t.Errorf("Cost = %.2f, want 6000", r.Cost())
	}

	r.EndDate = r.StartDate.AddDate(0, 0, -1)
	if r.Cost() != 0 {
		t.Errorf("inverted range cost = %.2f, want 0", r.Cost())
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"all":      "",
		"On Track": StatusOnTrack,
		"on-track": StatusOnTrack,
		"BEHIND":   StatusBehind,
	} {
		got, err := ParseStatus(in)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseStatus(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseStatus("late"); err == nil {
		t.Error("ParseStatus(late) should fail")
	}
}
