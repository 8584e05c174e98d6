// Package model defines the portfolio domain types shared across evmboard.
package model

import (
	"strings"
	"time"
	"unicode"
)

// DateLayout is the storage and wire layout for calendar dates.
const DateLayout = "2006-01-02"

// UncategorizedName is the category projects fall into when none is set.
const UncategorizedName = "Uncategorized"

// Category groups projects for display and reporting.
type Category struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Project is a tracked construction project.
type Project struct {
	ID                int64
	Name              string // unique
	Code              string // contract or project number
	PurchaseOrder     string
	CategoryID        *int64
	CategoryName      string
	ExecutingCompany  string
	ConsultingCompany string
	Contractor        string
	ProjectManager    string
	StartDate         time.Time
	EndDate           time.Time
	TotalBudget       float64
	Location          string
	Type              string
	Description       string
	DisplayOrder      int
	CreatedAt         time.Time
}

// DisplayCode returns the identifier used on sheets and reports:
// purchase order, then project code, then an abbreviation of the name.
func (p Project) DisplayCode() string {
	if s := strings.TrimSpace(p.PurchaseOrder); s != "" {
		return s
	}
	if s := strings.TrimSpace(p.Code); s != "" {
		return s
	}
	return Abbreviate(p.Name)
}

// DurationDays is the planned duration, or 0 when the dates are unset or inverted.
func (p Project) DurationDays() int {
	if p.StartDate.IsZero() || p.EndDate.IsZero() || p.EndDate.Before(p.StartDate) {
		return 0
	}
	return int(p.EndDate.Sub(p.StartDate).Hours() / 24)
}

// Abbreviate builds a short code from a project name: initials of the first
// three words for multi-word names, else the first six letters uppercased.
func Abbreviate(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 1 {
		var b strings.Builder
		for i, w := range words {
			if i == 3 {
				break
			}
			r := []rune(w)[0]
			b.WriteRune(unicode.ToUpper(r))
		}
		return b.String()
	}
	r := []rune(words[0])
	if len(r) > 6 {
		r = r[:6]
	}
	return strings.ToUpper(string(r))
}

// ProgressEntry is one dated observation of planned vs actual progress.
// Completion values are percentages in [0, 100].
type ProgressEntry struct {
	ID                int64
	Project           string
	EntryDate         time.Time
	PlannedCompletion float64
	PlannedCost       float64
	ActualCompletion  float64
	ActualCost        float64
	Notes             string
}

// ResourceKind distinguishes labor from equipment allocations.
type ResourceKind string

const (
	Labor     ResourceKind = "labor"
	Equipment ResourceKind = "equipment"
)

// Resource is a labor or equipment allocation against a project.
type Resource struct {
	ID        int64
	Project   string
	Kind      ResourceKind
	Name      string
	Quantity  float64
	DailyRate float64
	StartDate time.Time
	EndDate   time.Time
	Notes     string
}

// Days returns the inclusive allocation length in days.
func (r Resource) Days() int {
	if r.StartDate.IsZero() || r.EndDate.IsZero() || r.EndDate.Before(r.StartDate) {
		return 0
	}
	return int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1
}

// Cost is quantity times daily rate over the allocation.
func (r Resource) Cost() float64 {
	return r.Quantity * r.DailyRate * float64(r.Days())
}

// CashFlowRow is a progress entry joined with its project's budget.
type CashFlowRow struct {
	Project           string
	EntryDate         time.Time
	PlannedCost       float64
	ActualCost        float64
	PlannedCompletion float64
	ActualCompletion  float64
	TotalBudget       float64
}

// OriginalFile is an imported workbook kept verbatim for re-export.
type OriginalFile struct {
	ID         int64
	Name       string
	Content    []byte
	Hash       string
	BatchID    string
	Projects   []string
	ImportedAt time.Time
}

// Stats summarizes what the database holds.
type Stats struct {
	Projects int
	Records  int // progress entries plus resources
	SizeMB   float64
}
