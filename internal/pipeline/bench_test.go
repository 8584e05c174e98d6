package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"
)

// syntheticPortfolio builds n projects with a weekly entry over two years.
func syntheticPortfolio(n int) ([]model.Project, map[string][]model.ProgressEntry) {
	start := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)
	projects := make([]model.Project, n)
	progress := make(map[string][]model.ProgressEntry, n)
	for i := range projects {
		name := fmt.Sprintf("P%03d", i)
		projects[i] = model.Project{Name: name, TotalBudget: 1_000_000, StartDate: start, EndDate: start.AddDate(2, 0, 0)}
		var cum float64
		for w := 0; w < 104; w++ {
			d := start.AddDate(0, 0, 7*w)
			cum += 9600
			progress[name] = append(progress[name], model.ProgressEntry{
				Project:     name,
				EntryDate:   d,
				PlannedCost: 9600,
				Notes: notes.Encode(notes.Record{
					Numbers: map[int]float64{notes.RowPlannedCost: 9600, notes.RowCumulativeBudget: cum, notes.RowWeeklyManpower: float64(w % 30)},
					Dates:   map[int]time.Time{notes.RowWeeklyDate: d},
				}),
			})
		}
	}
	return projects, progress
}

func BenchmarkBuildTimelineMonthly(b *testing.B) {
	projects, progress := syntheticPortfolio(60)
	cols := MonthlyColumns(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	cell := FinancialCell(model.FlowCumulative, model.FlowMonthly)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tl := BuildTimeline(projects, progress, cols, cell, nil)
		_ = tl
	}
}

func BenchmarkBuildTimelineWeeklyResources(b *testing.B) {
	projects, progress := syntheticPortfolio(60)
	cols := WeeklyColumns(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	cell := ResourceCell(model.FlowWeekly, model.Labor)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tl := BuildTimeline(projects, progress, cols, cell, nil)
		_ = tl
	}
}

func BenchmarkNewSeries(b *testing.B) {
	_, progress := syntheticPortfolio(1)
	entries := progress["P000"]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewSeries(entries)
	}
}
