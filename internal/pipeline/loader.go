package pipeline

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"
)

// CellFunc computes one timeline cell from a project's series. ok is false
// when the cell has no data.
type CellFunc func(s Series, p Period) (float64, bool)

// FinancialCell computes planned money cells for kind and flow.
func FinancialCell(kind model.FlowKind, flow model.FlowType) CellFunc {
	return func(s Series, p Period) (float64, bool) {
		return FinancialValue(s, p, kind, flow)
	}
}

// ProgressCell reads a percentage row per period. With peak set it takes
// the period maximum instead of the last value.
func ProgressCell(row int, peak bool) CellFunc {
	return func(s Series, p Period) (float64, bool) {
		if peak {
			return MaxProgressIn(s, p.Start, p.End, row)
		}
		return ProgressAt(s, p.Start, p.End, row)
	}
}

// ResourceCell reads a manpower or equipment count per period. Weekly flows
// use the weekly rows matched by day, everything else the monthly rows
// matched by month.
func ResourceCell(flow model.FlowType, kind model.ResourceKind) CellFunc {
	if flow == model.FlowWeekly {
		row := notes.RowWeeklyManpower
		if kind == model.Equipment {
			row = notes.RowWeeklyEquipment
		}
		return func(s Series, p Period) (float64, bool) {
			return ClosestWeeklyValue(s, p.Start, p.End, row, notes.RowWeeklyDate)
		}
	}
	row := notes.RowMonthlyManpower
	if kind == model.Equipment {
		row = notes.RowMonthlyEquipment
	}
	return func(s Series, p Period) (float64, bool) {
		return ClosestMonthlyValue(s, p.Start, p.End, row, notes.RowMonthlyDate)
	}
}

// TimelineRow is one project's values across the timeline columns.
type TimelineRow struct {
	Project model.Project
	Values  []float64
	Present []bool
	Total   float64
}

// Timeline is a project-by-period matrix.
type Timeline struct {
	Columns []Period
	Rows    []TimelineRow
	Totals  []float64 // per column, across projects
}

// ProgressFunc is called as rows complete. current is the number of
// projects processed so far, total the number of projects.
type ProgressFunc func(current, total int)

// BuildTimeline evaluates cell for every project and column. Projects are
// processed by a bounded worker pool; rows keep the order of projects.
func BuildTimeline(projects []model.Project, progress map[string][]model.ProgressEntry, cols []Period, cell CellFunc, progressFn ProgressFunc) *Timeline {
	tl := &Timeline{
		Columns: cols,
		Rows:    make([]TimelineRow, len(projects)),
		Totals:  make([]float64, len(cols)),
	}
	if len(projects) == 0 {
		return tl
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(projects) {
		numWorkers = len(projects)
	}

	work := make(chan int, len(projects))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range projects {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				tl.Rows[idx] = buildRow(projects[idx], NewSeries(progress[projects[idx].Name]), cols, cell)
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(projects))
				}
			}
		}()
	}

	wg.Wait()

	for _, r := range tl.Rows {
		for i, v := range r.Values {
			tl.Totals[i] += v
		}
	}
	return tl
}

func buildRow(p model.Project, s Series, cols []Period, cell CellFunc) TimelineRow {
	row := TimelineRow{
		Project: p,
		Values:  make([]float64, len(cols)),
		Present: make([]bool, len(cols)),
	}
	for i, c := range cols {
		v, ok := cell(s, c)
		if !ok {
			continue
		}
		row.Values[i] = v
		row.Present[i] = true
		row.Total += v
	}
	return row
}

// GrandTotal sums the column totals.
func (tl *Timeline) GrandTotal() float64 {
	var sum float64
	for _, v := range tl.Totals {
		sum += v
	}
	return sum
}
