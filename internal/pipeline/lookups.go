package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"
)

// Sample is a progress entry with its notes already decoded.
type Sample struct {
	Entry  model.ProgressEntry
	Date   time.Time
	Fields notes.Fields
}

// Series is a project's progress in ascending date order.
type Series []Sample

// NewSeries sorts entries by date and decodes their notes once.
func NewSeries(entries []model.ProgressEntry) Series {
	s := make(Series, 0, len(entries))
	for _, e := range entries {
		s = append(s, Sample{Entry: e, Date: Day(e.EntryDate), Fields: notes.Parse(e.Notes)})
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
	return s
}

// upTo returns the samples dated on or before d.
func (s Series) upTo(d time.Time) Series {
	d = Day(d)
	n := sort.Search(len(s), func(i int) bool { return s[i].Date.After(d) })
	return s[:n]
}

// within returns the samples dated in [from, to].
func (s Series) within(from, to time.Time) Series {
	from, to = Day(from), Day(to)
	lo := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(from) })
	hi := sort.Search(len(s), func(i int) bool { return s[i].Date.After(to) })
	if lo >= hi {
		return nil
	}
	return s[lo:hi]
}

// plannedCostTo sums the planned cost column up to and including d.
func (s Series) plannedCostTo(d time.Time) float64 {
	var sum float64
	for _, smp := range s.upTo(d) {
		sum += smp.Entry.PlannedCost
	}
	return sum
}

// FinancialValue returns the planned money figure of a timeline cell.
//
// Cumulative cells carry the cumulative budgeted cost of the last entry on
// or before the period end. Interval cells carry the planned cost spent in
// the period: monthly and weekly columns sum the positive per-period costs
// recorded in the notes, daily and yearly columns take the difference of
// planned cost totals at consecutive month or year ends. Interval values are
// never negative.
func FinancialValue(s Series, p Period, kind model.FlowKind, flow model.FlowType) (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}

	if kind == model.FlowCumulative {
		before := s.upTo(p.End)
		if len(before) == 0 {
			return 0, false
		}
		return before[len(before)-1].Fields.Number(notes.RowCumulativeBudget)
	}

	var v float64
	switch flow {
	case model.FlowDaily:
		end := monthEnd(p.Start)
		prev := monthStart(p.Start).AddDate(0, 0, -1)
		v = s.plannedCostTo(end) - s.plannedCostTo(prev)
	case model.FlowYearly:
		y := p.Start.Year()
		v = s.plannedCostTo(yearEnd(y)) - s.plannedCostTo(yearEnd(y-1))
	default:
		for _, smp := range s.within(p.Start, p.End) {
			if c, ok := smp.Fields.Number(notes.RowPlannedCost); ok && c > 0 {
				v += c
			}
		}
	}
	return math.Max(0, v), true
}

// ProgressAt returns row from the last entry within [from, to]. With no
// entry in the window it falls back to the last entry before to.
func ProgressAt(s Series, from, to time.Time, row int) (float64, bool) {
	if in := s.within(from, to); len(in) > 0 {
		return in[len(in)-1].Fields.Number(row)
	}
	if before := s.upTo(to); len(before) > 0 {
		return before[len(before)-1].Fields.Number(row)
	}
	return 0, false
}

// MaxProgressIn returns the largest positive value of row within
// [from, to], falling back like ProgressAt when none is positive.
func MaxProgressIn(s Series, from, to time.Time, row int) (float64, bool) {
	in := s.within(from, to)
	if len(in) == 0 {
		return ProgressAt(s, from, to, row)
	}
	best, found := 0.0, false
	for _, smp := range in {
		if v, ok := smp.Fields.Number(row); ok && v > 0 && (!found || v > best) {
			best, found = v, true
		}
	}
	if found {
		return best, true
	}
	return in[len(in)-1].Fields.Number(row)
}

// nearestByEntryDate returns the non-negative value of row whose entry date
// is closest to target. The earlier entry wins a tie.
func nearestByEntryDate(s Series, target time.Time, row int) (float64, bool) {
	best, bestDist, found := 0.0, math.MaxInt, false
	for _, smp := range s {
		v, ok := smp.Fields.Number(row)
		if !ok || v < 0 {
			continue
		}
		d := absInt(daysBetween(target, smp.Date))
		if d < bestDist {
			best, bestDist, found = v, d, true
		}
	}
	return best, found
}

// WeeklyResource returns the weekly manpower or equipment count (row 18 or
// 19) recorded nearest the Thursday closing the week.
func WeeklyResource(s Series, week Period, row int) (float64, bool) {
	target := NextThursday(week.Start)
	if target.After(week.End) {
		target = week.End
	}
	return nearestByEntryDate(s, target, row)
}

// MonthlyResource returns the monthly count (row 21 or 22) recorded nearest
// the start of the month.
func MonthlyResource(s Series, month Period, row int) (float64, bool) {
	return nearestByEntryDate(s, month.Start, row)
}

// sampleDate is the date in dateRow, or the entry date when that row is
// missing or zero.
func sampleDate(smp Sample, dateRow int) time.Time {
	if d, ok := smp.Fields.Date(dateRow); ok {
		return Day(d)
	}
	return smp.Date
}

// ClosestMonthlyValue matches a period to the entry whose recorded month is
// nearest the middle of the period. An entry in the same month wins at once;
// otherwise the smallest month distance wins and ties go to the later date.
func ClosestMonthlyValue(s Series, from, to time.Time, valueRow, dateRow int) (float64, bool) {
	target := Period{Start: Day(from), End: Day(to)}.Mid()

	best, bestDist, found := 0.0, math.MaxInt, false
	var bestDate time.Time
	for _, smp := range s {
		v, ok := smp.Fields.Number(valueRow)
		if !ok {
			continue
		}
		d := sampleDate(smp, dateRow)
		dist := absInt((target.Year()-d.Year())*12 + int(target.Month()) - int(d.Month()))
		if dist == 0 {
			return v, true
		}
		if dist < bestDist || (dist == bestDist && d.After(bestDate)) {
			best, bestDist, bestDate, found = v, dist, d, true
		}
	}
	return best, found
}

// ClosestWeeklyValue is ClosestMonthlyValue measured in days.
func ClosestWeeklyValue(s Series, from, to time.Time, valueRow, dateRow int) (float64, bool) {
	target := Period{Start: Day(from), End: Day(to)}.Mid()

	best, bestDist, found := 0.0, math.MaxInt, false
	var bestDate time.Time
	for _, smp := range s {
		v, ok := smp.Fields.Number(valueRow)
		if !ok {
			continue
		}
		d := sampleDate(smp, dateRow)
		dist := absInt(daysBetween(target, d))
		if dist < bestDist || (dist == bestDist && d.After(bestDate)) {
			best, bestDist, bestDate, found = v, dist, d, true
		}
	}
	return best, found
}

// WeeklyDate returns the first weekly date recorded by an entry in
// [from, to], snapped to the nearest Thursday.
func WeeklyDate(s Series, from, to time.Time) (time.Time, bool) {
	for _, smp := range s.within(from, to) {
		if d, ok := smp.Fields.Date(notes.RowWeeklyDate); ok {
			return NearestThursday(d), true
		}
	}
	return time.Time{}, false
}

// MonthlyDate returns the first monthly date recorded by an entry in
// [from, to].
func MonthlyDate(s Series, from, to time.Time) (time.Time, bool) {
	for _, smp := range s.within(from, to) {
		if d, ok := smp.Fields.Date(notes.RowMonthlyDate); ok {
			return Day(d), true
		}
	}
	return time.Time{}, false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
