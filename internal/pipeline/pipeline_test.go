package pipeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pe(d time.Time, plannedCost float64, n string) model.ProgressEntry {
	return model.ProgressEntry{Project: "P", EntryDate: d, PlannedCost: plannedCost, Notes: n}
}

func TestWeeklyColumnsAnchorOnThursday(t *testing.T) {
	cols := WeeklyColumns(date(2024, 1, 1), date(2024, 1, 31))
	require.Len(t, cols, 4)

	assert.Equal(t, "2024-01-04", cols[0].Key)
	assert.Equal(t, "04-01-2024", cols[0].Label)
	assert.Equal(t, date(2023, 12, 29), cols[0].Start)
	assert.Equal(t, date(2024, 1, 4), cols[0].End)
	assert.Equal(t, "2024-01-25", cols[3].Key)
	for _, c := range cols {
		assert.Equal(t, time.Thursday, c.End.Weekday())
	}
}

func TestMonthlyAndYearlyColumns(t *testing.T) {
	months := MonthlyColumns(date(2024, 1, 15), date(2024, 3, 2))
	require.Len(t, months, 3)
	assert.Equal(t, "2024-01", months[0].Key)
	assert.Equal(t, date(2024, 1, 1), months[0].Start)
	assert.Equal(t, date(2024, 2, 29), months[1].End)

	years := YearlyColumns(date(2023, 6, 1), date(2024, 2, 1))
	require.Len(t, years, 2)
	assert.Equal(t, date(2023, 12, 31), years[0].End)
	assert.Equal(t, "2024", years[1].Key)
}

func TestDateColumns(t *testing.T) {
	assert.Equal(t,
		[]string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"},
		DateColumns(date(2024, 1, 30), date(2024, 2, 2), model.FlowDaily))
	assert.Equal(t, []string{"2023-12", "2024-01"}, DateColumns(date(2023, 12, 31), date(2024, 1, 1), model.FlowMonthly))
	assert.Nil(t, DateColumns(date(2024, 2, 1), date(2024, 1, 1), model.FlowMonthly))
}

func TestNearestThursday(t *testing.T) {
	assert.Equal(t, date(2024, 1, 4), NearestThursday(date(2024, 1, 1)))  // Monday
	assert.Equal(t, date(2024, 1, 4), NearestThursday(date(2024, 1, 7)))  // Sunday
	assert.Equal(t, date(2024, 1, 11), NearestThursday(date(2024, 1, 8))) // Monday
	assert.Equal(t, date(2024, 1, 4), NearestThursday(date(2024, 1, 4)))
	assert.Equal(t, date(2024, 1, 4), NextThursday(date(2024, 1, 4)))
	assert.Equal(t, date(2024, 1, 11), NextThursday(date(2024, 1, 5)))
}

func TestProjectCashFlow(t *testing.T) {
	rows := []model.CashFlowRow{
		{Project: "A", EntryDate: date(2024, 2, 1), PlannedCost: 20, ActualCost: 30},
		{Project: "A", EntryDate: date(2024, 1, 1), PlannedCost: 10, ActualCost: 5},
	}
	pts := ProjectCashFlow(rows)
	require.Len(t, pts, 2)
	assert.Equal(t, date(2024, 1, 1), pts[0].Date)
	assert.Equal(t, -5.0, pts[0].Variance)
	assert.Equal(t, 30.0, pts[1].CumulativePlanned)
	assert.Equal(t, 35.0, pts[1].CumulativeActual)
	assert.Equal(t, 5.0, pts[1].CumulativeVariance)
	assert.Equal(t, date(2024, 2, 1), rows[0].EntryDate, "input is not reordered")
}

func TestPortfolioCashFlowGroupsByDate(t *testing.T) {
	pts := PortfolioCashFlow([]model.CashFlowRow{
		{Project: "A", EntryDate: date(2024, 1, 1), PlannedCost: 10, ActualCost: 10},
		{Project: "B", EntryDate: date(2024, 1, 1), PlannedCost: 5, ActualCost: 1},
		{Project: "B", EntryDate: date(2023, 12, 1), PlannedCost: 1},
	})
	require.Len(t, pts, 2)
	assert.Equal(t, date(2023, 12, 1), pts[0].Date)
	assert.Equal(t, 15.0, pts[1].PlannedCost)
	assert.Equal(t, 16.0, pts[1].CumulativePlanned)
	assert.Equal(t, -5.0, pts[1].CumulativeVariance)
	assert.Empty(t, pts[1].Project)
}

func TestAggregateFinancials(t *testing.T) {
	rows := []model.CashFlowRow{
		{Project: "B", EntryDate: date(2024, 1, 3), PlannedCost: 1, PlannedCompletion: 10, TotalBudget: 100},
		{Project: "A", EntryDate: date(2024, 1, 5), PlannedCost: 2, PlannedCompletion: 10, TotalBudget: 50},
		{Project: "A", EntryDate: date(2024, 1, 25), PlannedCost: 3, PlannedCompletion: 20, TotalBudget: 50},
		{Project: "A", EntryDate: date(2024, 2, 1), PlannedCost: 4, PlannedCompletion: 30, TotalBudget: 50},
	}

	monthly := AggregateFinancials(rows, model.FlowMonthly)
	require.Len(t, monthly, 3)
	assert.Equal(t, FinancialAggregate{
		Project: "A", Period: "2024-01", PlannedCost: 5, PlannedCompletion: 15, TotalBudget: 50, Entries: 2,
	}, monthly[0])
	assert.Equal(t, "2024-02", monthly[1].Period)
	assert.Equal(t, "B", monthly[2].Project)

	yearly := AggregateFinancials(rows, model.FlowYearly)
	require.Len(t, yearly, 2)
	assert.Equal(t, 9.0, yearly[0].PlannedCost)
}

func TestFilterByTimeAndProject(t *testing.T) {
	rows := []model.CashFlowRow{
		{Project: "A", EntryDate: date(2024, 1, 1)},
		{Project: "A", EntryDate: date(2024, 1, 31)},
		{Project: "A", EntryDate: date(2024, 2, 1)},
	}
	assert.Len(t, FilterByTime(rows, date(2024, 1, 1), date(2024, 1, 31)), 2)
	assert.Len(t, FilterByTime(rows, time.Time{}, time.Time{}), 3)
	assert.Len(t, FilterByTime(rows, date(2024, 1, 15), time.Time{}), 2)

	projects := []model.Project{{Name: "Pump Station", Code: "PS-1"}, {Name: "Road"}}
	assert.Len(t, FilterByProject(projects, "pump"), 1)
	assert.Len(t, FilterByProject(projects, "ps-"), 1)
	assert.Len(t, FilterByProject(projects, ""), 2)
}

func financialSeries() Series {
	return NewSeries([]model.ProgressEntry{
		pe(date(2024, 2, 15), 200, "R7:-5|R8:350"),
		pe(date(2024, 1, 10), 100, "R7:100|R8:100"),
		pe(date(2024, 1, 20), 50, "R7:50|R8:150"),
	})
}

func TestFinancialValueCumulative(t *testing.T) {
	s := financialSeries()
	jan := MonthlyColumns(date(2024, 1, 1), date(2024, 1, 1))[0]
	feb := MonthlyColumns(date(2024, 2, 1), date(2024, 2, 1))[0]
	dec := MonthlyColumns(date(2023, 12, 1), date(2023, 12, 1))[0]

	v, ok := FinancialValue(s, jan, model.FlowCumulative, model.FlowMonthly)
	require.True(t, ok)
	assert.Equal(t, 150.0, v)

	v, _ = FinancialValue(s, feb, model.FlowCumulative, model.FlowMonthly)
	assert.Equal(t, 350.0, v)

	_, ok = FinancialValue(s, dec, model.FlowCumulative, model.FlowMonthly)
	assert.False(t, ok, "nothing recorded before December ends")

	day := DailyColumns(date(2024, 1, 15), date(2024, 1, 15))[0]
	v, _ = FinancialValue(s, day, model.FlowCumulative, model.FlowDaily)
	assert.Equal(t, 100.0, v)
}

func TestFinancialValueInterval(t *testing.T) {
	s := financialSeries()
	jan := MonthlyColumns(date(2024, 1, 1), date(2024, 1, 1))[0]
	feb := MonthlyColumns(date(2024, 2, 1), date(2024, 2, 1))[0]

	v, ok := FinancialValue(s, jan, model.FlowInterval, model.FlowMonthly)
	require.True(t, ok)
	assert.Equal(t, 150.0, v)

	v, ok = FinancialValue(s, feb, model.FlowInterval, model.FlowMonthly)
	require.True(t, ok)
	assert.Zero(t, v, "negative interval costs are ignored")

	day := DailyColumns(date(2024, 2, 3), date(2024, 2, 3))[0]
	v, _ = FinancialValue(s, day, model.FlowInterval, model.FlowDaily)
	assert.Equal(t, 200.0, v, "daily columns carry the month's planned cost")

	year := YearlyColumns(date(2024, 1, 1), date(2024, 1, 1))[0]
	v, _ = FinancialValue(s, year, model.FlowInterval, model.FlowYearly)
	assert.Equal(t, 350.0, v)

	_, ok = FinancialValue(nil, jan, model.FlowInterval, model.FlowMonthly)
	assert.False(t, ok)
}

func TestProgressAtAndMax(t *testing.T) {
	s := NewSeries([]model.ProgressEntry{
		pe(date(2024, 1, 5), 0, "R13:10"),
		pe(date(2024, 1, 20), 0, "R13:30"),
		pe(date(2024, 1, 25), 0, "R13:0"),
	})

	v, ok := ProgressAt(s, date(2024, 1, 1), date(2024, 1, 31), notes.RowActual)
	require.True(t, ok)
	assert.Zero(t, v, "last value in the window")

	v, ok = MaxProgressIn(s, date(2024, 1, 1), date(2024, 1, 31), notes.RowActual)
	require.True(t, ok)
	assert.Equal(t, 30.0, v)

	v, ok = ProgressAt(s, date(2024, 2, 1), date(2024, 2, 29), notes.RowActual)
	require.True(t, ok, "falls back to the last earlier entry")
	assert.Zero(t, v)

	_, ok = MaxProgressIn(s, date(2023, 1, 1), date(2023, 1, 31), notes.RowActual)
	assert.False(t, ok)

	zeros := NewSeries([]model.ProgressEntry{pe(date(2024, 1, 5), 0, "R13:0"), pe(date(2024, 1, 6), 0, "R13:-")})
	v, ok = MaxProgressIn(zeros, date(2024, 1, 1), date(2024, 1, 31), notes.RowActual)
	require.True(t, ok)
	assert.Zero(t, v)
}

func TestWeeklyAndMonthlyResource(t *testing.T) {
	s := NewSeries([]model.ProgressEntry{
		pe(date(2024, 1, 8), 0, "R18:12|R21:4"),
		pe(date(2024, 1, 15), 0, "R18:20|R21:7"),
		pe(date(2024, 1, 11), 0, "R18:-1"),
	})
	week := WeeklyColumns(date(2024, 1, 5), date(2024, 1, 11))[0]
	v, ok := WeeklyResource(s, week, notes.RowWeeklyManpower)
	require.True(t, ok)
	assert.Equal(t, 12.0, v)

	month := MonthlyColumns(date(2024, 1, 1), date(2024, 1, 1))[0]
	v, ok = MonthlyResource(s, month, notes.RowMonthlyManpower)
	require.True(t, ok)
	assert.Equal(t, 4.0, v)

	_, ok = MonthlyResource(s, month, notes.RowMonthlyEquipment)
	assert.False(t, ok)
}

func TestClosestMonthlyValue(t *testing.T) {
	s := NewSeries([]model.ProgressEntry{
		pe(date(2024, 2, 10), 0, "R21:3|R20:0"),
		pe(date(2024, 4, 20), 0, "R21:9|R20:2024-04-01"),
		pe(date(2024, 6, 1), 0, "R21:1"),
	})
	v, ok := ClosestMonthlyValue(s, date(2024, 3, 1), date(2024, 3, 31), notes.RowMonthlyManpower, notes.RowMonthlyDate)
	require.True(t, ok)
	assert.Equal(t, 9.0, v, "equal month distance prefers the later date")

	v, _ = ClosestMonthlyValue(s, date(2024, 6, 1), date(2024, 6, 30), notes.RowMonthlyManpower, notes.RowMonthlyDate)
	assert.Equal(t, 1.0, v)

	// the recorded month wins over the entry date
	s = NewSeries([]model.ProgressEntry{pe(date(2024, 5, 2), 0, "R21:6|R20:2024-03-31")})
	v, _ = ClosestMonthlyValue(s, date(2024, 3, 1), date(2024, 3, 31), notes.RowMonthlyManpower, notes.RowMonthlyDate)
	assert.Equal(t, 6.0, v)
}

func TestClosestWeeklyValue(t *testing.T) {
	s := NewSeries([]model.ProgressEntry{
		pe(date(2024, 1, 2), 0, "R19:2"),
		pe(date(2024, 1, 20), 0, "R19:5|R17:2024-01-06"),
	})
	// window Jan 1..Jan 7, mid Jan 4: Jan 2 and Jan 6 are both two days out
	v, ok := ClosestWeeklyValue(s, date(2024, 1, 1), date(2024, 1, 7), notes.RowWeeklyEquipment, notes.RowWeeklyDate)
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestWeeklyAndMonthlyDate(t *testing.T) {
	s := NewSeries([]model.ProgressEntry{
		pe(date(2024, 1, 8), 0, "R17:2024-01-07|R20:2024-01-31"),
		pe(date(2024, 1, 9), 0, "R17:2024-01-11"),
	})
	d, ok := WeeklyDate(s, date(2024, 1, 1), date(2024, 1, 31))
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 4), d)

	d, ok = MonthlyDate(s, date(2024, 1, 1), date(2024, 1, 31))
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 31), d)

	_, ok = WeeklyDate(s, date(2024, 3, 1), date(2024, 3, 31))
	assert.False(t, ok)
}

func TestElapsedPercentAndBurnRate(t *testing.T) {
	p := model.Project{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 11)}
	v, ok := ElapsedPercent(p, date(2024, 1, 16))
	require.True(t, ok)
	assert.InDelta(t, 1.5, v, 1e-9)
	assert.True(t, BeyondEnd(p, date(2024, 1, 12)))
	assert.False(t, BeyondEnd(p, date(2024, 1, 11)))

	_, ok = ElapsedPercent(model.Project{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 1)}, date(2024, 1, 2))
	assert.False(t, ok)

	assert.Equal(t, 10.0, BurnRate([]float64{100, 200}, []time.Time{date(2024, 1, 1), date(2024, 1, 11)}))
	assert.Zero(t, BurnRate([]float64{100}, []time.Time{date(2024, 1, 1)}))
	assert.Zero(t, BurnRate([]float64{1, 2}, []time.Time{date(2024, 1, 1), date(2024, 1, 1)}))
}

func TestBuildTimeline(t *testing.T) {
	projects := []model.Project{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	progress := map[string][]model.ProgressEntry{
		"A": {pe(date(2024, 1, 10), 100, "R8:100"), pe(date(2024, 2, 10), 100, "R8:250")},
		"B": {pe(date(2024, 2, 1), 50, "R8:50")},
	}
	cols := MonthlyColumns(date(2024, 1, 1), date(2024, 2, 29))

	var calls atomic.Int64
	tl := BuildTimeline(projects, progress, cols, FinancialCell(model.FlowCumulative, model.FlowMonthly), func(current, total int) {
		calls.Add(1)
		assert.Equal(t, 3, total)
	})

	assert.Equal(t, int64(3), calls.Load())
	require.Len(t, tl.Rows, 3)
	assert.Equal(t, "A", tl.Rows[0].Project.Name)
	assert.Equal(t, []float64{100, 250}, tl.Rows[0].Values)
	assert.Equal(t, []bool{false, true}, tl.Rows[1].Present)
	assert.Equal(t, []bool{false, false}, tl.Rows[2].Present)
	assert.Equal(t, []float64{100, 300}, tl.Totals)
	assert.Equal(t, 400.0, tl.GrandTotal())

	empty := BuildTimeline(nil, nil, cols, FinancialCell(model.FlowInterval, model.FlowMonthly), nil)
	assert.Empty(t, empty.Rows)
	assert.Len(t, empty.Totals, 2)
}

func TestResourceCell(t *testing.T) {
	s := NewSeries([]model.ProgressEntry{pe(date(2024, 1, 10), 0, "R18:8|R19:2|R21:30|R22:6")})
	week := WeeklyColumns(date(2024, 1, 5), date(2024, 1, 11))[0]
	month := MonthlyColumns(date(2024, 1, 1), date(2024, 1, 1))[0]

	v, _ := ResourceCell(model.FlowWeekly, model.Equipment)(s, week)
	assert.Equal(t, 2.0, v)
	v, _ = ResourceCell(model.FlowMonthly, model.Labor)(s, month)
	assert.Equal(t, 30.0, v)
	v, _ = ProgressCell(notes.RowActual, true)(s, month)
	assert.Zero(t, v)
}

func TestProgressTableWeekly(t *testing.T) {
	p := model.Project{Name: "P", StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 10)}
	s := NewSeries([]model.ProgressEntry{
		pe(date(2024, 1, 3), 0, "R10:5|R11:4|R17:2024-01-02|R18:12|R19:3"),
		pe(date(2024, 1, 9), 0, "R10:15|R11:10|R18:20|R19:4"),
	})
	rows := ProgressTable(p, s, WeeklyColumns(date(2024, 1, 1), date(2024, 1, 31)), model.FlowWeekly)
	require.Len(t, rows, 4)

	first := rows[0]
	assert.Equal(t, date(2024, 1, 4), first.Date, "recorded weekly date snaps to Thursday")
	assert.True(t, first.Recorded)
	assert.Equal(t, Reading{Value: 5, OK: true}, first.Planned)
	assert.Equal(t, Reading{Value: 4, OK: true}, first.Elapsed)
	assert.Equal(t, Reading{Value: 12, OK: true}, first.Manpower)
	assert.Equal(t, Reading{Value: 3, OK: true}, first.Equipment)

	second := rows[1]
	assert.False(t, second.Recorded)
	assert.Equal(t, date(2024, 1, 11), second.Date)
	assert.False(t, second.AfterEnd, "the week holding the end date is still in range")
	assert.Equal(t, 15.0, second.Planned.Value)
	assert.Equal(t, 20.0, second.Manpower.Value)

	assert.True(t, rows[2].AfterEnd)
	assert.False(t, rows[2].Planned.OK)
	assert.False(t, rows[2].Manpower.OK)
}

func TestProgressTableMonthly(t *testing.T) {
	p := model.Project{Name: "P", StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 10)}
	s := NewSeries([]model.ProgressEntry{
		pe(date(2024, 1, 3), 0, "R10:5|R20:2024-01-31|R21:40"),
	})
	rows := ProgressTable(p, s, MonthlyColumns(date(2024, 1, 1), date(2024, 2, 28)), model.FlowMonthly)
	require.Len(t, rows, 2)

	assert.Equal(t, date(2024, 1, 31), rows[0].Date)
	assert.True(t, rows[0].Recorded)
	assert.Equal(t, Reading{Value: 40, OK: true}, rows[0].Manpower)
	assert.False(t, rows[0].Equipment.OK)
	assert.True(t, rows[1].AfterEnd)
}
