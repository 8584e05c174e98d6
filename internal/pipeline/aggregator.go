// Package pipeline turns stored progress into cash-flow series, period
// columns and per-period timeline values.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"
)

// CashFlowPoint is one dated row of a cash-flow report.
type CashFlowPoint struct {
	Date               time.Time `json:"date" yaml:"date"`
	Project            string    `json:"project,omitempty" yaml:"project,omitempty"`
	PlannedCost        float64   `json:"planned_cost" yaml:"planned_cost"`
	ActualCost         float64   `json:"actual_cost" yaml:"actual_cost"`
	Variance           float64   `json:"variance" yaml:"variance"`
	CumulativePlanned  float64   `json:"cumulative_planned" yaml:"cumulative_planned"`
	CumulativeActual   float64   `json:"cumulative_actual" yaml:"cumulative_actual"`
	CumulativeVariance float64   `json:"cumulative_variance" yaml:"cumulative_variance"`
}

// ProjectCashFlow orders rows by date and accumulates their costs. Variance
// is actual minus planned.
func ProjectCashFlow(rows []model.CashFlowRow) []CashFlowPoint {
	sorted := make([]model.CashFlowRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EntryDate.Before(sorted[j].EntryDate)
	})

	points := make([]CashFlowPoint, 0, len(sorted))
	for _, r := range sorted {
		points = append(points, CashFlowPoint{
			Date:        r.EntryDate,
			Project:     r.Project,
			PlannedCost: r.PlannedCost,
			ActualCost:  r.ActualCost,
		})
	}
	accumulate(points)
	return points
}

// PortfolioCashFlow sums every project's costs per date before
// accumulating.
func PortfolioCashFlow(rows []model.CashFlowRow) []CashFlowPoint {
	byDay := make(map[string]*CashFlowPoint)
	for _, r := range rows {
		key := Day(r.EntryDate).Format(model.DateLayout)
		p, ok := byDay[key]
		if !ok {
			p = &CashFlowPoint{Date: Day(r.EntryDate)}
			byDay[key] = p
		}
		p.PlannedCost += r.PlannedCost
		p.ActualCost += r.ActualCost
	}

	points := make([]CashFlowPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	accumulate(points)
	return points
}

func accumulate(points []CashFlowPoint) {
	var planned, actual, variance float64
	for i := range points {
		p := &points[i]
		p.Variance = p.ActualCost - p.PlannedCost
		planned += p.PlannedCost
		actual += p.ActualCost
		variance += p.Variance
		p.CumulativePlanned = planned
		p.CumulativeActual = actual
		p.CumulativeVariance = variance
	}
}

// FinancialAggregate is the project total for one period.
type FinancialAggregate struct {
	Project           string  `json:"project" yaml:"project"`
	Period            string  `json:"period" yaml:"period"`
	PlannedCost       float64 `json:"planned_cost" yaml:"planned_cost"`
	ActualCost        float64 `json:"actual_cost" yaml:"actual_cost"`
	PlannedCompletion float64 `json:"planned_completion" yaml:"planned_completion"`
	ActualCompletion  float64 `json:"actual_completion" yaml:"actual_completion"`
	TotalBudget       float64 `json:"total_budget" yaml:"total_budget"`
	Entries           int     `json:"entries" yaml:"entries"`
}

// PeriodKey returns the aggregation key of d for flow. Weekly keys are
// the Thursday that closes the week.
func PeriodKey(d time.Time, flow model.FlowType) string {
	d = Day(d)
	switch flow {
	case model.FlowDaily:
		return d.Format(model.DateLayout)
	case model.FlowWeekly:
		return NextThursday(d).Format(model.DateLayout)
	case model.FlowYearly:
		return d.Format("2006")
	default:
		return d.Format("2006-01")
	}
}

// AggregateFinancials groups rows by project and period: costs are summed,
// completion percentages averaged and the budget taken from the first row.
// The result is ordered by project, then period.
func AggregateFinancials(rows []model.CashFlowRow, flow model.FlowType) []FinancialAggregate {
	type groupKey struct{ project, period string }
	groups := make(map[groupKey]*FinancialAggregate)

	for _, r := range rows {
		k := groupKey{r.Project, PeriodKey(r.EntryDate, flow)}
		agg, ok := groups[k]
		if !ok {
			agg = &FinancialAggregate{Project: k.project, Period: k.period, TotalBudget: r.TotalBudget}
			groups[k] = agg
		}
		agg.PlannedCost += r.PlannedCost
		agg.ActualCost += r.ActualCost
		agg.PlannedCompletion += r.PlannedCompletion
		agg.ActualCompletion += r.ActualCompletion
		agg.Entries++
	}

	out := make([]FinancialAggregate, 0, len(groups))
	for _, agg := range groups {
		agg.PlannedCompletion /= float64(agg.Entries)
		agg.ActualCompletion /= float64(agg.Entries)
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Project != out[j].Project {
			return out[i].Project < out[j].Project
		}
		return out[i].Period < out[j].Period
	})
	return out
}

// FilterByTime returns rows dated within [since, until]. A zero bound is
// open.
func FilterByTime(rows []model.CashFlowRow, since, until time.Time) []model.CashFlowRow {
	if since.IsZero() && until.IsZero() {
		return rows
	}

	var result []model.CashFlowRow
	for _, r := range rows {
		d := Day(r.EntryDate)
		if !since.IsZero() && d.Before(Day(since)) {
			continue
		}
		if !until.IsZero() && d.After(Day(until)) {
			continue
		}
		result = append(result, r)
	}
	return result
}

// FilterByProject returns projects whose name or code contains the
// substring.
func FilterByProject(projects []model.Project, substr string) []model.Project {
	if substr == "" {
		return projects
	}
	var result []model.Project
	for _, p := range projects {
		if containsIgnoreCase(p.Name, substr) || containsIgnoreCase(p.Code, substr) {
			result = append(result, p)
		}
	}
	return result
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// BurnRate is the average cost per day between the first and last of a
// series of cumulative costs.
func BurnRate(costs []float64, dates []time.Time) float64 {
	if len(costs) < 2 || len(dates) < 2 {
		return 0
	}
	days := daysBetween(dates[0], dates[len(dates)-1])
	if days <= 0 {
		return 0
	}
	return (costs[len(costs)-1] - costs[0]) / float64(days)
}

// ElapsedPercent is how far at lies through the project's planned duration,
// as a fraction that passes 1 once the end date is behind. ok is false when
// the project has no positive duration.
func ElapsedPercent(p model.Project, at time.Time) (float64, bool) {
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return 0, false
	}
	total := daysBetween(p.StartDate, p.EndDate)
	if total <= 0 {
		return 0, false
	}
	return float64(daysBetween(p.StartDate, at)) / float64(total), true
}

// BeyondEnd reports whether d is after the project's end date.
func BeyondEnd(p model.Project, d time.Time) bool {
	return !p.EndDate.IsZero() && Day(d).After(Day(p.EndDate))
}
