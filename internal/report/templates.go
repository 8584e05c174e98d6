package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/excel"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"
	"github.com/theirongolddev/evmboard/internal/pipeline"
)

// Kind names a report template.
type Kind string

const (
	ExecutiveSummary     Kind = "executive-summary"
	FinancialPerformance Kind = "financial-performance"
	DetailedProgress     Kind = "detailed-progress"
	ProjectComparison    Kind = "project-comparison"
	RiskManagement       Kind = "risk-management"
	ResourceCost         Kind = "resource-cost"
	ScheduleTimeline     Kind = "schedule-timeline"
	AdvancedKPI          Kind = "advanced-kpi"
)

// Kinds lists every template in menu order.
var Kinds = []Kind{
	ExecutiveSummary, FinancialPerformance, DetailedProgress, ProjectComparison,
	RiskManagement, ResourceCost, ScheduleTimeline, AdvancedKPI,
}

var titles = map[Kind]string{
	ExecutiveSummary:     "Executive Summary Report",
	FinancialPerformance: "Financial Performance Report",
	DetailedProgress:     "Detailed Progress Report",
	ProjectComparison:    "Project Comparison Report",
	RiskManagement:       "Risk Management Report",
	ResourceCost:         "Resources and Costs Report",
	ScheduleTimeline:     "Schedule Timeline Report",
	AdvancedKPI:          "Advanced KPI Report",
}

// Title is the report heading.
func (k Kind) Title() string {
	if t, ok := titles[k]; ok {
		return t
	}
	return titles[ExecutiveSummary]
}

// ParseKind resolves a template name. Unknown names fall back to the
// executive summary with ok false.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := titles[k]; ok {
		return k, true
	}
	return ExecutiveSummary, false
}

// ErrNoProjects is returned when a report is requested for no projects.
var ErrNoProjects = errors.New("no projects selected")

type builder func(*excel.Workbook, *Input) error

var builders = map[Kind]builder{
	ExecutiveSummary:     executiveSummary,
	FinancialPerformance: financialPerformance,
	DetailedProgress:     detailedProgress,
	ProjectComparison:    projectComparison,
	RiskManagement:       riskManagement,
	ResourceCost:         resourceCost,
	ScheduleTimeline:     scheduleTimeline,
	AdvancedKPI:          advancedKPI,
}

// Generate renders the report of kind k as an xlsx workbook.
func Generate(k Kind, in *Input) ([]byte, error) {
	if len(in.Projects) == 0 {
		return nil, ErrNoProjects
	}
	build, ok := builders[k]
	if !ok {
		k, build = ExecutiveSummary, executiveSummary
	}
	w, err := excel.NewWorkbook()
	if err != nil {
		return nil, err
	}
	if err := build(w, in); err != nil {
		return nil, fmt.Errorf("building %s: %w", k, err)
	}
	return w.Bytes()
}

func cell(v float64, f excel.Format) excel.Cell {
	return excel.Cell{Value: v, Format: f}
}

func ratio(num, den float64) float64 {
	if den > 0 {
		return num / den
	}
	return 0
}

func executiveSummary(w *excel.Workbook, in *Input) error {
	var budget, actual, completion float64
	rows := make([][]any, 0, len(in.Projects))
	for _, p := range in.Projects {
		budget += p.TotalBudget
		var cost, done float64
		if e, ok := in.Latest(p.Name); ok {
			cost, done = e.ActualCost, e.ActualCompletion
		}
		actual += cost
		completion += done
		rows = append(rows, []any{p.Name, p.TotalBudget, cost, done, progressBand(done)})
	}
	completion /= float64(len(in.Projects))

	if err := w.Add(excel.Table{
		Sheet:    "Executive Summary",
		Title:    ExecutiveSummary.Title(),
		Subtitle: in.Period(),
		Columns:  []excel.Column{{Header: "Metric", Width: 32}, {Header: "Value", Width: 20}},
		Rows: [][]any{
			{"Total Projects", len(in.Projects)},
			{"Total Budget", cell(budget, excel.Money)},
			{"Total Actual Cost", cell(actual, excel.Money)},
			{"Average Completion", cell(completion, excel.Percent)},
			{"Budget Utilization", cell(ratio(actual, budget)*100, excel.Percent)},
		},
	}); err != nil {
		return err
	}
	return w.Add(excel.Table{
		Sheet: "Executive Summary",
		Title: "Project Details",
		Columns: []excel.Column{
			{Header: "Project", Width: 32},
			{Header: "Budget", Format: excel.Money, Width: 20},
			{Header: "Actual Cost", Format: excel.Money, Width: 18},
			{Header: "Completion", Format: excel.Percent, Width: 14},
			{Header: "Progress", Width: 16},
		},
		Rows: rows,
	})
}

func financialPerformance(w *excel.Workbook, in *Input) error {
	kpis := in.KPIs()
	rows := make([][]any, 0, len(kpis))
	for _, k := range kpis {
		rows = append(rows, []any{k.Project, k.Budget, k.PV, k.EV, k.AC, k.CV, k.SV,
			k.CPI, k.SPI, k.EAC, k.ETC, ratio(k.AC, k.Budget) * 100})
	}
	pf := evm.Summarize(kpis)
	if err := w.Add(excel.Table{
		Sheet:    "Financial Performance",
		Title:    FinancialPerformance.Title(),
		Subtitle: in.Period(),
		Columns: []excel.Column{
			{Header: "Project", Width: 30},
			{Header: "Budget", Format: excel.Money, Width: 16},
			{Header: "PV", Format: excel.Money, Width: 16},
			{Header: "EV", Format: excel.Money, Width: 16},
			{Header: "AC", Format: excel.Money, Width: 16},
			{Header: "CV", Format: excel.Money, Width: 14},
			{Header: "SV", Format: excel.Money, Width: 14},
			{Header: "CPI", Format: excel.Index},
			{Header: "SPI", Format: excel.Index},
			{Header: "EAC", Format: excel.Money, Width: 16},
			{Header: "ETC", Format: excel.Money, Width: 16},
			{Header: "Budget Used", Format: excel.Percent, Width: 12},
		},
		Rows: rows,
		Total: []any{"Portfolio", pf.TotalBudget, pf.TotalPV, pf.TotalEV, pf.TotalAC, pf.CV, pf.SV,
			pf.CPI, pf.SPI, evm.EstimateAtCompletion(pf.TotalBudget, pf.CPI), nil, ratio(pf.TotalAC, pf.TotalBudget) * 100},
	}); err != nil {
		return err
	}

	points := pipeline.PortfolioCashFlow(in.CashFlowRows())
	flow := make([][]any, 0, len(points))
	costs := make([]float64, 0, len(points))
	for _, pt := range points {
		flow = append(flow, []any{pt.Date, pt.PlannedCost, pt.ActualCost, pt.Variance,
			pt.CumulativePlanned, pt.CumulativeActual, pt.CumulativeVariance})
		costs = append(costs, pt.CumulativeActual)
	}
	sub := "No progress in the period"
	if len(points) > 1 {
		sub = fmt.Sprintf("Burn rate %.2f per day", pipeline.BurnRate(costs, pointDates(points)))
	}
	money := excel.Column{Format: excel.Money, Width: 18}
	return w.Add(excel.Table{
		Sheet:    "Cash Flow",
		Title:    "Portfolio Cash Flow",
		Subtitle: sub,
		Columns: []excel.Column{
			{Header: "Date", Format: excel.Date, Width: 14},
			withHeader(money, "Planned Cost"), withHeader(money, "Actual Cost"), withHeader(money, "Variance"),
			withHeader(money, "Cumulative Planned"), withHeader(money, "Cumulative Actual"),
			withHeader(money, "Cumulative Variance"),
		},
		Rows: flow,
	})
}

func withHeader(c excel.Column, h string) excel.Column {
	c.Header = h
	return c
}

func detailedProgress(w *excel.Workbook, in *Input) error {
	var rows [][]any
	for _, p := range in.Projects {
		for _, e := range in.Window(p.Name) {
			rows = append(rows, []any{p.Name, e.EntryDate, e.PlannedCompletion, e.ActualCompletion,
				e.ActualCompletion - e.PlannedCompletion, e.PlannedCost, e.ActualCost,
				evm.CompletionStatus(e.PlannedCompletion, e.ActualCompletion)})
		}
	}
	return w.Add(excel.Table{
		Sheet:    "Progress",
		Title:    DetailedProgress.Title(),
		Subtitle: in.Period(),
		Columns: []excel.Column{
			{Header: "Project", Width: 30},
			{Header: "Date", Format: excel.Date, Width: 14},
			{Header: "Planned %", Format: excel.Percent},
			{Header: "Actual %", Format: excel.Percent},
			{Header: "Variance", Format: excel.Percent},
			{Header: "Planned Cost", Format: excel.Money, Width: 16},
			{Header: "Actual Cost", Format: excel.Money, Width: 16},
			{Header: "Status", Width: 16},
		},
		Rows: rows,
	})
}

func projectComparison(w *excel.Workbook, in *Input) error {
	kpis := in.KPIs()
	sort.SliceStable(kpis, func(i, j int) bool {
		if kpis[i].SPI != kpis[j].SPI {
			return kpis[i].SPI > kpis[j].SPI
		}
		return kpis[i].CPI > kpis[j].CPI
	})
	rows := make([][]any, 0, len(kpis))
	for i, k := range kpis {
		rows = append(rows, []any{i + 1, k.Project, k.Budget, k.PlannedPercent, k.ActualPercent,
			k.CPI, k.SPI, k.CV, string(k.Status)})
	}
	return w.Add(excel.Table{
		Sheet:    "Comparison",
		Title:    ProjectComparison.Title(),
		Subtitle: in.Period(),
		Columns: []excel.Column{
			{Header: "Rank"},
			{Header: "Project", Width: 30},
			{Header: "Budget", Format: excel.Money, Width: 16},
			{Header: "Planned %", Format: excel.Percent},
			{Header: "Actual %", Format: excel.Percent},
			{Header: "CPI", Format: excel.Index},
			{Header: "SPI", Format: excel.Index},
			{Header: "CV", Format: excel.Money, Width: 14},
			{Header: "Status", Width: 12},
		},
		Rows: rows,
	})
}

func riskManagement(w *excel.Workbook, in *Input) error {
	type risk struct {
		k       evm.KPI
		level   string
		issues  []string
		actions []string
	}
	var risks []risk
	counts := map[string]int{}
	for _, p := range in.Projects {
		k, ok := in.KPI(p.Name)
		if !ok {
			continue
		}
		r := risk{k: k, level: RiskLevel(k, in.Thresholds)}
		if below(k.CPI, in.Thresholds.OnTrackCPI) {
			r.issues = append(r.issues, "cost overrun")
			r.actions = append(r.actions, "Review spending and remaining commitments.")
		}
		if below(k.SPI, in.Thresholds.OnTrackSPI) {
			r.issues = append(r.issues, "schedule slippage")
			r.actions = append(r.actions, "Prepare a recovery plan.")
		}
		if pipeline.BeyondEnd(p, in.AsOf()) && k.ActualPercent < 100 {
			r.issues = append(r.issues, "past planned end date")
			r.actions = append(r.actions, "Agree a revised completion date.")
			if r.level == RiskNone || r.level == RiskLow {
				r.level = RiskMedium
			}
		}
		counts[r.level]++
		risks = append(risks, r)
	}
	sort.SliceStable(risks, func(i, j int) bool {
		return riskRank(risks[i].level) < riskRank(risks[j].level)
	})

	rows := make([][]any, 0, len(risks))
	for _, r := range risks {
		issues, action := "-", "Monitor"
		if len(r.issues) > 0 {
			issues = strings.Join(r.issues, "; ")
			action = strings.Join(r.actions, " ")
		}
		rows = append(rows, []any{r.k.Project, r.k.CPI, r.k.SPI, r.level, issues, action})
	}
	if err := w.Add(excel.Table{
		Sheet:    "Risk Register",
		Title:    RiskManagement.Title(),
		Subtitle: in.Period(),
		Columns: []excel.Column{
			{Header: "Project", Width: 30},
			{Header: "CPI", Format: excel.Index},
			{Header: "SPI", Format: excel.Index},
			{Header: "Risk", Width: 10},
			{Header: "Issues", Width: 40},
			{Header: "Action", Width: 60},
		},
		Rows: rows,
	}); err != nil {
		return err
	}
	levels := [][]any{}
	for _, l := range []string{RiskHigh, RiskMedium, RiskLow, RiskNone} {
		levels = append(levels, []any{l, counts[l]})
	}
	return w.Add(excel.Table{
		Sheet:   "Risk Register",
		Title:   "Risk Summary",
		Columns: []excel.Column{{Header: "Level"}, {Header: "Projects"}},
		Rows:    levels,
	})
}

func resourceCost(w *excel.Workbook, in *Input) error {
	var rows [][]any
	var total float64
	for _, p := range in.Projects {
		for _, r := range in.Resources[p.Name] {
			rows = append(rows, []any{p.Name, string(r.Kind), r.Name, r.Quantity, r.DailyRate, r.Days(), r.Cost()})
			total += r.Cost()
		}
	}
	if err := w.Add(excel.Table{
		Sheet:    "Resources",
		Title:    ResourceCost.Title(),
		Subtitle: in.Period(),
		Columns: []excel.Column{
			{Header: "Project", Width: 30},
			{Header: "Kind", Width: 12},
			{Header: "Resource", Width: 24},
			{Header: "Quantity"},
			{Header: "Daily Rate", Format: excel.Money, Width: 14},
			{Header: "Days"},
			{Header: "Cost", Format: excel.Money, Width: 16},
		},
		Rows:  rows,
		Total: []any{"Total", nil, nil, nil, nil, nil, total},
	}); err != nil {
		return err
	}

	var planned [][]any
	for _, p := range in.Projects {
		e, ok := in.Latest(p.Name)
		if !ok {
			continue
		}
		f := notes.Parse(e.Notes)
		row := []any{p.Name}
		for _, r := range []int{notes.RowWeeklyManpower, notes.RowWeeklyEquipment, notes.RowMonthlyManpower, notes.RowMonthlyEquipment} {
			if v, ok := f.Number(r); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		planned = append(planned, row)
	}
	return w.Add(excel.Table{
		Sheet: "Resources",
		Title: "Planned Resources at Latest Entry",
		Columns: []excel.Column{
			{Header: "Project", Width: 30},
			{Header: "Weekly Labor"},
			{Header: "Weekly Equipment"},
			{Header: "Monthly Labor"},
			{Header: "Monthly Equipment"},
		},
		Rows: planned,
	})
}

// Schedule states in the timeline report.
const (
	scheduleNotStarted = "Not Started"
	scheduleOverdue    = "Overdue"
	scheduleAtRisk     = "At Risk"
	scheduleOnTime     = "On Schedule"
)

// scheduleLag is how many points completion may trail elapsed time before
// a project is at risk.
const scheduleLag = 10

func scheduleState(p model.Project, in *Input) (elapsed float64, actual float64, state string) {
	if e, ok := in.Latest(p.Name); ok {
		actual = e.ActualCompletion
	}
	frac, ok := pipeline.ElapsedPercent(p, in.AsOf())
	elapsed = frac * 100
	switch {
	case !ok || frac <= 0:
		state = scheduleNotStarted
	case pipeline.BeyondEnd(p, in.AsOf()) && actual < 100:
		state = scheduleOverdue
	case elapsed-actual > scheduleLag:
		state = scheduleAtRisk
	default:
		state = scheduleOnTime
	}
	return elapsed, actual, state
}

func scheduleTimeline(w *excel.Workbook, in *Input) error {
	rows := make([][]any, 0, len(in.Projects))
	for _, p := range in.Projects {
		elapsed, actual, state := scheduleState(p, in)
		remaining := 0
		if !p.EndDate.IsZero() {
			remaining = int(pipeline.Day(p.EndDate).Sub(pipeline.Day(in.AsOf())).Hours() / 24)
			if remaining < 0 {
				remaining = 0
			}
		}
		rows = append(rows, []any{p.Name, optionalDate(p.StartDate), optionalDate(p.EndDate),
			p.DurationDays(), elapsed, actual, remaining, state})
	}
	return w.Add(excel.Table{
		Sheet:    "Schedule",
		Title:    ScheduleTimeline.Title(),
		Subtitle: in.Period(),
		Columns: []excel.Column{
			{Header: "Project", Width: 30},
			{Header: "Start", Format: excel.Date, Width: 14},
			{Header: "End", Format: excel.Date, Width: 14},
			{Header: "Duration (days)"},
			{Header: "Time Elapsed", Format: excel.Percent},
			{Header: "Completion", Format: excel.Percent},
			{Header: "Days Remaining"},
			{Header: "Status", Width: 14},
		},
		Rows: rows,
	})
}

func optionalDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func advancedKPI(w *excel.Workbook, in *Input) error {
	var rows [][]any
	for _, p := range in.Projects {
		k, ok := in.KPI(p.Name)
		if !ok {
			continue
		}
		cpiTrend, spiTrend := model.TrendStable, model.TrendStable
		if ta, err := evm.AnalyzeTrend(p, in.Progress[p.Name], in.Thresholds.TrendDelta); err == nil {
			cpiTrend, spiTrend = ta.CPITrend, ta.SPITrend
		}
		rows = append(rows, []any{k.Project, k.AsOf, k.PV, k.EV, k.AC, k.CPI, k.SPI, k.CV, k.SV,
			k.CVPercent, k.SVPercent, k.EAC, k.ETC, k.Budget - k.EAC, tcpi(k),
			string(cpiTrend), string(spiTrend), string(k.Status)})
	}
	money := excel.Column{Format: excel.Money, Width: 16}
	index := excel.Column{Format: excel.Index}
	pct := excel.Column{Format: excel.Percent}
	return w.Add(excel.Table{
		Sheet:    "KPI",
		Title:    AdvancedKPI.Title(),
		Subtitle: in.Period(),
		Columns: []excel.Column{
			{Header: "Project", Width: 30},
			{Header: "As Of", Format: excel.Date, Width: 14},
			withHeader(money, "PV"), withHeader(money, "EV"), withHeader(money, "AC"),
			withHeader(index, "CPI"), withHeader(index, "SPI"),
			withHeader(money, "CV"), withHeader(money, "SV"),
			withHeader(pct, "CV %"), withHeader(pct, "SV %"),
			withHeader(money, "EAC"), withHeader(money, "ETC"), withHeader(money, "VAC"),
			withHeader(index, "TCPI"),
			{Header: "CPI Trend", Width: 12}, {Header: "SPI Trend", Width: 12},
			{Header: "Status", Width: 12},
		},
		Rows: rows,
	})
}

// tcpi is the cost efficiency needed on the remaining work to finish on
// budget. Zero when the budget is already spent.
func tcpi(k evm.KPI) float64 {
	return ratio(k.Budget-k.EV, k.Budget-k.AC)
}

func pointDates(points []pipeline.CashFlowPoint) []time.Time {
	out := make([]time.Time, len(points))
	for i, p := range points {
		out[i] = p.Date
	}
	return out
}
