package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/pipeline"
	"github.com/theirongolddev/evmboard/internal/tui/components"
	"github.com/theirongolddev/evmboard/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// monthTotal is the portfolio spend of one calendar month.
type monthTotal struct {
	Month   time.Time
	Planned float64
	Actual  float64
}

// monthlyTotals sums cash-flow points per calendar month, oldest first.
func monthlyTotals(points []pipeline.CashFlowPoint) []monthTotal {
	byKey := make(map[string]*monthTotal)
	for _, pt := range points {
		key := pipeline.PeriodKey(pt.Date, model.FlowMonthly)
		m, ok := byKey[key]
		if !ok {
			m = &monthTotal{Month: time.Date(pt.Date.Year(), pt.Date.Month(), 1, 0, 0, 0, 0, time.UTC)}
			byKey[key] = m
		}
		m.Planned += pt.PlannedCost
		m.Actual += pt.ActualCost
	}
	out := make([]monthTotal, 0, len(byKey))
	for _, m := range byKey {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

func (a App) renderCashFlowTab(cw int) string {
	t := theme.Active
	points := a.cashFlow
	var b strings.Builder

	if len(points) == 0 {
		return components.ContentCard("Cash Flow",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No progress entries carry costs yet"), cw)
	}

	last := points[len(points)-1]
	remaining := a.portfolio.TotalBudget - last.CumulativeActual
	runway := "-"
	if a.burnRate > 0 && remaining > 0 {
		runway = cli.FormatDays(int(remaining / a.burnRate))
	}

	// Row 1: spend metrics
	varColor := t.Green
	if last.CumulativeVariance > 0 {
		varColor = t.Red
	}
	cards := []components.Metric{
		{Label: "Planned to Date", Value: cli.FormatMoneyCompact(last.CumulativePlanned), Note: cli.FormatDate(last.Date)},
		{Label: "Actual to Date", Value: cli.FormatMoneyCompact(last.CumulativeActual), Note: fmt.Sprintf("%d entry dates", len(points))},
		{Label: "Variance", Value: cli.FormatDelta(last.CumulativeVariance), Color: varColor, Note: "actual minus planned"},
		{Label: "Burn Rate", Value: cli.FormatMoneyCompact(a.burnRate) + "/day", Note: "runway " + runway},
	}
	if a.isCompactLayout() {
		b.WriteString(components.MetricCardRow(cards[:2], cw))
		b.WriteString("\n")
		b.WriteString(components.MetricCardRow(cards[2:], cw))
	} else {
		b.WriteString(components.MetricCardRow(cards, cw))
	}
	b.WriteString("\n")

	// Row 2: monthly spend, planned beside actual
	months := monthlyTotals(points)
	halves := components.LayoutRow(cw, 2)
	chartH := 8
	if a.isCompactLayout() {
		halves = []int{cw, cw}
		chartH = 6
	}
	planned := make([]float64, len(months))
	actual := make([]float64, len(months))
	starts := make([]time.Time, len(months))
	for i, m := range months {
		planned[i] = m.Planned
		actual[i] = m.Actual
		starts[i] = m.Month
	}
	labels := components.DateLabels(starts)
	plannedCard := components.ContentCard("Monthly Planned Cost",
		components.BarChart(planned, labels, t.TextMuted, components.CardInnerWidth(halves[0]), chartH), halves[0])
	actualCard := components.ContentCard("Monthly Actual Cost",
		components.BarChart(actual, labels, t.Blue, components.CardInnerWidth(halves[1]), chartH), halves[1])
	if a.isCompactLayout() {
		b.WriteString(plannedCard)
		b.WriteString("\n")
		b.WriteString(actualCard)
	} else {
		b.WriteString(components.CardRow([]string{plannedCard, actualCard}))
	}
	b.WriteString("\n")

	// Row 3: latest entry dates
	b.WriteString(components.ContentCard("Recent Entries", renderCashFlowTable(points, components.CardInnerWidth(cw), a.isCompactLayout()), cw))
	return b.String()
}

func renderCashFlowTable(points []pipeline.CashFlowPoint, innerW int, compact bool) string {
	t := theme.Active
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	overStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	underStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)

	const maxRows = 8
	start := len(points) - maxRows
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	if compact {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %12s %12s", "Date", "Actual", "Variance")))
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %12s %12s %12s %14s %14s",
			"Date", "Planned", "Actual", "Variance", "Cum. Planned", "Cum. Actual")))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	b.WriteString("\n")

	for i := len(points) - 1; i >= start; i-- {
		pt := points[i]
		varStyle := underStyle
		if pt.Variance > 0 {
			varStyle = overStyle
		}
		if compact {
			b.WriteString(valueStyle.Render(fmt.Sprintf("%-10s %12s ", cli.FormatDate(pt.Date), cli.FormatMoneyCompact(pt.ActualCost))))
			b.WriteString(varStyle.Render(fmt.Sprintf("%12s", cli.FormatDelta(pt.Variance))))
		} else {
			b.WriteString(valueStyle.Render(fmt.Sprintf("%-10s %12s %12s ",
				cli.FormatDate(pt.Date), cli.FormatMoneyCompact(pt.PlannedCost), cli.FormatMoneyCompact(pt.ActualCost))))
			b.WriteString(varStyle.Render(fmt.Sprintf("%12s", cli.FormatDelta(pt.Variance))))
			b.WriteString(mutedStyle.Render(fmt.Sprintf(" %14s %14s",
				cli.FormatMoneyCompact(pt.CumulativePlanned), cli.FormatMoneyCompact(pt.CumulativeActual))))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
