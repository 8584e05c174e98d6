package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/tui/components"
	"github.com/theirongolddev/evmboard/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// statusOrder is the display order of the status breakdown.
var statusOrder = []model.Status{
	model.StatusAhead,
	model.StatusOnTrack,
	model.StatusBehind,
	model.StatusCompleted,
	model.StatusStopped,
}

func (a App) renderPortfolioTab(cw int) string {
	t := theme.Active
	pf := a.portfolio
	th := a.opts.Thresholds
	var b strings.Builder

	// Row 1: headline metrics
	progressNote := fmt.Sprintf("%d with progress", pf.WithData)
	cards := []components.Metric{
		{Label: "Projects", Value: cli.FormatCount(int64(pf.Projects)), Note: progressNote},
		{Label: "Budget", Value: cli.FormatMoneyCompact(pf.TotalBudget), Note: "PV " + cli.FormatMoneyCompact(pf.TotalPV)},
		{Label: "Earned", Value: cli.FormatMoneyCompact(pf.TotalEV), Note: "SV " + cli.FormatDelta(pf.SV)},
		{Label: "Actual Cost", Value: cli.FormatMoneyCompact(pf.TotalAC), Note: "CV " + cli.FormatDelta(pf.CV)},
		{Label: "CPI", Value: cli.FormatIndex(pf.CPI), Color: t.IndexColor(pf.CPI, th.AheadCPI, th.OnTrackCPI)},
		{Label: "SPI", Value: cli.FormatIndex(pf.SPI), Color: t.IndexColor(pf.SPI, th.AheadSPI, th.OnTrackSPI)},
	}
	if a.isCompactLayout() {
		b.WriteString(components.MetricCardRow(cards[:3], cw))
		b.WriteString("\n")
		b.WriteString(components.MetricCardRow(cards[3:], cw))
	} else {
		b.WriteString(components.MetricCardRow(cards, cw))
	}
	b.WriteString("\n")

	// Row 2: cumulative cash flow
	if len(a.cashFlow) > 0 {
		vals := make([]float64, len(a.cashFlow))
		dates := make([]time.Time, len(a.cashFlow))
		for i, pt := range a.cashFlow {
			vals[i] = pt.CumulativeActual
			dates[i] = pt.Date
		}
		last := a.cashFlow[len(a.cashFlow)-1]
		title := fmt.Sprintf("Cumulative Actual Cost (%s of %s planned)",
			cli.FormatMoneyCompact(last.CumulativeActual), cli.FormatMoneyCompact(last.CumulativePlanned))
		b.WriteString(components.ContentCard(title,
			components.BarChart(vals, components.DateLabels(dates), t.Blue, components.CardInnerWidth(cw), 8),
			cw))
		b.WriteString("\n")
	}

	// Row 3: status breakdown and per-project completion
	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Status", a.renderStatusBreakdown(cw), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Completion", a.renderCompletionList(cw), cw))
	} else {
		widths := []int{cw / 3, cw - cw/3}
		b.WriteString(components.CardRow([]string{
			components.ContentCard("Status", a.renderStatusBreakdown(widths[0]), widths[0]),
			components.ContentCard("Completion", a.renderCompletionList(widths[1]), widths[1]),
		}))
	}

	return b.String()
}

func (a App) renderStatusBreakdown(w int) string {
	t := theme.Active
	pf := a.portfolio
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)

	total := 0
	for _, n := range pf.StatusCounts {
		total += n
	}

	barW := components.CardInnerWidth(w) - 18
	if barW < 4 {
		barW = 4
	}

	var b strings.Builder
	for _, s := range statusOrder {
		n := pf.StatusCounts[s]
		share := 0.0
		if total > 0 {
			share = float64(n) / float64(total)
		}
		filled := int(share * float64(barW))
		bar := lipgloss.NewStyle().Foreground(t.StatusColor(s)).Background(t.Surface).Render(strings.Repeat("█", filled)) +
			lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render(strings.Repeat("░", barW-filled))
		fmt.Fprintf(&b, "%s %s %s\n",
			labelStyle.Render(fmt.Sprintf("%-10s", s)),
			valueStyle.Render(fmt.Sprintf("%3d", n)),
			bar)
	}
	if noData := pf.Projects - pf.WithData; noData > 0 {
		fmt.Fprintf(&b, "%s %s", labelStyle.Render(fmt.Sprintf("%-10s", "No data")), valueStyle.Render(fmt.Sprintf("%3d", noData)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderCompletionList lists projects with progress, worst schedule lag
// first.
func (a App) renderCompletionList(w int) string {
	t := theme.Active
	kpis := append([]evm.KPI(nil), a.in.KPIs()...)
	if len(kpis) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No progress recorded yet")
	}
	sort.SliceStable(kpis, func(i, j int) bool {
		return kpis[i].PlannedPercent-kpis[i].ActualPercent > kpis[j].PlannedPercent-kpis[j].ActualPercent
	})

	const maxRows = 10
	labelW := 18
	barW := components.CardInnerWidth(w) - labelW - 28
	if barW < 6 {
		barW = 6
	}

	var b strings.Builder
	for i, k := range kpis {
		if i == maxRows {
			fmt.Fprintf(&b, "%s", lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).
				Render(fmt.Sprintf("... and %d more", len(kpis)-maxRows)))
			break
		}
		b.WriteString(components.CompletionBar(truncStr(k.Project, labelW), k.PlannedPercent, k.ActualPercent, labelW, barW))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
