package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/tui/components"
	"github.com/theirongolddev/evmboard/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// resourceTotals sums allocation cost and headcount-days per kind.
type resourceTotals struct {
	Count    int
	Cost     float64
	UnitDays float64
}

func (a App) resourceSummary() map[model.ResourceKind]*resourceTotals {
	totals := map[model.ResourceKind]*resourceTotals{
		model.Labor:     {},
		model.Equipment: {},
	}
	for _, p := range a.in.Projects {
		for _, r := range a.in.Resources[p.Name] {
			tot, ok := totals[r.Kind]
			if !ok {
				tot = &resourceTotals{}
				totals[r.Kind] = tot
			}
			tot.Count++
			tot.Cost += r.Cost()
			tot.UnitDays += r.Quantity * float64(r.Days())
		}
	}
	return totals
}

func (a App) renderResourcesTab(cw int) string {
	t := theme.Active
	var b strings.Builder

	totals := a.resourceSummary()
	labor, equip := totals[model.Labor], totals[model.Equipment]
	cards := []components.Metric{
		{Label: "Labor", Value: cli.FormatMoneyCompact(labor.Cost), Note: fmt.Sprintf("%d allocations", labor.Count)},
		{Label: "Labor Days", Value: cli.FormatNumber(int64(labor.UnitDays)), Note: "quantity x days"},
		{Label: "Equipment", Value: cli.FormatMoneyCompact(equip.Cost), Note: fmt.Sprintf("%d allocations", equip.Count)},
		{Label: "Equipment Days", Value: cli.FormatNumber(int64(equip.UnitDays)), Note: "quantity x days"},
	}
	if a.isCompactLayout() {
		b.WriteString(components.MetricCardRow(cards[:2], cw))
		b.WriteString("\n")
		b.WriteString(components.MetricCardRow(cards[2:], cw))
	} else {
		b.WriteString(components.MetricCardRow(cards, cw))
	}
	b.WriteString("\n")

	innerW := components.CardInnerWidth(cw)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	laborStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface)
	equipStyle := lipgloss.NewStyle().Foreground(t.Magenta).Background(t.Surface)
	costStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)

	fixedCols := 10 + 7 + 10 + 6 + 12
	nameW := innerW - fixedCols - 5
	if nameW < 12 {
		nameW = 12
	}

	found := false
	for _, p := range a.in.Projects {
		list := a.in.Resources[p.Name]
		if len(list) == 0 {
			continue
		}
		found = true

		var body strings.Builder
		var projectCost float64
		if a.isCompactLayout() {
			body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %12s", nameW, "Resource", "Cost")))
		} else {
			body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-10s %7s %10s %6s %12s",
				nameW, "Resource", "Kind", "Qty", "Rate", "Days", "Cost")))
		}
		body.WriteString("\n")
		for _, r := range list {
			kindStyle := laborStyle
			if r.Kind == model.Equipment {
				kindStyle = equipStyle
			}
			projectCost += r.Cost()
			body.WriteString(nameStyle.Render(fmt.Sprintf("%-*s ", nameW, truncStr(r.Name, nameW))))
			if !a.isCompactLayout() {
				body.WriteString(kindStyle.Render(fmt.Sprintf("%-10s ", r.Kind)))
				body.WriteString(mutedStyle.Render(fmt.Sprintf("%7.1f %10s %6d ",
					r.Quantity, cli.FormatMoneyCompact(r.DailyRate), r.Days())))
			}
			body.WriteString(costStyle.Render(fmt.Sprintf("%12s", cli.FormatMoneyCompact(r.Cost()))))
			body.WriteString("\n")
		}
		body.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))

		title := fmt.Sprintf("%s  %s", p.Name, cli.FormatMoneyCompact(projectCost))
		b.WriteString(components.ContentCard(truncStr(title, innerW), body.String(), cw))
		b.WriteString("\n")
	}
	if !found {
		b.WriteString(components.ContentCard("Allocations",
			mutedStyle.Render("No labor or equipment recorded. Add some with `evmboard resource add`."), cw))
	}
	return strings.TrimRight(b.String(), "\n")
}
