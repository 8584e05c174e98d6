package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/money"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// BriefingTitle heads every briefing.
const BriefingTitle = "Project Portfolio Briefing"

// Briefing writes a Markdown briefing of in: overview, one section per
// project, a performance comparison, the schedule, the financial position
// and recommendations. Amounts are shown in currency.
func Briefing(in *Input, currency string) string {
	var b strings.Builder
	amount := func(v float64) string { return money.Format(v, currency) }

	fmt.Fprintf(&b, "# %s\n\n", BriefingTitle)
	fmt.Fprintf(&b, "%s.\n\n", in.Period())
	names := make([]string, len(in.Projects))
	for i, p := range in.Projects {
		names[i] = p.Name
	}
	fmt.Fprintf(&b, "Projects: %s\n\n", strings.Join(names, ", "))

	kpis := in.KPIs()
	pf := evm.Summarize(kpis)
	budgets := make([]float64, len(in.Projects))
	for i, p := range in.Projects {
		budgets[i] = p.TotalBudget
	}
	budget := money.Sum(budgets, currency)

	b.WriteString("## Overview\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	overview := [][2]string{
		{"Projects", fmt.Sprintf("%d (%d with progress)", len(in.Projects), len(kpis))},
		{"Total budget", budget.Code()},
		{"Remaining budget", amount(budget.Float() - pf.TotalAC)},
		{"Planned value", amount(pf.TotalPV)},
		{"Earned value", amount(pf.TotalEV)},
		{"Actual cost", amount(pf.TotalAC)},
		{"CPI", fmt.Sprintf("%.3f", pf.CPI)},
		{"SPI", fmt.Sprintf("%.3f", pf.SPI)},
		{"Status", fmt.Sprintf("%d ahead, %d on track, %d behind",
			pf.StatusCounts[model.StatusAhead], pf.StatusCounts[model.StatusOnTrack], pf.StatusCounts[model.StatusBehind])},
	}
	for _, kv := range overview {
		fmt.Fprintf(&b, "| %s | %s |\n", kv[0], kv[1])
	}

	b.WriteString("\n## Projects\n")
	for _, p := range in.Projects {
		fmt.Fprintf(&b, "\n### %s\n\n", p.Name)
		fmt.Fprintf(&b, "- Code: %s\n", p.DisplayCode())
		fmt.Fprintf(&b, "- Dates: %s to %s\n", briefDate(p.StartDate), briefDate(p.EndDate))
		fmt.Fprintf(&b, "- Budget: %s\n", amount(p.TotalBudget))
		if p.ExecutingCompany != "" {
			fmt.Fprintf(&b, "- Executing company: %s\n", p.ExecutingCompany)
		}
		if p.Type != "" {
			fmt.Fprintf(&b, "- Type: %s\n", p.Type)
		}
		e, ok := in.Latest(p.Name)
		if !ok {
			b.WriteString("- No progress recorded\n")
			continue
		}
		fmt.Fprintf(&b, "- Completion: %.1f%% of %.1f%% planned, %s (as of %s)\n",
			e.ActualCompletion, e.PlannedCompletion,
			evm.CompletionStatus(e.PlannedCompletion, e.ActualCompletion), briefDate(e.EntryDate))
		fmt.Fprintf(&b, "- Actual cost: %s\n", amount(e.ActualCost))
		if k, ok := in.KPI(p.Name); ok {
			fmt.Fprintf(&b, "- CPI %.3f, SPI %.3f: %s\n", k.CPI, k.SPI, k.Status)
		}
	}

	b.WriteString("\n## Performance Comparison\n\n")
	b.WriteString("| Project | Planned | Actual | CPI | SPI | Status |\n|---|---:|---:|---:|---:|---|\n")
	for _, k := range kpis {
		fmt.Fprintf(&b, "| %s | %.1f%% | %.1f%% | %.3f | %.3f | %s |\n",
			cellText(k.Project), k.PlannedPercent, k.ActualPercent, k.CPI, k.SPI, k.Status)
	}

	b.WriteString("\n## Schedule\n\n")
	b.WriteString("| Project | Start | End | Elapsed | Completion | Status |\n|---|---|---|---:|---:|---|\n")
	for _, p := range in.Projects {
		elapsed, actual, state := scheduleState(p, in)
		fmt.Fprintf(&b, "| %s | %s | %s | %.1f%% | %.1f%% | %s |\n",
			cellText(p.Name), briefDate(p.StartDate), briefDate(p.EndDate), elapsed, actual, state)
	}

	var planned, actual float64
	for _, p := range in.Projects {
		if e, ok := in.Latest(p.Name); ok {
			planned += e.PlannedCost
			actual += e.ActualCost
		}
	}
	b.WriteString("\n## Financial Position\n\n")
	fmt.Fprintf(&b, "- Total budget: %s\n", budget.Code())
	fmt.Fprintf(&b, "- Planned cost: %s\n", amount(planned))
	fmt.Fprintf(&b, "- Actual cost: %s\n", amount(actual))
	fmt.Fprintf(&b, "- Cost variance: %s\n", amount(actual-planned))
	fmt.Fprintf(&b, "- Budget used: %.1f%%\n", ratio(actual, budget.Float())*100)

	b.WriteString("\n## Recommendations\n\n")
	for _, r := range Recommendations(kpis, in.Thresholds) {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	b.WriteString("\n### General\n\n")
	for _, r := range GeneralRecommendations {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}

func briefDate(t time.Time) string {
	if t.IsZero() {
		return "not set"
	}
	return t.Format(model.DateLayout)
}

// cellText keeps a value from breaking a Markdown table row.
func cellText(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderTerminal styles md for the terminal, wrapping at width columns.
func RenderTerminal(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering briefing: %w", err)
	}
	return out, nil
}

// RenderHTML converts md into a standalone HTML page.
func RenderHTML(title, md string) ([]byte, error) {
	var body bytes.Buffer
	gm := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := gm.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("converting briefing: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(title))
	page.WriteString("<style>body{font-family:sans-serif;max-width:60em;margin:2em auto}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.3em .6em}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
