package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ElapsedBar renders the share of the planned duration already used, as a
// 0-1 fraction that may pass 1 after the end date. The bar takes the lag
// color of completion against that share, so a project spending time
// faster than it completes work shows warm.
func ElapsedBar(label string, elapsed, actual float64, labelW, width int) string {
	t := theme.Active
	color := ColorForLag(elapsed*100, actual)

	filled := int(math.Min(math.Max(elapsed, 0), 1) * float64(width))
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	filledStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)))
	b.WriteString(spaceStyle.Render(" "))
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))
	b.WriteString(spaceStyle.Render(" "))
	b.WriteString(pctStyle.Render(fmt.Sprintf("%6s", cli.FormatFraction(elapsed))))
	if elapsed > 1 {
		b.WriteString(labelStyle.Render(" past end date"))
	}
	return b.String()
}

// ColorForLag colors the gap between planned and actual completion, in
// percentage points: green when on or ahead of plan, yellow within 5
// points, orange within 10, red beyond.
func ColorForLag(planned, actual float64) lipgloss.Color {
	t := theme.Active
	lag := planned - actual
	switch {
	case lag <= 0:
		return t.Green
	case lag <= 5:
		return t.Yellow
	case lag <= 10:
		return t.Orange
	default:
		return t.Red
	}
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// CompletionBar renders a labeled bar of actual completion (0-100) colored
// by how far it trails the planned completion.
func CompletionBar(label string, planned, actual float64, labelW, barWidth int) string {
	t := theme.Active
	color := ColorForLag(planned, actual)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	planStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar.ViewAs(clampPercent(actual)/100) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%5.1f%%", actual)) +
		planStyle.Render(fmt.Sprintf(" of %5.1f%% planned", planned))
}
