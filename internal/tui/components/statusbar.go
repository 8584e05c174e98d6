package components

import (
	"fmt"

	"github.com/theirongolddev/evmboard/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the bottom bar reports about the loaded data.
type StatusInfo struct {
	Projects    int
	AsOf        string
	LoadTime    string
	Refreshing  bool
	AutoRefresh bool
	Err         string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	left := " [?]help  [r]efresh  [q]uit"
	var right string
	switch {
	case info.Err != "":
		right = warn.Render("load failed: "+info.Err) + " "
	case info.Refreshing:
		right = accent.Render("refreshing...") + " "
	default:
		auto := "off"
		if info.AutoRefresh {
			auto = "on"
		}
		right = fmt.Sprintf("%d projects | as of %s | loaded in %s | auto %s ",
			info.Projects, info.AsOf, info.LoadTime, auto)
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	bar := left + fmt.Sprintf("%*s", padding, "") + right
	return style.Render(bar)
}
