package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/pipeline"
	"github.com/theirongolddev/evmboard/internal/report"
	"github.com/theirongolddev/evmboard/internal/tui/components"
	"github.com/theirongolddev/evmboard/internal/tui/theme"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// projectsState holds the projects tab state.
type projectsState struct {
	table     table.Model
	names     []string // project name per table row
	detail    bool
	searching bool
	search    textinput.Model
	query     string
}

var projectColumns = []table.Column{
	{Title: "Project", Width: 24},
	{Title: "Code", Width: 10},
	{Title: "Status", Width: 9},
	{Title: "Planned", Width: 8},
	{Title: "Actual", Width: 8},
	{Title: "CPI", Width: 6},
	{Title: "SPI", Width: 6},
	{Title: "Budget", Width: 12},
	{Title: "EAC", Width: 12},
}

func newProjectsState() projectsState {
	t := theme.Active
	tbl := table.New(
		table.WithColumns(projectColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Foreground(t.Accent).
		BorderForeground(t.Border).
		BorderBottom(true).
		Bold(true)
	styles.Cell = styles.Cell.Foreground(t.TextPrimary)
	styles.Selected = styles.Selected.
		Foreground(t.TextPrimary).
		Background(t.SurfaceHover).
		Bold(true)
	tbl.SetStyles(styles)

	return projectsState{table: tbl, search: newSearchInput()}
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Search by name, code or company..."
	ti.CharLimit = 100
	ti.Width = 40
	return ti
}

// matches reports whether p contains query in one of its text fields.
func matches(p model.Project, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, field := range []string{p.Name, p.Code, p.PurchaseOrder, p.ExecutingCompany, p.Contractor, p.CategoryName, p.Location} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// setRows rebuilds the table from in, keeping the cursor on the same
// project when it is still listed.
func (ps *projectsState) setRows(in *report.Input) {
	if in == nil {
		return
	}
	var selected string
	if c := ps.table.Cursor(); c >= 0 && c < len(ps.names) {
		selected = ps.names[c]
	}

	rows := make([]table.Row, 0, len(in.Projects))
	ps.names = ps.names[:0]
	for _, p := range in.Projects {
		if !matches(p, ps.query) {
			continue
		}
		row := table.Row{truncStr(p.Name, 24), truncStr(p.DisplayCode(), 10), "-", "-", "-", "-", "-",
			cli.FormatMoneyCompact(p.TotalBudget), "-"}
		if k, ok := in.KPI(p.Name); ok {
			row[2] = string(k.Status)
			row[3] = cli.FormatPercent(k.PlannedPercent)
			row[4] = cli.FormatPercent(k.ActualPercent)
			row[5] = fmt.Sprintf("%.2f", k.CPI)
			row[6] = fmt.Sprintf("%.2f", k.SPI)
			row[8] = cli.FormatMoneyCompact(k.EAC)
		}
		rows = append(rows, row)
		ps.names = append(ps.names, p.Name)
	}
	ps.table.SetRows(rows)

	cursor := 0
	for i, n := range ps.names {
		if n == selected {
			cursor = i
			break
		}
	}
	ps.table.SetCursor(cursor)
}

func (ps *projectsState) resize(cw, h int) {
	inner := components.CardInnerWidth(cw)
	if ps.detail {
		inner = components.CardInnerWidth(cw * 3 / 5)
	}
	ps.table.SetWidth(inner)
	// card border and title take 3 lines, the table header 2
	height := h - 5
	if height < 3 {
		height = 3
	}
	ps.table.SetHeight(height)
}

// selected returns the project under the cursor.
func (ps projectsState) selected() (string, bool) {
	c := ps.table.Cursor()
	if c < 0 || c >= len(ps.names) {
		return "", false
	}
	return ps.names[c], true
}

// handleKey applies a projects tab key binding. handled is false for keys
// the tab does not own.
func (ps *projectsState) handleKey(msg tea.KeyMsg, in *report.Input) (bool, tea.Cmd) {
	switch msg.String() {
	case "/":
		ps.searching = true
		ps.search = newSearchInput()
		ps.search.SetValue(ps.query)
		ps.search.Focus()
		return true, textinput.Blink
	case "enter", "f":
		ps.detail = !ps.detail
		return true, nil
	case "esc":
		if ps.query != "" {
			ps.query = ""
			ps.setRows(in)
			return true, nil
		}
		ps.detail = false
		return true, nil
	case "j", "down":
		ps.table.MoveDown(1)
		return true, nil
	case "k", "up":
		ps.table.MoveUp(1)
		return true, nil
	case "g", "home":
		ps.table.GotoTop()
		return true, nil
	case "G", "end":
		ps.table.GotoBottom()
		return true, nil
	case "pgdown", "ctrl+d":
		ps.table.MoveDown(ps.table.Height() / 2)
		return true, nil
	case "pgup", "ctrl+u":
		ps.table.MoveUp(ps.table.Height() / 2)
		return true, nil
	}
	return false, nil
}

// updateProjectSearch handles key events while in search mode.
func (a App) updateProjectSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.projState.query = strings.TrimSpace(a.projState.search.Value())
		a.projState.searching = false
		a.projState.setRows(a.in)
		a.projState.table.GotoTop()
		return a, nil
	case "esc":
		a.projState.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	a.projState.search, cmd = a.projState.search.Update(msg)
	return a, cmd
}

func (a App) renderProjectsTab(cw, h int) string {
	t := theme.Active
	ps := a.projState
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	title := fmt.Sprintf("Projects (%d)", len(ps.names))
	var body strings.Builder
	if ps.searching {
		body.WriteString(ps.search.View())
		body.WriteString("\n")
	}
	if len(ps.names) == 0 {
		body.WriteString(muted.Render("No projects match. Press Esc to clear the search."))
		return components.ContentCard(title, body.String(), cw)
	}

	if !ps.detail || a.isCompactLayout() {
		ps.resize(cw, h)
		ps.table.SetWidth(components.CardInnerWidth(cw))
		body.WriteString(ps.table.View())
		card := components.ContentCard(title, body.String(), cw)
		if ps.detail {
			if name, ok := ps.selected(); ok {
				card += "\n" + a.renderProjectDetail(name, cw)
			}
		}
		return card
	}

	widths := []int{cw * 3 / 5, cw - cw*3/5}
	ps.resize(cw, h)
	body.WriteString(ps.table.View())
	left := components.ContentCard(title, body.String(), widths[0])
	name, _ := ps.selected()
	right := a.renderProjectDetail(name, widths[1])
	return components.CardRow([]string{left, right})
}

func (a App) renderProjectDetail(name string, w int) string {
	t := theme.Active
	in := a.in
	th := a.opts.Thresholds

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	line := func(b *strings.Builder, label, value string) {
		fmt.Fprintf(b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-14s", label)), valueStyle.Render(value))
	}

	var p model.Project
	for _, candidate := range in.Projects {
		if candidate.Name == name {
			p = candidate
			break
		}
	}

	var b strings.Builder
	line(&b, "Code", p.DisplayCode())
	if p.ExecutingCompany != "" {
		line(&b, "Executing", p.ExecutingCompany)
	}
	if p.Contractor != "" {
		line(&b, "Contractor", p.Contractor)
	}
	if p.ProjectManager != "" {
		line(&b, "Manager", p.ProjectManager)
	}
	line(&b, "Schedule", fmt.Sprintf("%s to %s (%s)",
		cli.FormatDate(p.StartDate), cli.FormatDate(p.EndDate), cli.FormatDays(p.DurationDays())))
	line(&b, "Budget", cli.FormatMoney(p.TotalBudget))

	k, ok := in.KPI(name)
	if !ok {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("No progress recorded"))
		return components.ContentCard(truncStr(name, w-6), b.String(), w)
	}

	b.WriteString("\n")
	barW := components.CardInnerWidth(w) - 36
	if barW < 8 {
		barW = 8
	}
	b.WriteString(components.CompletionBar("Completion", k.PlannedPercent, k.ActualPercent, 10, barW))
	b.WriteString("\n")
	if elapsed, ok := pipeline.ElapsedPercent(p, k.AsOf); ok {
		b.WriteString(components.ElapsedBar("Time used", elapsed, k.ActualPercent, 10, barW))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	line(&b, "As of", cli.FormatDate(k.AsOf))
	line(&b, "Planned value", cli.FormatMoney(k.PV))
	line(&b, "Earned value", cli.FormatMoney(k.EV))
	line(&b, "Actual cost", cli.FormatMoney(k.AC))
	line(&b, "Cost variance", cli.FormatDelta(k.CV))
	line(&b, "Sched variance", cli.FormatDelta(k.SV))
	line(&b, "EAC", cli.FormatMoney(k.EAC))
	line(&b, "ETC", cli.FormatMoney(k.ETC))

	cpiStyle := lipgloss.NewStyle().Foreground(t.IndexColor(k.CPI, th.AheadCPI, th.OnTrackCPI)).Background(t.Surface).Bold(true)
	spiStyle := lipgloss.NewStyle().Foreground(t.IndexColor(k.SPI, th.AheadSPI, th.OnTrackSPI)).Background(t.Surface).Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(t.StatusColor(k.Status)).Background(t.Surface).Bold(true)
	fmt.Fprintf(&b, "%s %s  %s %s  %s\n",
		labelStyle.Render("CPI"), cpiStyle.Render(cli.FormatIndex(k.CPI)),
		labelStyle.Render("SPI"), spiStyle.Render(cli.FormatIndex(k.SPI)),
		statusStyle.Render(string(k.Status)))

	if ta, err := evm.AnalyzeTrend(p, in.Progress[name], th.TrendDelta); err == nil && len(ta.Points) > 1 {
		cpis := make([]float64, len(ta.Points))
		spis := make([]float64, len(ta.Points))
		for i, pt := range ta.Points {
			cpis[i] = pt.CPI
			spis[i] = pt.SPI
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s %s\n", labelStyle.Render("CPI trend"),
			components.Sparkline(cpis, t.Blue), valueStyle.Render(string(ta.CPITrend)))
		fmt.Fprintf(&b, "%s %s %s", labelStyle.Render("SPI trend"),
			components.Sparkline(spis, t.Magenta), valueStyle.Render(string(ta.SPITrend)))
	}

	return components.ContentCard(truncStr(name, w-6), strings.TrimRight(b.String(), "\n"), w)
}
