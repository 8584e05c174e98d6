// Package tui provides the interactive Bubble Tea portfolio dashboard.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/config"
	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/pipeline"
	"github.com/theirongolddev/evmboard/internal/report"
	"github.com/theirongolddev/evmboard/internal/tui/components"
	"github.com/theirongolddev/evmboard/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Options configures the dashboard.
type Options struct {
	Currency   string
	Thresholds evm.Thresholds
	// Project keeps only projects whose name contains it.
	Project         string
	AutoRefresh     bool
	RefreshInterval time.Duration
	// NeedSetup starts the first-run wizard once data is loaded.
	NeedSetup bool
	DataDir   string
}

// DataLoadedMsg is sent when the initial load finishes.
type DataLoadedMsg struct {
	Input    *report.Input
	LoadTime time.Duration
	Err      error
}

// RefreshDataMsg is sent when a background refresh completes.
type RefreshDataMsg struct {
	Input    *report.Input
	LoadTime time.Duration
	Err      error
}

// App is the root Bubble Tea model.
type App struct {
	src  report.Source
	opts Options

	// Data
	in       *report.Input
	loaded   bool
	loadErr  error
	loadTime time.Duration

	// Derived from in by recompute
	portfolio evm.Portfolio
	cashFlow  []pipeline.CashFlowPoint
	burnRate  float64

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	projState projectsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *setupValues
	needSetup bool

	spinner spinner.Model
}

const (
	tabPortfolio = iota
	tabProjects
	tabCashFlow
	tabResources
)

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
	tickInterval     = time.Second
)

// NewApp creates the dashboard over src.
func NewApp(src report.Source, opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	interval := opts.RefreshInterval
	if interval < 10*time.Second {
		interval = 30 * time.Second
	}
	if opts.Currency != "" {
		cli.Currency = opts.Currency
	}

	return App{
		src:             src,
		opts:            opts,
		needSetup:       opts.NeedSetup,
		autoRefresh:     opts.AutoRefresh,
		refreshInterval: interval,
		projState:       newProjectsState(),
		spinner:         sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.src, a.opts),
		a.spinner.Tick,
		tickCmd(),
	)
}

// load reads every project and narrows it to the project filter.
func load(src report.Source, opts Options) (*report.Input, error) {
	in, err := report.Collect(src, nil, time.Time{}, time.Time{}, opts.Thresholds)
	if err != nil {
		return nil, err
	}
	if opts.Project == "" {
		return in, nil
	}
	kept := pipeline.FilterByProject(in.Projects, opts.Project)
	return report.NewInput(kept, in.Progress, in.Resources, time.Time{}, time.Time{}, opts.Thresholds), nil
}

func loadDataCmd(src report.Source, opts Options) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		in, err := load(src, opts)
		return DataLoadedMsg{Input: in, LoadTime: time.Since(start), Err: err}
	}
}

// refreshDataCmd reloads in the background, keeping the current view.
func refreshDataCmd(src report.Source, opts Options) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		in, err := load(src, opts)
		return RefreshDataMsg{Input: in, LoadTime: time.Since(start), Err: err}
	}
}

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (a *App) recompute() {
	if a.in == nil {
		return
	}
	a.portfolio = evm.Summarize(a.in.KPIs())
	a.portfolio.Projects = len(a.in.Projects)
	for _, p := range a.in.Projects {
		if _, ok := a.in.KPI(p.Name); !ok {
			a.portfolio.TotalBudget += p.TotalBudget
		}
	}

	a.cashFlow = pipeline.PortfolioCashFlow(a.in.CashFlowRows())
	costs := make([]float64, len(a.cashFlow))
	dates := make([]time.Time, len(a.cashFlow))
	for i, pt := range a.cashFlow {
		costs[i] = pt.CumulativeActual
		dates[i] = pt.Date
	}
	a.burnRate = pipeline.BurnRate(costs, dates)

	a.projState.setRows(a.in)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.projState.resize(a.contentWidth(), a.contentHeight())
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.loaded = true
		a.loadTime = msg.LoadTime
		a.lastRefresh = time.Now()
		a.loadErr = msg.Err
		if msg.Err == nil {
			a.in = msg.Input
			a.recompute()
		}
		if a.needSetup {
			vals := defaultSetupValues(a.opts)
			a.setupVals = &vals
			a.setupForm = newSetupForm(a.projectCount(), a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case RefreshDataMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		a.loadErr = msg.Err
		if msg.Err == nil && msg.Input != nil {
			a.in = msg.Input
			a.loadTime = msg.LoadTime
			a.recompute()
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing && time.Since(a.lastRefresh) >= a.refreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshDataCmd(a.src, a.opts))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.activeTab == tabProjects && a.projState.searching {
		var cmd tea.Cmd
		a.projState.search, cmd = a.projState.search.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.loaded || a.showHelp || (a.needSetup && a.setupForm != nil) {
		return a, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if a.activeTab == tabProjects && !a.projState.searching {
			a.projState.table.MoveUp(1)
		}
	case tea.MouseButtonWheelDown:
		if a.activeTab == tabProjects && !a.projState.searching {
			a.projState.table.MoveDown(1)
		}
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	// First-run setup wizard intercepts all keys
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	// Project search mode intercepts all keys when active
	if a.activeTab == tabProjects && a.projState.searching {
		return a.updateProjectSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	if a.activeTab == tabProjects {
		if handled, cmd := a.projState.handleKey(msg, a.in); handled {
			return a, cmd
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, refreshDataCmd(a.src, a.opts)
		}
		return a, nil
	case "R":
		a.autoRefresh = !a.autoRefresh
		// Best-effort persist; the toggle still applies to this session.
		if cfg, err := config.Load(); err == nil {
			cfg.TUI.AutoRefresh = a.autoRefresh
			_ = config.Save(cfg)
		}
		return a, nil
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if runes := []rune(key); len(runes) == 1 {
		if idx := components.TabIdxByKey(runes[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		_ = a.saveSetupConfig()
		a.needSetup = false
		a.setupForm = nil
		a.recompute()
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) projectCount() int {
	if a.in == nil {
		return 0
	}
	return len(a.in.Projects)
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// contentHeight is the height left between the header and status bar.
func (a App) contentHeight() int {
	h := a.height - 3
	if h < minContentHeight {
		h = minContentHeight
	}
	return h
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  The dashboard needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)
	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ evmboard"))
	b.WriteString(subtitleStyle.Render(" · Project Portfolio"))
	b.WriteString("\n\n")
	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	b.WriteString(subtitleStyle.Render(" Loading projects..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	section := func(b *strings.Builder, title string, binds [][2]string) {
		b.WriteString(sectionStyle.Render(title))
		b.WriteString("\n")
		for _, bind := range binds {
			fmt.Fprintf(b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	section(&b, "Navigation", [][2]string{
		{"p o c e", "Jump to tab"},
		{"← → tab", "Previous / Next tab"},
		{"j k", "Move in project list"},
		{"g G", "First / Last project"},
	})
	b.WriteString("\n")
	section(&b, "Actions", [][2]string{
		{"/", "Search projects"},
		{"Enter", "Toggle project detail"},
		{"Esc", "Clear search / Back"},
		{"r", "Refresh data"},
		{"R", "Toggle auto-refresh"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	})
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar and filter pill
	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	filter := pillStyle.Render(" ") + accentStyle.Render(cli.Currency)
	if a.opts.Project != "" {
		filter += pillStyle.Render(" │ ") + accentStyle.Render(a.opts.Project)
	}
	if q := a.projState.query; q != "" {
		filter += pillStyle.Render(" │ search: ") + accentStyle.Render(q)
	}
	filter += pillStyle.Render(" ")
	filterRow := lipgloss.NewStyle().Background(t.Surface).Width(w).Render(filter)

	header := components.RenderTabBar(a.activeTab, w) + "\n" + filterRow

	// 2. Status bar
	info := components.StatusInfo{
		Projects:    a.projectCount(),
		LoadTime:    fmt.Sprintf("%.2fs", a.loadTime.Seconds()),
		Refreshing:  a.refreshing,
		AutoRefresh: a.autoRefresh,
	}
	if a.in != nil {
		info.AsOf = cli.FormatDate(a.in.AsOf())
	}
	if a.loadErr != nil {
		info.Err = a.loadErr.Error()
	}
	statusBar := components.RenderStatusBar(w, info)

	// 3. Content zone height
	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	// 4. Tab content
	var content string
	switch {
	case a.in == nil:
		content = components.ContentCard("No data",
			lipgloss.NewStyle().Foreground(t.TextMuted).Render("The portfolio could not be loaded. Press r to retry."), cw)
	case a.activeTab == tabPortfolio:
		content = a.renderPortfolioTab(cw)
	case a.activeTab == tabProjects:
		content = a.renderProjectsTab(cw, contentH)
	case a.activeTab == tabCashFlow:
		content = a.renderCashFlowTab(cw)
	case a.activeTab == tabResources:
		content = a.renderResourcesTab(cw)
	}

	// 5. Truncate and pad to exactly contentH lines, fill the background
	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Helpers ────────────────────────────────────────────────────

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the widths RenderTabBar uses.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
