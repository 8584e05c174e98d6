package tui

import (
	"testing"
	"time"

	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeSource struct {
	projects  []model.Project
	progress  map[string][]model.ProgressEntry
	resources map[string][]model.Resource
}

func (f fakeSource) Projects() ([]model.Project, error) { return f.projects, nil }

func (f fakeSource) ProgressByProject() (map[string][]model.ProgressEntry, error) {
	return f.progress, nil
}

func (f fakeSource) Resources(project string, _ model.ResourceKind) ([]model.Resource, error) {
	return f.resources[project], nil
}

func newFakeSource() fakeSource {
	return fakeSource{
		projects: []model.Project{
			{Name: "Riyadh Ring Road", Code: "RRR-01", ExecutingCompany: "Nesma", TotalBudget: 1_000_000,
				StartDate: day(time.January, 1), EndDate: day(time.December, 31)},
			{Name: "Clinic Fitout", Code: "CF-7", ExecutingCompany: "Saudi Oger", TotalBudget: 250_000,
				StartDate: day(time.March, 1), EndDate: day(time.September, 30)},
			{Name: "Harbor Wall", Code: "HW-2", TotalBudget: 400_000},
		},
		progress: map[string][]model.ProgressEntry{
			"Riyadh Ring Road": {
				{Project: "Riyadh Ring Road", EntryDate: day(time.February, 1), PlannedCompletion: 10, ActualCompletion: 8, PlannedCost: 100_000, ActualCost: 90_000},
				{Project: "Riyadh Ring Road", EntryDate: day(time.March, 1), PlannedCompletion: 20, ActualCompletion: 18, PlannedCost: 100_000, ActualCost: 110_000},
			},
			"Clinic Fitout": {
				{Project: "Clinic Fitout", EntryDate: day(time.March, 15), PlannedCompletion: 10, ActualCompletion: 12, PlannedCost: 25_000, ActualCost: 20_000},
			},
		},
		resources: map[string][]model.Resource{
			"Clinic Fitout": {
				{Project: "Clinic Fitout", Kind: model.Labor, Name: "Electricians", Quantity: 4, DailyRate: 300,
					StartDate: day(time.March, 1), EndDate: day(time.March, 10)},
			},
		},
	}
}

// loadedApp returns an App that has received its initial data.
func loadedApp(t *testing.T) App {
	t.Helper()
	theme.SetActive("flexoki-dark")
	src := newFakeSource()
	opts := Options{Currency: "SAR", Thresholds: evm.DefaultThresholds()}
	a := NewApp(src, opts)

	in, err := load(src, opts)
	require.NoError(t, err)

	m, _ := a.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	m, _ = m.Update(DataLoadedMsg{Input: in, LoadTime: time.Millisecond})
	return m.(App)
}

func press(t *testing.T, a App, keys ...string) App {
	t.Helper()
	var m tea.Model = a
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m.(App)
}

func TestDataLoadedComputesPortfolio(t *testing.T) {
	a := loadedApp(t)

	assert.True(t, a.loaded)
	assert.Equal(t, 3, a.portfolio.Projects)
	assert.Equal(t, 2, a.portfolio.WithData)
	// projects without progress still count toward the budget
	assert.InDelta(t, 1_650_000, a.portfolio.TotalBudget, 0.01)
	assert.InDelta(t, 110_000+20_000, a.portfolio.TotalAC, 0.01)

	require.Len(t, a.cashFlow, 3)
	assert.InDelta(t, 220_000, a.cashFlow[2].CumulativeActual, 0.01)
	assert.Greater(t, a.burnRate, 0.0)

	assert.Equal(t, []string{"Riyadh Ring Road", "Clinic Fitout", "Harbor Wall"}, a.projState.names)
}

func TestTabNavigation(t *testing.T) {
	a := loadedApp(t)
	assert.Equal(t, tabPortfolio, a.activeTab)

	a = press(t, a, "c")
	assert.Equal(t, tabCashFlow, a.activeTab)
	a = press(t, a, "e")
	assert.Equal(t, tabResources, a.activeTab)
	a = press(t, a, "tab")
	assert.Equal(t, tabPortfolio, a.activeTab)
	a = press(t, a, "left")
	assert.Equal(t, tabResources, a.activeTab)
	a = press(t, a, "o")
	assert.Equal(t, tabProjects, a.activeTab)
}

func TestQuitKey(t *testing.T) {
	a := loadedApp(t)
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestProjectSearchFiltersRows(t *testing.T) {
	a := loadedApp(t)
	a = press(t, a, "o", "/")
	require.True(t, a.projState.searching)

	// letters typed while searching go to the input, not the tab bar
	a = press(t, a, "c", "l", "i", "n", "enter")
	assert.False(t, a.projState.searching)
	assert.Equal(t, tabProjects, a.activeTab)
	assert.Equal(t, "clin", a.projState.query)
	assert.Equal(t, []string{"Clinic Fitout"}, a.projState.names)

	// company names match too
	a = press(t, a, "esc", "/", "n", "e", "s", "m", "a", "enter")
	assert.Equal(t, []string{"Riyadh Ring Road"}, a.projState.names)

	a = press(t, a, "esc")
	assert.Empty(t, a.projState.query)
	assert.Len(t, a.projState.names, 3)
}

func TestProjectDetailToggle(t *testing.T) {
	a := loadedApp(t)
	a = press(t, a, "o", "j")
	name, ok := a.projState.selected()
	require.True(t, ok)
	assert.Equal(t, "Clinic Fitout", name)

	a = press(t, a, "enter")
	assert.True(t, a.projState.detail)
	assert.Contains(t, a.View(), "Saudi Oger")

	a = press(t, a, "esc")
	assert.False(t, a.projState.detail)
}

func TestRefreshKeepsCursor(t *testing.T) {
	a := loadedApp(t)
	a = press(t, a, "o", "G")
	name, _ := a.projState.selected()
	require.Equal(t, "Harbor Wall", name)

	src := newFakeSource()
	src.projects = append([]model.Project{{Name: "Airport Annex", TotalBudget: 10}}, src.projects...)
	in, err := load(src, a.opts)
	require.NoError(t, err)
	m, _ := a.Update(RefreshDataMsg{Input: in})
	a = m.(App)

	name, _ = a.projState.selected()
	assert.Equal(t, "Harbor Wall", name)
	assert.Len(t, a.projState.names, 4)
}

func TestProjectFilterOption(t *testing.T) {
	src := newFakeSource()
	in, err := load(src, Options{Project: "ring", Thresholds: evm.DefaultThresholds()})
	require.NoError(t, err)
	require.Len(t, in.Projects, 1)
	assert.Equal(t, "Riyadh Ring Road", in.Projects[0].Name)
}

func TestViewsRenderEveryTab(t *testing.T) {
	a := loadedApp(t)
	for _, key := range []string{"p", "o", "c", "e"} {
		a = press(t, a, key)
		view := a.View()
		assert.Equal(t, 50, lipgloss.Height(view), "tab %s", key)
	}
	a = press(t, a, "e")
	assert.Contains(t, a.View(), "Electricians")
}

func TestMonthlyTotals(t *testing.T) {
	a := loadedApp(t)
	months := monthlyTotals(a.cashFlow)
	require.Len(t, months, 2)
	assert.Equal(t, time.February, months[0].Month.Month())
	assert.InDelta(t, 90_000, months[0].Actual, 0.01)
	assert.InDelta(t, 130_000, months[1].Actual, 0.01)
	assert.InDelta(t, 125_000, months[1].Planned, 0.01)
}
