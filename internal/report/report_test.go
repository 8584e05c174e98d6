package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/money"
	"github.com/theirongolddev/evmboard/internal/notes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func entry(project string, d time.Time, planned, actual, cost float64) model.ProgressEntry {
	return model.ProgressEntry{
		Project: project, EntryDate: d,
		PlannedCompletion: planned, ActualCompletion: actual,
		PlannedCost: cost, ActualCost: cost,
		Notes: notes.Encode(notes.Record{Numbers: map[int]float64{notes.RowWeeklyManpower: 14}}),
	}
}

type fixture struct {
	projects  []model.Project
	progress  map[string][]model.ProgressEntry
	resources map[string][]model.Resource
}

func newFixture() fixture {
	return fixture{
		projects: []model.Project{
			{Name: "Road", Code: "RD", TotalBudget: 1000, StartDate: day(2024, 1, 1), EndDate: day(2024, 12, 31)},
			{Name: "Clinic", TotalBudget: 500, StartDate: day(2024, 1, 1), EndDate: day(2024, 2, 1)},
			{Name: "Depot", TotalBudget: 0},
		},
		progress: map[string][]model.ProgressEntry{
			"Road": {
				entry("Road", day(2024, 3, 31), 30, 20, 300),
				entry("Road", day(2024, 1, 31), 10, 8, 100),
				entry("Road", day(2024, 2, 29), 20, 15, 200),
			},
			"Clinic": {entry("Clinic", day(2024, 2, 1), 10, 12, 50)},
		},
		resources: map[string][]model.Resource{
			"Road": {{Project: "Road", Kind: model.Labor, Name: "Crew", Quantity: 2, DailyRate: 100,
				StartDate: day(2024, 1, 1), EndDate: day(2024, 1, 10)}},
		},
	}
}

func (f fixture) input(from, to time.Time) *Input {
	in := NewInput(f.projects, f.progress, f.resources, from, to, evm.DefaultThresholds())
	in.Generated = day(2024, 4, 1)
	return in
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind(" Risk-Management ")
	assert.True(t, ok)
	assert.Equal(t, RiskManagement, k)

	k, ok = ParseKind("quarterly-gossip")
	assert.False(t, ok)
	assert.Equal(t, ExecutiveSummary, k)
	assert.Equal(t, "Executive Summary Report", Kind("nope").Title())
	assert.Len(t, Kinds, len(builders))
}

func TestNewInputStopsAtPeriodEnd(t *testing.T) {
	in := newFixture().input(time.Time{}, day(2024, 2, 29))

	e, ok := in.Latest("Road")
	require.True(t, ok)
	assert.Equal(t, day(2024, 2, 29), e.EntryDate)

	k, ok := in.KPI("Road")
	require.True(t, ok)
	assert.Equal(t, day(2024, 2, 29), k.AsOf)
	_, ok = in.KPI("Depot")
	assert.False(t, ok)
	assert.Len(t, in.KPIs(), 2)
	assert.Equal(t, day(2024, 2, 29), in.AsOf())
}

func TestWindowAndCashFlowRows(t *testing.T) {
	in := newFixture().input(day(2024, 2, 1), time.Time{})
	assert.Len(t, in.Window("Road"), 2)
	rows := in.CashFlowRows()
	require.Len(t, rows, 3)
	assert.Equal(t, 1000.0, rows[0].TotalBudget)
	assert.Equal(t, "Period 2024-02-01 to today, generated 2024-04-01", in.Period())
}

func TestRecommendations(t *testing.T) {
	th := evm.DefaultThresholds()
	recs := Recommendations([]evm.KPI{
		{Project: "Road", CPI: 0.8, SPI: 0.7, ActualPercent: 20, PlannedPercent: 30},
		{Project: "Clinic", CPI: 1.2, SPI: 1.1},
	}, th)
	require.Len(t, recs, 2)
	assert.Contains(t, recs[0], "Road: cost overrun")
	assert.Contains(t, recs[1], "Road: behind schedule")

	recs = Recommendations([]evm.KPI{{Project: "Clinic", CPI: 1.2, SPI: 1.1}}, th)
	assert.Equal(t, []string{"All projects are within thresholds. Keep the current pace."}, recs)
	assert.Len(t, Recommendations(nil, th), 1)
}

func TestRiskLevel(t *testing.T) {
	th := evm.DefaultThresholds()
	tests := []struct {
		cpi, spi float64
		want     string
	}{
		{0.8, 0.8, RiskHigh},
		{0.8, 1.1, RiskMedium},
		{0.95, 1.0, RiskLow},
		{1.0, 1.0, RiskNone},
		{0, 0, RiskNone}, // no data yet
	}
	for _, tt := range tests {
		got := RiskLevel(evm.KPI{CPI: tt.cpi, SPI: tt.spi}, th)
		assert.Equal(t, tt.want, got, "cpi=%v spi=%v", tt.cpi, tt.spi)
	}
}

func openBook(t *testing.T, content []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestGenerateEveryKind(t *testing.T) {
	in := newFixture().input(time.Time{}, time.Time{})
	for _, k := range Kinds {
		t.Run(string(k), func(t *testing.T) {
			content, err := Generate(k, in)
			require.NoError(t, err)
			f := openBook(t, content)
			sheets := f.GetSheetList()
			require.NotEmpty(t, sheets)
			title, err := f.GetCellValue(sheets[0], "A1")
			require.NoError(t, err)
			assert.Equal(t, k.Title(), title)
		})
	}

	_, err := Generate(AdvancedKPI, NewInput(nil, nil, nil, time.Time{}, time.Time{}, evm.DefaultThresholds()))
	assert.True(t, errors.Is(err, ErrNoProjects))
}

func TestExecutiveSummaryLayout(t *testing.T) {
	content, err := Generate(Kind("unknown"), newFixture().input(time.Time{}, time.Time{}))
	require.NoError(t, err)
	f := openBook(t, content)
	const sh = "Executive Summary"

	v, _ := f.GetCellValue(sh, "B5", excelize.Options{RawCellValue: true})
	assert.Equal(t, "3", v)
	label, _ := f.GetCellValue(sh, "A11")
	assert.Equal(t, "Project Details", label)
	name, _ := f.GetCellValue(sh, "A14")
	assert.Equal(t, "Road", name)
	band, _ := f.GetCellValue(sh, "E14")
	assert.Equal(t, "Needs Follow-up", band)
}

func TestRiskRegisterOrder(t *testing.T) {
	content, err := Generate(RiskManagement, newFixture().input(time.Time{}, time.Time{}))
	require.NoError(t, err)
	f := openBook(t, content)

	rows, err := f.GetRows("Risk Register")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 6)
	assert.Equal(t, "Road", rows[4][0])
	assert.Equal(t, RiskHigh, rows[4][3])
	assert.Equal(t, "Clinic", rows[5][0])
	// Clinic ended 2024-02-01 at 12% done.
	assert.Equal(t, RiskMedium, rows[5][3])
	assert.Contains(t, rows[5][4], "past planned end date")
}

func TestResourceCostTotals(t *testing.T) {
	content, err := Generate(ResourceCost, newFixture().input(time.Time{}, time.Time{}))
	require.NoError(t, err)
	f := openBook(t, content)

	total, _ := f.GetCellValue("Resources", "G6", excelize.Options{RawCellValue: true})
	assert.Equal(t, "2000", total)
	rows, err := f.GetRows("Resources", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	last := rows[len(rows)-1]
	require.GreaterOrEqual(t, len(last), 2)
	assert.Equal(t, "Clinic", last[0])
	assert.Equal(t, "14", last[1])
}

func headings(t *testing.T, md string, level int) []string {
	t.Helper()
	src := []byte(md)
	root := goldmark.DefaultParser().Parse(text.NewReader(src))
	var out []string
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !entering || !ok || h.Level != level {
			return ast.WalkContinue, nil
		}
		var sb strings.Builder
		lines := h.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(src))
		}
		out = append(out, strings.TrimSpace(sb.String()))
		return ast.WalkSkipChildren, nil
	})
	require.NoError(t, err)
	return out
}

func TestBriefingSections(t *testing.T) {
	md := Briefing(newFixture().input(time.Time{}, time.Time{}), "SAR")

	assert.Equal(t, []string{BriefingTitle}, headings(t, md, 1))
	assert.Equal(t, []string{
		"Overview", "Projects", "Performance Comparison", "Schedule",
		"Financial Position", "Recommendations",
	}, headings(t, md, 2))
	assert.Equal(t, []string{"Road", "Clinic", "Depot", "General"}, headings(t, md, 3))

	assert.Contains(t, md, "| Total budget | SAR 1,500.00 |")
	pf := evm.Summarize(newFixture().input(time.Time{}, time.Time{}).KPIs())
	assert.Contains(t, md, "| Remaining budget | "+money.Format(1500-pf.TotalAC, "SAR")+" |")
	assert.Contains(t, md, "Road: cost overrun")
	assert.Contains(t, md, "- No progress recorded")
}

func TestRenderBriefing(t *testing.T) {
	md := Briefing(newFixture().input(time.Time{}, time.Time{}), "SAR")

	page, err := RenderHTML("Q1 <draft>", md)
	require.NoError(t, err)
	s := string(page)
	assert.Contains(t, s, "<title>Q1 &lt;draft&gt;</title>")
	assert.Contains(t, s, "<table>")
	assert.Contains(t, s, "<h2>Performance Comparison</h2>")

	out, err := RenderTerminal(md, 100)
	require.NoError(t, err)
	assert.Contains(t, out, "Performance Comparison")
}

type fakeSource struct{ fixture }

func (s fakeSource) Projects() ([]model.Project, error) { return s.projects, nil }

func (s fakeSource) ProgressByProject() (map[string][]model.ProgressEntry, error) {
	return s.progress, nil
}

func (s fakeSource) Resources(project string, _ model.ResourceKind) ([]model.Resource, error) {
	return s.resources[project], nil
}

func TestCollect(t *testing.T) {
	src := fakeSource{newFixture()}
	in, err := Collect(src, []string{"Clinic"}, time.Time{}, time.Time{}, evm.DefaultThresholds())
	require.NoError(t, err)
	require.Len(t, in.Projects, 1)
	assert.Equal(t, "Clinic", in.Projects[0].Name)

	in, err = Collect(src, nil, time.Time{}, time.Time{}, evm.DefaultThresholds())
	require.NoError(t, err)
	assert.Len(t, in.Projects, 3)
	assert.Len(t, in.Resources["Road"], 1)

	_, err = Collect(src, []string{"Harbor"}, time.Time{}, time.Time{}, evm.DefaultThresholds())
	assert.ErrorContains(t, err, `"Harbor"`)
}
