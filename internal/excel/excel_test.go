package excel

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"
	"github.com/theirongolddev/evmboard/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleEntry(project string, d time.Time, plannedCost, cumBudget, cumPct, elapsedPct float64) model.ProgressEntry {
	rec := notes.Record{
		Numbers: map[int]float64{
			notes.RowPlannedCost:      plannedCost,
			notes.RowCumulativeBudget: cumBudget,
			notes.RowPlannedPercent:   5,
			notes.RowCumulativePct:    cumPct,
			notes.RowElapsedPercent:   elapsedPct,
			notes.RowElapsedPeriod:    30,
			notes.RowActual:           cumPct - 2,
			notes.RowWeeklyManpower:   12,
			notes.RowMonthlyManpower:  40,
		},
		Dates: map[int]time.Time{
			notes.RowWeeklyDate:  d.AddDate(0, 0, 3),
			notes.RowMonthlyDate: time.Time{},
		},
	}
	return model.ProgressEntry{
		Project:           project,
		EntryDate:         d,
		PlannedCompletion: cumPct,
		PlannedCost:       cumBudget,
		ActualCompletion:  elapsedPct,
		ActualCost:        plannedCost,
		Notes:             notes.Encode(rec),
	}
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "a_b_c", SheetName("a/b:c"))
	assert.Equal(t, "Sheet", SheetName("  "))
	assert.Len(t, []rune(SheetName("مشروع طريق الملك عبدالعزيز السريع الجديد")), MaxSheetName)
	assert.Equal(t, "3.P003", templateSheetName(3, ""))
}

func TestTemplateRoundTrip(t *testing.T) {
	projects := []model.Project{
		{Name: "Ring Road", Code: "RR1", TotalBudget: 1_000_000, Contractor: "Al Bina",
			ProjectManager: "Sara", StartDate: day(2024, 1, 1), EndDate: day(2025, 6, 30)},
		{Name: "Clinic", TotalBudget: 250_000},
	}
	progress := map[string][]model.ProgressEntry{
		"Ring Road": {
			sampleEntry("Ring Road", day(2024, 2, 1), 40_000, 90_000, 9, 6),
			sampleEntry("Ring Road", day(2024, 1, 4), 50_000, 50_000, 4.5, 3),
		},
	}

	content, err := ProjectTemplate(projects, progress)
	require.NoError(t, err)

	res, err := ParseTemplate(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Projects, 2)
	assert.Len(t, res.Warnings, MinTemplateSheets-2, "blank sheets are skipped with a warning")
	assert.Equal(t, []string{"Ring Road", "Clinic"}, res.Names())

	road := res.Projects[0]
	assert.Equal(t, "1.RR1", road.Sheet)
	assert.Equal(t, "RR1", road.Project.Code)
	assert.Equal(t, 1_000_000.0, road.Project.TotalBudget)
	assert.Equal(t, "Al Bina", road.Project.Contractor)
	assert.Equal(t, "Sara", road.Project.ProjectManager)
	assert.Equal(t, day(2024, 1, 1), road.Project.StartDate)
	assert.Equal(t, day(2025, 6, 30), road.Project.EndDate)
	assert.Equal(t, 0, road.Project.DisplayOrder)

	require.Len(t, road.Entries, 2)
	first := road.Entries[0]
	assert.Equal(t, day(2024, 1, 4), first.EntryDate, "grid is written in date order")
	assert.Equal(t, 50_000.0, first.ActualCost)
	assert.Equal(t, 50_000.0, first.PlannedCost)
	assert.InDelta(t, 4.5, first.PlannedCompletion, 1e-9)
	assert.InDelta(t, 3, first.ActualCompletion, 1e-9)

	f := notes.Parse(first.Notes)
	w, ok := f.Date(notes.RowWeeklyDate)
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 7), w)
	_, ok = f.Date(notes.RowMonthlyDate)
	assert.False(t, ok, "missing dates stay absent")
	mp, _ := f.Number(notes.RowWeeklyManpower)
	assert.Equal(t, 12.0, mp)

	clinic := res.Projects[1]
	assert.Equal(t, "P002", clinic.Project.Code)
	assert.Empty(t, clinic.Entries)
	assert.Empty(t, clinic.Project.Contractor)
}

func TestParseTemplateAllPlaceholders(t *testing.T) {
	content, err := ProjectTemplate(nil, nil)
	require.NoError(t, err)

	res, err := ParseTemplate(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Empty(t, res.Projects)
	assert.Len(t, res.Warnings, MinTemplateSheets)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "no projects found")
}

// handMadeSheet builds a workbook the way a user would fill it in by hand.
func handMadeSheet(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sh := f.GetSheetName(0)

	cells := map[string]any{
		"B3":  "Project Name: Water Tank",
		"E3":  "WT-7 - Riyadh",
		"H3":  "01/02/2024",
		"K3":  "not a date",
		"N3":  "1,200,000",
		"B7":  45292, // 2024-01-01
		"C7":  45323, // 2024-02-01, all zero
		"D7":  "15/03/2024",
		"E7":  "",
		"B8":  1000,
		"B9":  1000,
		"D8":  2000,
		"D9":  3000,
		"D12": 12.5,
		"B18": 5,
		"D20": "2024-03-01",
	}
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue(sh, cell, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestTemplateKeepsSmallAndFractionalPercents(t *testing.T) {
	for _, pct := range []float64{0.5, 1, 45.123} {
		projects := []model.Project{{Name: "Pump Station", TotalBudget: 500_000}}
		progress := map[string][]model.ProgressEntry{
			"Pump Station": {sampleEntry("Pump Station", day(2024, 4, 1), 1_000, 2_000, pct, pct)},
		}
		content, err := ProjectTemplate(projects, progress)
		require.NoError(t, err)

		res, err := ParseTemplate(bytes.NewReader(content))
		require.NoError(t, err)
		require.Len(t, res.Projects, 1)
		require.Len(t, res.Projects[0].Entries, 1)
		got := res.Projects[0].Entries[0]
		assert.Equal(t, pct, got.PlannedCompletion, "planned %v%%", pct)
		assert.Equal(t, pct, got.ActualCompletion, "actual %v%%", pct)

		f := notes.Parse(got.Notes)
		v, _ := f.Number(notes.RowCumulativePct)
		assert.Equal(t, pct, v)
	}
}

func TestPercentFractionIsAlwaysScaled(t *testing.T) {
	assert.InDelta(t, 0.008, percentFraction(0.8), 1e-12)
	assert.InDelta(t, 0.01, percentFraction(1), 1e-12)
	assert.Equal(t, 1.0, fractionPercent(percentFraction(100)))
	assert.Equal(t, 45.123, fractionPercent(percentFraction(45.123)))
}

func TestParseHandFilledSheet(t *testing.T) {
	res, err := ParseTemplate(bytes.NewReader(handMadeSheet(t)))
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)

	ip := res.Projects[0]
	assert.Equal(t, "Water Tank", ip.Project.Name)
	assert.Equal(t, "WT-7", ip.Project.Code)
	assert.Equal(t, day(2024, 2, 1), ip.Project.StartDate)
	assert.True(t, ip.Project.EndDate.IsZero())
	assert.Equal(t, 1_200_000.0, ip.Project.TotalBudget)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "invalid end date")

	require.Len(t, ip.Entries, 2, "the all-zero column is dropped")
	assert.Equal(t, day(2024, 1, 1), ip.Entries[0].EntryDate)
	assert.Equal(t, day(2024, 3, 15), ip.Entries[1].EntryDate)
	assert.Equal(t, 3000.0, ip.Entries[1].PlannedCost)
	assert.Equal(t, 12.5, ip.Entries[1].ActualCompletion)

	f := notes.Parse(ip.Entries[1].Notes)
	mp, ok := f.Number(notes.RowWeeklyManpower)
	require.True(t, ok)
	assert.Equal(t, 5.0, mp, "resource counts fall back to the nearest filled column")
	md, ok := f.Date(notes.RowMonthlyDate)
	require.True(t, ok)
	assert.Equal(t, day(2024, 3, 1), md)
}

func TestParseTemplateRejectsGarbage(t *testing.T) {
	_, err := ParseTemplate(bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}

type fakeSink struct {
	cleared  int
	projects []model.Project
	entries  []model.ProgressEntry
	saved    []model.OriginalFile
	known    map[string]model.OriginalFile
}

func (s *fakeSink) OriginalFileByHash(hash string) (model.OriginalFile, error) {
	if f, ok := s.known[hash]; ok {
		return f, nil
	}
	return model.OriginalFile{}, errors.New("not found")
}

func (s *fakeSink) ClearAll() error {
	s.cleared++
	s.projects, s.entries = nil, nil
	return nil
}

func (s *fakeSink) UpsertProject(p model.Project) (int64, error) {
	s.projects = append(s.projects, p)
	return int64(len(s.projects)), nil
}

func (s *fakeSink) AddProgressBatch(entries []model.ProgressEntry) error {
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *fakeSink) SaveOriginalFile(name string, content []byte, projects []string) (model.OriginalFile, error) {
	f := model.OriginalFile{Name: name, Content: content, Hash: string(content[:8]), BatchID: "b1", Projects: projects}
	s.saved = append(s.saved, f)
	if s.known == nil {
		s.known = map[string]model.OriginalFile{}
	}
	s.known[f.Hash] = f
	return f, nil
}

func (s *fakeSink) LatestOriginalFile() (model.OriginalFile, error) {
	if len(s.saved) == 0 {
		return model.OriginalFile{}, errors.New("not found")
	}
	return s.saved[len(s.saved)-1], nil
}

func TestImporterReplacesAndDeduplicates(t *testing.T) {
	sink := &fakeSink{}
	im := &Importer{Sink: sink, Hash: func(b []byte) string { return string(b[:8]) }}
	content := handMadeSheet(t)

	res, err := im.Import("tank.xlsx", content, false)
	require.NoError(t, err)
	assert.Equal(t, 1, sink.cleared)
	assert.Len(t, sink.projects, 1)
	assert.Len(t, sink.entries, res.Entries())
	require.Len(t, sink.saved, 1)
	assert.Equal(t, []string{"Water Tank"}, sink.saved[0].Projects)

	_, err = im.Import("tank.xlsx", content, false)
	assert.ErrorIs(t, err, ErrAlreadyImported)
	assert.Equal(t, 1, sink.cleared)

	_, err = im.Import("tank.xlsx", content, true)
	require.NoError(t, err)
	assert.Equal(t, 2, sink.cleared)

	got, err := LatestOriginal(sink)
	require.NoError(t, err)
	assert.Equal(t, "tank.xlsx", got.Name)
	_, err = LatestOriginal(&fakeSink{})
	assert.ErrorIs(t, err, ErrNoTemplate)
}

func TestImporterKeepsDataWhenNothingParsed(t *testing.T) {
	sink := &fakeSink{}
	empty, err := ProjectTemplate(nil, nil)
	require.NoError(t, err)

	res, err := (&Importer{Sink: sink}).Import("blank.xlsx", empty, false)
	require.NoError(t, err)
	assert.Empty(t, res.Projects)
	assert.Zero(t, sink.cleared)
	assert.Empty(t, sink.saved)
}

func openBook(t *testing.T, content []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestCashFlowReport(t *testing.T) {
	tmpl, err := ProjectTemplate([]model.Project{{Name: "Ring Road", Code: "RR1"}}, nil)
	require.NoError(t, err)
	ex := &Exporter{Original: &model.OriginalFile{Name: "orig.xlsx", Content: tmpl}}

	points := pipeline.PortfolioCashFlow([]model.CashFlowRow{
		{Project: "A", EntryDate: day(2024, 1, 1), PlannedCost: 100, ActualCost: 90},
		{Project: "B", EntryDate: day(2024, 1, 1), PlannedCost: 50, ActualCost: 70},
		{Project: "A", EntryDate: day(2024, 2, 1), PlannedCost: 100, ActualCost: 120},
	})
	content, err := ex.CashFlowReport("Portfolio", day(2024, 1, 1), day(2024, 2, 1), points)
	require.NoError(t, err)

	f := openBook(t, content)
	assert.Equal(t, []string{"Cash Flow", worksheetsSheet}, f.GetSheetList())
	title, _ := f.GetCellValue("Cash Flow", "A1")
	assert.Equal(t, "Cash Flow Report - Portfolio", title)
	hdr, _ := f.GetCellValue("Cash Flow", "G4")
	assert.Equal(t, "Cumulative Variance", hdr)
	cum, _ := f.GetCellValue("Cash Flow", "G6", excelize.Options{RawCellValue: true})
	assert.Equal(t, "30", cum)

	name, _ := f.GetCellValue(worksheetsSheet, "A4")
	assert.Equal(t, templateHeader, name)
}

func TestPortfolioAndProjectReports(t *testing.T) {
	p := model.Project{Name: "Ring Road", TotalBudget: 1000}
	entries := []model.ProgressEntry{
		{Project: p.Name, EntryDate: day(2024, 1, 1), PlannedCompletion: 10, ActualCompletion: 8, ActualCost: 100},
		{Project: p.Name, EntryDate: day(2024, 2, 1), PlannedCompletion: 20, ActualCompletion: 18, ActualCost: 200},
	}
	k, ok := evm.Compute(p, entries, evm.DefaultThresholds())
	require.True(t, ok)
	ex := &Exporter{Now: func() time.Time { return day(2024, 3, 1) }}

	content, err := ex.PortfolioKPIReport(evm.Summarize([]evm.KPI{k}))
	require.NoError(t, err)
	f := openBook(t, content)
	assert.Equal(t, []string{"Portfolio Summary", "Project Details"}, f.GetSheetList())
	stamp, _ := f.GetCellValue("Portfolio Summary", "A2")
	assert.Equal(t, "Report date: 2024-03-01", stamp)
	proj, _ := f.GetCellValue("Project Details", "A2")
	assert.Equal(t, "Ring Road", proj)

	content, err = ex.ProjectReport(p, entries, &k)
	require.NoError(t, err)
	f = openBook(t, content)
	assert.Equal(t, []string{"Project Info", "Progress", "KPI"}, f.GetSheetList())
	rows, err := f.GetRows("Progress")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	content, err = ex.ProjectReport(p, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Project Info"}, openBook(t, content).GetSheetList())
}

func TestTimelineExport(t *testing.T) {
	tl := &pipeline.Timeline{
		Columns: pipeline.MonthlyColumns(day(2024, 1, 1), day(2024, 2, 28)),
		Rows: []pipeline.TimelineRow{
			{Project: model.Project{Name: "A", Code: "A1"}, Values: []float64{10, 0}, Present: []bool{true, false}, Total: 10},
			{Project: model.Project{Name: "B", Code: "B1"}, Values: []float64{5, 7}, Present: []bool{true, true}, Total: 12},
		},
		Totals: []float64{15, 7},
	}
	content, err := (&Exporter{}).Timeline("Financial", tl)
	require.NoError(t, err)

	f := openBook(t, content)
	rows, err := f.GetRows("Financial", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Project", "Code", "Jan 2024", "Feb 2024", "Total"}, rows[0])
	assert.Equal(t, "", rows[1][3], "absent values stay blank")
	assert.Equal(t, []string{"Total", "", "15", "7", "22"}, rows[3])
}
