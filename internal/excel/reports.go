package excel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/pipeline"

	"github.com/xuri/excelize/v2"
)

// worksheetsSheet holds a copy of the imported workbook's first sheet.
const worksheetsSheet = "Worksheets Data"

// maxCopiedColumns bounds how much of the imported sheet is copied.
const maxCopiedColumns = 50

// Exporter builds report workbooks.
type Exporter struct {
	// Original, when set, is the last imported workbook; reports append a
	// copy of its first sheet.
	Original *model.OriginalFile
	// Now stamps report dates. Defaults to time.Now.
	Now func() time.Time
}

func (e *Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CashFlowReport writes cash-flow points with their running totals.
func (e *Exporter) CashFlowReport(title string, from, to time.Time, points []pipeline.CashFlowPoint) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}
	sh, err := b.sheet("Cash Flow")
	if err != nil {
		return nil, err
	}

	if err := b.row(sh, 1, "Cash Flow Report - "+title); err != nil {
		return nil, err
	}
	if err := b.row(sh, 2, fmt.Sprintf("From %s to %s", fmtDate(from), fmtDate(to))); err != nil {
		return nil, err
	}
	if err := b.row(sh, 4, "Date", "Planned Cost", "Actual Cost", "Variance",
		"Cumulative Planned", "Cumulative Actual", "Cumulative Variance"); err != nil {
		return nil, err
	}
	for i, p := range points {
		if err := b.row(sh, 5+i, p.Date, p.PlannedCost, p.ActualCost, p.Variance,
			p.CumulativePlanned, p.CumulativeActual, p.CumulativeVariance); err != nil {
			return nil, err
		}
	}

	last := 4 + len(points)
	if err := firstErr(
		b.f.MergeCell(sh, "A1", "G1"),
		b.f.MergeCell(sh, "A2", "G2"),
		b.style(sh, 1, 1, 1, 1, b.title),
		b.style(sh, 1, 4, 7, 4, b.header),
		b.style(sh, 1, 5, 1, last, b.date),
		b.style(sh, 2, 5, 7, last, b.money),
		b.f.SetColWidth(sh, "A", "G", 20),
	); err != nil {
		return nil, fmt.Errorf("formatting cash flow sheet: %w", err)
	}

	if err := e.appendOriginal(b); err != nil {
		return nil, err
	}
	return b.bytes()
}

// PortfolioKPIReport writes portfolio totals and one row per project.
func (e *Exporter) PortfolioKPIReport(pf evm.Portfolio) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}
	sh, err := b.sheet("Portfolio Summary")
	if err != nil {
		return nil, err
	}

	rows := []struct {
		label string
		value any
		style int
	}{
		{"Total Projects", pf.Projects, 0},
		{"Projects With Data", pf.WithData, 0},
		{"Total Budget", pf.TotalBudget, b.money},
		{"Planned Value (PV)", pf.TotalPV, b.money},
		{"Earned Value (EV)", pf.TotalEV, b.money},
		{"Actual Cost (AC)", pf.TotalAC, b.money},
		{"Cost Performance Index (CPI)", pf.CPI, b.index},
		{"Schedule Performance Index (SPI)", pf.SPI, b.index},
		{"Cost Variance (CV)", pf.CV, b.money},
		{"Schedule Variance (SV)", pf.SV, b.money},
	}

	if err := b.row(sh, 1, "Portfolio KPI Report"); err != nil {
		return nil, err
	}
	if err := b.row(sh, 2, "Report date: "+fmtDate(e.now())); err != nil {
		return nil, err
	}
	const start = 4
	for i, r := range rows {
		if err := b.row(sh, start+i, r.label, r.value); err != nil {
			return nil, err
		}
		if r.style != 0 {
			if err := b.style(sh, 2, start+i, 2, start+i, r.style); err != nil {
				return nil, err
			}
		}
	}

	statusRow := start + len(rows) + 1
	if err := b.row(sh, statusRow, "Status", "Projects"); err != nil {
		return nil, err
	}
	for i, st := range []model.Status{model.StatusAhead, model.StatusOnTrack, model.StatusBehind} {
		if err := b.row(sh, statusRow+1+i, string(st), pf.StatusCounts[st]); err != nil {
			return nil, err
		}
	}
	if err := firstErr(
		b.style(sh, 1, 1, 1, 1, b.title),
		b.style(sh, 1, statusRow, 2, statusRow, b.header),
		b.f.SetColWidth(sh, "A", "A", 36),
		b.f.SetColWidth(sh, "B", "B", 20),
	); err != nil {
		return nil, fmt.Errorf("formatting summary sheet: %w", err)
	}

	if len(pf.Details) > 0 {
		if err := writeKPITable(b, "Project Details", pf.Details); err != nil {
			return nil, err
		}
	}
	if err := e.appendOriginal(b); err != nil {
		return nil, err
	}
	return b.bytes()
}

func writeKPITable(b *book, name string, kpis []evm.KPI) error {
	sh, err := b.sheet(name)
	if err != nil {
		return err
	}
	if err := b.row(sh, 1, "Project", "As Of", "Budget", "PV", "EV", "AC",
		"CPI", "SPI", "CV", "SV", "EAC", "ETC", "Status"); err != nil {
		return err
	}
	for i, k := range kpis {
		if err := b.row(sh, 2+i, k.Project, k.AsOf, k.Budget, k.PV, k.EV, k.AC,
			k.CPI, k.SPI, k.CV, k.SV, k.EAC, k.ETC, string(k.Status)); err != nil {
			return err
		}
	}
	last := 1 + len(kpis)
	return firstErr(
		b.style(sh, 1, 1, 13, 1, b.header),
		b.style(sh, 2, 2, 2, last, b.date),
		b.style(sh, 3, 2, 6, last, b.money),
		b.style(sh, 7, 2, 8, last, b.index),
		b.style(sh, 9, 2, 12, last, b.money),
		b.f.SetColWidth(sh, "A", "A", 30),
		b.f.SetColWidth(sh, "B", "M", 15),
	)
}

// ProjectReport writes a project's details, progress history and KPI.
func (e *Exporter) ProjectReport(p model.Project, entries []model.ProgressEntry, kpi *evm.KPI) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}
	sh, err := b.sheet("Project Info")
	if err != nil {
		return nil, err
	}
	info := [][2]any{
		{"Project Name", p.Name},
		{"Project Code", p.DisplayCode()},
		{"Category", p.CategoryName},
		{"Executing Company", p.ExecutingCompany},
		{"Consulting Company", p.ConsultingCompany},
		{"Contractor", p.Contractor},
		{"Project Manager", p.ProjectManager},
		{"Start Date", fmtDate(p.StartDate)},
		{"End Date", fmtDate(p.EndDate)},
		{"Total Budget", p.TotalBudget},
		{"Location", p.Location},
		{"Type", p.Type},
	}
	for i, kv := range info {
		if err := b.row(sh, 1+i, kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	if err := firstErr(
		b.style(sh, 1, 1, 1, len(info), b.header),
		b.style(sh, 2, 10, 2, 10, b.money),
		b.f.SetColWidth(sh, "A", "A", 24),
		b.f.SetColWidth(sh, "B", "B", 40),
	); err != nil {
		return nil, fmt.Errorf("formatting info sheet: %w", err)
	}

	if len(entries) > 0 {
		ph, err := b.sheet("Progress")
		if err != nil {
			return nil, err
		}
		if err := b.row(ph, 1, "Entry Date", "Planned Completion", "Planned Cost",
			"Actual Completion", "Actual Cost", "Notes"); err != nil {
			return nil, err
		}
		for i, pe := range evm.SortByDate(entries) {
			if err := b.row(ph, 2+i, pe.EntryDate, percentFraction(pe.PlannedCompletion), pe.PlannedCost,
				percentFraction(pe.ActualCompletion), pe.ActualCost, pe.Notes); err != nil {
				return nil, err
			}
		}
		last := 1 + len(entries)
		if err := firstErr(
			b.style(ph, 1, 1, 6, 1, b.header),
			b.style(ph, 1, 2, 1, last, b.date),
			b.style(ph, 2, 2, 2, last, b.percent),
			b.style(ph, 3, 2, 3, last, b.money),
			b.style(ph, 4, 2, 4, last, b.percent),
			b.style(ph, 5, 2, 5, last, b.money),
			b.f.SetColWidth(ph, "A", "E", 18),
		); err != nil {
			return nil, fmt.Errorf("formatting progress sheet: %w", err)
		}
	}

	if kpi != nil {
		if err := writeKPITable(b, "KPI", []evm.KPI{*kpi}); err != nil {
			return nil, err
		}
	}
	return b.bytes()
}

// Timeline writes a project-by-period matrix with a totals row.
func (e *Exporter) Timeline(title string, tl *pipeline.Timeline) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}
	sh, err := b.sheet(title)
	if err != nil {
		return nil, err
	}

	header := []any{"Project", "Code"}
	for _, c := range tl.Columns {
		header = append(header, c.Label)
	}
	header = append(header, "Total")
	if err := b.row(sh, 1, header...); err != nil {
		return nil, err
	}

	for i, r := range tl.Rows {
		vals := []any{r.Project.Name, r.Project.DisplayCode()}
		for j, v := range r.Values {
			if r.Present[j] {
				vals = append(vals, v)
			} else {
				vals = append(vals, nil)
			}
		}
		vals = append(vals, r.Total)
		if err := b.row(sh, 2+i, vals...); err != nil {
			return nil, err
		}
	}

	totalRow := 2 + len(tl.Rows)
	totals := []any{"Total", ""}
	for _, v := range tl.Totals {
		totals = append(totals, v)
	}
	totals = append(totals, tl.GrandTotal())
	if err := b.row(sh, totalRow, totals...); err != nil {
		return nil, err
	}

	lastCol := len(header)
	if err := firstErr(
		b.style(sh, 1, 1, lastCol, 1, b.header),
		b.style(sh, 1, totalRow, lastCol, totalRow, b.header),
		b.style(sh, 3, 2, lastCol, totalRow-1, b.money),
		b.f.SetColWidth(sh, "A", "A", 30),
		b.f.SetPanes(sh, &excelize.Panes{Freeze: true, XSplit: 2, YSplit: 1, TopLeftCell: "C2", ActivePane: "bottomRight"}),
	); err != nil {
		return nil, fmt.Errorf("formatting timeline sheet: %w", err)
	}
	return b.bytes()
}

// appendOriginal copies the first sheet of the imported workbook.
func (e *Exporter) appendOriginal(b *book) error {
	if e.Original == nil || len(e.Original.Content) == 0 {
		return nil
	}
	src, err := excelize.OpenReader(bytes.NewReader(e.Original.Content))
	if err != nil {
		return fmt.Errorf("opening original workbook: %w", err)
	}
	defer func() { _ = src.Close() }()

	sheets := src.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}
	rows, err := src.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("reading original sheet %q: %w", sheets[0], err)
	}

	sh, err := b.sheet(worksheetsSheet)
	if err != nil {
		return err
	}
	if err := b.row(sh, 1, "Complete Worksheets Data"); err != nil {
		return err
	}
	if err := b.row(sh, 2, fmt.Sprintf("Original file: %s - imported %s", e.Original.Name, fmtDate(e.Original.ImportedAt))); err != nil {
		return err
	}
	out := 4
	for _, r := range rows {
		if allBlank(r) {
			continue
		}
		if len(r) > maxCopiedColumns {
			r = r[:maxCopiedColumns]
		}
		vals := make([]any, len(r))
		for i, c := range r {
			vals[i] = c
		}
		if err := b.row(sh, out, vals...); err != nil {
			return err
		}
		out++
	}
	return b.style(sh, 1, 1, 1, 1, b.title)
}

func allBlank(r []string) bool {
	for _, c := range r {
		if c != "" {
			return false
		}
	}
	return true
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(model.DateLayout)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
