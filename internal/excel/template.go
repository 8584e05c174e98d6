package excel

import (
	"fmt"
	"strconv"

	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"
)

// Template layout. Project fields sit in rows 3 and 4; the progress grid
// has one column per entry starting at column B, dates in row 7 and the
// encoded rows R7..R13 in sheet rows 8..14. Resource rows keep their
// numbers: R17..R22 live in sheet rows 17..22.
const (
	MinTemplateSheets = 40
	MaxDataColumns    = 2000

	templateHeader = "Project Management Data Template"

	placeholderName       = "[Enter Project Name]"
	placeholderContractor = "[Enter Contractor Name]"
	placeholderManager    = "[Enter Project Manager]"

	cellName       = "B3"
	cellCode       = "E3"
	cellStart      = "H3"
	cellEnd        = "K3"
	cellBudget     = "N3"
	cellContractor = "B4"
	cellManager    = "E4"

	rowDates      = 7
	firstDataCol  = 2
	valueRowShift = 1 // sheet row = notes row + 1 for R7..R13
)

// valueHeaders labels sheet rows 8..14.
var valueHeaders = []string{
	"Planned Total Cost",
	"Cum Budgeted Total Cost",
	"Planned % daily",
	"Cum % daily",
	"The elapsed period %",
	"The elapsed period",
	"Actual",
}

// resourceHeaders labels sheet rows 17..22.
var resourceHeaders = []string{
	"Date",
	"Budgeted Labor Units Weekly",
	"Budgeted Nonlabor Units Weekly",
	"Date",
	"Budgeted Labor Units Monthly",
	"Budgeted Nonlabor Units Monthly",
}

// sheetRow returns the sheet row holding notes row r.
func sheetRow(r int) int {
	if r >= notes.RowWeeklyDate {
		return r
	}
	return r + valueRowShift
}

// templateSheetName is "<n>.<code>", trimmed to fit Excel's limit.
func templateSheetName(n int, code string) string {
	prefix := strconv.Itoa(n) + "."
	code = templateCode(code, n)
	if r := []rune(code); len(prefix)+len(r) > MaxSheetName {
		code = string(r[:MaxSheetName-len(prefix)])
	}
	return SheetName(prefix + code)
}

// templateCode is the code written to E3: the project's own, or P<n>.
func templateCode(code string, n int) string {
	if code != "" {
		return code
	}
	return fmt.Sprintf("P%03d", n)
}

// ProjectTemplate writes one sheet per project, padded with blank sheets to
// MinTemplateSheets. Existing progress fills the grid from column B.
func ProjectTemplate(projects []model.Project, progress map[string][]model.ProgressEntry) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}

	n := len(projects)
	if n < MinTemplateSheets {
		n = MinTemplateSheets
	}
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		var p *model.Project
		code := ""
		if i < len(projects) {
			p = &projects[i]
			code = p.Code
		}
		name := templateSheetName(i+1, code)
		for seen[name] {
			name = templateSheetName(i+1, fmt.Sprintf("P%03d", i+1))
			if seen[name] {
				name = SheetName(fmt.Sprintf("%d.", i+1))
			}
		}
		seen[name] = true

		sh, err := b.sheet(name)
		if err != nil {
			return nil, err
		}
		if err := writeTemplateSheet(b, sh, i+1, p, progress); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sh, err)
		}
	}
	return b.bytes()
}

type cellValue struct {
	cell string
	v    any
}

func writeTemplateSheet(b *book, sh string, n int, p *model.Project, progress map[string][]model.ProgressEntry) error {
	labels := map[string]string{
		"A1": templateHeader,
		"A3": "Project Name:",
		"D3": "Project ID:",
		"G3": "Start Date:",
		"J3": "End Date:",
		"M3": "Planned Total Cost:",
		"A4": "Contractor:",
		"D4": "Project Manager:",
		"A7": "Dates",
	}
	for cell, v := range labels {
		if err := b.f.SetCellValue(sh, cell, v); err != nil {
			return err
		}
	}
	for i, h := range valueHeaders {
		if err := b.set(sh, 1, rowDates+1+i, h); err != nil {
			return err
		}
	}
	for i, h := range resourceHeaders {
		if err := b.set(sh, 1, notes.RowWeeklyDate+i, h); err != nil {
			return err
		}
	}

	if p == nil {
		if err := firstErr(
			b.f.SetCellValue(sh, cellName, placeholderName),
			b.f.SetCellValue(sh, cellCode, templateCode("", n)),
			b.f.SetCellValue(sh, cellContractor, placeholderContractor),
			b.f.SetCellValue(sh, cellManager, placeholderManager),
		); err != nil {
			return err
		}
	} else {
		fields := []cellValue{
			{cellName, p.Name},
			{cellCode, templateCode(p.Code, n)},
			{cellBudget, p.TotalBudget},
			{cellContractor, p.Contractor},
			{cellManager, p.ProjectManager},
		}
		if !p.StartDate.IsZero() {
			fields = append(fields, cellValue{cellStart, p.StartDate.Format(model.DateLayout)})
		}
		if !p.EndDate.IsZero() {
			fields = append(fields, cellValue{cellEnd, p.EndDate.Format(model.DateLayout)})
		}
		for _, f := range fields {
			if err := b.f.SetCellValue(sh, f.cell, f.v); err != nil {
				return err
			}
		}
		if err := writeTemplateGrid(b, sh, progress[p.Name]); err != nil {
			return err
		}
	}

	return firstErr(
		b.f.MergeCell(sh, "A1", "O1"),
		b.style(sh, 1, 1, 1, 1, b.title),
		b.style(sh, 1, 3, 1, 4, b.header),
		b.style(sh, 1, rowDates, 1, notes.RowMonthlyEquipment, b.header),
		b.f.SetColWidth(sh, "A", "A", 32),
	)
}

func writeTemplateGrid(b *book, sh string, entries []model.ProgressEntry) error {
	sorted := evm.SortByDate(entries)
	if len(sorted) > MaxDataColumns {
		sorted = sorted[:MaxDataColumns]
	}
	if len(sorted) == 0 {
		return nil
	}

	for i, e := range sorted {
		col := firstDataCol + i
		if err := b.set(sh, col, rowDates, e.EntryDate); err != nil {
			return err
		}
		f := notes.Parse(e.Notes)
		for _, r := range notes.ValueRows {
			v, _ := f.Number(r)
			if r == notes.RowCumulativePct || r == notes.RowElapsedPercent {
				v = percentFraction(v)
			}
			if err := b.set(sh, col, sheetRow(r), v); err != nil {
				return err
			}
		}
		for _, r := range notes.ResourceRows {
			if notes.IsDateRow(r) {
				if d, ok := f.Date(r); ok {
					if err := b.set(sh, col, sheetRow(r), d); err != nil {
						return err
					}
				}
				continue
			}
			if v, ok := f.Number(r); ok {
				if err := b.set(sh, col, sheetRow(r), v); err != nil {
					return err
				}
			}
		}
	}

	lastCol := firstDataCol + len(sorted) - 1
	pctRows := []int{sheetRow(notes.RowCumulativePct), sheetRow(notes.RowElapsedPercent)}
	return firstErr(
		b.style(sh, firstDataCol, rowDates, lastCol, rowDates, b.date),
		b.style(sh, firstDataCol, sheetRow(notes.RowPlannedCost), lastCol, sheetRow(notes.RowPlannedPercent), b.money),
		b.style(sh, firstDataCol, pctRows[0], lastCol, pctRows[1], b.percent),
		b.style(sh, firstDataCol, sheetRow(notes.RowElapsedPeriod), lastCol, sheetRow(notes.RowActual), b.money),
		b.style(sh, firstDataCol, sheetRow(notes.RowWeeklyDate), lastCol, sheetRow(notes.RowWeeklyDate), b.date),
		b.style(sh, firstDataCol, sheetRow(notes.RowMonthlyDate), lastCol, sheetRow(notes.RowMonthlyDate), b.date),
	)
}
