package excel

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"
	"github.com/theirongolddev/evmboard/internal/validate"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrAlreadyImported is returned when the same workbook content was imported
// before and the import was not forced.
var ErrAlreadyImported = errors.New("workbook already imported")

// resourceSearchSpan is how many columns past the entry's own column the
// fallback search for resource values reaches.
const resourceSearchSpan = 20

// ImportedProject is one sheet's project and progress.
type ImportedProject struct {
	Sheet   string
	Project model.Project
	Entries []model.ProgressEntry
}

// ImportResult is everything read from a template workbook.
type ImportResult struct {
	Projects []ImportedProject
	Warnings []string
	Errors   []string
}

// Names returns the imported project names in sheet order.
func (r *ImportResult) Names() []string {
	out := make([]string, len(r.Projects))
	for i, p := range r.Projects {
		out[i] = p.Project.Name
	}
	return out
}

// Entries returns the number of progress entries read.
func (r *ImportResult) Entries() int {
	n := 0
	for _, p := range r.Projects {
		n += len(p.Entries)
	}
	return n
}

func (r *ImportResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// grid gives 1-based access to a sheet read both raw and as displayed.
type grid struct {
	raw, shown [][]string
}

func (g grid) raw1(row, col int) string {
	return cellAt(g.raw, row, col)
}

func (g grid) width(row int) int {
	if row-1 < len(g.raw) {
		return len(g.raw[row-1])
	}
	return 0
}

func cellAt(rows [][]string, row, col int) string {
	if row < 1 || row > len(rows) {
		return ""
	}
	r := rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return strings.TrimSpace(r[col-1])
}

// number reads a numeric cell. Percent-formatted cells read as a
// percentage at full precision; text cells typed as "45%" read as shown.
func (g grid) number(row, col int) (float64, bool) {
	raw := g.raw1(row, col)
	if shown := cellAt(g.shown, row, col); strings.HasSuffix(shown, "%") {
		if !strings.Contains(raw, "%") {
			if v, ok := notes.ParseNumber(raw); ok {
				return fractionPercent(v), true
			}
		}
		return notes.ParseNumber(shown)
	}
	return notes.ParseNumber(raw)
}

// date reads a date cell: an Excel serial or one of the accepted layouts.
func (g grid) date(row, col int) (time.Time, bool) {
	return parseCellDate(g.raw1(row, col))
}

func parseCellDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if d, ok := notes.ParseDate(s); ok {
		return d, true
	}
	if t, err := validate.ParseDate(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// entryDate reads a progress column date. Any positive number is a serial.
func (g grid) entryDate(col int) (time.Time, bool) {
	s := g.raw1(rowDates, col)
	if s == "" {
		return time.Time{}, false
	}
	if v, ok := notes.ParseNumber(s); ok && !strings.Contains(s, "-") && !strings.Contains(s, "/") {
		if v <= 0 {
			return time.Time{}, false
		}
		return notes.SerialToDate(v), true
	}
	return parseCellDate(s)
}

// ParseTemplate reads every sheet of a template workbook. A sheet without a
// project name is skipped with a warning; ParseTemplate fails only when the
// workbook itself cannot be read.
func ParseTemplate(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	res := &ImportResult{}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		res.Errors = append(res.Errors, "workbook has no sheets")
		return res, nil
	}

	for idx, sheet := range sheets {
		raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("sheet %q: %v", sheet, err))
			continue
		}
		shown, err := f.GetRows(sheet)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("sheet %q: %v", sheet, err))
			continue
		}
		if ip, ok := parseSheet(res, sheet, idx, grid{raw: raw, shown: shown}); ok {
			res.Projects = append(res.Projects, ip)
		}
	}

	if len(res.Projects) == 0 && len(res.Errors) == 0 {
		res.Errors = append(res.Errors, "no projects found: each sheet needs a project name in B3")
	}
	return res, nil
}

func parseSheet(res *ImportResult, sheet string, idx int, g grid) (ImportedProject, bool) {
	name := g.raw1(3, 2)
	if _, after, found := strings.Cut(name, ":"); found {
		name = strings.TrimSpace(after)
	}
	if name == "" || name == placeholderName {
		res.warnf("sheet %q skipped: no project name", sheet)
		return ImportedProject{}, false
	}

	code := g.raw1(3, 5)
	if before, _, found := strings.Cut(code, " - "); found {
		code = strings.TrimSpace(before)
	}
	if code == "" {
		code = fmt.Sprintf("P%03d", idx+1)
	}

	p := model.Project{
		Name:           name,
		Code:           code,
		Contractor:     unplaceholder(g.raw1(4, 2), placeholderContractor),
		ProjectManager: unplaceholder(g.raw1(4, 5), placeholderManager),
		DisplayOrder:   idx,
		Description:    "Project ID: " + code,
	}

	for _, d := range []struct {
		dst   *time.Time
		col   int
		label string
	}{{&p.StartDate, 8, "start"}, {&p.EndDate, 11, "end"}} {
		s := g.raw1(3, d.col)
		if s == "" {
			continue
		}
		t, ok := parseCellDate(s)
		if !ok {
			res.warnf("project %q: invalid %s date %q", name, d.label, s)
			continue
		}
		*d.dst = t
	}

	if s := g.raw1(3, 14); s != "" {
		v, ok := notes.ParseNumber(s)
		if !ok || v < 0 {
			res.warnf("project %q: invalid budget %q", name, s)
		} else {
			p.TotalBudget = v
		}
	}

	ip := ImportedProject{Sheet: sheet, Project: p}
	last := g.width(rowDates)
	if last > firstDataCol+MaxDataColumns-1 {
		last = firstDataCol + MaxDataColumns - 1
	}
	for col := firstDataCol; col <= last; col++ {
		d, ok := g.entryDate(col)
		if !ok {
			continue
		}
		if e, ok := readEntry(g, name, d, col); ok {
			ip.Entries = append(ip.Entries, e)
		}
	}
	return ip, true
}

func unplaceholder(s, placeholder string) string {
	if s == placeholder {
		return ""
	}
	return s
}

// readEntry decodes one progress column. Columns whose costs and planned
// percentages are all zero carry no data and are dropped.
func readEntry(g grid, project string, d time.Time, col int) (model.ProgressEntry, bool) {
	rec := notes.Record{Numbers: map[int]float64{}, Dates: map[int]time.Time{}}
	for _, r := range notes.ValueRows {
		v, _ := g.number(sheetRow(r), col)
		rec.Numbers[r] = v
	}

	if rec.Numbers[notes.RowPlannedCost] == 0 &&
		rec.Numbers[notes.RowCumulativeBudget] == 0 &&
		rec.Numbers[notes.RowActual] == 0 &&
		rec.Numbers[notes.RowPlannedPercent] == 0 &&
		rec.Numbers[notes.RowCumulativePct] == 0 {
		return model.ProgressEntry{}, false
	}

	for _, r := range notes.ResourceRows {
		if notes.IsDateRow(r) {
			rd, _ := resourceDate(g, r, col)
			rec.Dates[r] = rd
			continue
		}
		rec.Numbers[r], _ = resourceNumber(g, r, col)
	}

	return model.ProgressEntry{
		Project:           project,
		EntryDate:         d,
		PlannedCompletion: rec.Numbers[notes.RowCumulativePct],
		PlannedCost:       rec.Numbers[notes.RowCumulativeBudget],
		ActualCompletion:  rec.Numbers[notes.RowElapsedPercent],
		ActualCost:        rec.Numbers[notes.RowPlannedCost],
		Notes:             notes.Encode(rec),
	}, true
}

// resourceDate reads a resource date row: the entry's own column, else the
// first date found from column B onward.
func resourceDate(g grid, row, col int) (time.Time, bool) {
	if d, ok := g.date(row, col); ok {
		return d, true
	}
	for c := firstDataCol; c <= col+resourceSearchSpan && c <= g.width(row); c++ {
		if d, ok := g.date(row, c); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// resourceNumber reads a resource count row: the entry's own column when it
// holds a number, else the first positive value from column B onward.
func resourceNumber(g grid, row, col int) (float64, bool) {
	if v, ok := g.number(row, col); ok && v >= 0 {
		return v, true
	}
	for c := firstDataCol; c <= col+resourceSearchSpan && c <= g.width(row); c++ {
		if v, ok := g.number(row, c); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}

// Sink receives imported data. *store.Store satisfies it.
type Sink interface {
	OriginalFileByHash(hash string) (model.OriginalFile, error)
	ClearAll() error
	UpsertProject(p model.Project) (int64, error)
	AddProgressBatch(entries []model.ProgressEntry) error
	SaveOriginalFile(name string, content []byte, projects []string) (model.OriginalFile, error)
}

// Importer loads template workbooks into a Sink, replacing what was there.
type Importer struct {
	Sink Sink
	Hash func([]byte) string
	Log  *zap.Logger
}

// Import parses content and, when it holds at least one project, replaces
// the stored portfolio with it and keeps the workbook. Content identical to
// an earlier import returns ErrAlreadyImported unless force is set.
func (im *Importer) Import(name string, content []byte, force bool) (*ImportResult, error) {
	log := im.Log
	if log == nil {
		log = zap.NewNop()
	}

	if !force && im.Hash != nil {
		if prev, err := im.Sink.OriginalFileByHash(im.Hash(content)); err == nil {
			log.Info("workbook unchanged, skipping import",
				zap.String("file", name),
				zap.String("batch", prev.BatchID),
			)
			return nil, fmt.Errorf("%s (batch %s): %w", name, prev.BatchID, ErrAlreadyImported)
		}
	}

	res, err := ParseTemplate(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	if len(res.Projects) == 0 {
		return res, nil
	}

	if err := im.Sink.ClearAll(); err != nil {
		return nil, fmt.Errorf("clearing previous data: %w", err)
	}
	for _, ip := range res.Projects {
		if _, err := im.Sink.UpsertProject(ip.Project); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("project %q: %v", ip.Project.Name, err))
			continue
		}
		if err := im.Sink.AddProgressBatch(ip.Entries); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("progress for %q: %v", ip.Project.Name, err))
			continue
		}
		log.Debug("project imported",
			zap.String("project", ip.Project.Name),
			zap.String("sheet", ip.Sheet),
			zap.Int("entries", len(ip.Entries)),
		)
	}

	if _, err := im.Sink.SaveOriginalFile(name, content, res.Names()); err != nil {
		res.warnf("workbook imported but not kept: %v", err)
	}
	log.Info("workbook imported",
		zap.String("file", name),
		zap.Int("projects", len(res.Projects)),
		zap.Int("entries", res.Entries()),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

// OriginalSource holds kept workbooks. *store.Store satisfies it.
type OriginalSource interface {
	LatestOriginalFile() (model.OriginalFile, error)
}

// LatestOriginal returns the most recently imported workbook, or
// ErrNoTemplate when none was kept.
func LatestOriginal(src OriginalSource) (model.OriginalFile, error) {
	f, err := src.LatestOriginalFile()
	if err != nil || len(f.Content) == 0 {
		return model.OriginalFile{}, ErrNoTemplate
	}
	return f, nil
}
