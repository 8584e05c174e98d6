package excel

import (
	"errors"

	"github.com/xuri/excelize/v2"
)

// Format selects the number format of a column or cell.
type Format int

const (
	Text Format = iota
	Money
	Percent // value is a percentage in [0, 100]
	Index
	Date
)

// Cell overrides the column format for a single value.
type Cell struct {
	Value  any
	Format Format
}

// Column describes one table column. Width zero keeps Excel's default.
type Column struct {
	Header string
	Format Format
	Width  float64
}

// Table is a titled block of rows. Tables sharing a Sheet are stacked with
// a blank row between them.
type Table struct {
	Sheet    string
	Title    string
	Subtitle string
	Columns  []Column
	Rows     [][]any
	// Total, when set, is written as a bold last row.
	Total []any
}

// Workbook collects tables into one xlsx file.
type Workbook struct {
	b    *book
	next map[string]int
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() (*Workbook, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}
	return &Workbook{b: b, next: make(map[string]int)}, nil
}

// Add writes t below whatever its sheet already holds.
func (w *Workbook) Add(t Table) error {
	name := SheetName(t.Sheet)
	row, ok := w.next[name]
	if !ok {
		var err error
		if name, err = w.b.sheet(name); err != nil {
			return err
		}
		row = 1
	}

	if t.Title != "" {
		if err := w.b.row(name, row, t.Title); err != nil {
			return err
		}
		if err := w.b.style(name, 1, row, 1, row, w.b.title); err != nil {
			return err
		}
		row++
	}
	if t.Subtitle != "" {
		if err := w.b.row(name, row, t.Subtitle); err != nil {
			return err
		}
		row++
	}
	if t.Title != "" || t.Subtitle != "" {
		row++
	}

	headers := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	if len(headers) > 0 {
		if err := w.b.row(name, row, headers...); err != nil {
			return err
		}
		if err := w.b.style(name, 1, row, len(headers), row, w.b.header); err != nil {
			return err
		}
		row++
	}

	for _, r := range t.Rows {
		if err := w.writeRow(name, row, t.Columns, r); err != nil {
			return err
		}
		row++
	}
	if t.Total != nil {
		if err := w.writeRow(name, row, t.Columns, t.Total); err != nil {
			return err
		}
		if err := w.b.style(name, 1, row, 1, row, w.b.header); err != nil {
			return err
		}
		row++
	}

	for i, c := range t.Columns {
		if c.Width == 0 {
			continue
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.b.f.SetColWidth(name, col, col, c.Width); err != nil {
			return err
		}
	}

	w.next[name] = row + 1
	return nil
}

func (w *Workbook) writeRow(sheet string, row int, cols []Column, values []any) error {
	for i, v := range values {
		format := Text
		if i < len(cols) {
			format = cols[i].Format
		}
		if c, ok := v.(Cell); ok {
			v, format = c.Value, c.Format
		}
		if format == Percent {
			if f, ok := v.(float64); ok {
				v = f / 100
			}
		}
		if err := w.b.set(sheet, i+1, row, v); err != nil {
			return err
		}
		if id := w.styleFor(format); id != 0 {
			if err := w.b.style(sheet, i+1, row, i+1, row, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Workbook) styleFor(f Format) int {
	switch f {
	case Money:
		return w.b.money
	case Percent:
		return w.b.percent
	case Index:
		return w.b.index
	case Date:
		return w.b.date
	}
	return 0
}

// Bytes serializes the workbook. The Workbook must not be used afterwards.
func (w *Workbook) Bytes() ([]byte, error) {
	if len(w.next) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return w.b.bytes()
}
