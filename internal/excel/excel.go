// Package excel reads and writes the portfolio workbooks: cash-flow, KPI and
// project reports, the per-project data template and its importer.
package excel

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoTemplate is returned when no imported workbook has been kept.
var ErrNoTemplate = errors.New("no original workbook has been imported")

// MaxSheetName is Excel's limit on sheet title length.
const MaxSheetName = 31

const (
	numFmtMoney   = "#,##0.00"
	numFmtPercent = "0.00%"
	numFmtIndex   = "0.000"
	numFmtDate    = "yyyy-mm-dd"
)

// book wraps an excelize file with the styles every export shares.
type book struct {
	f       *excelize.File
	header  int
	title   int
	money   int
	percent int
	index   int
	date    int
	first   bool
}

func newBook() (*book, error) {
	f := excelize.NewFile()
	b := &book{f: f, first: true}

	styles := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&b.header, &excelize.Style{Font: &excelize.Font{Bold: true}}},
		{&b.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}},
		{&b.money, &excelize.Style{CustomNumFmt: strPtr(numFmtMoney)}},
		{&b.percent, &excelize.Style{CustomNumFmt: strPtr(numFmtPercent)}},
		{&b.index, &excelize.Style{CustomNumFmt: strPtr(numFmtIndex)}},
		{&b.date, &excelize.Style{CustomNumFmt: strPtr(numFmtDate)}},
	}
	for _, s := range styles {
		id, err := f.NewStyle(s.style)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("creating style: %w", err)
		}
		*s.dst = id
	}
	return b, nil
}

func strPtr(s string) *string { return &s }

// sheet adds a sheet named name. The first call renames the default sheet.
func (b *book) sheet(name string) (string, error) {
	name = SheetName(name)
	if b.first {
		b.first = false
		if err := b.f.SetSheetName(b.f.GetSheetName(0), name); err != nil {
			return "", fmt.Errorf("naming sheet %q: %w", name, err)
		}
		return name, nil
	}
	if _, err := b.f.NewSheet(name); err != nil {
		return "", fmt.Errorf("adding sheet %q: %w", name, err)
	}
	return name, nil
}

// row writes values starting at column A of row.
func (b *book) row(sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return b.f.SetSheetRow(sheet, cell, &values)
}

// style applies styleID to the rectangle (col1,row1)-(col2,row2).
func (b *book) style(sheet string, col1, row1, col2, row2, styleID int) error {
	from, err := excelize.CoordinatesToCellName(col1, row1)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(col2, row2)
	if err != nil {
		return err
	}
	return b.f.SetCellStyle(sheet, from, to, styleID)
}

func (b *book) set(sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return b.f.SetCellValue(sheet, cell, v)
}

// bytes serializes the workbook and releases it.
func (b *book) bytes() ([]byte, error) {
	defer func() { _ = b.f.Close() }()
	b.f.SetActiveSheet(0)
	buf, err := b.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SheetName makes s a valid, unique-enough sheet title: characters Excel
// rejects are replaced and the result is cut to MaxSheetName runes.
func SheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" {
		s = "Sheet"
	}
	if r := []rune(s); len(r) > MaxSheetName {
		s = string(r[:MaxSheetName])
	}
	return s
}

// percentFraction converts a stored percentage to the fraction Excel's
// percent format expects. Stored completions are always in percent units.
func percentFraction(v float64) float64 {
	return v / 100
}

// fractionPercent is the inverse of percentFraction, rounded to drop the
// binary noise of the division.
func fractionPercent(v float64) float64 {
	return math.Round(v*100*1e9) / 1e9
}
