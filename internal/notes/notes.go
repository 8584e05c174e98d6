// Package notes encodes workbook row values into the progress notes column.
//
// A notes string is a '|' separated list of "R<row>:<value>" tokens, for
// example "R7:1500|R8:42000|R17:2024-03-07". Row numbers are those of the
// import template, so a value can be traced back to the sheet it came from.
package notes

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Template rows carried in the notes column.
const (
	RowPlannedCost      = 7  // planned cost for the period
	RowCumulativeBudget = 8  // cumulative budgeted cost
	RowPlannedPercent   = 9  // planned percent for the period
	RowCumulativePct    = 10 // cumulative planned percent
	RowElapsedPercent   = 11 // elapsed (actual) percent
	RowElapsedPeriod    = 12 // elapsed period
	RowActual           = 13 // actual cumulative percent
	RowWeeklyDate       = 17
	RowWeeklyManpower   = 18
	RowWeeklyEquipment  = 19
	RowMonthlyDate      = 20
	RowMonthlyManpower  = 21
	RowMonthlyEquipment = 22
)

// ValueRows are the financial and progress rows in template order.
var ValueRows = []int{
	RowPlannedCost, RowCumulativeBudget, RowPlannedPercent, RowCumulativePct,
	RowElapsedPercent, RowElapsedPeriod, RowActual,
}

// ResourceRows are the weekly and monthly resource rows in template order.
var ResourceRows = []int{
	RowWeeklyDate, RowWeeklyManpower, RowWeeklyEquipment,
	RowMonthlyDate, RowMonthlyManpower, RowMonthlyEquipment,
}

// IsDateRow reports whether row holds a date rather than a number.
func IsDateRow(row int) bool {
	return row == RowWeeklyDate || row == RowMonthlyDate
}

// excelEpoch is day zero of the 1900 date system as Excel counts it.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// serialDateFloor separates Excel serial dates (after 2009) from plain counts.
const serialDateFloor = 40000

// maxMagnitude bounds accepted numbers; anything larger is treated as garbage.
const maxMagnitude = 1e15

// Fields holds the raw text of each row found in a notes string.
type Fields map[int]string

// Parse splits a notes string into fields. Malformed tokens are skipped and
// later duplicates win. Parse never fails.
func Parse(s string) Fields {
	f := make(Fields)
	for _, tok := range strings.Split(s, "|") {
		tok = strings.TrimSpace(tok)
		if len(tok) < 3 || (tok[0] != 'R' && tok[0] != 'r') {
			continue
		}
		key, val, ok := strings.Cut(tok[1:], ":")
		if !ok {
			continue
		}
		row, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || row <= 0 {
			continue
		}
		f[row] = strings.TrimSpace(val)
	}
	return f
}

// Number returns the numeric value of row. ok is false when the row is
// absent or its text is not a usable number; placeholder dashes and
// "not available" markers read as zero.
func (f Fields) Number(row int) (float64, bool) {
	raw, found := f[row]
	if !found {
		return 0, false
	}
	return ParseNumber(raw)
}

// Date returns the date held in row, accepting ISO-like strings and Excel
// serial numbers.
func (f Fields) Date(row int) (time.Time, bool) {
	raw, found := f[row]
	if !found {
		return time.Time{}, false
	}
	return ParseDate(raw)
}

// Extract is a shortcut for Parse(s).Number(row).
func Extract(s string, row int) (float64, bool) {
	return Parse(s).Number(row)
}

var emptySymbols = map[string]struct{}{
	"-": {}, "—": {}, "–": {}, "_": {},
	"n/a": {}, "na": {},
	"غير متوفر": {}, "لا يوجد": {}, "فارغ": {},
}

var nullWords = map[string]struct{}{
	"": {}, "null": {}, "none": {}, "nan": {},
}

var digitReplacer = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"٫", ".",
)

var separatorReplacer = strings.NewReplacer(",", "", "٬", "", " ", "", " ", "")

// ParseNumber interprets a cell text as a number using the template rules.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	if _, null := nullWords[lower]; null {
		return 0, false
	}
	if _, empty := emptySymbols[lower]; empty {
		return 0, true
	}

	s = digitReplacer.Replace(s)
	s = separatorReplacer.Replace(s)
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if v > maxMagnitude || v < -maxMagnitude || v != v {
		return 0, false
	}
	return v, true
}

// ParseDate interprets a date cell: "YYYY-MM-DD" prefixes or Excel serials.
// "0" and blank read as no date.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	if _, null := nullWords[lower]; null || s == "0" || s == "0.0" {
		return time.Time{}, false
	}

	if strings.Contains(s, "-") && len(s) >= 10 {
		if t, err := time.Parse(DateLayout, s[:10]); err == nil {
			return t, true
		}
		return time.Time{}, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= serialDateFloor {
		return time.Time{}, false
	}
	return SerialToDate(v), true
}

// SerialToDate converts an Excel serial day number to a date.
func SerialToDate(serial float64) time.Time {
	return excelEpoch.AddDate(0, 0, int(serial))
}

// DateLayout is the date form written into notes.
const DateLayout = "2006-01-02"

// Record is the set of row values written for one progress entry.
// Missing numbers are omitted; missing dates are written as 0.
type Record struct {
	Numbers map[int]float64
	Dates   map[int]time.Time
}

// Encode renders rec as a notes string with rows in ascending order.
func Encode(rec Record) string {
	rows := make([]int, 0, len(rec.Numbers)+len(rec.Dates))
	for r := range rec.Numbers {
		rows = append(rows, r)
	}
	for r := range rec.Dates {
		if _, dup := rec.Numbers[r]; !dup {
			rows = append(rows, r)
		}
	}
	sort.Ints(rows)

	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		var val string
		if d, ok := rec.Dates[r]; ok {
			if d.IsZero() {
				val = "0"
			} else {
				val = d.Format(DateLayout)
			}
		} else {
			val = strconv.FormatFloat(rec.Numbers[r], 'f', -1, 64)
		}
		parts = append(parts, "R"+strconv.Itoa(r)+":"+val)
	}
	return strings.Join(parts, "|")
}
