// Package validate checks and normalizes user-entered project data.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrEmptyName     = errors.New("project name is required")
	ErrNameTooLong   = errors.New("project name is too long (max 200 characters)")
	ErrNameChars     = errors.New(`project name contains invalid characters (< > : " | ? *)`)
	ErrBudgetInvalid = errors.New("budget must be a number")
	ErrBudgetRange   = errors.New("budget must be greater than zero and at most 1e12")
	ErrDateRange     = errors.New("end date must not be before start date")
)

const (
	maxNameLen = 200
	maxBudget  = 1e12
)

// ProjectName checks a project name for emptiness, length and reserved characters.
func ProjectName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return ErrNameTooLong
	}
	if strings.ContainsAny(name, `<>:"|?*`) {
		return ErrNameChars
	}
	return nil
}

// Budget checks that a budget is positive and plausible.
func Budget(v float64) error {
	if v <= 0 || v > maxBudget {
		return ErrBudgetRange
	}
	return nil
}

// ParseBudget parses user budget text, accepting Arabic-Indic digits and
// thousands separators.
func ParseBudget(s string) (float64, error) {
	v, err := ParseNumber(s)
	if err != nil {
		return 0, ErrBudgetInvalid
	}
	if err := Budget(v); err != nil {
		return 0, err
	}
	return v, nil
}

// DateRange checks that end does not precede start. Zero dates are allowed.
func DateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	if end.Before(start) {
		return ErrDateRange
	}
	return nil
}

var arabicDigits = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

var nonNumeric = regexp.MustCompile(`[^\d.\-]`)

// ParseNumber converts Arabic-Indic digits and drops every character that
// cannot be part of a decimal number before parsing.
func ParseNumber(s string) (float64, error) {
	cleaned := nonNumeric.ReplaceAllString(arabicDigits.Replace(s), "")
	if cleaned == "" {
		return 0, fmt.Errorf("no number in %q", s)
	}
	return strconv.ParseFloat(cleaned, 64)
}

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// CleanText collapses runs of whitespace and strips angle brackets.
func CleanText(s string) string {
	return strings.Join(strings.Fields(angleBrackets.Replace(s)), " ")
}

// Duration is a project span expressed in several units.
type Duration struct {
	Days   int
	Weeks  float64
	Months float64
	Years  float64
}

// DurationBetween returns the span from start to end. Inverted or unset
// ranges produce a zero Duration.
func DurationBetween(start, end time.Time) Duration {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return Duration{}
	}
	days := int(end.Sub(start).Hours() / 24)
	return Duration{
		Days:   days,
		Weeks:  float64(days) / 7,
		Months: float64(days) / 30,
		Years:  float64(days) / 365,
	}
}

// DateLayouts are the textual date forms accepted from users and workbooks,
// tried in order.
var DateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006", "01/02/2006"}

// ParseDate parses s with the first matching layout in DateLayouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
