// Package money formats currency amounts with exact decimal rounding.
package money

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency code is configured.
const DefaultCurrency = "SAR"

// Amount is a monetary value in major units.
type Amount struct {
	value decimal.Decimal
	cur   string
}

// New returns v in currency cur. An empty code means DefaultCurrency.
func New(v float64, cur string) Amount {
	if cur == "" {
		cur = DefaultCurrency
	}
	return Amount{value: decimal.NewFromFloat(v), cur: cur}
}

// Sum adds values exactly and returns the total in cur.
func Sum(values []float64, cur string) Amount {
	total := New(0, cur)
	for _, v := range values {
		total.value = total.value.Add(decimal.NewFromFloat(v))
	}
	return total
}

func (a Amount) currency() money.Currency {
	// money.New never returns a nil currency, unlike money.GetCurrency
	return *money.New(0, a.cur).Currency()
}

// minor returns the amount rounded to the currency's minor unit.
func (a Amount) minor(cur money.Currency) int64 {
	return a.value.Shift(int32(cur.Fraction)).Round(0).IntPart()
}

// String formats the amount with the currency symbol, e.g. "$1,234.50".
func (a Amount) String() string {
	cur := a.currency()
	return cur.Formatter().Format(a.minor(cur))
}

// Code formats the amount behind its ISO code, e.g. "SAR 1,234.50".
func (a Amount) Code() string {
	cur := a.currency()
	f := money.NewFormatter(cur.Fraction, cur.Decimal, cur.Thousand, cur.Code, "$ 1")
	return f.Format(a.minor(cur))
}

// Float returns the amount rounded to the currency's minor unit.
func (a Amount) Float() float64 {
	return a.value.Round(int32(a.currency().Fraction)).InexactFloat64()
}

// Format is New(v, cur).Code().
func Format(v float64, cur string) string {
	return New(v, cur).Code()
}

// Compact formats large amounts with a K, M or B suffix, e.g. "SAR 1.25M".
func Compact(v float64, cur string) string {
	if cur == "" {
		cur = DefaultCurrency
	}
	d := decimal.NewFromFloat(v)
	abs := d.Abs()
	var suffix string
	switch {
	case abs.GreaterThanOrEqual(decimal.New(1, 9)):
		d, suffix = d.Shift(-9), "B"
	case abs.GreaterThanOrEqual(decimal.New(1, 6)):
		d, suffix = d.Shift(-6), "M"
	case abs.GreaterThanOrEqual(decimal.New(1, 3)):
		d, suffix = d.Shift(-3), "K"
	default:
		return Format(v, cur)
	}
	return cur + " " + d.Round(2).StringFixed(2) + suffix
}

// Known reports whether code is an ISO 4217 currency.
func Known(code string) bool {
	return money.GetCurrency(strings.ToUpper(strings.TrimSpace(code))) != nil
}
