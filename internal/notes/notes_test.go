package notes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExactRowKeys(t *testing.T) {
	f := Parse("R17:2024-03-07|R7:1500|R8:42,000|R1:9")

	v, ok := f.Number(RowPlannedCost)
	require.True(t, ok)
	assert.Equal(t, 1500.0, v)

	v, ok = f.Number(RowCumulativeBudget)
	require.True(t, ok)
	assert.Equal(t, 42000.0, v)

	_, ok = f.Number(RowActual)
	assert.False(t, ok, "absent row must not match")

	d, ok := f.Date(RowWeeklyDate)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), d)
}

func TestParseSkipsMalformedTokens(t *testing.T) {
	f := Parse("garbage|R:5|Rx:1|R9|R10:55.5|R10:60")
	assert.Len(t, f, 1)
	v, ok := f.Number(RowCumulativePct)
	require.True(t, ok)
	assert.Equal(t, 60.0, v, "later duplicate wins")

	assert.Empty(t, Parse(""))
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"", 0, false},
		{"nan", 0, false},
		{"None", 0, false},
		{"-", 0, true},
		{"N/A", 0, true},
		{"غير متوفر", 0, true},
		{"12.5%", 12.5, true},
		{"1,234,567", 1234567, true},
		{"١٢٣٫٥", 123.5, true},
		{"٣٬٠٠٠", 3000, true},
		{"abc", 0, false},
		{"2e16", 0, false},
		{"-40", -40, true},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("45000")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), d)

	d, ok = ParseDate("2024-01-31 00:00:00")
	require.True(t, ok)
	assert.Equal(t, 2024, d.Year())

	for _, in := range []string{"0", "0.0", "", "nan", "1234", "31/01/2024"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, "ParseDate(%q)", in)
	}
}

func TestEncodeOrdersRowsAndFormatsDates(t *testing.T) {
	s := Encode(Record{
		Numbers: map[int]float64{RowActual: 12.5, RowPlannedCost: 1500, RowWeeklyManpower: 0},
		Dates: map[int]time.Time{
			RowWeeklyDate:  time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
			RowMonthlyDate: {},
		},
	})
	assert.Equal(t, "R7:1500|R13:12.5|R17:2024-03-07|R18:0|R20:0", s)

	f := Parse(s)
	_, ok := f.Date(RowMonthlyDate)
	assert.False(t, ok)
	v, ok := f.Number(RowWeeklyManpower)
	require.True(t, ok)
	assert.Zero(t, v)
}

func TestExtract(t *testing.T) {
	v, ok := Extract("R11:0.35|R12:4", RowElapsedPercent)
	require.True(t, ok)
	assert.InDelta(t, 0.35, v, 1e-9)
}
