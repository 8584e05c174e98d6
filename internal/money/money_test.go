package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		v    float64
		cur  string
		want string
	}{
		{1234.5, "SAR", "SAR 1,234.50"},
		{0, "", "SAR 0.00"},
		{-1000, "USD", "USD -1,000.00"},
		{1.005, "SAR", "SAR 1.01"},
		{1234.6, "JPY", "JPY 1,235"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.v, tt.cur), "Format(%v, %q)", tt.v, tt.cur)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "$1,234.50", New(1234.5, "USD").String())
}

func TestSumIsExact(t *testing.T) {
	assert.Equal(t, 0.3, Sum([]float64{0.1, 0.2}, "SAR").Float())
	assert.Equal(t, "SAR 0.30", Sum([]float64{0.1, 0.2}, "").Code())
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "SAR 1.25M", Compact(1_250_000, "SAR"))
	assert.Equal(t, "SAR 2.00B", Compact(2e9, ""))
	assert.Equal(t, "USD -4.50K", Compact(-4500, "USD"))
	assert.Equal(t, "SAR 999.00", Compact(999, "SAR"))
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("SAR"))
	assert.True(t, Known(" usd "))
	assert.False(t, Known("XYZ1"))
	assert.False(t, Known(""))
}
