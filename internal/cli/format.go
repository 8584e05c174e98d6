// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/money"
)

// Currency is the ISO code used by FormatMoney. The root command sets it
// from the config.
var Currency = money.DefaultCurrency

// FormatCount formats a count with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M", 1234567890 -> "1.2B"
func FormatCount(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatMoney formats an amount in the configured currency.
func FormatMoney(v float64) string {
	return money.Format(v, Currency)
}

// FormatMoneyCompact formats an amount with a K/M/B suffix.
func FormatMoneyCompact(v float64) string {
	return money.Compact(v, Currency)
}

// FormatDelta formats a variance with an explicit sign.
func FormatDelta(v float64) string {
	if v > 0 {
		return "+" + FormatMoney(v)
	}
	return FormatMoney(v)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a value already expressed in percent (0-100).
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatFraction formats a 0-1 fraction as a percentage string.
func FormatFraction(f float64) string {
	return FormatPercent(f * 100)
}

// FormatIndex formats a performance index such as CPI or SPI.
func FormatIndex(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// FormatFileSize formats a byte count as B, KB, MB or GB.
func FormatFileSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	size := float64(n)
	for _, suffix := range []string{"KB", "MB", "GB"} {
		size /= unit
		if size < unit || suffix == "GB" {
			return fmt.Sprintf("%.1f %s", size, suffix)
		}
	}
	return ""
}

// FormatDate formats a date as YYYY-MM-DD, or "-" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// FormatDays formats a day count, e.g. 400 -> "1y 1m 5d".
func FormatDays(days int) string {
	if days <= 0 {
		return "0d"
	}
	y, rest := days/365, days%365
	m, d := rest/30, rest%30

	var parts []string
	if y > 0 {
		parts = append(parts, fmt.Sprintf("%dy", y))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if d > 0 {
		parts = append(parts, fmt.Sprintf("%dd", d))
	}
	return strings.Join(parts, " ")
}
