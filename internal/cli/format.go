// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/expplan/internal/model"
)

// FormatMoney formats an amount with the currency's symbol, thousands
// separators and two decimals. e.g., 1234.5 EUR -> "€1,234.50"
func FormatMoney(d decimal.Decimal, currency string) string {
	sym := model.CurrencySymbol(currency)
	if d.IsNegative() {
		return "-" + sym + formatAmount(d.Neg())
	}
	return sym + formatAmount(d)
}

func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return s
	}
	return FormatNumber(n) + "." + frac
}

// FormatRemaining describes what is left of a budget.
// e.g., "$12.00 left" or "$3.50 over"
func FormatRemaining(budget, spent decimal.Decimal, currency string) string {
	left := budget.Sub(spent)
	if left.IsNegative() {
		return FormatMoney(left.Neg(), currency) + " over"
	}
	return FormatMoney(left, currency) + " left"
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

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatDuration formats a duration coarsely.
// e.g., 3725s -> "1h 2m", 125s -> "2m", 45s -> "45s"
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs <= 0 {
		return "0s"
	}

	days := secs / 86400
	hours := (secs % 86400) / 3600
	mins := (secs % 3600) / 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm", mins)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// FormatAgo formats how long ago t was relative to now, or "never".
func FormatAgo(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return FormatDuration(now.Sub(*t)) + " ago"
}

// FormatMonth returns the English name of a zero-based month index.
func FormatMonth(idx int) string {
	if idx < 0 || idx > 11 {
		return "???"
	}
	return time.Month(idx + 1).String()
}

// FormatBytes formats a byte count with binary units.
func FormatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
