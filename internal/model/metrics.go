package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Granularity selects the period length of a historical series.
type Granularity string

const (
	ByDay   Granularity = "day"
	ByWeek  Granularity = "week"
	ByMonth Granularity = "month"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case ByDay, ByWeek, ByMonth:
		return true
	default:
		return false
	}
}

// PeriodStats is one entry of a historical series.
type PeriodStats struct {
	Label  string
	Start  time.Time // exclusive for rolling weeks, inclusive otherwise
	End    time.Time // exclusive for days and months, inclusive for rolling weeks
	Budget decimal.Decimal
	Spent  decimal.Decimal
}

// CategoryBudget compares one category's forecasts with what was spent.
type CategoryBudget struct {
	Category      Category
	WeeklyBudget  decimal.Decimal
	MonthlyBudget decimal.Decimal
	WeeklySpent   decimal.Decimal
	MonthlySpent  decimal.Decimal
}

// WindowTotals is the forecast-vs-actual summary of one time window.
type WindowTotals struct {
	Budget     decimal.Decimal
	Spent      decimal.Decimal
	ByCategory map[string]decimal.Decimal
}

// Remaining is what is left of the budget; negative when overspent.
func (w WindowTotals) Remaining() decimal.Decimal {
	return w.Budget.Sub(w.Spent)
}

// UsedFraction is spent/budget, 0 when there is no budget.
func (w WindowTotals) UsedFraction() float64 {
	if !w.Budget.IsPositive() {
		return 0
	}
	return w.Spent.Div(w.Budget).InexactFloat64()
}

// Overview holds the current-month and current-week comparisons.
type Overview struct {
	At         time.Time
	Month      WindowTotals
	Week       WindowTotals
	Categories []CategoryBudget
}
