// Package forecast projects a category's target onto weeks and months.
package forecast

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/expplan/internal/model"
)

var (
	// DaysPerMonth is the flat month length used for daily targets.
	DaysPerMonth = decimal.NewFromInt(30)
	// DaysPerWeek converts daily targets to weeks.
	DaysPerWeek = decimal.NewFromInt(7)
	// WeeksPerMonth approximates 365/12/7.
	WeeksPerMonth = decimal.RequireFromString("4.33")
)

// MonthlyForecast returns the category's projected spend per month.
func MonthlyForecast(c model.Category) decimal.Decimal {
	switch c.Frequency {
	case model.Daily:
		return c.Target.Mul(DaysPerMonth)
	case model.Weekly:
		return c.Target.Mul(WeeksPerMonth)
	default:
		return c.Target
	}
}

// WeeklyForecast returns the category's projected spend per week.
func WeeklyForecast(c model.Category) decimal.Decimal {
	switch c.Frequency {
	case model.Daily:
		return c.Target.Mul(DaysPerWeek)
	case model.Monthly:
		return c.Target.Div(WeeksPerMonth)
	default:
		return c.Target
	}
}

// TotalMonthlyBudget sums MonthlyForecast over all categories.
func TotalMonthlyBudget(cats []model.Category) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cats {
		total = total.Add(MonthlyForecast(c))
	}
	return total
}

// TotalWeeklyBudget sums WeeklyForecast over all categories.
func TotalWeeklyBudget(cats []model.Category) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cats {
		total = total.Add(WeeklyForecast(c))
	}
	return total
}
