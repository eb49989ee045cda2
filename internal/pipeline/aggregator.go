// Package pipeline aggregates expenses into time windows and compares them with forecasts.
package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/expplan/internal/forecast"
	"github.com/theirongolddev/expplan/internal/model"
)

// Week is the length of the rolling week window.
const Week = 7 * 24 * time.Hour

// CurrentMonthExpenses returns expenses dated in now's calendar month and year.
func CurrentMonthExpenses(expenses []model.Expense, now time.Time) []model.Expense {
	y, m, _ := now.Date()
	var out []model.Expense
	for _, e := range expenses {
		if e.Date.Year == y && e.Date.Month == m {
			out = append(out, e)
		}
	}
	return out
}

// CurrentWeekExpenses returns expenses in the rolling window (now-7d, now].
// Each date counts as local midnight in now's location.
func CurrentWeekExpenses(expenses []model.Expense, now time.Time) []model.Expense {
	return FilterWindow(expenses, now.Add(-Week), now)
}

// FilterWindow returns expenses whose midnight falls in (after, until].
func FilterWindow(expenses []model.Expense, after, until time.Time) []model.Expense {
	loc := until.Location()
	var out []model.Expense
	for _, e := range expenses {
		t := e.Date.In(loc)
		if t.After(after) && !t.After(until) {
			out = append(out, e)
		}
	}
	return out
}

// CategoryTotals sums amounts per category id. Categories with no
// expenses are absent from the map.
func CategoryTotals(expenses []model.Expense) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		totals[e.CategoryID] = totals[e.CategoryID].Add(e.Amount)
	}
	return totals
}

// SumTotals adds up a totals map.
func SumTotals(totals map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range totals {
		sum = sum.Add(v)
	}
	return sum
}

func sumAmounts(expenses []model.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range expenses {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// HistoricalSeries returns count periods ending at now, most recent first.
// Budgets use the current targets for every period.
func HistoricalSeries(cats []model.Category, expenses []model.Expense, g model.Granularity, count int, now time.Time) []model.PeriodStats {
	if count <= 0 {
		return nil
	}
	loc := now.Location()
	monthly := forecast.TotalMonthlyBudget(cats)
	series := make([]model.PeriodStats, 0, count)

	switch g {
	case model.ByDay:
		budget := monthly.Div(forecast.DaysPerMonth)
		today := model.DateOf(now)
		spent := make(map[model.Date]decimal.Decimal)
		for _, e := range expenses {
			spent[e.Date] = spent[e.Date].Add(e.Amount)
		}
		for i := 0; i < count; i++ {
			d := today.AddDays(-i)
			start := d.In(loc)
			series = append(series, model.PeriodStats{
				Label:  start.Format("Mon Jan 2"),
				Start:  start,
				End:    d.AddDays(1).In(loc),
				Budget: budget,
				Spent:  spent[d],
			})
		}

	case model.ByWeek:
		budget := forecast.TotalWeeklyBudget(cats)
		for i := 0; i < count; i++ {
			end := now.Add(-time.Duration(i) * Week)
			start := end.Add(-Week)
			series = append(series, model.PeriodStats{
				Label:  fmt.Sprintf("%s - %s", start.Add(24*time.Hour).Format("Jan 2"), end.Format("Jan 2")),
				Start:  start,
				End:    end,
				Budget: budget,
				Spent:  sumAmounts(FilterWindow(expenses, start, end)),
			})
		}

	case model.ByMonth:
		type ym struct {
			y int
			m time.Month
		}
		spent := make(map[ym]decimal.Decimal)
		for _, e := range expenses {
			k := ym{e.Date.Year, e.Date.Month}
			spent[k] = spent[k].Add(e.Amount)
		}
		y, m, _ := now.Date()
		for i := 0; i < count; i++ {
			start := time.Date(y, m-time.Month(i), 1, 0, 0, 0, 0, loc)
			series = append(series, model.PeriodStats{
				Label:  start.Format("Jan 2006"),
				Start:  start,
				End:    start.AddDate(0, 1, 0),
				Budget: monthly,
				Spent:  spent[ym{start.Year(), start.Month()}],
			})
		}
	}
	return series
}

// YearMonthGroups maps year to month index (0-11) to expenses in input order.
type YearMonthGroups map[int]map[int][]model.Expense

// GroupByYearMonth buckets expenses by their date's year and zero-based month.
func GroupByYearMonth(expenses []model.Expense) YearMonthGroups {
	groups := make(YearMonthGroups)
	for _, e := range expenses {
		months, ok := groups[e.Date.Year]
		if !ok {
			months = make(map[int][]model.Expense)
			groups[e.Date.Year] = months
		}
		idx := int(e.Date.Month) - 1
		months[idx] = append(months[idx], e)
	}
	return groups
}

// SortedYears returns the years present, most recent first.
func (g YearMonthGroups) SortedYears() []int {
	years := make([]int, 0, len(g))
	for y := range g {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// SortedMonths returns the month indices present in year, most recent first.
func (g YearMonthGroups) SortedMonths(year int) []int {
	months := make([]int, 0, len(g[year]))
	for m := range g[year] {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(months)))
	return months
}

// Overview computes the current month and rolling week totals and a
// per-category budget comparison.
func Overview(cats []model.Category, expenses []model.Expense, now time.Time) model.Overview {
	monthTotals := CategoryTotals(CurrentMonthExpenses(expenses, now))
	weekTotals := CategoryTotals(CurrentWeekExpenses(expenses, now))

	ov := model.Overview{
		At: now,
		Month: model.WindowTotals{
			Budget:     forecast.TotalMonthlyBudget(cats),
			Spent:      SumTotals(monthTotals),
			ByCategory: monthTotals,
		},
		Week: model.WindowTotals{
			Budget:     forecast.TotalWeeklyBudget(cats),
			Spent:      SumTotals(weekTotals),
			ByCategory: weekTotals,
		},
		Categories: make([]model.CategoryBudget, 0, len(cats)),
	}
	for _, c := range cats {
		ov.Categories = append(ov.Categories, model.CategoryBudget{
			Category:      c,
			WeeklyBudget:  forecast.WeeklyForecast(c),
			MonthlyBudget: forecast.MonthlyForecast(c),
			WeeklySpent:   weekTotals[c.ID],
			MonthlySpent:  monthTotals[c.ID],
		})
	}
	return ov
}
