package ledger

import (
	"time"

	"github.com/theirongolddev/expplan/internal/model"
	"github.com/theirongolddev/expplan/internal/pipeline"
)

// CurrentMonthTotals compares this calendar month's spending with the
// monthly budget.
func (l *Ledger) CurrentMonthTotals(now time.Time) model.WindowTotals {
	s := l.current()
	return pipeline.Overview(s.Categories, s.Expenses, now).Month
}

// CurrentWeekTotals compares the rolling week's spending with the weekly
// budget.
func (l *Ledger) CurrentWeekTotals(now time.Time) model.WindowTotals {
	s := l.current()
	return pipeline.Overview(s.Categories, s.Expenses, now).Week
}

// Overview returns both windows plus per-category rows.
func (l *Ledger) Overview(now time.Time) model.Overview {
	s := l.current()
	return pipeline.Overview(s.Categories, s.Expenses, now)
}

// HistoricalSeries returns count periods of the given granularity, most
// recent first.
func (l *Ledger) HistoricalSeries(g model.Granularity, count int, now time.Time) ([]model.PeriodStats, error) {
	if !g.Valid() {
		return nil, model.NewValidationError("granularity", "must be one of day, week, month")
	}
	if count <= 0 {
		return nil, model.NewValidationError("count", "must be positive")
	}
	s := l.current()
	return pipeline.HistoricalSeries(s.Categories, s.Expenses, g, count, now), nil
}

// GroupedHistory buckets every expense by year and month.
func (l *Ledger) GroupedHistory() pipeline.YearMonthGroups {
	return pipeline.GroupByYearMonth(l.current().Expenses)
}
