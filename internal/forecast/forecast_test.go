package forecast

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/expplan/internal/model"
)

func cat(target string, f model.Frequency) model.Category {
	return model.Category{ID: "c", Name: "c", Target: decimal.RequireFromString(target), Frequency: f}
}

func TestMonthly(t *testing.T) {
	cases := []struct {
		cat  model.Category
		want string
	}{
		{cat("10", model.Daily), "300"},
		{cat("100", model.Weekly), "433"},
		{cat("1200", model.Monthly), "1200"},
		{cat("12.50", model.Weekly), "54.125"},
	}
	for _, tc := range cases {
		got := MonthlyForecast(tc.cat)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("MonthlyForecast(%s %s) = %s, want %s", tc.cat.Target, tc.cat.Frequency, got, tc.want)
		}
	}
}

func TestWeekly(t *testing.T) {
	if got := WeeklyForecast(cat("10", model.Daily)); !got.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("daily weekly = %s, want 70", got)
	}
	if got := WeeklyForecast(cat("100", model.Weekly)); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("weekly weekly = %s, want 100", got)
	}
	m := decimal.NewFromInt(433)
	if got := WeeklyForecast(cat("433", model.Monthly)); !got.Equal(m.Div(WeeksPerMonth)) {
		t.Fatalf("monthly weekly = %s, want %s", got, m.Div(WeeksPerMonth))
	}
	if got := WeeklyForecast(cat("433", model.Monthly)).Round(2); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("433 monthly should be 100.00 a week, got %s", got)
	}
}

func TestGroceriesExample(t *testing.T) {
	c := model.Category{ID: "c1", Name: "Groceries", Target: decimal.NewFromInt(100), Frequency: model.Weekly}
	if got := MonthlyForecast(c).StringFixed(2); got != "433.00" {
		t.Fatalf("monthly = %s, want 433.00", got)
	}
	if got := WeeklyForecast(c).StringFixed(2); got != "100.00" {
		t.Fatalf("weekly = %s, want 100.00", got)
	}
}

func TestTotals(t *testing.T) {
	cats := []model.Category{cat("10", model.Daily), cat("100", model.Weekly), cat("50", model.Monthly)}
	if got := TotalMonthlyBudget(cats); !got.Equal(decimal.RequireFromString("783")) {
		t.Fatalf("TotalMonthlyBudget = %s, want 783", got)
	}
	want := decimal.NewFromInt(170).Add(decimal.NewFromInt(50).Div(WeeksPerMonth))
	if got := TotalWeeklyBudget(cats); !got.Equal(want) {
		t.Fatalf("TotalWeeklyBudget = %s, want %s", got, want)
	}
	if got := TotalMonthlyBudget(nil); !got.IsZero() {
		t.Fatalf("TotalMonthlyBudget(nil) = %s, want 0", got)
	}
}
