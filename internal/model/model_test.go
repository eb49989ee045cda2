package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryInputValidate(t *testing.T) {
	good := CategoryInput{Name: "Groceries", Target: decimal.NewFromInt(100), Frequency: Weekly}
	require.NoError(t, good.Validate())

	cases := []struct {
		name  string
		in    CategoryInput
		field string
	}{
		{"empty name", CategoryInput{Name: "", Target: decimal.NewFromInt(1), Frequency: Daily}, "name"},
		{"blank name", CategoryInput{Name: "   ", Target: decimal.NewFromInt(1), Frequency: Daily}, "name"},
		{"zero target", CategoryInput{Name: "a", Target: decimal.Zero, Frequency: Daily}, "target"},
		{"negative target", CategoryInput{Name: "a", Target: decimal.NewFromInt(-5), Frequency: Daily}, "target"},
		{"unknown frequency", CategoryInput{Name: "a", Target: decimal.NewFromInt(1), Frequency: "yearly"}, "frequency"},
		{"missing frequency", CategoryInput{Name: "a", Target: decimal.NewFromInt(1)}, "frequency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestExpenseInputValidate(t *testing.T) {
	require.NoError(t, ExpenseInput{CategoryID: "c1", Amount: decimal.RequireFromString("0.01")}.Validate())

	err := ExpenseInput{CategoryID: "c1", Amount: decimal.Zero}.Validate()
	assert.ErrorIs(t, err, ErrValidation)

	err = ExpenseInput{CategoryID: "", Amount: decimal.NewFromInt(3)}.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "categoryId", verr.Field)
}

func TestLongDescriptions(t *testing.T) {
	long := strings.Repeat("x", 501)
	err := ExpenseInput{CategoryID: "c1", Amount: decimal.NewFromInt(1), Description: long}.Validate()
	assert.ErrorIs(t, err, ErrValidation)

	stored := Expense{ID: "e1", CategoryID: "c1", Amount: decimal.NewFromInt(1), Description: long, Date: NewDate(2024, 1, 1)}
	assert.NoError(t, ValidateExpense(stored))
}

func TestValidateSettings(t *testing.T) {
	assert.NoError(t, ValidateSettings(DefaultSettings()))
	assert.NoError(t, ValidateSettings(Settings{Currency: "HRK", UserName: "Ana"}))
	assert.ErrorIs(t, ValidateSettings(Settings{Currency: "XXX"}), ErrValidation)
	assert.ErrorIs(t, ValidateSettings(Settings{}), ErrValidation)
}

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.June, Day: 1}, d)
	assert.Equal(t, "2024-06-01", d.String())

	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-06-01"}`, string(b))

	var back struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back.D)
}

func TestDateUnmarshalAcceptsTimestamps(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2024-06-01T10:30:00.000Z")))
	assert.Equal(t, NewDate(2024, time.June, 1), d)

	assert.Error(t, d.UnmarshalText([]byte("not-a-date")))
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.March, 1)
	assert.Equal(t, NewDate(2024, time.February, 29), d.AddDays(-1))
	assert.True(t, d.AddDays(-1).Before(d))
	assert.False(t, d.Before(d))
	assert.Equal(t, NewDate(2024, time.March, 1), NewDate(2024, time.February, 30))
	assert.Equal(t, -1, d.AddDays(-1).Compare(d))
	assert.Equal(t, 0, d.Compare(NewDate(2024, time.March, 1)))
	assert.Equal(t, 1, NewDate(2025, time.January, 1).Compare(d))
}

func TestStateCloneIsDeep(t *testing.T) {
	now := time.Now()
	s := State{
		Categories: []Category{{ID: "c1", Name: "Food"}},
		Expenses:   []Expense{{ID: "e1", CategoryID: "c1"}},
		Settings:   Settings{Currency: "USD", LastBackup: &now},
	}
	c := s.Clone()
	c.Categories[0].Name = "changed"
	*c.Settings.LastBackup = now.Add(time.Hour)

	assert.Equal(t, "Food", s.Categories[0].Name)
	assert.True(t, s.Settings.LastBackup.Equal(now))
}

func TestStateOrphans(t *testing.T) {
	s := State{
		Categories: []Category{{ID: "c1"}},
		Expenses:   []Expense{{ID: "e1", CategoryID: "c1"}, {ID: "e2", CategoryID: "gone"}},
	}
	orphans := s.Orphans()
	require.Len(t, orphans, 1)
	assert.Equal(t, "e2", orphans[0].ID)
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "€", CurrencySymbol("EUR"))
	assert.Equal(t, "$", CurrencySymbol("nope"))
	assert.Len(t, Currencies(), 41)
}
