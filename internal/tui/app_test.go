package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/model"
	"github.com/theirongolddev/expplan/internal/tui/components"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeLedger struct {
	state     model.State
	sub       func(ledger.Event)
	added     []model.ExpenseInput
	backups   int
	backupErr error
}

func (f *fakeLedger) State() model.State    { return f.state.Clone() }
func (f *fakeLedger) Status() ledger.Status { return ledger.Status{Revision: 1} }

func (f *fakeLedger) Subscribe(fn func(ledger.Event)) func() {
	f.sub = fn
	return func() { f.sub = nil }
}

func (f *fakeLedger) AddExpense(_ context.Context, in model.ExpenseInput) (model.Expense, error) {
	f.added = append(f.added, in)
	return model.Expense{ID: "new", CategoryID: in.CategoryID, Amount: in.Amount}, nil
}

func (f *fakeLedger) PerformBackup(context.Context) (model.Snapshot, error) {
	if f.backupErr != nil {
		return model.Snapshot{}, f.backupErr
	}
	f.backups++
	return model.Snapshot{ID: "0123456789abcdef", Timestamp: testNow, Version: 1}, nil
}

func (f *fakeLedger) Snapshots(context.Context) ([]model.Snapshot, error) {
	return nil, nil
}

func sampleState() model.State {
	st := model.EmptyState()
	st.Settings.UserName = "Sam"
	st.Categories = []model.Category{
		{ID: "food", Name: "Food", Target: decimal.NewFromInt(70), Frequency: model.Weekly},
		{ID: "rent", Name: "Rent", Target: decimal.NewFromInt(900), Frequency: model.Monthly},
	}
	st.Expenses = []model.Expense{
		{ID: "e1", CategoryID: "food", Amount: decimal.RequireFromString("12.5"), Description: "groceries", Date: model.NewDate(2026, 3, 9)},
		{ID: "e2", CategoryID: "rent", Amount: decimal.NewFromInt(900), Date: model.NewDate(2026, 2, 1)},
		{ID: "e3", CategoryID: "food", Amount: decimal.NewFromInt(8), Description: "lunch", Date: model.NewDate(2025, 12, 24)},
	}
	return st
}

func newApp(t *testing.T, f *fakeLedger) App {
	t.Helper()
	a := NewApp(f, func() time.Time { return testNow })
	t.Cleanup(a.Close)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(App)
}

func press(t *testing.T, a App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ := a.Update(msg)
		a = m.(App)
	}
	return a
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			if got := a.tabAtX(pos + w/2); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, pos+w/2, got, i)
			}
			pos += w + 1
		}
		if got := a.tabAtX(pos + 5); got != -1 {
			t.Fatalf("x past the last tab -> %d, want -1", got)
		}
	}
}

func TestKeysSwitchTabs(t *testing.T) {
	a := newApp(t, &fakeLedger{state: sampleState()})

	a = press(t, a, "h")
	assert.Equal(t, tabHistory, a.activeTab)
	a = press(t, a, "w", "+", "+")
	assert.Equal(t, model.ByWeek, a.granularity)
	assert.Equal(t, 9, a.historyCount)
	a = press(t, a, "-", "m")
	assert.Equal(t, model.ByMonth, a.granularity)
	assert.Equal(t, 8, a.historyCount)

	a = press(t, a, "tab")
	assert.Equal(t, tabBrowse, a.activeTab)
	a = press(t, a, "s")
	assert.Equal(t, tabSnapshots, a.activeTab)
	a = press(t, a, "o")
	assert.Equal(t, tabOverview, a.activeTab)
}

func TestBrowseNavigationIsClamped(t *testing.T) {
	a := newApp(t, &fakeLedger{state: sampleState()})
	a = press(t, a, "b")

	// 2026 has March and February; 2025 has December.
	a = press(t, a, "j", "j", "j")
	assert.Equal(t, 0, a.yearIdx)
	assert.Equal(t, 1, a.monthIdx)

	a = press(t, a, "n")
	assert.Equal(t, 1, a.yearIdx)
	assert.Equal(t, 0, a.monthIdx)
	a = press(t, a, "n", "k")
	assert.Equal(t, 1, a.yearIdx)
	assert.Equal(t, 0, a.monthIdx)

	assert.Contains(t, a.View(), "lunch")
}

func TestLedgerEventsRefreshTheView(t *testing.T) {
	f := &fakeLedger{state: model.EmptyState()}
	a := newApp(t, f)
	assert.Contains(t, a.View(), "No categories yet")

	require.NotNil(t, f.sub)
	f.sub(ledger.Event{Kind: ledger.EventImported, Revision: 2, At: testNow, State: sampleState()})

	msg := waitForEvent(a.events)()
	m, cmd := a.Update(msg)
	a = m.(App)
	assert.NotNil(t, cmd)

	view := a.View()
	assert.Contains(t, view, "Hello, Sam")
	assert.Contains(t, view, "Food")
	assert.Contains(t, view, "groceries")
	assert.True(t, a.overview.Week.Spent.Equal(decimal.RequireFromString("12.5")))
}

func TestAddRequiresACategory(t *testing.T) {
	a := newApp(t, &fakeLedger{state: model.EmptyState()})
	a = press(t, a, "a")
	assert.Nil(t, a.form)
	assert.Contains(t, a.flash, "add a category first")
}

func TestAddOpensForm(t *testing.T) {
	a := newApp(t, &fakeLedger{state: sampleState()})
	a = press(t, a, "a")
	require.NotNil(t, a.form)
	require.NotNil(t, a.formVals)
	assert.Equal(t, "food", a.formVals.categoryID)
}

func TestExpenseValuesInput(t *testing.T) {
	in, err := expenseValues{categoryID: "food", amount: " 12.50 ", description: " bread ", date: "2026-03-01"}.input()
	require.NoError(t, err)
	assert.True(t, in.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "bread", in.Description)
	assert.Equal(t, model.NewDate(2026, 3, 1), in.Date)

	in, err = expenseValues{categoryID: "food", amount: "3"}.input()
	require.NoError(t, err)
	assert.True(t, in.Date.IsZero(), "blank date defers to the ledger's today")

	_, err = expenseValues{categoryID: "food", amount: "abc"}.input()
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = expenseValues{categoryID: "food", amount: "-1"}.input()
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = expenseValues{categoryID: "food", amount: "1", date: "03/01/2026"}.input()
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.NoError(t, validateAmount("4.20"))
	assert.Error(t, validateAmount("0"))
	assert.NoError(t, validateDate(""))
	assert.Error(t, validateDate("tomorrow"))
}

func TestAddExpenseCmd(t *testing.T) {
	f := &fakeLedger{state: sampleState()}
	msg := addExpenseCmd(f, model.ExpenseInput{CategoryID: "food", Amount: decimal.NewFromInt(3)})()
	added, ok := msg.(ExpenseAddedMsg)
	require.True(t, ok)
	require.NoError(t, added.Err)
	assert.Len(t, f.added, 1)
}

func TestRunBackupFromSnapshotsTab(t *testing.T) {
	f := &fakeLedger{state: sampleState()}
	a := newApp(t, f)
	a = press(t, a, "s")

	m, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	a = m.(App)
	require.NotNil(t, cmd)
	assert.True(t, a.busy)

	m, _ = a.Update(cmd())
	a = m.(App)
	assert.False(t, a.busy)
	assert.Equal(t, 1, f.backups)
	assert.Contains(t, a.flash, "01234567")

	f.backupErr = errors.New("disk full")
	m, cmd = a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	a = m.(App)
	m, _ = a.Update(cmd())
	a = m.(App)
	assert.Contains(t, a.flash, "disk full")
}

func TestHistoryViewListsPeriods(t *testing.T) {
	a := newApp(t, &fakeLedger{state: sampleState()})
	a = press(t, a, "h", "m")
	view := a.View()
	assert.Contains(t, view, "Mar 2026")
	assert.Contains(t, view, "Feb 2026")
}

func TestTooNarrow(t *testing.T) {
	a := newApp(t, &fakeLedger{state: sampleState()})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	assert.Contains(t, m.(App).View(), "too narrow")
}
