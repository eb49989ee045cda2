// Package model defines the ledger entities shared by every other package.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a category's target amount recurs.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Frequencies lists the accepted frequencies in display order.
func Frequencies() []Frequency {
	return []Frequency{Daily, Weekly, Monthly}
}

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	default:
		return false
	}
}

// Category is a named recurring budget line.
type Category struct {
	ID        string
	Name      string
	Target    decimal.Decimal
	Frequency Frequency
}

// Expense is a single recorded spend against a category.
type Expense struct {
	ID          string
	CategoryID  string
	Amount      decimal.Decimal
	Description string
	Date        Date
}

// Settings holds user preferences.
type Settings struct {
	Currency   string
	UserName   string
	AutoBackup bool
	LastBackup *time.Time
}

// DefaultSettings returns the settings of a fresh ledger.
func DefaultSettings() Settings {
	return Settings{Currency: "USD"}
}

// Snapshot is one entry of the append-only backup history.
type Snapshot struct {
	ID        string
	Timestamp time.Time
	Version   int
	Payload   []byte
	Encrypted bool
}

// State is a complete ledger: what gets persisted, backed up and restored.
// Slices keep insertion order.
type State struct {
	Categories []Category
	Expenses   []Expense
	Settings   Settings
}

// EmptyState returns a ledger with no categories, no expenses and default settings.
func EmptyState() State {
	return State{
		Categories: []Category{},
		Expenses:   []Expense{},
		Settings:   DefaultSettings(),
	}
}

// Clone returns a deep copy so callers can build the next state without
// touching the current one.
func (s State) Clone() State {
	out := State{
		Categories: make([]Category, len(s.Categories)),
		Expenses:   make([]Expense, len(s.Expenses)),
		Settings:   s.Settings,
	}
	copy(out.Categories, s.Categories)
	copy(out.Expenses, s.Expenses)
	if s.Settings.LastBackup != nil {
		t := *s.Settings.LastBackup
		out.Settings.LastBackup = &t
	}
	return out
}

// Category looks up a category by id.
func (s State) Category(id string) (Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// ExpensesFor returns the expenses recorded against a category.
func (s State) ExpensesFor(categoryID string) []Expense {
	var out []Expense
	for _, e := range s.Expenses {
		if e.CategoryID == categoryID {
			out = append(out, e)
		}
	}
	return out
}

// Orphans returns expenses whose category does not exist.
func (s State) Orphans() []Expense {
	live := make(map[string]struct{}, len(s.Categories))
	for _, c := range s.Categories {
		live[c.ID] = struct{}{}
	}
	var out []Expense
	for _, e := range s.Expenses {
		if _, ok := live[e.CategoryID]; !ok {
			out = append(out, e)
		}
	}
	return out
}
