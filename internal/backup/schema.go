package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/expplan/internal/model"
)

// ident accepts ids written as JSON strings or numbers. Older files used
// millisecond timestamps as ids.
type ident string

func (id *ident) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ident(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ident(n.String())
	return nil
}

type categoryRecord struct {
	ID        ident       `json:"id"`
	Name      string      `json:"name"`
	Target    json.Number `json:"target"`
	Frequency string      `json:"frequency"`
}

type expenseRecord struct {
	ID          ident       `json:"id"`
	CategoryID  ident       `json:"categoryId"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Date        model.Date  `json:"date"`
}

type settingsRecord struct {
	Currency   string     `json:"currency"`
	UserName   string     `json:"userName"`
	AutoBackup bool       `json:"autoBackup"`
	LastBackup *time.Time `json:"lastBackup,omitempty"`
}

// ledgerData is the "data" object of a backup file.
type ledgerData struct {
	Categories []categoryRecord `json:"categories"`
	Expenses   []expenseRecord  `json:"actualExpenses"`
	Settings   settingsRecord   `json:"settings"`
}

func toData(s model.State) ledgerData {
	d := ledgerData{
		Categories: make([]categoryRecord, 0, len(s.Categories)),
		Expenses:   make([]expenseRecord, 0, len(s.Expenses)),
		Settings: settingsRecord{
			Currency:   s.Settings.Currency,
			UserName:   s.Settings.UserName,
			AutoBackup: s.Settings.AutoBackup,
		},
	}
	if s.Settings.LastBackup != nil {
		t := s.Settings.LastBackup.UTC()
		d.Settings.LastBackup = &t
	}
	for _, c := range s.Categories {
		d.Categories = append(d.Categories, categoryRecord{
			ID:        ident(c.ID),
			Name:      c.Name,
			Target:    json.Number(c.Target.String()),
			Frequency: string(c.Frequency),
		})
	}
	for _, e := range s.Expenses {
		d.Expenses = append(d.Expenses, expenseRecord{
			ID:          ident(e.ID),
			CategoryID:  ident(e.CategoryID),
			Amount:      json.Number(e.Amount.String()),
			Description: e.Description,
			Date:        e.Date,
		})
	}
	return d
}

// toState converts and validates decoded data. Every expense must
// reference a category in the same file.
func (d ledgerData) toState() (model.State, error) {
	s := model.State{
		Categories: make([]model.Category, 0, len(d.Categories)),
		Expenses:   make([]model.Expense, 0, len(d.Expenses)),
		Settings: model.Settings{
			Currency:   strings.TrimSpace(d.Settings.Currency),
			UserName:   d.Settings.UserName,
			AutoBackup: d.Settings.AutoBackup,
			LastBackup: d.Settings.LastBackup,
		},
	}
	if s.Settings.Currency == "" {
		s.Settings.Currency = model.DefaultSettings().Currency
	}
	if err := model.ValidateSettings(s.Settings); err != nil {
		return model.State{}, fmt.Errorf("settings: %w", err)
	}

	seen := make(map[string]struct{}, len(d.Categories))
	for i, r := range d.Categories {
		target, err := decimal.NewFromString(r.Target.String())
		if err != nil {
			return model.State{}, fmt.Errorf("category %d: %w", i, model.NewValidationError("target", "is not a number"))
		}
		c := model.Category{
			ID:        string(r.ID),
			Name:      strings.TrimSpace(r.Name),
			Target:    target,
			Frequency: model.Frequency(r.Frequency),
		}
		if err := model.ValidateCategory(c); err != nil {
			return model.State{}, fmt.Errorf("category %d: %w", i, err)
		}
		if _, dup := seen[c.ID]; dup {
			return model.State{}, fmt.Errorf("category %d: %w", i, model.NewValidationError("id", "is duplicated"))
		}
		seen[c.ID] = struct{}{}
		s.Categories = append(s.Categories, c)
	}

	expenseIDs := make(map[string]struct{}, len(d.Expenses))
	for i, r := range d.Expenses {
		amount, err := decimal.NewFromString(r.Amount.String())
		if err != nil {
			return model.State{}, fmt.Errorf("expense %d: %w", i, model.NewValidationError("amount", "is not a number"))
		}
		e := model.Expense{
			ID:          string(r.ID),
			CategoryID:  string(r.CategoryID),
			Amount:      amount,
			Description: r.Description,
			Date:        r.Date,
		}
		if err := model.ValidateExpense(e); err != nil {
			return model.State{}, fmt.Errorf("expense %d: %w", i, err)
		}
		if _, ok := seen[e.CategoryID]; !ok {
			return model.State{}, fmt.Errorf("expense %d: %w", i, model.NewValidationError("categoryId", "does not match any category"))
		}
		if _, dup := expenseIDs[e.ID]; dup {
			return model.State{}, fmt.Errorf("expense %d: %w", i, model.NewValidationError("id", "is duplicated"))
		}
		expenseIDs[e.ID] = struct{}{}
		s.Expenses = append(s.Expenses, e)
	}
	return s, nil
}
