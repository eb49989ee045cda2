package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/expplan/internal/model"
)

// expenseValues backs the add-expense form. The form holds pointers into
// it, so App keeps it behind a pointer across copies.
type expenseValues struct {
	categoryID  string
	amount      string
	description string
	date        string
}

func (v expenseValues) input() (model.ExpenseInput, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(v.amount))
	if err != nil {
		return model.ExpenseInput{}, model.NewValidationError("amount", "must be a number")
	}
	in := model.ExpenseInput{
		CategoryID:  v.categoryID,
		Amount:      amount,
		Description: strings.TrimSpace(v.description),
	}
	if s := strings.TrimSpace(v.date); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			return model.ExpenseInput{}, model.NewValidationError("date", "must be YYYY-MM-DD")
		}
		in.Date = d
	}
	return in, in.Validate()
}

func validateAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a number like 12.50")
	}
	if !d.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

func validateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := model.ParseDate(strings.TrimSpace(s)); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

func (a App) openExpenseForm() (tea.Model, tea.Cmd) {
	vals := &expenseValues{categoryID: a.state.Categories[0].ID}

	opts := make([]huh.Option[string], 0, len(a.state.Categories))
	for _, c := range a.state.Categories {
		opts = append(opts, huh.NewOption(c.Name, c.ID))
	}

	a.formVals = vals
	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Category").
				Options(opts...).
				Value(&vals.categoryID),
			huh.NewInput().
				Title("Amount").
				Placeholder("12.50").
				Validate(validateAmount).
				Value(&vals.amount),
			huh.NewInput().
				Title("Description").
				CharLimit(500).
				Value(&vals.description),
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD, blank for today").
				Validate(validateDate).
				Value(&vals.date),
		),
	).WithShowHelp(true)
	if a.width > 0 {
		a.form = a.form.WithWidth(a.width).WithHeight(a.height)
	}
	return a, a.form.Init()
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		vals := *a.formVals
		a.form, a.formVals = nil, nil
		in, err := vals.input()
		if err != nil {
			a.flash = "expense not added: " + err.Error()
			return a, nil
		}
		a.busy = true
		return a, addExpenseCmd(a.ledger, in)
	case huh.StateAborted:
		a.form, a.formVals = nil, nil
		return a, nil
	}
	return a, cmd
}

func addExpenseCmd(l Ledger, in model.ExpenseInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		exp, err := l.AddExpense(ctx, in)
		return ExpenseAddedMsg{Expense: exp, Err: err}
	}
}
