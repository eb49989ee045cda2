package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/expplan/internal/cli"
	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/model"
)

var (
	flagExpenseCategory    string
	flagExpenseAmount      string
	flagExpenseDescription string
	flagExpenseDate        string
	flagExpenseMonth       string
	flagExpenseLimit       int
)

var expenseCmd = &cobra.Command{
	Use:     "expense",
	Aliases: []string{"expenses", "exp"},
	Short:   "Record and review expenses",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an expense against a category",
	RunE:  runExpenseAdd,
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses, newest first",
	RunE:  runExpenseList,
}

var expenseDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one expense",
	Args:  cobra.ExactArgs(1),
	RunE:  runExpenseDelete,
}

func init() {
	expenseAddCmd.Flags().StringVarP(&flagExpenseCategory, "category", "c", "", "Category id or name")
	expenseAddCmd.Flags().StringVarP(&flagExpenseAmount, "amount", "a", "", "Amount spent")
	expenseAddCmd.Flags().StringVarP(&flagExpenseDescription, "description", "m", "", "What it was for")
	expenseAddCmd.Flags().StringVar(&flagExpenseDate, "date", "", "Day of the expense, YYYY-MM-DD (default today)")
	_ = expenseAddCmd.MarkFlagRequired("category")
	_ = expenseAddCmd.MarkFlagRequired("amount")

	expenseListCmd.Flags().StringVarP(&flagExpenseCategory, "category", "c", "", "Only this category (id or name)")
	expenseListCmd.Flags().StringVar(&flagExpenseMonth, "month", "", "Only this month, YYYY-MM")
	expenseListCmd.Flags().IntVarP(&flagExpenseLimit, "limit", "n", 50, "Show at most this many (0 for all)")

	expenseCmd.AddCommand(expenseAddCmd, expenseListCmd, expenseDeleteCmd)
	rootCmd.AddCommand(expenseCmd)
}

func runExpenseAdd(cmd *cobra.Command, _ []string) error {
	amount, err := parseAmount("amount", flagExpenseAmount)
	if err != nil {
		return err
	}
	var date model.Date
	if s := strings.TrimSpace(flagExpenseDate); s != "" {
		if date, err = model.ParseDate(s); err != nil {
			return model.NewValidationError("date", "must be YYYY-MM-DD")
		}
	}

	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		c, err := findCategory(l.State(), flagExpenseCategory)
		if err != nil {
			return err
		}
		e, err := l.AddExpense(ctx, model.ExpenseInput{
			CategoryID:  c.ID,
			Amount:      amount,
			Description: flagExpenseDescription,
			Date:        date,
		})
		if err != nil {
			return err
		}

		cur := l.State().Settings.Currency
		fmt.Printf("  Recorded %s on %s for %s (%s)\n",
			cli.FormatMoney(e.Amount, cur), e.Date, c.Name, shortID(e.ID))

		for _, cb := range l.Overview(time.Now()).Categories {
			if cb.Category.ID == c.ID {
				fmt.Printf("  %s this month: %s\n", c.Name, cli.FormatRemaining(cb.MonthlyBudget, cb.MonthlySpent, cur))
			}
		}
		return nil
	})
}

func runExpenseList(cmd *cobra.Command, _ []string) error {
	var month *model.Date
	if s := strings.TrimSpace(flagExpenseMonth); s != "" {
		d, err := model.ParseDate(s + "-01")
		if err != nil {
			return model.NewValidationError("month", "must be YYYY-MM")
		}
		month = &d
	}

	return withLedger(cmd, func(_ context.Context, l *ledger.Ledger) error {
		st := l.State()
		exps := st.Expenses
		if flagExpenseCategory != "" {
			c, err := findCategory(st, flagExpenseCategory)
			if err != nil {
				return err
			}
			exps = st.ExpensesFor(c.ID)
		}
		if month != nil {
			exps = slices.DeleteFunc(slices.Clone(exps), func(e model.Expense) bool {
				return e.Date.Year != month.Year || e.Date.Month != month.Month
			})
		}
		if len(exps) == 0 {
			fmt.Println("\n  No expenses found.")
			return nil
		}

		fmt.Println()
		fmt.Print(renderExpenses("Expenses", st, sortNewestFirst(exps), flagExpenseLimit))
		return nil
	})
}

func runExpenseDelete(cmd *cobra.Command, args []string) error {
	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		st := l.State()
		e, err := findExpense(st, args[0])
		if err != nil {
			return err
		}
		if err := l.DeleteExpense(ctx, e.ID); err != nil {
			return err
		}
		fmt.Printf("  Deleted %s from %s\n", cli.FormatMoney(e.Amount, st.Settings.Currency), e.Date)
		return nil
	})
}

func sortNewestFirst(exps []model.Expense) []model.Expense {
	out := slices.Clone(exps)
	slices.SortStableFunc(out, func(a, b model.Expense) int {
		return b.Date.Compare(a.Date)
	})
	return out
}

// renderExpenses draws exps as a table with a total row. A positive limit
// caps the rows shown; the total always covers every expense.
func renderExpenses(title string, st model.State, exps []model.Expense, limit int) string {
	cur := st.Settings.Currency
	total := decimal.Zero
	for _, e := range exps {
		total = total.Add(e.Amount)
	}

	shown := exps
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	rows := make([][]string, 0, len(shown)+2)
	for _, e := range shown {
		name := "(deleted)"
		if c, ok := st.Category(e.CategoryID); ok {
			name = c.Name
		}
		rows = append(rows, []string{
			e.Date.String(),
			name,
			e.Description,
			cli.FormatMoney(e.Amount, cur),
			shortID(e.ID),
		})
	}
	label := "Total"
	if len(shown) < len(exps) {
		label = fmt.Sprintf("Total (%d of %d shown)", len(shown), len(exps))
	}
	rows = append(rows, []string{"---"}, []string{label, "", "", cli.FormatMoney(total, cur), ""})

	return cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{"Date", "Category", "Description", "Amount", "ID"},
		Rows:    rows,
	})
}
