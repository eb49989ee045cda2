package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/expplan/internal/cli"
	"github.com/theirongolddev/expplan/internal/forecast"
	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/model"
)

var (
	flagCategoryTarget    string
	flagCategoryFrequency string
	flagCategoryYes       bool
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"categories", "cat"},
	Short:   "Manage budget categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a category with a recurring target",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoryAdd,
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories with their weekly and monthly forecasts",
	RunE:  runCategoryList,
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete ID|NAME",
	Short: "Delete a category and every expense recorded against it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoryDelete,
}

func init() {
	categoryAddCmd.Flags().StringVar(&flagCategoryTarget, "target", "", "Target amount per period")
	categoryAddCmd.Flags().StringVar(&flagCategoryFrequency, "frequency", string(model.Monthly), "Period: daily, weekly or monthly")
	_ = categoryAddCmd.MarkFlagRequired("target")
	categoryDeleteCmd.Flags().BoolVarP(&flagCategoryYes, "yes", "y", false, "Also delete the category's expenses without asking")

	categoryCmd.AddCommand(categoryAddCmd, categoryListCmd, categoryDeleteCmd)
	rootCmd.AddCommand(categoryCmd)
}

func runCategoryAdd(cmd *cobra.Command, args []string) error {
	target, err := parseAmount("target", flagCategoryTarget)
	if err != nil {
		return err
	}
	in := model.CategoryInput{
		Name:      args[0],
		Target:    target,
		Frequency: model.Frequency(strings.ToLower(strings.TrimSpace(flagCategoryFrequency))),
	}
	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		c, err := l.AddCategory(ctx, in)
		if err != nil {
			return err
		}
		cur := l.State().Settings.Currency
		fmt.Printf("  Added %s (%s)\n", c.Name, shortID(c.ID))
		fmt.Printf("  %s %s  =  %s/week  %s/month\n",
			cli.FormatMoney(c.Target, cur), c.Frequency,
			cli.FormatMoney(forecast.WeeklyForecast(c), cur),
			cli.FormatMoney(forecast.MonthlyForecast(c), cur))
		return nil
	})
}

func runCategoryList(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(_ context.Context, l *ledger.Ledger) error {
		st := l.State()
		if len(st.Categories) == 0 {
			fmt.Println("\n  No categories yet.")
			return nil
		}
		cur := st.Settings.Currency

		rows := make([][]string, 0, len(st.Categories)+2)
		for _, c := range st.Categories {
			rows = append(rows, []string{
				shortID(c.ID),
				c.Name,
				cli.FormatMoney(c.Target, cur),
				string(c.Frequency),
				cli.FormatMoney(forecast.WeeklyForecast(c), cur),
				cli.FormatMoney(forecast.MonthlyForecast(c), cur),
				formatNumber(int64(len(st.ExpensesFor(c.ID)))),
			})
		}
		rows = append(rows, []string{"---"}, []string{
			"", "Total", "", "",
			cli.FormatMoney(forecast.TotalWeeklyBudget(st.Categories), cur),
			cli.FormatMoney(forecast.TotalMonthlyBudget(st.Categories), cur),
			formatNumber(int64(len(st.Expenses))),
		})

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Categories",
			Headers: []string{"ID", "Name", "Target", "Every", "Weekly", "Monthly", "Expenses"},
			Rows:    rows,
		}))
		return nil
	})
}

func runCategoryDelete(cmd *cobra.Command, args []string) error {
	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		st := l.State()
		c, err := findCategory(st, args[0])
		if err != nil {
			return err
		}
		n := len(st.ExpensesFor(c.ID))
		if n > 0 && !flagCategoryYes {
			ok, err := confirm(fmt.Sprintf("Delete %s and its %d expenses?", c.Name, n))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("  Nothing deleted.")
				return nil
			}
		}
		if err := l.DeleteCategory(ctx, c.ID); err != nil {
			return err
		}
		fmt.Printf("  Deleted %s and %d expenses\n", c.Name, n)
		return nil
	})
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, model.NewValidationError(field, "must be a number like 12.50")
	}
	return d, nil
}
