package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/expplan/internal/cli"
	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/model"
	"github.com/theirongolddev/expplan/internal/pipeline"
)

var (
	flagBrowseYear  int
	flagBrowseMonth int
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse past expenses by year and month",
	Long: "Without flags, lists every year with its monthly totals. --year narrows to one year\n" +
		"and --month (1-12) lists that month's expenses.",
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().IntVar(&flagBrowseYear, "year", 0, "Year to browse")
	browseCmd.Flags().IntVar(&flagBrowseMonth, "month", 0, "Month to list, 1-12 (requires --year)")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	if flagBrowseMonth != 0 && (flagBrowseMonth < 1 || flagBrowseMonth > 12) {
		return model.NewValidationError("month", "must be between 1 and 12")
	}
	if flagBrowseMonth != 0 && flagBrowseYear == 0 {
		return model.NewValidationError("month", "needs --year")
	}

	return withLedger(cmd, func(_ context.Context, l *ledger.Ledger) error {
		st := l.State()
		groups := l.GroupedHistory()
		years := groups.SortedYears()
		if len(years) == 0 {
			fmt.Println("\n  No expenses recorded.")
			return nil
		}

		if flagBrowseYear != 0 {
			if _, ok := groups[flagBrowseYear]; !ok {
				fmt.Printf("\n  No expenses in %d.\n", flagBrowseYear)
				return nil
			}
			years = []int{flagBrowseYear}
		}

		if flagBrowseMonth != 0 {
			exps := groups[flagBrowseYear][flagBrowseMonth-1]
			if len(exps) == 0 {
				fmt.Printf("\n  No expenses in %s %d.\n", cli.FormatMonth(flagBrowseMonth-1), flagBrowseYear)
				return nil
			}
			fmt.Println()
			title := fmt.Sprintf("%s %d", cli.FormatMonth(flagBrowseMonth-1), flagBrowseYear)
			fmt.Print(renderExpenses(title, st, sortNewestFirst(exps), 0))
			return nil
		}

		cur := st.Settings.Currency
		fmt.Println()
		for _, y := range years {
			months := groups.SortedMonths(y)
			rows := make([][]string, 0, len(months)+2)
			yearTotal := decimal.Zero
			for _, m := range months {
				total := pipeline.SumTotals(pipeline.CategoryTotals(groups[y][m]))
				yearTotal = yearTotal.Add(total)
				rows = append(rows, []string{
					cli.FormatMonth(m),
					formatNumber(int64(len(groups[y][m]))),
					cli.FormatMoney(total, cur),
				})
			}
			rows = append(rows, []string{"---"}, []string{"Year", "", cli.FormatMoney(yearTotal, cur)})
			fmt.Print(cli.RenderTable(cli.Table{
				Title:   fmt.Sprint(y),
				Headers: []string{"Month", "Expenses", "Total"},
				Rows:    rows,
			}))
		}
		return nil
	})
}
