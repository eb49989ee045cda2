package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/expplan/internal/cli"
	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/model"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Budget versus spending for this month and the last 7 days",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(_ context.Context, l *ledger.Ledger) error {
		st := l.State()
		if len(st.Categories) == 0 {
			fmt.Println("\n  No categories yet.")
			fmt.Println("  Create one with: expplan category add Groceries --target 80 --frequency weekly")
			return nil
		}

		now := time.Now()
		ov := l.Overview(now)
		cur := st.Settings.Currency

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("BUDGET  %s", now.Format("January 2006"))))
		fmt.Println()

		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Window", "Budget", "Spent", "Remaining"},
			Rows: [][]string{
				windowRow("This month", ov.Month, cur),
				windowRow("Last 7 days", ov.Week, cur),
			},
		}))
		fmt.Printf("  Month %s\n", cli.RenderBudgetBar(ov.Month.UsedFraction(), 40))
		fmt.Printf("  Week  %s\n", cli.RenderBudgetBar(ov.Week.UsedFraction(), 40))
		fmt.Println()

		rows := make([][]string, 0, len(ov.Categories))
		for _, cb := range ov.Categories {
			rows = append(rows, []string{
				cb.Category.Name,
				string(cb.Category.Frequency),
				cli.FormatMoney(cb.Category.Target, cur),
				cli.FormatMoney(cb.WeeklySpent, cur) + " / " + cli.FormatMoney(cb.WeeklyBudget, cur),
				cli.FormatMoney(cb.MonthlySpent, cur) + " / " + cli.FormatMoney(cb.MonthlyBudget, cur),
				cli.FormatRemaining(cb.MonthlyBudget, cb.MonthlySpent, cur),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Categories",
			Headers: []string{"Category", "Every", "Target", "Week", "Month", "Month left"},
			Rows:    rows,
		}))

		if orphans := st.Orphans(); len(orphans) > 0 {
			fmt.Println(cli.Warn(fmt.Sprintf("  %d expenses reference a missing category and are not counted", len(orphans))))
		}
		return nil
	})
}

func windowRow(label string, w model.WindowTotals, cur string) []string {
	return []string{
		label,
		cli.FormatMoney(w.Budget, cur),
		cli.FormatMoney(w.Spent, cur),
		cli.FormatRemaining(w.Budget, w.Spent, cur),
	}
}
