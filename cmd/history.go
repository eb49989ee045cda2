package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/expplan/internal/cli"
	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/model"
)

var (
	flagHistoryBy    string
	flagHistoryCount int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Budget versus spending over past days, weeks or months",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagHistoryBy, "by", string(model.ByDay), "Period: day, week or month")
	historyCmd.Flags().IntVarP(&flagHistoryCount, "count", "n", 7, "Number of periods")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	g := model.Granularity(strings.ToLower(strings.TrimSpace(flagHistoryBy)))

	return withLedger(cmd, func(_ context.Context, l *ledger.Ledger) error {
		series, err := l.HistoricalSeries(g, flagHistoryCount, time.Now())
		if err != nil {
			return err
		}
		cur := l.State().Settings.Currency

		rows := make([][]string, 0, len(series))
		trend := make([]float64, len(series))
		peak := 0.0
		for _, p := range series {
			peak = max(peak, p.Spent.InexactFloat64())
		}
		for i, p := range series {
			trend[len(series)-1-i] = p.Spent.InexactFloat64()
			rows = append(rows, []string{
				p.Label,
				cli.FormatMoney(p.Budget, cur),
				cli.FormatMoney(p.Spent, cur),
				cli.FormatRemaining(p.Budget, p.Spent, cur),
				cli.RenderHorizontalBar(p.Spent.InexactFloat64(), peak, 20),
			})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Last %d %ss", flagHistoryCount, g),
			Headers: []string{"Period", "Budget", "Spent", "Remaining", ""},
			Rows:    rows,
		}))
		fmt.Printf("  Trend (oldest to newest)  %s\n\n", cli.RenderSparkline(trend))
		return nil
	})
}
