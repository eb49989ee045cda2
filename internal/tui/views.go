package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/expplan/internal/cli"
	"github.com/theirongolddev/expplan/internal/model"
	"github.com/theirongolddev/expplan/internal/pipeline"
	"github.com/theirongolddev/expplan/internal/tui/components"
	"github.com/theirongolddev/expplan/internal/tui/theme"
)

const recentExpenses = 8

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	cur := a.state.Settings.Currency
	ov := a.overview

	greeting := "Budget overview"
	if name := strings.TrimSpace(a.state.Settings.UserName); name != "" {
		greeting = "Hello, " + name
	}
	title := lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true).Render("  " + greeting)

	cards := components.MetricCardRow([]components.Metric{
		{Label: "This month", Value: cli.FormatMoney(ov.Month.Spent, cur), Delta: "of " + cli.FormatMoney(ov.Month.Budget, cur)},
		{Label: "Month remaining", Value: cli.FormatMoney(ov.Month.Remaining(), cur), Delta: cli.FormatPercent(ov.Month.UsedFraction()) + " used"},
		{Label: "Last 7 days", Value: cli.FormatMoney(ov.Week.Spent, cur), Delta: "of " + cli.FormatMoney(ov.Week.Budget, cur)},
		{Label: "Week remaining", Value: cli.FormatMoney(ov.Week.Remaining(), cur), Delta: cli.FormatPercent(ov.Week.UsedFraction()) + " used"},
	}, cw)

	if len(ov.Categories) == 0 {
		hint := lipgloss.NewStyle().Foreground(t.TextMuted).
			Render("  No categories yet. Add one with `expplan category add`.")
		return title + "\n" + cards + "\n" + hint
	}

	inner := components.CardInnerWidth(cw)
	labelW := min(20, inner/4)
	barW := max(inner-labelW-30, 10)

	var body strings.Builder
	for i, cb := range ov.Categories {
		if i > 0 {
			body.WriteString("\n")
		}
		used := 0.0
		if cb.MonthlyBudget.IsPositive() {
			used = cb.MonthlySpent.Div(cb.MonthlyBudget).InexactFloat64()
		}
		body.WriteString(components.BudgetBar(cb.Category.Name, used, labelW, barW))
		body.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(
			fmt.Sprintf("  %s / %s", cli.FormatMoney(cb.MonthlySpent, cur), cli.FormatMoney(cb.MonthlyBudget, cur))))
	}
	categories := components.ContentCard("Categories this month", body.String(), cw)

	return title + "\n" + cards + "\n" + categories + "\n" + a.renderRecent(cw)
}

func (a App) renderRecent(cw int) string {
	t := theme.Active
	cur := a.state.Settings.Currency

	exps := slices.Clone(a.state.Expenses)
	slices.SortStableFunc(exps, func(x, y model.Expense) int {
		return -x.Date.Compare(y.Date)
	})
	if len(exps) > recentExpenses {
		exps = exps[:recentExpenses]
	}
	if len(exps) == 0 {
		return components.ContentCard("Recent expenses", lipgloss.NewStyle().Foreground(t.TextDim).Render("none yet, press a to add one"), cw)
	}

	names := categoryNames(a.state)
	inner := components.CardInnerWidth(cw)
	descW := max(inner-40, 8)

	var body strings.Builder
	for i, e := range exps {
		if i > 0 {
			body.WriteString("\n")
		}
		fmt.Fprintf(&body, "%-10s  %-14s  %-*s  %12s",
			e.Date.String(),
			truncStr(names[e.CategoryID], 14),
			descW, truncStr(e.Description, descW),
			cli.FormatMoney(e.Amount, cur))
	}
	return components.ContentCard("Recent expenses", body.String(), cw)
}

func (a App) renderHistoryTab(cw int) string {
	t := theme.Active
	cur := a.state.Settings.Currency
	series := pipeline.HistoricalSeries(a.state.Categories, a.state.Expenses, a.granularity, a.historyCount, a.now())

	inner := components.CardInnerWidth(cw)
	labelW := 0
	for _, p := range series {
		labelW = max(labelW, lipgloss.Width(p.Label))
	}
	barW := max(inner-labelW-32, 10)

	var body strings.Builder
	spark := make([]float64, len(series))
	for i, p := range series {
		spark[len(series)-1-i] = p.Spent.InexactFloat64()
		if i > 0 {
			body.WriteString("\n")
		}
		used := 0.0
		if p.Budget.IsPositive() {
			used = p.Spent.Div(p.Budget).InexactFloat64()
		}
		body.WriteString(components.BudgetBar(p.Label, used, labelW, barW))
		body.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(
			fmt.Sprintf("  %s / %s", cli.FormatMoney(p.Spent, cur), cli.FormatMoney(p.Budget, cur))))
	}

	title := fmt.Sprintf("Last %d %ss, most recent first", a.historyCount, a.granularity)
	trend := lipgloss.NewStyle().Foreground(t.TextMuted).Render("  trend ") +
		components.Sparkline(spark, t.Accent)
	return components.ContentCard(title, body.String(), cw) + "\n" + trend
}

func (a App) renderBrowseTab(cw int) string {
	t := theme.Active
	cur := a.state.Settings.Currency
	groups := pipeline.GroupByYearMonth(a.state.Expenses)
	years := groups.SortedYears()
	if len(years) == 0 {
		return components.ContentCard("Browse", lipgloss.NewStyle().Foreground(t.TextDim).Render("no expenses recorded"), cw)
	}

	year := years[a.yearIdx]
	months := groups.SortedMonths(year)

	active := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	yearParts := make([]string, len(years))
	for i, y := range years {
		if i == a.yearIdx {
			yearParts[i] = active.Render(fmt.Sprint(y))
		} else {
			yearParts[i] = muted.Render(fmt.Sprint(y))
		}
	}

	var monthList strings.Builder
	for i, m := range months {
		total := pipeline.SumTotals(pipeline.CategoryTotals(groups[year][m]))
		line := fmt.Sprintf("%-10s %12s", cli.FormatMonth(m), cli.FormatMoney(total, cur))
		if i == a.monthIdx {
			monthList.WriteString(active.Render("▸ " + line))
		} else {
			monthList.WriteString(muted.Render("  " + line))
		}
		if i < len(months)-1 {
			monthList.WriteString("\n")
		}
	}

	leftW := 32
	left := components.ContentCard(strings.Join(yearParts, "  "), monthList.String(), leftW)

	month := months[a.monthIdx]
	exps := slices.Clone(groups[year][month])
	slices.SortStableFunc(exps, func(x, y model.Expense) int {
		return x.Date.Compare(y.Date)
	})
	names := categoryNames(a.state)
	rightW := cw - leftW
	descW := max(components.CardInnerWidth(rightW)-40, 8)

	var list strings.Builder
	for i, e := range exps {
		if i > 0 {
			list.WriteString("\n")
		}
		fmt.Fprintf(&list, "%-10s  %-14s  %-*s  %12s",
			e.Date.String(),
			truncStr(names[e.CategoryID], 14),
			descW, truncStr(e.Description, descW),
			cli.FormatMoney(e.Amount, cur))
	}
	right := components.ContentCard(fmt.Sprintf("%s %d", cli.FormatMonth(month), year), list.String(), rightW)

	return components.CardRow([]string{left, right})
}

func (a App) renderSnapshotsTab(cw int) string {
	t := theme.Active
	st := a.status
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	now := a.now()
	auto := "off"
	if a.state.Settings.AutoBackup {
		auto = "on"
	}
	summary := components.MetricCardRow([]components.Metric{
		{Label: "Last backup", Value: cli.FormatAgo(st.LastBackup, now)},
		{Label: "Auto-backup", Value: auto},
		{Label: "Snapshots kept", Value: fmt.Sprint(len(a.snapshots))},
		{Label: "Saves", Value: cli.FormatNumber(int64(st.Saves)), Delta: fmt.Sprintf("%d failed", st.SaveFailures)},
	}, cw)

	var body strings.Builder
	if st.BackupError != "" {
		body.WriteString(lipgloss.NewStyle().Foreground(t.Red).Render("last backup failed: "+st.BackupError) + "\n")
	}
	if len(a.snapshots) == 0 {
		body.WriteString(muted.Render("no snapshots yet, press r to take one"))
	}
	for i, s := range a.snapshots {
		if i > 0 {
			body.WriteString("\n")
		}
		kind := "plain"
		if s.Encrypted {
			kind = "encrypted"
		}
		fmt.Fprintf(&body, "%-8s  %s  v%d  %-9s  %8s",
			shortID(s.ID),
			s.Timestamp.Local().Format("2006-01-02 15:04:05"),
			s.Version,
			kind,
			cli.FormatBytes(len(s.Payload)))
	}
	return summary + "\n" + components.ContentCard("Snapshot history, newest first", body.String(), cw)
}

func categoryNames(s model.State) map[string]string {
	out := make(map[string]string, len(s.Categories))
	for _, c := range s.Categories {
		out[c.ID] = c.Name
	}
	return out
}


func truncStr(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit || limit < 2 {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
