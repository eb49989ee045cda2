package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/expplan/internal/tui/theme"
)

// ColorForPct returns green/yellow/orange/red by how much of a budget is used.
func ColorForPct(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct > 1:
		return t.Red
	case pct >= 0.85:
		return t.Orange
	case pct >= 0.6:
		return t.Yellow
	default:
		return t.Green
	}
}

// BudgetBar renders a labeled bar of spent/budget. The bar saturates at
// 100% while the percentage keeps counting.
func BudgetBar(label string, pct float64, labelW, barWidth int) string {
	t := theme.Active
	if pct < 0 {
		pct = 0
	}
	color := ColorForPct(pct)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, truncate(label, labelW))) +
		" " + bar.ViewAs(min(pct, 1)) +
		" " + pctStyle.Render(fmt.Sprintf("%4.0f%%", pct*100))
}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		idx = min(max(idx, 0), len(blocks)-1)
		buf.WriteRune(blocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Render(buf.String())
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit || limit < 2 {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
