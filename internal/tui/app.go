// Package tui provides the interactive Bubble Tea dashboard for expplan.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/model"
	"github.com/theirongolddev/expplan/internal/pipeline"
	"github.com/theirongolddev/expplan/internal/tui/components"
	"github.com/theirongolddev/expplan/internal/tui/theme"
)

// Ledger is what the dashboard reads and drives.
type Ledger interface {
	State() model.State
	Status() ledger.Status
	Subscribe(fn func(ledger.Event)) (cancel func())
	AddExpense(ctx context.Context, in model.ExpenseInput) (model.Expense, error)
	PerformBackup(ctx context.Context) (model.Snapshot, error)
	Snapshots(ctx context.Context) ([]model.Snapshot, error)
}

// LedgerEventMsg carries a committed ledger change into the update loop.
type LedgerEventMsg struct {
	Event ledger.Event
}

// SnapshotsMsg is sent when the snapshot history has been read.
type SnapshotsMsg struct {
	Snapshots []model.Snapshot
	Err       error
}

// BackupDoneMsg is sent when a manual backup finishes.
type BackupDoneMsg struct {
	Snapshot model.Snapshot
	Err      error
}

// ExpenseAddedMsg is sent when the add-expense form has been applied.
type ExpenseAddedMsg struct {
	Expense model.Expense
	Err     error
}

const (
	tabOverview = iota
	tabHistory
	tabBrowse
	tabSnapshots
)

const (
	minTerminalWidth = 60
	maxContentWidth  = 140
	minContentHeight = 5
	maxHistoryCount  = 24
)

// App is the root Bubble Tea model.
type App struct {
	ledger Ledger
	now    func() time.Time

	// Data
	state     model.State
	status    ledger.Status
	overview  model.Overview
	snapshots []model.Snapshot

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	flash     string
	busy      bool
	spinner   spinner.Model

	// History tab
	granularity  model.Granularity
	historyCount int

	// Browse tab
	yearIdx  int
	monthIdx int

	// Add-expense form
	form     *huh.Form
	formVals *expenseValues

	events chan ledger.Event
	cancel func()
}

// NewApp subscribes to l and returns the dashboard model. Call Close when
// the program exits.
func NewApp(l Ledger, now func() time.Time) App {
	if now == nil {
		now = time.Now
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	// Subscribers run inside the ledger's commit path: never block there.
	events := make(chan ledger.Event, 64)
	cancel := l.Subscribe(func(ev ledger.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	a := App{
		ledger:       l,
		now:          now,
		spinner:      sp,
		granularity:  model.ByDay,
		historyCount: 7,
		events:       events,
		cancel:       cancel,
	}
	a.refresh(l.State())
	return a
}

// Close stops listening to the ledger.
func (a App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		waitForEvent(a.events),
		loadSnapshotsCmd(a.ledger),
		a.spinner.Tick,
	)
}

func (a *App) refresh(state model.State) {
	a.state = state
	a.status = a.ledger.Status()
	a.overview = pipeline.Overview(state.Categories, state.Expenses, a.now())
	a.clampBrowse()
}

func (a *App) clampBrowse() {
	groups := pipeline.GroupByYearMonth(a.state.Expenses)
	years := groups.SortedYears()
	a.yearIdx = min(max(a.yearIdx, 0), max(len(years)-1, 0))
	if len(years) == 0 {
		a.monthIdx = 0
		return
	}
	months := groups.SortedMonths(years[a.yearIdx])
	a.monthIdx = min(max(a.monthIdx, 0), max(len(months)-1, 0))
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.form != nil {
			a.form = a.form.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case LedgerEventMsg:
		a.refresh(msg.Event.State)
		cmds := []tea.Cmd{waitForEvent(a.events)}
		if msg.Event.Kind == ledger.EventBackup || msg.Event.Kind == ledger.EventImported {
			cmds = append(cmds, loadSnapshotsCmd(a.ledger))
		}
		return a, tea.Batch(cmds...)

	case SnapshotsMsg:
		if msg.Err != nil {
			a.flash = "could not list snapshots: " + msg.Err.Error()
		} else {
			a.snapshots = msg.Snapshots
		}
		return a, nil

	case BackupDoneMsg:
		a.busy = false
		if msg.Err != nil {
			a.flash = "backup failed: " + msg.Err.Error()
		} else {
			a.flash = "backup " + shortID(msg.Snapshot.ID) + " written"
		}
		a.status = a.ledger.Status()
		return a, nil

	case ExpenseAddedMsg:
		a.busy = false
		if msg.Err != nil {
			a.flash = "expense not added: " + msg.Err.Error()
		} else {
			a.flash = "expense added"
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		if a.form != nil || a.showHelp {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.form != nil {
			return a.updateForm(msg)
		}
		return a.updateKeys(msg)
	}

	// Forward unhandled messages to the form (cursor blinks, etc.)
	if a.form != nil {
		return a.updateForm(msg)
	}
	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}
	a.flash = ""

	switch key {
	case "q", "esc":
		return a, tea.Quit
	case "tab", "right", "l":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "shift+tab", "left":
		a.activeTab = (a.activeTab + len(components.Tabs) - 1) % len(components.Tabs)
		return a, nil
	case "a":
		if len(a.state.Categories) == 0 {
			a.flash = "add a category first: expplan category add"
			return a, nil
		}
		return a.openExpenseForm()
	}

	switch a.activeTab {
	case tabHistory:
		switch key {
		case "d":
			a.granularity = model.ByDay
			return a, nil
		case "w":
			a.granularity = model.ByWeek
			return a, nil
		case "m":
			a.granularity = model.ByMonth
			return a, nil
		case "+", "=":
			a.historyCount = min(a.historyCount+1, maxHistoryCount)
			return a, nil
		case "-":
			a.historyCount = max(a.historyCount-1, 1)
			return a, nil
		}
	case tabBrowse:
		switch key {
		case "j", "down":
			a.monthIdx++
			a.clampBrowse()
			return a, nil
		case "k", "up":
			a.monthIdx--
			a.clampBrowse()
			return a, nil
		case "n", "pgdown":
			a.yearIdx++
			a.monthIdx = 0
			a.clampBrowse()
			return a, nil
		case "p", "pgup":
			a.yearIdx--
			a.monthIdx = 0
			a.clampBrowse()
			return a, nil
		}
	case tabSnapshots:
		if key == "r" && !a.busy {
			a.busy = true
			a.flash = ""
			return a, backupCmd(a.ledger)
		}
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return fmt.Sprintf("\n  Terminal too narrow (%d cols, need %d)\n", a.width, minTerminalWidth)
	}
	if a.form != nil {
		return a.form.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewMain() string {
	w := a.width
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab)
	statusBar := components.RenderStatusBar(w, a.hints(), a.saveIndicator())

	contentH := a.height - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabHistory:
		content = a.renderHistoryTab(cw)
	case tabBrowse:
		content = a.renderBrowseTab(cw)
	case tabSnapshots:
		content = a.renderSnapshotsTab(cw)
	}
	if a.flash != "" {
		content = lipgloss.NewStyle().Foreground(theme.Active.Orange).Render("  "+a.flash) + "\n" + content
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = lipgloss.PlaceHorizontal(w, lipgloss.Center, content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func (a App) hints() string {
	base := "[?]help  [a]dd  [q]uit"
	switch a.activeTab {
	case tabHistory:
		return base + "  [d/w/m]period  [+/-]count"
	case tabBrowse:
		return base + "  [j/k]month  [n/p]year"
	case tabSnapshots:
		return base + "  [r]un backup"
	}
	return base
}

// saveIndicator reports whether everything has reached the disk.
func (a App) saveIndicator() string {
	st := a.status
	switch {
	case a.busy:
		return a.spinner.View() + " working"
	case st.SaveError != "":
		return "save failed: " + st.SaveError
	case st.Pending:
		return "saving…"
	case st.LastSaved.IsZero():
		return "no changes"
	default:
		return "saved " + st.LastSaved.Local().Format("15:04:05")
	}
}

func (a App) viewHelp() string {
	t := theme.Active
	title := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	lines := []string{
		title.Render("Keys"),
		"",
		"o h b s        switch tab",
		"tab / ←→       next / previous tab",
		"a              add an expense",
		"d w m          history by day, week, month",
		"+ -            more / fewer history periods",
		"j k            browse months",
		"n p            browse years",
		"r              take a backup now (Snapshots)",
		"q              quit",
		"",
		muted.Render("any key closes this help"),
	}
	box := components.ContentCard("", strings.Join(lines, "\n"), 56)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the widths RenderTabBar draws.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		w := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + 1 // separator
	}
	return -1
}

func waitForEvent(ch <-chan ledger.Event) tea.Cmd {
	return func() tea.Msg {
		return LedgerEventMsg{Event: <-ch}
	}
}

func loadSnapshotsCmd(l Ledger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		snaps, err := l.Snapshots(ctx)
		return SnapshotsMsg{Snapshots: snaps, Err: err}
	}
}

func backupCmd(l Ledger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		snap, err := l.PerformBackup(ctx)
		return BackupDoneMsg{Snapshot: snap, Err: err}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}
