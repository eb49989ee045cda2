package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/expplan/internal/backup"
	"github.com/theirongolddev/expplan/internal/logging"
	"github.com/theirongolddev/expplan/internal/model"
	"github.com/theirongolddev/expplan/internal/store"
)

type fakeRepo struct {
	mu          sync.Mutex
	state       model.State
	saves       int
	failSaves   int // fail this many Save calls before succeeding
	saveErr     error
	snaps       []model.Snapshot
	snapshotErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{state: model.EmptyState()}
}

func (r *fakeRepo) Load(context.Context) (model.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone(), nil
}

func (r *fakeRepo) Save(_ context.Context, s model.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.failSaves > 0 {
		r.failSaves--
		return r.saveErr
	}
	r.state = s.Clone()
	return nil
}

func (r *fakeRepo) saved() model.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

func (r *fakeRepo) AppendSnapshot(_ context.Context, snap model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshotErr != nil {
		return r.snapshotErr
	}
	r.snaps = append(r.snaps, snap)
	return nil
}

func (r *fakeRepo) ListSnapshots(context.Context) ([]model.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]model.Snapshot(nil), r.snaps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r *fakeRepo) PruneSnapshots(_ context.Context, keep int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if keep <= 0 || len(r.snaps) <= keep {
		return 0, nil
	}
	n := len(r.snaps) - keep
	r.snaps = r.snaps[n:]
	return n, nil
}

// blockingLoadRepo parks the first Load after arm until release is closed.
type blockingLoadRepo struct {
	*fakeRepo
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newBlockingLoadRepo() *blockingLoadRepo {
	return &blockingLoadRepo{
		fakeRepo: newFakeRepo(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (r *blockingLoadRepo) Load(ctx context.Context) (model.State, error) {
	if r.armed.CompareAndSwap(true, false) {
		close(r.entered)
		<-r.release
	}
	return r.fakeRepo.Load(ctx)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)}
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func openLedger(t *testing.T, repo Repository, clk *clock, mod ...func(*Options)) *Ledger {
	t.Helper()
	opts := Options{
		Logger: logging.Discard(),
		Now:    clk.Now,
		NewID:  sequentialIDs(),
		Retry:  RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}
	for _, m := range mod {
		m(&opts)
	}
	l, err := Open(context.Background(), repo, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close(context.Background()) })
	return l
}

func groceries() model.CategoryInput {
	return model.CategoryInput{Name: "Groceries", Target: decimal.NewFromInt(100), Frequency: model.Weekly}
}

func TestAddCategory(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newFakeRepo(), newClock())

	c, err := l.AddCategory(ctx, model.CategoryInput{Name: "  Groceries ", Target: decimal.NewFromInt(100), Frequency: model.Weekly})
	require.NoError(t, err)
	assert.Equal(t, "id-1", c.ID)
	assert.Equal(t, "Groceries", c.Name)

	_, err = l.AddCategory(ctx, groceries())
	require.NoError(t, err, "duplicate names are allowed")

	_, err = l.AddCategory(ctx, model.CategoryInput{Name: "x", Target: decimal.Zero, Frequency: model.Daily})
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.Len(t, l.State().Categories, 2)
}

func TestDeleteCategoryCascades(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newFakeRepo(), newClock())

	food, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	fuel, err := l.AddCategory(ctx, model.CategoryInput{Name: "Fuel", Target: decimal.NewFromInt(60), Frequency: model.Weekly})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = l.AddExpense(ctx, model.ExpenseInput{CategoryID: food.ID, Amount: decimal.NewFromInt(int64(i + 1))})
		require.NoError(t, err)
	}
	keep, err := l.AddExpense(ctx, model.ExpenseInput{CategoryID: fuel.ID, Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)

	require.NoError(t, l.DeleteCategory(ctx, food.ID))
	s := l.State()
	require.Len(t, s.Categories, 1)
	assert.Equal(t, fuel.ID, s.Categories[0].ID)
	require.Len(t, s.Expenses, 1)
	assert.Equal(t, keep.ID, s.Expenses[0].ID)
	assert.Empty(t, s.Orphans())

	assert.ErrorIs(t, l.DeleteCategory(ctx, food.ID), model.ErrNotFound)
}

func TestAddExpense(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	l := openLedger(t, newFakeRepo(), clk)

	_, err := l.AddExpense(ctx, model.ExpenseInput{CategoryID: "nope", Amount: decimal.NewFromInt(1)})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "categoryId", verr.Field)

	c, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)

	_, err = l.AddExpense(ctx, model.ExpenseInput{CategoryID: c.ID, Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, model.ErrValidation)

	e, err := l.AddExpense(ctx, model.ExpenseInput{CategoryID: c.ID, Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(2024, time.June, 15), e.Date)
	assert.Equal(t, "", e.Description)

	totals := l.CurrentMonthTotals(clk.Now())
	assert.True(t, totals.ByCategory[c.ID].Equal(decimal.NewFromInt(40)))

	require.NoError(t, l.DeleteExpense(ctx, e.ID))
	assert.ErrorIs(t, l.DeleteExpense(ctx, e.ID), model.ErrNotFound)
	assert.Empty(t, l.State().Expenses)
}

func TestSaveSettings(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newFakeRepo(), newClock())

	require.NoError(t, l.SaveSettings(ctx, model.Settings{Currency: "eur", UserName: "Ana"}))
	assert.Equal(t, model.Settings{Currency: "EUR", UserName: "Ana"}, l.State().Settings)

	assert.ErrorIs(t, l.SaveSettings(ctx, model.Settings{Currency: "ZZZ"}), model.ErrValidation)
	assert.Equal(t, "EUR", l.State().Settings.Currency)
}

func TestStateIsACopy(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newFakeRepo(), newClock())
	_, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)

	s := l.State()
	s.Categories[0].Name = "changed"
	assert.Equal(t, "Groceries", l.State().Categories[0].Name)
}

func TestMutationsArePersisted(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	l := openLedger(t, repo, newClock())

	c, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	_, err = l.AddExpense(ctx, model.ExpenseInput{CategoryID: c.ID, Amount: decimal.NewFromInt(12), Description: "bread"})
	require.NoError(t, err)
	require.NoError(t, l.Flush(ctx))

	saved := repo.saved()
	require.Len(t, saved.Categories, 1)
	require.Len(t, saved.Expenses, 1)
	assert.Equal(t, "bread", saved.Expenses[0].Description)

	st := l.Status()
	assert.False(t, st.Pending)
	assert.Equal(t, st.Revision, st.SavedRevision)
	assert.Empty(t, st.SaveError)
	assert.False(t, st.LastSaved.IsZero())
}

func TestPersistenceRetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.failSaves = 2
	repo.saveErr = errors.New("database is locked")
	l := openLedger(t, repo, newClock())

	_, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	require.NoError(t, l.Flush(ctx))

	assert.Len(t, repo.saved().Categories, 1)
	assert.Equal(t, 3, repo.saves)
	assert.Empty(t, l.Status().SaveError)
}

func TestPersistenceFailureIsReportedNotReturned(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.failSaves = 100
	repo.saveErr = errors.New("disk full")
	l := openLedger(t, repo, newClock())

	_, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err, "the in-memory mutation still succeeds")
	assert.Len(t, l.State().Categories, 1)

	err = l.Flush(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	st := l.Status()
	assert.Contains(t, st.SaveError, "disk full")
	assert.Equal(t, uint64(1), st.SaveFailures)
	assert.Less(t, st.SavedRevision, st.Revision)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newFakeRepo(), newClock())

	var got []EventKind
	cancel := l.Subscribe(func(ev Event) {
		got = append(got, ev.Kind)
	})

	c, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	_, err = l.AddExpense(ctx, model.ExpenseInput{CategoryID: c.ID, Amount: decimal.NewFromInt(3)})
	require.NoError(t, err)
	_, err = l.AddExpense(ctx, model.ExpenseInput{CategoryID: "missing", Amount: decimal.NewFromInt(3)})
	require.Error(t, err)
	require.NoError(t, l.DeleteCategory(ctx, c.ID))

	cancel()
	require.NoError(t, l.SaveSettings(ctx, model.DefaultSettings()))

	assert.Equal(t, []EventKind{EventCategoryAdded, EventExpenseAdded, EventCategoryDeleted}, got)
}

func TestEventsCarryState(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newFakeRepo(), newClock())

	var last Event
	l.Subscribe(func(ev Event) { last = ev })
	_, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), last.Revision)
	require.Len(t, last.State.Categories, 1)
}

func TestAutoBackup(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	repo := newFakeRepo()
	l := openLedger(t, repo, clk)

	_, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	assert.Empty(t, repo.snaps, "auto backup is off by default")

	s := l.State().Settings
	s.AutoBackup = true
	require.NoError(t, l.SaveSettings(ctx, s))
	require.Len(t, repo.snaps, 1, "first enabled save backs up right away")
	require.NotNil(t, l.State().Settings.LastBackup)
	assert.True(t, l.State().Settings.LastBackup.Equal(clk.Now()))

	clk.Advance(6 * 24 * time.Hour)
	_, err = l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	assert.Len(t, repo.snaps, 1, "not stale yet")

	clk.Advance(2 * 24 * time.Hour)
	_, err = l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	assert.Len(t, repo.snaps, 2)

	restored, err := backup.Decode(repo.snaps[1].Payload)
	require.NoError(t, err)
	assert.Len(t, restored.Categories, 3)
	assert.Equal(t, uint64(2), l.Status().Backups)
}

func TestAutoBackupOnOpen(t *testing.T) {
	repo := newFakeRepo()
	repo.state.Settings.AutoBackup = true
	l := openLedger(t, repo, newClock())

	assert.Len(t, repo.snaps, 1)
	require.NoError(t, l.Flush(context.Background()))
	assert.NotNil(t, repo.saved().Settings.LastBackup)
}

func TestFailingBackupDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.state.Settings.AutoBackup = true
	repo.snapshotErr = errors.New("read-only filesystem")
	l := openLedger(t, repo, newClock())

	c, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)

	st := l.Status()
	assert.Contains(t, st.BackupError, "read-only filesystem")
	assert.Nil(t, st.LastBackup)

	_, err = l.PerformBackup(ctx)
	assert.Error(t, err)
}

func TestRetention(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	repo := newFakeRepo()
	l := openLedger(t, repo, clk, func(o *Options) { o.Retention = 2 })

	for i := 0; i < 4; i++ {
		_, err := l.PerformBackup(ctx)
		require.NoError(t, err)
		clk.Advance(time.Hour)
	}
	snaps, err := l.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Timestamp.After(snaps[1].Timestamp))

	removed, err := l.PruneSnapshots(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func seed(t *testing.T, l *Ledger) {
	t.Helper()
	ctx := context.Background()
	c, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	r, err := l.AddCategory(ctx, model.CategoryInput{Name: "Rent", Target: decimal.NewFromInt(1200), Frequency: model.Monthly})
	require.NoError(t, err)
	_, err = l.AddExpense(ctx, model.ExpenseInput{CategoryID: c.ID, Amount: decimal.RequireFromString("40.25"), Date: model.NewDate(2024, time.June, 1)})
	require.NoError(t, err)
	_, err = l.AddExpense(ctx, model.ExpenseInput{CategoryID: r.ID, Amount: decimal.NewFromInt(1200), Description: "June"})
	require.NoError(t, err)
	require.NoError(t, l.SaveSettings(ctx, model.Settings{Currency: "EUR", UserName: "Ana"}))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openLedger(t, newFakeRepo(), newClock())
	seed(t, src)

	var buf bytes.Buffer
	require.NoError(t, src.ExportBackup(&buf))

	dst := openLedger(t, newFakeRepo(), newClock())
	var events []EventKind
	dst.Subscribe(func(ev Event) { events = append(events, ev.Kind) })
	require.NoError(t, dst.ImportBackup(ctx, &buf))

	assertSameLedger(t, src.State(), dst.State())
	assert.Equal(t, []EventKind{EventImported}, events)
}

func TestImportUnsupportedVersionLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newFakeRepo(), newClock())
	seed(t, l)
	before := l.State()

	err := l.ImportBackup(ctx, bytes.NewBufferString(`{"version":2,"timestamp":"2024-01-01T00:00:00.000Z","data":{"categories":[],"actualExpenses":[],"settings":{}}}`))
	assert.ErrorIs(t, err, backup.ErrUnsupportedVersion)
	assertSameLedger(t, before, l.State())
}

func TestEncryptedExportImport(t *testing.T) {
	ctx := context.Background()
	src := openLedger(t, newFakeRepo(), newClock())
	seed(t, src)

	var modern, legacy bytes.Buffer
	require.NoError(t, src.ExportEncryptedBackup(&modern, "hunter2"))
	require.NoError(t, src.ExportLegacyEncryptedBackup(&legacy, "hunter2"))

	dst := openLedger(t, newFakeRepo(), newClock())
	before := dst.State()
	err := dst.ImportEncryptedBackup(ctx, bytes.NewReader(modern.Bytes()), "hunter3")
	assert.ErrorIs(t, err, backup.ErrDecryption)
	assertSameLedger(t, before, dst.State())

	require.NoError(t, dst.ImportEncryptedBackup(ctx, bytes.NewReader(modern.Bytes()), "hunter2"))
	assertSameLedger(t, src.State(), dst.State())

	other := openLedger(t, newFakeRepo(), newClock())
	require.NoError(t, other.ImportEncryptedBackup(ctx, &legacy, "hunter2"))
	assertSameLedger(t, src.State(), other.State())

	assert.ErrorIs(t, other.ImportBackup(ctx, bytes.NewReader(modern.Bytes())), backup.ErrFormat)
}

func assertSameLedger(t *testing.T, want, got model.State) {
	t.Helper()
	require.Len(t, got.Categories, len(want.Categories))
	for i := range want.Categories {
		assert.Equal(t, want.Categories[i].ID, got.Categories[i].ID)
		assert.Equal(t, want.Categories[i].Name, got.Categories[i].Name)
		assert.True(t, want.Categories[i].Target.Equal(got.Categories[i].Target))
	}
	require.Len(t, got.Expenses, len(want.Expenses))
	for i := range want.Expenses {
		assert.Equal(t, want.Expenses[i].ID, got.Expenses[i].ID)
		assert.Equal(t, want.Expenses[i].Date, got.Expenses[i].Date)
		assert.True(t, want.Expenses[i].Amount.Equal(got.Expenses[i].Amount))
	}
	assert.Equal(t, want.Settings.Currency, got.Settings.Currency)
	assert.Equal(t, want.Settings.UserName, got.Settings.UserName)
}

func TestHistoricalSeriesValidation(t *testing.T) {
	l := openLedger(t, newFakeRepo(), newClock())
	_, err := l.HistoricalSeries("year", 3, time.Now())
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = l.HistoricalSeries(model.ByDay, 0, time.Now())
	assert.ErrorIs(t, err, model.ErrValidation)

	series, err := l.HistoricalSeries(model.ByDay, 7, time.Now())
	require.NoError(t, err)
	assert.Len(t, series, 7)
}

func TestClosedLedgerRejectsMutations(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newFakeRepo(), newClock())
	require.NoError(t, l.Close(ctx))
	require.NoError(t, l.Close(ctx))

	_, err := l.AddCategory(ctx, groceries())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, "USD", l.State().Settings.Currency, "reads still work")
}

func TestConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	l := openLedger(t, repo, newClock(), func(o *Options) { o.NewID = nil })
	c, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.AddExpense(ctx, model.ExpenseInput{CategoryID: c.ID, Amount: decimal.NewFromInt(1)})
			assert.NoError(t, err)
			_ = l.CurrentWeekTotals(time.Now())
		}()
	}
	wg.Wait()
	require.NoError(t, l.Flush(ctx))

	assert.Len(t, l.State().Expenses, 50)
	assert.Len(t, repo.saved().Expenses, 50)
	assert.True(t, l.CurrentMonthTotals(time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC)).Spent.Equal(decimal.NewFromInt(50)))
}

func TestRestartFromSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	l := openLedger(t, st, newClock(), func(o *Options) { o.NewID = nil })
	seed(t, l)
	_, err = l.PerformBackup(ctx)
	require.NoError(t, err)
	want := l.State()
	require.NoError(t, l.Close(ctx))
	require.NoError(t, st.Close())

	st, err = store.Open(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	again := openLedger(t, st, newClock())

	got := again.State()
	assertSameLedger(t, want, got)
	require.NotNil(t, got.Settings.LastBackup)
	assert.True(t, want.Settings.LastBackup.Equal(*got.Settings.LastBackup))

	snaps, err := again.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	restored, err := backup.Decode(snaps[0].Payload)
	require.NoError(t, err)
	assert.Len(t, restored.Expenses, 2)
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	l := openLedger(t, repo, newClock())
	_, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	require.NoError(t, l.Flush(ctx))

	repo.mu.Lock()
	repo.state.Categories = append(repo.state.Categories, model.Category{ID: "ext", Name: "Added elsewhere", Target: decimal.NewFromInt(5), Frequency: model.Daily})
	repo.mu.Unlock()

	var kinds []EventKind
	l.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
	require.NoError(t, l.Reload(ctx))
	assert.Len(t, l.State().Categories, 2)
	assert.Equal(t, []EventKind{EventReloaded}, kinds)
	assert.False(t, l.Status().Pending)
}

func TestMutationDuringReloadIsKept(t *testing.T) {
	ctx := context.Background()
	repo := newBlockingLoadRepo()
	l := openLedger(t, repo, newClock())
	_, err := l.AddCategory(ctx, groceries())
	require.NoError(t, err)
	require.NoError(t, l.Flush(ctx))

	repo.armed.Store(true)
	reloaded := make(chan error, 1)
	go func() { reloaded <- l.Reload(ctx) }()
	<-repo.entered

	added := make(chan error, 1)
	go func() {
		_, err := l.AddCategory(ctx, model.CategoryInput{Name: "Rent", Target: decimal.NewFromInt(900), Frequency: model.Monthly})
		added <- err
	}()

	select {
	case err := <-added:
		t.Fatalf("mutation committed while reload was loading (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(repo.release)
	require.NoError(t, <-reloaded)
	require.NoError(t, <-added)
	require.NoError(t, l.Flush(ctx))

	assert.Len(t, l.State().Categories, 2)
	assert.Len(t, repo.saved().Categories, 2)
	assert.False(t, l.Status().Pending)
}

func TestMarkCleanKeepsQueuedState(t *testing.T) {
	w := newWriter(newFakeRepo(), logging.Discard(), RetryOptions{}, time.Now)
	st := model.EmptyState()
	w.mu.Lock()
	w.next, w.nextRev = &st, 3
	w.mu.Unlock()

	w.markClean(4)
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.NotNil(t, w.next, "a queued state is only cleared by the writer")
}
