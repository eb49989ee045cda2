// Package ledger owns the in-memory budget ledger: it validates and applies
// mutations, notifies subscribers, persists every change through a single
// writer goroutine, and runs backups.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/expplan/internal/logging"
	"github.com/theirongolddev/expplan/internal/model"
)

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("ledger is closed")

// Repository is the durable side of the ledger. Implementations must be
// safe for concurrent use.
type Repository interface {
	Load(ctx context.Context) (model.State, error)
	Save(ctx context.Context, state model.State) error
	AppendSnapshot(ctx context.Context, snap model.Snapshot) error
	ListSnapshots(ctx context.Context) ([]model.Snapshot, error)
	PruneSnapshots(ctx context.Context, keep int) (int, error)
}

// Options tunes a Ledger. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
	// NewID generates ids; defaults to random UUIDs.
	NewID func() string
	// Retention is how many snapshots to keep. Zero keeps all of them.
	Retention int
	// BackupInterval is the auto-backup staleness threshold.
	BackupInterval time.Duration
	Retry          RetryOptions
}

// Ledger is safe for concurrent use. Mutations are serialized; reads see
// the latest committed state without blocking.
type Ledger struct {
	repo Repository
	log  *slog.Logger
	opts Options

	mu     sync.Mutex // serializes mutations
	closed bool
	state  atomic.Pointer[model.State]
	rev    atomic.Uint64

	subMu   sync.Mutex
	subs    map[uint64]func(Event)
	nextSub uint64

	w *writer

	backupMu  sync.Mutex
	backups   uint64
	backupErr error
}

// Open loads the ledger from repo and starts its writer. An automatic
// backup runs right away when one is due.
func Open(ctx context.Context, repo Repository, opts Options) (*Ledger, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	state, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	l := &Ledger{
		repo: repo,
		log:  logging.Component(opts.Logger, "ledger"),
		opts: opts,
		subs: make(map[uint64]func(Event)),
	}
	l.state.Store(&state)
	l.w = newWriter(repo, l.log, opts.Retry, opts.Now)
	go l.w.run()

	l.log.DebugContext(ctx, "ledger loaded",
		"categories", len(state.Categories),
		"expenses", len(state.Expenses))

	l.autoBackup(ctx)
	return l, nil
}

func (l *Ledger) current() model.State {
	return *l.state.Load()
}

// State returns a copy of the current ledger.
func (l *Ledger) State() model.State {
	return l.current().Clone()
}

// mutate applies fn to a copy of the state and commits it. Validation
// errors from fn leave the ledger untouched.
func (l *Ledger) mutate(ctx context.Context, kind EventKind, fn func(*model.State) error) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	next := l.current().Clone()
	if err := fn(&next); err != nil {
		l.mu.Unlock()
		return err
	}
	l.commitLocked(ctx, kind, next)
	l.mu.Unlock()

	if kind != EventBackup {
		l.autoBackup(ctx)
	}
	return nil
}

// commitLocked swaps in next, queues it for persistence and notifies
// subscribers. l.mu must be held.
func (l *Ledger) commitLocked(ctx context.Context, kind EventKind, next model.State) {
	l.state.Store(&next)
	rev := l.rev.Add(1)
	l.w.enqueue(next, rev)
	l.log.DebugContext(ctx, "ledger changed", "event", string(kind), "revision", rev)
	l.publish(Event{Kind: kind, Revision: rev, At: l.opts.Now(), State: next.Clone()})
}

// AddCategory validates in and appends a new category.
func (l *Ledger) AddCategory(ctx context.Context, in model.CategoryInput) (model.Category, error) {
	if err := in.Validate(); err != nil {
		return model.Category{}, err
	}
	c := model.Category{
		ID:        l.opts.NewID(),
		Name:      strings.TrimSpace(in.Name),
		Target:    in.Target,
		Frequency: in.Frequency,
	}
	err := l.mutate(ctx, EventCategoryAdded, func(s *model.State) error {
		s.Categories = append(s.Categories, c)
		return nil
	})
	if err != nil {
		return model.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes a category and every expense recorded against it.
func (l *Ledger) DeleteCategory(ctx context.Context, id string) error {
	return l.mutate(ctx, EventCategoryDeleted, func(s *model.State) error {
		idx := -1
		for i, c := range s.Categories {
			if c.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("category %q: %w", id, model.ErrNotFound)
		}
		s.Categories = append(s.Categories[:idx], s.Categories[idx+1:]...)

		kept := s.Expenses[:0]
		for _, e := range s.Expenses {
			if e.CategoryID != id {
				kept = append(kept, e)
			}
		}
		s.Expenses = kept
		return nil
	})
}

// AddExpense validates in and records a new expense. A zero date means
// today on the ledger's clock.
func (l *Ledger) AddExpense(ctx context.Context, in model.ExpenseInput) (model.Expense, error) {
	if err := in.Validate(); err != nil {
		return model.Expense{}, err
	}
	e := model.Expense{
		ID:          l.opts.NewID(),
		CategoryID:  strings.TrimSpace(in.CategoryID),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
	}
	if e.Date.IsZero() {
		e.Date = model.DateOf(l.opts.Now())
	}
	err := l.mutate(ctx, EventExpenseAdded, func(s *model.State) error {
		if _, ok := s.Category(e.CategoryID); !ok {
			return model.NewValidationError("categoryId", "does not match any category")
		}
		s.Expenses = append(s.Expenses, e)
		return nil
	})
	if err != nil {
		return model.Expense{}, err
	}
	return e, nil
}

// DeleteExpense removes one expense.
func (l *Ledger) DeleteExpense(ctx context.Context, id string) error {
	return l.mutate(ctx, EventExpenseDeleted, func(s *model.State) error {
		for i, e := range s.Expenses {
			if e.ID == id {
				s.Expenses = append(s.Expenses[:i], s.Expenses[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("expense %q: %w", id, model.ErrNotFound)
	})
}

// SaveSettings replaces the settings record wholesale.
func (l *Ledger) SaveSettings(ctx context.Context, settings model.Settings) error {
	settings.Currency = strings.ToUpper(strings.TrimSpace(settings.Currency))
	if err := model.ValidateSettings(settings); err != nil {
		return err
	}
	if settings.LastBackup != nil {
		t := *settings.LastBackup
		settings.LastBackup = &t
	}
	return l.mutate(ctx, EventSettingsSaved, func(s *model.State) error {
		s.Settings = settings
		return nil
	})
}

// Reload replaces the in-memory state with what the repository holds,
// after pending writes have been flushed. Mutations wait until the swap is
// done, so none can commit between the flush and the load.
func (l *Ledger) Reload(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if err := l.w.wait(ctx, l.rev.Load()); err != nil {
		l.mu.Unlock()
		return err
	}
	state, err := l.repo.Load(ctx)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("reloading ledger: %w", err)
	}

	l.state.Store(&state)
	rev := l.rev.Add(1)
	l.w.markClean(rev)
	l.publish(Event{Kind: EventReloaded, Revision: rev, At: l.opts.Now(), State: state.Clone()})
	l.mu.Unlock()

	l.autoBackup(ctx)
	return nil
}

// Flush waits until everything committed so far has been written, and
// returns the error of the last write if it failed.
func (l *Ledger) Flush(ctx context.Context) error {
	return l.w.wait(ctx, l.rev.Load())
}

// Close flushes pending writes and stops the writer. Later mutations fail
// with ErrClosed; reads keep working.
func (l *Ledger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	err := l.Flush(ctx)
	if stopErr := l.w.stop(ctx); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}
