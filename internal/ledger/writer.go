package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/theirongolddev/expplan/internal/model"
)

// writer persists ledger states on its own goroutine. Only the newest
// queued state is kept: each one is complete, so skipping older ones
// loses nothing.
type writer struct {
	repo  Repository
	log   *slog.Logger
	retry RetryOptions
	now   func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	kick   chan struct{}
	quit   chan struct{}
	done   chan struct{}

	mu        sync.Mutex
	next      *model.State
	nextRev   uint64
	doneRev   uint64 // newest revision written or given up on
	savedRev  uint64 // newest revision written successfully
	lastSaved time.Time
	lastErr   error
	saves     uint64
	failures  uint64
	changed   chan struct{} // closed and replaced after every write
}

func newWriter(repo Repository, log *slog.Logger, retry RetryOptions, now func() time.Time) *writer {
	ctx, cancel := context.WithCancel(context.Background())
	return &writer{
		repo:    repo,
		log:     log,
		retry:   retry,
		now:     now,
		ctx:     ctx,
		cancel:  cancel,
		kick:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		changed: make(chan struct{}),
	}
}

func (w *writer) enqueue(state model.State, rev uint64) {
	w.mu.Lock()
	w.next = &state
	w.nextRev = rev
	w.mu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.kick:
			w.persistNext()
		case <-w.quit:
			w.persistNext()
			return
		}
	}
}

func (w *writer) persistNext() {
	w.mu.Lock()
	state, rev := w.next, w.nextRev
	w.next = nil
	w.mu.Unlock()
	if state == nil {
		return
	}

	start := time.Now()
	err := withRetry(w.ctx, w.log, w.retry, func() error {
		return w.repo.Save(w.ctx, *state)
	})

	w.mu.Lock()
	if rev > w.doneRev {
		w.doneRev = rev
	}
	if err == nil {
		if rev > w.savedRev {
			w.savedRev = rev
		}
		w.lastSaved = w.now()
		w.lastErr = nil
		w.saves++
	} else {
		w.lastErr = err
		w.failures++
	}
	w.broadcastLocked()
	w.mu.Unlock()

	if err != nil {
		w.log.ErrorContext(w.ctx, "persisting ledger failed", "revision", rev, "error", err)
		return
	}
	w.log.DebugContext(w.ctx, "ledger persisted", "revision", rev, "duration", time.Since(start))
}

func (w *writer) broadcastLocked() {
	close(w.changed)
	w.changed = make(chan struct{})
}

// markClean records that the repository already holds revision rev. A
// queued state is never dropped here: it holds a commit the repository
// has not seen.
func (w *writer) markClean(rev uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if rev > w.doneRev {
		w.doneRev = rev
	}
	if rev > w.savedRev {
		w.savedRev = rev
	}
	w.broadcastLocked()
}

// wait blocks until revision rev has been handled.
func (w *writer) wait(ctx context.Context, rev uint64) error {
	for {
		w.mu.Lock()
		if w.doneRev >= rev {
			var err error
			if w.savedRev < rev {
				err = w.lastErr
			}
			w.mu.Unlock()
			return err
		}
		ch := w.changed
		w.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *writer) stop(ctx context.Context) error {
	close(w.quit)
	defer w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type writerStats struct {
	savedRev  uint64
	pending   bool
	lastSaved time.Time
	lastErr   error
	saves     uint64
	failures  uint64
}

func (w *writer) stats() writerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return writerStats{
		savedRev:  w.savedRev,
		pending:   w.next != nil || w.doneRev < w.nextRev,
		lastSaved: w.lastSaved,
		lastErr:   w.lastErr,
		saves:     w.saves,
		failures:  w.failures,
	}
}
