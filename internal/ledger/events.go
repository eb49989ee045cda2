package ledger

import (
	"time"

	"github.com/theirongolddev/expplan/internal/model"
)

// EventKind names what changed the ledger.
type EventKind string

const (
	EventCategoryAdded   EventKind = "category_added"
	EventCategoryDeleted EventKind = "category_deleted"
	EventExpenseAdded    EventKind = "expense_added"
	EventExpenseDeleted  EventKind = "expense_deleted"
	EventSettingsSaved   EventKind = "settings_saved"
	EventImported        EventKind = "imported"
	EventReloaded        EventKind = "reloaded"
	EventBackup          EventKind = "backup"
)

// Event is delivered to subscribers after every committed change.
type Event struct {
	Kind     EventKind
	Revision uint64
	At       time.Time
	State    model.State
}

// Subscribe registers fn for every future event and returns a function
// that unregisters it. fn runs synchronously in commit order and must not
// mutate the ledger.
func (l *Ledger) Subscribe(fn func(Event)) (cancel func()) {
	l.subMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.subMu.Unlock()

	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}

func (l *Ledger) publish(ev Event) {
	l.subMu.Lock()
	fns := make([]func(Event), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
