package ledger

import (
	"time"
)

// Status is the durability report behind a "last saved" indicator.
type Status struct {
	Revision      uint64     `json:"revision"`
	SavedRevision uint64     `json:"saved_revision"`
	Pending       bool       `json:"pending"`
	LastSaved     time.Time  `json:"last_saved"`
	SaveError     string     `json:"save_error,omitempty"`
	Saves         uint64     `json:"saves"`
	SaveFailures  uint64     `json:"save_failures"`
	LastBackup    *time.Time `json:"last_backup,omitempty"`
	BackupError   string     `json:"backup_error,omitempty"`
	Backups       uint64     `json:"backups"`
}

// Status reports how far persistence and backups have got.
func (l *Ledger) Status() Status {
	ws := l.w.stats()
	st := Status{
		Revision:      l.rev.Load(),
		SavedRevision: ws.savedRev,
		Pending:       ws.pending,
		LastSaved:     ws.lastSaved,
		Saves:         ws.saves,
		SaveFailures:  ws.failures,
	}
	if lb := l.current().Settings.LastBackup; lb != nil {
		t := *lb
		st.LastBackup = &t
	}
	if ws.lastErr != nil {
		st.SaveError = ws.lastErr.Error()
	}

	l.backupMu.Lock()
	st.Backups = l.backups
	if l.backupErr != nil {
		st.BackupError = l.backupErr.Error()
	}
	l.backupMu.Unlock()
	return st
}
