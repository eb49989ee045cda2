package ledger

import (
	"context"
	"fmt"
	"io"

	"github.com/theirongolddev/expplan/internal/backup"
	"github.com/theirongolddev/expplan/internal/model"
)

// PerformBackup appends a snapshot of the current ledger to the backup
// history, stamps settings.lastBackup and applies the retention policy.
func (l *Ledger) PerformBackup(ctx context.Context) (model.Snapshot, error) {
	snap, err := l.performBackup(ctx)
	l.backupMu.Lock()
	if err != nil {
		l.backupErr = err
	} else {
		l.backupErr = nil
		l.backups++
	}
	l.backupMu.Unlock()
	return snap, err
}

func (l *Ledger) performBackup(ctx context.Context) (model.Snapshot, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return model.Snapshot{}, ErrClosed
	}
	now := l.opts.Now()
	state := l.current()
	payload, err := backup.Encode(state, now)
	if err != nil {
		l.mu.Unlock()
		return model.Snapshot{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	snap := model.Snapshot{
		ID:        l.opts.NewID(),
		Timestamp: now,
		Version:   backup.Version,
		Payload:   payload,
	}
	if err := l.repo.AppendSnapshot(ctx, snap); err != nil {
		l.mu.Unlock()
		return model.Snapshot{}, fmt.Errorf("storing snapshot: %w", err)
	}

	next := state.Clone()
	next.Settings.LastBackup = &now
	l.commitLocked(ctx, EventBackup, next)
	l.mu.Unlock()

	l.log.InfoContext(ctx, "backup created", "snapshot", snap.ID, "bytes", len(payload))

	if l.opts.Retention > 0 {
		n, err := l.repo.PruneSnapshots(ctx, l.opts.Retention)
		if err != nil {
			l.log.WarnContext(ctx, "pruning backups failed", "error", err)
		} else if n > 0 {
			l.log.InfoContext(ctx, "pruned old backups", "removed", n, "kept", l.opts.Retention)
		}
	}
	return snap, nil
}

// autoBackup runs a backup when the settings ask for one and the last is
// stale. Failures are logged and reported through Status only.
func (l *Ledger) autoBackup(ctx context.Context) {
	if !backup.Due(l.current().Settings, l.opts.Now(), l.opts.BackupInterval) {
		return
	}
	if _, err := l.PerformBackup(ctx); err != nil {
		l.log.WarnContext(ctx, "automatic backup failed", "error", err)
	}
}

// Snapshots lists the backup history, newest first.
func (l *Ledger) Snapshots(ctx context.Context) ([]model.Snapshot, error) {
	return l.repo.ListSnapshots(ctx)
}

// PruneSnapshots keeps the newest keep snapshots and returns how many
// were removed.
func (l *Ledger) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	return l.repo.PruneSnapshots(ctx, keep)
}

// ExportBackup writes the current ledger as a plaintext backup file.
func (l *Ledger) ExportBackup(w io.Writer) error {
	b, err := backup.Encode(l.current(), l.opts.Now())
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ExportEncryptedBackup writes the current ledger encrypted with a key
// derived from password.
func (l *Ledger) ExportEncryptedBackup(w io.Writer, password string) error {
	b, err := backup.EncodeEncrypted(l.current(), l.opts.Now(), password)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ExportLegacyEncryptedBackup writes the XOR-obfuscated format older
// releases read. Prefer ExportEncryptedBackup.
func (l *Ledger) ExportLegacyEncryptedBackup(w io.Writer, password string) error {
	b, err := backup.EncodeLegacy(l.current(), l.opts.Now(), password)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ImportBackup replaces the whole ledger with a plaintext backup file.
// On any error the ledger is unchanged.
func (l *Ledger) ImportBackup(ctx context.Context, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}
	state, err := backup.Decode(b)
	if err != nil {
		return err
	}
	return l.replace(ctx, state)
}

// ImportEncryptedBackup replaces the whole ledger with an encrypted
// backup file. On any error the ledger is unchanged.
func (l *Ledger) ImportEncryptedBackup(ctx context.Context, r io.Reader, password string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}
	state, err := backup.DecodeEncrypted(b, password)
	if err != nil {
		return err
	}
	return l.replace(ctx, state)
}

// Restore replaces the whole ledger with an already decoded state.
func (l *Ledger) Restore(ctx context.Context, state model.State) error {
	return l.replace(ctx, state.Clone())
}

func (l *Ledger) replace(ctx context.Context, state model.State) error {
	err := l.mutate(ctx, EventImported, func(s *model.State) error {
		*s = state
		return nil
	})
	if err != nil {
		return err
	}
	l.log.InfoContext(ctx, "backup imported",
		"categories", len(state.Categories),
		"expenses", len(state.Expenses))
	return nil
}
