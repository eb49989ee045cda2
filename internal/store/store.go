// Package store persists the ledger and its backup history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/expplan/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// settingsKey is the primary key of the single settings row.
const settingsKey = "default"

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// PersistenceError reports a failed read or write of the database.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func fail(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// Store provides SQLite-backed ledger persistence.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath and applies migrations.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}

	return &Store{db: db}, nil
}

func newWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads categories, expenses and settings. A fresh database yields
// an empty state with default settings.
func (s *Store) Load(ctx context.Context) (model.State, error) {
	state := model.EmptyState()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, target, frequency FROM categories ORDER BY position")
	if err != nil {
		return state, fail("load categories", err)
	}
	for rows.Next() {
		var c model.Category
		var target string
		if err := rows.Scan(&c.ID, &c.Name, &target, &c.Frequency); err != nil {
			_ = rows.Close()
			return state, fail("load categories", err)
		}
		if c.Target, err = decimal.NewFromString(target); err != nil {
			_ = rows.Close()
			return state, fail("load categories", fmt.Errorf("category %s target: %w", c.ID, err))
		}
		state.Categories = append(state.Categories, c)
	}
	if err := closeRows(rows); err != nil {
		return state, fail("load categories", err)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, category_id, amount, description, date FROM expenses ORDER BY position")
	if err != nil {
		return state, fail("load expenses", err)
	}
	for rows.Next() {
		var e model.Expense
		var amount, date string
		if err := rows.Scan(&e.ID, &e.CategoryID, &amount, &e.Description, &date); err != nil {
			_ = rows.Close()
			return state, fail("load expenses", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			_ = rows.Close()
			return state, fail("load expenses", fmt.Errorf("expense %s amount: %w", e.ID, err))
		}
		if e.Date, err = model.ParseDate(date); err != nil {
			_ = rows.Close()
			return state, fail("load expenses", err)
		}
		state.Expenses = append(state.Expenses, e)
	}
	if err := closeRows(rows); err != nil {
		return state, fail("load expenses", err)
	}

	var (
		st         model.Settings
		autoBackup int
		lastBackup sql.NullString
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT currency, user_name, auto_backup, last_backup FROM settings WHERE key = ?", settingsKey,
	).Scan(&st.Currency, &st.UserName, &autoBackup, &lastBackup)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return state, nil
	case err != nil:
		return state, fail("load settings", err)
	}
	st.AutoBackup = autoBackup != 0
	if lastBackup.Valid && lastBackup.String != "" {
		t, err := time.Parse(timeLayout, lastBackup.String)
		if err != nil {
			return state, fail("load settings", fmt.Errorf("last backup: %w", err))
		}
		st.LastBackup = &t
	}
	state.Settings = st

	return state, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}

// Save replaces all three collections in one transaction.
func (s *Store) Save(ctx context.Context, state model.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail("save", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses"); err != nil {
		return fail("save", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM categories"); err != nil {
		return fail("save", err)
	}

	for i, c := range state.Categories {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO categories (id, name, target, frequency, position) VALUES (?, ?, ?, ?, ?)",
			c.ID, c.Name, c.Target.String(), string(c.Frequency), i,
		); err != nil {
			return fail("save", fmt.Errorf("category %s: %w", c.ID, err))
		}
	}

	for i, e := range state.Expenses {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO expenses (id, category_id, amount, description, date, position) VALUES (?, ?, ?, ?, ?, ?)",
			e.ID, e.CategoryID, e.Amount.String(), e.Description, e.Date.String(), i,
		); err != nil {
			return fail("save", fmt.Errorf("expense %s: %w", e.ID, err))
		}
	}

	var lastBackup any
	if st := state.Settings; st.LastBackup != nil {
		lastBackup = st.LastBackup.UTC().Format(timeLayout)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, currency, user_name, auto_backup, last_backup)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			currency = excluded.currency,
			user_name = excluded.user_name,
			auto_backup = excluded.auto_backup,
			last_backup = excluded.last_backup`,
		settingsKey, state.Settings.Currency, state.Settings.UserName, boolInt(state.Settings.AutoBackup), lastBackup,
	); err != nil {
		return fail("save", fmt.Errorf("settings: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return fail("save", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AppendSnapshot adds a snapshot to the backup history.
func (s *Store) AppendSnapshot(ctx context.Context, snap model.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO backups (id, timestamp, version, payload, encrypted) VALUES (?, ?, ?, ?, ?)",
		snap.ID, snap.Timestamp.UTC().Format(timeLayout), snap.Version, snap.Payload, boolInt(snap.Encrypted),
	)
	if err != nil {
		return fail("append snapshot", err)
	}
	return nil
}

// ListSnapshots returns the backup history, newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, timestamp, version, payload, encrypted FROM backups ORDER BY timestamp DESC, rowid DESC")
	if err != nil {
		return nil, fail("list snapshots", err)
	}

	var snaps []model.Snapshot
	for rows.Next() {
		var (
			snap      model.Snapshot
			ts        string
			encrypted int
		)
		if err := rows.Scan(&snap.ID, &ts, &snap.Version, &snap.Payload, &encrypted); err != nil {
			_ = rows.Close()
			return nil, fail("list snapshots", err)
		}
		if snap.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			_ = rows.Close()
			return nil, fail("list snapshots", fmt.Errorf("snapshot %s timestamp: %w", snap.ID, err))
		}
		snap.Encrypted = encrypted != 0
		snaps = append(snaps, snap)
	}
	if err := closeRows(rows); err != nil {
		return nil, fail("list snapshots", err)
	}
	return snaps, nil
}

// PruneSnapshots deletes all but the newest keep snapshots and returns how
// many were removed. keep <= 0 keeps everything.
func (s *Store) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM backups WHERE id NOT IN (
			SELECT id FROM backups ORDER BY timestamp DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fail("prune snapshots", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fail("prune snapshots", err)
	}
	return int(n), nil
}
