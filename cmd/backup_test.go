package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/expplan/internal/backup"
	"github.com/theirongolddev/expplan/internal/config"
	"github.com/theirongolddev/expplan/internal/model"
	"github.com/theirongolddev/expplan/internal/store"
)

func setupRestore(t *testing.T) string {
	t.Helper()
	prevCfg, prevYes, prevNoSnap := appCfg, flagBackupYes, flagBackupNoSnapshot
	t.Cleanup(func() {
		appCfg, flagBackupYes, flagBackupNoSnapshot = prevCfg, prevYes, prevNoSnap
	})

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	appCfg = config.DefaultConfig()
	appCfg.General.DBPath = dbPath
	flagBackupYes = true
	flagBackupNoSnapshot = false
	return dbPath
}

func storedLedger(t *testing.T, dbPath string) (model.State, []model.Snapshot) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	state, err := st.Load(ctx)
	require.NoError(t, err)
	snaps, err := st.ListSnapshots(ctx)
	require.NoError(t, err)
	return state, snaps
}

func restoreFixture() model.State {
	s := model.EmptyState()
	s.Categories = []model.Category{{
		ID:        "c1",
		Name:      "Groceries",
		Target:    decimal.NewFromInt(100),
		Frequency: model.Weekly,
	}}
	return s
}

func TestRestoreRejectsBadFileWithoutSnapshot(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	encrypted, err := backup.EncodeEncrypted(restoreFixture(), at, "right")
	require.NoError(t, err)

	tests := []struct {
		name     string
		file     []byte
		password string
		errIs    error
	}{
		{
			name:  "unsupported version",
			file:  []byte(`{"version":2,"timestamp":"2024-03-01T12:00:00.000Z","data":{"categories":[],"actualExpenses":[],"settings":{}}}`),
			errIs: backup.ErrUnsupportedVersion,
		},
		{
			name:     "wrong password",
			file:     encrypted,
			password: "wrong",
			errIs:    backup.ErrDecryption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := setupRestore(t)
			t.Setenv(config.EnvBackupPassword, tt.password)

			err := restore(&cobra.Command{}, "file", tt.file)
			require.ErrorIs(t, err, tt.errIs)

			state, snaps := storedLedger(t, dbPath)
			assert.Empty(t, snaps)
			assert.Nil(t, state.Settings.LastBackup)
			assert.Empty(t, state.Categories)
		})
	}
}

func TestRestoreSnapshotsThenReplaces(t *testing.T) {
	dbPath := setupRestore(t)
	t.Setenv(config.EnvBackupPassword, "right")

	file, err := backup.EncodeEncrypted(restoreFixture(), time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), "right")
	require.NoError(t, err)

	require.NoError(t, restore(&cobra.Command{}, "file", file))

	state, snaps := storedLedger(t, dbPath)
	assert.Len(t, snaps, 1)
	require.Len(t, state.Categories, 1)
	assert.Equal(t, "Groceries", state.Categories[0].Name)
}
