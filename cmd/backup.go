package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/expplan/internal/backup"
	"github.com/theirongolddev/expplan/internal/cli"
	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/model"
)

var (
	flagBackupKeep       int
	flagBackupEncrypt    bool
	flagBackupLegacy     bool
	flagBackupYes        bool
	flagBackupNoSnapshot bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshots, exports and restores",
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Append a snapshot of the ledger to the backup history",
	RunE:  runBackupRun,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots, newest first",
	RunE:  runBackupList,
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest snapshots",
	RunE:  runBackupPrune,
}

var backupExportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Write the ledger to a backup file (stdout when FILE is - or omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupExport,
}

var backupImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the ledger with the contents of a backup file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupImport,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore SNAPSHOT",
	Short: "Replace the ledger with a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRestore,
}

func init() {
	backupPruneCmd.Flags().IntVar(&flagBackupKeep, "keep", 0, "Snapshots to keep (default: backup.retention from config)")
	backupExportCmd.Flags().BoolVar(&flagBackupEncrypt, "encrypt", false, "Encrypt with a password")
	backupExportCmd.Flags().BoolVar(&flagBackupLegacy, "legacy", false, "Use the old XOR format (implies --encrypt; weak, for old readers only)")
	for _, c := range []*cobra.Command{backupImportCmd, backupRestoreCmd} {
		c.Flags().BoolVarP(&flagBackupYes, "yes", "y", false, "Replace the ledger without asking")
		c.Flags().BoolVar(&flagBackupNoSnapshot, "no-snapshot", false, "Skip the safety snapshot taken before replacing")
	}

	backupCmd.AddCommand(backupRunCmd, backupListCmd, backupPruneCmd, backupExportCmd, backupImportCmd, backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackupRun(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		snap, err := l.PerformBackup(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  Snapshot %s written (%s)\n", shortID(snap.ID), cli.FormatBytes(len(snap.Payload)))
		return nil
	})
}

func runBackupList(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		snaps, err := l.Snapshots(ctx)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("\n  No snapshots yet. Take one with: expplan backup run")
			return nil
		}

		now := time.Now()
		rows := make([][]string, 0, len(snaps))
		for _, s := range snaps {
			kind := "plain"
			if s.Encrypted {
				kind = "encrypted"
			}
			ts := s.Timestamp
			rows = append(rows, []string{
				shortID(s.ID),
				s.Timestamp.Local().Format("2006-01-02 15:04:05"),
				cli.FormatAgo(&ts, now),
				fmt.Sprintf("v%d", s.Version),
				kind,
				cli.FormatBytes(len(s.Payload)),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Snapshots",
			Headers: []string{"ID", "Taken", "Age", "Format", "Kind", "Size"},
			Rows:    rows,
		}))
		return nil
	})
}

func runBackupPrune(cmd *cobra.Command, _ []string) error {
	keep := flagBackupKeep
	if !cmd.Flags().Changed("keep") {
		keep = appCfg.Backup.Retention
	}
	if keep <= 0 {
		return model.NewValidationError("keep", "must be positive")
	}
	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		n, err := l.PruneSnapshots(ctx, keep)
		if err != nil {
			return err
		}
		fmt.Printf("  Removed %d snapshots, kept up to %d\n", n, keep)
		return nil
	})
}

func runBackupExport(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	encrypt := flagBackupEncrypt || flagBackupLegacy

	var password string
	if encrypt {
		pw, err := backupPassword(true)
		if err != nil {
			return err
		}
		password = pw
	}

	return withLedger(cmd, func(_ context.Context, l *ledger.Ledger) error {
		var buf bytes.Buffer
		var err error
		switch {
		case flagBackupLegacy:
			err = l.ExportLegacyEncryptedBackup(&buf, password)
		case encrypt:
			err = l.ExportEncryptedBackup(&buf, password)
		default:
			err = l.ExportBackup(&buf)
		}
		if err != nil {
			return err
		}

		if path == "-" {
			_, err = os.Stdout.Write(buf.Bytes())
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
			return fmt.Errorf("writing backup: %w", err)
		}
		fmt.Fprintf(os.Stderr, "  Backup written to %s (%s)\n", path, cli.FormatBytes(buf.Len()))
		return nil
	})
}

func runBackupImport(cmd *cobra.Command, args []string) error {
	var (
		b   []byte
		err error
	)
	if args[0] == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}
	return restore(cmd, args[0], b)
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	var payload []byte
	err := withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		snaps, err := l.Snapshots(ctx)
		if err != nil {
			return err
		}
		ids := make([]string, len(snaps))
		for i, s := range snaps {
			ids[i] = s.ID
		}
		id, err := matchID("snapshot", args[0], ids)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			if s.ID == id {
				payload = s.Payload
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return restore(cmd, "snapshot "+shortID(args[0]), payload)
}

// restore replaces the ledger with the backup file b, asking first and
// snapshotting the current ledger unless told otherwise. The file is decoded
// before anything is asked or written, so a bad file leaves no trace.
func restore(cmd *cobra.Command, source string, b []byte) error {
	h, err := backup.Inspect(b)
	if err != nil {
		return err
	}

	var state model.State
	if h.Encrypted {
		password, err := backupPassword(false)
		if err != nil {
			return err
		}
		state, err = backup.DecodeEncrypted(b, password)
		if errors.Is(err, backup.ErrDecryption) {
			return fmt.Errorf("%w (wrong password?)", err)
		}
		if err != nil {
			return err
		}
	} else if state, err = backup.Decode(b); err != nil {
		return err
	}

	if !flagBackupYes {
		ok, err := confirm(fmt.Sprintf("Replace the whole ledger with %s (%d categories, %d expenses)?",
			source, len(state.Categories), len(state.Expenses)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("  Nothing changed.")
			return nil
		}
	}

	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		if !flagBackupNoSnapshot {
			snap, err := l.PerformBackup(ctx)
			if err != nil {
				return fmt.Errorf("safety snapshot failed, nothing changed: %w", err)
			}
			fmt.Printf("  Current ledger saved as snapshot %s\n", shortID(snap.ID))
		}
		if err := l.Restore(ctx, state); err != nil {
			return err
		}
		fmt.Printf("  Restored %d categories and %d expenses from %s\n",
			len(state.Categories), len(state.Expenses), source)
		return nil
	})
}
