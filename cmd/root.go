package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/expplan/internal/cli"
	"github.com/theirongolddev/expplan/internal/config"
	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/logging"
	"github.com/theirongolddev/expplan/internal/store"
)

var (
	flagDBPath    string
	flagLogLevel  string
	flagLogFormat string
)

const closeTimeout = 30 * time.Second

var (
	appCfg config.Config
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:               "expplan",
	Short:             "Local-first budget planner",
	Long:              "Plan recurring budgets, record expenses and see what is left this week and month.",
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
	RunE:              runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Ledger database path (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
}

// loadRuntime reads .env and the config file, applies flag overrides and
// installs the logger. It runs before every command.
func loadRuntime(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagDBPath != "" {
		cfg.General.DBPath = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	appCfg = cfg

	logger = logging.New(os.Stderr, logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(logger)
	return nil
}

func ledgerOptions() ledger.Options {
	return ledger.Options{
		Logger:         logger,
		Retention:      appCfg.Backup.Retention,
		BackupInterval: appCfg.BackupInterval(),
	}
}

// withLedger opens the database and ledger, runs fn, and flushes every
// pending write before returning.
func withLedger(cmd *cobra.Command, fn func(ctx context.Context, l *ledger.Ledger) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(appCfg.DBPath())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	l, err := ledger.Open(ctx, st, ledgerOptions())
	if err != nil {
		return err
	}
	defer func() {
		// ctx may already be cancelled by a signal; pending writes still land.
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if cerr := l.Close(closeCtx); cerr != nil && err == nil {
			err = fmt.Errorf("saving ledger: %w", cerr)
		}
		if bErr := l.Status().BackupError; bErr != "" {
			fmt.Fprintln(os.Stderr, cli.Warn("  automatic backup failed: "+bErr))
		}
	}()

	return fn(ctx, l)
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}
