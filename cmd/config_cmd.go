// Package cmd implements the expplan CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/expplan/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Database:        %s\n", cfg.DBPath())
	fmt.Println()

	fmt.Println("  [Backup]")
	if cfg.Backup.Retention == 0 {
		fmt.Println("    Retention:       unlimited")
	} else {
		fmt.Printf("    Retention:       %d snapshots\n", cfg.Backup.Retention)
	}
	fmt.Printf("    Interval:        %d days\n", cfg.Backup.IntervalDays)
	if config.BackupPassword() != "" {
		fmt.Printf("    Password:        set via %s\n", config.EnvBackupPassword)
	} else {
		fmt.Println("    Password:        prompted when needed")
	}
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level:           %s\n", cfg.Log.Level)
	fmt.Printf("    Format:          %s\n", cfg.Log.Format)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:         %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval:        %s\n", cfg.DaemonInterval())
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:           %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `expplan setup` to reconfigure.")
	return nil
}
