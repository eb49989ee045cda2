package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/expplan/internal/cli"
	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/model"
)

var (
	flagSettingsCurrency   string
	flagSettingsName       string
	flagSettingsAutoBackup bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change ledger settings",
	RunE:  runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show ledger settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change currency, name or automatic backups",
	RunE:  runSettingsSet,
}

func init() {
	settingsSetCmd.Flags().StringVar(&flagSettingsCurrency, "currency", "", "Display currency code, e.g. EUR")
	settingsSetCmd.Flags().StringVar(&flagSettingsName, "name", "", "Your name for the greeting")
	settingsSetCmd.Flags().BoolVar(&flagSettingsAutoBackup, "auto-backup", false, "Take snapshots automatically")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(_ context.Context, l *ledger.Ledger) error {
		printSettings(l.State().Settings)
		return nil
	})
}

func runSettingsSet(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if !flags.Changed("currency") && !flags.Changed("name") && !flags.Changed("auto-backup") {
		return errors.New("nothing to change: pass --currency, --name or --auto-backup")
	}

	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		s := l.State().Settings
		if flags.Changed("currency") {
			s.Currency = flagSettingsCurrency
		}
		if flags.Changed("name") {
			s.UserName = flagSettingsName
		}
		if flags.Changed("auto-backup") {
			s.AutoBackup = flagSettingsAutoBackup
		}
		if err := l.SaveSettings(ctx, s); err != nil {
			return err
		}
		printSettings(l.State().Settings)
		return nil
	})
}

func printSettings(s model.Settings) {
	currency := s.Currency
	if c, ok := model.LookupCurrency(s.Currency); ok {
		currency = fmt.Sprintf("%s (%s, %s)", c.Code, c.Symbol, c.Name)
	}
	auto := "off"
	if s.AutoBackup {
		auto = "on"
	}
	name := s.UserName
	if name == "" {
		name = cli.Muted("not set")
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title: "Settings",
		Rows: [][]string{
			{"Currency", currency},
			{"Name", name},
			{"Auto-backup", auto},
			{"Last backup", cli.FormatAgo(s.LastBackup, time.Now())},
		},
	}))
}
