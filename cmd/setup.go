package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/expplan/internal/config"
	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/model"
	"github.com/theirongolddev/expplan/internal/tui/theme"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
		settings := l.State().Settings
		retention := strconv.Itoa(cfg.Backup.Retention)
		themeName := cfg.Appearance.Theme

		currencies := model.Currencies()
		currencyOpts := make([]huh.Option[string], len(currencies))
		for i, c := range currencies {
			currencyOpts[i] = huh.NewOption(fmt.Sprintf("%s  %s  %s", c.Code, c.Symbol, c.Name), c.Code)
		}
		themeOpts := make([]huh.Option[string], len(theme.All))
		for i, t := range theme.All {
			themeOpts[i] = huh.NewOption(t.Name, t.Name)
		}

		fmt.Println()
		fmt.Println("  Welcome to expplan!")
		if n := len(l.State().Categories); n > 0 {
			fmt.Printf("  Your ledger at %s has %d categories.\n", appCfg.DBPath(), n)
		}
		fmt.Println()

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Your name").
					Description("Used for the dashboard greeting. Optional.").
					CharLimit(100).
					Value(&settings.UserName),
				huh.NewSelect[string]().
					Title("Currency").
					Options(currencyOpts...).
					Height(8).
					Value(&settings.Currency),
			),
			huh.NewGroup(
				huh.NewConfirm().
					Title("Take automatic backups?").
					Description(fmt.Sprintf("A snapshot is stored when the last one is %d days old.", cfg.Backup.IntervalDays)).
					Value(&settings.AutoBackup),
				huh.NewInput().
					Title("Snapshots to keep").
					Description("0 keeps every snapshot.").
					Validate(validateRetention).
					Value(&retention),
				huh.NewSelect[string]().
					Title("Dashboard theme").
					Options(themeOpts...).
					Value(&themeName),
			),
		)
		if err := runForm(form); err != nil {
			return err
		}

		if err := l.SaveSettings(ctx, settings); err != nil {
			return err
		}
		cfg.Backup.Retention, _ = strconv.Atoi(strings.TrimSpace(retention))
		cfg.Appearance.Theme = themeName
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Println()
		fmt.Printf("  Saved to %s\n", config.Path())
		fmt.Println("  Run `expplan setup` anytime to reconfigure.")
		fmt.Println()
		return nil
	})
}

func validateRetention(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return errors.New("enter a whole number, 0 or more")
	}
	return nil
}
