package cmd

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/expplan/internal/config"
)

// runForm draws prompts on stderr so stdout stays clean for piped output.
func runForm(f *huh.Form) error {
	err := f.WithProgramOptions(tea.WithOutput(os.Stderr)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errors.New("aborted")
	}
	return err
}

func confirm(question string) (bool, error) {
	var ok bool
	err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	)))
	if err != nil {
		return false, fmt.Errorf("confirmation needed (rerun with --yes): %w", err)
	}
	return ok, nil
}

// backupPassword returns the password from the environment or asks for it.
// With twice set the password must be typed again.
func backupPassword(twice bool) (string, error) {
	if pw := config.BackupPassword(); pw != "" {
		return pw, nil
	}

	var pw, again string
	fields := []huh.Field{
		huh.NewInput().
			Title("Backup password").
			EchoMode(huh.EchoModePassword).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("password required")
				}
				return nil
			}).
			Value(&pw),
	}
	if twice {
		fields = append(fields, huh.NewInput().
			Title("Repeat password").
			EchoMode(huh.EchoModePassword).
			Validate(func(s string) error {
				if s != pw {
					return errors.New("passwords do not match")
				}
				return nil
			}).
			Value(&again))
	}
	if err := runForm(huh.NewForm(huh.NewGroup(fields...))); err != nil {
		return "", fmt.Errorf("reading password (or set %s): %w", config.EnvBackupPassword, err)
	}
	return pw, nil
}
