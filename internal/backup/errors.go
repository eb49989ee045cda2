package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedVersion matches every *UnsupportedVersionError.
	ErrUnsupportedVersion = errors.New("unsupported backup version")
	// ErrDecryption covers a wrong password and a corrupted encrypted file alike.
	ErrDecryption = errors.New("could not decrypt backup")
	// ErrFormat is returned for files that are not backups of the expected kind.
	ErrFormat = errors.New("malformed backup file")
)

// UnsupportedVersionError reports a backup written by a newer or unknown format.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported backup version %d (want %d)", e.Version, Version)
}

func (e *UnsupportedVersionError) Unwrap() error {
	return ErrUnsupportedVersion
}

func formatErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

func decryptErr(err error) error {
	return fmt.Errorf("%w: %v", ErrDecryption, err)
}
