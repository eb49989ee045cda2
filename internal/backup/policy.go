package backup

import (
	"time"

	"github.com/theirongolddev/expplan/internal/model"
)

const (
	// DefaultInterval is how stale the last backup may get before an
	// automatic one runs.
	DefaultInterval = 7 * 24 * time.Hour
	// DefaultRetention is how many snapshots are kept.
	DefaultRetention = 30
)

// Due reports whether an automatic backup should run at now.
func Due(s model.Settings, now time.Time, interval time.Duration) bool {
	if !s.AutoBackup {
		return false
	}
	if s.LastBackup == nil {
		return true
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return now.Sub(*s.LastBackup) > interval
}
