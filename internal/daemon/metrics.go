package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	limited  prometheus.Counter
}

// newMetrics registers collectors on a private registry. Ledger figures
// are read at scrape time.
func newMetrics(s *Service) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expplan_events_total",
				Help: "Ledger events published by the daemon",
			},
			[]string{"type"},
		),
		limited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "expplan_http_rate_limited_total",
				Help: "HTTP requests rejected by the rate limiter",
			},
		),
	}

	gauge := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn)
	}
	counter := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, fn)
	}
	snap := func() Snapshot {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.snapshot
	}

	m.registry.MustRegister(
		m.events,
		m.limited,
		gauge("expplan_ledger_revision", "Latest committed ledger revision", func() float64 {
			return float64(s.ledger.Status().Revision)
		}),
		gauge("expplan_ledger_saved_revision", "Latest revision written to disk", func() float64 {
			return float64(s.ledger.Status().SavedRevision)
		}),
		counter("expplan_ledger_saves_total", "Successful ledger writes", func() float64 {
			return float64(s.ledger.Status().Saves)
		}),
		counter("expplan_ledger_save_failures_total", "Failed ledger writes", func() float64 {
			return float64(s.ledger.Status().SaveFailures)
		}),
		counter("expplan_backups_total", "Snapshots taken by this process", func() float64 {
			return float64(s.ledger.Status().Backups)
		}),
		gauge("expplan_last_backup_timestamp_seconds", "Unix time of the last backup, 0 if never", func() float64 {
			if lb := s.ledger.Status().LastBackup; lb != nil {
				return float64(lb.Unix())
			}
			return 0
		}),
		gauge("expplan_expenses", "Recorded expenses", func() float64 {
			return float64(snap().Expenses)
		}),
		gauge("expplan_categories", "Budget categories", func() float64 {
			return float64(snap().Categories)
		}),
		gauge("expplan_month_spent", "Spent in the current calendar month", func() float64 {
			return snap().MonthSpent.InexactFloat64()
		}),
		gauge("expplan_month_budget", "Forecast budget for a month", func() float64 {
			return snap().MonthBudget.InexactFloat64()
		}),
		gauge("expplan_week_spent", "Spent in the last seven days", func() float64 {
			return snap().WeekSpent.InexactFloat64()
		}),
		gauge("expplan_week_budget", "Forecast budget for a week", func() float64 {
			return snap().WeekBudget.InexactFloat64()
		}),
	)
	return m
}
