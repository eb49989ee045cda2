// Package daemon provides the long-running ledger service: it keeps the
// auto-backup policy ticking and exposes status, events and metrics over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/expplan/internal/ledger"
	"github.com/theirongolddev/expplan/internal/logging"
	"github.com/theirongolddev/expplan/internal/model"
	"github.com/theirongolddev/expplan/internal/pipeline"
)

// Ledger is the part of *ledger.Ledger the daemon drives.
type Ledger interface {
	State() model.State
	Status() ledger.Status
	Reload(ctx context.Context) error
	Subscribe(fn func(ledger.Event)) (cancel func())
}

// Config controls the daemon runtime behavior.
type Config struct {
	DBPath       string
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	// RateLimit and Burst bound requests per client address.
	RateLimit rate.Limit
	Burst     int
	Logger    *slog.Logger
	Now       func() time.Time
}

// Snapshot is a compact ledger state for status/event payloads.
type Snapshot struct {
	At          time.Time       `json:"at"`
	Currency    string          `json:"currency"`
	Categories  int             `json:"categories"`
	Expenses    int             `json:"expenses"`
	MonthBudget decimal.Decimal `json:"month_budget"`
	MonthSpent  decimal.Decimal `json:"month_spent"`
	WeekBudget  decimal.Decimal `json:"week_budget"`
	WeekSpent   decimal.Decimal `json:"week_spent"`
}

// Delta captures snapshot deltas between events.
type Delta struct {
	Categories int             `json:"categories"`
	Expenses   int             `json:"expenses"`
	MonthSpent decimal.Decimal `json:"month_spent"`
	WeekSpent  decimal.Decimal `json:"week_spent"`
}

func (d Delta) isZero() bool {
	return d.Categories == 0 &&
		d.Expenses == 0 &&
		d.MonthSpent.IsZero() &&
		d.WeekSpent.IsZero()
}

// Event is emitted whenever the ledger changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Revision  uint64    `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time     `json:"started_at"`
	LastTickAt      time.Time     `json:"last_tick_at"`
	TickIntervalSec int           `json:"tick_interval_sec"`
	TickCount       int64         `json:"tick_count"`
	DBPath          string        `json:"db_path"`
	Summary         Snapshot      `json:"summary"`
	Ledger          ledger.Status `json:"ledger"`
	LastError       string        `json:"last_error,omitempty"`
	EventCount      int           `json:"event_count"`
	SubscriberCount int           `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	ledger  Ledger
	log     *slog.Logger
	metrics *metrics

	mu          sync.RWMutex
	startedAt   time.Time
	lastTickAt  time.Time
	tickCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service over l with the provided config.
func New(l Ledger, cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.Burst < 1 {
		cfg.Burst = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Service{
		cfg:       cfg,
		ledger:    l,
		log:       logging.Component(cfg.Logger, "daemon"),
		startedAt: cfg.Now(),
		subs:      make(map[int]chan Event),
	}
	s.metrics = newMetrics(s)
	return s
}

// Handler returns the HTTP API, rate limited per client.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	return newRateLimiter(s.cfg.RateLimit, s.cfg.Burst, s.cfg.Now).wrap(mux, s.metrics.limited)
}

// Run serves HTTP and reloads the ledger every interval until ctx is
// canceled. Each reload gives the auto-backup policy a chance to fire.
func (s *Service) Run(ctx context.Context) error {
	cancel := s.ledger.Subscribe(s.observe)
	defer cancel()

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Seed initial snapshot so status is useful immediately.
	s.observe(ledger.Event{Kind: "snapshot", Revision: s.ledger.Status().Revision, At: s.cfg.Now(), State: s.ledger.State()})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.InfoContext(gctx, "daemon listening", "addr", s.cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("daemon http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.tick(gctx)
			}
		}
	})
	return g.Wait()
}

func (s *Service) tick(ctx context.Context) {
	err := s.ledger.Reload(ctx)

	s.mu.Lock()
	s.lastTickAt = s.cfg.Now()
	s.tickCount++
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.log.WarnContext(ctx, "reload failed", "err", err)
	}
}

// observe runs inside the ledger's commit path, so it only touches the
// service's own state.
func (s *Service) observe(ev ledger.Event) {
	snap := snapshotFromState(ev.State, ev.At)

	var (
		out     Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot
	s.hasSnapshot = true
	s.snapshot = snap

	delta := diffSnapshots(prev, snap)
	switch {
	case !prevExists:
		out = Event{Type: "snapshot"}
		publish = true
	case ev.Kind == ledger.EventReloaded && delta.isZero():
		// Periodic reloads that change nothing are not news.
	default:
		out = Event{Type: string(ev.Kind), Delta: delta}
		publish = true
	}
	if publish {
		s.nextEventID++
		out.ID = s.nextEventID
		out.Revision = ev.Revision
		out.Timestamp = ev.At
		out.Snapshot = snap
	}
	s.mu.Unlock()

	if publish {
		s.metrics.events.WithLabelValues(out.Type).Inc()
		s.publishEvent(out)
	}
}

func snapshotFromState(state model.State, at time.Time) Snapshot {
	ov := pipeline.Overview(state.Categories, state.Expenses, at)
	return Snapshot{
		At:          at,
		Currency:    state.Settings.Currency,
		Categories:  len(state.Categories),
		Expenses:    len(state.Expenses),
		MonthBudget: ov.Month.Budget,
		MonthSpent:  ov.Month.Spent,
		WeekBudget:  ov.Week.Budget,
		WeekSpent:   ov.Week.Spent,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Categories: curr.Categories - prev.Categories,
		Expenses:   curr.Expenses - prev.Expenses,
		MonthSpent: curr.MonthSpent.Sub(prev.MonthSpent),
		WeekSpent:  curr.WeekSpent.Sub(prev.WeekSpent),
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	ls := s.ledger.Status()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastTickAt:      s.lastTickAt,
		TickIntervalSec: int(s.cfg.Interval.Seconds()),
		TickCount:       s.tickCount,
		DBPath:          s.cfg.DBPath,
		Summary:         s.snapshot,
		Ledger:          ls,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: s.cfg.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

