// Package server runs the long-lived portfolio status service: it keeps an
// up-to-date earned value snapshot and serves it over HTTP and SSE.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/store"

	"go.uber.org/zap"
)

// Config controls the service runtime behavior.
type Config struct {
	Source     evm.Source
	Thresholds evm.Thresholds
	// DBPath is watched for writes; empty disables the watcher.
	DBPath       string
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Log          *zap.Logger
}

// Snapshot is a compact portfolio state for status and event payloads.
type Snapshot struct {
	At          time.Time `json:"at"`
	Projects    int       `json:"projects"`
	WithData    int       `json:"with_data"`
	TotalBudget float64   `json:"total_budget"`
	TotalPV     float64   `json:"total_pv"`
	TotalEV     float64   `json:"total_ev"`
	TotalAC     float64   `json:"total_ac"`
	CPI         float64   `json:"cpi"`
	SPI         float64   `json:"spi"`
	Ahead       int       `json:"ahead"`
	OnTrack     int       `json:"on_track"`
	Behind      int       `json:"behind"`
}

// Delta captures snapshot changes between polls.
type Delta struct {
	Projects int     `json:"projects"`
	WithData int     `json:"with_data"`
	PV       float64 `json:"pv"`
	EV       float64 `json:"ev"`
	AC       float64 `json:"ac"`
	Ahead    int     `json:"ahead"`
	OnTrack  int     `json:"on_track"`
	Behind   int     `json:"behind"`
}

func (d Delta) isZero() bool {
	return d.Projects == 0 &&
		d.WithData == 0 &&
		d.PV == 0 &&
		d.EV == 0 &&
		d.AC == 0 &&
		d.Ahead == 0 &&
		d.OnTrack == 0 &&
		d.Behind == 0
}

// Event types.
const (
	EventSnapshot = "snapshot"
	EventDelta    = "portfolio_delta"
)

// Event is emitted whenever the portfolio snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	Database        string    `json:"database,omitempty"`
	Watching        bool      `json:"watching"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// ProjectView is served at /v1/projects/{name}.
type ProjectView struct {
	Name    string   `json:"name"`
	HasData bool     `json:"has_data"`
	KPI     *evm.KPI `json:"kpi,omitempty"`
}

// Service provides the status runtime and HTTP API.
type Service struct {
	cfg  Config
	calc *evm.Calculator
	log  *zap.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	watching    bool
	hasSnapshot bool
	snapshot    Snapshot
	portfolio   evm.Portfolio
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	return &Service{
		cfg:       cfg,
		calc:      evm.New(cfg.Source, cfg.Thresholds),
		log:       cfg.Log,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /v1/projects/{name}", s.handleProject)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	return mux
}

// Run starts HTTP endpoints, the database watcher and polling until ctx is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("status server listening", zap.String("addr", s.cfg.Addr))

	// The watcher is stopped before waiting on it, on every return path.
	var wg sync.WaitGroup
	defer wg.Wait()
	wake := make(chan struct{}, 1)
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if s.cfg.DBPath != "" {
		w, err := newWatcher(s.cfg.DBPath, s.log)
		if err != nil {
			s.log.Warn("database watcher disabled", zap.Error(err))
		} else {
			s.setWatching(true)
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.run(watchCtx, wake)
			}()
		}
	}

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stopWatch()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case <-wake:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("status http server: %w", err)
		}
	}
}

func (s *Service) setWatching(v bool) {
	s.mu.Lock()
	s.watching = v
	s.mu.Unlock()
}

func (s *Service) pollOnce(ctx context.Context) {
	pf, err := s.calc.Portfolio(ctx)
	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.log.Warn("portfolio poll failed", zap.Error(err))
		return
	}

	snap := snapshotFromPortfolio(pf, now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.portfolio = pf
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: EventSnapshot, Timestamp: now, Snapshot: snap}
		publish = true
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: EventDelta, Timestamp: now, Snapshot: snap, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.log.Debug("portfolio event",
			zap.Int64("id", ev.ID),
			zap.String("type", ev.Type),
			zap.Int("projects", snap.Projects),
		)
		s.publishEvent(ev)
	}
}

func snapshotFromPortfolio(pf evm.Portfolio, at time.Time) Snapshot {
	return Snapshot{
		At:          at,
		Projects:    pf.Projects,
		WithData:    pf.WithData,
		TotalBudget: pf.TotalBudget,
		TotalPV:     pf.TotalPV,
		TotalEV:     pf.TotalEV,
		TotalAC:     pf.TotalAC,
		CPI:         pf.CPI,
		SPI:         pf.SPI,
		Ahead:       pf.StatusCounts[model.StatusAhead],
		OnTrack:     pf.StatusCounts[model.StatusOnTrack],
		Behind:      pf.StatusCounts[model.StatusBehind],
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Projects: curr.Projects - prev.Projects,
		WithData: curr.WithData - prev.WithData,
		PV:       curr.TotalPV - prev.TotalPV,
		EV:       curr.TotalEV - prev.TotalEV,
		AC:       curr.TotalAC - prev.TotalAC,
		Ahead:    curr.Ahead - prev.Ahead,
		OnTrack:  curr.OnTrack - prev.OnTrack,
		Behind:   curr.Behind - prev.Behind,
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
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Database:        s.cfg.DBPath,
		Watching:        s.watching,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handlePortfolio(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	pf, ok := s.portfolio, s.hasSnapshot
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "portfolio not loaded yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, pf)
}

func (s *Service) handleProject(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	k, ok, err := s.calc.Project(name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, fmt.Sprintf("project %q not found", name), http.StatusNotFound)
		return
	case err != nil:
		s.log.Warn("project lookup failed", zap.String("project", name), zap.Error(err))
		http.Error(w, "project lookup failed", http.StatusInternalServerError)
		return
	}
	view := ProjectView{Name: name, HasData: ok}
	if ok {
		view.KPI = &k
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
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
		Type:      EventSnapshot,
		Timestamp: time.Now(),
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
