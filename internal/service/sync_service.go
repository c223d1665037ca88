package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"neuralflow/internal/config"
	"neuralflow/internal/leads"
	"neuralflow/internal/secret"
	"neuralflow/internal/sink"
)

var ErrSyncDisabled = errors.New("lead sync is not configured")

// SinkFactory opens a sink. sink.New in production.
type SinkFactory func(cfg sink.Config, password string, log *zap.Logger) (sink.Sink, error)

// SyncResult describes one push of the lead collection.
type SyncResult struct {
	Driver     sink.Driver `json:"driver"`
	Table      string      `json:"table"`
	Pushed     int         `json:"pushed"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
	Error      string      `json:"error,omitempty"`
}

// ─────────────────────────────────────────────────────────────
// Sync Service: scheduled push of leads to an external sink
// ─────────────────────────────────────────────────────────────

type SyncService struct {
	store   *leads.Store
	secrets secret.SecretStore
	open    SinkFactory
	emitter EventEmitter
	log     *zap.Logger
	guard   jobGuard

	mu        sync.Mutex
	cfg       config.SyncConfig
	cronSched *cron.Cron
	last      *SyncResult
}

func NewSyncService(store *leads.Store, secrets secret.SecretStore, open SinkFactory, emitter EventEmitter, log *zap.Logger) *SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if open == nil {
		open = sink.New
	}
	return &SyncService{
		store:   store,
		secrets: secrets,
		open:    open,
		emitter: emitter,
		log:     log.Named("sync"),
	}
}

// RunOnce pushes every lead to the configured sink. A run already in
// progress makes it return ErrBusy.
func (s *SyncService) RunOnce(ctx context.Context) (*SyncResult, error) {
	if !s.guard.TryLock(jobLeadSync) {
		return nil, ErrBusy
	}
	defer s.guard.Unlock(jobLeadSync)

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	if cfg.Driver == "" {
		return nil, ErrSyncDisabled
	}

	res := &SyncResult{Driver: cfg.Driver, Table: cfg.Table, StartedAt: time.Now()}
	n, err := s.push(ctx, cfg)
	res.Pushed = n
	res.FinishedAt = time.Now()
	if err != nil {
		res.Error = err.Error()
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("lead sync failed", zap.String("driver", string(cfg.Driver)), zap.Error(err))
		s.emitter.Emit(ctx, EventSyncFailed, res)
		return res, err
	}
	s.log.Info("lead sync completed",
		zap.String("driver", string(cfg.Driver)),
		zap.Int("pushed", n),
		zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
	)
	s.emitter.Emit(ctx, EventSyncCompleted, res)
	return res, nil
}

func (s *SyncService) push(ctx context.Context, cfg config.SyncConfig) (int, error) {
	var password string
	if s.secrets != nil {
		pw, err := secret.GetString(s.secrets, secret.KeySinkPassword)
		if err != nil {
			return 0, fmt.Errorf("read sink password: %w", err)
		}
		password = pw
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	snk, err := s.open(cfg.Config, password, s.log)
	if err != nil {
		return 0, fmt.Errorf("open %s sink: %w", cfg.Driver, err)
	}
	defer snk.Close()

	if err := snk.Ping(runCtx); err != nil {
		return 0, fmt.Errorf("ping %s sink: %w", cfg.Driver, err)
	}
	return snk.UpsertLeads(runCtx, s.store.All())
}

// LastResult is the most recent run, or nil before the first.
func (s *SyncService) LastResult() *SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// ── Scheduling ─────────────────────────────────────────────

// Reconfigure stops the current schedule and starts a new one from cfg.
// A disabled config only stores the sink settings for manual runs.
func (s *SyncService) Reconfigure(ctx context.Context, cfg config.SyncConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.cfg = cfg
	if !cfg.Enabled {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, func() {
		s.log.Debug("scheduled lead sync")
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrBusy) {
			s.log.Debug("scheduled lead sync did not complete", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", cfg.Schedule, err)
	}
	c.Start()
	s.cronSched = c
	s.log.Info("lead sync scheduled",
		zap.String("schedule", cfg.Schedule),
		zap.String("driver", string(cfg.Driver)),
	)
	return nil
}

// Scheduled reports whether a cron schedule is active.
func (s *SyncService) Scheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cronSched != nil
}

// WaitRunning blocks until a running sync finishes or ctx is cancelled.
// Used for graceful shutdown.
func (s *SyncService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// Stop tears down the schedule.
func (s *SyncService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *SyncService) stopLocked() {
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
