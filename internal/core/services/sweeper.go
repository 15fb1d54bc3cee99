package services

import (
	"context"
	"sync"
	"time"

	"rosterbot/internal/core/ports"

	"go.uber.org/zap"
)

// SessionSweeper evicts junior sessions past their TTL. It runs on a wall
// clock ticker and can also be triggered inline by the dispatcher.
type SessionSweeper struct {
	roster   ports.RosterService
	tracker  *ConversationTracker
	ttl      time.Duration
	interval time.Duration
	lock     sync.Locker
	metrics  ports.Metrics
	logger   *zap.SugaredLogger
	stopChan chan struct{}
	stopOnce sync.Once
}

// SweeperConfig contains sweeper configuration
type SweeperConfig struct {
	SessionTTL time.Duration
	Interval   time.Duration
	// Lock, when set, is held around ticker-driven sweeps so they do not
	// interleave with event processing.
	Lock    sync.Locker
	Metrics ports.Metrics
}

func NewSessionSweeper(roster ports.RosterService, tracker *ConversationTracker, cfg SweeperConfig, logger *zap.SugaredLogger) *SessionSweeper {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Metrics == nil {
		cfg.Metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SessionSweeper{
		roster:   roster,
		tracker:  tracker,
		ttl:      cfg.SessionTTL,
		interval: cfg.Interval,
		lock:     cfg.Lock,
		metrics:  cfg.Metrics,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start sweeps once immediately and then on every tick until ctx is done or
// Stop is called.
func (s *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runLocked(ctx)

	for {
		select {
		case <-ticker.C:
			s.runLocked(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *SessionSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *SessionSweeper) runLocked(ctx context.Context) {
	if s.lock != nil {
		s.lock.Lock()
		defer s.lock.Unlock()
	}
	s.RunOnce(ctx)
}

// RunOnce performs one sweep. Failures are logged; the next run retries.
func (s *SessionSweeper) RunOnce(ctx context.Context) {
	evicted, err := s.roster.SweepExpired(ctx, s.ttl)
	if err != nil {
		s.logger.Errorw("failed to sweep expired sessions", "error", err)
	} else if len(evicted) > 0 {
		s.logger.Infow("expired sessions evicted", "count", len(evicted), "user_ids", evicted)
	}

	if s.tracker != nil {
		if purged := s.tracker.PurgeExpired(); purged > 0 {
			s.logger.Debugw("stale prompts purged", "count", purged)
		}
		s.metrics.SetPendingPrompts(s.tracker.Len())
	}
}
