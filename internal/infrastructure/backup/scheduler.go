package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/internal/core/ports"
	"rosterbot/pkg/backup"

	"go.uber.org/zap"
)

// Scheduler archives the roster snapshots on an interval and keeps the
// newest Keep archives.
type Scheduler struct {
	service  *backup.Service
	store    ports.SnapshotStore
	lock     sync.Locker
	interval time.Duration
	keep     int
	logger   *zap.SugaredLogger
	stopChan chan struct{}
	stopOnce sync.Once
}

// Config contains scheduler configuration
type Config struct {
	Interval time.Duration
	Keep     int
	// Lock is held while the snapshots are read so an archive never mixes
	// states from before and after a mutation.
	Lock sync.Locker
}

func NewScheduler(service *backup.Service, store ports.SnapshotStore, cfg Config, logger *zap.SugaredLogger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		service:  service,
		store:    store,
		lock:     cfg.Lock,
		interval: cfg.Interval,
		keep:     cfg.Keep,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Errorw("scheduled backup failed", "error", err)
			}
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// RunOnce writes one archive and prunes old ones. Pruning failures are only
// logged.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	archive, err := s.collect(ctx)
	if err != nil {
		return "", err
	}

	name, err := s.service.Create(ctx, archive)
	if err != nil {
		return "", err
	}
	s.logger.Infow("roster backup created", "backup_name", name, "snapshots", len(archive.Snapshots))

	deleted, err := s.service.Prune(ctx, s.keep)
	if err != nil {
		s.logger.Warnw("failed to prune old backups", "error", err)
	}
	if len(deleted) > 0 {
		s.logger.Infow("old backups deleted", "count", len(deleted))
	}
	return name, nil
}

// collect reads every snapshot record. Missing records are left out of the
// archive.
func (s *Scheduler) collect(ctx context.Context) (*backup.Archive, error) {
	if s.lock != nil {
		s.lock.Lock()
		defer s.lock.Unlock()
	}

	archive := &backup.Archive{Snapshots: make(map[string]json.RawMessage)}
	for _, key := range domain.SnapshotKeys() {
		data, err := s.store.Load(ctx, key)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
		}
		archive.Snapshots[string(key)] = json.RawMessage(data)
	}
	return archive, nil
}
