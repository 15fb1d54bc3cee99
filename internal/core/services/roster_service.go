package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/internal/core/ports"
	"rosterbot/pkg/utils"

	"go.uber.org/zap"
)

// DefaultSessionTTL is how long a junior session stays on duty.
const DefaultSessionTTL = 24 * time.Hour

type rosterService struct {
	mu         sync.RWMutex
	juniors    map[domain.UserID]domain.JuniorSession
	seniors    []domain.UserID
	management []domain.UserID

	store   ports.SnapshotStore
	metrics ports.Metrics
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// RosterOption customizes the roster service.
type RosterOption func(*rosterService)

// WithClock replaces time.Now, used by tests to age sessions.
func WithClock(now func() time.Time) RosterOption {
	return func(s *rosterService) { s.now = now }
}

func WithRosterMetrics(m ports.Metrics) RosterOption {
	return func(s *rosterService) { s.metrics = m }
}

func NewRosterService(store ports.SnapshotStore, logger *zap.SugaredLogger, opts ...RosterOption) ports.RosterService {
	s := &rosterService{
		juniors: make(map[domain.UserID]domain.JuniorSession),
		store:   store,
		metrics: ports.NopMetrics{},
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	return s
}

// Load replaces in-memory state with the persisted snapshots. A missing
// snapshot initializes the set to empty.
func (s *rosterService) Load(ctx context.Context) error {
	juniorData, err := s.loadSnapshot(ctx, domain.SnapshotJuniors)
	if err != nil {
		return err
	}
	juniors, err := decodeJuniors(juniorData)
	if err != nil {
		return err
	}

	seniorData, err := s.loadSnapshot(ctx, domain.SnapshotSeniors)
	if err != nil {
		return err
	}
	seniors, err := decodeMembers(seniorData)
	if err != nil {
		return err
	}

	managementData, err := s.loadSnapshot(ctx, domain.SnapshotManagement)
	if err != nil {
		return err
	}
	management, err := decodeMembers(managementData)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.juniors = juniors
	s.seniors = seniors
	s.management = management
	s.mu.Unlock()

	s.metrics.SetActiveSessions(len(juniors))
	s.logger.Infow("roster loaded",
		"juniors", len(juniors),
		"seniors", len(seniors),
		"management", len(management),
	)
	return nil
}

func (s *rosterService) loadSnapshot(ctx context.Context, key domain.SnapshotKey) ([]byte, error) {
	data, err := s.store.Load(ctx, key)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		s.logger.Infow("snapshot not found, starting empty", "key", key)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s snapshot: %w", key, err)
	}
	return data, nil
}

func (s *rosterService) AddJunior(ctx context.Context, id domain.UserID, profile domain.Profile) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.juniors[id]; exists {
		s.metrics.RecordMutation(domain.GroupJunior, "add", domain.OutcomeAlreadyPresent)
		return domain.OutcomeAlreadyPresent, nil
	}

	s.juniors[id] = domain.JuniorSession{
		UserID:    id,
		StartedAt: s.now(),
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
	}
	if err := s.persistJuniors(ctx); err != nil {
		delete(s.juniors, id)
		return 0, err
	}

	s.metrics.RecordMutation(domain.GroupJunior, "add", domain.OutcomeApplied)
	s.metrics.SetActiveSessions(len(s.juniors))
	return domain.OutcomeApplied, nil
}

func (s *rosterService) RemoveJunior(ctx context.Context, id domain.UserID) (domain.JuniorSession, domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.juniors[id]
	if !exists {
		s.metrics.RecordMutation(domain.GroupJunior, "remove", domain.OutcomeNotPresent)
		return domain.JuniorSession{}, domain.OutcomeNotPresent, nil
	}

	delete(s.juniors, id)
	if err := s.persistJuniors(ctx); err != nil {
		s.juniors[id] = session
		return domain.JuniorSession{}, 0, err
	}

	s.metrics.RecordMutation(domain.GroupJunior, "remove", domain.OutcomeApplied)
	s.metrics.SetActiveSessions(len(s.juniors))
	return session, domain.OutcomeApplied, nil
}

func (s *rosterService) AddSenior(ctx context.Context, id domain.UserID) (domain.Outcome, error) {
	return s.addMember(ctx, domain.GroupSenior, &s.seniors, id)
}

func (s *rosterService) RemoveSenior(ctx context.Context, id domain.UserID) (domain.Outcome, error) {
	return s.removeMember(ctx, domain.GroupSenior, &s.seniors, id)
}

func (s *rosterService) AddManagement(ctx context.Context, id domain.UserID) (domain.Outcome, error) {
	return s.addMember(ctx, domain.GroupManagement, &s.management, id)
}

func (s *rosterService) RemoveManagement(ctx context.Context, id domain.UserID) (domain.Outcome, error) {
	return s.removeMember(ctx, domain.GroupManagement, &s.management, id)
}

func (s *rosterService) addMember(ctx context.Context, group domain.Group, set *[]domain.UserID, id domain.UserID) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(*set, id) {
		s.metrics.RecordMutation(group, "add", domain.OutcomeAlreadyPresent)
		return domain.OutcomeAlreadyPresent, nil
	}

	prev := *set
	*set = append(slices.Clone(prev), id)
	if err := s.persistMembers(ctx, group.SnapshotKey(), *set); err != nil {
		*set = prev
		return 0, err
	}

	s.metrics.RecordMutation(group, "add", domain.OutcomeApplied)
	return domain.OutcomeApplied, nil
}

func (s *rosterService) removeMember(ctx context.Context, group domain.Group, set *[]domain.UserID, id domain.UserID) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.Index(*set, id)
	if idx < 0 {
		s.metrics.RecordMutation(group, "remove", domain.OutcomeNotPresent)
		return domain.OutcomeNotPresent, nil
	}

	prev := *set
	*set = slices.Delete(slices.Clone(prev), idx, idx+1)
	if err := s.persistMembers(ctx, group.SnapshotKey(), *set); err != nil {
		*set = prev
		return 0, err
	}

	s.metrics.RecordMutation(group, "remove", domain.OutcomeApplied)
	return domain.OutcomeApplied, nil
}

// SweepExpired evicts every junior session older than ttl and persists once
// for the whole batch.
func (s *rosterService) SweepExpired(ctx context.Context, ttl time.Duration) ([]domain.UserID, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := make(map[domain.UserID]domain.JuniorSession)
	for id, session := range s.juniors {
		if utils.IsExpired(session.StartedAt, now, ttl) {
			evicted[id] = session
		}
	}
	if len(evicted) == 0 {
		return nil, nil
	}

	for id := range evicted {
		delete(s.juniors, id)
	}
	if err := s.persistJuniors(ctx); err != nil {
		for id, session := range evicted {
			s.juniors[id] = session
		}
		return nil, err
	}

	ids := make([]domain.UserID, 0, len(evicted))
	for id := range evicted {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	s.metrics.RecordEvictions(len(ids))
	s.metrics.SetActiveSessions(len(s.juniors))
	return ids, nil
}

// RoleOf resolves the apparent role: management > senior > junior > none.
func (s *rosterService) RoleOf(id domain.UserID) domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case slices.Contains(s.management, id):
		return domain.RoleManagement
	case slices.Contains(s.seniors, id):
		return domain.RoleSenior
	}
	if _, ok := s.juniors[id]; ok {
		return domain.RoleJunior
	}
	return domain.RoleNone
}

func (s *rosterService) HasJuniorSession(id domain.UserID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.juniors[id]
	return ok
}

// Juniors returns a copy ordered by session start.
func (s *rosterService) Juniors() []domain.JuniorSession {
	s.mu.RLock()
	sessions := make([]domain.JuniorSession, 0, len(s.juniors))
	for _, session := range s.juniors {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	slices.SortFunc(sessions, func(a, b domain.JuniorSession) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return sessions
}

func (s *rosterService) Seniors() []domain.UserID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.seniors)
}

func (s *rosterService) Management() []domain.UserID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.management)
}

func (s *rosterService) persistJuniors(ctx context.Context) error {
	data, err := encodeJuniors(s.juniors)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", domain.ErrPersistence, domain.SnapshotJuniors, err)
	}
	return s.save(ctx, domain.SnapshotJuniors, data)
}

func (s *rosterService) persistMembers(ctx context.Context, key domain.SnapshotKey, ids []domain.UserID) error {
	data, err := encodeMembers(ids)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", domain.ErrPersistence, key, err)
	}
	return s.save(ctx, key, data)
}

func (s *rosterService) save(ctx context.Context, key domain.SnapshotKey, data []byte) error {
	if err := s.store.Save(ctx, key, data); err != nil {
		s.logger.Errorw("failed to persist roster snapshot", "key", key, "error", err)
		return fmt.Errorf("%w: save %s: %w", domain.ErrPersistence, key, err)
	}
	s.logger.Debugw("roster snapshot saved", "key", key, "bytes", len(data))
	return nil
}
