package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"rosterbot/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

var errDiskFull = errors.New("disk full")

// fakeStore keeps snapshots in memory and can be told to fail writes.
type fakeStore struct {
	mu       sync.Mutex
	data     map[domain.SnapshotKey][]byte
	saves    int
	failSave bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[domain.SnapshotKey][]byte)}
}

func (s *fakeStore) Load(_ context.Context, key domain.SnapshotKey) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return data, nil
}

func (s *fakeStore) Save(_ context.Context, key domain.SnapshotKey, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errDiskFull
	}
	s.saves++
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStore) setFail(fail bool) {
	s.mu.Lock()
	s.failSave = fail
	s.mu.Unlock()
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type MockIdentityResolver struct {
	mock.Mock
}

func (m *MockIdentityResolver) ResolveScreenName(ctx context.Context, name string) (domain.UserID, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(domain.UserID), args.Error(1)
}

type MockProfileFetcher struct {
	mock.Mock
}

func (m *MockProfileFetcher) FetchProfile(ctx context.Context, id domain.UserID) (domain.Profile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Profile), args.Error(1)
}

// recordingMessenger captures every reply.
type recordingMessenger struct {
	mu      sync.Mutex
	replies []domain.Reply
	err     error
}

func (m *recordingMessenger) Send(_ context.Context, reply domain.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, reply)
	return m.err
}

func (m *recordingMessenger) last() domain.Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return domain.Reply{}
	}
	return m.replies[len(m.replies)-1]
}

func (m *recordingMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}

// countingMetrics records denials and failures for assertions.
type countingMetrics struct {
	mu             sync.Mutex
	denials        []domain.ActionKind
	failures       int
	events         map[string]int
	lookupFailures map[string]int
	evictions      int
	pendingPrompts int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{events: map[string]int{}, lookupFailures: map[string]int{}}
}

func (m *countingMetrics) RecordEvent(kind string, _ time.Duration) {
	m.mu.Lock()
	m.events[kind]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordEventFailure() {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordMutation(domain.Group, string, domain.Outcome) {}

func (m *countingMetrics) RecordDenial(action domain.ActionKind) {
	m.mu.Lock()
	m.denials = append(m.denials, action)
	m.mu.Unlock()
}

func (m *countingMetrics) RecordEvictions(count int) {
	m.mu.Lock()
	m.evictions += count
	m.mu.Unlock()
}

func (m *countingMetrics) SetActiveSessions(int) {}

func (m *countingMetrics) SetPendingPrompts(count int) {
	m.mu.Lock()
	m.pendingPrompts = count
	m.mu.Unlock()
}

func (m *countingMetrics) RecordLookupFailure(kind string) {
	m.mu.Lock()
	m.lookupFailures[kind]++
	m.mu.Unlock()
}
