package services

import (
	"context"
	"testing"
	"time"

	"rosterbot/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoster(t *testing.T) (*rosterService, *fakeStore, *fakeClock) {
	t.Helper()
	store := newFakeStore()
	clock := newFakeClock()
	svc := NewRosterService(store, nil, WithClock(clock.Now)).(*rosterService)
	require.NoError(t, svc.Load(context.Background()))
	return svc, store, clock
}

var anna = domain.Profile{FirstName: "Anna", LastName: "Ivanova"}

func TestRosterService_AddJuniorIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestRoster(t)

	outcome, err := svc.AddJunior(ctx, 100, anna)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)
	first := svc.Juniors()

	outcome, err = svc.AddJunior(ctx, 100, domain.Profile{FirstName: "Other", LastName: "Name"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyPresent, outcome)

	assert.Equal(t, first, svc.Juniors())
	assert.Equal(t, 1, store.saveCount(), "no-op must not persist")
}

func TestRosterService_RemoveJunior(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestRoster(t)

	_, err := svc.AddJunior(ctx, 100, anna)
	require.NoError(t, err)
	clock.Advance(90 * time.Minute)

	session, outcome, err := svc.RemoveJunior(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)
	assert.Equal(t, domain.UserID(100), session.UserID)
	assert.Equal(t, anna, session.Profile())
	assert.Equal(t, 90*time.Minute, session.Elapsed(clock.Now()))

	_, outcome, err = svc.RemoveJunior(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotPresent, outcome)
	assert.False(t, svc.HasJuniorSession(100))
}

func TestRosterService_SeniorSymmetry(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestRoster(t)

	_, err := svc.AddSenior(ctx, 10)
	require.NoError(t, err)
	before := svc.Seniors()

	outcome, err := svc.AddSenior(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)

	outcome, err = svc.RemoveSenior(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)
	assert.Equal(t, before, svc.Seniors())
}

func TestRosterService_RemoveSeniorFromEmptySet(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestRoster(t)

	outcome, err := svc.RemoveSenior(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotPresent, outcome)
	assert.Empty(t, svc.Seniors())
	assert.Zero(t, store.saveCount())
}

func TestRosterService_ManagementMutations(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestRoster(t)

	outcome, err := svc.AddManagement(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)

	outcome, err = svc.AddManagement(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyPresent, outcome)
	assert.Equal(t, []domain.UserID{1}, svc.Management())

	outcome, err = svc.RemoveManagement(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)
	assert.Empty(t, svc.Management())
}

func TestRosterService_SweepExpired(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newTestRoster(t)

	_, err := svc.AddJunior(ctx, 1, anna)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	_, err = svc.AddJunior(ctx, 2, anna)
	require.NoError(t, err)
	_, err = svc.AddSenior(ctx, 1)
	require.NoError(t, err)

	// user 1 is now 25h old, user 2 is 23h old
	clock.Advance(23 * time.Hour)
	savesBefore := store.saveCount()

	evicted, err := svc.SweepExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{1}, evicted)
	assert.False(t, svc.HasJuniorSession(1))
	assert.True(t, svc.HasJuniorSession(2))
	assert.Equal(t, []domain.UserID{1}, svc.Seniors(), "sweeper never touches seniors")
	assert.Equal(t, savesBefore+1, store.saveCount(), "one persist per batch")

	evicted, err = svc.SweepExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, evicted)
	assert.Equal(t, savesBefore+1, store.saveCount())
}

func TestRosterService_RoleOfPrecedence(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestRoster(t)

	_, err := svc.AddJunior(ctx, 5, anna)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleJunior, svc.RoleOf(5))

	_, err = svc.AddSenior(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSenior, svc.RoleOf(5))

	_, err = svc.AddManagement(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManagement, svc.RoleOf(5))

	assert.Equal(t, domain.RoleNone, svc.RoleOf(6))
}

func TestRosterService_RollbackOnPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestRoster(t)

	_, err := svc.AddSenior(ctx, 7)
	require.NoError(t, err)
	store.setFail(true)

	_, err = svc.AddJunior(ctx, 100, anna)
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.False(t, svc.HasJuniorSession(100))

	_, err = svc.AddSenior(ctx, 8)
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, []domain.UserID{7}, svc.Seniors())

	_, err = svc.RemoveSenior(ctx, 7)
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, []domain.UserID{7}, svc.Seniors())

	store.setFail(false)
	outcome, err := svc.AddJunior(ctx, 100, anna)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)
}

func TestRosterService_LoadRestoresSnapshots(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newTestRoster(t)

	_, err := svc.AddJunior(ctx, 100, anna)
	require.NoError(t, err)
	_, err = svc.AddSenior(ctx, 200)
	require.NoError(t, err)
	_, err = svc.AddManagement(ctx, 300)
	require.NoError(t, err)

	reloaded := NewRosterService(store, nil, WithClock(clock.Now))
	require.NoError(t, reloaded.Load(ctx))

	assert.True(t, reloaded.HasJuniorSession(100))
	assert.Equal(t, []domain.UserID{200}, reloaded.Seniors())
	assert.Equal(t, []domain.UserID{300}, reloaded.Management())
	assert.Equal(t, domain.RoleManagement, reloaded.RoleOf(300))

	juniors := reloaded.Juniors()
	require.Len(t, juniors, 1)
	assert.True(t, juniors[0].StartedAt.Equal(clock.Now()))
}

func TestRosterService_LoadCanonicalizesLegacyIDs(t *testing.T) {
	store := newFakeStore()
	store.data[domain.SnapshotSeniors] = []byte(`["007", 7, 12]`)
	store.data[domain.SnapshotJuniors] = []byte(`{"0042": {"start_time": 1709294400.5, "first_name": "", "last_name": "Petrov"}}`)

	svc := NewRosterService(store, nil)
	require.NoError(t, svc.Load(context.Background()))

	assert.Equal(t, []domain.UserID{7, 12}, svc.Seniors())
	assert.True(t, svc.HasJuniorSession(42))
	juniors := svc.Juniors()
	require.Len(t, juniors, 1)
	assert.Equal(t, domain.UnknownName, juniors[0].FirstName)
	assert.Equal(t, "Petrov", juniors[0].LastName)
}

func TestRosterService_JuniorsOrderedByStart(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestRoster(t)

	_, err := svc.AddJunior(ctx, 30, anna)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = svc.AddJunior(ctx, 10, anna)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = svc.AddJunior(ctx, 20, anna)
	require.NoError(t, err)

	var ids []domain.UserID
	for _, s := range svc.Juniors() {
		ids = append(ids, s.UserID)
	}
	assert.Equal(t, []domain.UserID{30, 10, 20}, ids)
}
