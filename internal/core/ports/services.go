package ports

import (
	"context"
	"time"

	"rosterbot/internal/core/domain"
)

// IdentityResolver turns a vanity (screen) name into a numeric user id.
type IdentityResolver interface {
	ResolveScreenName(ctx context.Context, name string) (domain.UserID, error)
}

// ProfileFetcher looks up display names.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, id domain.UserID) (domain.Profile, error)
}

// Messenger delivers replies to the chat platform.
type Messenger interface {
	Send(ctx context.Context, reply domain.Reply) error
}

// RosterService is the roster store: three role sets plus junior sessions,
// each mutation persisted before it returns.
type RosterService interface {
	Load(ctx context.Context) error

	AddJunior(ctx context.Context, id domain.UserID, profile domain.Profile) (domain.Outcome, error)
	RemoveJunior(ctx context.Context, id domain.UserID) (domain.JuniorSession, domain.Outcome, error)
	AddSenior(ctx context.Context, id domain.UserID) (domain.Outcome, error)
	RemoveSenior(ctx context.Context, id domain.UserID) (domain.Outcome, error)
	AddManagement(ctx context.Context, id domain.UserID) (domain.Outcome, error)
	RemoveManagement(ctx context.Context, id domain.UserID) (domain.Outcome, error)
	SweepExpired(ctx context.Context, ttl time.Duration) ([]domain.UserID, error)

	RoleOf(id domain.UserID) domain.Role
	HasJuniorSession(id domain.UserID) bool
	Juniors() []domain.JuniorSession
	Seniors() []domain.UserID
	Management() []domain.UserID
}
