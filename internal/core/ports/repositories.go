package ports

import (
	"context"

	"rosterbot/internal/core/domain"
)

// SnapshotStore persists the full snapshot of one roster set per key.
// Load returns domain.ErrSnapshotNotFound when nothing was saved yet.
type SnapshotStore interface {
	Load(ctx context.Context, key domain.SnapshotKey) ([]byte, error)
	Save(ctx context.Context, key domain.SnapshotKey, data []byte) error
}
