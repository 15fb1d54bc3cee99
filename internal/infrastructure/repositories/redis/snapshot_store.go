package redis

import (
	"context"
	"fmt"

	"rosterbot/internal/core/domain"
	"rosterbot/pkg/tracing"

	"github.com/redis/go-redis/v9"
)

func snapshotKey(key domain.SnapshotKey) string {
	return keyPrefix + "snapshot:" + string(key)
}

// SnapshotStore keeps each snapshot as a plain string value. Only the
// instance holding the serve lease writes them; the CLI and restarted bots
// read the same roster.
type SnapshotStore struct {
	client *redis.Client
}

func NewSnapshotStore(client *redis.Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

func (s *SnapshotStore) Load(ctx context.Context, key domain.SnapshotKey) ([]byte, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, "load", "redis", string(key))
	defer span.End()

	data, err := s.client.Get(ctx, snapshotKey(key)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from Redis: %w", err)
	}
	return data, nil
}

func (s *SnapshotStore) Save(ctx context.Context, key domain.SnapshotKey, data []byte) error {
	ctx, span := tracing.TraceStoreOperation(ctx, "save", "redis", string(key))
	defer span.End()

	if err := s.client.Set(ctx, snapshotKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot in Redis: %w", err)
	}
	return nil
}
