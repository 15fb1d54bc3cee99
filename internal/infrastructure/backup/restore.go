package backup

import (
	"context"
	"encoding/json"
	"fmt"

	"rosterbot/internal/core/domain"
	"rosterbot/internal/core/ports"
	"rosterbot/pkg/backup"
)

// Restore writes the snapshots of a stored archive back into store and
// returns the keys it wrote. Every record is checked before anything is
// written, so a damaged archive leaves the store untouched. Records the
// archive lacks are left as they are.
func Restore(ctx context.Context, service *backup.Service, store ports.SnapshotStore, name string) ([]domain.SnapshotKey, error) {
	archive, err := service.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	var keys []domain.SnapshotKey
	for _, key := range domain.SnapshotKeys() {
		data, ok := archive.Snapshots[string(key)]
		if !ok {
			continue
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("backup %s: snapshot %s is not valid JSON", name, key)
		}
		keys = append(keys, key)
	}

	for _, key := range keys {
		if err := store.Save(ctx, key, archive.Snapshots[string(key)]); err != nil {
			return nil, fmt.Errorf("%w: restore %s: %w", domain.ErrPersistence, key, err)
		}
	}
	return keys, nil
}
