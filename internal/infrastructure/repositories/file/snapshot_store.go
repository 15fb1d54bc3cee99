package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"rosterbot/internal/core/domain"
	"rosterbot/pkg/tracing"
)

// SnapshotStore keeps one JSON file per snapshot key in a directory, e.g.
// data/admins.json. The files are compatible with the legacy bot layout.
type SnapshotStore struct {
	basePath string
}

// NewSnapshotStore creates the directory if needed.
func NewSnapshotStore(basePath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return &SnapshotStore{
		basePath: basePath,
	}, nil
}

func (s *SnapshotStore) path(key domain.SnapshotKey) string {
	return filepath.Join(s.basePath, string(key)+".json")
}

func (s *SnapshotStore) Load(ctx context.Context, key domain.SnapshotKey) ([]byte, error) {
	_, span := tracing.TraceStoreOperation(ctx, "load", "file", string(key))
	defer span.End()

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return data, nil
}

// Save replaces the snapshot atomically: the data goes to a temp file in the
// same directory which is then renamed over the target.
func (s *SnapshotStore) Save(ctx context.Context, key domain.SnapshotKey, data []byte) error {
	_, span := tracing.TraceStoreOperation(ctx, "save", "file", string(key))
	defer span.End()

	tmp, err := os.CreateTemp(s.basePath, "."+string(key)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// Keys lists snapshot keys present on disk.
func (s *SnapshotStore) Keys() ([]domain.SnapshotKey, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var keys []domain.SnapshotKey
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		keys = append(keys, domain.SnapshotKey(name[:len(name)-len(".json")]))
	}
	return keys, nil
}
