// Package backup writes point-in-time archives of the roster snapshots and
// reads them back.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

const (
	namePrefix = "roster-"
	nameSuffix = ".json"
	nameLayout = "20060102-150405"
)

// ErrInvalidName is returned for archive names that do not look like
// "roster-<timestamp>.json".
var ErrInvalidName = errors.New("invalid backup name")

// Archive holds the raw snapshot records keyed by snapshot key.
type Archive struct {
	Version   string                     `json:"version"`
	Timestamp time.Time                  `json:"timestamp"`
	Snapshots map[string]json.RawMessage `json:"snapshots"`
}

// Storage defines interface for backup storage
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

type Service struct {
	storage Storage
	version string
	now     func() time.Time
}

func NewService(storage Storage, version string) *Service {
	return &Service{
		storage: storage,
		version: version,
		now:     time.Now,
	}
}

// Create stamps the archive and stores it under a name derived from the
// timestamp. Archives created within the same second overwrite each other.
func (s *Service) Create(ctx context.Context, archive *Archive) (string, error) {
	archive.Version = s.version
	archive.Timestamp = s.now().UTC()

	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup: %w", err)
	}

	name := Name(archive.Timestamp)
	if err := s.storage.Save(ctx, name, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to save backup: %w", err)
	}
	return name, nil
}

func (s *Service) Load(ctx context.Context, name string) (*Archive, error) {
	if _, err := ParseName(name); err != nil {
		return nil, err
	}

	reader, err := s.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup: %w", err)
	}
	defer reader.Close()

	var archive Archive
	if err := json.NewDecoder(reader).Decode(&archive); err != nil {
		return nil, fmt.Errorf("failed to decode backup %s: %w", name, err)
	}
	return &archive, nil
}

// List returns archive names oldest first.
func (s *Service) List(ctx context.Context) ([]string, error) {
	names, err := s.storage.List(ctx, namePrefix)
	if err != nil {
		return nil, err
	}
	valid := names[:0]
	for _, name := range names {
		if _, err := ParseName(name); err == nil {
			valid = append(valid, name)
		}
	}
	slices.Sort(valid)
	return valid, nil
}

// Prune deletes all but the newest keep archives and returns what it
// removed. keep <= 0 disables pruning.
func (s *Service) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	names, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) <= keep {
		return nil, nil
	}

	var deleted []string
	for _, name := range names[:len(names)-keep] {
		if err := s.storage.Delete(ctx, name); err != nil {
			return deleted, fmt.Errorf("failed to delete backup %s: %w", name, err)
		}
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// Name formats the archive name for a timestamp.
func Name(ts time.Time) string {
	return namePrefix + ts.UTC().Format(nameLayout) + nameSuffix
}

// ParseName extracts the timestamp from an archive name.
func ParseName(name string) (time.Time, error) {
	stamp, ok := strings.CutPrefix(name, namePrefix)
	if ok {
		stamp, ok = strings.CutSuffix(stamp, nameSuffix)
	}
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	ts, err := time.Parse(nameLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return ts, nil
}
