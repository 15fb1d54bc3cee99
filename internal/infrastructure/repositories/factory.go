package repositories

import (
	"context"
	"fmt"

	"rosterbot/internal/core/ports"
	"rosterbot/internal/infrastructure/repositories/file"
	"rosterbot/internal/infrastructure/repositories/memory"
	redisrepo "rosterbot/internal/infrastructure/repositories/redis"
	"rosterbot/internal/infrastructure/repositories/sqlite"
	"rosterbot/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory selects the snapshot backend from storage.driver. When
// Redis is requested but unreachable it falls back to the file store.
type RepositoryFactory struct {
	driver      string
	store       ports.SnapshotStore
	redisClient *redis.Client
	sqliteStore *sqlite.SnapshotStore
	logger      *zap.SugaredLogger
}

func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		driver: cfg.Storage.Driver,
		logger: logger,
	}

	switch cfg.Storage.Driver {
	case config.DriverRedis:
		client, err := redisrepo.NewRedisClient(ctx, redisrepo.ClientConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to file snapshots",
				"error", err,
				"dir", cfg.Storage.Dir,
			)
			return factory.useFile(cfg.Storage.Dir)
		}
		factory.redisClient = client
		factory.store = redisrepo.NewSnapshotStore(client)

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite snapshot store: %w", err)
		}
		factory.sqliteStore = store
		factory.store = store

	case config.DriverMemory:
		factory.store = memory.NewSnapshotStore()

	case config.DriverFile:
		return factory.useFile(cfg.Storage.Dir)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	logger.Infow("using snapshot store", "driver", factory.driver)
	return factory, nil
}

func (f *RepositoryFactory) useFile(dir string) (*RepositoryFactory, error) {
	store, err := file.NewSnapshotStore(dir)
	if err != nil {
		return nil, err
	}
	f.driver = config.DriverFile
	f.store = store
	f.logger.Infow("using snapshot store", "driver", f.driver, "dir", dir)
	return f, nil
}

// SnapshotStore returns the selected backend.
func (f *RepositoryFactory) SnapshotStore() ports.SnapshotStore {
	return f.store
}

// RedisClient is the shared connection when the redis driver is active and
// nil otherwise.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

// Driver reports the backend actually in use, after any fallback.
func (f *RepositoryFactory) Driver() string {
	return f.driver
}

// Close releases connections held by the backend.
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	if f.sqliteStore != nil {
		return f.sqliteStore.Close()
	}
	return nil
}

// HealthCheck pings remote backends.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	if f.sqliteStore != nil {
		return f.sqliteStore.Ping(ctx)
	}
	return nil
}
