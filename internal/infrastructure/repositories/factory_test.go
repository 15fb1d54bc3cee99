package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"rosterbot/internal/core/domain"
	"rosterbot/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRepositoryFactory_Drivers(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop().Sugar()

	for _, driver := range []string{config.DriverFile, config.DriverSQLite, config.DriverMemory} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Storage.Driver = driver
			cfg.Storage.Dir = filepath.Join(t.TempDir(), "data")
			cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "roster.db")

			factory, err := NewRepositoryFactory(ctx, cfg, logger)
			require.NoError(t, err)
			defer factory.Close()

			assert.Equal(t, driver, factory.Driver())
			assert.NoError(t, factory.HealthCheck(ctx))

			store := factory.SnapshotStore()
			require.NoError(t, store.Save(ctx, domain.SnapshotSeniors, []byte(`[1]`)))
			data, err := store.Load(ctx, domain.SnapshotSeniors)
			require.NoError(t, err)
			assert.Equal(t, `[1]`, string(data))
		})
	}
}

func TestRepositoryFactory_RedisFallsBackToFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = config.DriverRedis
	cfg.Storage.Dir = t.TempDir()
	cfg.Redis.Address = "127.0.0.1:1"

	factory, err := NewRepositoryFactory(context.Background(), cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer factory.Close()

	assert.Equal(t, config.DriverFile, factory.Driver())
}

func TestRepositoryFactory_UnknownDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = "etcd"

	_, err := NewRepositoryFactory(context.Background(), cfg, zap.NewNop().Sugar())
	assert.Error(t, err)
}
