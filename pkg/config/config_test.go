package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-bom/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.App.StorageDriver)
	assert.Equal(t, 3, cfg.Inventory.RetryAttempts)
	assert.Equal(t, 8, cfg.Inventory.RebuildConcurrency)
	assert.Equal(t, 25, cfg.Inventory.ProgressEvery)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_VariablesDeEntorno(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("STOCK_RETRY_ATTEMPTS", "5")
	t.Setenv("MIGRATE_ON_START", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Inventory.RetryAttempts)
	assert.True(t, cfg.App.MigrateOnStart)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoad_DriverInvalido(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "inv", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/inv?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}

func TestLoad_ParametrosDeInventarioInvalidos(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("REBUILD_CONCURRENCY", "0")
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REBUILD_CONCURRENCY")
}

func TestLoad_DriverSinDistinguirMayusculas(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Memory")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.App.StorageDriver)
}
