package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("AUTH_ADMIN_NAMES", "")
	t.Setenv("AWS_S3_SNAPSHOTS_BUCKET", "")
	t.Setenv("SNAPSHOT_ON_CHANGE", "")
	t.Setenv("JWT_EXPIRE_HOURS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, []string{"kevin", "admin"}, cfg.Auth.AdminNames)
	assert.False(t, cfg.SnapshotsEnabled())
	assert.Equal(t, 24, cfg.JWT.ExpireHours)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("AUTH_ADMIN_NAMES", " ana , kevin ,")
	t.Setenv("SNAPSHOT_ON_CHANGE", "true")
	t.Setenv("AWS_S3_SNAPSHOTS_BUCKET", "comunidad-snapshots")
	t.Setenv("DB_MAX_CONNS", "oops")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageRedis, cfg.Storage.Driver)
	assert.Equal(t, []string{"ana", "kevin"}, cfg.Auth.AdminNames)
	assert.True(t, cfg.Worker.SnapshotOnChange)
	assert.True(t, cfg.SnapshotsEnabled())
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Storage: StorageConfig{Driver: StorageMemory}, JWT: JWTConfig{ExpireHours: 1}}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.Storage.Driver = "sqlite"
	assert.Error(t, c.Validate())

	c = base()
	c.Storage.Driver = StorageRedis
	assert.Error(t, c.Validate())

	c = base()
	c.Worker.SnapshotOnChange = true
	assert.Error(t, c.Validate())

	c = base()
	c.JWT.ExpireHours = 0
	assert.Error(t, c.Validate())
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@h:1/db?sslmode=disable",
		DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "1", DBName: "db", SSLMode: "disable"}.DSN())
	assert.Equal(t, "postgres://x", DatabaseConfig{URL: "postgres://x", Host: "h"}.DSN())
}
