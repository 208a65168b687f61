package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Address())
	assert.Zero(t, cfg.Server.WriteTimeout) // SSE stream must not be cut off

	assert.Equal(t, "https://api.steampowered.com", cfg.Steam.APIBaseURL)
	assert.Equal(t, 3, cfg.Steam.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Steam.BatchDelay)
	assert.Equal(t, 48*time.Hour, cfg.Steam.AutoRefreshAfter)
	assert.True(t, cfg.Steam.AutoRefresh)

	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("STEAM_BATCH_SIZE", "5")
	t.Setenv("STORE_DB_TYPE", "mysql")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Steam.BatchSize)
	assert.Equal(t, "mysql", cfg.Store.Type)
	assert.True(t, cfg.App.IsProduction())
	assert.False(t, cfg.App.IsDevelopment())
}

func TestMySQLDSN(t *testing.T) {
	s := Store{Host: "db", Port: 3306, Name: "steamboard", User: "app", Password: "secret"}
	assert.Equal(t, "app:secret@tcp(db:3306)/steamboard?parseTime=true", s.MySQLDSN())
}

func TestRedisAddress(t *testing.T) {
	c := Cache{RedisHost: "redis", RedisPort: 6379}
	assert.Equal(t, "redis:6379", c.RedisAddress())
}
