package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/state"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultSwapRate, cfg.Server.SwapRate)
	assert.Equal(t, 3*time.Minute, cfg.Server.SwapTTL)
	assert.Equal(t, 2*time.Minute, cfg.Server.SignatureWindow)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Log.MaxSize)
	assert.Equal(t, 5*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, DefaultBufferSize, cfg.Events.BufferSize)

	id, err := cfg.ProgramID()
	require.NoError(t, err)
	assert.Equal(t, state.DefaultProgramID, id)

	_, ok := cfg.HTTPOracle()
	assert.False(t, ok)
	assert.True(t, cfg.StaticPrice().IsZero())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":7000"
  swap_rate: 2
store:
  backend: redis
redis:
  addr: "redis:6379"
  pubsub: true
oracle:
  url: "https://price.example.com/v1/sol"
  path: "data.price"
  cache_ttl: 1m
postgres:
  dsn: "postgres://launchpad:secret@db:5432/launchpad?sslmode=disable"
`)
	t.Setenv("LAUNCHPAD_SERVER_ADDR", ":9000")
	t.Setenv("LAUNCHPAD_REDIS_DB", "4")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2.0, cfg.Server.SwapRate)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, 4, cfg.Redis.DB)
	assert.True(t, cfg.Redis.PubSub)

	oracleCfg, ok := cfg.HTTPOracle()
	require.True(t, ok)
	assert.Equal(t, "data.price", oracleCfg.Path)
	assert.Equal(t, time.Minute, oracleCfg.CacheTTL)
	assert.Equal(t, uint(3), oracleCfg.MaxTries)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Addr: ":8090", SwapRate: 1, SwapBurst: 1, SignatureWindow: time.Minute},
			Store:   StoreConfig{Backend: "memory"},
			Program: ProgramConfig{ID: state.DefaultProgramID.String()},
			Events:  EventsConfig{BufferSize: 10},
		}
	}
	require.NoError(t, validateConfig(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero rate", func(c *Config) { c.Server.SwapRate = 0 }},
		{"zero signature window", func(c *Config) { c.Server.SignatureWindow = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }},
		{"redis without addr", func(c *Config) { c.Store.Backend = "redis" }},
		{"pubsub without addr", func(c *Config) { c.Redis.PubSub = true }},
		{"bad dsn", func(c *Config) { c.Postgres.DSN = "mysql://x" }},
		{"oracle ftp", func(c *Config) { c.Oracle.URL = "ftp://x"; c.Oracle.Path = "p" }},
		{"oracle without path", func(c *Config) { c.Oracle.URL = "https://x" }},
		{"negative static price", func(c *Config) { c.Oracle.StaticPrice = "-1" }},
		{"bad program id", func(c *Config) { c.Program.ID = "not-base58!" }},
		{"zero buffer", func(c *Config) { c.Events.BufferSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}
