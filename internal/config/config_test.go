package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "loothound.db", cfg.Store.DatabaseURL)

	assert.Equal(t, 0.5, cfg.Catalog.SyncRatePerSec)
	assert.Equal(t, 3, cfg.Catalog.SyncRetries)
	assert.Equal(t, 30, cfg.Catalog.TimeoutSecs)

	assert.Equal(t, 0.72, cfg.Resolver.MinSimilarity)
	assert.Equal(t, 0.25, cfg.Resolver.RangeTolerancePct)
	assert.Equal(t, 1, cfg.Resolver.TrigramMin)

	assert.Equal(t, 1e-9, cfg.Score.Epsilon)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "builds", cfg.Server.BuildsDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("LOOTHOUND_RESOLVER_MIN_SIMILARITY", "0.8")
	t.Setenv("LOOTHOUND_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Resolver.MinSimilarity)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nonsense", Format: "json"})
	require.Error(t, err)
}
