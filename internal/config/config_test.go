package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "lotto", cfg.MongoDB.Database)
	assert.Empty(t, cfg.JWT.Secret)
	assert.Equal(t, 100, cfg.ML.Forest.Trees)
	assert.Equal(t, 10, cfg.ML.Forest.MaxDepth)
	assert.Equal(t, 50, cfg.ML.Boosting.Stages)
	assert.Equal(t, []int{128, 64, 32}, cfg.ML.Network.Hidden)
	assert.Equal(t, int64(42), cfg.ML.Seed)
	assert.InDelta(t, 0.2, cfg.ML.TestFraction, 1e-9)
	assert.Equal(t, 65536, cfg.Simulation.BatchSize)
	assert.Equal(t, "0 21 * * 6", cfg.Scheduler.SyncSpec)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("FEED_MOCKAPI", "true")
	t.Setenv("FEED_CURRENTDRAWNO", "1100")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SIMULATION_WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoDB.URI)
	assert.True(t, cfg.Feed.MockAPI)
	assert.Equal(t, 1100, cfg.Feed.CurrentDrawNo)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 3, cfg.Simulation.Workers)
}

func TestEmptyMongoURISelectsMemoryStorage(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.MongoDB.URI)
	assert.Equal(t, "lotto", cfg.MongoDB.Database)
}

func TestEnvironmentHelpers(t *testing.T) {
	t.Setenv("LOTTO_TEST_STR", "value")
	t.Setenv("LOTTO_TEST_INT", "12")
	t.Setenv("LOTTO_TEST_BAD_INT", "twelve")
	t.Setenv("LOTTO_TEST_BOOL", "true")

	assert.Equal(t, "value", GetEnv("LOTTO_TEST_STR", "x"))
	assert.Equal(t, "x", GetEnv("LOTTO_TEST_MISSING", "x"))
	assert.Equal(t, 12, GetEnvAsInt("LOTTO_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvAsInt("LOTTO_TEST_BAD_INT", 1))
	assert.True(t, GetEnvAsBool("LOTTO_TEST_BOOL", false))
	assert.True(t, GetEnvAsBool("LOTTO_TEST_MISSING", true))
}
