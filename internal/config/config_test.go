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

	assert.Equal(t, "atum-helpdesk", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.True(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 5, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, 15, cfg.Auth.LockoutMinutes)
	assert.Equal(t, 60, cfg.SLA.CheckIntervalSeconds)
	assert.Equal(t, 4, cfg.Queue.WorkerCount)
	assert.True(t, cfg.RAG.Enabled)
	assert.Equal(t, 768, cfg.RAG.EmbedDim)
	assert.Equal(t, 5, cfg.RAG.TopK)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SLA_CHECK_INTERVAL_SECONDS", "15")
	t.Setenv("RAG_ENABLED", "false")
	t.Setenv("QUEUE_WORKER_COUNT", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, 15, cfg.SLA.CheckIntervalSeconds)
	assert.False(t, cfg.RAG.Enabled)
	assert.Equal(t, 8, cfg.Queue.WorkerCount)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	app := AppConfig{RequestTimeoutSeconds: 0}
	assert.Equal(t, time.Duration(0), app.RequestTimeout())

	q := QueueConfig{LeaseSeconds: 0}
	assert.Equal(t, 5*time.Minute, q.Lease())

	inf := InferenceConfig{TimeoutSeconds: 0}
	assert.Equal(t, 30*time.Second, inf.Timeout())
}
