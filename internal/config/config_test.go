package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CARTFLOW_BACKEND_URL", "http://backend.local/api")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, 15*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, int64(1), cfg.Checkout.DefaultProviderID)
	assert.Equal(t, 720*time.Hour, cfg.Storage.TTL)
	assert.Equal(t, "8080", cfg.App.Port)
}

func TestLoad_MissingBackendURL(t *testing.T) {
	t.Setenv("CARTFLOW_BACKEND_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RedisNeedsAddress(t *testing.T) {
	t.Setenv("CARTFLOW_BACKEND_URL", "http://backend.local/api")
	t.Setenv("CARTFLOW_STORAGE_BACKEND", "Redis")

	_, err := Load()
	require.ErrorContains(t, err, "CARTFLOW_REDIS_URL")

	t.Setenv("CARTFLOW_REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageRedis, cfg.Storage.Backend)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("CARTFLOW_BACKEND_URL", "http://backend.local/api")
	t.Setenv("CARTFLOW_STORAGE_BACKEND", "sqlite")

	_, err := Load()
	require.ErrorContains(t, err, "unknown storage backend")
}

func TestLoad_InflightTTLMustCoverBackendCalls(t *testing.T) {
	t.Setenv("CARTFLOW_BACKEND_URL", "http://backend.local/api")
	t.Setenv("CARTFLOW_BACKEND_TIMEOUT", "30s")
	t.Setenv("CARTFLOW_INFLIGHT_TTL", "60s")

	_, err := Load()
	require.ErrorContains(t, err, "CARTFLOW_INFLIGHT_TTL")

	t.Setenv("CARTFLOW_INFLIGHT_TTL", "61s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 61*time.Second, cfg.Checkout.InflightTTL)
}

func TestLoadWorker(t *testing.T) {
	t.Setenv("CARTFLOW_SUBMISSIONS_TABLE", "")
	_, err := LoadWorker()
	require.ErrorContains(t, err, "CARTFLOW_SUBMISSIONS_TABLE")

	t.Setenv("CARTFLOW_SUBMISSIONS_TABLE", "cart_submissions")
	t.Setenv("CARTFLOW_BACKEND_URL", "")
	cfg, err := LoadWorker()
	require.NoError(t, err)
	assert.Equal(t, "cart_submissions", cfg.AWS.SubmissionsTable)
}
