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

	assert.Equal(t, "calibtrack.json", cfg.DataFile)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "calibtrack.order-mutations", cfg.AuditTopic)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.APIEndpoint, "no hosted endpoint by default")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CALIBTRACK_API_URL", "http://api.example.com/api")
	t.Setenv("CALIBTRACK_CACHE_TTL", "90s")
	t.Setenv("CALIBTRACK_HTTP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://api.example.com/api", cfg.APIEndpoint)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, "9090", cfg.HTTPPort)
}
