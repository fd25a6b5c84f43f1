package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.SessionTTL())
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout())
	assert.False(t, cfg.WhatsAppEnabled)
	assert.False(t, cfg.MinioEnabled())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("UPSTREAM_API_URL", "https://api.example.com")
	t.Setenv("UPSTREAM_TIMEOUT_SECONDS", "5")
	t.Setenv("CACHE_TTL", "0")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "https://api.example.com", cfg.UpstreamAPIURL)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout())
	assert.Equal(t, time.Duration(0), cfg.PharmacyCacheTTL())
	assert.True(t, cfg.MinioEnabled())
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad upstream url":   {"UPSTREAM_API_URL", "not a url"},
		"bad log level":      {"LOG_LEVEL", "loud"},
		"short session":      {"SESSION_TIMEOUT", "5"},
		"whatsapp needs url": {"WHATSAPP_ENABLED", "true"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
