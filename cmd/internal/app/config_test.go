package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFrom_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFrom(map[string]string{})
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	require.Equal(t, StoreMemory, cfg.Store)
	require.Equal(t, 30*time.Second, cfg.AwaitingTTL)
	require.Equal(t, time.Hour, cfg.GameTTL)
	require.Equal(t, 10*time.Minute, cfg.StartWindow)
	require.Equal(t, time.Hour, cfg.CompleteWindow)
	require.Equal(t, 32, cfg.EntropyBytes)
	require.Equal(t, []string{"http://localhost", "http://127.0.0.1"}, cfg.WSAllowedOrigins)
	require.False(t, cfg.TLSEnabled())

	p := cfg.Policy()
	require.NoError(t, p.Validate())
	require.Equal(t, cfg.StartWindow, p.StartWindow)
}

func TestLoadConfigFrom_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFrom(map[string]string{
		"PLAYGATE_STORE":              " Redis ",
		"PLAYGATE_REDIS_ADDR":         "cache:6379",
		"PLAYGATE_START_WINDOW":       "5m",
		"PLAYGATE_WS_ALLOWED_ORIGINS": "https://play.example.com,https://admin.example.com",
		"PLAYGATE_RATE_LIMIT_RPS":     "2.5",
	})
	require.NoError(t, err)

	require.Equal(t, StoreRedis, cfg.Store)
	require.Equal(t, "cache:6379", cfg.RedisAddr)
	require.Equal(t, 5*time.Minute, cfg.StartWindow)
	require.Equal(t, []string{"https://play.example.com", "https://admin.example.com"}, cfg.WSAllowedOrigins)
	require.InDelta(t, 2.5, cfg.RateLimitRPS, 1e-9)
}

func TestLoadConfigFrom_Rejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown store", env: map[string]string{"PLAYGATE_STORE": "sqlite"}},
		{name: "postgres without url", env: map[string]string{"PLAYGATE_STORE": "postgres"}},
		{name: "zero awaiting ttl", env: map[string]string{"PLAYGATE_AWAITING_TTL": "0s"}},
		{name: "negative game ttl", env: map[string]string{"PLAYGATE_GAME_TTL": "-1h"}},
		{name: "zero sweep interval", env: map[string]string{"PLAYGATE_SWEEP_INTERVAL": "0s"}},
		{name: "tls cert only", env: map[string]string{"PLAYGATE_TLS_CERT_FILE": "/tmp/cert.pem"}},
		{name: "tiny entropy", env: map[string]string{"PLAYGATE_ENTROPY_BYTES": "4"}},
		{name: "zero body limit", env: map[string]string{"PLAYGATE_MAX_BODY_BYTES": "0"}},
		{name: "wildcard origin without origin check", env: map[string]string{
			"PLAYGATE_WS_ALLOWED_ORIGINS": "*",
			"PLAYGATE_WS_ORIGIN_REQUIRED": "false",
		}},
		{name: "bad duration", env: map[string]string{"PLAYGATE_START_WINDOW": "soon"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfigFrom(tc.env)
			require.Error(t, err)
		})
	}
}

func TestConfig_TLSEnabled(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFrom(map[string]string{
		"PLAYGATE_TLS_CERT_FILE": "/etc/playgate/cert.pem",
		"PLAYGATE_TLS_KEY_FILE":  "/etc/playgate/key.pem",
	})
	require.NoError(t, err)
	require.True(t, cfg.TLSEnabled())
}
