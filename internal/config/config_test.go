package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTEN_ADDR", "METRICS_ADDR", "POSTGRES_DSN", "SQLITE_URI",
		"JWT_SECRET", "ANONYMOUS_AUTH", "MAX_DOCUMENT_SIZE_KB",
		"BROADCAST_BUFFER_SIZE", "WS_READ_TIMEOUT_MINUTES",
		"WS_WRITE_TIMEOUT_SECONDS", "IDLE_CLEANUP_INTERVAL_MINUTES",
		"IDLE_DOCUMENT_TTL_MINUTES", "LOG_LEVEL", "LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANONYMOUS_AUTH", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":3030", cfg.ListenAddr)
	require.Equal(t, 256*1024, cfg.MaxDocumentSize)
	require.Equal(t, 16, cfg.BroadcastBufferSize)
}

func TestLoadRequiresJWTSecretUnlessAnonymous(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "dev-secret")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "dev-secret", cfg.JWTSecret)
}

func TestLoadReadsOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANONYMOUS_AUTH", "true")
	t.Setenv("LISTEN_ADDR", ":8080")
	t.Setenv("MAX_DOCUMENT_SIZE_KB", "512")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, 512*1024, cfg.MaxDocumentSize)
}
