package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "social-service", cfg.Service)
	assert.Equal(t, 2*time.Second, cfg.TypingIdle)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9999\"\nallowed_origins:\n  - https://app.example.com\n"), 0o600))

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "8000")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
}

func TestEnvParsing(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "nope")
	t.Setenv("TYPING_IDLE", "500ms")

	assert.Equal(t, 20, getEnvInt("RATE_LIMIT_BURST", 20))
	assert.Equal(t, 500*time.Millisecond, getEnvDuration("TYPING_IDLE", time.Second))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}
