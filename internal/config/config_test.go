package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"SERVER_HOST", "SERVER_PORT", "LOG_LEVEL", "MAX_PAGES", "MAX_UPLOAD_MB",
	"PARSE_TIMEOUT", "DISABLED_PARSERS", "PDF_PASSWORD",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom()
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, 32<<20, cfg.Server.MaxUploadBytes())
	assert.Equal(t, 200, cfg.Parse.MaxPages)
	assert.Equal(t, 30*time.Second, cfg.Parse.Timeout)
	assert.Empty(t, cfg.Parse.DisabledParsers)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PARSE_TIMEOUT", "5s")
	t.Setenv("DISABLED_PARSERS", " robinhood-v1, ,robinhood-v2")

	cfg, err := LoadFrom()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Parse.Timeout)
	assert.Equal(t, []string{"robinhood-v1", "robinhood-v2"}, cfg.Parse.DisabledParsers)
}

func TestLoadFromDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_HOST", "0.0.0.0")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERVER_HOST=ignored\nMAX_PAGES=12\nPDF_PASSWORD=secret\n"), 0o600))

	cfg, err := LoadFrom(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "environment wins over .env")
	assert.Equal(t, 12, cfg.Parse.MaxPages)
	assert.Equal(t, "secret", cfg.Parse.PDFPassword)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"port range", "SERVER_PORT", "70000", "SERVER_PORT"},
		{"upload size", "MAX_UPLOAD_MB", "0", "MAX_UPLOAD_MB"},
		{"negative pages", "MAX_PAGES", "-1", "MAX_PAGES"},
		{"bad timeout", "PARSE_TIMEOUT", "soon", "PARSE_TIMEOUT"},
		{"negative timeout", "PARSE_TIMEOUT", "-1s", "PARSE_TIMEOUT"},
		{"bad level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := LoadFrom()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
