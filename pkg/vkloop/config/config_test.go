package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkorobkov/vkloop/pkg/vkloop/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vkloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestDefault verifies the built-in settings.
func TestDefault(t *testing.T) {
	s := config.Default()

	assert.Empty(t, s.Token)
	assert.Equal(t, "https://api.vk.com/method/", s.BaseURL)
	assert.Equal(t, "5.103", s.Version)
	assert.Equal(t, 20*time.Second, s.Wait.Std())
	assert.Equal(t, 234, s.Mode)
	assert.Equal(t, 10*time.Second, s.Backoff.Std())
	assert.Greater(t, s.HTTPTimeout.Std(), s.Wait.Std())
	assert.Equal(t, "default", s.SessionName)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "vkloop", s.Redis.Prefix)
	assert.Empty(t, s.Redis.Addr)
}

// TestLoad_File verifies that file values layer over the defaults.
func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
token: file-token
wait: 5s
mode: 10
session_name: primary
cursor_path: /tmp/cursor.db
redis:
  addr: localhost:6379
  db: 3
`)

	s, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", s.Token)
	assert.Equal(t, 5*time.Second, s.Wait.Std())
	assert.Equal(t, 10, s.Mode)
	assert.Equal(t, "primary", s.SessionName)
	assert.Equal(t, "/tmp/cursor.db", s.CursorPath)
	assert.Equal(t, "localhost:6379", s.Redis.Addr)
	assert.Equal(t, 3, s.Redis.DB)

	// Untouched keys keep their defaults.
	assert.Equal(t, "5.103", s.Version)
	assert.Equal(t, 10*time.Second, s.Backoff.Std())
	assert.Equal(t, "vkloop", s.Redis.Prefix)
}

// TestLoad_DurationForms verifies the accepted duration encodings.
func TestLoad_DurationForms(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"string seconds", "5s", 5 * time.Second, false},
		{"string composite", "1m30s", 90 * time.Second, false},
		{"bare integer seconds", "15", 15 * time.Second, false},
		{"bare float seconds", "2.5", 2500 * time.Millisecond, false},
		{"quoted bare seconds", `"15"`, 15 * time.Second, false},
		{"garbage", "soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// http_timeout must stay above the configured wait for
			// Load's validation to pass.
			path := writeConfig(t, "token: tok\nhttp_timeout: 5m\nwait: "+tt.value+"\n")
			s, err := config.Load(path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Wait.Std())
		})
	}
}

// TestLoad_MissingFile verifies that an explicit unreadable path fails.
func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

// TestLoad_BadYAML verifies that malformed files fail with context.
func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "token: [unclosed\n")
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

// TestLoad_EnvOnly verifies loading without a file.
func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("VK_TOKEN", "env-token")
	t.Setenv("VK_MODE", "42")
	t.Setenv("VK_BACKOFF", "15")
	t.Setenv("VK_SEQUENTIAL_DISPATCH", "true")
	t.Setenv("REDIS_ADDR", "cache:6379")

	s, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-token", s.Token)
	assert.Equal(t, 42, s.Mode)
	assert.Equal(t, 15*time.Second, s.Backoff.Std(), "env backoff accepts bare seconds")
	assert.True(t, s.SequentialDispatch)
	assert.Equal(t, "cache:6379", s.Redis.Addr)
	assert.Equal(t, 20*time.Second, s.Wait.Std())
}

// TestLoad_EnvOverridesFile verifies precedence between the layers.
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "token: file-token\nwait: 5s\nlog_level: debug\n")

	t.Setenv("VK_TOKEN", "env-token")
	t.Setenv("VK_WAIT", "7s")

	s, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", s.Token)
	assert.Equal(t, 7*time.Second, s.Wait.Std())
	assert.Equal(t, "debug", s.LogLevel)
}

// TestLoad_BadEnvDuration verifies that unparseable env values fail.
func TestLoad_BadEnvDuration(t *testing.T) {
	t.Setenv("VK_TOKEN", "tok")
	t.Setenv("VK_BACKOFF", "whenever")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse environment")
}

// TestValidate verifies the settings checks.
func TestValidate(t *testing.T) {
	valid := config.Default()
	valid.Token = "tok"

	tests := []struct {
		name    string
		mutate  func(*config.Settings)
		wantErr string
	}{
		{"valid", func(s *config.Settings) {}, ""},
		{"missing token", func(s *config.Settings) { s.Token = "" }, "token is required"},
		{"zero wait", func(s *config.Settings) { s.Wait = 0 }, "wait must be positive"},
		{"negative backoff", func(s *config.Settings) { s.Backoff = config.Duration(-time.Second) }, "backoff must be positive"},
		{"timeout below wait", func(s *config.Settings) { s.HTTPTimeout = s.Wait }, "must exceed the wait window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestParseLevel verifies level name mapping.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level "+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.ParseLevel(tt.name))
		})
	}
}
