// Package config loads runtime settings from YAML files and the
// environment.
//
// Precedence, lowest to highest: built-in defaults, the optional YAML
// file, then environment variables (VK_* for the session and client,
// REDIS_* for storage).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mkorobkov/vkloop/pkg/vkloop/api"
	"github.com/mkorobkov/vkloop/pkg/vkloop/longpoll"
)

// Duration is a time.Duration that accepts "20s"-style strings and
// bare numbers of seconds, in both YAML and environment values.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// parseDuration accepts a time.ParseDuration string or a bare number
// of seconds. Numeric YAML scalars decode into strings too, so one
// string path covers every form.
func parseDuration(raw string) (Duration, error) {
	if parsed, err := time.ParseDuration(raw); err == nil {
		return Duration(parsed), nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(secs * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("parse duration %q: want a duration like \"20s\" or seconds", raw)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RedisSettings configures the optional Redis storage backend. An
// empty Addr disables it.
type RedisSettings struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
}

// Settings is the full runtime configuration.
type Settings struct {
	// Token is the user access token. Required.
	Token string `yaml:"token" env:"VK_TOKEN"`

	BaseURL string `yaml:"base_url" env:"VK_BASE_URL"`
	Version string `yaml:"version" env:"VK_API_VERSION"`

	// Wait is the server-side hold window; Mode the long-poll
	// behaviour flags; Backoff the recovery pause.
	Wait    Duration `yaml:"wait" env:"VK_WAIT"`
	Mode    int      `yaml:"mode" env:"VK_MODE"`
	Backoff Duration `yaml:"backoff" env:"VK_BACKOFF"`

	// HTTPTimeout bounds poll requests and must exceed Wait.
	HTTPTimeout Duration `yaml:"http_timeout" env:"VK_HTTP_TIMEOUT"`

	SequentialDispatch bool `yaml:"sequential_dispatch" env:"VK_SEQUENTIAL_DISPATCH"`

	// SessionName keys the persisted cursor; CursorPath is the SQLite
	// file holding it. An empty CursorPath disables persistence.
	SessionName string `yaml:"session_name" env:"VK_SESSION_NAME"`
	CursorPath  string `yaml:"cursor_path" env:"VK_CURSOR_PATH"`

	LogLevel string `yaml:"log_level" env:"VK_LOG_LEVEL"`

	Redis RedisSettings `yaml:"redis"`
}

// Default returns the built-in settings. They are not valid on their
// own: Token must come from the file or the environment.
func Default() Settings {
	return Settings{
		BaseURL:     api.DefaultBaseURL,
		Version:     api.DefaultVersion,
		Wait:        Duration(longpoll.DefaultWait),
		Mode:        longpoll.DefaultMode,
		Backoff:     Duration(longpoll.DefaultBackoff),
		HTTPTimeout: Duration(35 * time.Second),
		SessionName: "default",
		LogLevel:    "info",
		Redis:       RedisSettings{Prefix: "vkloop"},
	}
}

// Load builds settings by layering the YAML file at path and then the
// environment over the defaults. An empty path skips the file; a path
// that cannot be read is an error.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings for use against the live API.
func (s Settings) Validate() error {
	if s.Token == "" {
		return errors.New("token is required")
	}
	if s.Wait.Std() <= 0 {
		return fmt.Errorf("wait must be positive, got %s", s.Wait.Std())
	}
	if s.Backoff.Std() <= 0 {
		return fmt.Errorf("backoff must be positive, got %s", s.Backoff.Std())
	}
	if s.HTTPTimeout.Std() <= s.Wait.Std() {
		return fmt.Errorf("http timeout %s must exceed the wait window %s", s.HTTPTimeout.Std(), s.Wait.Std())
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level. Unknown names
// fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
