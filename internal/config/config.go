// Package config loads sidebar settings from <config_dir>/sidebar/config.json
// with SIDEBAR_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abelbrown/sidebar/internal/trace"
)

// Config is the persistent application configuration
type Config struct {
	Notifications NotificationsConfig `mapstructure:"notifications"`
	UI            UIConfig            `mapstructure:"ui"`
	Tally         TallyConfig         `mapstructure:"tally"`
}

// NotificationsConfig controls the ingestion pipeline.
type NotificationsConfig struct {
	Command          string        `mapstructure:"command"`
	Args             []string      `mapstructure:"args"`
	Member           string        `mapstructure:"member"`
	Capacity         int           `mapstructure:"capacity"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`        // wait after a failed spawn
	RespawnPerSecond float64       `mapstructure:"respawn_per_second"` // optional flap guard; 0 = unlimited
	RespawnBurst     int           `mapstructure:"respawn_burst"`
	SnapshotPath     string        `mapstructure:"snapshot_path"`
	Schema           trace.Schema  `mapstructure:"schema"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// TallyConfig locates the food/water counter database.
type TallyConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// Dir returns <user config dir>/sidebar, falling back to /tmp/sidebar.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "sidebar")
}

// DataDir returns $XDG_DATA_HOME/sidebar or ~/.local/share/sidebar.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "sidebar")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sidebar")
	}
	return filepath.Join(home, ".local", "share", "sidebar")
}

// Path returns the path to the config file
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// EventLogPath returns the JSONL pipeline event log.
func EventLogPath() string {
	return filepath.Join(Dir(), "events.jsonl")
}

// Default returns sensible defaults
func Default() *Config {
	return &Config{
		Notifications: NotificationsConfig{
			Command: "dbus-monitor",
			Args: []string{
				"--session",
				"interface='org.freedesktop.Notifications',member='Notify'",
			},
			Member:           trace.DefaultMember,
			Capacity:         100,
			RetryDelay:       5 * time.Second,
			RespawnPerSecond: 0, // unlimited
			RespawnBurst:     10,
			SnapshotPath:     filepath.Join(Dir(), "notifications.json"),
			Schema:           trace.DefaultSchema,
		},
		UI: UIConfig{
			PollInterval: time.Second,
		},
		Tally: TallyConfig{
			DBPath: filepath.Join(DataDir(), "tally.db"),
		},
	}
}

// settings flattens c into viper keys. Durations are written as strings.
func (c *Config) settings() map[string]any {
	n := c.Notifications
	return map[string]any{
		"notifications.command":            n.Command,
		"notifications.args":               n.Args,
		"notifications.member":             n.Member,
		"notifications.capacity":           n.Capacity,
		"notifications.retry_delay":        n.RetryDelay.String(),
		"notifications.respawn_per_second": n.RespawnPerSecond,
		"notifications.respawn_burst":      n.RespawnBurst,
		"notifications.snapshot_path":      n.SnapshotPath,
		"notifications.schema.source":      n.Schema.Source,
		"notifications.schema.summary":     n.Schema.Summary,
		"notifications.schema.body":        n.Schema.Body,
		"ui.poll_interval":                 c.UI.PollInterval.String(),
		"tally.db_path":                    c.Tally.DBPath,
	}
}

// Load reads path (Path() when empty). A missing file yields defaults;
// SIDEBAR_* variables override both, e.g. SIDEBAR_NOTIFICATIONS_CAPACITY.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	v := viper.New()
	for key, val := range Default().settings() {
		v.SetDefault(key, val)
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("SIDEBAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	n := c.Notifications
	switch {
	case strings.TrimSpace(n.Command) == "":
		return errors.New("notifications.command is empty")
	case n.Capacity <= 0:
		return fmt.Errorf("notifications.capacity must be positive, got %d", n.Capacity)
	case n.RetryDelay <= 0:
		return fmt.Errorf("notifications.retry_delay must be positive, got %s", n.RetryDelay)
	case n.RespawnPerSecond < 0:
		return fmt.Errorf("notifications.respawn_per_second must not be negative, got %v", n.RespawnPerSecond)
	case n.RespawnBurst < 1:
		return fmt.Errorf("notifications.respawn_burst must be at least 1, got %d", n.RespawnBurst)
	case n.Schema.Source < 0 || n.Schema.Summary < 0 || n.Schema.Body < 0:
		return errors.New("notifications.schema indices must be non-negative")
	}
	return nil
}

// Save writes c to path as indented JSON, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	for key, val := range c.settings() {
		v.Set(key, val)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
