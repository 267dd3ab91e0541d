package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/sidebar/internal/trace"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	n := cfg.Notifications
	if n.Command != "dbus-monitor" {
		t.Errorf("Command = %q", n.Command)
	}
	if len(n.Args) != 2 || n.Args[0] != "--session" {
		t.Errorf("Args = %v", n.Args)
	}
	if n.Capacity != 100 {
		t.Errorf("Capacity = %d, want 100", n.Capacity)
	}
	if n.RetryDelay != 5*time.Second {
		t.Errorf("RetryDelay = %s, want 5s", n.RetryDelay)
	}
	if n.RespawnPerSecond != 0 {
		t.Errorf("RespawnPerSecond = %v, want 0 (unlimited)", n.RespawnPerSecond)
	}
	if n.Schema != trace.DefaultSchema {
		t.Errorf("Schema = %+v", n.Schema)
	}
	if cfg.UI.PollInterval != time.Second {
		t.Errorf("PollInterval = %s", cfg.UI.PollInterval)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
  "notifications": {
    "capacity": 25,
    "retry_delay": "750ms",
    "schema": {"summary": 2}
  }
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	n := cfg.Notifications
	if n.Capacity != 25 {
		t.Errorf("Capacity = %d, want 25", n.Capacity)
	}
	if n.RetryDelay != 750*time.Millisecond {
		t.Errorf("RetryDelay = %s, want 750ms", n.RetryDelay)
	}
	if n.Schema.Summary != 2 || n.Schema.Body != 4 {
		t.Errorf("Schema = %+v, want summary=2 body=4", n.Schema)
	}
	if n.Command != "dbus-monitor" {
		t.Errorf("unset keys should keep defaults, Command = %q", n.Command)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SIDEBAR_NOTIFICATIONS_CAPACITY", "7")
	t.Setenv("SIDEBAR_NOTIFICATIONS_MEMBER", "Alert")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notifications.Capacity != 7 {
		t.Errorf("Capacity = %d, want 7", cfg.Notifications.Capacity)
	}
	if cfg.Notifications.Member != "Alert" {
		t.Errorf("Member = %q, want Alert", cfg.Notifications.Member)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"notifications": {"capacity": 0}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "capacity") {
		t.Fatalf("expected capacity validation error, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Notifications.Capacity = 42
	cfg.Notifications.RetryDelay = 2 * time.Second
	cfg.UI.PollInterval = 250 * time.Millisecond
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"2s"`) {
		t.Errorf("durations should be written as strings: %s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Notifications.Capacity != 42 || loaded.Notifications.RetryDelay != 2*time.Second {
		t.Errorf("round trip mismatch: %+v", loaded.Notifications)
	}
	if loaded.UI.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %s", loaded.UI.PollInterval)
	}
}
