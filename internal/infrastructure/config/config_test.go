package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ─── Helpers ─────────────────────────────────────────────────────────────────

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const minimalConfig = `
site:
  id: test-site
  name: Test Observatory
`

// ─── Loading ─────────────────────────────────────────────────────────────────

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Safety.WindLimitMPH != 25.0 {
		t.Errorf("Safety.WindLimitMPH = %v, want 25", cfg.Safety.WindLimitMPH)
	}
	if cfg.Dispatch.UnsafeDurationToParkSec != 60.0 {
		t.Errorf("Dispatch.UnsafeDurationToParkSec = %v, want 60", cfg.Dispatch.UnsafeDurationToParkSec)
	}
	if len(cfg.Watchdog.Services) == 0 {
		t.Error("expected default watchdog services")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
site:
  id: test-site
mqtt:
  broker:
    host: broker.internal
    port: 8883
    tls: true
safety:
  wind_limit_mph: 30
  rain_holdoff_minutes: 45
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.internal" {
		t.Errorf("MQTT.Broker.Host = %q, want broker.internal", cfg.MQTT.Broker.Host)
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = false, want true")
	}
	if cfg.Safety.WindLimitMPH != 30 {
		t.Errorf("Safety.WindLimitMPH = %v, want 30", cfg.Safety.WindLimitMPH)
	}
	if got := cfg.GetRainHoldoff(); got != 45*time.Minute {
		t.Errorf("GetRainHoldoff() = %v, want 45m", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "site: [unclosed")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

// ─── Environment Overrides ───────────────────────────────────────────────────

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NIGHTWATCH_DATABASE_PATH", "/var/lib/nightwatch/test.db")
	t.Setenv("NIGHTWATCH_MQTT_HOST", "env-broker")
	t.Setenv("NIGHTWATCH_MQTT_USERNAME", "env-user")
	t.Setenv("NIGHTWATCH_MQTT_PASSWORD", "env-pass")
	t.Setenv("NIGHTWATCH_INFLUXDB_TOKEN", "env-token")

	cfg, err := Load(writeConfig(t, minimalConfig+`
database:
  path: ./file.db
mqtt:
  broker:
    host: file-broker
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/nightwatch/test.db" {
		t.Errorf("Database.Path = %q, want env value", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want env-broker", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Auth.Username != "env-user" || cfg.MQTT.Auth.Password != "env-pass" {
		t.Error("MQTT auth not overridden from environment")
	}
	if cfg.InfluxDB.Token != "env-token" {
		t.Errorf("InfluxDB.Token = %q, want env-token", cfg.InfluxDB.Token)
	}
}

// ─── Validation ──────────────────────────────────────────────────────────────

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Site.ID = ""
	cfg.MQTT.QoS = 3
	cfg.Dispatch.PollIntervalSec = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"site.id", "mqtt.qos", "poll_interval_sec"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestValidate_UPSTierOrdering(t *testing.T) {
	cfg := defaultConfig()
	cfg.Safety.UPSEmergencyPct = 60 // above warning

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "ups tiers") {
		t.Fatalf("expected ups tier error, got %v", err)
	}
}

func TestValidate_WatchdogServiceTimeout(t *testing.T) {
	cfg := defaultConfig()
	cfg.Watchdog.Services = []WatchdogServiceConfig{{Name: "weather", TimeoutSec: 0}}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "weather") {
		t.Fatalf("expected watchdog timeout error, got %v", err)
	}
}

// ─── Duration Helpers ────────────────────────────────────────────────────────

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Dispatch.PollIntervalSec = 2.5
	cfg.Dispatch.SafeDurationToResumeSec = 300

	if got := cfg.GetPollInterval(); got != 2500*time.Millisecond {
		t.Errorf("GetPollInterval() = %v, want 2.5s", got)
	}
	if got := cfg.GetSafeDurationToResume(); got != 5*time.Minute {
		t.Errorf("GetSafeDurationToResume() = %v, want 5m", got)
	}
	if got := cfg.GetWatchdogCheckInterval(); got != 30*time.Second {
		t.Errorf("GetWatchdogCheckInterval() = %v, want 30s", got)
	}
}
