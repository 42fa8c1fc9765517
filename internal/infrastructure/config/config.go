package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for NIGHTWATCH Core.
// All configuration is loaded from YAML and can be overridden by environment
// variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Safety   SafetyConfig   `yaml:"safety"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
}

// SiteConfig contains observatory-site information.
type SiteConfig struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Timezone string         `yaml:"timezone"`
	Location LocationConfig `yaml:"location"`
}

// LocationConfig contains geographic coordinates of the observatory.
type LocationConfig struct {
	Latitude   float64 `yaml:"latitude"`
	Longitude  float64 `yaml:"longitude"`
	ElevationM float64 `yaml:"elevation_m"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SafetyConfig mirrors the thresholds of the safety monitor.
// See internal/safety for the semantics of each limit.
type SafetyConfig struct {
	WindLimitMPH             float64 `yaml:"wind_limit_mph"`
	WindHysteresisMarginMPH  float64 `yaml:"wind_hysteresis_margin_mph"`
	HumidityLimitPct         float64 `yaml:"humidity_limit_pct"`
	TempMinF                 float64 `yaml:"temp_min_f"`
	TwilightAltitudeDeg      float64 `yaml:"twilight_altitude_deg"`
	RainHoldoffMinutes       float64 `yaml:"rain_holdoff_minutes"`
	MinAltitudeDeg           float64 `yaml:"min_altitude_deg"`
	HorizonAltitudeBufferDeg float64 `yaml:"horizon_altitude_buffer_deg"`
	UPSWarningPct            float64 `yaml:"ups_warning_pct"`
	UPSCriticalPct           float64 `yaml:"ups_critical_pct"`
	UPSEmergencyPct          float64 `yaml:"ups_emergency_pct"`
	RequireEnclosureOpen     bool    `yaml:"require_enclosure_open"`
}

// DispatchConfig contains emergency-response dispatcher settings.
type DispatchConfig struct {
	// PollIntervalSec is how often the dispatcher evaluates the monitor.
	PollIntervalSec float64 `yaml:"poll_interval_sec"`

	// UnsafeDurationToParkSec is how long conditions must stay unsafe
	// before a park is commanded. Emergency-tier conditions bypass this.
	UnsafeDurationToParkSec float64 `yaml:"unsafe_duration_to_park_sec"`

	// SafeDurationToResumeSec is how long conditions must stay safe
	// before resumption is announced.
	SafeDurationToResumeSec float64 `yaml:"safe_duration_to_resume_sec"`

	// AlertMinIntervalSec rate-limits repeated identical alert events.
	AlertMinIntervalSec float64 `yaml:"alert_min_interval_sec"`
}

// WatchdogConfig contains service-liveness settings.
type WatchdogConfig struct {
	CheckIntervalSec float64                 `yaml:"check_interval_sec"`
	Services         []WatchdogServiceConfig `yaml:"services"`
}

// WatchdogServiceConfig configures one monitored service.
type WatchdogServiceConfig struct {
	Name       string  `yaml:"name"`
	TimeoutSec float64 `yaml:"timeout_sec"`
	Critical   bool    `yaml:"critical"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: NIGHTWATCH_SECTION_KEY
// For example: NIGHTWATCH_DATABASE_PATH, NIGHTWATCH_MQTT_HOST
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "NIGHTWATCH",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/nightwatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "nightwatch-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Safety: SafetyConfig{
			WindLimitMPH:             25.0,
			WindHysteresisMarginMPH:  5.0,
			HumidityLimitPct:         85.0,
			TempMinF:                 20.0,
			TwilightAltitudeDeg:      -12.0,
			RainHoldoffMinutes:       30.0,
			MinAltitudeDeg:           10.0,
			HorizonAltitudeBufferDeg: 2.0,
			UPSWarningPct:            50.0,
			UPSCriticalPct:           25.0,
			UPSEmergencyPct:          15.0,
			RequireEnclosureOpen:     true,
		},
		Dispatch: DispatchConfig{
			PollIntervalSec:         10.0,
			UnsafeDurationToParkSec: 60.0,
			SafeDurationToResumeSec: 300.0,
			AlertMinIntervalSec:     60.0,
		},
		Watchdog: WatchdogConfig{
			CheckIntervalSec: 30.0,
			Services: []WatchdogServiceConfig{
				{Name: "weather", TimeoutSec: 120, Critical: true},
				{Name: "power", TimeoutSec: 60, Critical: true},
				{Name: "enclosure", TimeoutSec: 120, Critical: false},
				{Name: "sun", TimeoutSec: 600, Critical: false},
				{Name: "target", TimeoutSec: 600, Critical: false},
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables follow the pattern:
// NIGHTWATCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NIGHTWATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("NIGHTWATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("NIGHTWATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("NIGHTWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("NIGHTWATCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.Dispatch.PollIntervalSec <= 0 {
		errs = append(errs, "dispatch.poll_interval_sec must be positive")
	}
	if c.Dispatch.UnsafeDurationToParkSec < 0 {
		errs = append(errs, "dispatch.unsafe_duration_to_park_sec must not be negative")
	}
	if c.Dispatch.SafeDurationToResumeSec < 0 {
		errs = append(errs, "dispatch.safe_duration_to_resume_sec must not be negative")
	}

	if c.Watchdog.CheckIntervalSec <= 0 {
		errs = append(errs, "watchdog.check_interval_sec must be positive")
	}
	for _, svc := range c.Watchdog.Services {
		if svc.Name == "" {
			errs = append(errs, "watchdog.services[].name is required")
		}
		if svc.TimeoutSec <= 0 {
			errs = append(errs, fmt.Sprintf("watchdog service %q: timeout_sec must be positive", svc.Name))
		}
	}

	// Threshold consistency is validated again by safety.NewMonitor; the
	// checks here catch config mistakes with file/line-friendly messages.
	if c.Safety.WindLimitMPH <= 0 {
		errs = append(errs, "safety.wind_limit_mph must be positive")
	}
	if c.Safety.RainHoldoffMinutes < 0 {
		errs = append(errs, "safety.rain_holdoff_minutes must not be negative")
	}
	if !(c.Safety.UPSEmergencyPct < c.Safety.UPSCriticalPct && c.Safety.UPSCriticalPct < c.Safety.UPSWarningPct) {
		errs = append(errs, "safety ups tiers must nest: emergency < critical < warning")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollInterval returns the dispatcher poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Dispatch.PollIntervalSec * float64(time.Second))
}

// GetUnsafeDurationToPark returns the unsafe debounce as a Duration.
func (c *Config) GetUnsafeDurationToPark() time.Duration {
	return time.Duration(c.Dispatch.UnsafeDurationToParkSec * float64(time.Second))
}

// GetSafeDurationToResume returns the safe debounce as a Duration.
func (c *Config) GetSafeDurationToResume() time.Duration {
	return time.Duration(c.Dispatch.SafeDurationToResumeSec * float64(time.Second))
}

// GetAlertMinInterval returns the alert rate-limit window as a Duration.
func (c *Config) GetAlertMinInterval() time.Duration {
	return time.Duration(c.Dispatch.AlertMinIntervalSec * float64(time.Second))
}

// GetWatchdogCheckInterval returns the watchdog check cadence as a Duration.
func (c *Config) GetWatchdogCheckInterval() time.Duration {
	return time.Duration(c.Watchdog.CheckIntervalSec * float64(time.Second))
}

// GetRainHoldoff returns the rain holdoff as a Duration.
func (c *Config) GetRainHoldoff() time.Duration {
	return time.Duration(c.Safety.RainHoldoffMinutes * float64(time.Minute))
}
