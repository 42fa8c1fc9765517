// NIGHTWATCH Core - Observatory Safety Controller
//
// This is the main entry point for the NIGHTWATCH safety controller. It
// fuses sensor feeds (weather, UPS, enclosure, ephemeris) into a single
// safety verdict, publishes that verdict on MQTT, and commands protective
// actions (park, emergency close) when conditions demand them.
//
// The controller is the safety authority for the site: the scheduler may
// only observe while the retained safety status says it is safe to do so.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nightwatch-obs/nightwatch-core/migrations"

	"github.com/nightwatch-obs/nightwatch-core/internal/dispatch"
	"github.com/nightwatch-obs/nightwatch-core/internal/events"
	"github.com/nightwatch-obs/nightwatch-core/internal/infrastructure/config"
	"github.com/nightwatch-obs/nightwatch-core/internal/infrastructure/database"
	"github.com/nightwatch-obs/nightwatch-core/internal/infrastructure/influxdb"
	"github.com/nightwatch-obs/nightwatch-core/internal/infrastructure/logging"
	"github.com/nightwatch-obs/nightwatch-core/internal/infrastructure/mqtt"
	"github.com/nightwatch-obs/nightwatch-core/internal/safety"
	"github.com/nightwatch-obs/nightwatch-core/internal/sensors"
	"github.com/nightwatch-obs/nightwatch-core/internal/watchdog"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting NIGHTWATCH Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	eventRepo := events.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the safety monitor from configured thresholds
	monitor, err := safety.NewMonitor(thresholdsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("creating safety monitor: %w", err)
	}
	monitor.SetLogger(log)
	log.Info("safety monitor initialised",
		"wind_limit_mph", cfg.Safety.WindLimitMPH,
		"rain_holdoff", cfg.GetRainHoldoff(),
	)

	// Watchdog tracks sensor service liveness
	wd := watchdog.New()
	for _, svc := range cfg.Watchdog.Services {
		wd.Register(svc.Name, watchdog.ServiceConfig{
			Timeout:  time.Duration(svc.TimeoutSec * float64(time.Second)),
			Critical: svc.Critical,
		})
	}
	log.Info("watchdog initialised", "services", len(cfg.Watchdog.Services))

	// Dispatcher turns evaluations into published status and commands
	dispatcher := dispatch.New(dispatch.Config{
		SiteID:               cfg.Site.ID,
		QoS:                  byte(cfg.MQTT.QoS),
		PollInterval:         cfg.GetPollInterval(),
		UnsafeDurationToPark: cfg.GetUnsafeDurationToPark(),
		SafeDurationToResume: cfg.GetSafeDurationToResume(),
		AlertMinInterval:     cfg.GetAlertMinInterval(),
	}, monitor, mqttClient, eventRepo)
	dispatcher.SetLogger(log)
	dispatcher.SetHealth(wd)
	if influxClient != nil {
		dispatcher.SetTelemetry(influxClient)
	}

	wd.SetOnStateChange(dispatcher.HandleWatchdogChange)

	// Sensor adapter feeds MQTT readings into the monitor
	adapter := sensors.NewAdapter(monitor)
	adapter.SetLogger(log)
	adapter.SetHeartbeats(wd)
	if influxClient != nil {
		adapter.SetTelemetry(influxClient, cfg.Site.ID)
	}
	if err := adapter.Start(mqttClient, byte(cfg.MQTT.QoS)); err != nil {
		return fmt.Errorf("starting sensor adapter: %w", err)
	}
	log.Info("sensor adapter subscribed", "topic", mqtt.Topics{}.AllSensors())

	// Verify all connections are healthy before going live
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	go wd.Run(ctx, cfg.GetWatchdogCheckInterval())
	go dispatcher.Run(ctx)

	log.Info("initialisation complete, safety loop running")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. MQTT
	// 3. Database

	log.Info("NIGHTWATCH Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses NIGHTWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("NIGHTWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// thresholdsFromConfig converts the YAML safety section into monitor
// thresholds.
func thresholdsFromConfig(cfg *config.Config) safety.Thresholds {
	return safety.Thresholds{
		WindLimitMPH:             cfg.Safety.WindLimitMPH,
		WindHysteresisMarginMPH:  cfg.Safety.WindHysteresisMarginMPH,
		HumidityLimitPct:         cfg.Safety.HumidityLimitPct,
		TempMinF:                 cfg.Safety.TempMinF,
		TwilightAltitudeDeg:      cfg.Safety.TwilightAltitudeDeg,
		RainHoldoff:              cfg.GetRainHoldoff(),
		MinAltitudeDeg:           cfg.Safety.MinAltitudeDeg,
		HorizonAltitudeBufferDeg: cfg.Safety.HorizonAltitudeBufferDeg,
		UPSWarningPct:            cfg.Safety.UPSWarningPct,
		UPSCriticalPct:           cfg.Safety.UPSCriticalPct,
		UPSEmergencyPct:          cfg.Safety.UPSEmergencyPct,
		RequireEnclosureOpen:     cfg.Safety.RequireEnclosureOpen,
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
