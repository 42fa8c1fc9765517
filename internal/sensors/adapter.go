package sensors

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nightwatch-obs/nightwatch-core/internal/infrastructure/mqtt"
	"github.com/nightwatch-obs/nightwatch-core/internal/safety"
)

// Monitor is the slice of safety.Monitor the adapter feeds.
type Monitor interface {
	UpdateWeather(sample safety.WeatherSample) error
	UpdatePowerStatus(batteryPercent float64, onBattery bool) error
	UpdateEnclosureStatus(isOpen bool)
	UpdateSunAltitude(altitudeDeg float64) error
	UpdateTargetAltitude(altitudeDeg float64) error
	ClearTarget()
}

// Subscriber is the slice of mqtt.Client the adapter needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Heartbeats receives a beat for every accepted sensor reading.
// Satisfied by watchdog.Watchdog.
type Heartbeats interface {
	Heartbeat(name string)
}

// Telemetry receives accepted weather and UPS readings.
// Satisfied by influxdb.Client.
type Telemetry interface {
	WriteWeather(siteID string, windMPH, gustMPH, humidityPct, tempF, rainRateInHr float64, raining bool)
	WriteUPS(siteID string, batteryPct float64, onBattery bool)
}

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Adapter decodes sensor readings from MQTT and forwards them to the
// safety monitor.
type Adapter struct {
	monitor    Monitor
	heartbeats Heartbeats
	telemetry  Telemetry
	siteID     string
	logger     Logger
}

// NewAdapter creates a sensor adapter feeding the given monitor.
func NewAdapter(monitor Monitor) *Adapter {
	return &Adapter{
		monitor: monitor,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for dropped and accepted readings.
func (a *Adapter) SetLogger(logger Logger) {
	if logger != nil {
		a.logger = logger
	}
}

// SetHeartbeats wires a liveness tracker. Each accepted reading beats the
// heartbeat named after its sensor source.
func (a *Adapter) SetHeartbeats(hb Heartbeats) {
	a.heartbeats = hb
}

// SetTelemetry wires an optional telemetry sink. Accepted weather and power
// readings are written as raw measurement points tagged with siteID.
// Rejected readings are never written.
func (a *Adapter) SetTelemetry(t Telemetry, siteID string) {
	a.telemetry = t
	a.siteID = siteID
}

// Start subscribes to all sensor topics with a single wildcard.
//
// Parameters:
//   - sub: MQTT client to subscribe with
//   - qos: QoS level for the subscription
//
// Returns:
//   - error: If the subscription fails
func (a *Adapter) Start(sub Subscriber, qos byte) error {
	topic := mqtt.Topics{}.AllSensors()
	if err := sub.Subscribe(topic, qos, a.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}

// HandleMessage decodes one sensor reading and forwards it to the monitor.
//
// The sensor source is the final topic segment. Unknown sources, malformed
// JSON, and readings the monitor rejects all return an error; the caller
// (the MQTT client wrapper) logs and drops them, leaving the monitor's
// last good state intact.
func (a *Adapter) HandleMessage(topic string, payload []byte) error {
	source := topic[strings.LastIndex(topic, "/")+1:]

	var err error
	switch source {
	case mqtt.SensorWeather:
		err = a.handleWeather(payload)
	case mqtt.SensorPower:
		err = a.handlePower(payload)
	case mqtt.SensorEnclosure:
		err = a.handleEnclosure(payload)
	case mqtt.SensorSun:
		err = a.handleSun(payload)
	case mqtt.SensorTarget:
		err = a.handleTarget(payload)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	if err != nil {
		a.logger.Warn("sensor reading dropped", "source", source, "error", err)
		return err
	}

	a.logger.Debug("sensor reading accepted", "source", source)
	a.beat(source)
	return nil
}

// beat records liveness for a sensor source.
func (a *Adapter) beat(source string) {
	if a.heartbeats != nil {
		a.heartbeats.Heartbeat(source)
	}
}

func (a *Adapter) handleWeather(payload []byte) error {
	var p weatherPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	sample := safety.WeatherSample{
		IsRaining:    p.IsRaining,
		RainRateInHr: p.RainRateInHr,
		WindSpeedMPH: p.WindSpeedMPH,
		WindGustMPH:  p.WindGustMPH,
		HumidityPct:  p.HumidityPct,
		TemperatureF: p.TemperatureF,
		DewPointF:    p.DewPointF,
	}
	if err := a.monitor.UpdateWeather(sample); err != nil {
		return fmt.Errorf("%w: %w", ErrRejectedReading, err)
	}

	if a.telemetry != nil {
		a.telemetry.WriteWeather(a.siteID,
			sample.WindSpeedMPH, sample.WindGustMPH,
			sample.HumidityPct, sample.TemperatureF,
			sample.RainRateInHr, sample.IsRaining,
		)
	}
	return nil
}

func (a *Adapter) handlePower(payload []byte) error {
	var p powerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if err := a.monitor.UpdatePowerStatus(p.BatteryPercent, p.OnBattery); err != nil {
		return fmt.Errorf("%w: %w", ErrRejectedReading, err)
	}

	if a.telemetry != nil {
		a.telemetry.WriteUPS(a.siteID, p.BatteryPercent, p.OnBattery)
	}
	return nil
}

func (a *Adapter) handleEnclosure(payload []byte) error {
	var p enclosurePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	a.monitor.UpdateEnclosureStatus(p.Open)
	return nil
}

func (a *Adapter) handleSun(payload []byte) error {
	var p altitudePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if p.AltitudeDeg == nil {
		return fmt.Errorf("%w: sun altitude missing", ErrMalformedPayload)
	}
	if err := a.monitor.UpdateSunAltitude(*p.AltitudeDeg); err != nil {
		return fmt.Errorf("%w: %w", ErrRejectedReading, err)
	}
	return nil
}

func (a *Adapter) handleTarget(payload []byte) error {
	var p altitudePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	// A null altitude means no current target.
	if p.AltitudeDeg == nil {
		a.monitor.ClearTarget()
		return nil
	}
	if err := a.monitor.UpdateTargetAltitude(*p.AltitudeDeg); err != nil {
		return fmt.Errorf("%w: %w", ErrRejectedReading, err)
	}
	return nil
}
