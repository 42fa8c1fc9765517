package safety

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Logger defines the logging interface for the safety package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Monitor is the safety evaluation engine.
//
// Construct it once with NewMonitor and inject it where needed; there is no
// package-level instance. Sensor adapters call the Update* methods at their
// own cadence; the dispatcher (and any other reader) calls Evaluate.
//
// Thread Safety: all methods are safe for concurrent use.
type Monitor struct {
	thresholds Thresholds
	logger     Logger

	// now is the clock; replaceable in tests for holdoff timing.
	now func() time.Time

	mu    sync.RWMutex
	state state
}

// NewMonitor creates a Monitor with the given thresholds.
//
// Returns:
//   - *Monitor: ready for use, all sensor state unset
//   - error: wrapping ErrInvalidThresholds if validation fails
func NewMonitor(thresholds Thresholds) (*Monitor, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Monitor{
		thresholds: thresholds,
		logger:     noopLogger{},
		now:        time.Now,
	}, nil
}

// SetLogger sets a logger for state-transition logging.
// If not set, transitions are not logged.
func (m *Monitor) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// Thresholds returns the Monitor's immutable thresholds.
func (m *Monitor) Thresholds() Thresholds {
	return m.thresholds
}

// UpdateWeather stores a new weather sample.
//
// Two pieces of derived state transition here rather than in Evaluate, so
// that evaluation stays pure:
//   - lastRainTime advances whenever the sample indicates rain
//   - the wind hysteresis latch trips above WindLimitMPH and clears only at
//     or below WindLimitMPH - WindHysteresisMarginMPH
//
// Returns:
//   - error: wrapping ErrInvalidSample for non-finite or out-of-range
//     values; state is unchanged on error
func (m *Monitor) UpdateWeather(sample WeatherSample) error {
	if err := validateSample(sample); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := sample
	m.state.weather = &s

	if sample.raining() {
		now := m.now()
		m.state.lastRainTime = &now
	}

	switch {
	case sample.WindSpeedMPH > m.thresholds.WindLimitMPH:
		if !m.state.windTriggered {
			m.logger.Warn("wind latch tripped",
				"wind_mph", sample.WindSpeedMPH,
				"limit_mph", m.thresholds.WindLimitMPH,
			)
		}
		m.state.windTriggered = true
	case m.state.windTriggered && sample.WindSpeedMPH <= m.thresholds.windClearThresholdMPH():
		m.logger.Info("wind latch cleared",
			"wind_mph", sample.WindSpeedMPH,
			"clear_threshold_mph", m.thresholds.windClearThresholdMPH(),
		)
		m.state.windTriggered = false
	}

	return nil
}

// UpdatePowerStatus stores the UPS battery level and mains state.
// Both values update atomically together.
//
// Returns:
//   - error: wrapping ErrInvalidPercent if batteryPercent is not a finite
//     value in [0, 100]; state is unchanged on error
func (m *Monitor) UpdatePowerStatus(batteryPercent float64, onBattery bool) error {
	if !isFinite(batteryPercent) || batteryPercent < 0 || batteryPercent > 100 {
		return fmt.Errorf("%w: %v", ErrInvalidPercent, batteryPercent)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.upsBatteryPercent = &batteryPercent
	m.state.upsOnBattery = onBattery
	return nil
}

// UpdateEnclosureStatus stores the enclosure position.
func (m *Monitor) UpdateEnclosureStatus(isOpen bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.enclosureOpen = &isOpen
}

// UpdateTargetAltitude stores the current target's altitude.
//
// Returns:
//   - error: wrapping ErrInvalidAltitude for non-finite values or values
//     outside [-90, 90]; state is unchanged on error
func (m *Monitor) UpdateTargetAltitude(altitudeDeg float64) error {
	if err := validateAltitude(altitudeDeg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.targetAltitudeDeg = &altitudeDeg
	return nil
}

// ClearTarget removes the current target. With no target set the altitude
// domain has no opinion; the scheduler calls this between observations.
func (m *Monitor) ClearTarget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.targetAltitudeDeg = nil
}

// UpdateSunAltitude stores the sun's altitude from the ephemeris service.
//
// Returns:
//   - error: wrapping ErrInvalidAltitude for non-finite values or values
//     outside [-90, 90]; state is unchanged on error
func (m *Monitor) UpdateSunAltitude(altitudeDeg float64) error {
	if err := validateAltitude(altitudeDeg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.sunAltitudeDeg = &altitudeDeg
	return nil
}

// Evaluate runs all six domain evaluators against a coherent snapshot of
// the current state and merges the results by strict descending priority.
//
// It never mutates state, performs no I/O and cannot fail. It may be called
// concurrently with updates and with other Evaluate calls.
func (m *Monitor) Evaluate() Status {
	m.mu.RLock()
	snap := m.state.clone()
	m.mu.RUnlock()

	now := m.now()
	t := m.thresholds

	weather := evalWeather(snap, t)
	holdoff := evalRainHoldoff(snap, t, now)
	altitude := evalAltitude(snap, t)
	power := evalPower(snap, t)
	enclosure := evalEnclosure(snap, t)
	daylight := evalDaylight(snap, t)

	// Reasons concatenate in evaluator order, so the primary cause of an
	// unsafe verdict is always first.
	var reasons []string
	reasons = append(reasons, weather.reasons...)
	reasons = append(reasons, holdoff.reasons...)
	reasons = append(reasons, altitude.reasons...)
	reasons = append(reasons, power.reasons...)
	reasons = append(reasons, enclosure.reasons...)
	reasons = append(reasons, daylight.reasons...)

	var (
		action Action
		level  AlertLevel
	)
	switch {
	case weather.raining:
		action, level = ActionEmergencyClose, AlertEmergency
	case power.emergency:
		action, level = ActionEmergencyClose, AlertEmergency
	case !holdoff.ok || !power.ok || !enclosure.ok:
		action, level = ActionParkAndWait, AlertCritical
	case !weather.ok || !altitude.ok || !daylight.ok:
		action, level = ActionParkAndWait, AlertWarning
	default:
		action, level = ActionSafeToObserve, AlertInfo
	}

	return Status{
		Timestamp:  now,
		Action:     action,
		IsSafe:     weather.ok && holdoff.ok && altitude.ok && power.ok && enclosure.ok && daylight.ok,
		AlertLevel: level,
		Reasons:    reasons,

		WeatherOK:   weather.ok,
		HoldoffOK:   holdoff.ok,
		AltitudeOK:  altitude.ok,
		PowerOK:     power.ok,
		EnclosureOK: enclosure.ok,
		DaylightOK:  daylight.ok,

		TargetAltitudeDeg: snap.targetAltitudeDeg,
		UPSBatteryPercent: snap.upsBatteryPercent,
		UPSOnBattery:      snap.upsOnBattery,
		EnclosureOpen:     snap.enclosureOpen,

		RainHoldoffActive:       !holdoff.ok,
		RainHoldoffRemainingMin: minutes(holdoff.remaining),
	}
}

// validateSample rejects non-finite and out-of-range weather values before
// they can reach the evaluators.
func validateSample(s WeatherSample) error {
	fields := map[string]float64{
		"rain_rate_in_hr": s.RainRateInHr,
		"wind_speed_mph":  s.WindSpeedMPH,
		"wind_gust_mph":   s.WindGustMPH,
		"humidity_pct":    s.HumidityPct,
		"temperature_f":   s.TemperatureF,
		"dew_point_f":     s.DewPointF,
	}
	for name, v := range fields {
		if !isFinite(v) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidSample, name)
		}
	}
	if s.RainRateInHr < 0 {
		return fmt.Errorf("%w: rain_rate_in_hr is negative", ErrInvalidSample)
	}
	if s.WindSpeedMPH < 0 || s.WindGustMPH < 0 {
		return fmt.Errorf("%w: wind speed is negative", ErrInvalidSample)
	}
	if s.HumidityPct < 0 || s.HumidityPct > 100 {
		return fmt.Errorf("%w: humidity_pct out of range", ErrInvalidSample)
	}
	return nil
}

func validateAltitude(deg float64) error {
	if !isFinite(deg) || deg < -90 || deg > 90 {
		return fmt.Errorf("%w: %v", ErrInvalidAltitude, deg)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
