package safety

import (
	"fmt"
	"strings"
	"time"
)

// Default threshold values, calibrated for the reference site.
const (
	defaultWindLimitMPH            = 25.0
	defaultWindHysteresisMarginMPH = 5.0
	defaultHumidityLimitPct        = 85.0
	defaultTempMinF                = 20.0
	defaultTwilightAltitudeDeg     = -12.0
	defaultRainHoldoff             = 30 * time.Minute
	defaultMinAltitudeDeg          = 10.0
	defaultHorizonBufferDeg        = 2.0
	defaultUPSWarningPct           = 50.0
	defaultUPSCriticalPct          = 25.0
	defaultUPSEmergencyPct         = 15.0
)

// Thresholds holds the immutable safety limits for a Monitor.
//
// One instance is constructed at startup (typically from config.yaml) and
// never changes for the Monitor's lifetime.
type Thresholds struct {
	// WindLimitMPH is the sustained wind speed that trips the wind latch.
	WindLimitMPH float64

	// WindHysteresisMarginMPH is how far below WindLimitMPH the wind must
	// drop before the latch clears. The sticky band between
	// (limit - margin) and limit is the anti-oscillation guarantee.
	WindHysteresisMarginMPH float64

	// HumidityLimitPct is the maximum relative humidity for observing.
	HumidityLimitPct float64

	// TempMinF is the minimum ambient temperature for observing.
	TempMinF float64

	// TwilightAltitudeDeg is the sun altitude below which it is dark
	// enough to observe (astronomical twilight is -12).
	TwilightAltitudeDeg float64

	// RainHoldoff is the mandatory wait after the last rain detection
	// before conditions may be considered safe again.
	RainHoldoff time.Duration

	// MinAltitudeDeg is the minimum target altitude for pointing.
	MinAltitudeDeg float64

	// HorizonAltitudeBufferDeg is the advisory band above MinAltitudeDeg:
	// targets inside it are allowed but flagged as near the horizon.
	HorizonAltitudeBufferDeg float64

	// UPS battery tiers, strictly nested: emergency < critical < warning.
	UPSWarningPct   float64
	UPSCriticalPct  float64
	UPSEmergencyPct float64

	// RequireEnclosureOpen enables the enclosure-position check.
	RequireEnclosureOpen bool
}

// DefaultThresholds returns Thresholds with the reference-site defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WindLimitMPH:             defaultWindLimitMPH,
		WindHysteresisMarginMPH:  defaultWindHysteresisMarginMPH,
		HumidityLimitPct:         defaultHumidityLimitPct,
		TempMinF:                 defaultTempMinF,
		TwilightAltitudeDeg:      defaultTwilightAltitudeDeg,
		RainHoldoff:              defaultRainHoldoff,
		MinAltitudeDeg:           defaultMinAltitudeDeg,
		HorizonAltitudeBufferDeg: defaultHorizonBufferDeg,
		UPSWarningPct:            defaultUPSWarningPct,
		UPSCriticalPct:           defaultUPSCriticalPct,
		UPSEmergencyPct:          defaultUPSEmergencyPct,
		RequireEnclosureOpen:     true,
	}
}

// Validate checks the thresholds for consistency.
//
// Returns:
//   - error: wrapping ErrInvalidThresholds with every violation, or nil
func (t Thresholds) Validate() error {
	var errs []string

	if t.WindLimitMPH <= 0 {
		errs = append(errs, "wind_limit_mph must be positive")
	}
	if t.WindHysteresisMarginMPH < 0 {
		errs = append(errs, "wind_hysteresis_margin_mph must not be negative")
	}
	if t.WindHysteresisMarginMPH >= t.WindLimitMPH {
		errs = append(errs, "wind_hysteresis_margin_mph must be below wind_limit_mph")
	}
	if t.HumidityLimitPct <= 0 || t.HumidityLimitPct > 100 {
		errs = append(errs, "humidity_limit_pct must be in (0, 100]")
	}
	if t.RainHoldoff < 0 {
		errs = append(errs, "rain_holdoff must not be negative")
	}
	if t.MinAltitudeDeg < 0 || t.MinAltitudeDeg >= 90 {
		errs = append(errs, "min_altitude_deg must be in [0, 90)")
	}
	if t.HorizonAltitudeBufferDeg < 0 {
		errs = append(errs, "horizon_altitude_buffer_deg must not be negative")
	}

	// Battery tiers must nest strictly: emergency < critical < warning.
	switch {
	case t.UPSEmergencyPct < 0 || t.UPSWarningPct > 100:
		errs = append(errs, "ups battery tiers must be percentages")
	case t.UPSEmergencyPct >= t.UPSCriticalPct:
		errs = append(errs, "ups_emergency_pct must be below ups_critical_pct")
	case t.UPSCriticalPct >= t.UPSWarningPct:
		errs = append(errs, "ups_critical_pct must be below ups_warning_pct")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidThresholds, strings.Join(errs, "; "))
	}
	return nil
}

// windClearThresholdMPH returns the speed at or below which the wind latch
// clears.
func (t Thresholds) windClearThresholdMPH() float64 {
	return t.WindLimitMPH - t.WindHysteresisMarginMPH
}
