package safety

import (
	"fmt"
	"time"
)

// minutesPerDuration converts a duration to fractional minutes.
func minutes(d time.Duration) float64 {
	return d.Minutes()
}

// weatherResult carries the weather domain verdict plus the rain flag the
// merge step needs for emergency escalation.
type weatherResult struct {
	ok      bool
	raining bool
	reasons []string
}

// evalWeather applies the rain, wind-latch, humidity and temperature rules.
//
// The wind latch itself transitions in UpdateWeather; here we only read it,
// so a momentary reading inside the sticky band cannot flip the verdict.
// An absent sample means no opinion: ok with no reasons.
func evalWeather(snap state, t Thresholds) weatherResult {
	if snap.weather == nil {
		return weatherResult{ok: true}
	}
	w := *snap.weather

	var reasons []string
	if w.raining() {
		reasons = append(reasons, "Rain detected - emergency close required")
	}
	if snap.windTriggered {
		reasons = append(reasons, fmt.Sprintf(
			"Wind %.1f mph above limit - waiting for drop below %.0f mph",
			w.WindSpeedMPH, t.windClearThresholdMPH()))
	}
	if w.HumidityPct > t.HumidityLimitPct {
		reasons = append(reasons, fmt.Sprintf(
			"Humidity %.1f%% exceeds limit %.0f%%", w.HumidityPct, t.HumidityLimitPct))
	}
	if w.TemperatureF < t.TempMinF {
		reasons = append(reasons, fmt.Sprintf(
			"Temperature %.1f°F below minimum %.0f°F", w.TemperatureF, t.TempMinF))
	}

	return weatherResult{
		ok:      len(reasons) == 0,
		raining: w.raining(),
		reasons: reasons,
	}
}

// holdoffResult carries the rain-holdoff verdict and the remaining wait.
type holdoffResult struct {
	ok        bool
	remaining time.Duration
	reasons   []string
}

// evalRainHoldoff guards the reopen decision after rain has stopped. It is
// deliberately independent of the current is_raining flag: the holdoff runs
// from the last rain detection regardless of what the sensor says now.
func evalRainHoldoff(snap state, t Thresholds, now time.Time) holdoffResult {
	if snap.lastRainTime == nil {
		return holdoffResult{ok: true}
	}

	elapsed := now.Sub(*snap.lastRainTime)
	if elapsed >= t.RainHoldoff {
		return holdoffResult{ok: true}
	}

	remaining := t.RainHoldoff - elapsed
	return holdoffResult{
		ok:        false,
		remaining: remaining,
		reasons: []string{fmt.Sprintf(
			"Rain holdoff active, %.1f minutes remaining", minutes(remaining))},
	}
}

// domainResult is the common verdict shape for the simpler evaluators.
type domainResult struct {
	ok      bool
	reasons []string
}

// evalAltitude applies the tri-state pointing rule: below minimum is a veto,
// inside the horizon buffer is ok with an advisory, above is clean. With no
// target set there is nothing to point at, so the domain has no opinion.
func evalAltitude(snap state, t Thresholds) domainResult {
	if snap.targetAltitudeDeg == nil {
		return domainResult{ok: true}
	}
	alt := *snap.targetAltitudeDeg

	switch {
	case alt < t.MinAltitudeDeg:
		return domainResult{ok: false, reasons: []string{fmt.Sprintf(
			"Target altitude %.1f° below minimum %.0f°", alt, t.MinAltitudeDeg)}}
	case alt < t.MinAltitudeDeg+t.HorizonAltitudeBufferDeg:
		return domainResult{ok: true, reasons: []string{fmt.Sprintf(
			"Target near horizon limit (%.1f°)", alt)}}
	default:
		return domainResult{ok: true}
	}
}

// powerResult carries the power verdict plus the emergency flag consumed by
// the merge step.
type powerResult struct {
	ok        bool
	emergency bool
	reasons   []string
}

// evalPower applies the four battery tiers. The warning tier and the
// on-battery flag are advisory only; the critical tier demands parking; the
// emergency tier demands an emergency close.
func evalPower(snap state, t Thresholds) powerResult {
	if snap.upsBatteryPercent == nil {
		return powerResult{ok: true}
	}
	pct := *snap.upsBatteryPercent

	switch {
	case pct >= t.UPSWarningPct:
		var reasons []string
		if snap.upsOnBattery {
			reasons = []string{"Running on battery power"}
		}
		return powerResult{ok: true, reasons: reasons}

	case pct >= t.UPSCriticalPct:
		return powerResult{ok: true, reasons: []string{fmt.Sprintf(
			"Battery warning level (%.0f%%)", pct)}}

	case pct >= t.UPSEmergencyPct:
		return powerResult{ok: false, reasons: []string{fmt.Sprintf(
			"Battery critical (%.0f%%) - parking required", pct)}}

	default:
		return powerResult{ok: false, emergency: true, reasons: []string{fmt.Sprintf(
			"Battery emergency (%.0f%%) - emergency close required", pct)}}
	}
}

// evalEnclosure checks the enclosure position. An unknown position is
// advisory only: the check cannot veto on data it never received.
func evalEnclosure(snap state, t Thresholds) domainResult {
	if !t.RequireEnclosureOpen {
		return domainResult{ok: true}
	}
	if snap.enclosureOpen == nil {
		return domainResult{ok: true, reasons: []string{"Enclosure state unknown"}}
	}
	if !*snap.enclosureOpen {
		return domainResult{ok: false, reasons: []string{"Enclosure closed"}}
	}
	return domainResult{ok: true}
}

// evalDaylight checks whether the sun is far enough below the horizon.
func evalDaylight(snap state, t Thresholds) domainResult {
	if snap.sunAltitudeDeg == nil {
		return domainResult{ok: true}
	}
	alt := *snap.sunAltitudeDeg
	if alt > t.TwilightAltitudeDeg {
		return domainResult{ok: false, reasons: []string{fmt.Sprintf(
			"Not dark enough to observe (sun at %.1f°)", alt)}}
	}
	return domainResult{ok: true}
}
