package safety

import "time"

// WeatherSample is one reading from the weather station, delivered
// already parsed by the weather adapter.
type WeatherSample struct {
	IsRaining    bool    `json:"is_raining"`
	RainRateInHr float64 `json:"rain_rate_in_hr"`
	WindSpeedMPH float64 `json:"wind_speed_mph"`
	WindGustMPH  float64 `json:"wind_gust_mph"`
	HumidityPct  float64 `json:"humidity_pct"`
	TemperatureF float64 `json:"temperature_f"`
	DewPointF    float64 `json:"dew_point_f"`
}

// raining reports whether the sample indicates active precipitation.
// A positive rain rate counts even when the tipping-bucket flag lags.
func (s WeatherSample) raining() bool {
	return s.IsRaining || s.RainRateInHr > 0
}

// state is the Monitor's mutable sensor state. Each field is last-writer-wins
// from its adapter; optional fields are nil until the adapter first reports.
//
// All access goes through the Monitor's mutex. The hysteresis latch
// (windTriggered) transitions only inside UpdateWeather so that Evaluate
// stays a pure function over a snapshot.
type state struct {
	weather *WeatherSample

	// lastRainTime advances forward only; it is never cleared. The rain
	// holdoff is recomputed from elapsed time on every evaluation.
	lastRainTime *time.Time

	windTriggered bool

	sunAltitudeDeg    *float64
	targetAltitudeDeg *float64

	// Battery percent and the on-battery flag always update together.
	upsBatteryPercent *float64
	upsOnBattery      bool

	enclosureOpen *bool
}

// clone returns an independent copy of the state for lock-free evaluation.
func (s *state) clone() state {
	cpy := *s
	cpy.weather = cloneSamplePtr(s.weather)
	cpy.lastRainTime = cloneTimePtr(s.lastRainTime)
	cpy.sunAltitudeDeg = cloneFloatPtr(s.sunAltitudeDeg)
	cpy.targetAltitudeDeg = cloneFloatPtr(s.targetAltitudeDeg)
	cpy.upsBatteryPercent = cloneFloatPtr(s.upsBatteryPercent)
	cpy.enclosureOpen = cloneBoolPtr(s.enclosureOpen)
	return cpy
}

func cloneSamplePtr(s *WeatherSample) *WeatherSample {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneBoolPtr(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
