package sensors

// Wire formats for sensor readings. Field names match what the sensor
// services publish; unknown fields are ignored.

// weatherPayload is the weather station reading.
// It shares field names with safety.WeatherSample.
type weatherPayload struct {
	IsRaining    bool    `json:"is_raining"`
	RainRateInHr float64 `json:"rain_rate_in_hr"`
	WindSpeedMPH float64 `json:"wind_speed_mph"`
	WindGustMPH  float64 `json:"wind_gust_mph"`
	HumidityPct  float64 `json:"humidity_pct"`
	TemperatureF float64 `json:"temperature_f"`
	DewPointF    float64 `json:"dew_point_f"`
}

// powerPayload is the UPS monitor reading.
type powerPayload struct {
	BatteryPercent float64 `json:"battery_percent"`
	OnBattery      bool    `json:"on_battery"`
}

// enclosurePayload is the enclosure controller state report.
type enclosurePayload struct {
	Open bool `json:"open"`
}

// altitudePayload carries a sun or target altitude in degrees.
// A null altitude on the target topic clears the current target.
type altitudePayload struct {
	AltitudeDeg *float64 `json:"altitude_deg"`
}
