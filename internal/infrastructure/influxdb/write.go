package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteWeather writes a weather station reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - siteID: Observatory site identifier
//   - windMPH: Sustained wind speed in mph
//   - gustMPH: Gust speed in mph
//   - humidityPct: Relative humidity percentage
//   - tempF: Ambient temperature in Fahrenheit
//   - rainRateInHr: Rain rate in inches per hour
//   - raining: Whether rain is currently detected
func (c *Client) WriteWeather(siteID string, windMPH, gustMPH, humidityPct, tempF, rainRateInHr float64, raining bool) {
	c.WritePoint(
		"weather",
		map[string]string{
			"site": siteID,
		},
		map[string]interface{}{
			"wind_mph":        windMPH,
			"gust_mph":        gustMPH,
			"humidity_pct":    humidityPct,
			"temperature_f":   tempF,
			"rain_rate_in_hr": rainRateInHr,
			"raining":         raining,
		},
	)
}

// WriteUPS writes a UPS battery reading.
//
// Parameters:
//   - siteID: Observatory site identifier
//   - batteryPct: Battery charge percentage
//   - onBattery: Whether the site is running on battery power
func (c *Client) WriteUPS(siteID string, batteryPct float64, onBattery bool) {
	c.WritePoint(
		"ups",
		map[string]string{
			"site": siteID,
		},
		map[string]interface{}{
			"battery_pct": batteryPct,
			"on_battery":  onBattery,
		},
	)
}

// WriteSafetyDecision writes one safety evaluation outcome.
//
// Action and alert level are tags so dashboards can group and count
// transitions; the boolean domain flags are fields.
//
// Parameters:
//   - siteID: Observatory site identifier
//   - action: Decided action (safe_to_observe, park_and_wait, emergency_close)
//   - alertLevel: Alert severity (info, warning, critical, emergency)
//   - isSafe: Overall safety verdict
//   - reasonCount: Number of blocking or advisory reasons
func (c *Client) WriteSafetyDecision(siteID, action, alertLevel string, isSafe bool, reasonCount int) {
	c.WritePoint(
		"safety",
		map[string]string{
			"site":        siteID,
			"action":      action,
			"alert_level": alertLevel,
		},
		map[string]interface{}{
			"is_safe":      isSafe,
			"reason_count": reasonCount,
		},
	)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed sensor data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
