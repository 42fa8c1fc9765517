// Package influxdb provides InfluxDB connectivity for NIGHTWATCH Core.
//
// It wraps the official influxdb-client-go v2 library with NIGHTWATCH-specific
// patterns for connection management, telemetry writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Weather readings (wind, humidity, temperature, rain rate)
//   - UPS battery telemetry
//   - Safety decision output (action, alert level, domain flags)
//
// The SQLite events store is the audit trail; InfluxDB answers trend
// questions such as "how did wind behave before last night's close".
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteWeather("site-001", sample)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package influxdb
