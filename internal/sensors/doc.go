// Package sensors bridges MQTT sensor topics into the safety monitor.
//
// Each sensor service publishes JSON readings on its own topic:
//
//	nightwatch/sensor/weather    → safety.Monitor.UpdateWeather
//	nightwatch/sensor/power      → safety.Monitor.UpdatePowerStatus
//	nightwatch/sensor/enclosure  → safety.Monitor.UpdateEnclosureStatus
//	nightwatch/sensor/sun        → safety.Monitor.UpdateSunAltitude
//	nightwatch/sensor/target     → safety.Monitor.UpdateTargetAltitude / ClearTarget
//
// The Adapter subscribes with a single wildcard (nightwatch/sensor/+),
// decodes each payload, and forwards valid readings to the monitor. A
// malformed or rejected payload is logged and dropped; the monitor keeps
// its last good state. Every accepted reading also beats the watchdog
// heartbeat for its source, so stale sensors surface as watchdog events.
package sensors
