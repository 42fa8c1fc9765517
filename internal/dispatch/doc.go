// Package dispatch turns safety evaluations into actions on the observatory.
//
// The Dispatcher polls the safety monitor on a fixed interval and, on each
// cycle:
//
//  1. Publishes the full Status as a retained message (nightwatch/safety/status)
//  2. Writes the decision to telemetry (when InfluxDB is enabled)
//  3. Applies debounce and issues actuator commands on transitions
//  4. Records transitions and rate-limited alerts in the event store
//
// # Debounce
//
// Conditions must stay unsafe for unsafe_duration_to_park before a park is
// commanded, and stay safe for safe_duration_to_resume before resumption is
// announced. Emergency-tier conditions (rain, battery emergency) bypass the
// debounce entirely: the close is commanded on the first cycle that sees them.
//
// # Commands
//
// An emergency close aborts the camera exposure, stops and parks the mount,
// and closes the enclosure, all published in parallel so no single slow
// actuator delays the others. A park commands the mount only; the enclosure
// stays open awaiting resumption.
//
// The dispatcher is the only component that commands actuators. The safety
// monitor stays a pure evaluator.
package dispatch
