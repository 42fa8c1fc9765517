// Package safety provides the safety evaluation engine for NIGHTWATCH Core.
//
// The Monitor fuses asynchronously arriving sensor state (weather, UPS power
// reserve, target altitude, enclosure position, sun altitude) into a single
// authoritative Status. Sensor adapters write state through the Update*
// methods; any number of readers call Evaluate to obtain a fresh decision.
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                 Monitor (monitor.go)                     │
//	│  Owns mutable sensor state behind one RWMutex            │
//	│                                                          │
//	│  Update* (validating writers)    Evaluate (pure reader)  │
//	│        │                               │                 │
//	│        ▼                               ▼                 │
//	│  ┌───────────┐              ┌─────────────────────────┐ │
//	│  │  state    │── snapshot ─▶│ six domain evaluators    │ │
//	│  │(state.go) │              │ (evaluators.go)          │ │
//	│  └───────────┘              │ weather / rain holdoff / │ │
//	│                             │ altitude / power /       │ │
//	│                             │ enclosure / daylight     │ │
//	│                             └───────────┬─────────────┘ │
//	│                                         ▼               │
//	│                             severity merge → Status     │
//	└─────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Thresholds: immutable limits and hysteresis margins
//   - WeatherSample: one reading from the weather station
//   - Status: immutable decision snapshot (action, alert level, reasons)
//   - Action / AlertLevel: closed enums consumed by the dispatcher
//
// # Decision Policy
//
// Evaluate merges the six domain results by strict descending priority:
// rain and battery-emergency force EMERGENCY_CLOSE; rain holdoff, battery
// critical and a closed enclosure force PARK_AND_WAIT at CRITICAL; remaining
// weather, altitude and daylight failures force PARK_AND_WAIT at WARNING;
// otherwise SAFE_TO_OBSERVE. IsSafe is always the AND of the six domain
// booleans, independent of which tier fired.
//
// # Thread Safety
//
// All Monitor methods are safe for concurrent use. Update* calls serialise
// on a single mutex; Evaluate copies a coherent snapshot under the read lock
// and computes without holding it. Evaluate performs no I/O and cannot fail;
// malformed sensor values are rejected at the Update* boundary and never
// reach the evaluators.
//
// The Monitor never invokes actuators. Acting on a Status is the
// dispatcher's job (internal/dispatch).
package safety
