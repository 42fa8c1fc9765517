// Package watchdog tracks liveness of the services feeding the controller.
//
// Each registered service is expected to beat its heartbeat within a
// configured timeout. A service that misses one timeout window is degraded;
// one that misses two is failed. Recovery is immediate on the next beat.
//
//	healthy ──(timeout)──▶ degraded ──(2×timeout)──▶ failed
//	   ▲                       │                        │
//	   └───────────────────────┴──────(heartbeat)───────┘
//
// The watchdog never feeds sensor values into the safety monitor; it only
// reports which services are alive. Stale-sensor policy belongs to the
// dispatcher, which records watchdog transitions as events and publishes
// them for operators.
package watchdog
