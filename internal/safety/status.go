package safety

import "time"

// Action is the remedial action commanded by the Monitor.
type Action string

const (
	// ActionSafeToObserve indicates all domains are clear.
	ActionSafeToObserve Action = "safe_to_observe"

	// ActionParkAndWait indicates the mount should park while conditions
	// recover; the enclosure decision is left to operator policy.
	ActionParkAndWait Action = "park_and_wait"

	// ActionEmergencyClose indicates exposure abort, mount park and
	// enclosure close must all happen immediately.
	ActionEmergencyClose Action = "emergency_close"
)

// AlertLevel is the severity bucket attached to a Status.
type AlertLevel string

const (
	AlertInfo      AlertLevel = "info"
	AlertWarning   AlertLevel = "warning"
	AlertCritical  AlertLevel = "critical"
	AlertEmergency AlertLevel = "emergency"
)

// Status is an immutable safety assessment produced by Evaluate.
//
// Reasons is ordered by evaluator (weather, rain holdoff, altitude, power,
// enclosure, daylight), so the first element is the primary cause whenever
// IsSafe is false. Advisory reasons that do not flip a domain boolean are
// retained for operator awareness.
type Status struct {
	Timestamp  time.Time  `json:"timestamp"`
	Action     Action     `json:"action"`
	IsSafe     bool       `json:"is_safe"`
	AlertLevel AlertLevel `json:"alert_level"`
	Reasons    []string   `json:"reasons,omitempty"`

	// Per-domain verdicts. IsSafe is the AND of all six.
	WeatherOK   bool `json:"weather_ok"`
	HoldoffOK   bool `json:"holdoff_ok"`
	AltitudeOK  bool `json:"altitude_ok"`
	PowerOK     bool `json:"power_ok"`
	EnclosureOK bool `json:"enclosure_ok"`
	DaylightOK  bool `json:"daylight_ok"`

	// Echoed raw values for observability. Nil means the adapter has not
	// yet reported.
	TargetAltitudeDeg *float64 `json:"target_altitude_deg,omitempty"`
	UPSBatteryPercent *float64 `json:"ups_battery_percent,omitempty"`
	UPSOnBattery      bool     `json:"ups_on_battery"`
	EnclosureOpen     *bool    `json:"enclosure_open,omitempty"`

	RainHoldoffActive       bool    `json:"rain_holdoff_active"`
	RainHoldoffRemainingMin float64 `json:"rain_holdoff_remaining_min"`
}
