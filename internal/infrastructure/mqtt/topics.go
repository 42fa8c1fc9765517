package mqtt

import "fmt"

// Topic prefixes for the NIGHTWATCH MQTT hierarchy.
//
// Sensor services publish readings under nightwatch/sensor/{source}.
// Core publishes safety output under nightwatch/safety and actuator
// commands under nightwatch/command/{actuator}/{verb}.
const (
	// TopicPrefixSensor is the base for inbound sensor readings.
	TopicPrefixSensor = "nightwatch/sensor"

	// TopicPrefixSafety is the base for safety status and events.
	TopicPrefixSafety = "nightwatch/safety"

	// TopicPrefixCommand is the base for actuator commands.
	TopicPrefixCommand = "nightwatch/command"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "nightwatch/system"
)

// Sensor source names used as the final segment of sensor topics.
const (
	SensorWeather   = "weather"
	SensorPower     = "power"
	SensorEnclosure = "enclosure"
	SensorSun       = "sun"
	SensorTarget    = "target"
)

// Topics provides builders for NIGHTWATCH MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	statusTopic := topics.SafetyStatus()
//	// Returns: "nightwatch/safety/status"
type Topics struct{}

// Sensor returns the topic a sensor service publishes readings on.
//
// Example: nightwatch/sensor/weather
func (Topics) Sensor(source string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixSensor, source)
}

// AllSensors returns a pattern matching every sensor reading topic.
//
// Pattern: nightwatch/sensor/+
func (Topics) AllSensors() string {
	return fmt.Sprintf("%s/+", TopicPrefixSensor)
}

// SafetyStatus returns the retained safety status topic.
// Core publishes here on every evaluation cycle.
//
// Example: nightwatch/safety/status
func (Topics) SafetyStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSafety)
}

// SafetyEvent returns the topic for safety transition events.
//
// Example: nightwatch/safety/event/emergency_close
func (Topics) SafetyEvent(action string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixSafety, action)
}

// AllSafetyEvents returns a pattern matching all safety events.
//
// Pattern: nightwatch/safety/event/+
func (Topics) AllSafetyEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefixSafety)
}

// Command returns the topic for a command to an actuator service.
//
// Example: nightwatch/command/mount/park
func (Topics) Command(actuator, verb string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixCommand, actuator, verb)
}

// SystemStatus returns the system status topic.
// Core's LWT and online/offline announcements are published here.
//
// Example: nightwatch/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemHealth returns the retained service-liveness summary topic.
// Core publishes here on every evaluation cycle.
//
// Example: nightwatch/system/health
func (Topics) SystemHealth() string {
	return fmt.Sprintf("%s/health", TopicPrefixSystem)
}

// SystemWatchdog returns the topic for service-liveness state changes.
//
// Example: nightwatch/system/watchdog
func (Topics) SystemWatchdog() string {
	return fmt.Sprintf("%s/watchdog", TopicPrefixSystem)
}
