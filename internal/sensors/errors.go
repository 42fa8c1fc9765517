package sensors

import "errors"

// Sentinel errors for sensor payload handling.
var (
	// ErrUnknownSource is returned for a sensor topic with no registered decoder.
	ErrUnknownSource = errors.New("sensors: unknown sensor source")

	// ErrMalformedPayload is returned when a payload fails to decode as JSON.
	ErrMalformedPayload = errors.New("sensors: malformed payload")

	// ErrRejectedReading is returned when the monitor rejects a decoded reading.
	ErrRejectedReading = errors.New("sensors: reading rejected")
)
