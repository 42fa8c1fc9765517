package safety

import "errors"

// Domain errors for the safety package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, safety.ErrInvalidSample) {
//	    // reject the sensor reading, prior state is retained
//	}
var (
	// ErrInvalidThresholds is returned when threshold validation fails.
	ErrInvalidThresholds = errors.New("safety: invalid thresholds")

	// ErrInvalidSample is returned when a weather sample carries a
	// non-finite or out-of-range value.
	ErrInvalidSample = errors.New("safety: invalid weather sample")

	// ErrInvalidPercent is returned when a battery percentage is not a
	// finite value between 0 and 100.
	ErrInvalidPercent = errors.New("safety: battery percent out of range")

	// ErrInvalidAltitude is returned when an altitude is not a finite
	// value between -90 and +90 degrees.
	ErrInvalidAltitude = errors.New("safety: altitude out of range")
)
