// Package logging provides structured logging for NIGHTWATCH Core.
//
// It wraps log/slog with level-based filtering, JSON or text output, and
// default fields (service name, version). Component loggers are derived
// with With:
//
//	safetyLog := logger.With("component", "safety")
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package logging
