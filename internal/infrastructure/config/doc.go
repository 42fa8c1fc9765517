// Package config loads and validates NIGHTWATCH Core configuration.
//
// Configuration is layered: hardcoded defaults, then the YAML file, then
// NIGHTWATCH_* environment variable overrides. Validate() collects every
// violation into one error so misconfiguration is reported in a single pass.
//
// The safety section mirrors the thresholds of internal/safety; main
// converts it with SafetyConfig-to-Thresholds mapping so the safety package
// stays free of configuration concerns.
package config
