// Package errs defines the error taxonomy shared by the matching and
// reporting packages.
package errs

import (
	"errors"
	"fmt"
)

// ErrConfig indicates a usage mistake in the calling code: a bad match
// condition, an invalid anchor cell, a malformed formula insert and so on.
// Configuration errors are returned immediately and never defaulted.
var ErrConfig = errors.New("configuration error")

// ErrDataShape indicates a recoverable anomaly in real-world input data, such
// as a non-numeric value in a numeric column. Callers log it and degrade.
var ErrDataShape = errors.New("data shape anomaly")

// ConfigError describes a configuration error in a specific component.
type ConfigError struct {
	Component string // "match", "dataset", "breakdown", "formula", "results", "workflow"
	Key       string
	Value     any
	Reason    string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Component, e.Reason)
	}
	if e.Value == nil {
		return fmt.Sprintf("%s: %s %q: %s", e.Component, "invalid", e.Key, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s %v: %s", e.Component, e.Key, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// Config creates a new ConfigError.
func Config(component, key string, value any, reason string) *ConfigError {
	return &ConfigError{
		Component: component,
		Key:       key,
		Value:     value,
		Reason:    reason,
	}
}

// DataShape wraps a recoverable anomaly with context so it unwraps to ErrDataShape.
func DataShape(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataShape, fmt.Sprintf(format, args...))
}

// IsConfig reports whether err is (or wraps) a configuration error.
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}
