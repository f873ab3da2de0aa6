package linefollow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every ConfigurationError.
	ErrInvalidConfig = errors.New("invalid line follow configuration")

	// ErrJunctionNotFound is returned when a segment runs out of distance
	// or ticks before its junction shows up.
	ErrJunctionNotFound = errors.New("junction not found")

	// ErrBudgetExceeded is returned when a fixed-distance run uses up its
	// tick budget without covering the distance.
	ErrBudgetExceeded = errors.New("tick budget exceeded")
)

// ConfigurationError rejects a malformed configuration or segment before
// the drive moves.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SensorFaultError reports a sensor read that failed mid-segment. The
// drive has been braked by the time it is returned.
type SensorFaultError struct {
	Tick     int
	Distance float64
	Err      error
}

func (e *SensorFaultError) Error() string {
	return fmt.Sprintf("sensor fault at tick %d (%.1f mm): %v", e.Tick, e.Distance, e.Err)
}

func (e *SensorFaultError) Unwrap() error {
	return e.Err
}
