package slots

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry is returned for a scan geometry that cannot work.
	ErrInvalidGeometry = errors.New("invalid slot geometry")

	// ErrNoQualifyingWindow is matched by every GrabResolutionError.
	ErrNoQualifyingWindow = errors.New("no qualifying window")

	// ErrScanBudget is returned when a scan runs out of ticks.
	ErrScanBudget = errors.New("scan tick budget exceeded")
)

// DegenerateSlotError is returned when a slot window closed before a single
// sample was taken, i.e. the window is narrower than one tick of travel.
type DegenerateSlotError struct {
	Index int
}

func (e *DegenerateSlotError) Error() string {
	return fmt.Sprintf("slot %d: no samples in window", e.Index)
}

// GrabResolutionError is returned when no three circular neighbours sum to
// the grab pattern.
type GrabResolutionError struct {
	Classes []Class
}

func (e *GrabResolutionError) Error() string {
	return fmt.Sprintf("resolve grabs for %v: %v", e.Classes, ErrNoQualifyingWindow)
}

func (e *GrabResolutionError) Is(target error) bool {
	return target == ErrNoQualifyingWindow
}
