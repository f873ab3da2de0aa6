package robot

import (
	"context"
	"fmt"
)

// StopMode selects what the drive does once a fixed-distance move ends.
type StopMode int

const (
	StopHold StopMode = iota
	StopBrake
	StopCoast
)

func (m StopMode) String() string {
	switch m {
	case StopHold:
		return "hold"
	case StopBrake:
		return "brake"
	case StopCoast:
		return "coast"
	default:
		return fmt.Sprintf("StopMode(%d)", int(m))
	}
}

// A Drive is a differential drive base that integrates its own travel.
//
// Distance is in millimetres since the last Reset and never decreases
// while driving forward. Speed is in mm/s and turn rate in deg/s.
type Drive interface {
	// Reset zeroes the travelled distance.
	Reset()

	// Distance returns the distance travelled since the last Reset.
	Distance() float64

	// Drive starts (or keeps) moving at the given speed and turn rate. It
	// returns immediately.
	Drive(ctx context.Context, speed, turnRate float64) error

	// Brake stops the base actively.
	Brake(ctx context.Context) error

	// Straight drives a fixed distance and blocks until it is done.
	Straight(ctx context.Context, distance float64, then StopMode) error
}

// SteeringCommand is one tick of drive output.
type SteeringCommand struct {
	Speed    float64
	TurnRate float64
}
