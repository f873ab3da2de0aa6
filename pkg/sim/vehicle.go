package sim

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gwillem/linebot/pkg/robot"
)

// ErrSensorFault is returned by sensors after an injected fault.
var ErrSensorFault = errors.New("simulated sensor fault")

// Vehicle is a simulated differential drive on a Track. Every Drive call
// moves it by one tick at the commanded speed.
type Vehicle struct {
	Track Track
	Tick  time.Duration

	// Response is the heading in degrees produced per deg/s of turn rate.
	Response float64

	pos      float64
	distance float64
	offset   float64

	reads     int
	failAfter int

	// Commands records every Drive call.
	Commands []robot.SteeringCommand
	// Straights records every Straight distance.
	Straights []float64
	// Brakes counts Brake calls.
	Brakes int
}

var _ robot.Drive = (*Vehicle)(nil)

// NewVehicle places a vehicle at the start of track with a 10ms tick.
func NewVehicle(track Track) *Vehicle {
	return &Vehicle{
		Track:    track,
		Tick:     10 * time.Millisecond,
		Response: 0.5,
	}
}

// Position returns the absolute position along the track.
func (v *Vehicle) Position() float64 {
	return v.pos
}

// Offset returns the lateral offset from the line in mm.
func (v *Vehicle) Offset() float64 {
	return v.offset
}

// SetOffset places the vehicle off the line.
func (v *Vehicle) SetOffset(mm float64) {
	v.offset = mm
}

// FailSensorsAfter makes every sensor read fail once n reads have succeeded.
func (v *Vehicle) FailSensorsAfter(n int) {
	v.failAfter = n
	v.reads = 0
}

func (v *Vehicle) Reset() {
	v.distance = 0
}

func (v *Vehicle) Distance() float64 {
	return v.distance
}

func (v *Vehicle) Drive(ctx context.Context, speed, turnRate float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.Commands = append(v.Commands, robot.SteeringCommand{Speed: speed, TurnRate: turnRate})

	step := speed * v.Tick.Seconds()
	heading := turnRate * v.Response * math.Pi / 180
	v.move(step)
	v.offset += step*math.Sin(heading) + step*v.Track.Curve
	return nil
}

func (v *Vehicle) Brake(ctx context.Context) error {
	v.Brakes++
	return nil
}

func (v *Vehicle) Straight(ctx context.Context, distance float64, then robot.StopMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.Straights = append(v.Straights, distance)
	v.move(distance)
	return nil
}

func (v *Vehicle) move(step float64) {
	v.pos += step
	v.distance += step
}

// Sensor returns the named color sensor of the vehicle.
func (v *Vehicle) Sensor(name robot.SensorName) robot.ColorSensor {
	return &sensor{v: v, name: name}
}

func (v *Vehicle) read() error {
	if v.failAfter > 0 && v.reads >= v.failAfter {
		return ErrSensorFault
	}
	v.reads++
	return nil
}

type sensor struct {
	v    *Vehicle
	name robot.SensorName
}

func (s *sensor) Reflection(ctx context.Context) (float64, error) {
	if err := s.v.read(); err != nil {
		return 0, err
	}
	t := s.v.Track
	if m, ok := t.markAt(s.v.pos); ok {
		switch s.name {
		case robot.LeftSensor:
			return m.Left, nil
		case robot.RightSensor:
			return m.Right, nil
		}
	}
	switch s.name {
	case robot.LeftSensor:
		return clamp(t.Base-s.v.offset*t.Slope, 0, 100), nil
	case robot.RightSensor:
		return clamp(t.Base+s.v.offset*t.Slope, 0, 100), nil
	default:
		return t.Base, nil
	}
}

func (s *sensor) Color(ctx context.Context) (robot.Color, error) {
	if m, ok := s.v.Track.markAt(s.v.pos); ok {
		if err := s.v.read(); err != nil {
			return robot.ColorNone, err
		}
		if s.name == robot.RightSensor {
			return m.RightColor, nil
		}
		return m.LeftColor, nil
	}
	r, err := s.Reflection(ctx)
	if err != nil {
		return robot.ColorNone, err
	}
	switch {
	case r < 20:
		return robot.ColorBlack, nil
	case r > 70:
		return robot.ColorWhite, nil
	default:
		return robot.ColorNone, nil
	}
}

func (s *sensor) HSV(ctx context.Context) (robot.HSV, error) {
	if err := s.v.read(); err != nil {
		return robot.HSV{}, err
	}
	return s.v.Track.hsvAt(s.v.pos), nil
}

// clamp keeps value inside [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
