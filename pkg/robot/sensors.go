package robot

import (
	"context"
	"fmt"
	"strings"
)

// Color is a discrete color reported by a color sensor.
type Color int

const (
	ColorNone Color = iota
	ColorBlack
	ColorWhite
	ColorRed
	ColorGreen
	ColorBlue
	ColorYellow
)

func (c Color) String() string {
	switch c {
	case ColorNone:
		return "none"
	case ColorBlack:
		return "black"
	case ColorWhite:
		return "white"
	case ColorRed:
		return "red"
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	case ColorYellow:
		return "yellow"
	default:
		return fmt.Sprintf("Color(%d)", int(c))
	}
}

// ParseColor converts a color name into a Color.
func ParseColor(value string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "":
		return ColorNone, nil
	case "black":
		return ColorBlack, nil
	case "white":
		return ColorWhite, nil
	case "red":
		return ColorRed, nil
	case "green":
		return ColorGreen, nil
	case "blue":
		return ColorBlue, nil
	case "yellow":
		return ColorYellow, nil
	default:
		return ColorNone, fmt.Errorf("unknown color %q", value)
	}
}

// UnmarshalText allows colors to be loaded from JSON strings.
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText writes colors as their names.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// HSV is a hue/saturation/value reading. H is in degrees, S and V in 0..100.
type HSV struct {
	H float64
	S float64
	V float64
}

// ColorSensor is a downward-facing reflectance and color sensor.
type ColorSensor interface {
	// Reflection returns the reflected light intensity, 0 (black) to 100 (white).
	Reflection(ctx context.Context) (float64, error)

	// Color returns the detected color.
	Color(ctx context.Context) (Color, error)

	// HSV returns the hue, saturation and value of the surface.
	HSV(ctx context.Context) (HSV, error)
}

// SensorSample is one tick worth of readings from the left and right sensors.
// Colors are only populated when requested.
type SensorSample struct {
	Left       float64
	Right      float64
	LeftColor  Color
	RightColor Color
}

// Difference returns left minus right reflectance.
func (s SensorSample) Difference() float64 {
	return s.Left - s.Right
}

// SensorError reports which sensor failed to deliver a reading.
type SensorError struct {
	Sensor SensorName
	Err    error
}

func (e *SensorError) Error() string {
	return fmt.Sprintf("read %s sensor: %v", e.Sensor, e.Err)
}

func (e *SensorError) Unwrap() error {
	return e.Err
}

// ReadSample reads both reflectances and, if withColor is set, both colors.
func ReadSample(ctx context.Context, left, right ColorSensor, withColor bool) (SensorSample, error) {
	var s SensorSample
	var err error

	if s.Left, err = left.Reflection(ctx); err != nil {
		return s, &SensorError{Sensor: LeftSensor, Err: err}
	}
	if s.Right, err = right.Reflection(ctx); err != nil {
		return s, &SensorError{Sensor: RightSensor, Err: err}
	}
	if !withColor {
		return s, nil
	}
	if s.LeftColor, err = left.Color(ctx); err != nil {
		return s, &SensorError{Sensor: LeftSensor, Err: err}
	}
	if s.RightColor, err = right.Color(ctx); err != nil {
		return s, &SensorError{Sensor: RightSensor, Err: err}
	}
	return s, nil
}
