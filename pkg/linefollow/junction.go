package linefollow

import (
	"fmt"
	"strings"

	"github.com/gwillem/linebot/pkg/robot"
)

// JunctionKind selects which track feature ends a line-following segment.
type JunctionKind int

const (
	JunctionLeft JunctionKind = iota + 1
	JunctionRight
	JunctionBoth
	JunctionGreen
	JunctionStop
)

// AllJunctionKinds returns every junction kind in declaration order.
func AllJunctionKinds() []JunctionKind {
	return []JunctionKind{JunctionLeft, JunctionRight, JunctionBoth, JunctionGreen, JunctionStop}
}

func (k JunctionKind) String() string {
	switch k {
	case JunctionLeft:
		return "left"
	case JunctionRight:
		return "right"
	case JunctionBoth:
		return "both"
	case JunctionGreen:
		return "green"
	case JunctionStop:
		return "stop"
	default:
		return fmt.Sprintf("JunctionKind(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k JunctionKind) Valid() bool {
	return k >= JunctionLeft && k <= JunctionStop
}

// ParseJunctionKind converts a junction name into a JunctionKind.
func ParseJunctionKind(value string) (JunctionKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "left":
		return JunctionLeft, nil
	case "right":
		return JunctionRight, nil
	case "both":
		return JunctionBoth, nil
	case "green":
		return JunctionGreen, nil
	case "stop":
		return JunctionStop, nil
	default:
		return 0, fmt.Errorf("unknown junction kind %q", value)
	}
}

// UnmarshalText allows junction kinds to be loaded from JSON strings.
func (k *JunctionKind) UnmarshalText(b []byte) error {
	parsed, err := ParseJunctionKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText writes junction kinds as their names.
func (k JunctionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid junction kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalFlag lets junction kinds be used as command line options.
func (k *JunctionKind) UnmarshalFlag(value string) error {
	return k.UnmarshalText([]byte(value))
}

// JunctionSpec is the termination condition of one segment: the junction
// kind and the distance before which it is ignored.
type JunctionSpec struct {
	Kind        JunctionKind `json:"kind"`
	MinDistance float64      `json:"min_distance"`
}

// Thresholds are the fixed reflectance levels, on the 0..100 scale, below
// which a sensor sees black and above which it sees white.
type Thresholds struct {
	Black float64 `json:"black"`
	White float64 `json:"white"`
}

// DefaultThresholds returns the levels used on the competition mat.
func DefaultThresholds() Thresholds {
	return Thresholds{Black: 25, White: 60}
}

// Hit evaluates the junction predicate for kind on one sample.
func (t Thresholds) Hit(kind JunctionKind, s robot.SensorSample) bool {
	switch kind {
	case JunctionLeft:
		return s.Left < t.Black && s.Right > t.White
	case JunctionRight:
		return s.Left > t.White && s.Right < t.Black
	case JunctionBoth:
		return s.Left < t.Black && s.Right < t.Black
	case JunctionGreen:
		return s.LeftColor == robot.ColorGreen && s.RightColor == robot.ColorGreen
	case JunctionStop:
		return true
	}
	return false
}

// AtLine is the predicate used when driving onto a line without steering:
// the left sensor on black while the right one is not yet on white.
func (t Thresholds) AtLine(s robot.SensorSample) bool {
	return s.Left < t.Black && s.Right < t.White
}
