package mission

import (
	"fmt"
	"math"
	"strings"

	"github.com/gwillem/linebot/pkg/linefollow"
)

// Op is the kind of a mission step.
type Op string

const (
	// OpFollow follows the line to a junction.
	OpFollow Op = "follow"
	// OpHold follows the line for a fixed distance.
	OpHold Op = "hold"
	// OpLine drives straight until the front sensors reach a crossing line.
	OpLine Op = "line"
	// OpStraight drives a fixed distance without sensing. Negative reverses.
	OpStraight Op = "straight"
	// OpScan measures the six slots and resolves the grab plan.
	OpScan Op = "scan"
	// OpApproach drives along the slot row to the first pickup.
	OpApproach Op = "approach"
	// OpReach drives along the slot row to the nearest or farthest reach
	// point of the grab plan.
	OpReach Op = "reach"
	// OpCage moves the cage to a preset.
	OpCage Op = "cage"
)

// AllOps returns every step kind in the order they are documented.
func AllOps() []Op {
	return []Op{OpFollow, OpHold, OpLine, OpStraight, OpScan, OpApproach, OpReach, OpCage}
}

// ParseOp converts a step name into an Op.
func ParseOp(value string) (Op, error) {
	op := Op(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range AllOps() {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown step %q", value)
}

func (o *Op) UnmarshalText(b []byte) error {
	op, err := ParseOp(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// Cage presets.
const (
	CageUp   = "up"
	CageDown = "down"
)

// Reach points.
const (
	ReachNearest  = "nearest"
	ReachFarthest = "farthest"
)

// onSlotRow reports whether op drives along the slot row from the position
// the previous row step left behind.
func (o Op) onSlotRow() bool {
	return o == OpApproach || o == OpReach
}

// keepsPosition reports whether op leaves the drive where it was.
func (o Op) keepsPosition() bool {
	return o == OpCage
}

// Step is one entry of a mission. Which fields apply depends on Op.
type Step struct {
	Op Op `json:"op"`

	// Segment is the line-following run of a follow step.
	Segment linefollow.Segment `json:"segment,omitzero"`

	// Distance is the hold target, the line stretch, the straight length
	// or, for approach and reach, the offset past the slot start.
	Distance float64 `json:"distance,omitempty"`

	// Reach picks the nearest or farthest reach point of a reach step.
	Reach string `json:"reach,omitempty"`

	// Nudge centers the axle on the line after a line step.
	Nudge bool `json:"nudge,omitempty"`

	// Cage is the preset of a cage step and Wait blocks until it is reached.
	Cage string `json:"cage,omitempty"`
	Wait bool   `json:"wait,omitempty"`
}

func (s Step) String() string {
	switch s.Op {
	case OpFollow:
		return fmt.Sprintf("follow to %s junction past %.0f mm", s.Segment.Junction.Kind, s.Segment.Stretch())
	case OpHold:
		return fmt.Sprintf("hold line for %.0f mm", s.Distance)
	case OpLine:
		return fmt.Sprintf("drive to line past %.0f mm", s.Distance)
	case OpStraight:
		return fmt.Sprintf("straight %.0f mm", s.Distance)
	case OpScan:
		return "scan slots"
	case OpApproach:
		return fmt.Sprintf("approach first pickup +%.0f mm", s.Distance)
	case OpReach:
		return fmt.Sprintf("reach %s slot +%.0f mm", s.Reach, s.Distance)
	case OpCage:
		return "cage " + s.Cage
	default:
		return string(s.Op)
	}
}

// Validate checks the fields its Op needs.
func (s Step) Validate() error {
	switch s.Op {
	case OpFollow:
		return s.Segment.Validate()
	case OpHold:
		if s.Distance <= 0 {
			return fmt.Errorf("hold distance must be positive, got %v", s.Distance)
		}
	case OpLine:
		if s.Distance < 0 || math.IsNaN(s.Distance) {
			return fmt.Errorf("line stretch must not be negative, got %v", s.Distance)
		}
	case OpStraight:
		if s.Distance == 0 || math.IsNaN(s.Distance) {
			return fmt.Errorf("straight distance must be non-zero")
		}
	case OpScan, OpApproach:
	case OpReach:
		if s.Reach != ReachNearest && s.Reach != ReachFarthest {
			return fmt.Errorf("reach must be %q or %q, got %q", ReachNearest, ReachFarthest, s.Reach)
		}
	case OpCage:
		if s.Cage != CageUp && s.Cage != CageDown {
			return fmt.Errorf("cage preset must be %q or %q, got %q", CageUp, CageDown, s.Cage)
		}
	default:
		return fmt.Errorf("unknown step %q", s.Op)
	}
	return nil
}
