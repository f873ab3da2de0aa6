package linefollow

import (
	"fmt"
	"math"

	"github.com/gwillem/linebot/pkg/robot"
)

// Speeds are the base forward speeds of the two zones, in mm/s.
type Speeds struct {
	Fast float64 `json:"fast"`
	Slow float64 `json:"slow"`
}

// For returns the base speed of zone.
func (s Speeds) For(zone Zone) float64 {
	if zone == ZoneFast {
		return s.Fast
	}
	return s.Slow
}

// Gains are the proportional steering gains of the two zones. The slow gain
// is the larger one since a slower vehicle turns less per tick.
type Gains struct {
	Slow float64 `json:"slow"`
	Fast float64 `json:"fast"`
}

// For returns the gain of zone.
func (g Gains) For(zone Zone) float64 {
	if zone == ZoneFast {
		return g.Fast
	}
	return g.Slow
}

// Steer computes one tick of proportional line-centering output.
func Steer(difference float64, zone Zone, speeds Speeds, gains Gains) robot.SteeringCommand {
	return robot.SteeringCommand{
		Speed:    speeds.For(zone),
		TurnRate: difference * gains.For(zone),
	}
}

// Config holds the immutable settings shared by all segments of a mission.
type Config struct {
	Speeds     Speeds     `json:"speeds"`
	Gains      Gains      `json:"gains"`
	Thresholds Thresholds `json:"thresholds"`

	// NudgeDistance is driven after a junction when a segment asks to
	// center the axle on the line.
	NudgeDistance float64 `json:"nudge_distance"`

	// Overrun is how far past its stretch a segment may drive before the
	// junction is declared missing.
	Overrun float64 `json:"overrun"`

	// MaxTicks bounds every loop regardless of distance.
	MaxTicks int `json:"max_ticks"`

	// Hz paces the loop. Zero runs it as fast as the hardware answers.
	Hz int `json:"hz"`
}

// DefaultConfig returns the settings tuned on the competition mat.
func DefaultConfig() Config {
	return Config{
		Speeds:        Speeds{Fast: 200, Slow: 100},
		Gains:         Gains{Slow: 0.6, Fast: 0.4},
		Thresholds:    DefaultThresholds(),
		NudgeDistance: 128,
		Overrun:       600,
		MaxTicks:      200_000,
	}
}

// Validate rejects settings that would make a loop misbehave.
func (c Config) Validate() error {
	if c.Speeds.Fast <= 0 || c.Speeds.Slow <= 0 {
		return invalid("speeds", "must be positive, got fast=%v slow=%v", c.Speeds.Fast, c.Speeds.Slow)
	}
	if c.Gains.Fast < 0 || c.Gains.Slow < 0 {
		return invalid("gains", "must not be negative, got slow=%v fast=%v", c.Gains.Slow, c.Gains.Fast)
	}
	t := c.Thresholds
	if t.Black < 0 || t.White > 100 || t.Black >= t.White {
		return invalid("thresholds", "need 0 <= black < white <= 100, got black=%v white=%v", t.Black, t.White)
	}
	if c.NudgeDistance < 0 {
		return invalid("nudge_distance", "must not be negative, got %v", c.NudgeDistance)
	}
	if c.Overrun <= 0 {
		return invalid("overrun", "must be positive, got %v", c.Overrun)
	}
	if c.MaxTicks <= 0 {
		return invalid("max_ticks", "must be positive, got %d", c.MaxTicks)
	}
	if c.Hz < 0 {
		return invalid("hz", "must not be negative, got %d", c.Hz)
	}
	return nil
}

// SpeedProfile is a named pair of zone speeds offered at setup.
type SpeedProfile struct {
	Name   string
	Speeds Speeds
}

func (p SpeedProfile) String() string {
	return fmt.Sprintf("%s (%.0f/%.0f mm/s)", p.Name, p.Speeds.Fast, p.Speeds.Slow)
}

// SpeedProfiles returns the selectable profiles, slowest first.
func SpeedProfiles() []SpeedProfile {
	return []SpeedProfile{
		{Name: "careful", Speeds: Speeds{Fast: 150, Slow: 75}},
		{Name: "standard", Speeds: Speeds{Fast: 200, Slow: 100}},
		{Name: "race", Speeds: Speeds{Fast: 300, Slow: 150}},
	}
}

// Segment describes one line-following run up to a junction.
type Segment struct {
	Junction JunctionSpec `json:"junction"`

	// Start is the distance after which the segment speeds up.
	// Junction.MinDistance (the stretch) is where it slows again and
	// starts looking for the junction.
	Start float64 `json:"start"`

	// Gains overrides Config.Gains when non-zero.
	Gains Gains `json:"gains,omitzero"`

	Nudge      bool `json:"nudge,omitempty"`
	NoSteering bool `json:"no_steering,omitempty"`

	// MaxDistance overrides stretch + Config.Overrun when non-zero.
	MaxDistance float64 `json:"max_distance,omitempty"`
}

// Stretch returns the distance at which junction detection starts.
func (s Segment) Stretch() float64 {
	return s.Junction.MinDistance
}

// Validate checks the preconditions stretch >= start >= 0.
func (s Segment) Validate() error {
	if !s.Junction.Kind.Valid() {
		return invalid("junction.kind", "unknown kind %d", int(s.Junction.Kind))
	}
	if s.Start < 0 || math.IsNaN(s.Start) {
		return invalid("start", "must not be negative, got %v", s.Start)
	}
	if s.Junction.MinDistance < s.Start || math.IsNaN(s.Junction.MinDistance) {
		return invalid("junction.min_distance", "stretch %v is before start %v", s.Junction.MinDistance, s.Start)
	}
	if s.Gains.Fast < 0 || s.Gains.Slow < 0 {
		return invalid("gains", "must not be negative")
	}
	if s.MaxDistance != 0 && s.MaxDistance < s.Junction.MinDistance {
		return invalid("max_distance", "%v is before stretch %v", s.MaxDistance, s.Junction.MinDistance)
	}
	return nil
}
