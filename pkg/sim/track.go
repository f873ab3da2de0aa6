// Package sim provides a simulated vehicle, track and cage so missions and
// control loops can run without hardware.
package sim

import "github.com/gwillem/linebot/pkg/robot"

// Mark is a track feature under the left and right sensors, such as a
// crossing line or a colored patch. It covers positions [From, To).
type Mark struct {
	From       float64
	To         float64
	Left       float64
	Right      float64
	LeftColor  robot.Color
	RightColor robot.Color
}

// Slot is a field element seen by any sensor as an HSV reading over
// positions [From, To).
type Slot struct {
	From float64
	To   float64
	HSV  robot.HSV
}

// Track is a straight run of line with marks and slots along it.
type Track struct {
	// Base is the reflectance both sensors read when centered on the line.
	Base float64
	// Slope is how much reflectance changes per mm of lateral offset.
	Slope float64
	// Curve is the lateral drift per mm travelled the line imposes.
	Curve float64
	// Floor is the HSV reading away from any slot.
	Floor robot.HSV

	Marks []Mark
	Slots []Slot
}

// DefaultTrack returns a straight, unmarked line.
func DefaultTrack() Track {
	return Track{
		Base:  45,
		Slope: 2,
		Floor: robot.HSV{H: 0, S: 5, V: 90},
	}
}

func (t Track) markAt(pos float64) (Mark, bool) {
	for _, m := range t.Marks {
		if pos >= m.From && pos < m.To {
			return m, true
		}
	}
	return Mark{}, false
}

func (t Track) hsvAt(pos float64) robot.HSV {
	for _, s := range t.Slots {
		if pos >= s.From && pos < s.To {
			return s.HSV
		}
	}
	return t.Floor
}

// SlotRow lays out one slot per value starting at start, each pitch apart
// and width wide. Each slot reads S+V equal to its value.
func SlotRow(start, pitch, width float64, values []float64) []Slot {
	slots := make([]Slot, len(values))
	for i, v := range values {
		from := start + float64(i)*pitch
		slots[i] = Slot{
			From: from,
			To:   from + width,
			HSV:  robot.HSV{H: 200, S: v / 2, V: v / 2},
		}
	}
	return slots
}

// CrossLine is a black line across the track under both sensors.
func CrossLine(at, width float64) Mark {
	return Mark{From: at, To: at + width, Left: 10, Right: 10, LeftColor: robot.ColorBlack, RightColor: robot.ColorBlack}
}

// Patch is a colored patch under both sensors.
func Patch(at, width float64, c robot.Color) Mark {
	return Mark{From: at, To: at + width, Left: 40, Right: 40, LeftColor: c, RightColor: c}
}
