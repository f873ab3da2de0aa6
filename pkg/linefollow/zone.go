package linefollow

import "fmt"

// Zone is the speed band of a segment.
type Zone int

const (
	ZoneSlow Zone = iota
	ZoneFast
)

func (z Zone) String() string {
	switch z {
	case ZoneSlow:
		return "slow"
	case ZoneFast:
		return "fast"
	default:
		return fmt.Sprintf("Zone(%d)", int(z))
	}
}

// zoneLatch schedules the two speed bands from travelled distance.
//
// Each threshold is a one-way latch: once distance has exceeded start the
// segment is fast, and once it has exceeded stretch it is slow for good.
type zoneLatch struct {
	start       float64
	stretch     float64
	pastStart   bool
	pastStretch bool
}

func newZoneLatch(start, stretch float64) *zoneLatch {
	return &zoneLatch{start: start, stretch: stretch}
}

// Update latches the thresholds against d and returns the current zone.
func (z *zoneLatch) Update(d float64) Zone {
	if d > z.start {
		z.pastStart = true
	}
	if d > z.stretch {
		z.pastStretch = true
	}
	if z.pastStart && !z.pastStretch {
		return ZoneFast
	}
	return ZoneSlow
}
