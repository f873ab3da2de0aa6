// Package slots scans the six field slots, ranks them and works out which
// of them to collect.
package slots

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/gwillem/linebot/pkg/robot"
)

// SlotCount is the number of slots on the field.
const SlotCount = 6

// Geometry is the layout of the slots along the scan path, in mm.
type Geometry struct {
	// Pitch is the distance from the start of one slot to the next.
	Pitch float64 `json:"pitch"`
	// Width is the length of the sampling window inside each slot.
	Width float64 `json:"width"`
	Count int     `json:"count"`
	// Speed is the straight scan speed in mm/s.
	Speed float64 `json:"speed"`
	// MaxTicks bounds the whole scan.
	MaxTicks int `json:"max_ticks"`
}

// DefaultGeometry returns the layout of the competition field.
func DefaultGeometry() Geometry {
	return Geometry{
		Pitch:    31.9 + 52.15,
		Width:    31.9,
		Count:    SlotCount,
		Speed:    100,
		MaxTicks: 100_000,
	}
}

// Validate rejects a geometry the scan cannot follow.
func (g Geometry) Validate() error {
	switch {
	case g.Count != SlotCount:
		return fmt.Errorf("%w: count must be %d, got %d", ErrInvalidGeometry, SlotCount, g.Count)
	case g.Width <= 0:
		return fmt.Errorf("%w: width must be positive, got %v", ErrInvalidGeometry, g.Width)
	case g.Pitch < g.Width:
		return fmt.Errorf("%w: pitch %v is shorter than width %v", ErrInvalidGeometry, g.Pitch, g.Width)
	case g.Speed <= 0:
		return fmt.Errorf("%w: speed must be positive, got %v", ErrInvalidGeometry, g.Speed)
	case g.MaxTicks <= 0:
		return fmt.Errorf("%w: max ticks must be positive, got %d", ErrInvalidGeometry, g.MaxTicks)
	}
	return nil
}

// Offset returns the distance from the first slot to slot i.
func (g Geometry) Offset(i int) float64 {
	return float64(i) * g.Pitch
}

// Gap returns the free space between two sampling windows.
func (g Geometry) Gap() float64 {
	return g.Pitch - g.Width
}

// Metric is the mean intensity measured over one slot.
type Metric struct {
	Index     int
	Intensity float64
	Samples   int
}

// Intensities returns the intensities of metrics in slot order.
func Intensities(metrics []Metric) []float64 {
	out := make([]float64, len(metrics))
	for i, m := range metrics {
		out[i] = m.Intensity
	}
	return out
}

// Scanner drives past the slots and measures them.
type Scanner struct {
	drive  robot.Drive
	sensor robot.ColorSensor
	log    *zap.Logger
}

// NewScanner creates a scanner that samples sensor while driving.
func NewScanner(drive robot.Drive, sensor robot.ColorSensor, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{drive: drive, sensor: sensor, log: log}
}

// Scan drives straight past all slots and returns one metric per slot in
// physical order. A slot's intensity is the mean of saturation plus value
// over its window. The drive is braked when Scan returns.
func (s *Scanner) Scan(ctx context.Context, g Geometry) ([]Metric, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	s.drive.Reset()
	defer func() {
		if err := s.drive.Brake(context.WithoutCancel(ctx)); err != nil {
			s.log.Error("brake after scan", zap.Error(err))
		}
	}()

	ticks := 0
	step := func() error {
		ticks++
		if err := ctx.Err(); err != nil {
			return err
		}
		if ticks > g.MaxTicks {
			return fmt.Errorf("%w after %d ticks", ErrScanBudget, g.MaxTicks)
		}
		return s.drive.Drive(ctx, g.Speed, 0)
	}

	metrics := make([]Metric, 0, g.Count)
	for i := range g.Count {
		start := g.Offset(i)
		end := start + g.Width

		for s.drive.Distance() < start {
			if err := step(); err != nil {
				return nil, fmt.Errorf("scan slot %d: %w", i, err)
			}
		}

		var samples []float64
		for s.drive.Distance() < end {
			hsv, err := s.sensor.HSV(ctx)
			if err != nil {
				return nil, fmt.Errorf("scan slot %d: %w", i, &robot.SensorError{Sensor: robot.SideSensor, Err: err})
			}
			samples = append(samples, hsv.S+hsv.V)
			if err := step(); err != nil {
				return nil, fmt.Errorf("scan slot %d: %w", i, err)
			}
		}
		if len(samples) == 0 {
			return nil, &DegenerateSlotError{Index: i}
		}

		m := Metric{Index: i, Intensity: stat.Mean(samples, nil), Samples: len(samples)}
		s.log.Debug("slot scanned",
			zap.Int("slot", i),
			zap.Float64("intensity", m.Intensity),
			zap.Int("samples", m.Samples))
		metrics = append(metrics, m)
	}

	s.log.Info("scan done", zap.Float64s("intensities", Intensities(metrics)))
	return metrics, nil
}
