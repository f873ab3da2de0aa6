package robot

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Actuator is a two-position mechanism, such as the cage.
type Actuator interface {
	Up(ctx context.Context, wait bool) error
	Down(ctx context.Context, wait bool) error
}

// Cage is the block cage, driven by a single Feetech servo.
type Cage struct {
	bus   *feetech.Bus
	group *feetech.ServoGroup
	cal   MotorCalibration
	cfg   CageConfig
	poll  time.Duration
}

var _ Actuator = (*Cage)(nil)

// NewCage opens the servo bus and prepares the cage servo.
func NewCage(cfg CageConfig) (*Cage, error) {
	cal, ok := cfg.Calibration[CageMotor]
	if !ok {
		return nil, fmt.Errorf("cage servo is not calibrated")
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 3
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 2000
	}

	return &Cage{
		bus:   bus,
		group: feetech.NewServoGroupByIDs(bus, cal.ID),
		cal:   cal,
		cfg:   cfg,
		poll:  20 * time.Millisecond,
	}, nil
}

// Close closes the cage's bus connection.
func (c *Cage) Close() error {
	return c.bus.Close()
}

// Enable enables torque on the cage servo.
func (c *Cage) Enable(ctx context.Context) error {
	return c.group.EnableAll(ctx)
}

// Disable disables torque on the cage servo.
func (c *Cage) Disable(ctx context.Context) error {
	return c.group.DisableAll(ctx)
}

// Up lifts the cage. With wait set it blocks until the preset is reached.
func (c *Cage) Up(ctx context.Context, wait bool) error {
	return c.moveTo(ctx, c.cfg.Up, wait)
}

// Down closes the cage. With wait set it blocks until the preset is reached.
func (c *Cage) Down(ctx context.Context, wait bool) error {
	return c.moveTo(ctx, c.cfg.Down, wait)
}

// Angle reads the current cage angle in degrees.
func (c *Cage) Angle(ctx context.Context) (float64, error) {
	positions, err := c.group.Positions(ctx)
	if err != nil {
		return 0, fmt.Errorf("read position: %w", err)
	}
	return cageAngle(c.cfg.Calibration, positions)
}

// cageAngle picks the cage servo out of a bus read and converts it to degrees.
func cageAngle(cal Calibration, positions feetech.PositionMap) (float64, error) {
	for id, raw := range positions {
		if name, mc, ok := cal.ByID(id); ok && name == CageMotor {
			return mc.Degrees(raw), nil
		}
	}
	return 0, fmt.Errorf("cage servo did not report a position")
}

func (c *Cage) moveTo(ctx context.Context, degrees float64, wait bool) error {
	target := feetech.PositionMap{c.cal.ID: c.cal.Raw(degrees)}
	if err := c.group.SetPositions(ctx, target); err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	if !wait {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		angle, err := c.Angle(ctx)
		if err == nil && math.Abs(angle-degrees) <= c.cfg.Tolerance {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("cage to %.0f°: %w", degrees, ctx.Err())
		case <-ticker.C:
		}
	}
}
