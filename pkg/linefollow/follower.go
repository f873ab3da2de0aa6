// Package linefollow steers a two-sensor differential drive along a floor
// line and stops it at a configured junction.
package linefollow

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/gwillem/linebot/pkg/robot"
)

// Reason says why a loop terminated.
type Reason int

const (
	ReasonJunction Reason = iota + 1
	ReasonDistance
)

func (r Reason) String() string {
	switch r {
	case ReasonJunction:
		return "junction reached"
	case ReasonDistance:
		return "distance reached"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Report describes how a loop ended. It is filled in as far as the loop got
// even when an error is returned.
type Report struct {
	Reason   Reason
	Distance float64
	Ticks    int
}

// Tick is the state of one control tick, handed to observers.
type Tick struct {
	N        int
	Distance float64
	Zone     Zone
	Sample   robot.SensorSample
	Command  robot.SteeringCommand
}

// Follower owns the closed line-following loop.
type Follower struct {
	drive   robot.Drive
	left    robot.ColorSensor
	right   robot.ColorSensor
	cfg     Config
	log     *zap.Logger
	observe func(Tick)
}

// Option configures a Follower.
type Option func(*Follower)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Follower) {
		if l != nil {
			f.log = l
		}
	}
}

// WithObserver registers fn to be called after every steering tick. It
// runs on the loop, so it must not block.
func WithObserver(fn func(Tick)) Option {
	return func(f *Follower) {
		f.observe = fn
	}
}

// New creates a Follower after validating cfg.
func New(drive robot.Drive, left, right robot.ColorSensor, cfg Config, opts ...Option) (*Follower, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &Follower{
		drive: drive,
		left:  left,
		right: right,
		cfg:   cfg,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Config returns the follower's settings.
func (f *Follower) Config() Config {
	return f.cfg
}

// Follow tracks the line until the segment's junction is seen at or past
// its stretch. Distance is reset on entry.
func (f *Follower) Follow(ctx context.Context, seg Segment) (Report, error) {
	if err := seg.Validate(); err != nil {
		return Report{}, err
	}

	gains := seg.Gains
	if gains == (Gains{}) {
		gains = f.cfg.Gains
	}
	stretch := seg.Stretch()
	limit := seg.MaxDistance
	if limit == 0 {
		limit = stretch + f.cfg.Overrun
	}
	kind := seg.Junction.Kind
	zones := newZoneLatch(seg.Start, stretch)

	return f.run(ctx, loop{
		name:      "follow",
		withColor: kind == JunctionGreen,
		limit:     limit,
		exhausted: ErrJunctionNotFound,
		reason:    ReasonJunction,
		nudge:     seg.Nudge,
		zone:      zones.Update,
		done: func(d float64, s robot.SensorSample) bool {
			return f.cfg.Thresholds.Hit(kind, s) && d >= stretch
		},
		steer: func(s robot.SensorSample, zone Zone) robot.SteeringCommand {
			diff := s.Difference()
			if seg.NoSteering {
				diff = 0
			}
			return Steer(diff, zone, f.cfg.Speeds, gains)
		},
		fields: []zap.Field{
			zap.Stringer("junction", kind),
			zap.Float64("start", seg.Start),
			zap.Float64("stretch", stretch),
		},
	})
}

// Hold tracks the line at fast speed for a fixed distance, with no zones
// and no junction detection.
func (f *Follower) Hold(ctx context.Context, target float64) (Report, error) {
	if target < 0 || math.IsNaN(target) {
		return Report{}, invalid("target", "must not be negative, got %v", target)
	}

	return f.run(ctx, loop{
		name:      "hold",
		limit:     math.Inf(1),
		exhausted: ErrBudgetExceeded,
		reason:    ReasonDistance,
		zone:      func(float64) Zone { return ZoneFast },
		done: func(d float64, _ robot.SensorSample) bool {
			return d >= target
		},
		steer: func(s robot.SensorSample, zone Zone) robot.SteeringCommand {
			return Steer(s.Difference(), zone, f.cfg.Speeds, f.cfg.Gains)
		},
		fields: []zap.Field{zap.Float64("target", target)},
	})
}

// DriveToLine drives straight without steering, fast until stretch and slow
// after, and stops as soon as the sensors straddle a crossing line.
func (f *Follower) DriveToLine(ctx context.Context, stretch float64, nudge bool) (Report, error) {
	if stretch < 0 || math.IsNaN(stretch) {
		return Report{}, invalid("stretch", "must not be negative, got %v", stretch)
	}

	// Negative start: fast from the first tick.
	zones := newZoneLatch(-1, stretch)

	return f.run(ctx, loop{
		name:      "line",
		limit:     stretch + f.cfg.Overrun,
		exhausted: ErrJunctionNotFound,
		reason:    ReasonJunction,
		nudge:     nudge,
		zone:      zones.Update,
		done: func(_ float64, s robot.SensorSample) bool {
			return f.cfg.Thresholds.AtLine(s)
		},
		steer: func(_ robot.SensorSample, zone Zone) robot.SteeringCommand {
			return robot.SteeringCommand{Speed: f.cfg.Speeds.For(zone)}
		},
		fields: []zap.Field{zap.Float64("stretch", stretch)},
	})
}

// loop is one variant of the control loop.
type loop struct {
	name      string
	withColor bool
	limit     float64
	exhausted error
	reason    Reason
	nudge     bool
	zone      func(d float64) Zone
	done      func(d float64, s robot.SensorSample) bool
	steer     func(s robot.SensorSample, zone Zone) robot.SteeringCommand
	fields    []zap.Field
}

func (f *Follower) run(ctx context.Context, l loop) (Report, error) {
	log := f.log.With(append([]zap.Field{zap.String("loop", l.name)}, l.fields...)...)

	var pace <-chan time.Time
	if f.cfg.Hz > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(f.cfg.Hz))
		defer ticker.Stop()
		pace = ticker.C
	}

	f.drive.Reset()
	var rep Report

	for {
		rep.Ticks++
		if err := ctx.Err(); err != nil {
			return rep, f.abort(ctx, log, fmt.Errorf("%s: %w", l.name, err))
		}

		d := f.drive.Distance()
		rep.Distance = d
		if d > l.limit || rep.Ticks > f.cfg.MaxTicks {
			return rep, f.abort(ctx, log, fmt.Errorf("%s: %w after %.1f mm (%d ticks)", l.name, l.exhausted, d, rep.Ticks))
		}

		zone := l.zone(d)

		sample, err := robot.ReadSample(ctx, f.left, f.right, l.withColor)
		if err != nil {
			return rep, f.abort(ctx, log, &SensorFaultError{Tick: rep.Ticks, Distance: d, Err: err})
		}

		if l.done(d, sample) {
			if err := f.stop(ctx, l.nudge); err != nil {
				return rep, fmt.Errorf("%s: %w", l.name, err)
			}
			rep.Reason = l.reason
			log.Info("segment done",
				zap.Stringer("reason", rep.Reason),
				zap.Float64("distance", rep.Distance),
				zap.Int("ticks", rep.Ticks))
			return rep, nil
		}

		cmd := l.steer(sample, zone)
		if err := f.drive.Drive(ctx, cmd.Speed, cmd.TurnRate); err != nil {
			return rep, f.abort(ctx, log, fmt.Errorf("%s: drive: %w", l.name, err))
		}

		if ce := log.Check(zap.DebugLevel, "tick"); ce != nil {
			ce.Write(
				zap.Int("tick", rep.Ticks),
				zap.Float64("distance", d),
				zap.Stringer("zone", zone),
				zap.Float64("left", sample.Left),
				zap.Float64("right", sample.Right),
				zap.Float64("turn_rate", cmd.TurnRate))
		}
		if f.observe != nil {
			f.observe(Tick{N: rep.Ticks, Distance: d, Zone: zone, Sample: sample, Command: cmd})
		}

		if pace != nil {
			select {
			case <-ctx.Done():
			case <-pace:
			}
		}
	}
}

// stop optionally nudges the axle onto the line, then brakes.
func (f *Follower) stop(ctx context.Context, nudge bool) error {
	if nudge && f.cfg.NudgeDistance > 0 {
		if err := f.drive.Straight(ctx, f.cfg.NudgeDistance, robot.StopBrake); err != nil {
			return fmt.Errorf("nudge: %w", err)
		}
	}
	if err := f.drive.Brake(ctx); err != nil {
		return fmt.Errorf("brake: %w", err)
	}
	return nil
}

// abort brakes the drive and returns cause. Braking still happens when
// ctx is already cancelled.
func (f *Follower) abort(ctx context.Context, log *zap.Logger, cause error) error {
	if err := f.drive.Brake(context.WithoutCancel(ctx)); err != nil {
		log.Error("brake after failure", zap.Error(err))
	}
	log.Warn("segment aborted", zap.Error(cause))
	return cause
}
