// Package mission runs an ordered list of driving, scanning and cage steps
// and reports progress to a UI.
package mission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/gwillem/linebot/pkg/linefollow"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/slots"
	"github.com/gwillem/linebot/pkg/storage"
)

// State is a progress update of a running mission.
type State struct {
	Step int // 1-based, 0 before the first step
	Op   Op

	// Tick is set while a line loop runs.
	Tick *linefollow.Tick
	// Report is set when a line loop finishes.
	Report *linefollow.Report

	Metrics []slots.Metric
	Plan    *slots.GrabPlan

	Done      bool
	Error     error
	Timestamp time.Time
}

// Hardware is what a mission drives.
type Hardware struct {
	Drive robot.Drive
	Left  robot.ColorSensor
	Right robot.ColorSensor
	// Side is the slot-facing sensor used by scans.
	Side robot.ColorSensor
	Cage robot.Actuator
}

// Runner executes mission steps one after another.
type Runner struct {
	hw       Hardware
	cfg      Config
	follower *linefollow.Follower
	scanner  *slots.Scanner
	sink     storage.Sink
	log      *zap.Logger

	mu      sync.RWMutex
	running bool
	step    int
	plan    *slots.GrabPlan
	// rowPos is the distance from the start of the slot row, valid while
	// rowValid is set.
	rowPos   float64
	rowValid bool
	stateCh chan State
	logCh   chan string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithSink stores every finished scan in sink.
func WithSink(sink storage.Sink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// NewRunner validates cfg and prepares the control loops.
func NewRunner(hw Hardware, cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hw.Drive == nil || hw.Left == nil || hw.Right == nil {
		return nil, errors.New("mission needs a drive and both line sensors")
	}
	needs := func(op Op) bool {
		return lo.ContainsBy(cfg.Steps, func(s Step) bool { return s.Op == op })
	}
	if needs(OpScan) && hw.Side == nil {
		return nil, errors.New("scan step needs a side sensor")
	}
	if needs(OpCage) && hw.Cage == nil {
		return nil, errors.New("cage step needs a cage")
	}

	r := &Runner{
		hw:      hw,
		cfg:     cfg,
		log:     zap.NewNop(),
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}
	for _, opt := range opts {
		opt(r)
	}

	follower, err := linefollow.New(hw.Drive, hw.Left, hw.Right, cfg.Follow,
		linefollow.WithLogger(r.log.Named("follow")),
		linefollow.WithObserver(r.observe))
	if err != nil {
		return nil, err
	}
	r.follower = follower
	if hw.Side != nil {
		r.scanner = slots.NewScanner(hw.Drive, hw.Side, r.log.Named("scan"))
	}
	return r, nil
}

// States returns a channel that receives state updates.
func (r *Runner) States() <-chan State {
	return r.stateCh
}

// Logs returns a channel that receives log messages.
func (r *Runner) Logs() <-chan string {
	return r.logCh
}

// Steps returns the mission steps.
func (r *Runner) Steps() []Step {
	return r.cfg.Steps
}

// Plan returns the grab plan of the last scan.
func (r *Runner) Plan() (slots.GrabPlan, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.plan == nil {
		return slots.GrabPlan{}, false
	}
	return *r.plan, true
}

func (r *Runner) logf(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case r.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs every step in order and stops at the first failure. It
// blocks until the mission ends.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("already running")
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	started := time.Now()
	r.logf("Mission started: %d steps", len(r.cfg.Steps))
	r.log.Info("mission started", zap.Int("steps", len(r.cfg.Steps)))

	for i, step := range r.cfg.Steps {
		r.step = i + 1
		r.logf("Step %d: %s", r.step, step)
		r.sendState(State{Step: r.step, Op: step.Op, Timestamp: time.Now()})

		if err := r.run(ctx, step); err != nil {
			err = fmt.Errorf("step %d (%s): %w", r.step, step.Op, err)
			r.logf("Mission failed: %v", err)
			r.log.Error("mission failed", zap.Int("step", r.step), zap.String("op", string(step.Op)), zap.Error(err))
			r.sendState(State{Step: r.step, Op: step.Op, Error: err, Done: true, Timestamp: time.Now()})
			return err
		}
	}

	elapsed := time.Since(started)
	r.logf("Mission complete in %s", elapsed.Round(time.Millisecond))
	r.log.Info("mission complete", zap.Duration("elapsed", elapsed))
	r.sendState(State{Step: r.step, Done: true, Plan: r.planPtr(), Timestamp: time.Now()})
	return nil
}

func (r *Runner) run(ctx context.Context, step Step) error {
	if !step.Op.onSlotRow() && !step.Op.keepsPosition() {
		r.rowValid = false
	}

	switch step.Op {
	case OpFollow:
		return r.report(r.follower.Follow(ctx, step.Segment))
	case OpHold:
		return r.report(r.follower.Hold(ctx, step.Distance))
	case OpLine:
		return r.report(r.follower.DriveToLine(ctx, step.Distance, step.Nudge))
	case OpStraight:
		return r.hw.Drive.Straight(ctx, step.Distance, robot.StopBrake)
	case OpScan:
		return r.scan(ctx)
	case OpApproach:
		plan, ok := r.Plan()
		if !ok {
			return errors.New("no grab plan")
		}
		return r.driveToSlot(ctx, plan.FirstSlot(), step.Distance)
	case OpReach:
		plan, ok := r.Plan()
		if !ok {
			return errors.New("no grab plan")
		}
		slot := plan.Nearest()
		if step.Reach == ReachFarthest {
			slot = plan.Farthest()
		}
		return r.driveToSlot(ctx, slot, step.Distance)
	case OpCage:
		if step.Cage == CageDown {
			return r.hw.Cage.Down(ctx, step.Wait)
		}
		return r.hw.Cage.Up(ctx, step.Wait)
	default:
		return fmt.Errorf("unknown step %q", step.Op)
	}
}

func (r *Runner) report(rep linefollow.Report, err error) error {
	if err != nil {
		return err
	}
	r.logf("  %s at %.0f mm after %d ticks", rep.Reason, rep.Distance, rep.Ticks)
	r.sendState(State{Step: r.step, Op: r.cfg.Steps[r.step-1].Op, Report: &rep, Timestamp: time.Now()})
	return nil
}

func (r *Runner) scan(ctx context.Context) error {
	metrics, err := r.scanner.Scan(ctx, r.cfg.Scan)
	if err != nil {
		return err
	}
	r.rowPos = r.hw.Drive.Distance()
	r.rowValid = true

	rec := storage.Record{Intensities: slots.Intensities(metrics), Window: -1}
	classes, err := slots.Classify(metrics)
	var plan slots.GrabPlan
	if err == nil {
		plan, err = slots.ResolveGrabs(classes)
	}
	if err == nil {
		rec.Window = plan.Window
	}

	if r.sink != nil {
		if serr := r.sink.Save(ctx, rec); serr != nil {
			r.logf("Warning: failed to store scan: %v", serr)
			r.log.Warn("store scan", zap.Error(serr))
		}
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.plan = &plan
	r.mu.Unlock()

	r.logf("  classes %v -> %s", classes, plan)
	r.log.Info("grab plan",
		zap.Int("window", plan.Window),
		zap.Ints("primary", plan.Primary),
		zap.Ints("secondary", plan.Secondary))
	r.sendState(State{Step: r.step, Op: OpScan, Metrics: metrics, Plan: &plan, Timestamp: time.Now()})
	return nil
}

// driveToSlot drives along the slot row to offset past the start of slot.
func (r *Runner) driveToSlot(ctx context.Context, slot int, offset float64) error {
	if !r.rowValid {
		return errors.New("not on the slot row")
	}
	target := r.cfg.Scan.Offset(slot) + offset
	r.logf("  to slot %d (%.0f mm along the row)", slot, target)
	if err := r.hw.Drive.Straight(ctx, target-r.rowPos, robot.StopBrake); err != nil {
		r.rowValid = false
		return err
	}
	r.rowPos = target
	return nil
}

func (r *Runner) planPtr() *slots.GrabPlan {
	plan, ok := r.Plan()
	if !ok {
		return nil
	}
	return &plan
}

func (r *Runner) observe(t linefollow.Tick) {
	r.sendState(State{Step: r.step, Op: r.cfg.Steps[r.step-1].Op, Tick: &t, Timestamp: time.Now()})
}

func (r *Runner) sendState(s State) {
	select {
	case r.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-r.stateCh:
		default:
		}
		select {
		case r.stateCh <- s:
		default:
		}
	}
}
