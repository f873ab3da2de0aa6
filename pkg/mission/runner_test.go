package mission

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gwillem/linebot/pkg/linefollow"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/sim"
	"github.com/gwillem/linebot/pkg/slots"
	"github.com/gwillem/linebot/pkg/storage"
)

type rig struct {
	vehicle *sim.Vehicle
	cage    *sim.Cage
}

func newRig(values []float64) rig {
	g := slots.DefaultGeometry()
	track := sim.DefaultTrack()
	track.Marks = []sim.Mark{sim.CrossLine(300, 10)}
	track.Slots = sim.SlotRow(500, g.Pitch, g.Width, values)
	return rig{vehicle: sim.NewVehicle(track), cage: &sim.Cage{}}
}

func (r rig) hardware() Hardware {
	return Hardware{
		Drive: r.vehicle,
		Left:  r.vehicle.Sensor(robot.LeftSensor),
		Right: r.vehicle.Sensor(robot.RightSensor),
		Side:  r.vehicle.Sensor(robot.SideSensor),
		Cage:  r.cage,
	}
}

func followTo(kind linefollow.JunctionKind) Step {
	return Step{Op: OpFollow, Segment: linefollow.Segment{
		Junction: linefollow.JunctionSpec{Kind: kind, MinDistance: 250},
		Start:    20,
	}}
}

func testConfig(steps ...Step) Config {
	cfg := DefaultConfig()
	cfg.Storage = StorageConfig{}
	cfg.Steps = steps
	return cfg
}

type recordingSink struct {
	mu      sync.Mutex
	records []storage.Record
}

func (s *recordingSink) Save(_ context.Context, rec storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func TestRunner_FullMission(t *testing.T) {
	values := []float64{50, 90, 30, 70, 10, 60}
	r := newRig(values)
	sink := &recordingSink{}

	cfg := testConfig(
		Step{Op: OpCage, Cage: CageUp, Wait: true},
		followTo(linefollow.JunctionBoth),
		Step{Op: OpStraight, Distance: 200},
		Step{Op: OpScan},
		Step{Op: OpApproach, Distance: 10},
		Step{Op: OpCage, Cage: CageDown, Wait: true},
	)
	runner, err := NewRunner(r.hardware(), cfg, WithSink(sink))
	require.NoError(t, err)

	require.NoError(t, runner.Start(context.Background()))

	plan, ok := runner.Plan()
	require.True(t, ok)
	assert.Equal(t, 0, plan.Window)
	assert.Equal(t, []int{1}, plan.Primary)
	assert.Equal(t, []int{4}, plan.Secondary)

	assert.Equal(t, []string{"up", "down"}, r.cage.Moves)
	require.Len(t, r.vehicle.Straights, 2)
	assert.Equal(t, 200.0, r.vehicle.Straights[0])
	// Scan ends 453 mm past the row start; slot 1 starts at one pitch.
	assert.InDelta(t, 84.05+10-453, r.vehicle.Straights[1], 1e-9)
	assert.InDelta(t, 500+84.05+10, r.vehicle.Position(), 1e-9)
	assert.Equal(t, 2, r.vehicle.Brakes)

	require.Len(t, sink.records, 1)
	assert.Equal(t, 0, sink.records[0].Window)
	assert.InDeltaSlice(t, values, sink.records[0].Intensities, 1e-9)

	final := <-runner.States()
	assert.True(t, final.Done)
	assert.NoError(t, final.Error)
	require.NotNil(t, final.Plan)
	assert.Equal(t, plan, *final.Plan)
}

func TestRunner_ApproachWrapWindows(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
		slots  []int
	}{
		{"window 4", []float64{90, 10, 50, 60, 70, 40}, 4, []int{5, 0}},
		{"window 5", []float64{50, 90, 10, 60, 70, 40}, 5, []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(tt.values)
			cfg := testConfig(
				Step{Op: OpStraight, Distance: 500},
				Step{Op: OpScan},
				Step{Op: OpApproach, Distance: 10},
			)
			runner, err := NewRunner(r.hardware(), cfg)
			require.NoError(t, err)

			require.NoError(t, runner.Start(context.Background()))

			plan, ok := runner.Plan()
			require.True(t, ok)
			assert.Equal(t, tt.window, plan.Window)
			assert.Equal(t, tt.slots, plan.PrimarySlots())

			// The first pickup starts at slot 0, the start of the row.
			assert.InDelta(t, 500+10, r.vehicle.Position(), 1e-9)
		})
	}
}

func TestRunner_Reach(t *testing.T) {
	g := slots.DefaultGeometry()
	r := newRig([]float64{10, 50, 90, 60, 70, 40})
	cfg := testConfig(
		Step{Op: OpStraight, Distance: 500},
		Step{Op: OpScan},
		Step{Op: OpApproach, Distance: 10},
		Step{Op: OpCage, Cage: CageDown},
		Step{Op: OpReach, Reach: ReachFarthest},
		Step{Op: OpReach, Reach: ReachNearest, Distance: 5},
	)
	runner, err := NewRunner(r.hardware(), cfg)
	require.NoError(t, err)

	require.NoError(t, runner.Start(context.Background()))

	plan, ok := runner.Plan()
	require.True(t, ok)
	require.Equal(t, 1, plan.Window)
	require.Equal(t, []int{1, 4}, plan.Secondary)

	approach := g.Offset(2) + 10
	want := []float64{
		500,
		approach - 453,
		g.Offset(4) - approach,
		g.Offset(1) + 5 - g.Offset(4),
	}
	assert.InDeltaSlice(t, want, r.vehicle.Straights, 1e-9)
	assert.InDelta(t, 500+g.Offset(1)+5, r.vehicle.Position(), 1e-9)
	assert.Equal(t, []string{"down"}, r.cage.Moves)
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	r := newRig([]float64{1, 2, 3, 4, 5, 6})
	cfg := testConfig(
		followTo(linefollow.JunctionLeft),
		Step{Op: OpCage, Cage: CageDown},
	)
	runner, err := NewRunner(r.hardware(), cfg)
	require.NoError(t, err)

	err = runner.Start(context.Background())

	require.ErrorIs(t, err, linefollow.ErrJunctionNotFound)
	assert.Contains(t, err.Error(), "step 1 (follow)")
	assert.Empty(t, r.cage.Moves, "later steps must not run")
	assert.Equal(t, 1, r.vehicle.Brakes)

	final := <-runner.States()
	assert.True(t, final.Done)
	assert.ErrorIs(t, final.Error, linefollow.ErrJunctionNotFound)

	_, ok := runner.Plan()
	assert.False(t, ok)
}

func TestRunner_DegenerateScanIsStored(t *testing.T) {
	r := newRig([]float64{1, 2, 3, 4, 5, 6})
	sink := &recordingSink{}
	cfg := testConfig(
		Step{Op: OpStraight, Distance: 500},
		Step{Op: OpScan},
	)
	cfg.Scan.Width = 0.5
	runner, err := NewRunner(r.hardware(), cfg, WithSink(sink))
	require.NoError(t, err)

	err = runner.Start(context.Background())

	var degenerate *slots.DegenerateSlotError
	require.ErrorAs(t, err, &degenerate)
	assert.Empty(t, sink.records)
}

func TestRunner_StoresBlobAndHistory(t *testing.T) {
	dir := t.TempDir()
	storageCfg := StorageConfig{
		HistoryPath: filepath.Join(dir, "scans.db"),
		BlobPath:    filepath.Join(dir, "scan.bin"),
	}
	sinks, closeSinks, err := storageCfg.Open()
	require.NoError(t, err)
	require.Len(t, sinks, 2)

	r := newRig([]float64{50, 90, 30, 70, 10, 60})
	cfg := testConfig(Step{Op: OpStraight, Distance: 500}, Step{Op: OpScan})
	runner, err := NewRunner(r.hardware(), cfg, WithSink(sinks))
	require.NoError(t, err)
	require.NoError(t, runner.Start(context.Background()))
	require.NoError(t, closeSinks())

	blob, err := storage.LoadBlob(storageCfg.BlobPath)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 90, 30, 70, 10, 60}, blob)

	store, err := storage.OpenSQLite(storageCfg.HistoryPath)
	require.NoError(t, err)
	defer store.Close()
	recent, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 0, recent[0].Window)
}

func TestRunner_LineAndHold(t *testing.T) {
	r := newRig([]float64{1, 2, 3, 4, 5, 6})
	cfg := testConfig(
		Step{Op: OpHold, Distance: 100},
		Step{Op: OpLine, Distance: 50, Nudge: true},
	)
	runner, err := NewRunner(r.hardware(), cfg)
	require.NoError(t, err)

	require.NoError(t, runner.Start(context.Background()))

	// Hold ends at 100, the line is found 200 mm later, then the nudge.
	assert.Equal(t, []float64{128}, r.vehicle.Straights)
	assert.InDelta(t, 300+128, r.vehicle.Position(), 1e-9)
}

func TestRunner_Cancel(t *testing.T) {
	r := newRig([]float64{1, 2, 3, 4, 5, 6})
	cfg := testConfig(Step{Op: OpHold, Distance: 100_000})
	cfg.Follow.Hz = 500
	runner, err := NewRunner(r.hardware(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runner.Start(ctx)
	}()

	timeout := time.After(5 * time.Second)
	for ticking := false; !ticking; {
		select {
		case s := <-runner.States():
			ticking = s.Tick != nil
		case <-timeout:
			t.Fatal("no tick state received")
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, 1, r.vehicle.Brakes)
}

func TestRunner_Logs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRig([]float64{50, 90, 30, 70, 10, 60})
	cfg := testConfig(Step{Op: OpStraight, Distance: 500}, Step{Op: OpScan})
	runner, err := NewRunner(r.hardware(), cfg, WithLogger(zap.New(core)))
	require.NoError(t, err)

	require.NoError(t, runner.Start(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("mission complete").Len())
	assert.Equal(t, 1, logs.FilterMessage("grab plan").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("scan").FilterMessage("scan done").Len())

	var lines []string
	for len(runner.Logs()) > 0 {
		lines = append(lines, <-runner.Logs())
	}
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasSuffix(lines[0], "Mission started: 2 steps"), lines[0])
	assert.Contains(t, lines[len(lines)-1], "Mission complete")
}

func TestNewRunner_MissingHardware(t *testing.T) {
	r := newRig([]float64{1, 2, 3, 4, 5, 6})

	hw := r.hardware()
	hw.Cage = nil
	_, err := NewRunner(hw, testConfig(Step{Op: OpCage, Cage: CageUp}))
	assert.ErrorContains(t, err, "cage")

	hw = r.hardware()
	hw.Side = nil
	_, err = NewRunner(hw, testConfig(Step{Op: OpScan}))
	assert.ErrorContains(t, err, "side sensor")

	hw = r.hardware()
	hw.Cage = nil
	hw.Side = nil
	_, err = NewRunner(hw, testConfig(Step{Op: OpHold, Distance: 10}))
	assert.NoError(t, err)
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	r := newRig([]float64{1, 2, 3, 4, 5, 6})
	cfg := testConfig(Step{Op: OpHold, Distance: 10})
	cfg.Follow.Speeds.Fast = 0

	_, err := NewRunner(r.hardware(), cfg)
	assert.ErrorIs(t, err, linefollow.ErrInvalidConfig)
}
