package mission

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/linebot/pkg/linefollow"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 145.0, cfg.Cage.Up)
	assert.Equal(t, 53.0, cfg.Cage.Down)
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	cfg := DefaultConfig()
	cfg.Cage.Port = "/dev/ttyUSB0"
	cfg.Follow.Speeds = linefollow.Speeds{Fast: 300, Slow: 150}

	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadConfigFrom(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, *loaded); diff != "" {
		t.Errorf("config mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestLoadConfigFrom_KeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	data := `{"follow": {"speeds": {"fast": 300, "slow": 150}}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, linefollow.Speeds{Fast: 300, Slow: 150}, cfg.Follow.Speeds)
	assert.Equal(t, linefollow.DefaultThresholds(), cfg.Follow.Thresholds)
	assert.Equal(t, DefaultSteps(), cfg.Steps)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFrom_Steps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.json")
	data := `{"steps": [
		{"op": "follow", "segment": {"junction": {"kind": "left", "min_distance": 300}, "start": 40, "nudge": true}},
		{"op": "LINE", "distance": 60},
		{"op": "cage", "cage": "down", "wait": true}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	want := []Step{
		{Op: OpFollow, Segment: linefollow.Segment{
			Junction: linefollow.JunctionSpec{Kind: linefollow.JunctionLeft, MinDistance: 300},
			Start:    40,
			Nudge:    true,
		}},
		{Op: OpLine, Distance: 60},
		{Op: OpCage, Cage: CageDown, Wait: true},
	}
	if diff := cmp.Diff(want, cfg.Steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFrom_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfigFrom(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"steps": [{"op": "dance"}]}`), 0644))
	_, err = LoadConfigFrom(path)
	assert.ErrorContains(t, err, "unknown step")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		want  string
	}{
		{"no steps", nil, "no steps"},
		{"approach without scan", []Step{{Op: OpApproach}}, "approach must follow a scan"},
		{"approach after hold", []Step{{Op: OpScan}, {Op: OpHold, Distance: 10}, {Op: OpApproach}}, "step 3"},
		{"reach after straight", []Step{{Op: OpScan}, {Op: OpStraight, Distance: 5}, {Op: OpReach, Reach: ReachNearest}}, "step 3: reach must follow a scan"},
		{"bad reach", []Step{{Op: OpScan}, {Op: OpReach, Reach: "middle"}}, "reach must be"},
		{"bad hold", []Step{{Op: OpHold}}, "hold distance"},
		{"bad line", []Step{{Op: OpLine, Distance: -1}}, "line stretch"},
		{"bad straight", []Step{{Op: OpStraight}}, "straight distance"},
		{"bad cage", []Step{{Op: OpCage, Cage: "sideways"}}, "cage preset"},
		{"bad segment", []Step{{Op: OpFollow}}, "junction.kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Steps = tt.steps
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestConfig_ValidateSlotRowSteps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Steps = []Step{
		{Op: OpScan},
		{Op: OpApproach},
		{Op: OpCage, Cage: CageDown},
		{Op: OpReach, Reach: ReachFarthest},
		{Op: OpReach, Reach: ReachNearest},
	}
	assert.NoError(t, cfg.Validate())
}

func TestParseOp(t *testing.T) {
	for _, op := range AllOps() {
		parsed, err := ParseOp(string(op))
		require.NoError(t, err)
		assert.Equal(t, op, parsed)
	}
	_, err := ParseOp("jump")
	assert.Error(t, err)
}

func TestStep_String(t *testing.T) {
	assert.Equal(t, "straight -120 mm", Step{Op: OpStraight, Distance: -120}.String())
	assert.Equal(t, "cage down", Step{Op: OpCage, Cage: CageDown}.String())
	assert.Equal(t, "follow to both junction past 400 mm", DefaultSteps()[1].String())
}
