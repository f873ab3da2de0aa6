package slots

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricsOf(values ...float64) []Metric {
	out := make([]Metric, len(values))
	for i, v := range values {
		out[i] = Metric{Index: i, Intensity: v, Samples: 1}
	}
	return out
}

func TestClassify(t *testing.T) {
	got, err := Classify(metricsOf(5, 9, 3, 7, 1, 6))
	require.NoError(t, err)

	want := []Class{Neutral, HighMarker, Neutral, Neutral, LowMarker, Neutral}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_MonotoneRescaling(t *testing.T) {
	base := []float64{5, 9, 3, 7, 1, 6}
	want, err := Classify(metricsOf(base...))
	require.NoError(t, err)

	rescales := map[string]func(float64) float64{
		"scale":  func(v float64) float64 { return v * 12.5 },
		"shift":  func(v float64) float64 { return v - 40 },
		"affine": func(v float64) float64 { return 3*v + 100 },
		"square": func(v float64) float64 { return v * v },
	}

	for name, f := range rescales {
		t.Run(name, func(t *testing.T) {
			values := make([]float64, len(base))
			for i, v := range base {
				values[i] = f(v)
			}
			got, err := Classify(metricsOf(values...))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestClassify_Ties(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []Class
	}{
		{
			name:   "tied maxima go to the first slot",
			values: []float64{9, 5, 9, 3, 5, 4},
			want:   []Class{HighMarker, Neutral, Neutral, LowMarker, Neutral, Neutral},
		},
		{
			name:   "tied minima go to the last slot",
			values: []float64{1, 5, 9, 1, 5, 4},
			want:   []Class{Neutral, Neutral, HighMarker, LowMarker, Neutral, Neutral},
		},
		{
			name:   "all equal",
			values: []float64{4, 4, 4, 4, 4, 4},
			want:   []Class{HighMarker, Neutral, Neutral, Neutral, Neutral, LowMarker},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(metricsOf(tt.values...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_ExactlyOneOfEach(t *testing.T) {
	got, err := Classify(metricsOf(120, 80, 95, 60, 101, 99))
	require.NoError(t, err)
	assert.Equal(t, 1, CountClass(got, HighMarker))
	assert.Equal(t, 1, CountClass(got, LowMarker))
	assert.Equal(t, 4, CountClass(got, Neutral))
}

func TestClassify_TooFew(t *testing.T) {
	_, err := Classify(metricsOf(1))
	assert.Error(t, err)
}

func TestParseClass(t *testing.T) {
	for _, c := range []Class{LowMarker, Neutral, HighMarker} {
		parsed, err := ParseClass(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	parsed, err := ParseClass("2")
	require.NoError(t, err)
	assert.Equal(t, HighMarker, parsed)

	_, err = ParseClass("medium")
	assert.Error(t, err)
}
