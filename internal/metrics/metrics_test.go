package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"tsbacktest/internal/dataset"
	"tsbacktest/internal/engine"
)

var base = time.UnixMilli(0).UTC()

func makePanel(t *testing.T, segments map[string][]float64) *dataset.Dataset {
	t.Helper()
	n := 0
	for _, values := range segments {
		n = len(values)
		break
	}
	axis := make([]time.Time, n)
	for i := range axis {
		axis[i] = base.Add(time.Duration(i) * time.Minute)
	}
	ds, err := dataset.New(axis)
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}
	for segment, values := range segments {
		if err := ds.AddSeries(segment, dataset.TargetColumn, values); err != nil {
			t.Fatalf("AddSeries() error = %v", err)
		}
	}
	return ds
}

func TestMetrics_PerSegment(t *testing.T) {
	actual := makePanel(t, map[string][]float64{
		"a": {1, 2, 3, 4},
		"b": {10, 10, 10, 10},
	})
	predicted := makePanel(t, map[string][]float64{
		"a": {2, 2, 2, 2},
		"b": {8, 12, 8, 12},
	})

	tests := []struct {
		metric engine.Metric
		want   map[string]float64
	}{
		// a: |1-2|,|2-2|,|3-2|,|4-2| -> mean 1; b: all |2| -> 2
		{NewMAE(engine.MetricModePerSegment), map[string]float64{"a": 1, "b": 2}},
		// a: 1,0,1,4 -> 1.5; b: all 4 -> 4
		{NewMSE(engine.MetricModePerSegment), map[string]float64{"a": 1.5, "b": 4}},
		// a: 100%, 0%, 33.33%, 50% -> 45.83%; b: all 20% -> 20%
		{NewMAPE(engine.MetricModePerSegment), map[string]float64{"a": 550.0 / 12.0, "b": 20}},
	}
	for _, tt := range tests {
		t.Run(tt.metric.Name(), func(t *testing.T) {
			if tt.metric.Mode() != engine.MetricModePerSegment {
				t.Errorf("Mode() = %v, want per-segment", tt.metric.Mode())
			}
			got, err := tt.metric.Compute(actual, predicted)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Compute() = %v, want %v", got, tt.want)
			}
			for segment, want := range tt.want {
				if math.Abs(got[segment]-want) > 1e-9 {
					t.Errorf("%s score for %s = %v, want %v", tt.metric.Name(), segment, got[segment], want)
				}
			}
		})
	}
}

func TestMetrics_MacroMode(t *testing.T) {
	actual := makePanel(t, map[string][]float64{
		"a": {1, 2, 3, 4},
		"b": {10, 10, 10, 10},
	})
	predicted := makePanel(t, map[string][]float64{
		"a": {2, 2, 2, 2},
		"b": {8, 12, 8, 12},
	})

	got, err := NewMAE(engine.MetricModeMacro).Compute(actual, predicted)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("macro Compute() = %v, want single entry", got)
	}
	// Mean of the per-segment scores 1 and 2.
	if math.Abs(got["macro"]-1.5) > 1e-9 {
		t.Errorf("macro score = %v, want 1.5", got["macro"])
	}
}

func TestMetrics_SkipsMissingPairs(t *testing.T) {
	actual := makePanel(t, map[string][]float64{"a": {1, math.NaN(), 3, 4}})
	predicted := makePanel(t, map[string][]float64{"a": {2, 2, math.NaN(), 2}})

	got, err := NewMAE(engine.MetricModePerSegment).Compute(actual, predicted)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	// Only indices 0 and 3 pair up: |1-2| and |4-2|.
	if math.Abs(got["a"]-1.5) > 1e-9 {
		t.Errorf("score = %v, want 1.5", got["a"])
	}
}

func TestMAPE_SkipsZeroActuals(t *testing.T) {
	actual := makePanel(t, map[string][]float64{"a": {0, 2, 4}})
	predicted := makePanel(t, map[string][]float64{"a": {5, 1, 5}})

	got, err := NewMAPE(engine.MetricModePerSegment).Compute(actual, predicted)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	// |2-1|/2 = 50% and |4-5|/4 = 25%; the zero actual does not count.
	if math.Abs(got["a"]-37.5) > 1e-9 {
		t.Errorf("score = %v, want 37.5", got["a"])
	}
}

func TestMetrics_Errors(t *testing.T) {
	t.Run("length mismatch", func(t *testing.T) {
		actual := makePanel(t, map[string][]float64{"a": {1, 2, 3}})
		predicted := makePanel(t, map[string][]float64{"a": {1, 2}})
		_, err := NewMSE(engine.MetricModePerSegment).Compute(actual, predicted)
		if !errors.Is(err, ErrLengthMismatch) {
			t.Errorf("Compute() error = %v, want ErrLengthMismatch", err)
		}
	})
	t.Run("no pairs", func(t *testing.T) {
		actual := makePanel(t, map[string][]float64{"a": {math.NaN(), math.NaN()}})
		predicted := makePanel(t, map[string][]float64{"a": {1, 2}})
		_, err := NewMAE(engine.MetricModePerSegment).Compute(actual, predicted)
		if !errors.Is(err, ErrNoPairs) {
			t.Errorf("Compute() error = %v, want ErrNoPairs", err)
		}
	})
	t.Run("segment missing from prediction", func(t *testing.T) {
		actual := makePanel(t, map[string][]float64{"a": {1, 2}})
		predicted := makePanel(t, map[string][]float64{"b": {1, 2}})
		if _, err := NewMAE(engine.MetricModePerSegment).Compute(actual, predicted); err == nil {
			t.Error("Compute() succeeded with mismatched segments, want error")
		}
	})
}
