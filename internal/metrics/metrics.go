package metrics

import (
	"errors"
	"fmt"
	"math"

	"tsbacktest/internal/dataset"
	"tsbacktest/internal/engine"
)

// Global error declarations.
var (
	ErrLengthMismatch = errors.New("actual and predicted series differ in length")
	ErrNoPairs        = errors.New("no observed value pairs to compare")
)

type pairwiseFunc func(actual, predicted []float64) (float64, error)

// metric wraps a pairwise scoring function with a name and aggregation mode.
type metric struct {
	name string
	mode engine.MetricMode
	fn   pairwiseFunc
}

func (m *metric) Name() string            { return m.name }
func (m *metric) Mode() engine.MetricMode { return m.mode }

// Compute scores the target column of predicted against actual. In
// per-segment mode the result maps each segment to its own score; in macro
// mode it holds a single "macro" key with the mean score over segments.
func (m *metric) Compute(actual, predicted *dataset.Dataset) (map[string]float64, error) {
	scores := make(map[string]float64)
	for _, segment := range actual.Segments() {
		actualValues, err := actual.Series(segment, dataset.TargetColumn)
		if err != nil {
			return nil, err
		}
		predictedValues, err := predicted.Series(segment, dataset.TargetColumn)
		if err != nil {
			return nil, err
		}
		if len(actualValues) != len(predictedValues) {
			return nil, fmt.Errorf("%w: segment %q has %d actual and %d predicted",
				ErrLengthMismatch, segment, len(actualValues), len(predictedValues))
		}
		score, err := m.fn(actualValues, predictedValues)
		if err != nil {
			return nil, fmt.Errorf("segment %q: %w", segment, err)
		}
		scores[segment] = score
	}

	if m.mode == engine.MetricModeMacro {
		var sum float64
		for _, score := range scores {
			sum += score
		}
		return map[string]float64{"macro": sum / float64(len(scores))}, nil
	}
	return scores, nil
}

// NewMAE is the mean absolute error metric.
func NewMAE(mode engine.MetricMode) engine.Metric {
	return &metric{name: "MAE", mode: mode, fn: func(actual, predicted []float64) (float64, error) {
		var sum, n float64
		for i := range actual {
			if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
				continue
			}
			sum += math.Abs(actual[i] - predicted[i])
			n++
		}
		if n == 0 {
			return 0, ErrNoPairs
		}
		return sum / n, nil
	}}
}

// NewMSE is the mean squared error metric.
func NewMSE(mode engine.MetricMode) engine.Metric {
	return &metric{name: "MSE", mode: mode, fn: func(actual, predicted []float64) (float64, error) {
		var sum, n float64
		for i := range actual {
			if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
				continue
			}
			diff := actual[i] - predicted[i]
			sum += diff * diff
			n++
		}
		if n == 0 {
			return 0, ErrNoPairs
		}
		return sum / n, nil
	}}
}

// NewMAPE is the mean absolute percentage error metric, in percent.
// Zero-valued actuals are skipped.
func NewMAPE(mode engine.MetricMode) engine.Metric {
	return &metric{name: "MAPE", mode: mode, fn: func(actual, predicted []float64) (float64, error) {
		var sum, n float64
		for i := range actual {
			if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) || actual[i] == 0 {
				continue
			}
			sum += math.Abs((actual[i] - predicted[i]) / actual[i])
			n++
		}
		if n == 0 {
			return 0, ErrNoPairs
		}
		return sum / n * 100, nil
	}}
}
