package engine

import (
	"tsbacktest/internal/dataset"
)

// MetricMode declares how a metric aggregates its values.
type MetricMode string

const (
	// MetricModePerSegment yields one scalar per segment. Backtesting
	// requires every metric to operate in this mode.
	MetricModePerSegment MetricMode = "per-segment"
	// MetricModeMacro yields a single scalar across all segments.
	MetricModeMacro MetricMode = "macro"
)

// Model is the forecasting collaborator. Clone must return a fully
// independent deep copy so that concurrently running folds never share
// mutable model state.
type Model interface {
	Clone() Model
	Fit(train *dataset.Dataset) error
	Forecast(future *dataset.Dataset) (*dataset.Dataset, error)
}

// Transform is a reversible feature transform. FitTransform is only ever
// called on train views, so held-out data can never leak into the fit.
// InverseTransform maps a forecast back into the original value space.
type Transform interface {
	Clone() Transform
	FitTransform(train *dataset.Dataset) error
	InverseTransform(ds *dataset.Dataset) error
}

// Metric compares a held-out view against a forecast.
type Metric interface {
	Name() string
	Mode() MetricMode
	Compute(actual, predicted *dataset.Dataset) (map[string]float64, error)
}
