package engine

import (
	"fmt"
	"time"

	"tsbacktest/internal/dataset"
)

// FoldResult is the self-contained outcome of one fold. It is owned by the
// backtester once runFold returns and is never mutated afterwards.
type FoldResult struct {
	FoldNumber int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
	Forecast   *dataset.Dataset
	// Metrics maps metric name -> segment -> value.
	Metrics map[string]map[string]float64
}

// runFold fits and evaluates one fold. The model and every transform are
// deep-copied first, so a running fold shares no mutable state with the
// templates or with other folds.
func (b *Backtester) runFold(train, test *dataset.Dataset, transforms []Transform, foldNumber int) (FoldResult, error) {
	result := FoldResult{
		FoldNumber: foldNumber,
		TrainStart: train.StartTime(),
		TrainEnd:   train.EndTime(),
		TestStart:  test.StartTime(),
		TestEnd:    test.EndTime(),
	}

	fitted := make([]Transform, len(transforms))
	for i, transform := range transforms {
		fitted[i] = transform.Clone()
		if err := fitted[i].FitTransform(train); err != nil {
			return FoldResult{}, fmt.Errorf("fit transform: %w", err)
		}
	}

	model := b.model.Clone()
	if err := model.Fit(train); err != nil {
		return FoldResult{}, fmt.Errorf("fit model: %w", err)
	}

	future, err := train.MakeFuture(b.horizon)
	if err != nil {
		return FoldResult{}, fmt.Errorf("make future: %w", err)
	}
	forecast, err := model.Forecast(future)
	if err != nil {
		return FoldResult{}, fmt.Errorf("forecast: %w", err)
	}

	// Undo the transforms in reverse order so the forecast is comparable
	// with the raw held-out values.
	for i := len(fitted) - 1; i >= 0; i-- {
		if err := fitted[i].InverseTransform(forecast); err != nil {
			return FoldResult{}, fmt.Errorf("inverse transform: %w", err)
		}
	}
	result.Forecast = forecast

	result.Metrics = make(map[string]map[string]float64, len(b.metrics))
	for _, metric := range b.metrics {
		values, err := metric.Compute(test, forecast)
		if err != nil {
			return FoldResult{}, fmt.Errorf("compute %s: %w", metric.Name(), err)
		}
		result.Metrics[metric.Name()] = values
	}

	return result, nil
}
