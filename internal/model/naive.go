package model

import (
	"errors"
	"fmt"
	"math"

	"tsbacktest/internal/dataset"
	"tsbacktest/internal/engine"
)

// Global error declarations.
var (
	ErrNotFitted        = errors.New("model has not been fitted")
	ErrSegmentNotFitted = errors.New("segment was not seen during fit")
	ErrNoObservations   = errors.New("segment has no observed target values")
)

// Naive forecasts every future point as the last observed target value of
// the segment.
type Naive struct {
	last map[string]float64
}

func NewNaive() *Naive {
	return &Naive{}
}

func (m *Naive) Clone() engine.Model {
	clone := &Naive{}
	if m.last != nil {
		clone.last = make(map[string]float64, len(m.last))
		for segment, value := range m.last {
			clone.last[segment] = value
		}
	}
	return clone
}

func (m *Naive) Fit(train *dataset.Dataset) error {
	m.last = make(map[string]float64)
	for _, segment := range train.Segments() {
		values, err := train.Series(segment, dataset.TargetColumn)
		if err != nil {
			return err
		}
		found := false
		for i := len(values) - 1; i >= 0; i-- {
			if !math.IsNaN(values[i]) {
				m.last[segment] = values[i]
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("segment %q %w", segment, ErrNoObservations)
		}
	}
	return nil
}

// Forecast fills the target column of the future view in place and returns it.
func (m *Naive) Forecast(future *dataset.Dataset) (*dataset.Dataset, error) {
	if m.last == nil {
		return nil, ErrNotFitted
	}
	for _, segment := range future.Segments() {
		last, ok := m.last[segment]
		if !ok {
			return nil, fmt.Errorf("segment %q %w", segment, ErrSegmentNotFitted)
		}
		values, err := future.Series(segment, dataset.TargetColumn)
		if err != nil {
			return nil, err
		}
		for i := range values {
			values[i] = last
		}
	}
	return future, nil
}
