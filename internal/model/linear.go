package model

import (
	"fmt"
	"math"

	"tsbacktest/internal/dataset"
	"tsbacktest/internal/engine"
)

type lineCoefs struct {
	slope     float64
	intercept float64
	xMean     float64
}

// LinearPerSegment fits an independent linear trend over time for every
// segment and extrapolates it over the forecast horizon. A segment following
// alpha*t + b exactly is recovered exactly.
type LinearPerSegment struct {
	coefs map[string]lineCoefs
}

func NewLinearPerSegment() *LinearPerSegment {
	return &LinearPerSegment{}
}

func (m *LinearPerSegment) Clone() engine.Model {
	clone := &LinearPerSegment{}
	if m.coefs != nil {
		clone.coefs = make(map[string]lineCoefs, len(m.coefs))
		for segment, coefs := range m.coefs {
			clone.coefs[segment] = coefs
		}
	}
	return clone
}

func (m *LinearPerSegment) Fit(train *dataset.Dataset) error {
	m.coefs = make(map[string]lineCoefs)
	axis := train.Axis()
	for _, segment := range train.Segments() {
		values, err := train.Series(segment, dataset.TargetColumn)
		if err != nil {
			return err
		}

		var sumX, sumY, n float64
		for i, value := range values {
			if math.IsNaN(value) {
				continue
			}
			sumX += float64(axis[i].Unix())
			sumY += value
			n++
		}
		if n == 0 {
			return fmt.Errorf("segment %q %w", segment, ErrNoObservations)
		}
		xMean := sumX / n
		yMean := sumY / n

		var cov, varX float64
		for i, value := range values {
			if math.IsNaN(value) {
				continue
			}
			dx := float64(axis[i].Unix()) - xMean
			cov += dx * (value - yMean)
			varX += dx * dx
		}
		coefs := lineCoefs{intercept: yMean, xMean: xMean}
		if varX != 0 {
			coefs.slope = cov / varX
		}
		m.coefs[segment] = coefs
	}
	return nil
}

// Forecast fills the target column of the future view in place and returns it.
func (m *LinearPerSegment) Forecast(future *dataset.Dataset) (*dataset.Dataset, error) {
	if m.coefs == nil {
		return nil, ErrNotFitted
	}
	axis := future.Axis()
	for _, segment := range future.Segments() {
		coefs, ok := m.coefs[segment]
		if !ok {
			return nil, fmt.Errorf("segment %q %w", segment, ErrSegmentNotFitted)
		}
		values, err := future.Series(segment, dataset.TargetColumn)
		if err != nil {
			return nil, err
		}
		for i := range values {
			values[i] = coefs.slope*(float64(axis[i].Unix())-coefs.xMean) + coefs.intercept
		}
	}
	return future, nil
}
