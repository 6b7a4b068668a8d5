package transform

import (
	"errors"
	"fmt"
	"math"
	"time"

	"tsbacktest/internal/changepoint"
	"tsbacktest/internal/dataset"
	"tsbacktest/internal/engine"
	"tsbacktest/types"
)

var (
	ErrNotFitted        = errors.New("transform has not been fitted")
	ErrSegmentNotFitted = errors.New("segment was not seen during fit")
)

// lineModel is a linear trend over one interval, centered on the mean
// timestamp of its fitting window to keep the regression well-conditioned.
type lineModel struct {
	slope     float64
	intercept float64
	xMean     float64
}

func (m lineModel) valueAt(ts time.Time) float64 {
	return m.slope*(float64(ts.Unix())-m.xMean) + m.intercept
}

type segmentTrend struct {
	intervals []types.Interval
	models    []lineModel
}

// TrendTransform removes a piecewise linear trend from one column. Each
// segment is split into stable intervals by a change-point detector fitted on
// the train view only; a separate line is fitted and subtracted per interval.
// InverseTransform adds the trend back, with timestamps past the train range
// falling into the unbounded-right interval.
type TrendTransform struct {
	column   string
	detector changepoint.Detector
	trends   map[string]segmentTrend
}

func NewTrendTransform(column string, detector changepoint.Detector) *TrendTransform {
	return &TrendTransform{column: column, detector: detector}
}

// Clone returns an independent copy. The fitted state is deep-copied; the
// detector is shared, since detectors hold configuration only.
func (t *TrendTransform) Clone() engine.Transform {
	clone := &TrendTransform{column: t.column, detector: t.detector}
	if t.trends != nil {
		clone.trends = make(map[string]segmentTrend, len(t.trends))
		for segment, trend := range t.trends {
			intervals := make([]types.Interval, len(trend.intervals))
			copy(intervals, trend.intervals)
			models := make([]lineModel, len(trend.models))
			copy(models, trend.models)
			clone.trends[segment] = segmentTrend{intervals: intervals, models: models}
		}
	}
	return clone
}

// FitTransform detects intervals on the train view, fits one line per
// interval and subtracts the fitted trend from the column in place.
func (t *TrendTransform) FitTransform(train *dataset.Dataset) error {
	t.trends = make(map[string]segmentTrend)
	axis := train.Axis()
	for _, segment := range train.Segments() {
		values, err := train.Series(segment, t.column)
		if err != nil {
			return err
		}
		intervals, err := changepoint.Intervals(t.detector, train, segment, t.column)
		if err != nil {
			return fmt.Errorf("detect change points: %w", err)
		}

		models := make([]lineModel, len(intervals))
		for i, interval := range intervals {
			models[i] = fitLine(axis, values, interval)
		}
		t.trends[segment] = segmentTrend{intervals: intervals, models: models}

		for i, ts := range axis {
			if math.IsNaN(values[i]) {
				continue
			}
			model, ok := modelFor(t.trends[segment], ts)
			if ok {
				values[i] -= model.valueAt(ts)
			}
		}
	}
	return nil
}

// InverseTransform adds the fitted trend back onto the column, typically on
// a forecast over future timestamps.
func (t *TrendTransform) InverseTransform(ds *dataset.Dataset) error {
	if t.trends == nil {
		return ErrNotFitted
	}
	axis := ds.Axis()
	for _, segment := range ds.Segments() {
		trend, ok := t.trends[segment]
		if !ok {
			return fmt.Errorf("segment %q %w", segment, ErrSegmentNotFitted)
		}
		values, err := ds.Series(segment, t.column)
		if err != nil {
			return err
		}
		for i, ts := range axis {
			if math.IsNaN(values[i]) {
				continue
			}
			model, ok := modelFor(trend, ts)
			if ok {
				values[i] += model.valueAt(ts)
			}
		}
	}
	return nil
}

func modelFor(trend segmentTrend, ts time.Time) (lineModel, bool) {
	for i, interval := range trend.intervals {
		if interval.Contains(ts) {
			return trend.models[i], true
		}
	}
	return lineModel{}, false
}

// fitLine runs ordinary least squares on the observed points of one
// interval. With fewer than two points, or no spread in time, the line
// degrades to the interval mean.
func fitLine(axis []time.Time, values []float64, interval types.Interval) lineModel {
	var sumX, sumY float64
	var n float64
	for i, ts := range axis {
		if !interval.Contains(ts) || math.IsNaN(values[i]) {
			continue
		}
		sumX += float64(ts.Unix())
		sumY += values[i]
		n++
	}
	if n == 0 {
		return lineModel{}
	}
	xMean := sumX / n
	yMean := sumY / n

	var cov, varX float64
	for i, ts := range axis {
		if !interval.Contains(ts) || math.IsNaN(values[i]) {
			continue
		}
		dx := float64(ts.Unix()) - xMean
		cov += dx * (values[i] - yMean)
		varX += dx * dx
	}
	if varX == 0 {
		return lineModel{intercept: yMean, xMean: xMean}
	}
	return lineModel{slope: cov / varX, intercept: yMean, xMean: xMean}
}
