package engine

import (
	"sort"
	"time"

	"tsbacktest/internal/dataset"
)

// AggregatedFold marks metric rows averaged over folds, where the fold
// column no longer applies.
const AggregatedFold = -1

type ForecastRow struct {
	Timestamp  time.Time
	Segment    string
	Target     float64
	FoldNumber int
}

type MetricsRow struct {
	Segment    string
	FoldNumber int
	// Scores maps metric name -> value.
	Scores map[string]float64
}

type FoldInfoRow struct {
	FoldNumber int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

func (b *Backtester) foldNumbers() []int {
	numbers := make([]int, 0, len(b.folds))
	for number := range b.folds {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers
}

// GetForecasts stacks every fold's forecast rows, tagged with the fold
// number. Rows are grouped by fold, then by segment, then by timestamp;
// there is no global timestamp sort.
func (b *Backtester) GetForecasts() []ForecastRow {
	var rows []ForecastRow
	for _, number := range b.foldNumbers() {
		forecast := b.folds[number].Forecast
		for _, segment := range forecast.Segments() {
			values, err := forecast.Series(segment, dataset.TargetColumn)
			if err != nil {
				continue
			}
			for i, ts := range forecast.Axis() {
				rows = append(rows, ForecastRow{
					Timestamp:  ts,
					Segment:    segment,
					Target:     values[i],
					FoldNumber: number,
				})
			}
		}
	}
	return rows
}

// GetMetrics returns per-segment metric values for every fold, sorted by
// (segment, fold number). With aggregate set, values are averaged over folds
// per segment and the fold number is dropped.
func (b *Backtester) GetMetrics(aggregate bool) []MetricsRow {
	var rows []MetricsRow
	for _, number := range b.foldNumbers() {
		fold := b.folds[number]
		bySegment := make(map[string]map[string]float64)
		for metricName, values := range fold.Metrics {
			for segment, value := range values {
				if bySegment[segment] == nil {
					bySegment[segment] = make(map[string]float64)
				}
				bySegment[segment][metricName] = value
			}
		}
		for segment, scores := range bySegment {
			rows = append(rows, MetricsRow{Segment: segment, FoldNumber: number, Scores: scores})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Segment != rows[j].Segment {
			return rows[i].Segment < rows[j].Segment
		}
		return rows[i].FoldNumber < rows[j].FoldNumber
	})

	if aggregate {
		rows = aggregateMetrics(rows)
	}
	return rows
}

func aggregateMetrics(rows []MetricsRow) []MetricsRow {
	sums := make(map[string]map[string]float64)
	counts := make(map[string]map[string]int)
	segments := make([]string, 0)
	for _, row := range rows {
		if sums[row.Segment] == nil {
			sums[row.Segment] = make(map[string]float64)
			counts[row.Segment] = make(map[string]int)
			segments = append(segments, row.Segment)
		}
		for metricName, value := range row.Scores {
			sums[row.Segment][metricName] += value
			counts[row.Segment][metricName]++
		}
	}
	sort.Strings(segments)

	out := make([]MetricsRow, 0, len(segments))
	for _, segment := range segments {
		scores := make(map[string]float64, len(sums[segment]))
		for metricName, sum := range sums[segment] {
			scores[metricName] = sum / float64(counts[segment][metricName])
		}
		out = append(out, MetricsRow{Segment: segment, FoldNumber: AggregatedFold, Scores: scores})
	}
	return out
}

// GetFoldInfo returns one row per fold with the four timerange boundaries.
func (b *Backtester) GetFoldInfo() []FoldInfoRow {
	rows := make([]FoldInfoRow, 0, len(b.folds))
	for _, number := range b.foldNumbers() {
		fold := b.folds[number]
		rows = append(rows, FoldInfoRow{
			FoldNumber: number,
			TrainStart: fold.TrainStart,
			TrainEnd:   fold.TrainEnd,
			TestStart:  fold.TestStart,
			TestEnd:    fold.TestEnd,
		})
	}
	return rows
}
