package changepoint

import (
	"sort"
	"time"

	"tsbacktest/internal/dataset"
	"tsbacktest/types"
)

// Detector finds change points within one segment column. Implementations
// must be safe to share between cloned transforms, so they should hold
// configuration only.
type Detector interface {
	ChangePoints(ds *dataset.Dataset, segment, column string) ([]time.Time, error)
}

// BuildIntervals turns a set of boundary points into the ordered list of
// contiguous intervals covering the whole axis. The first interval is
// unbounded on the left and the last on the right. Duplicate boundaries are
// collapsed before pairing, so zero-length intervals never occur.
func BuildIntervals(points []time.Time) []types.Interval {
	sorted := make([]time.Time, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	deduped := sorted[:0]
	for i, point := range sorted {
		if i == 0 || !point.Equal(deduped[len(deduped)-1]) {
			deduped = append(deduped, point)
		}
	}

	intervals := make([]types.Interval, 0, len(deduped)+1)
	var left *time.Time
	for i := range deduped {
		right := deduped[i]
		intervals = append(intervals, types.Interval{Start: left, End: &right})
		left = &right
	}
	intervals = append(intervals, types.Interval{Start: left, End: nil})
	return intervals
}

// Intervals composes a detector with BuildIntervals: it finds the change
// points of a segment column and returns the stable intervals between them.
func Intervals(detector Detector, ds *dataset.Dataset, segment, column string) ([]types.Interval, error) {
	points, err := detector.ChangePoints(ds, segment, column)
	if err != nil {
		return nil, err
	}
	return BuildIntervals(points), nil
}
