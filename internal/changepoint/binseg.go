package changepoint

import (
	"errors"
	"fmt"
	"math"
	"time"

	"tsbacktest/internal/dataset"
)

var ErrTooFewPoints = errors.New("not enough observed points to segment")

// Binseg detects mean shifts with greedy binary segmentation: it repeatedly
// splits the segment whose best split yields the largest drop in total
// squared error, until NBkps breakpoints are placed or no admissible split
// remains.
type Binseg struct {
	// NBkps is the number of breakpoints to search for.
	NBkps int
	// MinSegmentLen is the minimum number of points on each side of a split.
	MinSegmentLen int
}

func NewBinseg(nBkps int) *Binseg {
	return &Binseg{NBkps: nBkps, MinSegmentLen: 2}
}

// ChangePoints returns the timestamps starting each detected regime, in
// ascending order. NaN values are not allowed in the inspected column.
func (b *Binseg) ChangePoints(ds *dataset.Dataset, segment, column string) ([]time.Time, error) {
	values, err := ds.Series(segment, column)
	if err != nil {
		return nil, err
	}
	for i, value := range values {
		if math.IsNaN(value) {
			return nil, fmt.Errorf("segment %q column %q has a missing value at %v", segment, column, ds.Axis()[i])
		}
	}
	if len(values) < 2*b.MinSegmentLen {
		return nil, fmt.Errorf("%w: segment %q has %d points, %d required",
			ErrTooFewPoints, segment, len(values), 2*b.MinSegmentLen)
	}

	splits := b.segment(values)
	axis := ds.Axis()
	points := make([]time.Time, len(splits))
	for i, split := range splits {
		points[i] = axis[split]
	}
	return points, nil
}

// segment returns the split indices (each index is the first point of the
// right-hand part) in ascending order.
func (b *Binseg) segment(values []float64) []int {
	prefix := newPrefixSums(values)

	type span struct{ from, to int } // half-open [from, to)
	spans := []span{{0, len(values)}}
	var splits []int

	for len(splits) < b.NBkps {
		bestGain := 0.0
		bestSpan := -1
		bestSplit := -1
		for i, s := range spans {
			split, gain := bestSplitIn(prefix, s.from, s.to, b.MinSegmentLen)
			if split >= 0 && gain > bestGain {
				bestGain = gain
				bestSpan = i
				bestSplit = split
			}
		}
		if bestSpan < 0 {
			break
		}
		s := spans[bestSpan]
		spans[bestSpan] = span{s.from, bestSplit}
		spans = append(spans, span{bestSplit, s.to})
		splits = append(splits, bestSplit)
	}

	ordered := make([]int, len(splits))
	copy(ordered, splits)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j] < ordered[j-1]; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

// bestSplitIn finds the split of [from, to) with the largest squared-error
// gain, honoring the minimum segment length. Returns -1 when no split fits.
func bestSplitIn(prefix prefixSums, from, to, minLen int) (int, float64) {
	if to-from < 2*minLen {
		return -1, 0
	}
	parent := prefix.sse(from, to)
	bestSplit := -1
	bestGain := 0.0
	for split := from + minLen; split <= to-minLen; split++ {
		gain := parent - prefix.sse(from, split) - prefix.sse(split, to)
		if gain > bestGain {
			bestGain = gain
			bestSplit = split
		}
	}
	return bestSplit, bestGain
}

type prefixSums struct {
	sum   []float64
	sumSq []float64
}

func newPrefixSums(values []float64) prefixSums {
	p := prefixSums{
		sum:   make([]float64, len(values)+1),
		sumSq: make([]float64, len(values)+1),
	}
	for i, value := range values {
		p.sum[i+1] = p.sum[i] + value
		p.sumSq[i+1] = p.sumSq[i] + value*value
	}
	return p
}

// sse is the squared error of [from, to) around its own mean.
func (p prefixSums) sse(from, to int) float64 {
	n := float64(to - from)
	if n == 0 {
		return 0
	}
	sum := p.sum[to] - p.sum[from]
	sumSq := p.sumSq[to] - p.sumSq[from]
	return sumSq - sum*sum/n
}
