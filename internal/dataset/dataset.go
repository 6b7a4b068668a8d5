package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// TargetColumn is the feature every segment must carry to be forecast.
const TargetColumn = "target"

// Global error declarations.
var (
	ErrEmptyAxis       = errors.New("axis must contain at least one timestamp")
	ErrIrregularAxis   = errors.New("axis must be ordered and gap-free")
	ErrUnknownFreq     = errors.New("axis frequency is unknown")
	ErrLengthMismatch  = errors.New("series length does not match axis length")
	ErrSegmentNotFound = errors.New("segment not found in dataset")
	ErrColumnNotFound  = errors.New("column not found in dataset")
	ErrInvalidSplit    = errors.New("invalid train/test boundaries")
)

// Dataset is an in-memory panel of per-segment feature series aligned to one
// shared, ordered, gap-free time axis. Missing values are represented as NaN.
type Dataset struct {
	axis    []time.Time
	freq    time.Duration
	columns map[string]map[string][]float64 // segment -> column -> values
}

// New builds a dataset over the given axis. The axis must be strictly
// increasing with a constant step; the step is inferred from the first two
// points. A single-point axis is accepted but cannot be extended with
// MakeFuture.
func New(axis []time.Time) (*Dataset, error) {
	if len(axis) == 0 {
		return nil, ErrEmptyAxis
	}
	var freq time.Duration
	if len(axis) > 1 {
		freq = axis[1].Sub(axis[0])
		if freq <= 0 {
			return nil, ErrIrregularAxis
		}
		for i := 2; i < len(axis); i++ {
			if axis[i].Sub(axis[i-1]) != freq {
				return nil, fmt.Errorf("%w: gap between %v and %v", ErrIrregularAxis, axis[i-1], axis[i])
			}
		}
	}
	cp := make([]time.Time, len(axis))
	copy(cp, axis)
	return &Dataset{
		axis:    cp,
		freq:    freq,
		columns: make(map[string]map[string][]float64),
	}, nil
}

func newDerived(axis []time.Time, freq time.Duration) *Dataset {
	return &Dataset{
		axis:    axis,
		freq:    freq,
		columns: make(map[string]map[string][]float64),
	}
}

// AddSeries attaches a feature series for a segment. The values slice is
// stored as-is and must be aligned with the axis.
func (d *Dataset) AddSeries(segment, column string, values []float64) error {
	if len(values) != len(d.axis) {
		return fmt.Errorf("%w: segment %q column %q has %d values for %d timestamps",
			ErrLengthMismatch, segment, column, len(values), len(d.axis))
	}
	cols, ok := d.columns[segment]
	if !ok {
		cols = make(map[string][]float64)
		d.columns[segment] = cols
	}
	cols[column] = values
	return nil
}

// Series returns the live value slice for a segment column. Mutating the
// returned slice mutates the dataset.
func (d *Dataset) Series(segment, column string) ([]float64, error) {
	cols, ok := d.columns[segment]
	if !ok {
		return nil, fmt.Errorf("segment %q %w", segment, ErrSegmentNotFound)
	}
	values, ok := cols[column]
	if !ok {
		return nil, fmt.Errorf("segment %q column %q %w", segment, column, ErrColumnNotFound)
	}
	return values, nil
}

// Segments returns segment names in sorted order.
func (d *Dataset) Segments() []string {
	segments := make([]string, 0, len(d.columns))
	for segment := range d.columns {
		segments = append(segments, segment)
	}
	sort.Strings(segments)
	return segments
}

func (d *Dataset) Axis() []time.Time      { return d.axis }
func (d *Dataset) Freq() time.Duration    { return d.freq }
func (d *Dataset) Len() int               { return len(d.axis) }
func (d *Dataset) StartTime() time.Time   { return d.axis[0] }
func (d *Dataset) EndTime() time.Time     { return d.axis[len(d.axis)-1] }

func (d *Dataset) indexOf(ts time.Time) (int, bool) {
	i := sort.Search(len(d.axis), func(i int) bool { return !d.axis[i].Before(ts) })
	if i < len(d.axis) && d.axis[i].Equal(ts) {
		return i, true
	}
	return 0, false
}

// TrainTestSplit cuts the dataset into two disjoint views with deep-copied
// values, so fitting transforms on the train view never touches the parent.
// All four boundaries are inclusive and must be existing axis points, with the
// test window immediately following the train window.
func (d *Dataset) TrainTestSplit(trainStart, trainEnd, testStart, testEnd time.Time) (*Dataset, *Dataset, error) {
	trainFrom, ok := d.indexOf(trainStart)
	if !ok {
		return nil, nil, fmt.Errorf("%w: train start %v not on axis", ErrInvalidSplit, trainStart)
	}
	trainTo, ok := d.indexOf(trainEnd)
	if !ok {
		return nil, nil, fmt.Errorf("%w: train end %v not on axis", ErrInvalidSplit, trainEnd)
	}
	testFrom, ok := d.indexOf(testStart)
	if !ok {
		return nil, nil, fmt.Errorf("%w: test start %v not on axis", ErrInvalidSplit, testStart)
	}
	testTo, ok := d.indexOf(testEnd)
	if !ok {
		return nil, nil, fmt.Errorf("%w: test end %v not on axis", ErrInvalidSplit, testEnd)
	}
	if trainFrom > trainTo || testFrom > testTo || testFrom != trainTo+1 {
		return nil, nil, fmt.Errorf("%w: train [%d,%d] test [%d,%d]", ErrInvalidSplit, trainFrom, trainTo, testFrom, testTo)
	}
	return d.slice(trainFrom, trainTo+1), d.slice(testFrom, testTo+1), nil
}

// slice deep-copies rows [from, to) into a new dataset.
func (d *Dataset) slice(from, to int) *Dataset {
	out := newDerived(d.axis[from:to:to], d.freq)
	for segment, cols := range d.columns {
		for column, values := range cols {
			cp := make([]float64, to-from)
			copy(cp, values[from:to])
			// Error impossible: lengths match by construction.
			_ = out.AddSeries(segment, column, cp)
		}
	}
	return out
}

// Tail returns a deep-copied view over the last n rows.
func (d *Dataset) Tail(n int) (*Dataset, error) {
	if n < 1 || n > len(d.axis) {
		return nil, fmt.Errorf("%w: tail of %d rows from %d", ErrInvalidSplit, n, len(d.axis))
	}
	return d.slice(len(d.axis)-n, len(d.axis)), nil
}

// MakeFuture builds the forecast base view: steps timestamps immediately
// following this dataset's axis at its frequency, with an unset (NaN) target
// series for every segment.
func (d *Dataset) MakeFuture(steps int) (*Dataset, error) {
	if steps < 1 {
		return nil, fmt.Errorf("future must span at least one step, %d given", steps)
	}
	if d.freq == 0 {
		return nil, ErrUnknownFreq
	}
	axis := make([]time.Time, steps)
	for i := range axis {
		axis[i] = d.EndTime().Add(time.Duration(i+1) * d.freq)
	}
	out := newDerived(axis, d.freq)
	for _, segment := range d.Segments() {
		values := make([]float64, steps)
		for i := range values {
			values[i] = math.NaN()
		}
		_ = out.AddSeries(segment, TargetColumn, values)
	}
	return out, nil
}
