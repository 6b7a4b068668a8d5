package types

import "time"

// Interval is a half-open [Start, End) segment of the time axis. A nil Start
// means the interval is unbounded on the left, a nil End unbounded on the right.
type Interval struct {
	Start *time.Time
	End   *time.Time
}

func (i Interval) Contains(ts time.Time) bool {
	if i.Start != nil && ts.Before(*i.Start) {
		return false
	}
	if i.End != nil && !ts.Before(*i.End) {
		return false
	}
	return true
}
