package changepoint

import (
	"testing"
	"time"

	"tsbacktest/types"
)

var base = time.UnixMilli(0).UTC()

func newTime(i int) time.Time { return base.Add(time.Duration(i) * time.Minute) }

func checkIntervals(t *testing.T, got []types.Interval, want []types.Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d intervals, want %d", len(got), len(want))
	}
	for i := range got {
		if !timePtrEqual(got[i].Start, want[i].Start) || !timePtrEqual(got[i].End, want[i].End) {
			t.Errorf("interval %d = %s, want %s", i, formatInterval(got[i]), formatInterval(want[i]))
		}
	}
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatInterval(iv types.Interval) string {
	s, e := "-inf", "+inf"
	if iv.Start != nil {
		s = iv.Start.Format(time.RFC3339)
	}
	if iv.End != nil {
		e = iv.End.Format(time.RFC3339)
	}
	return "[" + s + ", " + e + ")"
}

func ptr(t time.Time) *time.Time { return &t }

func TestBuildIntervals(t *testing.T) {
	tests := []struct {
		name   string
		points []time.Time
		want   []types.Interval
	}{
		{
			name:   "no points covers everything",
			points: nil,
			want:   []types.Interval{{Start: nil, End: nil}},
		},
		{
			name:   "single point",
			points: []time.Time{newTime(5)},
			want: []types.Interval{
				{Start: nil, End: ptr(newTime(5))},
				{Start: ptr(newTime(5)), End: nil},
			},
		},
		{
			name:   "unsorted points are ordered",
			points: []time.Time{newTime(5), newTime(2), newTime(8)},
			want: []types.Interval{
				{Start: nil, End: ptr(newTime(2))},
				{Start: ptr(newTime(2)), End: ptr(newTime(5))},
				{Start: ptr(newTime(5)), End: ptr(newTime(8))},
				{Start: ptr(newTime(8)), End: nil},
			},
		},
		{
			name:   "duplicates collapse",
			points: []time.Time{newTime(3), newTime(3), newTime(7)},
			want: []types.Interval{
				{Start: nil, End: ptr(newTime(3))},
				{Start: ptr(newTime(3)), End: ptr(newTime(7))},
				{Start: ptr(newTime(7)), End: nil},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkIntervals(t, BuildIntervals(tt.points), tt.want)
		})
	}
}

func TestBuildIntervals_EveryTimestampCoveredOnce(t *testing.T) {
	points := []time.Time{newTime(3), newTime(7), newTime(12)}
	intervals := BuildIntervals(points)

	for i := 0; i < 20; i++ {
		ts := newTime(i)
		hits := 0
		for _, iv := range intervals {
			if iv.Contains(ts) {
				hits++
			}
		}
		if hits != 1 {
			t.Errorf("timestamp %v covered by %d intervals, want exactly 1", ts, hits)
		}
	}
}
