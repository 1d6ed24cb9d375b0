package beat

import (
	"fmt"
	"math"
	"testing"
	"time"
)

func TestDue(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var tests = []struct {
		elapsed time.Duration
		bpm     float64
		beats   float64
		want    bool
	}{
		{0, 60, 4, false},
		{3999 * time.Millisecond, 60, 4, false},
		{4 * time.Second, 60, 4, true},
		{5 * time.Second, 60, 4, true},
		{time.Second, 120, 2, true},
		{999 * time.Millisecond, 120, 2, false},
		{1500 * time.Millisecond, 160, 4, true},
		{1499 * time.Millisecond, 160, 4, false},
		{0, 60, 0, true},
		{0, 0, 0, true},
		{time.Hour, 0, 4, false},
		{time.Hour, -10, 4, false},
		{time.Second, 1e-9, 4, false},
		{time.Hour, math.SmallestNonzeroFloat64, 1, false},
		{time.Second, 60, math.NaN(), false},
		{time.Second, 60, math.Inf(1), false},
		{time.Second, math.NaN(), 4, false},
		{time.Second, math.Inf(1), 4, false},
	}

	for _, tt := range tests {
		testname := fmt.Sprintf("%v at %v bpm %v beats", tt.elapsed, tt.bpm, tt.beats)
		t.Run(testname, func(t *testing.T) {
			got := Due(start.Add(tt.elapsed), start, tt.bpm, tt.beats)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDueExactBoundary(t *testing.T) {
	start := time.Unix(1000, 0)
	for _, bpm := range []float64{30, 60, 90, 128, 140, 174} {
		for _, beats := range []float64{1, 2, 4, 8, 16} {
			interval, ok := Interval(bpm, beats)
			if !ok {
				t.Fatalf("Interval(%v, %v) not ok", bpm, beats)
			}
			if !Due(start.Add(interval), start, bpm, beats) {
				t.Errorf("bpm %v beats %v: not due at exactly one interval", bpm, beats)
			}
			if Due(start.Add(interval-time.Nanosecond), start, bpm, beats) {
				t.Errorf("bpm %v beats %v: due before the interval elapsed", bpm, beats)
			}
		}
	}
}

func TestClockAdvance(t *testing.T) {
	start := time.Unix(0, 0)
	clock := NewClock(start)

	rotations := 0
	for ms := 0; ms <= 10000; ms += 33 {
		if clock.Advance(start.Add(time.Duration(ms)*time.Millisecond), 60, 4) {
			rotations++
		}
	}

	if rotations != 2 {
		t.Errorf("expected 2 rotations in 10s at 60bpm/4 beats, got: %d", rotations)
	}
}

func TestClockPicksUpTempoChange(t *testing.T) {
	start := time.Unix(0, 0)
	clock := NewClock(start)

	if clock.Advance(start.Add(2*time.Second), 60, 4) {
		t.Error("rotation fired before 4s at 60bpm")
	}
	// Doubling the tempo halves the bar, so the same instant is now due.
	if !clock.Advance(start.Add(2*time.Second), 120, 4) {
		t.Error("tempo change did not take effect on the next check")
	}
	if clock.Last != start.Add(2*time.Second) {
		t.Errorf("got last %v, want %v", clock.Last, start.Add(2*time.Second))
	}
}

func TestIntervalNeverOverflows(t *testing.T) {
	for _, bpm := range []float64{1e-3, 1e-6, 1e-9, 1e-300} {
		d, ok := Interval(bpm, 4)
		if ok && d < 0 {
			t.Errorf("Interval(%v, 4) = %v, a negative bar", bpm, d)
		}
	}

	// just inside the range of time.Duration
	d, ok := Interval(60, 9e9)
	if !ok || d <= 0 {
		t.Errorf("Interval(60, 9e9) = %v, %v", d, ok)
	}
}
