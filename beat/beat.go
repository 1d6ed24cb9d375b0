// Package beat decides when an asset rotation is due from a tempo and a bar length.
package beat

import (
	"math"
	"time"
)

// maxSeconds is the longest bar a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// Interval returns the length of one bar of `beats` beats at `bpm`.
// ok is false when no rotation is ever due: a tempo that is not positive, a bar length that is
// not a number, or a bar too long to measure.
func Interval(bpm, beats float64) (d time.Duration, ok bool) {
	if math.IsNaN(beats) || math.IsInf(beats, 1) {
		return 0, false
	}
	if beats <= 0 {
		return 0, true
	}
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return 0, false
	}
	secs := beats * 60 / bpm
	if secs >= maxSeconds {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// Due reports whether `now - last >= beats*60/bpm`.
// A non-positive bpm is never due; a bar length of 0 is always due.
// Tempos whose bar does not fit in a time.Duration are never due.
func Due(now, last time.Time, bpm, beats float64) bool {
	interval, ok := Interval(bpm, beats)
	if !ok {
		return false
	}
	return now.Sub(last) >= interval
}

// Clock is the time of the last rotation for one stage. It is owned by the frame loop.
type Clock struct {
	Last time.Time
}

// NewClock starts a clock at `start`, so the first rotation happens one bar later.
func NewClock(start time.Time) Clock {
	return Clock{Last: start}
}

// Advance checks Due against the current tempo and moves the clock to `now` when it fires.
func (c *Clock) Advance(now time.Time, bpm, beats float64) bool {
	if !Due(now, c.Last, bpm, beats) {
		return false
	}
	c.Last = now
	return true
}
