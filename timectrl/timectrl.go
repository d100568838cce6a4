// Package timectrl holds the mission-time arithmetic shared by trajectory
// sampling and conflict detection. Times are seconds on a common mission
// clock; no wall-clock time is involved.
package timectrl

import "math"

// Window is a closed interval [Start, End] of mission time.
type Window struct {
	Start float64
	End   float64
}

// Duration returns End - Start. It is negative for inverted windows.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// Empty reports whether the window has no positive extent.
func (w Window) Empty() bool {
	return w.Start >= w.End
}

// Contains reports whether t lies inside the closed window.
func (w Window) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

// Overlap returns the intersection of a and b. The boolean is false when
// the intersection is empty or degenerate (start >= end).
func Overlap(a, b Window) (Window, bool) {
	w := Window{
		Start: math.Max(a.Start, b.Start),
		End:   math.Min(a.End, b.End),
	}
	if w.Empty() {
		return w, false
	}
	return w, true
}

// SampleCount picks the number of sampling intervals for a window of the
// given duration: duration/resolution truncated toward zero, clamped up to
// min. A non-positive resolution or a NaN quotient yields min; very large
// quotients saturate at math.MaxInt32.
func SampleCount(duration, resolution float64, min int) int {
	if resolution <= 0 {
		return min
	}
	q := duration / resolution
	switch {
	case math.IsNaN(q) || q < float64(min):
		return min
	case q >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(q)
}

// At returns the i-th of n+1 evenly spaced times across the window. At(0, n)
// is Start and At(n, n) is exactly End. n <= 0 is treated as 1.
func (w Window) At(i, n int) float64 {
	if n <= 0 {
		n = 1
	}
	if i >= n {
		return w.End
	}
	return w.Start + float64(i)*(w.End-w.Start)/float64(n)
}

// Steps returns n+1 evenly spaced times across the window, inclusive of
// both endpoints. n <= 0 is treated as 1. Callers sampling large counts
// should iterate with At instead.
func (w Window) Steps(n int) []float64 {
	if n <= 0 {
		n = 1
	}
	out := make([]float64, n+1)
	for i := range out {
		out[i] = w.At(i, n)
	}
	return out
}
