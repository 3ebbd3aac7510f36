package model

import "time"

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Buffered extends the end of the interval by buffer.
func (i Interval) Buffered(buffer time.Duration) Interval {
	return Interval{Start: i.Start, End: i.End.Add(buffer)}
}

// ConflictsWith reports whether the buffered forms of both intervals overlap.
// Two intervals are compatible when one's end plus buffer is at or before the
// other's start.
func (i Interval) ConflictsWith(other Interval, buffer time.Duration) bool {
	a, b := i.Buffered(buffer), other.Buffered(buffer)
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// SearchWindow widens i by buffer on both sides. An existing interval can only
// conflict with i if it ends after the window's Start and starts before its End.
func (i Interval) SearchWindow(buffer time.Duration) Interval {
	return Interval{Start: i.Start.Add(-buffer), End: i.End.Add(buffer)}
}
