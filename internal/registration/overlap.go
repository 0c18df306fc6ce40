package registration

import "time"

// Interval is a half-open time window [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start is strictly before End.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals intersect. Back-to-back windows,
// where one ends exactly when the other starts, do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// AnyOverlap reports whether candidate intersects any of the intervals.
func AnyOverlap(candidate Interval, others []Interval) bool {
	for _, o := range others {
		if Overlaps(candidate, o) {
			return true
		}
	}
	return false
}
