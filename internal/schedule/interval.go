// Package schedule implements the availability and conflict engine. It is
// pure: every function computes from the reservation list it is handed and
// performs no I/O, so callers can probe it speculatively.
package schedule

import "time"

// Conflicts reports whether the two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not conflict, so
// back-to-back bookings are allowed.
//
// This predicate is the single source of truth for overlap. Slot
// generation, booking validation and the store's transactional recheck all
// call it, so "shown as available" and "accepted as booking" cannot drift.
func Conflicts(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// overlapMinutes returns the length in minutes of the intersection of the
// two half-open intervals, or 0 if they do not intersect.
func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) int {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !start.Before(end) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// durationMinutes is minute-granularity interval length.
func durationMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}
