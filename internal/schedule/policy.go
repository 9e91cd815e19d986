package schedule

import "time"

// Policy captures the fixed booking rules: the daily operating window,
// slot granularity, duration bounds and how far ahead suggestion search
// looks.
type Policy struct {
	OpenHour           int
	CloseHour          int
	SlotMinutes        int
	MinDurationMinutes int
	MaxDurationMinutes int
	SearchHorizonDays  int
}

// DefaultPolicy returns the standard operating policy: 06:00-23:00,
// 30-minute slots, bookings between 30 and 180 minutes, 7-day search.
func DefaultPolicy() Policy {
	return Policy{
		OpenHour:           6,
		CloseHour:          23,
		SlotMinutes:        30,
		MinDurationMinutes: 30,
		MaxDurationMinutes: 180,
		SearchHorizonDays:  7,
	}
}

// OperatingWindow returns the half-open operating interval for the day
// containing t, in t's location.
func (p Policy) OperatingWindow(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	open := time.Date(y, m, d, p.OpenHour, 0, 0, 0, t.Location())
	close := time.Date(y, m, d, p.CloseHour, 0, 0, 0, t.Location())
	return open, close
}

// OperatingMinutes is the length of the daily operating window.
func (p Policy) OperatingMinutes() int {
	return (p.CloseHour - p.OpenHour) * 60
}
