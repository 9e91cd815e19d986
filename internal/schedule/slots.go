package schedule

import (
	"time"

	"laundry-booking-backend/internal/model"
)

// Slot is one bookable time window within the operating day.
type Slot struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	IsAvailable bool      `json:"isAvailable"`
}

// GenerateTimeSlots builds the ordered slot sequence covering the
// machine's operating window on the day containing day. A slot is
// available iff the machine is schedulable and the slot overlaps no ACTIVE
// reservation. slotMinutes <= 0 falls back to the policy granularity.
func GenerateTimeSlots(p Policy, day time.Time, machine *model.Machine, active []model.Reservation, slotMinutes int) []Slot {
	if slotMinutes <= 0 {
		slotMinutes = p.SlotMinutes
	}
	open, close := p.OperatingWindow(day)
	step := time.Duration(slotMinutes) * time.Minute

	var slots []Slot
	for t := open; t.Add(step).Compare(close) <= 0; t = t.Add(step) {
		end := t.Add(step)
		available := machine.Schedulable()
		if available {
			for i := range active {
				r := &active[i]
				if r.Status != model.ReservationActive {
					continue
				}
				if Conflicts(t, end, r.StartTime, r.EndTime) {
					available = false
					break
				}
			}
		}
		slots = append(slots, Slot{Start: t, End: end, IsAvailable: available})
	}
	return slots
}

// DayAvailability returns the percentage of the operating window on the
// day containing day that is not covered by ACTIVE reservations, clamped
// to [0,100]. Reservations reaching outside the window are clipped before
// summing. An unschedulable machine scores 0 regardless of reservations.
func DayAvailability(p Policy, day time.Time, machine *model.Machine, active []model.Reservation) float64 {
	if !machine.Schedulable() {
		return 0
	}
	operating := p.OperatingMinutes()
	if operating <= 0 {
		return 0
	}

	open, close := p.OperatingWindow(day)
	reserved := 0
	for i := range active {
		r := &active[i]
		if r.Status != model.ReservationActive {
			continue
		}
		reserved += overlapMinutes(open, close, r.StartTime, r.EndTime)
	}

	pct := float64(operating-reserved) / float64(operating) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// NextAvailableSlot searches forward day by day, up to the policy horizon,
// for the first slot of the requested duration that ValidateBooking would
// accept. The second return value is false when the horizon is exhausted;
// that is an empty result, not an error.
func NextAvailableSlot(p Policy, now time.Time, machine *model.Machine, active []model.Reservation, durationMin int) (Slot, bool) {
	if durationMin <= 0 {
		durationMin = p.SlotMinutes
	}
	length := time.Duration(durationMin) * time.Minute
	step := time.Duration(p.SlotMinutes) * time.Minute

	for d := 0; d < p.SearchHorizonDays; d++ {
		day := now.AddDate(0, 0, d)
		open, close := p.OperatingWindow(day)
		for t := open; !t.Add(length).After(close); t = t.Add(step) {
			if !t.After(now) {
				continue
			}
			if err := ValidateBooking(p, now, t, t.Add(length), machine, active); err == nil {
				return Slot{Start: t, End: t.Add(length), IsAvailable: true}, true
			}
		}
	}
	return Slot{}, false
}
