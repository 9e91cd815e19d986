package schedule

import (
	"fmt"
	"time"

	"laundry-booking-backend/internal/apperr"
	"laundry-booking-backend/internal/model"
)

// Failure codes returned by ValidateBooking. The caller decides the HTTP
// status and user-facing text.
const (
	CodeMachineOutOfOrder   = "machine_out_of_order"
	CodeMachineNotAvailable = "machine_not_available"
	CodeStartInPast         = "start_in_past"
	CodeOutsideHours        = "outside_operating_hours"
	CodeDurationTooShort    = "duration_too_short"
	CodeDurationTooLong     = "duration_too_long"
	CodeOverlap             = "overlapping_reservation"
)

// ValidateBooking checks a candidate [start, end) booking on machine
// against policy and the machine's ACTIVE reservations. It returns nil on
// success or a tagged *apperr.Error.
//
// Check order is part of the contract: resource-state checks come before
// temporal checks, which come before conflict checks, so an out-of-order
// machine never surfaces a confusing secondary "start in the past" reason.
func ValidateBooking(p Policy, now, start, end time.Time, machine *model.Machine, active []model.Reservation) error {
	if machine.OutOfOrder {
		return apperr.ResourceUnavailable(CodeMachineOutOfOrder, "machine is out of order")
	}
	if machine.Status != model.MachineAvailable {
		return apperr.ResourceUnavailable(CodeMachineNotAvailable,
			fmt.Sprintf("machine is %s", machine.Status))
	}

	if start.Before(now) {
		return apperr.InvalidRequest(CodeStartInPast, "start time is in the past")
	}
	open, close := p.OperatingWindow(start)
	if start.Before(open) || end.After(close) || !start.Before(end) {
		return apperr.InvalidRequest(CodeOutsideHours,
			fmt.Sprintf("booking must fall within %02d:00-%02d:00", p.OpenHour, p.CloseHour))
	}
	dur := durationMinutes(start, end)
	if dur < p.MinDurationMinutes {
		return apperr.InvalidRequest(CodeDurationTooShort,
			fmt.Sprintf("minimum booking is %d minutes", p.MinDurationMinutes))
	}
	if dur > p.MaxDurationMinutes {
		return apperr.InvalidRequest(CodeDurationTooLong,
			fmt.Sprintf("maximum booking is %d minutes", p.MaxDurationMinutes))
	}

	for i := range active {
		r := &active[i]
		if r.Status != model.ReservationActive {
			continue
		}
		if Conflicts(start, end, r.StartTime, r.EndTime) {
			return apperr.Conflict(CodeOverlap, "slot no longer available, please pick another")
		}
	}
	return nil
}
