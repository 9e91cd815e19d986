package schedule

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry-booking-backend/internal/model"
)

func TestGenerateTimeSlots(t *testing.T) {
	p := DefaultPolicy()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	at := func(hour, min int) time.Time {
		return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
	}

	t.Run("covers the whole operating window in order", func(t *testing.T) {
		slots := GenerateTimeSlots(p, day, availableMachine(), nil, 0)

		// 06:00 to 23:00 in 30-minute steps is 34 slots.
		require.Len(t, slots, 34)
		assert.Equal(t, at(6, 0), slots[0].Start)
		assert.Equal(t, at(23, 0), slots[len(slots)-1].End)
		for i := 1; i < len(slots); i++ {
			assert.Equal(t, slots[i-1].End, slots[i].Start, "slots must be contiguous")
		}
		for _, s := range slots {
			assert.True(t, s.IsAvailable)
		}
	})

	t.Run("slots overlapping a reservation are unavailable, neighbors stay free", func(t *testing.T) {
		active := []model.Reservation{
			{MachineID: 1, StartTime: at(10, 0), EndTime: at(11, 0), Status: model.ReservationActive},
		}
		slots := GenerateTimeSlots(p, day, availableMachine(), active, 0)

		for _, s := range slots {
			switch {
			case s.Start.Equal(at(10, 0)) || s.Start.Equal(at(10, 30)):
				assert.False(t, s.IsAvailable, "slot at %v overlaps the reservation", s.Start)
			case s.Start.Equal(at(9, 30)) || s.Start.Equal(at(11, 0)):
				assert.True(t, s.IsAvailable, "adjacent slot at %v must stay free", s.Start)
			}
		}
	})

	t.Run("unschedulable machine yields no available slots", func(t *testing.T) {
		broken := &model.Machine{ID: 1, Status: model.MachineAvailable, OutOfOrder: true}
		slots := GenerateTimeSlots(p, day, broken, nil, 0)
		require.Len(t, slots, 34)
		for _, s := range slots {
			assert.False(t, s.IsAvailable)
		}
	})

	t.Run("custom slot granularity", func(t *testing.T) {
		slots := GenerateTimeSlots(p, day, availableMachine(), nil, 60)
		require.Len(t, slots, 17)
		assert.Equal(t, at(7, 0), slots[0].End)
	})
}

func TestDayAvailability(t *testing.T) {
	p := DefaultPolicy()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	at := func(hour, min int) time.Time {
		return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
	}

	t.Run("empty day is fully available", func(t *testing.T) {
		assert.Equal(t, 100.0, DayAvailability(p, day, availableMachine(), nil))
	})

	t.Run("one hour reserved out of a 17 hour window", func(t *testing.T) {
		active := []model.Reservation{
			{StartTime: at(10, 0), EndTime: at(11, 0), Status: model.ReservationActive},
		}
		got := DayAvailability(p, day, availableMachine(), active)
		assert.InDelta(t, 94.1176, got, 0.001)
	})

	t.Run("reservation spilling past closing is clipped", func(t *testing.T) {
		// Only the 22:00-23:00 portion falls inside the window.
		active := []model.Reservation{
			{StartTime: at(22, 0), EndTime: time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC), Status: model.ReservationActive},
		}
		got := DayAvailability(p, day, availableMachine(), active)
		assert.InDelta(t, float64(1020-60)/1020*100, got, 0.001)
	})

	t.Run("cancelled reservations do not reduce availability", func(t *testing.T) {
		active := []model.Reservation{
			{StartTime: at(10, 0), EndTime: at(11, 0), Status: model.ReservationCancelled},
		}
		assert.Equal(t, 100.0, DayAvailability(p, day, availableMachine(), active))
	})

	t.Run("unschedulable machine scores zero", func(t *testing.T) {
		broken := &model.Machine{Status: model.MachineOutOfOrder, OutOfOrder: true}
		assert.Equal(t, 0.0, DayAvailability(p, day, broken, nil))
	})
}

func TestNextAvailableSlot(t *testing.T) {
	p := DefaultPolicy()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	at := func(hour, min int) time.Time {
		return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
	}

	t.Run("finds first free slot after now", func(t *testing.T) {
		slot, ok := NextAvailableSlot(p, now, availableMachine(), nil, 60)
		require.True(t, ok)
		assert.Equal(t, at(9, 30), slot.Start)
		assert.Equal(t, at(10, 30), slot.End)
	})

	t.Run("skips over a busy stretch", func(t *testing.T) {
		active := []model.Reservation{
			{StartTime: at(9, 30), EndTime: at(11, 0), Status: model.ReservationActive},
		}
		slot, ok := NextAvailableSlot(p, now, availableMachine(), active, 60)
		require.True(t, ok)
		assert.Equal(t, at(11, 0), slot.Start)
	})

	t.Run("rolls over to the next day when today is full", func(t *testing.T) {
		open, close := p.OperatingWindow(now)
		active := []model.Reservation{
			{StartTime: open, EndTime: close, Status: model.ReservationActive},
		}
		slot, ok := NextAvailableSlot(p, now, availableMachine(), active, 60)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC), slot.Start)
	})

	t.Run("exhausted horizon is an empty result", func(t *testing.T) {
		broken := &model.Machine{Status: model.MachineAvailable, OutOfOrder: true}
		_, ok := NextAvailableSlot(p, now, broken, nil, 60)
		assert.False(t, ok)
	})
}

// Randomized consistency check: any slot reported available by
// GenerateTimeSlots must also pass ValidateBooking against the same
// reservation list, so the read path can never advertise a slot the write
// path would refuse.
func TestSlotAvailabilityMatchesValidation(t *testing.T) {
	p := DefaultPolicy()
	rng := rand.New(rand.NewSource(42))
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	now := day // midnight, before the window opens

	for trial := 0; trial < 50; trial++ {
		var active []model.Reservation
		for i := 0; i < rng.Intn(8); i++ {
			startMin := 6*60 + rng.Intn(15*60)
			length := 30 * (1 + rng.Intn(4))
			start := day.Add(time.Duration(startMin) * time.Minute)
			active = append(active, model.Reservation{
				MachineID: 1,
				StartTime: start,
				EndTime:   start.Add(time.Duration(length) * time.Minute),
				Status:    model.ReservationActive,
			})
		}

		machine := availableMachine()
		for _, s := range GenerateTimeSlots(p, day, machine, active, 0) {
			if !s.IsAvailable {
				continue
			}
			err := ValidateBooking(p, now, s.Start, s.End, machine, active)
			assert.NoError(t, err,
				"trial %d: slot %v shown available but validation rejected it", trial, s.Start)
		}
	}
}
