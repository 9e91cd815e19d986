package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-booking-backend/internal/apperr"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/schedule"
)

// lockMachine serializes concurrent bookings on one machine. Row locking
// is only issued on dialects that support SELECT ... FOR UPDATE; SQLite
// transactions are single-writer already.
func lockMachine(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// CreateReservation validates the candidate interval against policy and
// the machine's ACTIVE reservations and inserts it, all inside one
// transaction. Whoever commits first wins; the loser gets a Conflict.
func (s *gormStore) CreateReservation(ctx context.Context, userID, machineID int64, start, end time.Time, notes string) (*model.Reservation, error) {
	var created model.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var machine model.Machine
		if err := lockMachine(tx).First(&machine, machineID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("machine_not_found", "machine not found")
			}
			return err
		}

		var active []model.Reservation
		if err := tx.Where("machine_id = ? AND status = ?", machineID, model.ReservationActive).
			Find(&active).Error; err != nil {
			return err
		}

		now := time.Now().In(start.Location())
		if err := schedule.ValidateBooking(s.opts.Policy, now, start, end, &machine, active); err != nil {
			return err
		}

		created = model.Reservation{
			UserID:          userID,
			MachineID:       machineID,
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: int(end.Sub(start) / time.Minute),
			Status:          model.ReservationActive,
			Notes:           notes,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *gormStore) ListUserReservations(ctx context.Context, userID int64) ([]model.Reservation, error) {
	var reservations []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_time DESC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// loadOwnedActive fetches a reservation and enforces the ownership and
// ACTIVE-status preconditions shared by update and cancel. NotFound and
// Unauthorized are reported distinctly.
func loadOwnedActive(tx *gorm.DB, id, userID int64) (*model.Reservation, error) {
	var r model.Reservation
	if err := tx.First(&r, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("reservation_not_found", "reservation not found")
		}
		return nil, err
	}
	if r.UserID != userID {
		return nil, apperr.Unauthorized("not_owner", "reservation belongs to another user")
	}
	if r.Status != model.ReservationActive {
		return nil, apperr.Conflict("reservation_not_active",
			fmt.Sprintf("reservation is %s", r.Status))
	}
	return &r, nil
}

// UpdateReservation changes the interval and/or notes of an ACTIVE
// reservation. Allowed only >= UpdateCutoffMinutes before the current
// start; a new interval is re-validated against every other ACTIVE
// reservation on the machine.
func (s *gormStore) UpdateReservation(ctx context.Context, id, userID int64, start, end *time.Time, notes *string, now time.Time) (*model.Reservation, error) {
	var updated *model.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := loadOwnedActive(tx, id, userID)
		if err != nil {
			return err
		}
		cutoff := r.StartTime.Add(-time.Duration(s.opts.UpdateCutoffMinutes) * time.Minute)
		if now.After(cutoff) {
			return apperr.InvalidRequest("update_window_closed",
				fmt.Sprintf("reservations can only be changed %d minutes or more before start", s.opts.UpdateCutoffMinutes))
		}

		if start != nil || end != nil {
			newStart, newEnd := r.StartTime, r.EndTime
			if start != nil {
				newStart = *start
			}
			if end != nil {
				newEnd = *end
			}

			var machine model.Machine
			if err := lockMachine(tx).First(&machine, r.MachineID).Error; err != nil {
				return err
			}
			var others []model.Reservation
			if err := tx.Where("machine_id = ? AND status = ? AND id <> ?",
				r.MachineID, model.ReservationActive, r.ID).
				Find(&others).Error; err != nil {
				return err
			}
			if err := schedule.ValidateBooking(s.opts.Policy, now, newStart, newEnd, &machine, others); err != nil {
				return err
			}
			r.StartTime = newStart
			r.EndTime = newEnd
			r.DurationMinutes = int(newEnd.Sub(newStart) / time.Minute)
		}
		if notes != nil {
			r.Notes = *notes
		}
		updated = r
		return tx.Save(r).Error
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelReservation cancels an ACTIVE reservation owned by userID.
// Allowed only >= CancelCutoffMinutes before start.
func (s *gormStore) CancelReservation(ctx context.Context, id, userID int64, now time.Time) (*model.Reservation, error) {
	var cancelled *model.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := loadOwnedActive(tx, id, userID)
		if err != nil {
			return err
		}
		cutoff := r.StartTime.Add(-time.Duration(s.opts.CancelCutoffMinutes) * time.Minute)
		if now.After(cutoff) {
			return apperr.InvalidRequest("cancel_window_closed",
				fmt.Sprintf("reservations can only be cancelled %d minutes or more before start", s.opts.CancelCutoffMinutes))
		}
		r.Status = model.ReservationCancelled
		cancelled = r
		return tx.Save(r).Error
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// ActiveReservations returns the ACTIVE reservations on machineID whose
// interval intersects [from, to).
func (s *gormStore) ActiveReservations(ctx context.Context, machineID int64, from, to time.Time) ([]model.Reservation, error) {
	var reservations []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("machine_id = ? AND status = ? AND start_time < ? AND end_time > ?",
			machineID, model.ReservationActive, to, from).
		Order("start_time").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// CompleteDueReservations marks every ACTIVE reservation whose window has
// fully passed as COMPLETED and returns them so the caller can emit
// cycle-complete notices.
func (s *gormStore) CompleteDueReservations(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	var due []model.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ? AND end_time <= ?", model.ReservationActive, now).
			Find(&due).Error; err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}
		ids := make([]int64, len(due))
		for i := range due {
			ids[i] = due[i].ID
			due[i].Status = model.ReservationCompleted
		}
		return tx.Model(&model.Reservation{}).Where("id IN ?", ids).
			Update("status", model.ReservationCompleted).Error
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}

// DueReminders returns ACTIVE reservations starting within lead of now
// that have not had a reminder yet, marking them in the same transaction
// so a reminder goes out at most once.
func (s *gormStore) DueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]model.Reservation, error) {
	var due []model.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ? AND reminder_sent_at IS NULL AND start_time > ? AND start_time <= ?",
			model.ReservationActive, now, now.Add(lead)).
			Find(&due).Error; err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}
		ids := make([]int64, len(due))
		for i := range due {
			ids[i] = due[i].ID
		}
		return tx.Model(&model.Reservation{}).Where("id IN ?", ids).
			Update("reminder_sent_at", now).Error
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}
