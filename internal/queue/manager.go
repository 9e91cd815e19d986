package queue

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-booking-backend/internal/apperr"
	"laundry-booking-backend/internal/model"
)

// liveStatuses are the entry states that occupy a queue position.
var liveStatuses = []model.QueueStatus{model.QueueWaiting, model.QueueNotified}

// Manager owns all waitlist state transitions. Position assignment and
// compaction run inside single transactions holding the partition's
// machine row locks, so concurrent joins and leaves on one partition
// never observe gaps or duplicates.
type Manager struct {
	db                   *gorm.DB
	fallbackCycleMinutes int
}

// NewManager creates a queue manager. fallbackCycleMinutes is used when a
// partition's average cycle time cannot be determined.
func NewManager(db *gorm.DB, fallbackCycleMinutes int) *Manager {
	if fallbackCycleMinutes <= 0 {
		fallbackCycleMinutes = 30
	}
	return &Manager{db: db, fallbackCycleMinutes: fallbackCycleMinutes}
}

// lockPartition locks the partition's machine rows so concurrent joins
// and leaves on one partition serialize before reading positions. Locks
// are only issued on dialects that support SELECT ... FOR UPDATE; SQLite
// transactions are single-writer already.
func lockPartition(tx *gorm.DB, p Partition) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	var ids []int64
	return p.machineScope(tx.Model(&model.Machine{})).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Pluck("id", &ids).Error
}

// averageCycleMinutes is the mean cycle time over the machines the
// partition can be served by.
func (m *Manager) averageCycleMinutes(tx *gorm.DB, p Partition) int {
	var avg *float64
	if err := p.machineScope(tx.Model(&model.Machine{})).
		Select("AVG(cycle_minutes)").Scan(&avg).Error; err != nil || avg == nil || *avg <= 0 {
		return m.fallbackCycleMinutes
	}
	return int(*avg)
}

// Join admits userID to the partition's waitlist, assigning the next
// contiguous position. A user already WAITING or NOTIFIED in the same
// partition is rejected with a Conflict; joining a different partition is
// allowed.
func (m *Manager) Join(ctx context.Context, userID int64, p Partition, preferredStart *time.Time, notify bool) (*model.QueueEntry, error) {
	if c, ok := p.Class(); ok && !model.ValidClass(c) {
		return nil, apperr.InvalidRequest("unknown_machine_class", "unknown machine class")
	}

	var entry model.QueueEntry
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPartition(tx, p); err != nil {
			return err
		}

		if id, ok := p.MachineID(); ok {
			var machine model.Machine
			if err := tx.First(&machine, id).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return apperr.NotFound("machine_not_found", "machine not found")
				}
				return err
			}
			if machine.OutOfOrder {
				return apperr.ResourceUnavailable("machine_out_of_order", "machine is out of order")
			}
		}

		var existing int64
		if err := p.entryScope(tx.Model(&model.QueueEntry{})).
			Where("user_id = ? AND status IN ?", userID, liveStatuses).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("already_queued", "already queued for this machine or class")
		}

		var maxPos *int
		if err := p.entryScope(tx.Model(&model.QueueEntry{})).
			Where("status IN ?", liveStatuses).
			Select("MAX(position)").Scan(&maxPos).Error; err != nil {
			return err
		}
		position := 1
		if maxPos != nil {
			position = *maxPos + 1
		}

		entry = model.QueueEntry{
			UserID:               userID,
			Position:             position,
			Status:               model.QueueWaiting,
			EstimatedWaitMinutes: (position - 1) * m.averageCycleMinutes(tx, p),
			PreferredStart:       preferredStart,
			NotifyOnAvailable:    notify,
		}
		p.apply(&entry)
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// LeaveResult reports the cancelled entry and every entry whose position
// moved up during compaction.
type LeaveResult struct {
	Entry   *model.QueueEntry
	Shifted []model.QueueEntry
}

// Leave cancels the entry and compacts the partition: every live entry
// behind it moves up by one, applied as a single batch UPDATE so
// concurrent position queries never see a gap or duplicate.
func (m *Manager) Leave(ctx context.Context, entryID, userID int64) (*LeaveResult, error) {
	result := &LeaveResult{}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.QueueEntry
		if err := tx.First(&entry, entryID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("queue_entry_not_found", "queue entry not found")
			}
			return err
		}
		if entry.UserID != userID {
			return apperr.Unauthorized("not_owner", "queue entry belongs to another user")
		}

		// The liveness check is only authoritative once the partition is
		// locked; a concurrent leave could have closed the entry in the
		// meantime.
		if err := lockPartition(tx, PartitionOf(&entry)); err != nil {
			return err
		}
		if err := tx.First(&entry, entryID).Error; err != nil {
			return err
		}
		if !entry.Status.Live() {
			return apperr.Conflict("queue_entry_closed", "queue entry is already cancelled or expired")
		}

		entry.Status = model.QueueCancelled
		if err := tx.Save(&entry).Error; err != nil {
			return err
		}
		shifted, err := compact(tx, PartitionOf(&entry), entry.Position)
		if err != nil {
			return err
		}
		result.Entry = &entry
		result.Shifted = shifted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// compact closes the gap left at position and returns the entries that
// moved, with their new positions.
func compact(tx *gorm.DB, p Partition, position int) ([]model.QueueEntry, error) {
	if err := p.entryScope(tx.Model(&model.QueueEntry{})).
		Where("status IN ? AND position > ?", liveStatuses, position).
		Update("position", gorm.Expr("position - 1")).Error; err != nil {
		return nil, err
	}
	var shifted []model.QueueEntry
	if err := p.entryScope(tx.
		Where("status IN ? AND position >= ?", liveStatuses, position)).
		Order("position").
		Find(&shifted).Error; err != nil {
		return nil, err
	}
	return shifted, nil
}

// EntryStatus is the live view returned for status polling. Estimates are
// always recomputed from current queue depth and cycle times rather than
// replayed from join time.
type EntryStatus struct {
	Entry                *model.QueueEntry `json:"entry"`
	AheadCount           int               `json:"aheadCount"`
	EstimatedWaitMinutes int               `json:"estimatedWaitMinutes"`
	FreeMachines         []model.Machine   `json:"freeMachines"`
}

// Status recomputes the entry's rank and estimate, and reports which
// matching machines are genuinely free right now. The coarse AVAILABLE
// status flag is reconciled against real-time reservation overlap: a
// machine can be flagged available while still mid-cycle under an ACTIVE
// reservation.
func (m *Manager) Status(ctx context.Context, entryID, userID int64, now time.Time) (*EntryStatus, error) {
	db := m.db.WithContext(ctx)

	var entry model.QueueEntry
	if err := db.First(&entry, entryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("queue_entry_not_found", "queue entry not found")
		}
		return nil, err
	}
	if entry.UserID != userID {
		return nil, apperr.Unauthorized("not_owner", "queue entry belongs to another user")
	}

	p := PartitionOf(&entry)
	status := &EntryStatus{Entry: &entry}

	if entry.Status.Live() {
		var ahead int64
		if err := p.entryScope(db.Model(&model.QueueEntry{})).
			Where("status IN ? AND position < ?", liveStatuses, entry.Position).
			Count(&ahead).Error; err != nil {
			return nil, err
		}
		status.AheadCount = int(ahead)
		status.EstimatedWaitMinutes = int(ahead) * m.averageCycleMinutes(db, p)
	}

	free, err := freeMachines(db, p, now)
	if err != nil {
		return nil, err
	}
	status.FreeMachines = free
	return status, nil
}

// freeMachines lists machines in the partition that are schedulable and
// have no ACTIVE reservation covering now.
func freeMachines(db *gorm.DB, p Partition, now time.Time) ([]model.Machine, error) {
	busy := db.Session(&gorm.Session{NewDB: true}).
		Model(&model.Reservation{}).
		Select("1").
		Where("reservations.machine_id = machines.id AND reservations.status = ? AND reservations.start_time <= ? AND reservations.end_time > ?",
			model.ReservationActive, now, now)

	var machines []model.Machine
	if err := p.machineScope(db.Model(&model.Machine{})).
		Where("out_of_order = ? AND status = ?", false, model.MachineAvailable).
		Where("NOT EXISTS (?)", busy).
		Order("id").
		Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}
