package queue

import (
	"context"
	"time"

	"gorm.io/gorm"

	"laundry-booking-backend/internal/model"
)

// Notified pairs a promoted entry with the machine that became free for it.
type Notified struct {
	Entry   model.QueueEntry
	Machine model.Machine
}

// ReevaluateAvailability promotes at most one WAITING entry per genuinely
// free machine to NOTIFIED. Machine-scoped entries win over class-scoped
// ones at equal position; an entry is promoted for at most one machine per
// pass. A machine already promised to a live NOTIFIED entry is not offered
// again until that hold is claimed or expires: a machine-scoped hold pins
// its machine, and each class-scoped hold consumes one free machine of
// its class.
func (m *Manager) ReevaluateAvailability(ctx context.Context, now time.Time) ([]Notified, error) {
	var promoted []Notified
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		free, err := freeMachines(tx, Partition{}, now)
		if err != nil {
			return err
		}

		var holds []model.QueueEntry
		if err := tx.Where("status = ?", model.QueueNotified).Find(&holds).Error; err != nil {
			return err
		}
		heldMachines := make(map[int64]bool)
		classHolds := make(map[model.MachineClass]int)
		for i := range holds {
			switch h := &holds[i]; {
			case h.MachineID != nil:
				heldMachines[*h.MachineID] = true
			case h.MachineClass != nil:
				classHolds[*h.MachineClass]++
			}
		}

		taken := make(map[int64]bool)

		for i := range free {
			machine := free[i]
			if heldMachines[machine.ID] {
				continue
			}
			if classHolds[machine.Class] > 0 {
				classHolds[machine.Class]--
				continue
			}
			var candidates []model.QueueEntry
			if err := tx.
				Where("status = ? AND (machine_id = ? OR machine_class = ?)",
					model.QueueWaiting, machine.ID, machine.Class).
				Order("position").
				Find(&candidates).Error; err != nil {
				return err
			}

			var pick *model.QueueEntry
			for j := range candidates {
				c := &candidates[j]
				if taken[c.ID] {
					continue
				}
				if pick == nil || c.Position < pick.Position ||
					(c.Position == pick.Position && c.MachineID != nil && pick.MachineID == nil) {
					pick = c
				}
			}
			if pick == nil {
				continue
			}

			pick.Status = model.QueueNotified
			notifiedAt := now
			pick.NotifiedAt = &notifiedAt
			if err := tx.Save(pick).Error; err != nil {
				return err
			}
			taken[pick.ID] = true
			promoted = append(promoted, Notified{Entry: *pick, Machine: machine})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// ExpireStale expires NOTIFIED entries that did not claim their machine
// within hold, compacting each affected partition. There is no terminal
// re-entry; expired users must join again. Returns the expired entries and
// the deduplicated set of entries whose position moved up.
func (m *Manager) ExpireStale(ctx context.Context, now time.Time, hold time.Duration) ([]model.QueueEntry, []model.QueueEntry, error) {
	var expired []model.QueueEntry
	shiftedByID := make(map[int64]model.QueueEntry)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []model.QueueEntry
		if err := tx.
			Where("status = ? AND notified_at IS NOT NULL AND notified_at <= ?",
				model.QueueNotified, now.Add(-hold)).
			Order("position DESC").
			Find(&stale).Error; err != nil {
			return err
		}

		for i := range stale {
			entry := stale[i]
			if err := lockPartition(tx, PartitionOf(&entry)); err != nil {
				return err
			}
			entry.Status = model.QueueExpired
			if err := tx.Save(&entry).Error; err != nil {
				return err
			}
			shifted, err := compact(tx, PartitionOf(&entry), entry.Position)
			if err != nil {
				return err
			}
			for _, sh := range shifted {
				shiftedByID[sh.ID] = sh
			}
			expired = append(expired, entry)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	shifted := make([]model.QueueEntry, 0, len(shiftedByID))
	for _, sh := range shiftedByID {
		shifted = append(shifted, sh)
	}
	return expired, shifted, nil
}
