package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"laundry-booking-backend/internal/apperr"
	"laundry-booking-backend/internal/model"
)

// newTestManager sets up an in-memory SQLite database with two washers and
// one dryer, all with a 60 minute cycle.
func newTestManager(t *testing.T) (*Manager, *gorm.DB) {
	t.Helper()

	testDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, testDB.AutoMigrate(
		&model.Machine{}, &model.Reservation{}, &model.QueueEntry{}))

	machines := []model.Machine{
		{ID: 1, Name: "Washer 1", Class: model.ClassWasher, CycleMinutes: 60, Status: model.MachineAvailable},
		{ID: 2, Name: "Washer 2", Class: model.ClassWasher, CycleMinutes: 60, Status: model.MachineAvailable},
		{ID: 3, Name: "Dryer 1", Class: model.ClassDryer, CycleMinutes: 60, Status: model.MachineAvailable},
	}
	require.NoError(t, testDB.Create(&machines).Error)

	return NewManager(testDB, 30), testDB
}

func TestJoinAssignsContiguousPositions(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Join(ctx, 100, ByMachine(1), nil, true)
	require.NoError(t, err)
	second, err := m.Join(ctx, 101, ByMachine(1), nil, true)
	require.NoError(t, err)
	third, err := m.Join(ctx, 102, ByMachine(1), nil, true)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 2, second.Position)
	assert.Equal(t, 3, third.Position)

	// Estimates scale with the number of people ahead and the cycle time.
	assert.Equal(t, 0, first.EstimatedWaitMinutes)
	assert.Equal(t, 60, second.EstimatedWaitMinutes)
	assert.Equal(t, 120, third.EstimatedWaitMinutes)
}

func TestJoinDuplicateInSamePartition(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Join(ctx, 100, ByMachine(1), nil, true)
	require.NoError(t, err)

	_, err = m.Join(ctx, 100, ByMachine(1), nil, true)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, "already_queued", apperr.CodeOf(err))

	// The same user may still queue for a different machine or for a class.
	_, err = m.Join(ctx, 100, ByMachine(2), nil, true)
	assert.NoError(t, err)
	_, err = m.Join(ctx, 100, ByClass(model.ClassDryer), nil, true)
	assert.NoError(t, err)
}

func TestJoinValidation(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	t.Run("unknown machine", func(t *testing.T) {
		_, err := m.Join(ctx, 100, ByMachine(999), nil, true)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("out of order machine", func(t *testing.T) {
		require.NoError(t, db.Model(&model.Machine{}).Where("id = ?", 1).
			Update("out_of_order", true).Error)
		_, err := m.Join(ctx, 100, ByMachine(1), nil, true)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindResourceUnavailable))
	})

	t.Run("unknown class", func(t *testing.T) {
		_, err := m.Join(ctx, 100, ByClass("FOLDER"), nil, true)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidRequest))
	})
}

func TestLeaveCompactsPositions(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	a, err := m.Join(ctx, 100, ByMachine(1), nil, true)
	require.NoError(t, err)
	b, err := m.Join(ctx, 101, ByMachine(1), nil, true)
	require.NoError(t, err)
	c, err := m.Join(ctx, 102, ByMachine(1), nil, true)
	require.NoError(t, err)

	// The head of the queue leaves; everyone behind moves up by one.
	result, err := m.Leave(ctx, a.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, model.QueueCancelled, result.Entry.Status)

	require.Len(t, result.Shifted, 2)
	assert.Equal(t, b.ID, result.Shifted[0].ID)
	assert.Equal(t, 1, result.Shifted[0].Position)
	assert.Equal(t, c.ID, result.Shifted[1].ID)
	assert.Equal(t, 2, result.Shifted[1].Position)

	// Positions in the partition are contiguous starting at 1.
	var live []model.QueueEntry
	require.NoError(t, db.
		Where("machine_id = ? AND status IN ?", 1, liveStatuses).
		Order("position").Find(&live).Error)
	require.Len(t, live, 2)
	for i, e := range live {
		assert.Equal(t, i+1, e.Position)
	}
}

func TestLeaveOnlyTouchesItsPartition(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	_, err := m.Join(ctx, 100, ByMachine(1), nil, true)
	require.NoError(t, err)
	other, err := m.Join(ctx, 101, ByClass(model.ClassWasher), nil, true)
	require.NoError(t, err)
	leaver, err := m.Join(ctx, 102, ByMachine(1), nil, true)
	require.NoError(t, err)

	_, err = m.Leave(ctx, leaver.ID, 102)
	require.NoError(t, err)

	// The class-scoped entry is a different partition and keeps position 1.
	var reloaded model.QueueEntry
	require.NoError(t, db.First(&reloaded, other.ID).Error)
	assert.Equal(t, 1, reloaded.Position)
	assert.Equal(t, model.QueueWaiting, reloaded.Status)
}

func TestLeaveAuthorization(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	entry, err := m.Join(ctx, 100, ByMachine(1), nil, true)
	require.NoError(t, err)

	t.Run("unknown entry", func(t *testing.T) {
		_, err := m.Leave(ctx, 9999, 100)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("not the owner", func(t *testing.T) {
		_, err := m.Leave(ctx, entry.ID, 999)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
	})

	t.Run("leaving twice", func(t *testing.T) {
		_, err := m.Leave(ctx, entry.ID, 100)
		require.NoError(t, err)
		_, err = m.Leave(ctx, entry.ID, 100)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}

func TestStatusRecomputesEstimates(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	head, err := m.Join(ctx, 100, ByClass(model.ClassWasher), nil, true)
	require.NoError(t, err)
	tail, err := m.Join(ctx, 101, ByClass(model.ClassWasher), nil, true)
	require.NoError(t, err)

	status, err := m.Status(ctx, tail.ID, 101, now)
	require.NoError(t, err)
	assert.Equal(t, 1, status.AheadCount)
	assert.Equal(t, 60, status.EstimatedWaitMinutes)
	assert.Len(t, status.FreeMachines, 2, "both washers are free")

	// After the head leaves, the estimate shrinks to zero on the next poll.
	_, err = m.Leave(ctx, head.ID, 100)
	require.NoError(t, err)

	status, err = m.Status(ctx, tail.ID, 101, now)
	require.NoError(t, err)
	assert.Equal(t, 0, status.AheadCount)
	assert.Equal(t, 0, status.EstimatedWaitMinutes)

	// A washer under an active reservation covering now is not free even
	// though its coarse status flag still says AVAILABLE.
	res := model.Reservation{
		UserID: 500, MachineID: 1,
		StartTime: now.Add(-10 * time.Minute), EndTime: now.Add(50 * time.Minute),
		Status: model.ReservationActive,
	}
	require.NoError(t, db.Create(&res).Error)

	status, err = m.Status(ctx, tail.ID, 101, now)
	require.NoError(t, err)
	require.Len(t, status.FreeMachines, 1)
	assert.Equal(t, int64(2), status.FreeMachines[0].ID)
}

func TestReevaluateAvailability(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("machine scoped entry beats class scoped at equal position", func(t *testing.T) {
		m, db := newTestManager(t)

		classEntry, err := m.Join(ctx, 100, ByClass(model.ClassWasher), nil, true)
		require.NoError(t, err)
		machineEntry, err := m.Join(ctx, 101, ByMachine(1), nil, true)
		require.NoError(t, err)

		// Only washer 1 is free.
		busy := model.Reservation{
			UserID: 500, MachineID: 2,
			StartTime: now.Add(-10 * time.Minute), EndTime: now.Add(50 * time.Minute),
			Status: model.ReservationActive,
		}
		require.NoError(t, db.Create(&busy).Error)

		promoted, err := m.ReevaluateAvailability(ctx, now)
		require.NoError(t, err)
		require.Len(t, promoted, 1)
		assert.Equal(t, machineEntry.ID, promoted[0].Entry.ID)
		assert.Equal(t, int64(1), promoted[0].Machine.ID)
		assert.Equal(t, model.QueueNotified, promoted[0].Entry.Status)
		require.NotNil(t, promoted[0].Entry.NotifiedAt)

		// The class entry is untouched and still waiting.
		var reloaded model.QueueEntry
		require.NoError(t, db.First(&reloaded, classEntry.ID).Error)
		assert.Equal(t, model.QueueWaiting, reloaded.Status)
	})

	t.Run("one promotion per free machine, no double promotion", func(t *testing.T) {
		m, _ := newTestManager(t)

		machineEntry, err := m.Join(ctx, 100, ByMachine(1), nil, true)
		require.NoError(t, err)
		classEntry, err := m.Join(ctx, 101, ByClass(model.ClassWasher), nil, true)
		require.NoError(t, err)

		// Washer 1 and washer 2 are both free: the machine-scoped entry
		// takes washer 1 and the class entry falls through to washer 2.
		promoted, err := m.ReevaluateAvailability(ctx, now)
		require.NoError(t, err)
		require.Len(t, promoted, 2)

		byEntry := make(map[int64]int64)
		for _, n := range promoted {
			byEntry[n.Entry.ID] = n.Machine.ID
		}
		assert.Equal(t, int64(1), byEntry[machineEntry.ID])
		assert.Equal(t, int64(2), byEntry[classEntry.ID])
	})

	t.Run("a live hold keeps the machine out of later passes", func(t *testing.T) {
		m, db := newTestManager(t)

		first, err := m.Join(ctx, 100, ByMachine(1), nil, true)
		require.NoError(t, err)
		second, err := m.Join(ctx, 101, ByMachine(1), nil, true)
		require.NoError(t, err)

		promoted, err := m.ReevaluateAvailability(ctx, now)
		require.NoError(t, err)
		require.Len(t, promoted, 1)
		assert.Equal(t, first.ID, promoted[0].Entry.ID)

		// A minute later the machine is still promised to the first entry,
		// so the second one is not told it is free.
		promoted, err = m.ReevaluateAvailability(ctx, now.Add(time.Minute))
		require.NoError(t, err)
		assert.Empty(t, promoted)

		var reloaded model.QueueEntry
		require.NoError(t, db.First(&reloaded, second.ID).Error)
		assert.Equal(t, model.QueueWaiting, reloaded.Status)

		// Once the hold expires the next entry gets its turn.
		staleAt := now.Add(-20 * time.Minute)
		require.NoError(t, db.Model(&model.QueueEntry{}).Where("id = ?", first.ID).
			Update("notified_at", staleAt).Error)
		_, _, err = m.ExpireStale(ctx, now, 15*time.Minute)
		require.NoError(t, err)

		promoted, err = m.ReevaluateAvailability(ctx, now.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, promoted, 1)
		assert.Equal(t, second.ID, promoted[0].Entry.ID)
	})

	t.Run("a class hold consumes one free machine of the class", func(t *testing.T) {
		m, db := newTestManager(t)

		held, err := m.Join(ctx, 100, ByClass(model.ClassWasher), nil, true)
		require.NoError(t, err)
		waiting, err := m.Join(ctx, 101, ByClass(model.ClassWasher), nil, true)
		require.NoError(t, err)

		notifiedAt := now.Add(-2 * time.Minute)
		require.NoError(t, db.Model(&model.QueueEntry{}).Where("id = ?", held.ID).
			Updates(map[string]interface{}{"status": model.QueueNotified, "notified_at": notifiedAt}).Error)

		// Both washers are free but one is promised to the held entry, so
		// only the remaining washer is handed out.
		promoted, err := m.ReevaluateAvailability(ctx, now)
		require.NoError(t, err)
		require.Len(t, promoted, 1)
		assert.Equal(t, waiting.ID, promoted[0].Entry.ID)
		assert.Equal(t, int64(2), promoted[0].Machine.ID)
	})

	t.Run("no free machines means no promotions", func(t *testing.T) {
		m, db := newTestManager(t)

		_, err := m.Join(ctx, 100, ByClass(model.ClassWasher), nil, true)
		require.NoError(t, err)
		require.NoError(t, db.Model(&model.Machine{}).
			Where("class = ?", model.ClassWasher).
			Update("status", model.MachineInUse).Error)

		promoted, err := m.ReevaluateAvailability(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, promoted)
	})
}

func TestExpireStale(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	hold := 15 * time.Minute

	stale, err := m.Join(ctx, 100, ByMachine(1), nil, true)
	require.NoError(t, err)
	fresh, err := m.Join(ctx, 101, ByMachine(1), nil, true)
	require.NoError(t, err)
	waiting, err := m.Join(ctx, 102, ByMachine(1), nil, true)
	require.NoError(t, err)

	// Entry 1 was notified 20 minutes ago, entry 2 five minutes ago.
	staleAt := now.Add(-20 * time.Minute)
	freshAt := now.Add(-5 * time.Minute)
	require.NoError(t, db.Model(&model.QueueEntry{}).Where("id = ?", stale.ID).
		Updates(map[string]interface{}{"status": model.QueueNotified, "notified_at": staleAt}).Error)
	require.NoError(t, db.Model(&model.QueueEntry{}).Where("id = ?", fresh.ID).
		Updates(map[string]interface{}{"status": model.QueueNotified, "notified_at": freshAt}).Error)

	expired, shifted, err := m.ExpireStale(ctx, now, hold)
	require.NoError(t, err)

	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
	assert.Equal(t, model.QueueExpired, expired[0].Status)

	// Both survivors moved up one position.
	require.Len(t, shifted, 2)
	var reloadedFresh, reloadedWaiting model.QueueEntry
	require.NoError(t, db.First(&reloadedFresh, fresh.ID).Error)
	require.NoError(t, db.First(&reloadedWaiting, waiting.ID).Error)
	assert.Equal(t, 1, reloadedFresh.Position)
	assert.Equal(t, model.QueueNotified, reloadedFresh.Status, "entry within the hold window keeps its claim")
	assert.Equal(t, 2, reloadedWaiting.Position)
	assert.Equal(t, model.QueueWaiting, reloadedWaiting.Status)
}
