package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"laundry-booking-backend/internal/apperr"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/schedule"
)

// Store defines the interface for all database operations the engine
// needs. Every check-then-act sequence runs inside a single transaction.
type Store interface {
	DB() *gorm.DB

	ListMachines(ctx context.Context) ([]model.Machine, error)
	GetMachine(ctx context.Context, id int64) (*model.Machine, error)
	SetMachineStatus(ctx context.Context, id int64, status model.MachineStatus, outOfOrder bool, reason string) (*model.Machine, error)

	CreateReservation(ctx context.Context, userID, machineID int64, start, end time.Time, notes string) (*model.Reservation, error)
	ListUserReservations(ctx context.Context, userID int64) ([]model.Reservation, error)
	UpdateReservation(ctx context.Context, id, userID int64, start, end *time.Time, notes *string, now time.Time) (*model.Reservation, error)
	CancelReservation(ctx context.Context, id, userID int64, now time.Time) (*model.Reservation, error)
	ActiveReservations(ctx context.Context, machineID int64, from, to time.Time) ([]model.Reservation, error)
	CompleteDueReservations(ctx context.Context, now time.Time) ([]model.Reservation, error)
	DueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]model.Reservation, error)

	CreateNotification(ctx context.Context, n *model.Notification) error
	CreateNotifications(ctx context.Context, ns []*model.Notification) error
	GetNotification(ctx context.Context, id int64) (*model.Notification, error)
	ListUserNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	PendingNotifications(ctx context.Context, now time.Time, limit int) ([]model.Notification, error)
	SaveNotification(ctx context.Context, n *model.Notification) error
	MarkNotificationDelivered(ctx context.Context, id, userID int64) error
	MarkNotificationRead(ctx context.Context, id, userID int64) error
	PurgeTerminalNotifications(ctx context.Context, before time.Time) (int64, error)

	GetUserSettings(ctx context.Context, userID int64) (*model.UserSettings, error)
	PutUserSettings(ctx context.Context, s *model.UserSettings) error

	UpsertPushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error
	PushSubscriptionsForUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	GetPushSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
}

// Options carries the booking policy the store enforces transactionally.
type Options struct {
	Policy                  schedule.Policy
	CancelCutoffMinutes     int
	UpdateCutoffMinutes     int
	NotificationMaxAttempts int
}

// DefaultOptions matches the fixed product policy: cancel >=15 minutes
// before start, modify >=30 minutes before start, three delivery
// attempts per notification.
func DefaultOptions() Options {
	return Options{
		Policy:                  schedule.DefaultPolicy(),
		CancelCutoffMinutes:     15,
		UpdateCutoffMinutes:     30,
		NotificationMaxAttempts: model.DefaultMaxAttempts,
	}
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db   *gorm.DB
	opts Options
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts Options) Store {
	if opts.CancelCutoffMinutes <= 0 {
		opts.CancelCutoffMinutes = 15
	}
	if opts.UpdateCutoffMinutes <= 0 {
		opts.UpdateCutoffMinutes = 30
	}
	if opts.Policy.SlotMinutes == 0 {
		opts.Policy = schedule.DefaultPolicy()
	}
	if opts.NotificationMaxAttempts <= 0 {
		opts.NotificationMaxAttempts = model.DefaultMaxAttempts
	}
	return &gormStore{db: db, opts: opts}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

func (s *gormStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Order("id").Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}

func (s *gormStore) GetMachine(ctx context.Context, id int64) (*model.Machine, error) {
	var machine model.Machine
	if err := s.db.WithContext(ctx).First(&machine, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("machine_not_found", "machine not found")
		}
		return nil, err
	}
	return &machine, nil
}

func (s *gormStore) SetMachineStatus(ctx context.Context, id int64, status model.MachineStatus, outOfOrder bool, reason string) (*model.Machine, error) {
	var machine model.Machine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&machine, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("machine_not_found", "machine not found")
			}
			return err
		}
		machine.Status = status
		machine.OutOfOrder = outOfOrder
		machine.OutOfOrderReason = reason
		if !outOfOrder {
			machine.OutOfOrderReason = ""
		}
		return tx.Save(&machine).Error
	})
	if err != nil {
		return nil, err
	}
	return &machine, nil
}
