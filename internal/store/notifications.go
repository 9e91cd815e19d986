package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"laundry-booking-backend/internal/apperr"
	"laundry-booking-backend/internal/model"
)

func (s *gormStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.MaxAttempts <= 0 {
		n.MaxAttempts = s.opts.NotificationMaxAttempts
	}
	if n.Status == "" {
		n.Status = model.NotificationPending
	}
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *gormStore) CreateNotifications(ctx context.Context, ns []*model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	for _, n := range ns {
		if n.MaxAttempts <= 0 {
			n.MaxAttempts = s.opts.NotificationMaxAttempts
		}
		if n.Status == "" {
			n.Status = model.NotificationPending
		}
	}
	return s.db.WithContext(ctx).Create(&ns).Error
}

func (s *gormStore) GetNotification(ctx context.Context, id int64) (*model.Notification, error) {
	var n model.Notification
	if err := s.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("notification_not_found", "notification not found")
		}
		return nil, err
	}
	return &n, nil
}

func (s *gormStore) ListUserNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var ns []model.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ns).Error; err != nil {
		return nil, err
	}
	return ns, nil
}

// PendingNotifications selects up to limit notifications that are due for
// a delivery attempt: still PENDING, retries left, and either never tried
// or past their backoff timestamp.
func (s *gormStore) PendingNotifications(ctx context.Context, now time.Time, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	var ns []model.Notification
	if err := s.db.WithContext(ctx).
		Where("status = ? AND attempts < max_attempts AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			model.NotificationPending, now).
		Order("id").
		Limit(limit).
		Find(&ns).Error; err != nil {
		return nil, err
	}
	return ns, nil
}

func (s *gormStore) SaveNotification(ctx context.Context, n *model.Notification) error {
	return s.db.WithContext(ctx).Save(n).Error
}

// markNotification applies an owner-checked status transition. Terminal
// notifications only move forward (DELIVERED -> READ), never back.
func (s *gormStore) markNotification(ctx context.Context, id, userID int64, status model.NotificationStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n model.Notification
		if err := tx.First(&n, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("notification_not_found", "notification not found")
			}
			return err
		}
		if n.UserID != userID {
			return apperr.Unauthorized("not_owner", "notification belongs to another user")
		}
		if n.Status == model.NotificationFailed {
			return apperr.Conflict("notification_failed", "notification delivery failed permanently")
		}
		if n.Status == model.NotificationRead {
			return nil
		}
		n.Status = status
		return tx.Save(&n).Error
	})
}

func (s *gormStore) MarkNotificationDelivered(ctx context.Context, id, userID int64) error {
	return s.markNotification(ctx, id, userID, model.NotificationDelivered)
}

func (s *gormStore) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	return s.markNotification(ctx, id, userID, model.NotificationRead)
}

// PurgeTerminalNotifications removes terminal notifications last touched
// before the retention cutoff.
func (s *gormStore) PurgeTerminalNotifications(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]model.NotificationStatus{
				model.NotificationDelivered,
				model.NotificationRead,
				model.NotificationFailed,
			}, before).
		Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}
