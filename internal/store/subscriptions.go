package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-booking-backend/internal/apperr"
	"laundry-booking-backend/internal/model"
)

// GetUserSettings returns the user's stored settings, or the defaults
// (notifications enabled, in-app delivery) when no row exists.
func (s *gormStore) GetUserSettings(ctx context.Context, userID int64) (*model.UserSettings, error) {
	var settings model.UserSettings
	err := s.db.WithContext(ctx).First(&settings, "user_id = ?", userID).Error
	if err == gorm.ErrRecordNotFound {
		return &model.UserSettings{
			UserID:               userID,
			NotificationsEnabled: true,
			DefaultMethod:        model.MethodInApp,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *gormStore) PutUserSettings(ctx context.Context, settings *model.UserSettings) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"notifications_enabled", "default_method", "updated_at"}),
	}).Create(settings).Error
}

func (s *gormStore) UpsertPushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormStore) PushSubscriptionsForUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *gormStore) GetPushSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("subscription_not_found", "subscription not found")
		}
		return nil, err
	}
	return &sub, nil
}
