package model

import "time"

// UserSettings holds per-user notification preferences. Absence of a row
// means notifications are enabled with the in-app method.
type UserSettings struct {
	UserID               int64          `gorm:"primaryKey" json:"userId"`
	NotificationsEnabled bool           `gorm:"not null" json:"notificationsEnabled"`
	DefaultMethod        DeliveryMethod `gorm:"size:16;not null;default:IN_APP" json:"defaultMethod"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}
