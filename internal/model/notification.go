package model

import "time"

// NotificationType enumerates every kind of outbound notice. Switches over
// this type list all constants explicitly so a new kind cannot silently
// fall through a default branch.
type NotificationType string

const (
	NoticeConfirmation        NotificationType = "confirmation"
	NoticeReminder            NotificationType = "reminder"
	NoticeCancellation        NotificationType = "cancellation"
	NoticeCycleComplete       NotificationType = "cycle_complete"
	NoticeQueuePositionUpdate NotificationType = "queue_position_update"
	NoticeMachineAvailable    NotificationType = "machine_available"
	NoticeMaintenance         NotificationType = "maintenance_scheduled"
	NoticeAnnouncement        NotificationType = "announcement"
)

// DeliveryMethod is the channel a notification goes out on.
type DeliveryMethod string

const (
	MethodEmail DeliveryMethod = "EMAIL"
	MethodSMS   DeliveryMethod = "SMS"
	MethodPush  DeliveryMethod = "PUSH"
	MethodInApp DeliveryMethod = "IN_APP"
)

// NotificationStatus is the delivery state of a notification.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "PENDING"
	NotificationSent      NotificationStatus = "SENT"
	NotificationDelivered NotificationStatus = "DELIVERED"
	NotificationRead      NotificationStatus = "READ"
	NotificationFailed    NotificationStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s NotificationStatus) Terminal() bool {
	return s == NotificationDelivered || s == NotificationRead || s == NotificationFailed
}

// DefaultMaxAttempts bounds delivery retries unless overridden per notice.
const DefaultMaxAttempts = 3

// Notification is a unit of outbound communication. The attempt counter and
// retry timestamp are persisted so retries survive process restarts.
type Notification struct {
	ID            int64              `gorm:"primaryKey" json:"id"`
	UserID        int64              `gorm:"index;not null" json:"userId"`
	Type          NotificationType   `gorm:"size:32;not null" json:"type"`
	Title         string             `gorm:"size:256;not null" json:"title"`
	Body          string             `gorm:"size:1024;not null" json:"body"`
	Method        DeliveryMethod     `gorm:"size:16;not null" json:"method"`
	Status        NotificationStatus `gorm:"size:16;index;not null;default:PENDING" json:"status"`
	ReservationID *int64             `gorm:"index" json:"reservationId,omitempty"`
	QueueEntryID  *int64             `gorm:"index" json:"queueEntryId,omitempty"`
	Attempts      int                `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts   int                `gorm:"not null;default:3" json:"maxAttempts"`
	LastAttemptAt *time.Time         `json:"lastAttemptAt,omitempty"`
	NextRetryAt   *time.Time         `json:"nextRetryAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}
