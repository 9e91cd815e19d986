package model

import "time"

// QueueStatus is the lifecycle state of a waitlist entry.
type QueueStatus string

const (
	QueueWaiting   QueueStatus = "WAITING"
	QueueNotified  QueueStatus = "NOTIFIED"
	QueueExpired   QueueStatus = "EXPIRED"
	QueueCancelled QueueStatus = "CANCELLED"
)

// Live reports whether the entry still occupies a queue position.
func (s QueueStatus) Live() bool {
	return s == QueueWaiting || s == QueueNotified
}

// QueueEntry is a waitlist ticket for either one specific machine or an
// entire machine class. Exactly one of MachineID/MachineClass is set;
// callers go through queue.Partition which enforces that.
type QueueEntry struct {
	ID                   int64         `gorm:"primaryKey" json:"id"`
	UserID               int64         `gorm:"index;not null" json:"userId"`
	MachineID            *int64        `gorm:"index" json:"machineId,omitempty"`
	MachineClass         *MachineClass `gorm:"size:16;index" json:"machineClass,omitempty"`
	Position             int           `gorm:"not null" json:"position"`
	Status               QueueStatus   `gorm:"size:16;index;not null;default:WAITING" json:"status"`
	EstimatedWaitMinutes int           `gorm:"not null" json:"estimatedWaitMinutes"`
	PreferredStart       *time.Time    `json:"preferredStart,omitempty"`
	NotifyOnAvailable    bool          `gorm:"not null" json:"notifyOnAvailable"`
	NotifiedAt           *time.Time    `json:"notifiedAt,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}
