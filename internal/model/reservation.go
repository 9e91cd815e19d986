package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCompleted ReservationStatus = "COMPLETED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// Reservation is an exclusive claim on one machine for the half-open
// interval [StartTime, EndTime).
type Reservation struct {
	ID              int64             `gorm:"primaryKey" json:"id"`
	UserID          int64             `gorm:"index;not null" json:"userId"`
	MachineID       int64             `gorm:"index;not null" json:"machineId"`
	StartTime       time.Time         `gorm:"index;not null" json:"startTime"`
	EndTime         time.Time         `gorm:"not null" json:"endTime"`
	DurationMinutes int               `gorm:"not null" json:"durationMinutes"`
	Status          ReservationStatus `gorm:"size:16;index;not null;default:ACTIVE" json:"status"`
	Notes           string            `gorm:"size:512" json:"notes,omitempty"`
	ReminderSentAt  *time.Time        `json:"-"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`

	Machine Machine `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
