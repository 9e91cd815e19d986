package model

import "time"

// MachineClass groups machines of the same kind for class-wide queueing.
type MachineClass string

const (
	ClassWasher MachineClass = "WASHER"
	ClassDryer  MachineClass = "DRYER"
)

// ValidClass reports whether c is a recognized machine class.
func ValidClass(c MachineClass) bool {
	return c == ClassWasher || c == ClassDryer
}

// MachineStatus is the coarse operational state of a machine.
type MachineStatus string

const (
	MachineAvailable   MachineStatus = "AVAILABLE"
	MachineInUse       MachineStatus = "IN_USE"
	MachineMaintenance MachineStatus = "MAINTENANCE"
	MachineOutOfOrder  MachineStatus = "OUT_OF_ORDER"
)

// Machine represents a bookable laundry machine.
type Machine struct {
	ID               int64         `gorm:"primaryKey" json:"id"`
	Name             string        `gorm:"size:128;not null" json:"name"`
	Class            MachineClass  `gorm:"size:16;index;not null" json:"class"`
	Capacity         int           `gorm:"not null" json:"capacity"`
	CycleMinutes     int           `gorm:"not null" json:"cycleMinutes"`
	Status           MachineStatus `gorm:"size:16;not null;default:AVAILABLE" json:"status"`
	OutOfOrder       bool          `gorm:"not null;default:false" json:"outOfOrder"`
	OutOfOrderReason string        `gorm:"size:256" json:"outOfOrderReason,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Schedulable reports whether the machine can accept bookings at all.
// The out-of-order flag always wins over Status.
func (m *Machine) Schedulable() bool {
	return !m.OutOfOrder && m.Status == MachineAvailable
}
