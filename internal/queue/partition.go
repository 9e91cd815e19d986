// Package queue implements the FIFO waitlist: admission, contiguous
// position bookkeeping, wait estimation and availability reevaluation.
package queue

import (
	"fmt"

	"gorm.io/gorm"

	"laundry-booking-backend/internal/model"
)

// Partition identifies the scope within which queue positions are unique
// and contiguous: exactly one specific machine or one machine class. The
// constructors make the "both set" / "both empty" states unrepresentable.
type Partition struct {
	machineID *int64
	class     *model.MachineClass
}

// ByMachine scopes a partition to one machine.
func ByMachine(id int64) Partition {
	return Partition{machineID: &id}
}

// ByClass scopes a partition to every machine of a class.
func ByClass(c model.MachineClass) Partition {
	return Partition{class: &c}
}

// MachineID returns the machine id and true for machine-scoped partitions.
func (p Partition) MachineID() (int64, bool) {
	if p.machineID == nil {
		return 0, false
	}
	return *p.machineID, true
}

// Class returns the class and true for class-scoped partitions.
func (p Partition) Class() (model.MachineClass, bool) {
	if p.class == nil {
		return "", false
	}
	return *p.class, true
}

func (p Partition) String() string {
	if p.machineID != nil {
		return fmt.Sprintf("machine:%d", *p.machineID)
	}
	if p.class != nil {
		return fmt.Sprintf("class:%s", *p.class)
	}
	return "invalid"
}

// PartitionOf reconstructs the partition a stored entry belongs to.
func PartitionOf(e *model.QueueEntry) Partition {
	if e.MachineID != nil {
		return Partition{machineID: e.MachineID}
	}
	return Partition{class: e.MachineClass}
}

// entryScope narrows a queue_entries query to this partition.
func (p Partition) entryScope(db *gorm.DB) *gorm.DB {
	if p.machineID != nil {
		return db.Where("machine_id = ?", *p.machineID)
	}
	return db.Where("machine_class = ?", *p.class)
}

// machineScope narrows a machines query to the machines this partition
// can be served by. The zero Partition matches every machine, which the
// reevaluation pass uses to sweep the whole fleet.
func (p Partition) machineScope(db *gorm.DB) *gorm.DB {
	switch {
	case p.machineID != nil:
		return db.Where("id = ?", *p.machineID)
	case p.class != nil:
		return db.Where("class = ?", *p.class)
	default:
		return db
	}
}

// apply copies the partition onto a new entry.
func (p Partition) apply(e *model.QueueEntry) {
	e.MachineID = p.machineID
	e.MachineClass = p.class
}
