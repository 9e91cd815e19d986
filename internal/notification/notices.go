package notification

import (
	"fmt"
	"time"

	"laundry-booking-backend/internal/model"
)

// Builders for every notice kind. Titles and bodies are final strings;
// template rendering is not this service's job. The retry budget is
// stamped by the store on insert, from the configured delivery policy.

const timeLayout = "Mon Jan 2 15:04"

func newNotice(userID int64, method model.DeliveryMethod, typ model.NotificationType, title, body string) *model.Notification {
	return &model.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
		Method: method,
		Status: model.NotificationPending,
	}
}

// Confirmation announces a successfully created reservation.
func Confirmation(method model.DeliveryMethod, r *model.Reservation, machineName string) *model.Notification {
	n := newNotice(r.UserID, method, model.NoticeConfirmation,
		"Reservation confirmed",
		fmt.Sprintf("%s is booked for you %s to %s.",
			machineName, r.StartTime.Format(timeLayout), r.EndTime.Format("15:04")))
	n.ReservationID = &r.ID
	return n
}

// Cancellation confirms a reservation was cancelled.
func Cancellation(method model.DeliveryMethod, r *model.Reservation, machineName string) *model.Notification {
	n := newNotice(r.UserID, method, model.NoticeCancellation,
		"Reservation cancelled",
		fmt.Sprintf("Your booking of %s at %s has been cancelled.",
			machineName, r.StartTime.Format(timeLayout)))
	n.ReservationID = &r.ID
	return n
}

// Reminder nudges the user shortly before their reservation starts.
func Reminder(method model.DeliveryMethod, r *model.Reservation, machineName string) *model.Notification {
	n := newNotice(r.UserID, method, model.NoticeReminder,
		"Upcoming reservation",
		fmt.Sprintf("Your booking of %s starts at %s.",
			machineName, r.StartTime.Format(timeLayout)))
	n.ReservationID = &r.ID
	return n
}

// CycleComplete tells the user their reservation window has finished.
func CycleComplete(method model.DeliveryMethod, r *model.Reservation, machineName string) *model.Notification {
	n := newNotice(r.UserID, method, model.NoticeCycleComplete,
		"Cycle complete",
		fmt.Sprintf("Your time on %s ended at %s. Please collect your laundry.",
			machineName, r.EndTime.Format("15:04")))
	n.ReservationID = &r.ID
	return n
}

// QueuePositionUpdate tells a waiting user their position moved up.
func QueuePositionUpdate(method model.DeliveryMethod, e *model.QueueEntry, scope string) *model.Notification {
	n := newNotice(e.UserID, method, model.NoticeQueuePositionUpdate,
		"Queue update",
		fmt.Sprintf("You are now number %d in line for %s.", e.Position, scope))
	n.QueueEntryID = &e.ID
	return n
}

// MachineAvailable tells the head of the queue a machine freed up.
func MachineAvailable(method model.DeliveryMethod, e *model.QueueEntry, machineName string, holdMinutes int) *model.Notification {
	n := newNotice(e.UserID, method, model.NoticeMachineAvailable,
		"Machine available",
		fmt.Sprintf("%s is free now. Your spot is held for %d minutes.", machineName, holdMinutes))
	n.QueueEntryID = &e.ID
	return n
}

// MaintenanceScheduled warns a reservation holder about upcoming
// maintenance on their machine.
func MaintenanceScheduled(method model.DeliveryMethod, userID int64, machineName string, at time.Time) *model.Notification {
	return newNotice(userID, method, model.NoticeMaintenance,
		"Maintenance scheduled",
		fmt.Sprintf("%s goes into maintenance at %s; your reservation may be affected.",
			machineName, at.Format(timeLayout)))
}

// Announcement is a broadcast notice.
func Announcement(method model.DeliveryMethod, userID int64, title, body string) *model.Notification {
	return newNotice(userID, method, model.NoticeAnnouncement, title, body)
}
