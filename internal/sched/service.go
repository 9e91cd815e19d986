// Package sched runs the periodic maintenance pass: completing elapsed
// reservations, sending reminders, reevaluating the waitlist against
// freed machines, expiring unclaimed holds, draining pending
// notifications and purging old terminal ones. The service only ticks;
// all state lives in the store, so nothing is lost across restarts.
package sched

import (
	"context"
	"log"
	"time"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/queue"
	"laundry-booking-backend/internal/store"
)

// Service orchestrates the background passes.
type Service struct {
	cfg       *config.Config
	store     store.Store
	queue     *queue.Manager
	processor *notification.Processor
}

// NewService creates the scheduler service.
func NewService(cfg *config.Config, s store.Store, q *queue.Manager, p *notification.Processor) *Service {
	return &Service{cfg: cfg, store: s, queue: q, processor: p}
}

// Run ticks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Scheduler.Enabled {
		log.Println("Scheduler is disabled. Not starting.")
		return
	}
	log.Println("Starting scheduler service...")

	interval := time.Duration(s.cfg.Scheduler.IntervalSeconds) * time.Second
	s.TickOnce(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler service shutting down.")
			return
		case <-timer.C:
			s.TickOnce(ctx)
			timer.Reset(interval)
		}
	}
}

// TickOnce performs a single maintenance pass. Each sub-pass is isolated:
// a failure is logged and the remaining passes still run. Notices created
// here are picked up by the pending-notification drain at the end of the
// same pass.
func (s *Service) TickOnce(ctx context.Context) {
	now := time.Now()

	s.completeReservations(ctx, now)
	s.sendReminders(ctx, now)
	s.reevaluateQueues(ctx, now)
	s.expireQueueHolds(ctx, now)

	if _, err := s.processor.ProcessPending(ctx, s.cfg.Notification.BatchSize); err != nil {
		log.Printf("processing pending notifications: %v", err)
	}

	retention := time.Duration(s.cfg.Notification.RetentionDays) * 24 * time.Hour
	if n, err := s.store.PurgeTerminalNotifications(ctx, now.Add(-retention)); err != nil {
		log.Printf("purging terminal notifications: %v", err)
	} else if n > 0 {
		log.Printf("purged %d terminal notifications", n)
	}
}

// methodFor resolves the user's preferred delivery method.
func (s *Service) methodFor(ctx context.Context, userID int64) model.DeliveryMethod {
	settings, err := s.store.GetUserSettings(ctx, userID)
	if err != nil {
		return model.MethodInApp
	}
	return settings.DefaultMethod
}

func (s *Service) machineName(ctx context.Context, id int64) string {
	machine, err := s.store.GetMachine(ctx, id)
	if err != nil {
		return "your machine"
	}
	return machine.Name
}

func (s *Service) completeReservations(ctx context.Context, now time.Time) {
	done, err := s.store.CompleteDueReservations(ctx, now)
	if err != nil {
		log.Printf("completing due reservations: %v", err)
		return
	}
	var notices []*model.Notification
	for i := range done {
		r := &done[i]
		notices = append(notices, notification.CycleComplete(
			s.methodFor(ctx, r.UserID), r, s.machineName(ctx, r.MachineID)))
	}
	if err := s.store.CreateNotifications(ctx, notices); err != nil {
		log.Printf("creating cycle-complete notices: %v", err)
	}
}

func (s *Service) sendReminders(ctx context.Context, now time.Time) {
	lead := time.Duration(s.cfg.Booking.ReminderLeadMin) * time.Minute
	due, err := s.store.DueReminders(ctx, now, lead)
	if err != nil {
		log.Printf("selecting due reminders: %v", err)
		return
	}
	var notices []*model.Notification
	for i := range due {
		r := &due[i]
		notices = append(notices, notification.Reminder(
			s.methodFor(ctx, r.UserID), r, s.machineName(ctx, r.MachineID)))
	}
	if err := s.store.CreateNotifications(ctx, notices); err != nil {
		log.Printf("creating reminder notices: %v", err)
	}
}

func (s *Service) reevaluateQueues(ctx context.Context, now time.Time) {
	promoted, err := s.queue.ReevaluateAvailability(ctx, now)
	if err != nil {
		log.Printf("reevaluating queue availability: %v", err)
		return
	}
	var notices []*model.Notification
	for i := range promoted {
		p := &promoted[i]
		if !p.Entry.NotifyOnAvailable {
			continue
		}
		notices = append(notices, notification.MachineAvailable(
			s.methodFor(ctx, p.Entry.UserID), &p.Entry, p.Machine.Name,
			s.cfg.Queue.NotifyHoldMinutes))
	}
	if err := s.store.CreateNotifications(ctx, notices); err != nil {
		log.Printf("creating machine-available notices: %v", err)
	}
}

func (s *Service) expireQueueHolds(ctx context.Context, now time.Time) {
	hold := time.Duration(s.cfg.Queue.NotifyHoldMinutes) * time.Minute
	expired, shifted, err := s.queue.ExpireStale(ctx, now, hold)
	if err != nil {
		log.Printf("expiring stale queue holds: %v", err)
		return
	}
	if len(expired) > 0 {
		log.Printf("expired %d unclaimed queue holds", len(expired))
	}
	var notices []*model.Notification
	for i := range shifted {
		e := &shifted[i]
		if !e.NotifyOnAvailable {
			continue
		}
		notices = append(notices, notification.QueuePositionUpdate(
			s.methodFor(ctx, e.UserID), e, queue.PartitionOf(e).String()))
	}
	if err := s.store.CreateNotifications(ctx, notices); err != nil {
		log.Printf("creating queue-position notices: %v", err)
	}
}
