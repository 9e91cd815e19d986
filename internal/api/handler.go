package api

import (
	"context"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/queue"
	"laundry-booking-backend/internal/schedule"
	"laundry-booking-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	queue   *queue.Manager
	pool    *notification.WorkerPool
	webpush *webpush.Options
	cfg     *config.Config
	policy  schedule.Policy
	loc     *time.Location
}

// NewHandler creates a new API handler.
func NewHandler(cfg *config.Config, s store.Store, q *queue.Manager, pool *notification.WorkerPool, webpushOptions *webpush.Options) *Handler {
	policy := schedule.Policy{
		OpenHour:           cfg.Booking.OpenHour,
		CloseHour:          cfg.Booking.CloseHour,
		SlotMinutes:        cfg.Booking.SlotMinutes,
		MinDurationMinutes: cfg.Booking.MinDurationMinutes,
		MaxDurationMinutes: cfg.Booking.MaxDurationMinutes,
		SearchHorizonDays:  cfg.Booking.SearchHorizonDays,
	}
	loc := time.Local
	if cfg.Booking.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Booking.Timezone); err == nil {
			loc = l
		}
	}
	return &Handler{
		store:   s,
		queue:   q,
		pool:    pool,
		webpush: webpushOptions,
		cfg:     cfg,
		policy:  policy,
		loc:     loc,
	}
}

// methodFor resolves the user's preferred delivery method for new notices.
func (h *Handler) methodFor(ctx context.Context, userID int64) model.DeliveryMethod {
	settings, err := h.store.GetUserSettings(ctx, userID)
	if err != nil {
		return model.MethodInApp
	}
	return settings.DefaultMethod
}

// notify persists a notice and hands it to the worker pool without
// blocking the request when the pool is saturated; the scheduler's
// pending-notification drain picks up anything left behind.
func (h *Handler) notify(ctx context.Context, n *model.Notification) {
	if err := h.store.CreateNotification(ctx, n); err != nil {
		log.Printf("creating %s notice for user %d: %v", n.Type, n.UserID, err)
		return
	}
	select {
	case h.pool.Jobs() <- n.ID:
	default:
	}
}
