package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/mw"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/queue"
	"laundry-booking-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, q *queue.Manager, pool *notification.WorkerPool, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(cfg, s, q, pool, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Public, cacheable read surface.
		api.GET("/machines", caching, handler.GetMachines)
		api.GET("/machines/:machine_id/slots", caching, handler.GetMachineSlots)
		api.GET("/machines/:machine_id/next-slot", handler.GetNextAvailableSlot)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		// Operations tooling.
		api.PUT("/machines/:machine_id/status", handler.SetMachineStatus)
		api.POST("/machines/:machine_id/maintenance", handler.ScheduleMaintenance)
		api.POST("/announcements", handler.CreateAnnouncement)

		// Everything below requires the authenticated user id.
		user := api.Group("")
		user.Use(mw.Identity())
		{
			user.POST("/reservations", handler.CreateReservation)
			user.GET("/reservations", handler.ListReservations)
			user.PATCH("/reservations/:reservation_id", handler.UpdateReservation)
			user.DELETE("/reservations/:reservation_id", handler.CancelReservation)

			user.POST("/queue", handler.JoinQueue)
			user.GET("/queue/:entry_id", handler.GetQueueEntry)
			user.DELETE("/queue/:entry_id", handler.LeaveQueue)

			user.GET("/notifications", handler.ListNotifications)
			user.POST("/notifications/:notification_id/delivered", handler.MarkNotificationDelivered)
			user.POST("/notifications/:notification_id/read", handler.MarkNotificationRead)

			user.GET("/settings", handler.GetSettings)
			user.PUT("/settings", handler.PutSettings)

			user.GET("/subscriptions", handler.GetSubscriptions)
			user.PUT("/subscriptions", handler.PutSubscription)
			user.DELETE("/subscriptions", handler.DeleteSubscription)
		}
	}

	return r
}
