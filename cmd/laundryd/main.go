package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/api"
	"laundry-booking-backend/internal/db"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/queue"
	"laundry-booking-backend/internal/sched"
	"laundry-booking-backend/internal/schedule"
	"laundry-booking-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "laundry-booking ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB, store.Options{
		Policy: schedule.Policy{
			OpenHour:           cfg.Booking.OpenHour,
			CloseHour:          cfg.Booking.CloseHour,
			SlotMinutes:        cfg.Booking.SlotMinutes,
			MinDurationMinutes: cfg.Booking.MinDurationMinutes,
			MaxDurationMinutes: cfg.Booking.MaxDurationMinutes,
			SearchHorizonDays:  cfg.Booking.SearchHorizonDays,
		},
		CancelCutoffMinutes:     cfg.Booking.CancelCutoffMin,
		UpdateCutoffMinutes:     cfg.Booking.UpdateCutoffMin,
		NotificationMaxAttempts: cfg.Notification.MaxAttempts,
	})
	logger.Println("data store initialized")

	queueManager := queue.NewManager(gormDB, cfg.Queue.FallbackCycleMinutes)

	processor := notification.NewProcessor(gormDB,
		time.Duration(cfg.Notification.BackoffBaseMinutes)*time.Minute)
	processor.Register(model.MethodInApp, notification.InAppSender{})
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		processor.Register(model.MethodPush, notification.NewPushSender(gormDB, &webpushOptions))
	} else {
		logger.Println("VAPID keys not configured; push delivery disabled")
	}

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, processor)
	pool.Start(ctx)

	schedSvc := sched.NewService(cfg, appStore, queueManager, processor)
	go schedSvc.Run(ctx)

	router := api.NewRouter(cfg, appStore, queueManager, pool, &webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
