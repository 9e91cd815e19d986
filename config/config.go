package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Booking      BookingConfig      `yaml:"booking"`
	Queue        QueueConfig        `yaml:"queue"`
	Notification NotificationConfig `yaml:"notification"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Push         PushConfig         `yaml:"push"`
	WorkerPool   WorkerPoolConfig   `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// BookingConfig holds the reservation policy knobs.
type BookingConfig struct {
	OpenHour           int    `yaml:"open_hour"`
	CloseHour          int    `yaml:"close_hour"`
	SlotMinutes        int    `yaml:"slot_minutes"`
	MinDurationMinutes int    `yaml:"min_duration_minutes"`
	MaxDurationMinutes int    `yaml:"max_duration_minutes"`
	SearchHorizonDays  int    `yaml:"search_horizon_days"`
	CancelCutoffMin    int    `yaml:"cancel_cutoff_minutes"`
	UpdateCutoffMin    int    `yaml:"update_cutoff_minutes"`
	ReminderLeadMin    int    `yaml:"reminder_lead_minutes"`
	Timezone           string `yaml:"timezone"`
}

// QueueConfig holds the waitlist policy knobs.
type QueueConfig struct {
	FallbackCycleMinutes int `yaml:"fallback_cycle_minutes"`
	NotifyHoldMinutes    int `yaml:"notify_hold_minutes"`
}

// NotificationConfig holds delivery retry policy.
type NotificationConfig struct {
	MaxAttempts        int `yaml:"max_attempts"`
	BackoffBaseMinutes int `yaml:"backoff_base_minutes"`
	BatchSize          int `yaml:"batch_size"`
	RetentionDays      int `yaml:"retention_days"`
}

// SchedulerConfig controls the background tick loop.
type SchedulerConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Booking.OpenHour <= 0 {
		cfg.Booking.OpenHour = 6
	}
	if cfg.Booking.CloseHour <= 0 {
		cfg.Booking.CloseHour = 23
	}
	if cfg.Booking.SlotMinutes <= 0 {
		cfg.Booking.SlotMinutes = 30
	}
	if cfg.Booking.MinDurationMinutes <= 0 {
		cfg.Booking.MinDurationMinutes = 30
	}
	if cfg.Booking.MaxDurationMinutes <= 0 {
		cfg.Booking.MaxDurationMinutes = 180
	}
	if cfg.Booking.SearchHorizonDays <= 0 {
		cfg.Booking.SearchHorizonDays = 7
	}
	if cfg.Booking.CancelCutoffMin <= 0 {
		cfg.Booking.CancelCutoffMin = 15
	}
	if cfg.Booking.UpdateCutoffMin <= 0 {
		cfg.Booking.UpdateCutoffMin = 30
	}
	if cfg.Booking.ReminderLeadMin <= 0 {
		cfg.Booking.ReminderLeadMin = 30
	}

	if cfg.Queue.FallbackCycleMinutes <= 0 {
		cfg.Queue.FallbackCycleMinutes = 30
	}
	if cfg.Queue.NotifyHoldMinutes <= 0 {
		cfg.Queue.NotifyHoldMinutes = 15
	}

	if cfg.Notification.MaxAttempts <= 0 {
		cfg.Notification.MaxAttempts = 3
	}
	if cfg.Notification.BackoffBaseMinutes <= 0 {
		cfg.Notification.BackoffBaseMinutes = 5
	}
	if cfg.Notification.BatchSize <= 0 {
		cfg.Notification.BatchSize = 100
	}
	if cfg.Notification.RetentionDays <= 0 {
		cfg.Notification.RetentionDays = 30
	}

	if cfg.Scheduler.IntervalSeconds <= 0 {
		cfg.Scheduler.IntervalSeconds = 60
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
