package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  rate_limit_per_sec: 20
database:
  dsn: "host=localhost user=laundry dbname=laundry"
booking:
  open_hour: 7
  close_hour: 22
queue:
  notify_hold_minutes: 10
worker_pool:
  size: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 20.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, 7, cfg.Booking.OpenHour)
	assert.Equal(t, 22, cfg.Booking.CloseHour)
	assert.Equal(t, 10, cfg.Queue.NotifyHoldMinutes)
	assert.Equal(t, 8, cfg.WorkerPool.Size)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "host=localhost"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Booking.OpenHour)
	assert.Equal(t, 23, cfg.Booking.CloseHour)
	assert.Equal(t, 30, cfg.Booking.SlotMinutes)
	assert.Equal(t, 30, cfg.Booking.MinDurationMinutes)
	assert.Equal(t, 180, cfg.Booking.MaxDurationMinutes)
	assert.Equal(t, 15, cfg.Booking.CancelCutoffMin)
	assert.Equal(t, 30, cfg.Booking.UpdateCutoffMin)
	assert.Equal(t, 30, cfg.Queue.FallbackCycleMinutes)
	assert.Equal(t, 15, cfg.Queue.NotifyHoldMinutes)
	assert.Equal(t, 3, cfg.Notification.MaxAttempts)
	assert.Equal(t, 5, cfg.Notification.BackoffBaseMinutes)
	assert.Equal(t, 60, cfg.Scheduler.IntervalSeconds)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
