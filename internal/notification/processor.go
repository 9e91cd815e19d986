package notification

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-booking-backend/internal/apperr"
	"laundry-booking-backend/internal/model"
)

// lockRow issues SELECT ... FOR UPDATE on dialects that support it, so
// concurrent workers serialize on one notification row. SQLite
// transactions are single-writer already.
func lockRow(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// Backoff returns the delay before the retry following the given attempt
// count: base * 2^attempts. With the 5-minute base that is 10, 20 and 40
// minutes after attempts 1, 2 and 3.
func Backoff(base time.Duration, attempts int) time.Duration {
	return base * (1 << attempts)
}

// Processor applies the delivery state machine to stored notifications.
type Processor struct {
	db          *gorm.DB
	senders     map[model.DeliveryMethod]Sender
	backoffBase time.Duration
	now         func() time.Time
}

// NewProcessor creates a processor with the given backoff base (5 minutes
// in the default policy).
func NewProcessor(db *gorm.DB, backoffBase time.Duration) *Processor {
	if backoffBase <= 0 {
		backoffBase = 5 * time.Minute
	}
	return &Processor{
		db:          db,
		senders:     make(map[model.DeliveryMethod]Sender),
		backoffBase: backoffBase,
		now:         time.Now,
	}
}

// Register installs the sender for a delivery method. Methods without a
// sender (e.g. EMAIL when the host supplies no mailer) fail transport and
// flow into backoff like any other delivery failure.
func (p *Processor) Register(method model.DeliveryMethod, sender Sender) {
	p.senders[method] = sender
}

// notificationsEnabled checks the recipient's preference; a missing
// settings row means enabled.
func notificationsEnabled(tx *gorm.DB, userID int64) (bool, error) {
	var settings model.UserSettings
	err := tx.First(&settings, "user_id = ?", userID).Error
	if err == gorm.ErrRecordNotFound {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return settings.NotificationsEnabled, nil
}

// Process runs one step of the state machine for notification id. The
// whole step, transport attempt included, runs in one transaction with
// the row locked, so a pool worker and the scheduler drain handed the
// same id serialize and the attempt counter is never overwritten.
//
// Already-terminal notifications are a no-op. A recipient who disabled
// notifications gets an immediate DELIVERED without any transport call: a
// deliberate silent success, distinct from FAILED. A notification whose
// retry budget is already spent is marked FAILED and reported to the
// caller. Otherwise one transport attempt is made; its failure is
// converted into backoff state and never propagated.
func (p *Processor) Process(ctx context.Context, id int64) error {
	var outcome error
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n model.Notification
		if err := lockRow(tx).First(&n, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("notification_not_found", "notification not found")
			}
			return err
		}

		if n.Status.Terminal() {
			if n.Status == model.NotificationFailed {
				outcome = apperr.ExhaustedRetries("notification delivery already failed permanently")
			}
			return nil
		}

		enabled, err := notificationsEnabled(tx, n.UserID)
		if err != nil {
			return err
		}
		if !enabled {
			n.Status = model.NotificationDelivered
			return tx.Save(&n).Error
		}

		if n.Attempts >= n.MaxAttempts {
			n.Status = model.NotificationFailed
			outcome = apperr.ExhaustedRetries("notification retry budget exhausted")
			return tx.Save(&n).Error
		}

		var sendErr error
		if sender, ok := p.senders[n.Method]; ok {
			sendErr = sender.Send(ctx, &n)
		} else {
			sendErr = apperr.TransportFailure("no sender registered for method "+string(n.Method), nil)
		}

		now := p.now()
		n.Attempts++
		n.LastAttemptAt = &now

		if sendErr != nil {
			log.Printf("notification %d attempt %d failed: %v", n.ID, n.Attempts, sendErr)
			if n.Attempts >= n.MaxAttempts {
				// Final attempt: terminal failure, no further retry scheduled.
				n.Status = model.NotificationFailed
				n.NextRetryAt = nil
			} else {
				retryAt := now.Add(Backoff(p.backoffBase, n.Attempts))
				n.NextRetryAt = &retryAt
			}
			return tx.Save(&n).Error
		}

		n.NextRetryAt = nil
		if n.Method == model.MethodInApp {
			n.Status = model.NotificationDelivered
		} else {
			n.Status = model.NotificationSent
		}
		return tx.Save(&n).Error
	})
	if err != nil {
		return err
	}
	return outcome
}

// ProcessPending selects up to limit due notifications and processes each
// independently: one failing transport call neither blocks nor fails the
// rest of the batch. It returns how many notifications were picked up.
func (p *Processor) ProcessPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	now := p.now()

	var due []model.Notification
	if err := p.db.WithContext(ctx).
		Where("status = ? AND attempts < max_attempts AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			model.NotificationPending, now).
		Order("id").
		Limit(limit).
		Find(&due).Error; err != nil {
		return 0, err
	}

	for i := range due {
		if err := p.Process(ctx, due[i].ID); err != nil {
			log.Printf("processing notification %d: %v", due[i].ID, err)
		}
	}
	return len(due), nil
}
