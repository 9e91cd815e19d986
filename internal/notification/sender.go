// Package notification drives each notice through the delivery state
// machine: PENDING -> SENT -> DELIVERED -> READ, or FAILED after the
// retry budget is spent. Counters and retry timestamps are persisted so
// retries survive process restarts.
package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"laundry-booking-backend/internal/apperr"
	"laundry-booking-backend/internal/model"
)

// Sender delivers one notification over a single method. Implementations
// report failure by returning an error; the processor turns that into
// backoff bookkeeping.
type Sender interface {
	Send(ctx context.Context, n *model.Notification) error
}

// WebPushDispatcher is the low-level web push call, kept behind an
// interface so tests can swap it out.
type WebPushDispatcher interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

type webPushDispatcher struct{}

func (webPushDispatcher) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// PushSender delivers notifications to every browser push subscription the
// recipient has registered. Expired subscriptions (HTTP 410) are pruned.
type PushSender struct {
	db         *gorm.DB
	options    *webpush.Options
	dispatcher WebPushDispatcher
}

// NewPushSender creates a web push sender using the given VAPID options.
func NewPushSender(db *gorm.DB, options *webpush.Options) *PushSender {
	return &PushSender{db: db, options: options, dispatcher: webPushDispatcher{}}
}

type pushPayload struct {
	Type  model.NotificationType `json:"type"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
}

// Send pushes to all of the user's subscriptions. It succeeds if at least
// one subscription accepted the payload.
func (s *PushSender) Send(ctx context.Context, n *model.Notification) error {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", n.UserID).Find(&subs).Error; err != nil {
		return apperr.TransportFailure("loading push subscriptions", err)
	}
	if len(subs) == 0 {
		return apperr.TransportFailure("user has no push subscription", nil)
	}

	payload, err := json.Marshal(pushPayload{Type: n.Type, Title: n.Title, Body: n.Body})
	if err != nil {
		return apperr.TransportFailure("encoding push payload", err)
	}

	delivered := 0
	for _, sub := range subs {
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256DH,
				Auth:   sub.Auth,
			},
		}
		resp, err := s.dispatcher.Send(payload, wpSub, s.options)
		if err != nil {
			log.Printf("push to %s failed: %v", sub.Endpoint, err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusGone {
			log.Printf("subscription %s is expired, deleting", sub.Endpoint)
			if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: sub.Endpoint}).Error; err != nil {
				log.Printf("failed to delete expired subscription %s: %v", sub.Endpoint, err)
			}
			continue
		}
		if resp.StatusCode >= 400 {
			log.Printf("push to %s rejected with status %d", sub.Endpoint, resp.StatusCode)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return apperr.TransportFailure("no push subscription accepted the notification", nil)
	}
	return nil
}

// InAppSender has nothing to transmit: the stored notification row is the
// in-app notice, so delivery succeeds immediately.
type InAppSender struct{}

func (InAppSender) Send(ctx context.Context, n *model.Notification) error { return nil }
