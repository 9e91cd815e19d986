package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"laundry-booking-backend/internal/apperr"
	"laundry-booking-backend/internal/model"
)

// mockDispatcher scripts the low-level web push call per endpoint.
type mockDispatcher struct {
	responses map[string]int
	sent      []string
}

func (m *mockDispatcher) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	m.sent = append(m.sent, sub.Endpoint)
	status, ok := m.responses[sub.Endpoint]
	if !ok {
		status = http.StatusCreated
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}, nil
}

func newPushSenderForTest(db *gorm.DB, d WebPushDispatcher) *PushSender {
	s := NewPushSender(db, &webpush.Options{})
	s.dispatcher = d
	return s
}

func TestPushSender(t *testing.T) {
	ctx := context.Background()
	notice := &model.Notification{
		UserID: 100,
		Type:   model.NoticeMachineAvailable,
		Title:  "Machine available",
		Body:   "Washer 1 is free now.",
		Method: model.MethodPush,
	}

	t.Run("delivers to every subscription of the user", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, db.Create(&[]model.PushSubscription{
			{Endpoint: "https://push.example/a", UserID: 100, P256DH: "k1", Auth: "a1"},
			{Endpoint: "https://push.example/b", UserID: 100, P256DH: "k2", Auth: "a2"},
			{Endpoint: "https://push.example/other", UserID: 999, P256DH: "k3", Auth: "a3"},
		}).Error)

		dispatcher := &mockDispatcher{}
		sender := newPushSenderForTest(db, dispatcher)

		require.NoError(t, sender.Send(ctx, notice))
		assert.ElementsMatch(t,
			[]string{"https://push.example/a", "https://push.example/b"},
			dispatcher.sent, "only the recipient's subscriptions are pushed to")
	})

	t.Run("no subscriptions is a transport failure", func(t *testing.T) {
		db := newTestDB(t)
		sender := newPushSenderForTest(db, &mockDispatcher{})

		err := sender.Send(ctx, notice)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindTransportFailure))
	})

	t.Run("expired subscriptions are pruned", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, db.Create(&[]model.PushSubscription{
			{Endpoint: "https://push.example/gone", UserID: 100, P256DH: "k1", Auth: "a1"},
			{Endpoint: "https://push.example/live", UserID: 100, P256DH: "k2", Auth: "a2"},
		}).Error)

		dispatcher := &mockDispatcher{responses: map[string]int{
			"https://push.example/gone": http.StatusGone,
		}}
		sender := newPushSenderForTest(db, dispatcher)

		// One live subscription accepted the payload, so the send succeeds.
		require.NoError(t, sender.Send(ctx, notice))

		var count int64
		require.NoError(t, db.Model(&model.PushSubscription{}).
			Where("endpoint = ?", "https://push.example/gone").Count(&count).Error)
		assert.Equal(t, int64(0), count, "the 410 subscription must be deleted")
	})

	t.Run("fails when every endpoint rejects", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, db.Create(&model.PushSubscription{
			Endpoint: "https://push.example/bad", UserID: 100, P256DH: "k1", Auth: "a1",
		}).Error)

		dispatcher := &mockDispatcher{responses: map[string]int{
			"https://push.example/bad": http.StatusBadRequest,
		}}
		sender := newPushSenderForTest(db, dispatcher)

		err := sender.Send(ctx, notice)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindTransportFailure))
	})
}
