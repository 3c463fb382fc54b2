package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"gasy-hub-backend/internal/models"
	"gasy-hub-backend/internal/repository/memory"

	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	mu     sync.Mutex
	pushed []*apns2.Notification
	reject map[string]bool
	fail   map[string]bool
}

func (f *fakePusher) PushWithContext(_ apns2.Context, n *apns2.Notification) (*apns2.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail[n.DeviceToken] {
		return nil, errors.New("connection reset")
	}
	f.pushed = append(f.pushed, n)
	if f.reject[n.DeviceToken] {
		return &apns2.Response{StatusCode: http.StatusBadRequest, Reason: apns2.ReasonBadDeviceToken}, nil
	}
	return &apns2.Response{StatusCode: http.StatusOK}, nil
}

func seedPushUsers(t *testing.T, store *memory.Store, tokens map[string]string) {
	t.Helper()
	ctx := context.Background()
	for id, token := range tokens {
		require.NoError(t, store.Users().Create(ctx, &models.User{ID: id, Name: id, Phone: "+261" + id}))
		if token != "" {
			tok := token
			require.NoError(t, store.Users().UpdatePushToken(ctx, id, &tok))
		}
	}
}

func TestNotifyNewAlert(t *testing.T) {
	store := memory.New()
	seedPushUsers(t, store, map[string]string{
		"author": "tok-author",
		"u1":     "tok-1",
		"u2":     "tok-2",
		"u3":     "tok-3",
		"u4":     "",
	})
	pusher := &fakePusher{reject: map[string]bool{"tok-2": true}, fail: map[string]bool{"tok-3": true}}
	svc := newPushService(pusher, store.Users(), "mg.gasyhub.app", time.Second)

	alert := &models.Alert{
		ID:          "a1",
		AuthorID:    "author",
		Reason:      "Vol",
		Description: "Sac volé",
		Location:    "Analakely",
		Urgency:     models.UrgencyHigh,
	}
	sent, err := svc.NotifyNewAlert(context.Background(), alert)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, pusher.pushed, 2)
	for _, n := range pusher.pushed {
		assert.NotEqual(t, "tok-author", n.DeviceToken)
		assert.Equal(t, "mg.gasyhub.app", n.Topic)
		assert.Equal(t, apns2.PriorityHigh, n.Priority)
	}
}

func TestNotifyNewAlertSkipsLowUrgency(t *testing.T) {
	store := memory.New()
	seedPushUsers(t, store, map[string]string{"author": "", "u1": "tok-1"})
	pusher := &fakePusher{}
	svc := newPushService(pusher, store.Users(), "mg.gasyhub.app", 0)

	for _, urgency := range []models.Urgency{models.UrgencyLow, models.UrgencyMedium} {
		sent, err := svc.NotifyNewAlert(context.Background(), &models.Alert{ID: "a1", AuthorID: "author", Urgency: urgency})
		require.NoError(t, err)
		assert.Zero(t, sent)
	}
	assert.Empty(t, pusher.pushed)
}

func TestNewPushServiceMissingKey(t *testing.T) {
	_, err := NewPushService(PushOptions{KeyFile: "/nonexistent/AuthKey.p8"}, memory.New().Users())
	assert.Error(t, err)
}
