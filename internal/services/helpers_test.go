package services

import (
	"context"
	"testing"
	"time"

	"gasy-hub-backend/internal/models"
	"gasy-hub-backend/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	store    *memory.Store
	alerts   *AlertService
	comments *CommentService
}

func newTestEnv(t *testing.T, policy Policy) *testEnv {
	t.Helper()
	store := memory.New()

	alerts := NewAlertService(store.Alerts(), store.Users(), store.Audit(), policy)
	alerts.now = func() time.Time { return testNow }

	comments := NewCommentService(store.Comments(), store.Alerts(), store.Users())
	comments.now = func() time.Time { return testNow.Add(time.Minute) }

	return &testEnv{store: store, alerts: alerts, comments: comments}
}

func (e *testEnv) addUser(t *testing.T, id string, admin bool) *models.User {
	t.Helper()
	user := &models.User{
		ID:        id,
		Name:      "User " + id,
		Phone:     "+2613400000" + id,
		IsAdmin:   admin,
		CreatedAt: testNow,
	}
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

func (e *testEnv) submit(t *testing.T, authorID string) *models.Alert {
	t.Helper()
	alert, err := e.alerts.Submit(context.Background(), SubmitRequest{
		Reason:      "Vol",
		Description: "Sac volé",
		Location:    "Analakely",
		Urgency:     models.UrgencyHigh,
		AuthorID:    authorID,
	})
	require.NoError(t, err)
	return alert
}
