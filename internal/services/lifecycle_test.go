package services

import (
	"testing"

	"gasy-hub-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateConfirmThreshold(t *testing.T) {
	p := Policy{ConfirmThreshold: 3}
	alert := &models.Alert{Status: models.StatusPending, ConfirmedCount: 2}

	assert.False(t, p.evaluate(alert))
	assert.Equal(t, models.StatusPending, alert.Status)

	alert.ConfirmedCount = 3
	assert.True(t, p.evaluate(alert))
	assert.Equal(t, models.StatusConfirmed, alert.Status)

	// already confirmed: nothing more happens
	alert.ConfirmedCount = 4
	assert.False(t, p.evaluate(alert))
}

func TestEvaluateFakeThreshold(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		confirmed int
		rejected  int
		want      models.AlertStatus
	}{
		{"disabled", Policy{ConfirmThreshold: 3}, 0, 10, models.StatusPending},
		{"below threshold", Policy{ConfirmThreshold: 3, FakeThreshold: 3}, 0, 2, models.StatusPending},
		{"reached", Policy{ConfirmThreshold: 3, FakeThreshold: 3}, 1, 3, models.StatusFake},
		{"rejects do not outnumber confirms", Policy{ConfirmThreshold: 5, FakeThreshold: 3}, 4, 4, models.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := &models.Alert{Status: models.StatusPending, ConfirmedCount: tt.confirmed, RejectedCount: tt.rejected}
			tt.policy.evaluate(alert)
			assert.Equal(t, tt.want, alert.Status)
		})
	}
}

func TestPolicyVoteRules(t *testing.T) {
	p := DefaultPolicy()
	author := &models.User{ID: "u1"}
	voter := &models.User{ID: "u2"}

	alert := &models.Alert{AuthorID: "u1", Status: models.StatusPending, ValidatedBy: []string{}}
	err := p.vote(alert, author, true, testNow)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, p.vote(alert, voter, false, testNow))
	assert.Equal(t, 1, alert.RejectedCount)
	assert.Equal(t, testNow, alert.UpdatedAt)

	err = p.vote(alert, voter, true, testNow)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Equal(t, 0, alert.ConfirmedCount)

	resolved := &models.Alert{AuthorID: "u1", Status: models.StatusResolved}
	assert.ErrorIs(t, p.vote(resolved, voter, true, testNow), ErrValidation)
}

func TestPolicyResolve(t *testing.T) {
	author := &models.User{ID: "u1"}
	stranger := &models.User{ID: "u2"}
	admin := &models.User{ID: "admin", IsAdmin: true}

	t.Run("stranger is forbidden", func(t *testing.T) {
		alert := &models.Alert{AuthorID: "u1", Status: models.StatusConfirmed}
		assert.ErrorIs(t, DefaultPolicy().resolve(alert, stranger, testNow), ErrForbidden)
		assert.Equal(t, models.StatusConfirmed, alert.Status)
		assert.Nil(t, alert.ResolvedAt)
	})

	t.Run("author resolves confirmed", func(t *testing.T) {
		alert := &models.Alert{AuthorID: "u1", Status: models.StatusConfirmed}
		require.NoError(t, DefaultPolicy().resolve(alert, author, testNow))
		assert.Equal(t, models.StatusResolved, alert.Status)
		require.NotNil(t, alert.ResolvedAt)
		assert.Equal(t, testNow, *alert.ResolvedAt)
	})

	t.Run("admin resolves pending", func(t *testing.T) {
		alert := &models.Alert{AuthorID: "u1", Status: models.StatusPending}
		require.NoError(t, DefaultPolicy().resolve(alert, admin, testNow))
		assert.Equal(t, models.StatusResolved, alert.Status)
	})

	t.Run("pending gated off", func(t *testing.T) {
		p := DefaultPolicy()
		p.AllowResolvePending = false
		alert := &models.Alert{AuthorID: "u1", Status: models.StatusPending}
		assert.ErrorIs(t, p.resolve(alert, author, testNow), ErrValidation)
	})

	t.Run("fake and resolved are final", func(t *testing.T) {
		for _, status := range []models.AlertStatus{models.StatusFake, models.StatusResolved} {
			alert := &models.Alert{AuthorID: "u1", Status: status}
			assert.ErrorIs(t, DefaultPolicy().resolve(alert, author, testNow), ErrValidation)
		}
	})
}

func TestOverride(t *testing.T) {
	admin := &models.User{ID: "admin", IsAdmin: true}
	resolvedAt := testNow

	alert := &models.Alert{Status: models.StatusResolved, ResolvedAt: &resolvedAt}
	require.NoError(t, override(alert, admin, models.StatusFake, testNow))
	assert.Equal(t, models.StatusFake, alert.Status)
	assert.Nil(t, alert.ResolvedAt)

	assert.ErrorIs(t, override(alert, admin, models.StatusPending, testNow), ErrValidation)
	assert.ErrorIs(t, override(alert, &models.User{ID: "u1"}, models.StatusConfirmed, testNow), ErrForbidden)
}

func TestInitialStatus(t *testing.T) {
	verified := &models.User{ID: "u1", HasCIN: true}

	assert.Equal(t, models.StatusPending, DefaultPolicy().initialStatus(verified))

	p := DefaultPolicy()
	p.AutoConfirmVerified = true
	assert.Equal(t, models.StatusConfirmed, p.initialStatus(verified))
	assert.Equal(t, models.StatusPending, p.initialStatus(&models.User{ID: "u2"}))
}
