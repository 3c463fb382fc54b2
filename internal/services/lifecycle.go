package services

import (
	"time"

	"gasy-hub-backend/internal/models"
)

// Policy holds the thresholds and gates of the alert state machine
type Policy struct {
	// ConfirmThreshold confirm votes move a pending alert to confirmed
	ConfirmThreshold int
	// FakeThreshold reject votes move a pending alert to fake, provided rejects
	// outnumber confirms. Zero disables the automatic fake transition.
	FakeThreshold int
	// AllowResolvePending lets the author or an admin resolve a pending alert
	AllowResolvePending bool
	// AutoConfirmVerified creates alerts from hasCIN authors as confirmed
	AutoConfirmVerified bool
}

// DefaultPolicy confirms at three votes and never marks an alert fake on its own
func DefaultPolicy() Policy {
	return Policy{ConfirmThreshold: 3, AllowResolvePending: true}
}

// initialStatus is the status of a freshly submitted alert
func (p Policy) initialStatus(author *models.User) models.AlertStatus {
	if p.AutoConfirmVerified && author.HasCIN {
		return models.StatusConfirmed
	}
	return models.StatusPending
}

// evaluate re-checks the thresholds after a vote. Only pending alerts move,
// so each transition happens at most once. It reports whether status changed.
func (p Policy) evaluate(alert *models.Alert) bool {
	if alert.Status != models.StatusPending {
		return false
	}
	if p.ConfirmThreshold > 0 && alert.ConfirmedCount >= p.ConfirmThreshold {
		alert.Status = models.StatusConfirmed
		return true
	}
	if p.FakeThreshold > 0 && alert.RejectedCount >= p.FakeThreshold &&
		alert.RejectedCount > alert.ConfirmedCount {
		alert.Status = models.StatusFake
		return true
	}
	return false
}

// vote applies a validation vote by voter to alert
func (p Policy) vote(alert *models.Alert, voter *models.User, confirm bool, now time.Time) error {
	if alert.AuthorID == voter.ID {
		return newError(ErrForbidden, "you cannot vote on your own alert")
	}
	if alert.Status == models.StatusResolved {
		return newError(ErrValidation, "alert is resolved")
	}
	if err := RecordVote(alert, voter.ID, confirm); err != nil {
		return err
	}
	p.evaluate(alert)
	alert.UpdatedAt = now
	return nil
}

// resolve marks the alert resolved on behalf of actor
func (p Policy) resolve(alert *models.Alert, actor *models.User, now time.Time) error {
	if actor.ID != alert.AuthorID && !actor.IsAdmin {
		return newError(ErrForbidden, "only the author or an admin can resolve this alert")
	}

	switch alert.Status {
	case models.StatusConfirmed:
	case models.StatusPending:
		if !p.AllowResolvePending {
			return newError(ErrValidation, "alert must be confirmed before it can be resolved")
		}
	default:
		return newError(ErrValidation, "alert cannot be resolved from status %s", alert.Status)
	}

	alert.Status = models.StatusResolved
	alert.ResolvedAt = &now
	alert.UpdatedAt = now
	return nil
}

// override sets the status directly, bypassing vote counts
func override(alert *models.Alert, actor *models.User, target models.AlertStatus, now time.Time) error {
	if !actor.IsAdmin {
		return newError(ErrForbidden, "admin rights required")
	}
	if target != models.StatusConfirmed && target != models.StatusFake {
		return newError(ErrValidation, "status must be confirmed or fake")
	}
	alert.Status = target
	alert.ResolvedAt = nil
	alert.UpdatedAt = now
	return nil
}
