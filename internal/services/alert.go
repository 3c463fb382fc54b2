package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gasy-hub-backend/internal/models"
	"gasy-hub-backend/internal/repository"

	"github.com/google/uuid"
)

const defaultReason = "other"

// AlertService runs the alert lifecycle: submission, votes, resolution and
// administrative overrides
type AlertService struct {
	alertRepo AlertStore
	userRepo  UserStore
	auditRepo AuditStore
	policy    Policy
	now       func() time.Time
}

// NewAlertService creates a new alert service
func NewAlertService(alertRepo AlertStore, userRepo UserStore, auditRepo AuditStore, policy Policy) *AlertService {
	return &AlertService{
		alertRepo: alertRepo,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		policy:    policy,
		now:       time.Now,
	}
}

// SubmitRequest holds the fields of a new alert
type SubmitRequest struct {
	Reason      string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	Urgency     models.Urgency
	Media       models.Media
	AuthorID    string
}

// Submit creates a new alert in the pending state
func (s *AlertService) Submit(ctx context.Context, req SubmitRequest) (*models.Alert, error) {
	description := strings.TrimSpace(req.Description)
	location := strings.TrimSpace(req.Location)
	if description == "" {
		return nil, newError(ErrValidation, "description is required")
	}
	if location == "" {
		return nil, newError(ErrValidation, "location is required")
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = models.UrgencyMedium
	}
	if !urgency.Valid() {
		return nil, newError(ErrValidation, "urgency must be low, medium or high")
	}

	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, newError(ErrValidation, "latitude and longitude must be given together")
	}

	if req.AuthorID == "" {
		return nil, newError(ErrValidation, "author is required")
	}
	author, err := s.userRepo.GetByID(ctx, req.AuthorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrValidation, "author does not exist")
		}
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultReason
	}

	now := s.now()
	alert := &models.Alert{
		ID:          uuid.New().String(),
		AuthorID:    author.ID,
		Reason:      reason,
		Description: description,
		Location:    location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Urgency:     urgency,
		Status:      s.policy.initialStatus(author),
		ValidatedBy: []string{},
		Media:       req.Media,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.alertRepo.Create(ctx, alert); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrValidation, "author does not exist")
		}
		return nil, err
	}
	return alert, nil
}

// Get retrieves a single alert
func (s *AlertService) Get(ctx context.Context, alertID string) (*models.Alert, error) {
	alert, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, fromStore(err, "alert")
	}
	return alert, nil
}

// List retrieves alerts newest first. status may be empty for all alerts.
func (s *AlertService) List(ctx context.Context, status models.AlertStatus, limit, offset int) ([]*models.Alert, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, newError(ErrValidation, "unknown status %q", status)
	}
	if limit <= 0 {
		return nil, 0, newError(ErrValidation, "limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}
	return s.alertRepo.List(ctx, status, limit, offset)
}

// HasVoted reports whether the user already validated the alert
func (s *AlertService) HasVoted(ctx context.Context, alertID, userID string) (bool, error) {
	alert, err := s.Get(ctx, alertID)
	if err != nil {
		return false, err
	}
	return HasVoted(alert, userID), nil
}

// Vote records a confirm or reject vote. A non-empty note is stored as a
// green or red comment in the same transaction as the vote.
func (s *AlertService) Vote(ctx context.Context, alertID, userID string, confirm bool, note string) (*models.Alert, error) {
	voter, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "user")
	}

	note = strings.TrimSpace(note)
	alert, err := s.alertRepo.Mutate(ctx, alertID, func(a *models.Alert) (*repository.AlertEffects, error) {
		now := s.now()
		if err := s.policy.vote(a, voter, confirm, now); err != nil {
			return nil, err
		}

		effects := &repository.AlertEffects{VoterID: voter.ID}
		if note != "" {
			kind := models.CommentGreen
			if !confirm {
				kind = models.CommentRed
			}
			effects.Comment = &models.Comment{
				ID:        uuid.New().String(),
				AlertID:   a.ID,
				UserID:    voter.ID,
				Type:      kind,
				Content:   note,
				CreatedAt: now,
			}
		}
		return effects, nil
	})
	if err != nil {
		return nil, fromStore(err, "alert")
	}
	return alert, nil
}

// MarkResolved resolves an alert on behalf of its author or an admin
func (s *AlertService) MarkResolved(ctx context.Context, alertID, userID string) (*models.Alert, error) {
	actor, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "user")
	}

	alert, err := s.alertRepo.Mutate(ctx, alertID, func(a *models.Alert) (*repository.AlertEffects, error) {
		previous := a.Status
		now := s.now()
		if err := s.policy.resolve(a, actor, now); err != nil {
			return nil, err
		}
		return &repository.AlertEffects{
			Audit: newAuditEntry(a.ID, actor.ID, models.AuditResolve, previous, a.Status, now),
		}, nil
	})
	if err != nil {
		return nil, fromStore(err, "alert")
	}
	return alert, nil
}

// AdminOverride sets an alert to confirmed or fake regardless of its votes
func (s *AlertService) AdminOverride(ctx context.Context, alertID, actorID string, target models.AlertStatus) (*models.Alert, error) {
	actor, err := s.requireAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}

	alert, err := s.alertRepo.Mutate(ctx, alertID, func(a *models.Alert) (*repository.AlertEffects, error) {
		previous := a.Status
		now := s.now()
		if err := override(a, actor, target, now); err != nil {
			return nil, err
		}
		return &repository.AlertEffects{
			Audit: newAuditEntry(a.ID, actor.ID, models.AuditOverride, previous, a.Status, now),
		}, nil
	})
	if err != nil {
		return nil, fromStore(err, "alert")
	}
	return alert, nil
}

// ChangeStatus routes a status request: "resolved" goes through MarkResolved,
// "confirmed" and "fake" through AdminOverride
func (s *AlertService) ChangeStatus(ctx context.Context, alertID, userID string, status models.AlertStatus) (*models.Alert, error) {
	switch status {
	case models.StatusResolved:
		return s.MarkResolved(ctx, alertID, userID)
	case models.StatusConfirmed, models.StatusFake:
		return s.AdminOverride(ctx, alertID, userID, status)
	}
	return nil, newError(ErrValidation, "status must be resolved, confirmed or fake")
}

// Delete removes an alert. Admin only.
func (s *AlertService) Delete(ctx context.Context, alertID, actorID string) error {
	actor, err := s.requireAdmin(ctx, actorID)
	if err != nil {
		return err
	}

	// the store fills in the previous status in the deleting transaction
	entry := newAuditEntry(alertID, actor.ID, models.AuditDelete, "", "", s.now())
	return fromStore(s.alertRepo.Delete(ctx, alertID, entry), "alert")
}

// AuditTrail returns the status changes recorded for an alert. Admin only.
// Deleted alerts keep their trail; an id with neither alert nor trail is not found.
func (s *AlertService) AuditTrail(ctx context.Context, alertID, actorID string) ([]*models.AuditEntry, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	entries, err := s.auditRepo.ListByAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries, nil
	}
	if _, err := s.alertRepo.GetByID(ctx, alertID); err != nil {
		return nil, fromStore(err, "alert")
	}
	return entries, nil
}

func (s *AlertService) requireAdmin(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "user")
	}
	if !user.IsAdmin {
		return nil, newError(ErrForbidden, "admin rights required")
	}
	return user, nil
}

func newAuditEntry(alertID, actorID string, action models.AuditAction, previous, next models.AlertStatus, at time.Time) *models.AuditEntry {
	return &models.AuditEntry{
		ID:             uuid.New().String(),
		AlertID:        alertID,
		ActorID:        actorID,
		Action:         action,
		PreviousStatus: previous,
		NewStatus:      next,
		CreatedAt:      at,
	}
}
