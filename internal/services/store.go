package services

import (
	"context"

	"gasy-hub-backend/internal/models"
	"gasy-hub-backend/internal/repository"
)

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	SetVerified(ctx context.Context, userID string, hasCIN bool) error
	ListPushTokens(ctx context.Context, excludeUserID string) ([]string, error)
}

// AlertStore persists alerts. Mutate must run fn and commit its result atomically
// with respect to other calls on the same alert.
type AlertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	List(ctx context.Context, status models.AlertStatus, limit, offset int) ([]*models.Alert, int, error)
	Mutate(ctx context.Context, id string, fn repository.AlertMutation) (*models.Alert, error)
	Delete(ctx context.Context, id string, audit *models.AuditEntry) error
}

// CommentStore persists comment threads
type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByAlert(ctx context.Context, alertID string) ([]*models.Comment, error)
}

// AuditStore reads the alert audit log
type AuditStore interface {
	ListByAlert(ctx context.Context, alertID string) ([]*models.AuditEntry, error)
}
