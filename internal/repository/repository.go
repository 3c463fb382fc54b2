package repository

import (
	"errors"

	"gasy-hub-backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("already exists")
)

// AlertEffects are writes committed in the same transaction as an alert mutation
type AlertEffects struct {
	VoterID string // validations_count of this user is incremented
	Comment *models.Comment
	Audit   *models.AuditEntry
}

// AlertMutation edits a locked alert in place and returns the writes to commit with it
type AlertMutation func(alert *models.Alert) (*AlertEffects, error)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
