package repository

import (
	"context"
	"fmt"

	"gasy-hub-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository reads the alert status audit log. Entries are written
// inside alert transactions, see AlertRepository.Mutate.
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

func insertAudit(ctx context.Context, db execer, entry *models.AuditEntry) error {
	query := `
		INSERT INTO alert_audit_log (id, alert_id, actor_id, action, previous_status, new_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := db.Exec(ctx, query,
		entry.ID, entry.AlertID, entry.ActorID, entry.Action,
		entry.PreviousStatus, entry.NewStatus, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// ListByAlert returns an alert's audit entries oldest first
func (r *AuditRepository) ListByAlert(ctx context.Context, alertID string) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, alert_id, actor_id, action, previous_status, new_status, created_at
		FROM alert_audit_log
		WHERE alert_id = $1
		ORDER BY seq
	`
	rows, err := r.db.Query(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.AuditEntry, error) {
		var e models.AuditEntry
		err := row.Scan(&e.ID, &e.AlertID, &e.ActorID, &e.Action, &e.PreviousStatus, &e.NewStatus, &e.CreatedAt)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}
