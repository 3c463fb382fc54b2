package repository

import (
	"context"
	"errors"
	"fmt"

	"gasy-hub-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const alertColumns = `id, author_id, reason, description, location, latitude, longitude,
	urgency, status, confirmed_count, rejected_count, validated_by, media,
	created_at, updated_at, resolved_at`

// AlertRepository handles database operations for alerts
type AlertRepository struct {
	db *pgxpool.Pool
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{db: db}
}

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var (
		alert models.Alert
		media []string
	)
	err := row.Scan(
		&alert.ID, &alert.AuthorID, &alert.Reason, &alert.Description, &alert.Location,
		&alert.Latitude, &alert.Longitude, &alert.Urgency, &alert.Status,
		&alert.ConfirmedCount, &alert.RejectedCount, &alert.ValidatedBy, &media,
		&alert.CreatedAt, &alert.UpdatedAt, &alert.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("alert %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}
	if alert.ValidatedBy == nil {
		alert.ValidatedBy = []string{}
	}
	alert.Media = models.ManyMedia(media)
	return &alert, nil
}

// Create inserts a new alert and bumps the author's alert count
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO alerts (id, author_id, reason, description, location, latitude, longitude,
				urgency, status, confirmed_count, rejected_count, validated_by, media,
				created_at, updated_at, resolved_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`
		_, err := tx.Exec(ctx, query,
			alert.ID, alert.AuthorID, alert.Reason, alert.Description, alert.Location,
			alert.Latitude, alert.Longitude, alert.Urgency, alert.Status,
			alert.ConfirmedCount, alert.RejectedCount, alert.ValidatedBy, alert.Media.Paths(),
			alert.CreatedAt, alert.UpdatedAt, alert.ResolvedAt,
		)
		if err != nil {
			if pgCode(err) == pgForeignKeyViolation {
				return fmt.Errorf("author %w", ErrNotFound)
			}
			return fmt.Errorf("failed to create alert: %w", err)
		}

		result, err := tx.Exec(ctx, `UPDATE users SET alerts_count = alerts_count + 1 WHERE id = $1`, alert.AuthorID)
		if err != nil {
			return fmt.Errorf("failed to update alerts count: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("author %w", ErrNotFound)
		}
		return nil
	})
}

// GetByID retrieves an alert by ID
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	return scanAlert(r.db.QueryRow(ctx, query, id))
}

// List retrieves alerts newest first, optionally filtered by status
func (r *AlertRepository) List(ctx context.Context, status models.AlertStatus, limit, offset int) ([]*models.Alert, int, error) {
	countQuery := `SELECT COUNT(*) FROM alerts WHERE ($1 = '' OR status = $1)`
	var total int
	if err := r.db.QueryRow(ctx, countQuery, string(status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, total, nil
}

// Mutate locks the alert row, lets fn edit it and commits the result together
// with fn's effects. Nothing is written when fn returns an error.
func (r *AlertRepository) Mutate(ctx context.Context, id string, fn AlertMutation) (*models.Alert, error) {
	var out *models.Alert
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1 FOR UPDATE`
		alert, err := scanAlert(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}

		effects, err := fn(alert)
		if err != nil {
			return err
		}

		update := `
			UPDATE alerts
			SET status = $2, confirmed_count = $3, rejected_count = $4, validated_by = $5,
				updated_at = $6, resolved_at = $7
			WHERE id = $1
		`
		_, err = tx.Exec(ctx, update,
			alert.ID, alert.Status, alert.ConfirmedCount, alert.RejectedCount, alert.ValidatedBy,
			alert.UpdatedAt, alert.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update alert: %w", err)
		}

		if err := applyEffects(ctx, tx, effects); err != nil {
			return err
		}
		out = alert
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an alert; its comments go with it. The audit entry, if any,
// is kept with PreviousStatus set to the status the alert had when deleted.
func (r *AlertRepository) Delete(ctx context.Context, id string, audit *models.AuditEntry) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var status models.AlertStatus
		err := tx.QueryRow(ctx, `DELETE FROM alerts WHERE id = $1 RETURNING status`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("alert %w", ErrNotFound)
			}
			return fmt.Errorf("failed to delete alert: %w", err)
		}
		if audit != nil {
			audit.PreviousStatus = status
			return insertAudit(ctx, tx, audit)
		}
		return nil
	})
}

func applyEffects(ctx context.Context, tx pgx.Tx, effects *AlertEffects) error {
	if effects == nil {
		return nil
	}

	if effects.VoterID != "" {
		result, err := tx.Exec(ctx,
			`UPDATE users SET validations_count = validations_count + 1 WHERE id = $1`, effects.VoterID)
		if err != nil {
			return fmt.Errorf("failed to update validations count: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("voter %w", ErrNotFound)
		}
	}

	if effects.Comment != nil {
		if err := insertComment(ctx, tx, effects.Comment); err != nil {
			return err
		}
	}

	if effects.Audit != nil {
		if err := insertAudit(ctx, tx, effects.Audit); err != nil {
			return err
		}
	}
	return nil
}
