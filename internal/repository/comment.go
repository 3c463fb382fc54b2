package repository

import (
	"context"
	"fmt"

	"gasy-hub-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// execer is satisfied by both the pool and a transaction
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CommentRepository handles database operations for comments
type CommentRepository struct {
	db *pgxpool.Pool
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{db: db}
}

func insertComment(ctx context.Context, db execer, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, alert_id, user_id, type, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.Exec(ctx, query,
		comment.ID, comment.AlertID, comment.UserID, comment.Type, comment.Content, comment.CreatedAt,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("alert or user %w", ErrNotFound)
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// Create appends a comment to an alert's thread
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return insertComment(ctx, r.db, comment)
}

// ListByAlert returns an alert's comments in insertion order
func (r *CommentRepository) ListByAlert(ctx context.Context, alertID string) ([]*models.Comment, error) {
	query := `
		SELECT id, alert_id, user_id, type, content, created_at
		FROM comments
		WHERE alert_id = $1
		ORDER BY seq
	`
	rows, err := r.db.Query(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}

	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Comment, error) {
		var c models.Comment
		err := row.Scan(&c.ID, &c.AlertID, &c.UserID, &c.Type, &c.Content, &c.CreatedAt)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}
