package services

import (
	"context"
	"strings"
	"time"

	"gasy-hub-backend/internal/models"

	"github.com/google/uuid"
)

// CommentService handles alert comment threads
type CommentService struct {
	commentRepo CommentStore
	alertRepo   AlertStore
	userRepo    UserStore
	now         func() time.Time
}

// NewCommentService creates a new comment service
func NewCommentService(commentRepo CommentStore, alertRepo AlertStore, userRepo UserStore) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		alertRepo:   alertRepo,
		userRepo:    userRepo,
		now:         time.Now,
	}
}

// AddComment appends a free-text comment to an alert. Green and red notes
// only exist alongside a vote, see AlertService.Vote.
func (s *CommentService) AddComment(ctx context.Context, alertID, userID string, kind models.CommentType, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, newError(ErrValidation, "content is required")
	}

	if kind == "" {
		kind = models.CommentText
	}
	switch {
	case !kind.Valid():
		return nil, newError(ErrValidation, "unknown comment type %q", kind)
	case kind != models.CommentText:
		return nil, newError(ErrValidation, "%s comments are created with a vote", kind)
	}

	if _, err := s.alertRepo.GetByID(ctx, alertID); err != nil {
		return nil, fromStore(err, "alert")
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, fromStore(err, "user")
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		AlertID:   alertID,
		UserID:    userID,
		Type:      kind,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fromStore(err, "alert")
	}
	return comment, nil
}

// ListComments returns an alert's comments in the order they were written
func (s *CommentService) ListComments(ctx context.Context, alertID string) ([]*models.Comment, error) {
	if _, err := s.alertRepo.GetByID(ctx, alertID); err != nil {
		return nil, fromStore(err, "alert")
	}
	return s.commentRepo.ListByAlert(ctx, alertID)
}
