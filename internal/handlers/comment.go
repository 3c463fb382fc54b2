package handlers

import (
	"encoding/json"
	"net/http"

	"gasy-hub-backend/internal/middleware"
	"gasy-hub-backend/internal/models"
	"gasy-hub-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// CommentHandler handles alert comment threads
type CommentHandler struct {
	commentService *services.CommentService
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

type commentRequest struct {
	Type    models.CommentType `json:"type"`
	Content string             `json:"content"`
}

// CreateComment handles POST /api/alerts/{id}/comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	alertID := chi.URLParam(r, "id")

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	comment, err := h.commentService.AddComment(r.Context(), alertID, userID, req.Type, req.Content)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("alert_id", alertID).Str("user_id", userID), "Failed to add comment")
		return
	}

	log.Debug().
		Str("alert_id", alertID).
		Str("comment_id", comment.ID).
		Msg("Comment added")

	respondJSON(w, http.StatusCreated, comment)
}

// ListComments handles GET /api/alerts/{id}/comments
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")

	comments, err := h.commentService.ListComments(r.Context(), alertID)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("alert_id", alertID), "Failed to list comments")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"comments": comments})
}
