package handlers

import (
	"encoding/json"
	"net/http"

	"gasy-hub-backend/internal/middleware"
	"gasy-hub-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.userService.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, log.Error(), "Failed to create user")
		return
	}

	log.Info().
		Str("user_id", resp.User.ID).
		Bool("is_admin", resp.User.IsAdmin).
		Msg("User created")

	respondJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.userService.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		respondServiceError(w, err, log.Error(), "Failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("user_id", userID), "Failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

type pushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// UpdatePushToken handles PUT /api/users/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req pushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), userID, req.PushToken); err != nil {
		respondServiceError(w, err, log.Error().Str("user_id", userID), "Failed to update push token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type verifyRequest struct {
	HasCIN bool `json:"has_cin"`
}

// Verify handles PUT /api/admin/users/{id}/verify
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	userID := chi.URLParam(r, "id")

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.SetVerified(r.Context(), actorID, userID, req.HasCIN)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("user_id", userID), "Failed to verify user")
		return
	}

	log.Info().
		Str("actor_id", actorID).
		Str("user_id", userID).
		Bool("has_cin", user.HasCIN).
		Msg("User verification changed")

	respondJSON(w, http.StatusOK, user)
}
