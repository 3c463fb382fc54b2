package handlers

import (
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"gasy-hub-backend/internal/middleware"
	"gasy-hub-backend/internal/models"
	"gasy-hub-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxMultipartMemory = 32 << 20

// Paging bounds the page size of alert listings
type Paging struct {
	DefaultLimit int
	MaxLimit     int
}

// AlertHandler handles alert-related HTTP requests
type AlertHandler struct {
	alertService *services.AlertService
	mediaService *services.MediaService
	hub          *services.WSHub
	pushService  *services.PushService // nil when push is not configured
	paging       Paging
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(
	alertService *services.AlertService,
	mediaService *services.MediaService,
	hub *services.WSHub,
	pushService *services.PushService,
	paging Paging,
) *AlertHandler {
	if paging.DefaultLimit <= 0 {
		paging.DefaultLimit = 20
	}
	if paging.MaxLimit < paging.DefaultLimit {
		paging.MaxLimit = paging.DefaultLimit
	}
	return &AlertHandler{
		alertService: alertService,
		mediaService: mediaService,
		hub:          hub,
		pushService:  pushService,
		paging:       paging,
	}
}

// AlertListResponse is one page of alerts
type AlertListResponse struct {
	Alerts []*models.Alert `json:"alerts"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// ListAlerts handles GET /api/alerts
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		respondError(w, "page must be a positive integer", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", h.paging.DefaultLimit)
	if err != nil || limit < 1 {
		respondError(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	if limit > h.paging.MaxLimit {
		limit = h.paging.MaxLimit
	}
	status := models.AlertStatus(r.URL.Query().Get("status"))

	alerts, total, err := h.alertService.List(r.Context(), status, limit, (page-1)*limit)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("status", string(status)), "Failed to list alerts")
		return
	}

	respondJSON(w, http.StatusOK, AlertListResponse{
		Alerts: alerts,
		Total:  total,
		Page:   page,
		Limit:  limit,
	})
}

// GetAlert handles GET /api/alerts/{id}
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")

	alert, err := h.alertService.Get(r.Context(), alertID)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("alert_id", alertID), "Failed to get alert")
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

type createAlertRequest struct {
	Reason      string         `json:"reason"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	Latitude    *float64       `json:"latitude"`
	Longitude   *float64       `json:"longitude"`
	Urgency     models.Urgency `json:"urgency"`
	Media       models.Media   `json:"media"`
}

// CreateAlert handles POST /api/alerts. It accepts a JSON body, or a
// multipart form whose "media" files are uploaded to S3 first.
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var (
		req      services.SubmitRequest
		uploaded = models.NoMedia()
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var ok bool
		if req, uploaded, ok = h.parseMultipartAlert(w, r); !ok {
			return
		}
	} else {
		var body createAlertRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		req = services.SubmitRequest{
			Reason:      body.Reason,
			Description: body.Description,
			Location:    body.Location,
			Latitude:    body.Latitude,
			Longitude:   body.Longitude,
			Urgency:     body.Urgency,
			Media:       body.Media,
		}
		if err := h.mediaService.CheckCount(req.Media.Len()); err != nil {
			respondServiceError(w, err, log.Error().Str("user_id", userID), "Failed to create alert")
			return
		}
	}
	req.AuthorID = userID

	alert, err := h.alertService.Submit(ctx, req)
	if err != nil {
		h.mediaService.Discard(uploaded)
		respondServiceError(w, err, log.Error().Str("user_id", userID), "Failed to create alert")
		return
	}

	log.Info().
		Str("alert_id", alert.ID).
		Str("user_id", userID).
		Str("urgency", string(alert.Urgency)).
		Int("media", alert.Media.Len()).
		Msg("Alert created")

	h.hub.BroadcastNewAlert(alert)
	if h.pushService != nil {
		h.pushService.NotifyNewAlertAsync(alert)
	}

	respondJSON(w, http.StatusCreated, alert)
}

// parseMultipartAlert reads a multipart alert and uploads its files, returning
// the uploaded objects separately so they can be discarded if the alert is
// rejected. It writes the error response itself and reports false on failure.
func (h *AlertHandler) parseMultipartAlert(w http.ResponseWriter, r *http.Request) (services.SubmitRequest, models.Media, bool) {
	none := models.NoMedia()
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return services.SubmitRequest{}, none, false
	}
	defer r.MultipartForm.RemoveAll()

	form := r.MultipartForm
	req := services.SubmitRequest{
		Reason:      formValue(form, "reason"),
		Description: formValue(form, "description"),
		Location:    formValue(form, "location"),
		Urgency:     models.Urgency(formValue(form, "urgency")),
	}

	var err error
	if req.Latitude, err = formFloat(form, "latitude"); err != nil {
		respondError(w, "latitude must be a number", http.StatusBadRequest)
		return services.SubmitRequest{}, none, false
	}
	if req.Longitude, err = formFloat(form, "longitude"); err != nil {
		respondError(w, "longitude must be a number", http.StatusBadRequest)
		return services.SubmitRequest{}, none, false
	}

	var files []*multipart.FileHeader
	files = append(files, form.File["media"]...)
	files = append(files, form.File["media[]"]...)
	var links []string
	links = append(links, form.Value["media"]...)
	links = append(links, form.Value["media[]"]...)

	if err := h.mediaService.CheckCount(len(files) + len(links)); err != nil {
		respondServiceError(w, err, log.Error(), "Failed to create alert")
		return services.SubmitRequest{}, none, false
	}

	uploaded, err := h.mediaService.Upload(r.Context(), files)
	if err != nil {
		respondServiceError(w, err, log.Error().Int("files", len(files)), "Failed to upload media")
		return services.SubmitRequest{}, none, false
	}

	paths := make([]string, 0, uploaded.Len()+len(links))
	paths = append(paths, uploaded.Paths()...)
	paths = append(paths, links...)
	req.Media = models.ManyMedia(paths)
	return req, uploaded, true
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func formFloat(form *multipart.Form, key string) (*float64, error) {
	v := strings.TrimSpace(formValue(form, key))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

type validateRequest struct {
	IsConfirmed *bool  `json:"is_confirmed"`
	Note        string `json:"note"`
}

// ValidateAlert handles POST /api/alerts/{id}/validate
func (h *AlertHandler) ValidateAlert(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	alertID := chi.URLParam(r, "id")

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.IsConfirmed == nil {
		respondError(w, "is_confirmed is required", http.StatusBadRequest)
		return
	}

	alert, err := h.alertService.Vote(r.Context(), alertID, userID, *req.IsConfirmed, req.Note)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("alert_id", alertID).Str("user_id", userID), "Failed to validate alert")
		return
	}

	log.Info().
		Str("alert_id", alertID).
		Str("user_id", userID).
		Bool("confirmed", *req.IsConfirmed).
		Str("status", string(alert.Status)).
		Msg("Alert validated")

	respondJSON(w, http.StatusOK, alert)
}

// VoteStatusResponse tells a user whether they already voted
type VoteStatusResponse struct {
	HasVoted bool `json:"has_voted"`
}

// GetVoteStatus handles GET /api/alerts/{id}/validate
func (h *AlertHandler) GetVoteStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	alertID := chi.URLParam(r, "id")

	voted, err := h.alertService.HasVoted(r.Context(), alertID, userID)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("alert_id", alertID), "Failed to get vote status")
		return
	}

	respondJSON(w, http.StatusOK, VoteStatusResponse{HasVoted: voted})
}

type statusRequest struct {
	Status models.AlertStatus `json:"status"`
}

// UpdateStatus handles PUT/PATCH /api/alerts/{id}/status
func (h *AlertHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	alertID := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	alert, err := h.alertService.ChangeStatus(r.Context(), alertID, userID, req.Status)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("alert_id", alertID).Str("user_id", userID), "Failed to update alert status")
		return
	}

	log.Info().
		Str("alert_id", alertID).
		Str("user_id", userID).
		Str("status", string(alert.Status)).
		Msg("Alert status changed")

	respondJSON(w, http.StatusOK, alert)
}

// MediaLink pairs a stored media path with a URL the client can fetch
type MediaLink struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// GetMedia handles GET /api/alerts/{id}/media. Only keys the media service
// uploaded are presigned; anything else is returned as stored.
func (h *AlertHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")

	alert, err := h.alertService.Get(r.Context(), alertID)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("alert_id", alertID), "Failed to get alert")
		return
	}

	links := make([]MediaLink, 0, alert.Media.Len())
	for _, path := range alert.Media.Paths() {
		link := MediaLink{Path: path, URL: path}
		if h.mediaService.Enabled() && h.mediaService.Owns(path) {
			url, err := h.mediaService.URL(r.Context(), path)
			if err != nil {
				respondServiceError(w, err, log.Error().Str("alert_id", alertID).Str("path", path), "Failed to sign media URL")
				return
			}
			link.URL = url
		}
		links = append(links, link)
	}

	respondJSON(w, http.StatusOK, map[string]any{"media": links})
}

// DeleteAlert handles DELETE /api/admin/alerts/{id}
func (h *AlertHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	alertID := chi.URLParam(r, "id")

	if err := h.alertService.Delete(r.Context(), alertID, actorID); err != nil {
		respondServiceError(w, err, log.Error().Str("alert_id", alertID), "Failed to delete alert")
		return
	}

	log.Info().
		Str("alert_id", alertID).
		Str("actor_id", actorID).
		Msg("Alert deleted")

	w.WriteHeader(http.StatusNoContent)
}

// GetAuditTrail handles GET /api/admin/alerts/{id}/audit
func (h *AlertHandler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	alertID := chi.URLParam(r, "id")

	entries, err := h.alertService.AuditTrail(r.Context(), alertID, actorID)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("alert_id", alertID), "Failed to get audit trail")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
