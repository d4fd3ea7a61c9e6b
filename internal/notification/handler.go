package notification

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/auth"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Handler serves the signed-in user's inbox.
type Handler struct {
	store InboxStore
}

func NewHandler(store InboxStore) *Handler {
	return &Handler{store: store}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ListResponse struct {
	Success       bool           `json:"success"`
	Notifications []Notification `json:"notifications"`
	Total         int            `json:"total"`
}

type UnreadCountResponse struct {
	Success bool `json:"success"`
	Unread  int  `json:"unread"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updated int    `json:"updated,omitempty"`
}

// List handles GET /notifications?unread=true&limit=N.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	limit := DefaultInboxLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, 100)
	}

	items, err := h.store.ListForUser(r.Context(), principal.AppUserID, unreadOnly, limit)
	if err != nil {
		log.Error().Err(err).Int64("user_id", principal.AppUserID).Msg("failed to list notifications")
		respondError(w, http.StatusInternalServerError, "list_failed", "Failed to list notifications")
		return
	}

	respondJSON(w, http.StatusOK, ListResponse{Success: true, Notifications: items, Total: len(items)})
}

// UnreadCount handles GET /notifications/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	n, err := h.store.UnreadCount(r.Context(), principal.AppUserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", principal.AppUserID).Msg("failed to count notifications")
		respondError(w, http.StatusInternalServerError, "count_failed", "Failed to count notifications")
		return
	}

	respondJSON(w, http.StatusOK, UnreadCountResponse{Success: true, Unread: n})
}

// MarkAsRead handles POST /notifications/{id}/read.
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid notification ID")
		return
	}

	if err := h.store.MarkAsRead(r.Context(), id, principal.AppUserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "Notification not found")
			return
		}
		log.Error().Err(err).Int64("notification_id", id).Msg("failed to mark notification read")
		respondError(w, http.StatusInternalServerError, "update_failed", "Failed to update notification")
		return
	}

	respondJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Notification marked as read"})
}

// MarkAllAsRead handles POST /notifications/read-all.
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	n, err := h.store.MarkAllAsRead(r.Context(), principal.AppUserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", principal.AppUserID).Msg("failed to mark notifications read")
		respondError(w, http.StatusInternalServerError, "update_failed", "Failed to update notifications")
		return
	}

	respondJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Notifications marked as read", Updated: n})
}

// respondJSON encodes body before writing the status so an encoding failure
// can still become a 500.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	payload, err := json.Marshal(body)
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal_error","message":"Internal server error"}` + "\n"))
		return
	}
	w.WriteHeader(status)
	w.Write(append(payload, '\n'))
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: errorType, Message: message})
}
