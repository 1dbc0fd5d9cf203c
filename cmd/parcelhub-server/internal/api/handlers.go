// Package api provides HTTP handlers for the parcelhub server REST API.
//
// Identities authenticate with the same bearer token they use for the
// WebSocket. Notification routes act on the caller's own records; publish
// routes are for other services and require the admin role.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/coregx/parcelhub"
	"github.com/coregx/parcelhub/model"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Handler holds dependencies for API handlers.
type Handler struct {
	hub      *parcelhub.Hub
	verifier parcelhub.IdentityVerifier
	logger   parcelhub.Logger
}

// NewHandler creates a new API handler.
func NewHandler(hub *parcelhub.Hub, verifier parcelhub.IdentityVerifier, logger parcelhub.Logger) *Handler {
	if logger == nil {
		logger = &parcelhub.NoopLogger{}
	}
	return &Handler{
		hub:      hub,
		verifier: verifier,
		logger:   logger,
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/health", h.HandleHealth)

	mux.HandleFunc("GET /api/v1/notifications", h.authenticated(h.HandleListNotifications))
	mux.HandleFunc("GET /api/v1/notifications/unread-count", h.authenticated(h.HandleUnreadCount))
	mux.HandleFunc("PATCH /api/v1/notifications/mark-all-read", h.authenticated(h.HandleMarkAllRead))
	mux.HandleFunc("PATCH /api/v1/notifications/{id}/read", h.authenticated(h.HandleMarkRead))
	mux.HandleFunc("DELETE /api/v1/notifications/{id}", h.authenticated(h.HandleDeleteNotification))

	mux.HandleFunc("POST /api/v1/notify", h.admin(h.HandleNotify))
	mux.HandleFunc("POST /api/v1/events/parcel", h.admin(h.HandleParcelEvent))
	mux.HandleFunc("POST /api/v1/events/route", h.admin(h.HandleRouteEvent))
	mux.HandleFunc("POST /api/v1/alerts", h.admin(h.HandleAlert))
	mux.HandleFunc("POST /api/v1/broadcast", h.admin(h.HandleBroadcast))
	mux.HandleFunc("GET /api/v1/presence", h.admin(h.HandlePresence))
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type identityHandler func(w http.ResponseWriter, r *http.Request, caller model.Identity)

// authenticated resolves the bearer token before calling next.
func (h *Handler) authenticated(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := parcelhub.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			h.respondError(w, http.StatusUnauthorized, "Bearer token required", parcelhub.ErrCodeAuthentication)
			return
		}
		caller, err := h.verifier.Resolve(r.Context(), token)
		if err != nil {
			if parcelhub.IsAuthenticationFailure(err) || parcelhub.IsIdentityNotFound(err) {
				h.respondError(w, http.StatusUnauthorized, "Invalid credentials", parcelhub.ErrCodeAuthentication)
				return
			}
			h.logger.Errorf("Failed to resolve identity: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to resolve identity", "INTERNAL_ERROR")
			return
		}
		next(w, r, caller)
	}
}

// admin is authenticated plus a role check.
func (h *Handler) admin(next identityHandler) http.HandlerFunc {
	return h.authenticated(func(w http.ResponseWriter, r *http.Request, caller model.Identity) {
		if caller.Role != model.RoleAdmin {
			h.respondError(w, http.StatusForbidden, "Admin role required", "FORBIDDEN")
			return
		}
		next(w, r, caller)
	})
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     Version,
		"connections": h.hub.Registry().Len(),
	}

	h.respondSuccess(w, http.StatusOK, health, "")
}

// HandleListNotifications handles GET /api/v1/notifications?unreadOnly=true&limit=20
func (h *Handler) HandleListNotifications(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unreadOnly"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notifications, err := h.hub.Notifications().FindByIdentity(r.Context(), caller.ID, unreadOnly, limit)
	if err != nil {
		if parcelhub.IsNoData(err) {
			h.respondSuccess(w, http.StatusOK, []model.Notification{}, "No notifications found")
			return
		}
		h.logger.Errorf("Failed to list notifications for %s: %v", caller.ID, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to list notifications", "LIST_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusOK, notifications, "")
}

// HandleUnreadCount handles GET /api/v1/notifications/unread-count
func (h *Handler) HandleUnreadCount(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	count, err := h.hub.Notifications().CountUnread(r.Context(), caller.ID)
	if err != nil {
		h.logger.Errorf("Failed to count notifications for %s: %v", caller.ID, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to count notifications", "COUNT_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusOK, map[string]int{"count": count}, "")
}

// HandleMarkRead handles PATCH /api/v1/notifications/{id}/read
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, ok := h.ownedNotification(w, r, caller)
	if !ok {
		return
	}

	if err := h.hub.Notifications().MarkRead(r.Context(), id); err != nil {
		if parcelhub.IsNoData(err) {
			h.respondError(w, http.StatusNotFound, "Notification not found", "NOT_FOUND")
			return
		}
		h.logger.Errorf("Failed to mark notification %d as read: %v", id, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to mark notification as read", "UPDATE_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusOK, nil, "Notification marked as read")
}

// HandleMarkAllRead handles PATCH /api/v1/notifications/mark-all-read
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	if err := h.hub.Notifications().MarkAllRead(r.Context(), caller.ID); err != nil {
		h.logger.Errorf("Failed to mark notifications of %s as read: %v", caller.ID, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to mark notifications as read", "UPDATE_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusOK, nil, "All notifications marked as read")
}

// HandleDeleteNotification handles DELETE /api/v1/notifications/{id}
func (h *Handler) HandleDeleteNotification(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, ok := h.ownedNotification(w, r, caller)
	if !ok {
		return
	}

	if err := h.hub.Notifications().Delete(r.Context(), id); err != nil {
		h.logger.Errorf("Failed to delete notification %d: %v", id, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to delete notification", "DELETE_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusOK, nil, "Notification deleted")
}

// ownedNotification parses {id} and checks the record belongs to caller.
// It writes the error response itself when it returns false.
func (h *Handler) ownedNotification(w http.ResponseWriter, r *http.Request, caller model.Identity) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid notification ID", "INVALID_ID")
		return 0, false
	}

	owned, err := h.ownsNotification(r.Context(), caller.ID, id)
	if err != nil {
		h.logger.Errorf("Failed to load notifications of %s: %v", caller.ID, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to load notification", "LOAD_ERROR")
		return 0, false
	}
	if !owned {
		h.respondError(w, http.StatusNotFound, "Notification not found", "NOT_FOUND")
		return 0, false
	}
	return id, true
}

func (h *Handler) ownsNotification(ctx context.Context, identityID string, id int64) (bool, error) {
	notifications, err := h.hub.Notifications().FindByIdentity(ctx, identityID, false, 0)
	if parcelhub.IsNoData(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, n := range notifications {
		if n.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// NotifyRequest is the body of POST /api/v1/notify.
type NotifyRequest struct {
	IdentityID      string         `json:"identityId"`
	Message         string         `json:"message"`
	Severity        model.Severity `json:"severity"`
	RelatedEntityID string         `json:"relatedEntityId"`
}

// Validate validates the NotifyRequest fields.
func (r NotifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IdentityID, validation.Required),
		validation.Field(&r.Message, validation.Required),
		validation.Field(&r.Severity, validation.In(
			model.SeverityInfo, model.SeveritySuccess, model.SeverityWarning, model.SeverityError,
		)),
	)
}

// HandleNotify handles POST /api/v1/notify
func (h *Handler) HandleNotify(w http.ResponseWriter, r *http.Request, _ model.Identity) {
	var req NotifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	n, err := h.hub.Notify(r.Context(), req.IdentityID, req.Message, req.Severity, req.RelatedEntityID)
	if err != nil {
		if parcelhub.IsValidation(err) {
			h.respondError(w, http.StatusBadRequest, err.Error(), parcelhub.ErrCodeValidation)
			return
		}
		h.logger.Errorf("Failed to notify %s: %v", req.IdentityID, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to store notification", parcelhub.ErrCodePersistence)
		return
	}

	h.respondSuccess(w, http.StatusCreated, n, "Notification sent")
}

// Parcel event kinds accepted by POST /api/v1/events/parcel.
const (
	ParcelEventCreated         = "created"
	ParcelEventStatusUpdated   = "status-updated"
	ParcelEventAssigned        = "assigned"
	ParcelEventDelivered       = "delivered"
	ParcelEventLocationUpdated = "location-updated"
	ParcelEventPayment         = "payment"
	ParcelEventUrgent          = "urgent"
)

// ParcelEventRequest is the body of POST /api/v1/events/parcel.
type ParcelEventRequest struct {
	Type    string       `json:"type"`
	Parcel  model.Parcel `json:"parcel"`
	AgentID string       `json:"agentId,omitempty"`
	Amount  float64      `json:"amount,omitempty"`
}

// Validate validates the ParcelEventRequest fields.
func (r ParcelEventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.In(
			ParcelEventCreated, ParcelEventStatusUpdated, ParcelEventAssigned, ParcelEventDelivered,
			ParcelEventLocationUpdated, ParcelEventPayment, ParcelEventUrgent,
		)),
		validation.Field(&r.Parcel, validation.By(func(value interface{}) error {
			if p, _ := value.(model.Parcel); p.ID == "" {
				return validation.NewError("validation_parcel_id_required", "parcel id is required")
			}
			return nil
		})),
		validation.Field(&r.AgentID, validation.When(r.Type == ParcelEventAssigned, validation.Required)),
		validation.Field(&r.Amount, validation.When(r.Type == ParcelEventPayment, validation.Required, validation.Min(0.0))),
	)
}

// HandleParcelEvent handles POST /api/v1/events/parcel
func (h *Handler) HandleParcelEvent(w http.ResponseWriter, r *http.Request, _ model.Identity) {
	var req ParcelEventRequest
	if !h.decode(w, r, &req) {
		return
	}

	switch req.Type {
	case ParcelEventCreated:
		h.hub.ParcelCreated(req.Parcel)
	case ParcelEventStatusUpdated:
		h.hub.ParcelStatusUpdated(req.Parcel)
	case ParcelEventAssigned:
		h.hub.ParcelAssigned(req.Parcel, req.AgentID)
	case ParcelEventDelivered:
		h.hub.ParcelDelivered(req.Parcel)
	case ParcelEventLocationUpdated:
		h.hub.ParcelLocationUpdated(req.Parcel)
	case ParcelEventPayment:
		h.hub.PaymentReceived(req.Parcel, req.Amount)
	case ParcelEventUrgent:
		if err := h.hub.MarkUrgent(r.Context(), req.Parcel); err != nil {
			// the live event already went out; only the stored copy failed
			h.logger.Errorf("Failed to store urgent notification for %s: %v", req.Parcel.ID, err)
			h.respondError(w, http.StatusInternalServerError, "Failed to store notification", parcelhub.ErrCodePersistence)
			return
		}
	}

	h.respondSuccess(w, http.StatusAccepted, nil, "Event published")
}

// RouteEventRequest is the body of POST /api/v1/events/route.
type RouteEventRequest struct {
	AgentID      string `json:"agentId"`
	RouteID      string `json:"routeId"`
	ParcelsCount int    `json:"parcelsCount"`
}

// Validate validates the RouteEventRequest fields.
func (r RouteEventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AgentID, validation.Required),
		validation.Field(&r.RouteID, validation.Required),
		validation.Field(&r.ParcelsCount, validation.Min(0)),
	)
}

// HandleRouteEvent handles POST /api/v1/events/route
func (h *Handler) HandleRouteEvent(w http.ResponseWriter, r *http.Request, _ model.Identity) {
	var req RouteEventRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.hub.RouteUpdated(req.AgentID, req.RouteID, req.ParcelsCount)
	h.respondSuccess(w, http.StatusAccepted, nil, "Event published")
}

// AlertRequest is the body of POST /api/v1/alerts.
type AlertRequest struct {
	Message string         `json:"message"`
	Level   model.Severity `json:"level"`
}

// Validate validates the AlertRequest fields.
func (r AlertRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required),
		validation.Field(&r.Level, validation.In(
			model.SeverityInfo, model.SeverityWarning, model.SeverityError,
		)),
	)
}

// HandleAlert handles POST /api/v1/alerts
func (h *Handler) HandleAlert(w http.ResponseWriter, r *http.Request, _ model.Identity) {
	var req AlertRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.hub.SystemAlert(req.Message, req.Level)
	h.respondSuccess(w, http.StatusAccepted, nil, "Alert published")
}

// BroadcastRequest is the body of POST /api/v1/broadcast.
// An empty role reaches every connection.
type BroadcastRequest struct {
	Role     model.Role     `json:"role,omitempty"`
	Message  string         `json:"message"`
	Severity model.Severity `json:"severity"`
}

// Validate validates the BroadcastRequest fields.
func (r BroadcastRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.In(model.RoleAdmin, model.RoleAgent, model.RoleCustomer)),
		validation.Field(&r.Message, validation.Required),
		validation.Field(&r.Severity, validation.In(
			model.SeverityInfo, model.SeveritySuccess, model.SeverityWarning, model.SeverityError,
		)),
	)
}

// HandleBroadcast handles POST /api/v1/broadcast
func (h *Handler) HandleBroadcast(w http.ResponseWriter, r *http.Request, _ model.Identity) {
	var req BroadcastRequest
	if !h.decode(w, r, &req) {
		return
	}

	var delivered int
	if req.Role == "" {
		delivered = h.hub.NotifyAll(req.Message, req.Severity)
	} else {
		delivered = h.hub.NotifyRole(req.Role, req.Message, req.Severity)
	}

	h.respondSuccess(w, http.StatusAccepted, map[string]int{"delivered": delivered}, "Broadcast sent")
}

// HandlePresence handles GET /api/v1/presence
func (h *Handler) HandlePresence(w http.ResponseWriter, r *http.Request, _ model.Identity) {
	agents := h.hub.OnlineAgents()
	if agents == nil {
		agents = []model.Identity{}
	}

	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"agents":      agents,
		"connections": h.hub.Registry().Len(),
	}, "")
}

// decode reads a JSON body into v and validates it.
// It writes the error response itself when it returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return false
	}
	if err := v.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), parcelhub.ErrCodeValidation)
		return false
	}
	return true
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
