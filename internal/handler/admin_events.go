package handler

import (
	"net/http"

	"github.com/osse101/mobilesync/internal/eventlog"
)

// AdminEventsHandler handles admin event log queries
type AdminEventsHandler struct {
	eventlogService eventlog.Service
}

// NewAdminEventsHandler creates a new admin events handler
func NewAdminEventsHandler(eventlogService eventlog.Service) *AdminEventsHandler {
	return &AdminEventsHandler{eventlogService: eventlogService}
}

// EventsResponse contains event log query results
type EventsResponse struct {
	Events []eventlog.Event `json:"events"`
}

// HandleGetEvents retrieves logged sync events, newest first
// GET /api/v1/admin/events/log?tenant_id=X&device_id=Y&event_type=Z&since=T&limit=N
// @Summary Query the sync event log
// @Tags admin
// @Produce json
// @Param tenant_id query string false "Tenant"
// @Param device_id query string false "Device"
// @Param event_type query string false "Event type"
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Param limit query int false "Max rows (1-1000)"
// @Success 200 {object} EventsResponse
// @Router /api/v1/admin/events/log [get]
func (h *AdminEventsHandler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, ok := parseLimit(r, w)
	if !ok {
		return
	}
	filter := eventlog.EventFilter{Limit: limit}

	if tenantID := query.Get(QueryParamTenantID); tenantID != "" {
		filter.TenantID = &tenantID
	}
	if deviceID := query.Get(QueryParamDeviceID); deviceID != "" {
		filter.DeviceID = &deviceID
	}
	if eventType := query.Get(QueryParamEventType); eventType != "" {
		filter.EventType = &eventType
	}
	if filter.Since, ok = parseTime(r, w, QueryParamSince, ErrMsgInvalidSince); !ok {
		return
	}
	if filter.Until, ok = parseTime(r, w, QueryParamUntil, ErrMsgInvalidUntil); !ok {
		return
	}

	events, err := h.eventlogService.Events(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, "Get events", err)
		return
	}
	if events == nil {
		events = []eventlog.Event{}
	}
	respondJSON(w, http.StatusOK, EventsResponse{Events: events})
}
