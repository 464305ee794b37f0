package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

// AnalyticsService reads hourly snapshots
type AnalyticsService interface {
	Snapshots(ctx context.Context, tenantID string, since time.Time) ([]domain.AnalyticsSnapshot, error)
}

// AnalyticsResponse lists snapshots oldest first
type AnalyticsResponse struct {
	TenantID  string                     `json:"tenant_id"`
	Since     time.Time                  `json:"since"`
	Snapshots []domain.AnalyticsSnapshot `json:"snapshots"`
}

// AdminAnalyticsHandler exposes sync analytics
type AdminAnalyticsHandler struct {
	analytics AnalyticsService
	now       func() time.Time
}

// NewAdminAnalyticsHandler creates a new admin analytics handler
func NewAdminAnalyticsHandler(analytics AnalyticsService) *AdminAnalyticsHandler {
	return &AdminAnalyticsHandler{analytics: analytics, now: time.Now}
}

// HandleGetAnalytics returns snapshots since ?since, defaulting to the last day
// @Summary Sync analytics
// @Tags admin
// @Produce json
// @Param tenant_id query string true "Tenant"
// @Param since query string false "RFC3339 lower bound"
// @Success 200 {object} AnalyticsResponse
// @Router /api/v1/admin/analytics [get]
func (h *AdminAnalyticsHandler) HandleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := GetQueryParam(r, w, QueryParamTenantID)
	if !ok {
		return
	}
	since, ok := parseTime(r, w, QueryParamSince, ErrMsgInvalidSince)
	if !ok {
		return
	}
	if since == nil {
		t := h.now().UTC().Add(-DefaultAnalyticsRange * time.Hour)
		since = &t
	}

	snaps, err := h.analytics.Snapshots(r.Context(), tenantID, *since)
	if err != nil {
		respondServiceError(w, r, "Get analytics", err)
		return
	}
	respondJSON(w, http.StatusOK, AnalyticsResponse{TenantID: tenantID, Since: *since, Snapshots: snaps})
}
