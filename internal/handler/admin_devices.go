package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/health"
)

// DeviceHealthService reads rolling device statistics
type DeviceHealthService interface {
	List(ctx context.Context, userID string) ([]domain.DeviceHealth, error)
}

// DeviceHealthView adds derived rates and the suggested client backoff
type DeviceHealthView struct {
	domain.DeviceHealth
	FailureRatePct     float64 `json:"failure_rate_pct"`
	ConflictRatePct    float64 `json:"conflict_rate_pct"`
	SuggestedBackoffMs int64   `json:"suggested_backoff_ms"`
}

// DevicesResponse lists a user's devices
type DevicesResponse struct {
	UserID  string             `json:"user_id"`
	Devices []DeviceHealthView `json:"devices"`
}

// AdminDeviceHandler exposes device health
type AdminDeviceHandler struct {
	health DeviceHealthService
}

// NewAdminDeviceHandler creates a new admin device handler
func NewAdminDeviceHandler(health DeviceHealthService) *AdminDeviceHandler {
	return &AdminDeviceHandler{health: health}
}

// HandleListDevices returns health for every device of a user
// @Summary Device health for a user
// @Tags admin
// @Produce json
// @Param userID path string true "User"
// @Success 200 {object} DevicesResponse
// @Router /api/v1/admin/devices/{userID} [get]
func (h *AdminDeviceHandler) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, URLParamUserID)
	list, err := h.health.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, "List devices", err)
		return
	}

	views := make([]DeviceHealthView, len(list))
	for i, d := range list {
		views[i] = DeviceHealthView{
			DeviceHealth:       d,
			FailureRatePct:     d.FailureRatePct(),
			ConflictRatePct:    d.ConflictRatePct(),
			SuggestedBackoffMs: health.Backoff(d.HealthScore).Milliseconds(),
		}
	}
	respondJSON(w, http.StatusOK, DevicesResponse{UserID: userID, Devices: views})
}
