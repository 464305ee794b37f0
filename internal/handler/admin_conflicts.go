package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osse101/mobilesync/internal/conflict"
	"github.com/osse101/mobilesync/internal/domain"
)

// ConflictService reads and settles logged conflicts
type ConflictService interface {
	Get(ctx context.Context, conflictID string) (*domain.ConflictRecord, error)
	List(ctx context.Context, filter conflict.Filter) ([]domain.ConflictRecord, error)
	ResolvePending(ctx context.Context, conflictID string, resolution domain.Resolution, clientData map[string]any) (*conflict.Resolution, error)
}

// ResolveConflictRequest is an operator decision for a pending conflict
type ResolveConflictRequest struct {
	Resolution domain.Resolution `json:"resolution" validate:"required,resolution"`
	ClientData map[string]any    `json:"client_data"`
}

// ConflictsResponse lists conflict log rows
type ConflictsResponse struct {
	Conflicts []domain.ConflictRecord `json:"conflicts"`
}

// AdminConflictHandler exposes the conflict resolution log
type AdminConflictHandler struct {
	conflicts ConflictService
}

// NewAdminConflictHandler creates a new admin conflict handler
func NewAdminConflictHandler(conflicts ConflictService) *AdminConflictHandler {
	return &AdminConflictHandler{conflicts: conflicts}
}

// HandleListConflicts lists conflicts, newest first
// GET /api/v1/admin/conflicts?tenant_id=X&device_id=Y&status=pending&limit=N
// @Summary List conflicts
// @Tags admin
// @Produce json
// @Param tenant_id query string false "Tenant"
// @Param device_id query string false "Device"
// @Param status query string false "pending, resolved or auto_resolved"
// @Param limit query int false "Max rows (1-1000)"
// @Success 200 {object} ConflictsResponse
// @Router /api/v1/admin/conflicts [get]
func (h *AdminConflictHandler) HandleListConflicts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, w)
	if !ok {
		return
	}

	status := domain.ConflictStatus(r.URL.Query().Get(QueryParamStatus))
	switch status {
	case "", domain.ConflictStatusPending, domain.ConflictStatusResolved, domain.ConflictStatusAutoResolved,
		domain.ConflictStatusApplying, domain.ConflictStatusAbandoned:
	default:
		respondError(w, http.StatusBadRequest, ErrMsgInvalidStatus)
		return
	}

	list, err := h.conflicts.List(r.Context(), conflict.Filter{
		TenantID: r.URL.Query().Get(QueryParamTenantID),
		DeviceID: r.URL.Query().Get(QueryParamDeviceID),
		Status:   status,
		Limit:    limit,
	})
	if err != nil {
		respondServiceError(w, r, "List conflicts", err)
		return
	}
	if list == nil {
		list = []domain.ConflictRecord{}
	}
	respondJSON(w, http.StatusOK, ConflictsResponse{Conflicts: list})
}

// HandleGetConflict returns one conflict log row
// @Summary Get conflict
// @Tags admin
// @Produce json
// @Param conflictID path string true "Conflict ID"
// @Success 200 {object} domain.ConflictRecord
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/admin/conflicts/{conflictID} [get]
func (h *AdminConflictHandler) HandleGetConflict(w http.ResponseWriter, r *http.Request) {
	rec, err := h.conflicts.Get(r.Context(), chi.URLParam(r, URLParamConflictID))
	if err != nil {
		respondServiceError(w, r, "Get conflict", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// HandleResolveConflict settles a pending conflict on behalf of the device
// @Summary Resolve pending conflict
// @Tags admin
// @Accept json
// @Produce json
// @Param conflictID path string true "Conflict ID"
// @Param request body ResolveConflictRequest true "Decision"
// @Success 200 {object} conflict.Resolution
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/admin/conflicts/{conflictID}/resolve [post]
func (h *AdminConflictHandler) HandleResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req ResolveConflictRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Resolve conflict"); err != nil {
		return
	}

	res, err := h.conflicts.ResolvePending(r.Context(), chi.URLParam(r, URLParamConflictID), req.Resolution, req.ClientData)
	if err != nil {
		respondServiceError(w, r, "Resolve conflict", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
