package handler

import (
	"net/http"
	"strconv"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/gateway"
)

// SyncRequest is the HTTP form of a batch. Identity comes from headers.
type SyncRequest struct {
	IdempotencyKey string                `json:"idempotency_key"`
	Items          []domain.SyncItem     `json:"items"`
	Metadata       domain.DeviceMetadata `json:"metadata"`
}

// SyncHandler serves batch sync for devices without a websocket
type SyncHandler struct {
	engine gateway.SyncProcessor
	auth   gateway.Authenticator
}

// NewSyncHandler creates a sync handler
func NewSyncHandler(engine gateway.SyncProcessor, auth gateway.Authenticator) *SyncHandler {
	return &SyncHandler{engine: engine, auth: auth}
}

// HandleSync processes a batch through the same engine as the websocket path.
// The body is the stored outcome snapshot, byte-identical on replay.
// @Summary Submit a sync batch
// @Tags sync
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Param X-User-ID header string true "User"
// @Param X-Device-ID header string true "Device"
// @Param request body SyncRequest true "Batch"
// @Success 200 {object} domain.BatchOutcome
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/sync [post]
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(r, w, h.auth)
	if !ok {
		return
	}

	var req SyncRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Sync"); err != nil {
		return
	}

	res, err := h.engine.ProcessBatch(r.Context(), domain.BatchRequest{
		TenantID:       id.TenantID,
		UserID:         id.UserID,
		DeviceID:       id.DeviceID,
		IdempotencyKey: req.IdempotencyKey,
		Items:          req.Items,
		Metadata:       req.Metadata,
	})
	if err != nil {
		respondServiceError(w, r, "Sync", err)
		return
	}

	w.Header().Set(HeaderReplayed, strconv.FormatBool(res.Replayed))
	respondRaw(w, http.StatusOK, res.Snapshot)
}
