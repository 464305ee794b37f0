package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/gateway"
	"github.com/osse101/mobilesync/internal/upload"
)

// UploadService is the resumable upload state machine
type UploadService interface {
	Init(ctx context.Context, req upload.InitRequest) (*domain.UploadSession, error)
	UploadChunk(ctx context.Context, id string, index int, data []byte, checksum string) (*upload.ChunkResult, error)
	Status(ctx context.Context, id string) (*domain.UploadStatus, error)
	Finalize(ctx context.Context, id string) (*domain.FileReference, error)
	Cancel(ctx context.Context, id string) error
}

// InitUploadResponse describes a new session
type InitUploadResponse struct {
	UploadID    string    `json:"upload_id"`
	ChunkSize   int64     `json:"chunk_size"`
	TotalChunks int       `json:"total_chunks"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// FinalizeUploadResponse is the stable reference to an assembled file
type FinalizeUploadResponse struct {
	Finalized bool `json:"finalized"`
	*domain.FileReference
}

// CancelUploadResponse confirms a cancelled session
type CancelUploadResponse struct {
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"message"`
}

// UploadHandlers serves the chunked upload protocol
type UploadHandlers struct {
	uploads       UploadService
	maxChunkBytes int64
}

// NewUploadHandlers creates upload handlers. Bodies above maxChunkBytes are rejected.
func NewUploadHandlers(uploads UploadService, maxChunkBytes int64) *UploadHandlers {
	return &UploadHandlers{uploads: uploads, maxChunkBytes: maxChunkBytes}
}

// HandleInit opens an upload session
// @Summary Start a resumable upload
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body upload.InitRequest true "File description"
// @Success 201 {object} InitUploadResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/uploads/init [post]
func (h *UploadHandlers) HandleInit(w http.ResponseWriter, r *http.Request) {
	var req upload.InitRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Init upload"); err != nil {
		return
	}
	req.DeviceID = r.Header.Get(gateway.HeaderDeviceID)

	s, err := h.uploads.Init(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, "Init upload", err)
		return
	}

	respondJSON(w, http.StatusCreated, InitUploadResponse{
		UploadID:    s.ID,
		ChunkSize:   s.ChunkSize,
		TotalChunks: s.TotalChunks,
		ExpiresAt:   s.ExpiresAt,
	})
}

// HandleChunk stores one chunk. The body is the raw chunk bytes.
// @Summary Upload a chunk
// @Tags uploads
// @Accept application/octet-stream
// @Produce json
// @Param uploadID path string true "Upload ID"
// @Param index path int true "Chunk index"
// @Param X-Chunk-Checksum header string true "Lower-case hex SHA-256 of the chunk"
// @Success 200 {object} upload.ChunkResult
// @Failure 400 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/uploads/{uploadID}/chunk/{index} [post]
func (h *UploadHandlers) HandleChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, URLParamUploadID)
	index, err := strconv.Atoi(chi.URLParam(r, URLParamChunkIndex))
	if err != nil || index < 0 {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrMsgInvalidChunkIndex, Code: domain.CodeUploadInvalid})
		return
	}
	checksum := r.Header.Get(HeaderChunkChecksum)
	if checksum == "" {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrMsgMissingChecksum, Code: domain.CodeUploadInvalid})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxChunkBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: ErrMsgChunkTooLarge, Code: domain.CodeUploadInvalid})
			return
		}
		respondError(w, http.StatusBadRequest, ErrMsgInvalidRequest)
		return
	}

	res, err := h.uploads.UploadChunk(r.Context(), id, index, data, checksum)
	if err != nil {
		respondServiceError(w, r, "Upload chunk", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// HandleStatus reports uploaded and missing chunks
// @Summary Upload progress
// @Tags uploads
// @Produce json
// @Param uploadID path string true "Upload ID"
// @Success 200 {object} domain.UploadStatus
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/uploads/{uploadID}/status [get]
func (h *UploadHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.uploads.Status(r.Context(), chi.URLParam(r, URLParamUploadID))
	if err != nil {
		respondServiceError(w, r, "Upload status", err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// HandleFinalize assembles and verifies the file
// @Summary Finalize an upload
// @Tags uploads
// @Produce json
// @Param uploadID path string true "Upload ID"
// @Success 200 {object} FinalizeUploadResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/uploads/{uploadID}/finalize [post]
func (h *UploadHandlers) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	ref, err := h.uploads.Finalize(r.Context(), chi.URLParam(r, URLParamUploadID))
	if err != nil {
		respondServiceError(w, r, "Finalize upload", err)
		return
	}
	respondJSON(w, http.StatusOK, FinalizeUploadResponse{Finalized: true, FileReference: ref})
}

// HandleCancel abandons a session and frees its temporary storage
// @Summary Cancel an upload
// @Tags uploads
// @Produce json
// @Param uploadID path string true "Upload ID"
// @Success 200 {object} CancelUploadResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/uploads/{uploadID} [delete]
func (h *UploadHandlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.uploads.Cancel(r.Context(), chi.URLParam(r, URLParamUploadID)); err != nil {
		respondServiceError(w, r, "Cancel upload", err)
		return
	}
	respondJSON(w, http.StatusOK, CancelUploadResponse{Cancelled: true, Message: MsgUploadCancelled})
}
