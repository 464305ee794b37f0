package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/logger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string           `json:"error"`
	Code      domain.ErrorCode `json:"code,omitempty"`
	Retryable bool             `json:"retryable"`
}

// MessageResponse represents a simple successful operation message
type MessageResponse struct {
	Message string `json:"message"`
}

// bufferPool reduces allocations during JSON encoding
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		slog.Error(LogMsgEncodeFailed, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error(LogMsgWriteFailed, "error", err)
	}
}

// respondRaw sends pre-encoded JSON untouched
func respondRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error(LogMsgWriteFailed, "error", err)
	}
}

// respondError sends a JSON error response without a machine code
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// serviceErrors binds each domain sentinel to its HTTP status.
// The sentinel's own message is what the client sees.
var serviceErrors = []struct {
	err    error
	status int
}{
	{domain.ErrOutcomeUnrecorded, http.StatusInternalServerError},
	{domain.ErrMissingField, http.StatusBadRequest},
	{domain.ErrInvalidPayload, http.StatusBadRequest},
	{domain.ErrUnknownDomain, http.StatusBadRequest},
	{domain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
	{domain.ErrInvalidResolution, http.StatusBadRequest},
	{domain.ErrUploadRefNotUsable, http.StatusBadRequest},
	{domain.ErrIdempotencyConflict, http.StatusConflict},
	{domain.ErrRequestInProgress, http.StatusConflict},
	{domain.ErrVersionAhead, http.StatusConflict},
	{domain.ErrConflictNotFound, http.StatusNotFound},
	{domain.ErrConflictAlreadyResolved, http.StatusConflict},
	{domain.ErrUploadNotFound, http.StatusNotFound},
	{domain.ErrUploadInvalid, http.StatusBadRequest},
	{domain.ErrUploadNotActive, http.StatusConflict},
	{domain.ErrUploadIncomplete, http.StatusConflict},
	{domain.ErrChunkOutOfRange, http.StatusBadRequest},
	{domain.ErrChunkSizeMismatch, http.StatusBadRequest},
	{domain.ErrChecksumMismatch, http.StatusUnprocessableEntity},
	{domain.ErrUploadExpired, http.StatusGone},
	{domain.ErrNotFound, http.StatusNotFound},
}

// mapServiceError converts a service error to an HTTP status and a client-safe body
func mapServiceError(err error) (int, ErrorResponse) {
	code := domain.CodeOf(err)
	resp := ErrorResponse{Code: code, Retryable: domain.IsRetryable(err)}

	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			resp.Error = se.err.Error()
			return se.status, resp
		}
	}

	switch code {
	case domain.CodeUnavailable:
		resp.Error = ErrMsgUnavailableError
		return http.StatusServiceUnavailable, resp
	case domain.CodeResourceExhausted:
		resp.Error = ErrMsgResourceExhausted
		return http.StatusServiceUnavailable, resp
	case domain.CodeTimeout:
		resp.Error = ErrMsgTimeoutError
		return http.StatusGatewayTimeout, resp
	default:
		resp.Error = ErrMsgGenericServerError
		return http.StatusInternalServerError, resp
	}
}

// respondServiceError logs err and writes its mapped response
func respondServiceError(w http.ResponseWriter, r *http.Request, opName string, err error) {
	status, resp := mapServiceError(err)

	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(fmt.Sprintf(LogMsgServiceError, opName), "error", err, "code", resp.Code)
	} else {
		log.Warn(fmt.Sprintf(LogMsgServiceError, opName), "error", err, "code", resp.Code)
	}

	if resp.Retryable {
		w.Header().Set(HeaderRetryAfter, RetryAfterSeconds)
	}
	respondJSON(w, status, resp)
}
