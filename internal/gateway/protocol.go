package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/event"
)

// Envelope is the frame carried in every websocket text message.
// ID is echoed on responses so clients can correlate them.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	ID        string          `json:"id,omitempty"`
}

// SyncPayload is a batch sent by the device
type SyncPayload struct {
	IdempotencyKey string                `json:"idempotency_key"`
	DeviceID       string                `json:"device_id,omitempty"`
	Items          []domain.SyncItem     `json:"items"`
	Metadata       domain.DeviceMetadata `json:"metadata"`
}

// HeartbeatPayload carries the device clock
type HeartbeatPayload struct {
	ClientTime time.Time `json:"client_time"`
}

// HeartbeatAckPayload carries the server clock and, once the device has
// synced, the suggested delay before its next retry
type HeartbeatAckPayload struct {
	ServerTime   time.Time `json:"server_time"`
	ClientTime   time.Time `json:"client_time"`
	RetryAfterMs int64     `json:"retry_after_ms,omitempty"`
}

// ResolveConflictPayload is a device decision for a pending conflict
type ResolveConflictPayload struct {
	ConflictID string            `json:"conflict_id"`
	Resolution domain.Resolution `json:"resolution"`
	ClientData map[string]any    `json:"client_data,omitempty"`
}

// ConflictResolvedPayload reports a settled conflict
type ConflictResolvedPayload struct {
	ConflictID  string            `json:"conflict_id"`
	Domain      string            `json:"domain,omitempty"`
	MobileID    string            `json:"mobile_id,omitempty"`
	Resolution  domain.Resolution `json:"resolution"`
	WinningSide domain.Side       `json:"winning_side"`
	Version     int64             `json:"version"`
	Fields      map[string]any    `json:"fields,omitempty"`
}

// ServerPushPayload carries entity versions written elsewhere
type ServerPushPayload struct {
	Updates []event.EntityVersionV1 `json:"updates"`
}

// ErrorPayload is sent for requests that produced no outcome
type ErrorPayload struct {
	Code      domain.ErrorCode `json:"code"`
	Message   string           `json:"message"`
	Retryable bool             `json:"retryable"`
}

// Encode builds a frame. A json.RawMessage payload is embedded verbatim.
func Encode(msgType, id string, payload any, now time.Time) ([]byte, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf(ErrMsgEncodeEnvelope, msgType, err)
		}
		raw = b
	}
	if id == "" {
		id = uuid.NewString()
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw, Timestamp: now.UTC(), ID: id})
	if err != nil {
		return nil, fmt.Errorf(ErrMsgEncodeEnvelope, msgType, err)
	}
	return data, nil
}

// Decode parses a frame. Unknown types are left to the caller.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf(ErrMsgMalformedFrame, domain.ErrInvalidPayload, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf(ErrMsgMalformedFrame, domain.ErrInvalidPayload, "missing type")
	}
	return env, nil
}

// DecodePayload unmarshals an envelope payload into T
func DecodePayload[T any](env Envelope) (T, error) {
	var v T
	if len(env.Payload) == 0 {
		return v, fmt.Errorf(ErrMsgMalformedPayload, domain.ErrMissingField, env.Type, "empty payload")
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, fmt.Errorf(ErrMsgMalformedPayload, domain.ErrInvalidPayload, env.Type, err)
	}
	return v, nil
}

// errorPayload renders err with its stable code
func errorPayload(err error) ErrorPayload {
	return ErrorPayload{Code: domain.CodeOf(err), Message: err.Error(), Retryable: domain.IsRetryable(err)}
}
