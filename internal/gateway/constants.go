package gateway

import "time"

// Client to server message types
const (
	TypeSync            = "sync"
	TypeHeartbeat       = "heartbeat"
	TypeResolveConflict = "resolve_conflict"
)

// Server to client message types
const (
	TypeSyncResponse     = "sync_response"
	TypeHeartbeatAck     = "heartbeat_ack"
	TypeConflict         = "conflict"
	TypeConflictResolved = "conflict_resolved"
	TypeServerPush       = "server_push"
	TypeError            = "error"
)

// Identity headers read by the default authenticator
const (
	HeaderAPIKey   = "X-API-Key"
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
	HeaderDeviceID = "X-Device-ID"
)

// Defaults
const (
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultHeartbeatMaxMisses   = 3
	DefaultOutboundQueueSize    = 256
	DefaultDispatchQueueSize    = 16
	DefaultMaxConcurrentBatches = 4
	DefaultOfflineQueueTTL      = 5 * time.Minute
	DefaultOfflinePerDevice     = 100
	DefaultMaxMessageBytes      = 4 << 20

	// WriteTimeout bounds a single frame write
	WriteTimeout = 10 * time.Second

	ReadBufferSize  = 4096
	WriteBufferSize = 4096
)

// Close reasons
const (
	CloseReasonReplaced         = "replaced by a newer connection"
	CloseReasonHeartbeat        = "heartbeat missed"
	CloseReasonProtocol         = "protocol violation"
	CloseReasonShutdown         = "server shutting down"
	CloseReasonClientDisconnect = "client disconnected"
)

// Log messages
const (
	LogMsgConnected         = "Device connected"
	LogMsgDisconnected      = "Device disconnected"
	LogMsgReplaced          = "Closing previous connection for device"
	LogMsgAuthFailed        = "Gateway authentication failed"
	LogMsgUpgradeFailed     = "WebSocket upgrade failed"
	LogMsgReadError         = "Gateway read error"
	LogMsgWriteError        = "Gateway write error"
	LogMsgProtocolViolation = "Protocol violation, closing connection"
	LogMsgHeartbeatMissed   = "Heartbeat interval missed"
	LogMsgIdle              = "Connection idle"
	LogMsgMessageDropped    = "Outbound message dropped"
	LogMsgQueuedOffline     = "Message held in offline queue"
	LogMsgOfflineFlushed    = "Offline messages delivered"
	LogMsgOfflineSwept      = "Expired offline messages removed"
	LogMsgDispatchFull      = "Dispatch queue full, rejecting batch"
	LogMsgBatchFailed       = "Batch failed"
	LogMsgResolveFailed     = "Conflict resolution failed"
	LogMsgEncodeFailed      = "Failed to encode outbound message"
	LogMsgDecodeFailed      = "Failed to decode event payload"
)

// Error message formats
const (
	ErrMsgMissingHeader    = "missing %s header"
	ErrMsgInvalidAPIKey    = "invalid API key"
	ErrMsgUnknownType      = "%w: unknown message type %q"
	ErrMsgMalformedFrame   = "%w: malformed frame: %v"
	ErrMsgMalformedPayload = "%w: malformed %s payload: %v"
	ErrMsgDeviceMismatch   = "%w: payload device_id %q does not match connection"
	ErrMsgQueueClosed      = "outbound queue closed"
	ErrMsgEncodeEnvelope   = "encode %s envelope: %w"
)
