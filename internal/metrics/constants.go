package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Event metric names
const (
	MetricNameEventsPublished    = "events_published_total"
	MetricNameEventHandlerErrors = "event_handler_errors_total"
)

// Sync metric names
const (
	MetricNameSyncBatchesTotal   = "sync_batches_total"
	MetricNameSyncBatchDuration  = "sync_batch_duration_seconds"
	MetricNameSyncItemsTotal     = "sync_items_total"
	MetricNameConflictsTotal     = "sync_conflicts_total"
	MetricNameIdempotencyReplays = "sync_idempotency_replays_total"
	MetricNamePolicyCacheLookups = "policy_cache_lookups_total"
)

// Gateway metric names
const (
	MetricNameGatewayConnections = "gateway_connections"
	MetricNameGatewayMessages    = "gateway_messages_total"
	MetricNameOutboundDropped    = "gateway_outbound_dropped_total"
	MetricNameOfflineQueueSize   = "gateway_offline_queue_size"
)

// Upload and health metric names
const (
	MetricNameUploadChunks      = "upload_chunks_total"
	MetricNameUploadsFinalized  = "uploads_finalized_total"
	MetricNameDeviceHealthScore = "device_health_score"
)

// Background job metric names
const (
	MetricNameJobRuns = "background_job_runs_total"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Event metric help text
const (
	HelpTextEventsPublished    = "Total number of events published"
	HelpTextEventHandlerErrors = "Total number of event handler errors"
)

// Sync metric help text
const (
	HelpTextSyncBatchesTotal   = "Total number of sync batches by result"
	HelpTextSyncBatchDuration  = "Sync batch processing time in seconds"
	HelpTextSyncItemsTotal     = "Total number of sync items by outcome"
	HelpTextConflictsTotal     = "Total number of detected conflicts by strategy and winner"
	HelpTextIdempotencyReplays = "Total number of batches answered from the idempotency store"
	HelpTextPolicyCacheLookups = "Tenant policy cache lookups by result"
)

// Gateway metric help text
const (
	HelpTextGatewayConnections = "Current number of live device connections"
	HelpTextGatewayMessages    = "Gateway frames by direction and message type"
	HelpTextOutboundDropped    = "Outbound messages dropped because a device queue was full"
	HelpTextOfflineQueueSize   = "Messages waiting in the offline queue"
)

// Upload and health metric help text
const (
	HelpTextUploadChunks      = "Upload chunk requests by result"
	HelpTextUploadsFinalized  = "Total number of finalized uploads"
	HelpTextDeviceHealthScore = "Distribution of recomputed device health scores"
)

// Background job metric help text
const (
	HelpTextJobRuns = "Background job runs by job and result"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelType      = "type"
	LabelResult    = "result"
	LabelOutcome   = "outcome"
	LabelStrategy  = "strategy"
	LabelWinner    = "winner"
	LabelDirection = "direction"
	LabelPriority  = "priority"
	LabelJob       = "job"
)

// Label values
const (
	ResultOK       = "ok"
	ResultReplay   = "replay"
	ResultError    = "error"
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultRejected = "rejected"
	ResultSkipped  = "skipped"

	DirectionIn  = "in"
	DirectionOut = "out"
)

// ============================================================================
// Histogram Buckets
// ============================================================================

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
// in seconds. These buckets range from 1ms to 10s to capture various latency
// patterns: fast (1-10ms), normal (10-100ms), slow (100ms-1s), very slow (1-10s)
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// HealthScoreBuckets spans the 0-100 device health score
var HealthScoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// ============================================================================
// Log Messages
// ============================================================================

// Debug log messages
const (
	LogMsgMetricsRecorded = "Metrics recorded for event"
)
