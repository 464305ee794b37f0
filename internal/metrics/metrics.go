package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Event Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)
)

// Sync engine metrics
var (
	SyncBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSyncBatchesTotal,
			Help: HelpTextSyncBatchesTotal,
		},
		[]string{LabelResult},
	)

	SyncBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameSyncBatchDuration,
			Help:    HelpTextSyncBatchDuration,
			Buckets: HTTPLatencyBuckets,
		},
	)

	SyncItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSyncItemsTotal,
			Help: HelpTextSyncItemsTotal,
		},
		[]string{LabelOutcome},
	)

	ConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameConflictsTotal,
			Help: HelpTextConflictsTotal,
		},
		[]string{LabelStrategy, LabelWinner},
	)

	IdempotencyReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameIdempotencyReplays,
			Help: HelpTextIdempotencyReplays,
		},
	)

	PolicyCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePolicyCacheLookups,
			Help: HelpTextPolicyCacheLookups,
		},
		[]string{LabelResult},
	)
)

// Gateway metrics
var (
	GatewayConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameGatewayConnections,
			Help: HelpTextGatewayConnections,
		},
	)

	GatewayMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameGatewayMessages,
			Help: HelpTextGatewayMessages,
		},
		[]string{LabelDirection, LabelType},
	)

	OutboundDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameOutboundDropped,
			Help: HelpTextOutboundDropped,
		},
		[]string{LabelPriority},
	)

	OfflineQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameOfflineQueueSize,
			Help: HelpTextOfflineQueueSize,
		},
	)
)

// Upload and health metrics
var (
	UploadChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameUploadChunks,
			Help: HelpTextUploadChunks,
		},
		[]string{LabelResult},
	)

	UploadsFinalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameUploadsFinalized,
			Help: HelpTextUploadsFinalized,
		},
	)

	DeviceHealthScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameDeviceHealthScore,
			Help:    HelpTextDeviceHealthScore,
			Buckets: HealthScoreBuckets,
		},
	)
)

// Background job metrics
var (
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameJobRuns,
			Help: HelpTextJobRuns,
		},
		[]string{LabelJob, LabelResult},
	)
)
