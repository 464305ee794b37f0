package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/osse101/mobilesync/internal/analytics"
	"github.com/osse101/mobilesync/internal/event"
	"github.com/osse101/mobilesync/internal/eventlog"
	"github.com/osse101/mobilesync/internal/gateway"
	"github.com/osse101/mobilesync/internal/metrics"
	"github.com/osse101/mobilesync/internal/sse"
)

// EventHandlerDependencies holds the dependencies needed for event handler registration.
type EventHandlerDependencies struct {
	EventBus        event.Bus
	Gateway         *gateway.Gateway
	Analytics       *analytics.Aggregator
	EventLogService eventlog.Service
	SSEHub          *sse.Hub
}

// RegisterEventHandlers sets up all event handlers and subscribers:
// device fan-out, analytics, metrics, the event log and the admin SSE stream.
func RegisterEventHandlers(deps EventHandlerDependencies) error {
	deps.Gateway.Register(deps.EventBus)
	slog.Info(LogMsgGatewayRegistered)

	deps.Analytics.Register(deps.EventBus)
	slog.Info(LogMsgAnalyticsRegistered)

	metricsCollector := metrics.NewEventMetricsCollector()
	if err := metricsCollector.Register(deps.EventBus); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedRegisterMetrics, err)
	}
	slog.Info(LogMsgMetricsCollectorRegistered)

	if err := deps.EventLogService.Subscribe(deps.EventBus); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedSubscribeEventLogger, err)
	}
	slog.Info(LogMsgEventLoggerInitialized)

	if deps.SSEHub != nil {
		sse.NewSubscriber(deps.SSEHub, deps.EventBus).Subscribe()
		slog.Info(LogMsgSSESubscriberRegistered)
	}

	return nil
}
