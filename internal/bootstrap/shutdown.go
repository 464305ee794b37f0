package bootstrap

import (
	"context"
	"log/slog"

	"github.com/osse101/mobilesync/internal/event"
	"github.com/osse101/mobilesync/internal/gateway"
	"github.com/osse101/mobilesync/internal/scheduler"
	"github.com/osse101/mobilesync/internal/server"
	"github.com/osse101/mobilesync/internal/sse"
	"github.com/osse101/mobilesync/internal/worker"
)

// ShutdownComponents holds all components that need graceful shutdown.
// Nil members are skipped.
type ShutdownComponents struct {
	Server             *server.Server
	Gateway            *gateway.Gateway
	Scheduler          *scheduler.Scheduler
	WorkerPool         *worker.Pool
	SSEHub             *sse.Hub
	ResilientPublisher *event.ResilientPublisher
	Repositories       *Repositories
	// StopWatchers cancels background watchers such as the schema reloader
	StopWatchers context.CancelFunc
}

// GracefulShutdown stops components in dependency order:
// 1. HTTP server (stop accepting new requests)
// 2. Device connections (close with a shutdown reason)
// 3. Background jobs and watchers
// 4. Event publisher (flush pending events)
// 5. Storage
//
// Errors during shutdown are logged but do not stop the shutdown sequence.
func GracefulShutdown(ctx context.Context, c ShutdownComponents) {
	slog.Info(LogMsgShuttingDownServer)

	if c.Server != nil {
		if err := c.Server.Stop(ctx); err != nil {
			slog.Error(LogMsgServerForcedShutdown, "error", err)
		}
	}

	if c.Gateway != nil {
		slog.Info(LogMsgClosingDeviceConnections, "connections", c.Gateway.Hub().Count())
		c.Gateway.Shutdown()
	}

	slog.Info(LogMsgStoppingBackgroundJobs)
	if c.StopWatchers != nil {
		c.StopWatchers()
	}
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.WorkerPool != nil {
		c.WorkerPool.Stop()
	}
	if c.SSEHub != nil {
		c.SSEHub.Stop()
	}

	// Shutdown resilient publisher last to flush pending events
	if c.ResilientPublisher != nil {
		slog.Info(LogMsgShuttingDownEventPublisher)
		if err := c.ResilientPublisher.Shutdown(ctx); err != nil {
			slog.Error(LogMsgResilientPublisherFailed, "error", err)
		}
	}

	if c.Repositories != nil {
		c.Repositories.Close()
	}

	slog.Info(LogMsgServerStopped)
}
