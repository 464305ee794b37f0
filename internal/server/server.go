package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/osse101/mobilesync/docs"
	"github.com/osse101/mobilesync/internal/eventlog"
	"github.com/osse101/mobilesync/internal/gateway"
	"github.com/osse101/mobilesync/internal/handler"
	"github.com/osse101/mobilesync/internal/logger"
	"github.com/osse101/mobilesync/internal/metrics"
	"github.com/osse101/mobilesync/internal/policy"
	"github.com/osse101/mobilesync/internal/sse"
)

// Config holds listener and middleware settings
type Config struct {
	Port            int
	APIKey          string
	TrustedProxies  []string
	MaxRequestBytes int64
	MaxChunkBytes   int64
	RateLimit       int
	RateWindow      time.Duration

	// FilesPrefix and FilesDir serve finalized uploads. Empty FilesDir disables the route.
	FilesPrefix string
	FilesDir    string
}

// Dependencies are the services behind the HTTP API. Pinger may be nil
// when running on the memory backend.
type Dependencies struct {
	Pinger    handler.Pinger
	Sync      gateway.SyncProcessor
	Gateway   http.Handler
	Uploads   handler.UploadService
	Policies  policy.Service
	Conflicts handler.ConflictService
	Devices   handler.DeviceHealthService
	Analytics handler.AnalyticsService
	EventLog  eventlog.Service
	SSEHub    *sse.Hub
}

type Server struct {
	httpServer *http.Server
}

// NewServer creates a new Server instance
func NewServer(cfg Config, deps Dependencies) *Server {
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = DefaultMaxRequestBytes
	}

	r := chi.NewRouter()

	// Middleware stack
	// Chi middleware executes in order defined (outermost to innermost)
	detector := NewSuspiciousActivityDetector(cfg.RateLimit, cfg.RateWindow)

	r.Use(SecurityHeadersMiddleware())
	r.Use(AuthMiddleware(cfg.APIKey, cfg.TrustedProxies, detector))
	r.Use(SecurityLoggingMiddleware(cfg.TrustedProxies, detector))
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	// Health check routes (unversioned)
	r.Get(PathHealthz, handler.HandleHealthz())
	r.Get(PathReadyz, handler.HandleReadyz(deps.Pinger))
	r.Get(PathVersion, handler.HandleVersion())
	r.Handle(PathMetrics, promhttp.Handler())

	// Device channel (authenticates and upgrades itself)
	if deps.Gateway != nil {
		r.Get(PathGateway, deps.Gateway.ServeHTTP)
	}

	if cfg.FilesDir != "" && cfg.FilesPrefix != "" {
		prefix := "/" + strings.Trim(cfg.FilesPrefix, "/") + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.FilesDir))))
	}

	uploadHandlers := handler.NewUploadHandlers(deps.Uploads, cfg.MaxChunkBytes)

	r.Route("/api/v1", func(r chi.Router) {
		// JSON endpoints share one body limit; chunk uploads enforce their own
		r.Group(func(r chi.Router) {
			r.Use(RequestSizeLimitMiddleware(cfg.MaxRequestBytes))

			// The API key is already checked; identity comes from device headers
			syncHandler := handler.NewSyncHandler(deps.Sync, gateway.APIKeyAuthenticator{})
			r.Post("/sync", syncHandler.HandleSync)

			r.Post("/uploads/init", uploadHandlers.HandleInit)
			r.Get("/uploads/{uploadID}/status", uploadHandlers.HandleStatus)
			r.Post("/uploads/{uploadID}/finalize", uploadHandlers.HandleFinalize)
			r.Delete("/uploads/{uploadID}", uploadHandlers.HandleCancel)

			r.Route("/admin", func(r chi.Router) {
				policyHandler := handler.NewAdminPolicyHandler(deps.Policies)
				r.Route("/policies", func(r chi.Router) {
					r.Get("/", policyHandler.HandleListPolicies)
					r.Put("/", policyHandler.HandleSetPolicy)
					r.Get("/effective", policyHandler.HandleGetEffectivePolicy)
					r.Post("/invalidate", policyHandler.HandleInvalidate)
					r.Get("/cache", policyHandler.HandleCacheStats)
				})

				conflictHandler := handler.NewAdminConflictHandler(deps.Conflicts)
				r.Route("/conflicts", func(r chi.Router) {
					r.Get("/", conflictHandler.HandleListConflicts)
					r.Get("/{conflictID}", conflictHandler.HandleGetConflict)
					r.Post("/{conflictID}/resolve", conflictHandler.HandleResolveConflict)
				})

				deviceHandler := handler.NewAdminDeviceHandler(deps.Devices)
				r.Get("/devices/{userID}", deviceHandler.HandleListDevices)

				analyticsHandler := handler.NewAdminAnalyticsHandler(deps.Analytics)
				r.Get("/analytics", analyticsHandler.HandleGetAnalytics)

				if deps.SSEHub != nil {
					r.Get("/events", sse.Handler(deps.SSEHub))
				}
				if deps.EventLog != nil {
					eventsHandler := handler.NewAdminEventsHandler(deps.EventLog)
					r.Get("/events/log", eventsHandler.HandleGetEvents)
				} else {
					slog.Info(LogMsgEventLogDisabled)
				}
			})
		})

		r.Post("/uploads/{uploadID}/chunk/{index}", uploadHandlers.HandleChunk)
	})

	// Swagger documentation
	r.Get(PathSwagger, httpSwagger.WrapHandler)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the root router
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // default status
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Hijack passes websocket upgrades through
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.written = true
	return h.Hijack()
}

// Flush passes SSE flushes through
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Skip logging for probes and scrapes
		if strings.HasPrefix(r.URL.Path, PathHealthz) ||
			strings.HasPrefix(r.URL.Path, PathReadyz) ||
			strings.HasPrefix(r.URL.Path, PathMetrics) {
			next.ServeHTTP(w, r)
			return
		}

		requestID := logger.GenerateRequestID()
		ctx := logger.WithRequestID(r.Context(), requestID)
		if deviceID := r.Header.Get(gateway.HeaderDeviceID); deviceID != "" {
			ctx = logger.WithDeviceID(ctx, deviceID, "")
		}
		r = r.WithContext(ctx)

		log := logger.FromContext(ctx)

		log.Info(LogMsgRequestStarted,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_length", r.ContentLength,
			"user_agent", r.UserAgent())

		sanitizedHeaders := make(http.Header)
		for k, v := range r.Header {
			if strings.EqualFold(k, HeaderAPIKey) || strings.EqualFold(k, HeaderAuthorization) {
				sanitizedHeaders[k] = []string{RedactedValue}
			} else {
				sanitizedHeaders[k] = v
			}
		}
		log.Debug(LogMsgRequestHeaders, "headers", sanitizedHeaders)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Info(LogMsgRequestCompleted,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"duration", duration)
	})
}

// Start starts the server
func (s *Server) Start() error {
	slog.Default().Info(LogMsgServerStarting, "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
