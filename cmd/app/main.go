package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osse101/mobilesync/internal/analytics"
	"github.com/osse101/mobilesync/internal/bootstrap"
	"github.com/osse101/mobilesync/internal/concurrency"
	"github.com/osse101/mobilesync/internal/config"
	"github.com/osse101/mobilesync/internal/conflict"
	"github.com/osse101/mobilesync/internal/engine"
	"github.com/osse101/mobilesync/internal/eventlog"
	"github.com/osse101/mobilesync/internal/gateway"
	"github.com/osse101/mobilesync/internal/handler"
	"github.com/osse101/mobilesync/internal/health"
	"github.com/osse101/mobilesync/internal/idempotency"
	"github.com/osse101/mobilesync/internal/notify"
	"github.com/osse101/mobilesync/internal/policy"
	"github.com/osse101/mobilesync/internal/scheduler"
	"github.com/osse101/mobilesync/internal/server"
	"github.com/osse101/mobilesync/internal/sse"
	"github.com/osse101/mobilesync/internal/upload"
	"github.com/osse101/mobilesync/internal/validation"
	"github.com/osse101/mobilesync/internal/worker"
)

const (
	shutdownTimeout       = 30 * time.Second
	offlineSweepInterval  = time.Minute
	eventlogCleanupPeriod = 24 * time.Hour
	workerQueueSize       = 64
)

// @title mobilesync API
// @version 1.0
// @description Offline-first sync backend for mobile devices.
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logFile, err := bootstrap.SetupLogger(cfg)
	if err != nil {
		slog.Error("Failed to setup logger", "error", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	warnings, err := config.ValidateEnvWithWarnings()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn(w)
	}

	ctx := context.Background()

	repos, err := bootstrap.InitializeRepositories(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info(bootstrap.LogMsgStorageInitialized, "backend", cfg.StorageBackend)

	eventBus, publisher, err := bootstrap.InitializeEventSystem(cfg)
	if err != nil {
		slog.Error("Failed to initialize event system", "error", err)
		os.Exit(1)
	}

	locks := concurrency.NewLockManager()

	// Uploads
	blobs, err := upload.NewFileStorage(cfg.UploadTempDir, cfg.UploadStorageDir, cfg.UploadMaxTempBytes)
	if err != nil {
		slog.Error("Failed to initialize upload storage", "error", err)
		os.Exit(1)
	}
	uploads := upload.NewManager(repos.Uploads, blobs, locks, publisher, upload.Config{
		ChunkSize:     cfg.UploadChunkSize,
		TTL:           cfg.UploadTTL,
		PublicBaseURL: cfg.UploadPublicBaseURL,
	})

	// Payload validation with live schema reload
	validator, err := validation.NewRegistry(cfg.SchemaDir, cfg.MaxPayloadBytes, uploads)
	if err != nil {
		slog.Error("Failed to load payload schemas", "error", err, "dir", cfg.SchemaDir)
		os.Exit(1)
	}
	watchCtx, stopWatchers := context.WithCancel(ctx)
	go func() {
		if err := validator.Watch(watchCtx); err != nil {
			slog.Warn("Schema watcher stopped", "error", err)
		}
	}()

	// Conflict handling
	policyCache := policy.NewCache(repos.Policies, cfg.PolicyCacheSize, cfg.PolicyCacheTTL)
	policyService := policy.NewService(repos.Policies, policyCache)

	var notifier conflict.Notifier = notify.Noop{}
	if cfg.DiscordEnabled() {
		discordNotifier, err := notify.NewDiscordNotifier(notify.Config{
			Token:     cfg.DiscordBotToken,
			ChannelID: cfg.DiscordChannelID,
		})
		if err != nil {
			slog.Error("Failed to create Discord notifier", "error", err)
			os.Exit(1)
		}
		notifier = discordNotifier
	}
	resolver := conflict.NewResolver(repos.Entities, repos.Conflicts, policyService, notifier, publisher, locks)

	healthTracker := health.NewTracker(repos.Health, health.Config{
		Alpha:     cfg.HealthEWMAAlpha,
		P95Target: cfg.HealthP95Target,
	})

	idempotencyService := idempotency.NewService(repos.Idempotency, idempotency.Config{
		TTL:            cfg.IdempotencyTTL,
		ReservationTTL: cfg.IdempotencyReservationTTL,
	})

	syncEngine := engine.New(idempotencyService, validator, resolver, healthTracker, publisher, engine.Config{
		ItemTimeout:   cfg.ItemTimeout,
		BatchTimeout:  cfg.BatchTimeout,
		MaxBatchItems: cfg.MaxBatchItems,
		Concurrency:   cfg.ItemConcurrency,
	})

	gw := gateway.New(syncEngine, resolver, gateway.APIKeyAuthenticator{Key: cfg.APIKey}, gateway.Config{
		HeartbeatInterval:    cfg.HeartbeatInterval,
		HeartbeatMaxMisses:   cfg.HeartbeatMaxMisses,
		OutboundQueueSize:    cfg.OutboundQueueSize,
		MaxConcurrentBatches: cfg.MaxConcurrentBatches,
		OfflineQueueTTL:      cfg.OfflineQueueTTL,
		OfflinePerDevice:     cfg.OfflineQueueSize,
		MaxMessageBytes:      cfg.MaxRequestBytes,
		Backoff:              healthTracker.SuggestedBackoff,
	})

	aggregator := analytics.NewAggregator(repos.Analytics, publisher)
	eventlogService := eventlog.NewService(repos.EventLog)

	sseHub := sse.NewHub()
	sseHub.Start()

	if err := bootstrap.RegisterEventHandlers(bootstrap.EventHandlerDependencies{
		EventBus:        eventBus,
		Gateway:         gw,
		Analytics:       aggregator,
		EventLogService: eventlogService,
		SSEHub:          sseHub,
	}); err != nil {
		slog.Error("Failed to register event handlers", "error", err)
		os.Exit(1)
	}

	// Background jobs
	pool := worker.NewPool(cfg.WorkerPoolSize, workerQueueSize)
	pool.Start()

	sched := scheduler.New(pool)
	sched.Schedule(cfg.IdempotencyCleanupEvery, idempotency.NewCleanupJob(idempotencyService))
	sched.Schedule(cfg.UploadSweepEvery, upload.NewSweepJob(uploads))
	sched.Schedule(cfg.AnalyticsFlushInterval, analytics.NewFlushJob(aggregator))
	sched.Schedule(offlineSweepInterval, gateway.NewOfflineSweepJob(gw.Hub()))
	sched.ScheduleImmediate(eventlogCleanupPeriod, eventlog.NewCleanupJob(eventlogService, cfg.EventlogRetentionDays))
	sched.Start()

	deps := server.Dependencies{
		Sync:      syncEngine,
		Gateway:   gw,
		Uploads:   uploads,
		Policies:  policyService,
		Conflicts: resolver,
		Devices:   healthTracker,
		Analytics: aggregator,
		EventLog:  eventlogService,
		SSEHub:    sseHub,
	}
	// Leave Pinger as an untyped nil on the memory backend
	var pinger handler.Pinger
	if repos.Pool != nil {
		pinger = repos.Pool
	}
	deps.Pinger = pinger

	srv := server.NewServer(server.Config{
		Port:            cfg.Port,
		APIKey:          cfg.APIKey,
		TrustedProxies:  cfg.TrustedProxies,
		MaxRequestBytes: cfg.MaxRequestBytes,
		MaxChunkBytes:   cfg.UploadChunkSize,
		RateLimit:       cfg.RateLimitPerIP,
		FilesPrefix:     cfg.UploadPublicBaseURL,
		FilesDir:        cfg.UploadStorageDir,
	}, deps)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	slog.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	bootstrap.GracefulShutdown(shutdownCtx, bootstrap.ShutdownComponents{
		Server:             srv,
		Gateway:            gw,
		Scheduler:          sched,
		WorkerPool:         pool,
		SSEHub:             sseHub,
		ResilientPublisher: publisher,
		Repositories:       repos,
		StopWatchers:       stopWatchers,
	})
}
