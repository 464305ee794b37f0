package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port        int
	LogLevel    string
	LogFormat   string
	LogDir      string
	ServiceName string
	Version     string
	Environment string
	APIKey      string // API key for authentication

	// HTTP
	TrustedProxies  []string
	MaxRequestBytes int64
	RateLimitPerIP  int

	// Storage
	StorageBackend    string
	DBUser            string
	DBPassword        string
	DBHost            string
	DBPort            string
	DBName            string
	DBMaxConns        int
	DBMaxConnIdleTime time.Duration
	DBMaxConnLifetime time.Duration

	// Idempotency
	IdempotencyTTL            time.Duration
	IdempotencyReservationTTL time.Duration
	IdempotencyCleanupEvery   time.Duration

	// Tenant policy cache
	PolicyCacheTTL  time.Duration
	PolicyCacheSize int

	// Sync engine
	ItemTimeout     time.Duration
	BatchTimeout    time.Duration
	MaxPayloadBytes int
	MaxBatchItems   int
	ItemConcurrency int
	SchemaDir       string

	// Uploads
	UploadChunkSize     int64
	UploadTTL           time.Duration
	UploadTempDir       string
	UploadStorageDir    string
	UploadMaxTempBytes  int64
	UploadPublicBaseURL string
	UploadSweepEvery    time.Duration

	// Connection gateway
	HeartbeatInterval    time.Duration
	HeartbeatMaxMisses   int
	OutboundQueueSize    int
	OfflineQueueTTL      time.Duration
	OfflineQueueSize     int
	MaxConcurrentBatches int

	// Device health
	HealthP95Target time.Duration
	HealthEWMAAlpha float64

	// Analytics
	AnalyticsFlushInterval time.Duration

	// Notifications
	DiscordBotToken  string
	DiscordChannelID string

	// Event publishing
	EventMaxRetries       int
	EventRetryDelay       time.Duration
	EventDeadLetterPath   string
	EventlogRetentionDays int

	WorkerPoolSize int
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		LogDir:      getEnv("LOG_DIR", ""),
		ServiceName: getEnv("SERVICE_NAME", "mobilesync"),
		Version:     getEnv("VERSION", "dev"),
		Environment: getEnv("ENVIRONMENT", "dev"),
		APIKey:      getEnv("API_KEY", ""),

		TrustedProxies:  getEnvAsList("TRUSTED_PROXIES"),
		MaxRequestBytes: getEnvAsInt64("MAX_REQUEST_BYTES", 8<<20),
		RateLimitPerIP:  getEnvAsInt("RATE_LIMIT_PER_IP", 1000),

		StorageBackend:    getEnv("STORAGE_BACKEND", StorageBackendPostgres),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBName:            getEnv("DB_NAME", "mobilesync"),
		DBMaxConns:        getEnvAsInt("DB_MAX_CONNS", 20),
		DBMaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
		DBMaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),

		IdempotencyTTL:            getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		IdempotencyReservationTTL: getEnvAsDuration("IDEMPOTENCY_RESERVATION_TTL", 2*time.Minute),
		IdempotencyCleanupEvery:   getEnvAsDuration("IDEMPOTENCY_CLEANUP_INTERVAL", time.Hour),

		PolicyCacheTTL:  getEnvAsDuration("POLICY_CACHE_TTL", time.Hour),
		PolicyCacheSize: getEnvAsInt("POLICY_CACHE_SIZE", 4096),

		ItemTimeout:     getEnvAsDuration("ITEM_TIMEOUT", 5*time.Second),
		BatchTimeout:    getEnvAsDuration("BATCH_TIMEOUT", 30*time.Second),
		MaxPayloadBytes: getEnvAsInt("MAX_PAYLOAD_BYTES", 256<<10),
		MaxBatchItems:   getEnvAsInt("MAX_BATCH_ITEMS", 500),
		ItemConcurrency: getEnvAsInt("ITEM_CONCURRENCY", 8),
		SchemaDir:       getEnv("SCHEMA_DIR", DefaultSchemaDir),

		UploadChunkSize:     getEnvAsInt64("UPLOAD_CHUNK_SIZE", 1<<20),
		UploadTTL:           getEnvAsDuration("UPLOAD_TTL", 24*time.Hour),
		UploadTempDir:       getEnv("UPLOAD_TEMP_DIR", DefaultUploadTempDir),
		UploadStorageDir:    getEnv("UPLOAD_STORAGE_DIR", DefaultUploadStorageDir),
		UploadMaxTempBytes:  getEnvAsInt64("UPLOAD_MAX_TEMP_BYTES", 10<<30),
		UploadPublicBaseURL: getEnv("UPLOAD_PUBLIC_BASE_URL", "/files"),
		UploadSweepEvery:    getEnvAsDuration("UPLOAD_SWEEP_INTERVAL", 10*time.Minute),

		HeartbeatInterval:    getEnvAsDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		HeartbeatMaxMisses:   getEnvAsInt("HEARTBEAT_MAX_MISSES", 3),
		OutboundQueueSize:    getEnvAsInt("OUTBOUND_QUEUE_SIZE", 256),
		OfflineQueueTTL:      getEnvAsDuration("OFFLINE_QUEUE_TTL", 10*time.Minute),
		OfflineQueueSize:     getEnvAsInt("OFFLINE_QUEUE_SIZE", 100),
		MaxConcurrentBatches: getEnvAsInt("MAX_CONCURRENT_BATCHES", 4),

		HealthP95Target: getEnvAsDuration("HEALTH_P95_TARGET", 2*time.Second),
		HealthEWMAAlpha: getEnvAsFloat("HEALTH_EWMA_ALPHA", 0.2),

		AnalyticsFlushInterval: getEnvAsDuration("ANALYTICS_FLUSH_INTERVAL", 5*time.Minute),

		DiscordBotToken:  getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordChannelID: getEnv("DISCORD_CHANNEL_ID", ""),

		EventMaxRetries:       getEnvAsInt("EVENT_MAX_RETRIES", 3),
		EventRetryDelay:       getEnvAsDuration("EVENT_RETRY_DELAY", 2*time.Second),
		EventDeadLetterPath:   getEnv("EVENT_DEADLETTER_PATH", DefaultDeadLetterPath),
		EventlogRetentionDays: getEnvAsInt("EVENTLOG_RETENTION_DAYS", 30),

		WorkerPoolSize: getEnvAsInt("WORKER_POOL_SIZE", 4),
	}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}
	cfg.Port = port

	// Validate API key is set
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable must be set for security")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageBackendPostgres, StorageBackendMemory:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q: expected %s or %s", c.StorageBackend, StorageBackendPostgres, StorageBackendMemory)
	}
	if c.UploadChunkSize <= 0 {
		return fmt.Errorf("UPLOAD_CHUNK_SIZE must be positive, got %d", c.UploadChunkSize)
	}
	if c.HealthEWMAAlpha <= 0 || c.HealthEWMAAlpha > 1 {
		return fmt.Errorf("HEALTH_EWMA_ALPHA must be in (0, 1], got %v", c.HealthEWMAAlpha)
	}
	if c.HeartbeatMaxMisses < 1 {
		return fmt.Errorf("HEARTBEAT_MAX_MISSES must be at least 1, got %d", c.HeartbeatMaxMisses)
	}
	if c.IdempotencyReservationTTL >= c.IdempotencyTTL {
		return fmt.Errorf("IDEMPOTENCY_RESERVATION_TTL (%s) must be shorter than IDEMPOTENCY_TTL (%s)", c.IdempotencyReservationTTL, c.IdempotencyTTL)
	}
	if c.MaxRequestBytes < int64(c.MaxPayloadBytes) {
		return fmt.Errorf("MAX_REQUEST_BYTES (%d) must be at least MAX_PAYLOAD_BYTES (%d)", c.MaxRequestBytes, c.MaxPayloadBytes)
	}
	if c.ItemTimeout > c.BatchTimeout {
		return fmt.Errorf("ITEM_TIMEOUT (%s) must not exceed BATCH_TIMEOUT (%s)", c.ItemTimeout, c.BatchTimeout)
	}
	return nil
}

// DiscordEnabled reports whether conflict notifications should go to Discord.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordBotToken != "" && c.DiscordChannelID != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty entries
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
