// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for all major components including
// server settings, database connections, message queues, payment processor access,
// and reconciliation parameters.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration (e.g., HTTP server, databases,
// external payment processor) and is validated during application startup.
type Config struct {
	Application    ApplicationConfig
	Logging        LoggingConfig
	Server         ServerConfig
	Auth           AuthConfig
	Kafka          KafkaConfig
	Postgres       PostgresConfig
	MongoDB        MongoDBConfig
	Redis          RedisConfig
	Processor      ProcessorConfig
	Providers      ProvidersConfig
	Fees           FeesConfig
	Reconciliation ReconciliationConfig
	Alerting       AlertingConfig
	Scheduler      SchedulerConfig
	WorkerPool     WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// AuthConfig contains shared secrets for the operator and webhook surfaces
type AuthConfig struct {
	TriggerSecret string // Bearer secret required on reconciliation routes
	WebhookSecret string // Shared secret expected on processor webhook calls
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	PaymentEventTopic string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// ProcessorConfig contains external payment processor access settings
type ProcessorConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	LedgerPageSize int           // Page size for transaction/payout listing
	MaxRetries     int           // Attempts per ledger page fetch
	RetryBackoff   time.Duration // Base delay, doubled per attempt
}

// ProvidersConfig contains provider-management service access settings
type ProvidersConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	CacheTTL       time.Duration // TTL for cached onboarding statuses
}

// FeesConfig contains marketplace fee percentages
type FeesConfig struct {
	PlatformFeePercent    float64
	GuestSurchargePercent float64
}

// ReconciliationConfig contains reconciliation engine parameters
type ReconciliationConfig struct {
	CriticalDiffThreshold int64 // Minor units; larger mismatches are critical
	PageSize              int   // Internal ledger page size while matching
}

// AlertingConfig contains operator alert delivery settings
type AlertingConfig struct {
	WebhookURL       string
	DashboardBaseURL string
	RequestTimeout   time.Duration
}

// SchedulerConfig contains reconciler scheduling configuration
type SchedulerConfig struct {
	CronSchedule string        // Six-field cron expression (seconds included)
	LockKey      string        // Redis lock key guarding the tick
	LockTTL      time.Duration // Lock lifetime; must outlast a typical run
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Auth config
	if c.Auth.TriggerSecret == "" {
		validationErrors = append(validationErrors, "AUTH_TRIGGER_SECRET is required")
	}
	if c.Auth.WebhookSecret == "" {
		validationErrors = append(validationErrors, "AUTH_WEBHOOK_SECRET is required")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.PaymentEventTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_PAYMENT_EVENT_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Address == "" {
		validationErrors = append(validationErrors, "REDIS_ADDRESS is required")
	}

	// Validate Processor config
	if c.Processor.BaseURL == "" {
		validationErrors = append(validationErrors, "PROCESSOR_BASE_URL is required")
	}
	if c.Processor.APIKey == "" {
		validationErrors = append(validationErrors, "PROCESSOR_API_KEY is required")
	}
	if c.Processor.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "PROCESSOR_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.Processor.LedgerPageSize <= 0 {
		validationErrors = append(validationErrors, "PROCESSOR_LEDGER_PAGE_SIZE must be greater than 0")
	}
	if c.Processor.MaxRetries <= 0 {
		validationErrors = append(validationErrors, "PROCESSOR_MAX_RETRIES must be greater than 0")
	}
	if c.Processor.RetryBackoff <= 0 {
		validationErrors = append(validationErrors, "PROCESSOR_RETRY_BACKOFF must be greater than 0")
	}

	// Validate Providers config
	if c.Providers.BaseURL == "" {
		validationErrors = append(validationErrors, "PROVIDERS_BASE_URL is required")
	}
	if c.Providers.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "PROVIDERS_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.Providers.CacheTTL <= 0 {
		validationErrors = append(validationErrors, "PROVIDERS_CACHE_TTL must be greater than 0")
	}

	// Validate Fees config
	if c.Fees.PlatformFeePercent < 0 || c.Fees.PlatformFeePercent > 100 {
		validationErrors = append(validationErrors, "FEES_PLATFORM_FEE_PERCENT must be between 0 and 100")
	}
	if c.Fees.GuestSurchargePercent < 0 || c.Fees.GuestSurchargePercent > 100 {
		validationErrors = append(validationErrors, "FEES_GUEST_SURCHARGE_PERCENT must be between 0 and 100")
	}

	// Validate Reconciliation config
	if c.Reconciliation.CriticalDiffThreshold < 0 {
		validationErrors = append(validationErrors, "RECONCILIATION_CRITICAL_DIFF_THRESHOLD must not be negative")
	}
	if c.Reconciliation.PageSize <= 0 {
		validationErrors = append(validationErrors, "RECONCILIATION_PAGE_SIZE must be greater than 0")
	}

	// Validate Alerting config
	if c.Alerting.WebhookURL == "" {
		validationErrors = append(validationErrors, "ALERTING_WEBHOOK_URL is required")
	}
	if c.Alerting.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "ALERTING_REQUEST_TIMEOUT must be greater than 0")
	}

	// Validate Scheduler config
	if c.Scheduler.CronSchedule == "" {
		validationErrors = append(validationErrors, "SCHEDULER_CRON is required")
	}
	if c.Scheduler.LockKey == "" {
		validationErrors = append(validationErrors, "SCHEDULER_LOCK_KEY is required")
	}
	if c.Scheduler.LockTTL <= 0 {
		validationErrors = append(validationErrors, "SCHEDULER_LOCK_TTL must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
