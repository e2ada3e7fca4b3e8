package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestApp"
	testPort := 9090
	testLogLevel := "debug"
	testKafkaBrokers := "kafka1:9092,kafka2:9092"
	testPlatformFee := 12.5

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKAFKA_BROKERS=%s\nFEES_PLATFORM_FEE_PERCENT=%v\n",
		testAppName, testPort, testLogLevel, testKafkaBrokers, testPlatformFee,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testKafkaBrokers, cfg.Kafka.Brokers)
	assert.Equal(t, testPlatformFee, cfg.Fees.PlatformFeePercent)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "payment_events", cfg.Kafka.PaymentEventTopic)
	assert.Equal(t, "payment_events_dlq", cfg.Kafka.DLQTopic)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 5*time.Minute, cfg.Providers.CacheTTL)
	assert.Equal(t, 3, cfg.Processor.MaxRetries)
	assert.Equal(t, int64(5000), cfg.Reconciliation.CriticalDiffThreshold)
	assert.Equal(t, "0 0 2 * * *", cfg.Scheduler.CronSchedule)
	assert.Equal(t, 10, cfg.WorkerPool.Size)

	cfgWithName, err := LoadConfigWithName("configs/test_happy") // Viper will look for configs/test_happy.env
	require.NoError(t, err)
	require.NotNil(t, cfgWithName)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	// Test LoadConfigWithNameAndType
	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	require.NotNil(t, cfgWithNameAndType)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)

}

func TestConfig_Validate_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test_defaults")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	// No config file present: defaults alone must form a valid configuration
	cfg, err := LoadConfig("does_not_exist")
	require.NoError(t, err, "Default config should be valid")
	require.NotNil(t, cfg)
}

func TestConfig_Validate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantMsg string
	}{
		{
			name:    "MissingTriggerSecret",
			mutate:  func(cfg *Config) { cfg.Auth.TriggerSecret = "" },
			wantMsg: "AUTH_TRIGGER_SECRET is required",
		},
		{
			name:    "PlatformFeePercentTooHigh",
			mutate:  func(cfg *Config) { cfg.Fees.PlatformFeePercent = 101 },
			wantMsg: "FEES_PLATFORM_FEE_PERCENT must be between 0 and 100",
		},
		{
			name:    "NegativeSurchargePercent",
			mutate:  func(cfg *Config) { cfg.Fees.GuestSurchargePercent = -0.5 },
			wantMsg: "FEES_GUEST_SURCHARGE_PERCENT must be between 0 and 100",
		},
		{
			name:    "NegativeCriticalThreshold",
			mutate:  func(cfg *Config) { cfg.Reconciliation.CriticalDiffThreshold = -1 },
			wantMsg: "RECONCILIATION_CRITICAL_DIFF_THRESHOLD must not be negative",
		},
		{
			name:    "MissingProcessorBaseURL",
			mutate:  func(cfg *Config) { cfg.Processor.BaseURL = "" },
			wantMsg: "PROCESSOR_BASE_URL is required",
		},
		{
			name:    "ZeroProcessorRetries",
			mutate:  func(cfg *Config) { cfg.Processor.MaxRetries = 0 },
			wantMsg: "PROCESSOR_MAX_RETRIES must be greater than 0",
		},
		{
			name:    "MissingAlertWebhook",
			mutate:  func(cfg *Config) { cfg.Alerting.WebhookURL = "" },
			wantMsg: "ALERTING_WEBHOOK_URL is required",
		},
		{
			name:    "MissingCronSchedule",
			mutate:  func(cfg *Config) { cfg.Scheduler.CronSchedule = "" },
			wantMsg: "SCHEDULER_CRON is required",
		},
		{
			name:    "ZeroCacheTTL",
			mutate:  func(cfg *Config) { cfg.Providers.CacheTTL = 0 },
			wantMsg: "PROVIDERS_CACHE_TTL must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)

			err := cfg.validate()

			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantMsg),
				"expected %q in %q", tt.wantMsg, err.Error())
		})
	}
}

func validBaseConfig() *Config {
	return &Config{
		Application: ApplicationConfig{Env: "test", Name: "payment-engine"},
		Logging:     LoggingConfig{Level: "info"},
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
		},
		Auth: AuthConfig{TriggerSecret: "secret", WebhookSecret: "secret"},
		Kafka: KafkaConfig{
			Brokers:           "localhost:9092",
			PaymentEventTopic: "payment_events",
			NumPartitions:     1,
			ReplicationFactor: 1,
			ConsumerGroup:     "payment-processor-group",
			MinBytes:          10240,
			MaxBytes:          10485760,
			MaxWait:           time.Second,
			DLQTopic:          "payment_events_dlq",
		},
		Postgres: PostgresConfig{
			URL:             "postgres://localhost:5432/payment_engine",
			MaxConns:        20,
			MinConns:        5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 30 * time.Minute,
			MigrationsPath:  "migrations/postgres",
		},
		MongoDB: MongoDBConfig{
			URI:             "mongodb://localhost:27017",
			Database:        "payment_engine",
			Timeout:         10 * time.Second,
			MaxPoolSize:     100,
			MinPoolSize:     10,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Redis: RedisConfig{Address: "localhost:6379"},
		Processor: ProcessorConfig{
			BaseURL:        "http://localhost:12111",
			APIKey:         "sk_test_dev",
			RequestTimeout: 10 * time.Second,
			LedgerPageSize: 100,
			MaxRetries:     3,
			RetryBackoff:   500 * time.Millisecond,
		},
		Providers: ProvidersConfig{
			BaseURL:        "http://localhost:8090",
			RequestTimeout: 5 * time.Second,
			CacheTTL:       5 * time.Minute,
		},
		Fees: FeesConfig{PlatformFeePercent: 10, GuestSurchargePercent: 5},
		Reconciliation: ReconciliationConfig{
			CriticalDiffThreshold: 5000,
			PageSize:              500,
		},
		Alerting: AlertingConfig{
			WebhookURL:       "http://localhost:8091/alerts",
			DashboardBaseURL: "http://localhost:3000/reconciliation",
			RequestTimeout:   5 * time.Second,
		},
		Scheduler: SchedulerConfig{
			CronSchedule: "0 0 2 * * *",
			LockKey:      "reconciliation:scheduler",
			LockTTL:      10 * time.Minute,
		},
		WorkerPool: WorkerPoolConfig{Size: 10},
	}
}
