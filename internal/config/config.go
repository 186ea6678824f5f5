package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type SettlementServiceConfig struct {
	Port          string
	APIKey        string
	Storage       string
	LogDir        string
	PostgresCfg   PostgresConfig
	RabbitMQCfg   RabbitMQConfig
	RedisCfg      RedisConfig
	SettlementCfg SettlementConfig
	WorkerCfg     WorkerConfig
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RabbitMQConfig struct {
	Enabled  bool
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Enabled        bool
	Host           string
	Port           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type SettlementConfig struct {
	OwnerAddress           string
	FeeWalletAddress       string
	ProviderCommissionBps  int
	PayerFeeBps            int
	ExecutionCommissionBps int
	AmountDecimals         int
}

type WorkerConfig struct {
	EventWorkers   int
	EventQueueSize int
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

func New() *SettlementServiceConfig {
	return &SettlementServiceConfig{
		Port:    getEnvOrDefault("PORT", "4000"),
		APIKey:  getEnvOrDefault("API_KEY", ""),
		Storage: getEnvOrDefault("STORAGE", StorageMemory),
		LogDir:  getEnvOrDefault("LOG_DIR", "/insurance/log/settlement_service"),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "insurance"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RabbitMQCfg: RabbitMQConfig{
			Enabled:  getEnvBoolOrDefault("RABBITMQ_ENABLED", false),
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		RedisCfg: RedisConfig{
			Enabled:        getEnvBoolOrDefault("REDIS_ENABLED", false),
			Host:           getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:           getEnvOrDefault("REDIS_PORT", "6379"),
			Password:       getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:             getEnvIntOrDefault("REDIS_DB", 0),
			IdempotencyTTL: getEnvDurationOrDefault("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		SettlementCfg: SettlementConfig{
			OwnerAddress:           getEnvOrDefault("OWNER_ADDRESS", ""),
			FeeWalletAddress:       getEnvOrDefault("FEE_WALLET_ADDRESS", ""),
			ProviderCommissionBps:  getEnvIntOrDefault("PROVIDER_COMMISSION_BPS", 0),
			PayerFeeBps:            getEnvIntOrDefault("PAYER_FEE_BPS", 100),
			ExecutionCommissionBps: getEnvIntOrDefault("EXECUTION_COMMISSION_BPS", 100),
			AmountDecimals:         getEnvIntOrDefault("AMOUNT_DECIMALS", 18),
		},
		WorkerCfg: WorkerConfig{
			EventWorkers:   getEnvIntOrDefault("EVENT_WORKERS", 2),
			EventQueueSize: getEnvIntOrDefault("EVENT_QUEUE_SIZE", 256),
		},
	}
}

// Validate rejects settings the settlement engine cannot start with.
func (c *SettlementServiceConfig) Validate() error {
	s := c.SettlementCfg
	if strings.TrimSpace(s.OwnerAddress) == "" {
		return fmt.Errorf("OWNER_ADDRESS is required")
	}
	if strings.TrimSpace(s.FeeWalletAddress) == "" {
		return fmt.Errorf("FEE_WALLET_ADDRESS is required")
	}
	for name, bps := range map[string]int{
		"PROVIDER_COMMISSION_BPS":  s.ProviderCommissionBps,
		"PAYER_FEE_BPS":            s.PayerFeeBps,
		"EXECUTION_COMMISSION_BPS": s.ExecutionCommissionBps,
	} {
		if bps < 0 || bps > 10000 {
			return fmt.Errorf("%s must be within [0, 10000], got %d", name, bps)
		}
	}
	if s.AmountDecimals < 0 || s.AmountDecimals > 36 {
		return fmt.Errorf("AMOUNT_DECIMALS must be within [0, 36], got %d", s.AmountDecimals)
	}
	if c.Storage != StorageMemory && c.Storage != StoragePostgres {
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMemory, StoragePostgres, c.Storage)
	}
	if c.WorkerCfg.EventWorkers < 1 || c.WorkerCfg.EventQueueSize < 1 {
		return fmt.Errorf("EVENT_WORKERS and EVENT_QUEUE_SIZE must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
