package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *SettlementServiceConfig {
	t.Helper()
	t.Setenv("OWNER_ADDRESS", "0xowner")
	t.Setenv("FEE_WALLET_ADDRESS", "0xfee")
	return New()
}

func TestNew_Defaults(t *testing.T) {
	cfg := validConfig(t)

	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 0, cfg.SettlementCfg.ProviderCommissionBps)
	assert.Equal(t, 100, cfg.SettlementCfg.PayerFeeBps)
	assert.Equal(t, 100, cfg.SettlementCfg.ExecutionCommissionBps)
	assert.Equal(t, 18, cfg.SettlementCfg.AmountDecimals)
	assert.Equal(t, 24*time.Hour, cfg.RedisCfg.IdempotencyTTL)
	assert.False(t, cfg.RedisCfg.Enabled)
	assert.False(t, cfg.RabbitMQCfg.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestNew_ReadsEnvironment(t *testing.T) {
	t.Setenv("PAYER_FEE_BPS", "250")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("STORAGE", "postgres")
	cfg := validConfig(t)

	assert.Equal(t, 250, cfg.SettlementCfg.PayerFeeBps)
	assert.True(t, cfg.RedisCfg.Enabled)
	assert.Equal(t, 90*time.Minute, cfg.RedisCfg.IdempotencyTTL)
	assert.Equal(t, StoragePostgres, cfg.Storage)
}

func TestNew_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("PAYER_FEE_BPS", "lots")
	cfg := validConfig(t)

	assert.Equal(t, 100, cfg.SettlementCfg.PayerFeeBps)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*SettlementServiceConfig){
		"missing owner":      func(c *SettlementServiceConfig) { c.SettlementCfg.OwnerAddress = "" },
		"missing fee wallet": func(c *SettlementServiceConfig) { c.SettlementCfg.FeeWalletAddress = " " },
		"bps above max":      func(c *SettlementServiceConfig) { c.SettlementCfg.ExecutionCommissionBps = 10001 },
		"negative bps":       func(c *SettlementServiceConfig) { c.SettlementCfg.PayerFeeBps = -1 },
		"unknown storage":    func(c *SettlementServiceConfig) { c.Storage = "bolt" },
		"no workers":         func(c *SettlementServiceConfig) { c.WorkerCfg.EventWorkers = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig(t)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
