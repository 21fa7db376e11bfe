package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_URL", "https://polygon-rpc.example")
	t.Setenv("PRIVATE_KEY", "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	t.Setenv("MORALIS_API_KEY", "moralis-key")
	t.Setenv("SUBGRAPH_API_KEY", "graph-key")
	t.Setenv("SUBGRAPH_ID", "sushi-polygon")
}

func emptyConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: test-bot\n"), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(emptyConfigFile(t))
	require.NoError(t, err)

	assert.Equal(t, "test-bot", cfg.App.Name)
	assert.Equal(t, uint64(137), cfg.Chain.ChainID)
	assert.Equal(t, "0x89", cfg.Pricing.MoralisChain)
	assert.Equal(t, "uniswapv3", cfg.Pricing.UniswapExchange)
	assert.Equal(t, "https://gateway.thegraph.com/api/graph-key/subgraphs/id/sushi-polygon", cfg.Pricing.SubgraphEndpoint())
	assert.Equal(t, uint64(8000000), cfg.Execution.GasLimit)
	assert.Equal(t, int64(60), cfg.Execution.GasPriceGwei)
	assert.Equal(t, uint64(3), cfg.Execution.Confirmations)
	assert.Equal(t, 30*time.Minute, cfg.Execution.ConfirmationTimeout)
	assert.Equal(t, 20*time.Minute, cfg.Execution.Deadline)
	assert.Equal(t, 10*time.Minute, cfg.Trading.CheckInterval)
	assert.Equal(t, 60*time.Minute, cfg.Trading.MaxHold)
	assert.Equal(t, 10*time.Second, cfg.Trading.CycleDelay)
	assert.Equal(t, "data.json", cfg.Trading.TokenListPath)
	assert.Equal(t, "trades.json", cfg.Ledger.Path)
	assert.Equal(t, 24*time.Hour, cfg.Notify.DigestInterval)
	assert.False(t, cfg.Notify.Enabled())
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"rpc_url", "RPC_URL"},
		{"private_key", "PRIVATE_KEY"},
		{"moralis_api_key", "MORALIS_API_KEY"},
		{"subgraph_api_key", "SUBGRAPH_API_KEY"},
		{"subgraph_id", "SUBGRAPH_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load(emptyConfigFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.unset)
		})
	}
}

func TestLoad_ExplicitSubgraphURLNeedsNoKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SUBGRAPH_API_KEY", "")
	t.Setenv("SUBGRAPH_ID", "")
	t.Setenv("SUBGRAPH_URL", "http://localhost:8000/subgraphs/name/sushiswap/polygon")

	cfg, err := Load(emptyConfigFile(t))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/subgraphs/name/sushiswap/polygon", cfg.Pricing.SubgraphEndpoint())
}

func TestLoad_RejectsNonPositiveIntervals(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
		want string
	}{
		{"zero_check_interval", "ARB_TRADING_CHECK_INTERVAL", "0s", "trading.check_interval"},
		{"negative_check_interval", "ARB_TRADING_CHECK_INTERVAL", "-1m", "trading.check_interval"},
		{"zero_cycle_delay", "ARB_TRADING_CYCLE_DELAY", "0s", "trading.cycle_delay"},
		{"negative_cycle_delay", "ARB_TRADING_CYCLE_DELAY", "-5s", "trading.cycle_delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.env, tt.val)

			_, err := Load(emptyConfigFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNotifyConfig_Recipient(t *testing.T) {
	n := NotifyConfig{EmailUser: "bot@example.com", EmailPass: "secret"}
	assert.True(t, n.Enabled())
	assert.Equal(t, "bot@example.com", n.To())

	n.Recipient = "ops@example.com"
	assert.Equal(t, "ops@example.com", n.To())
}
