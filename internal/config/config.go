// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	DEX       DEXConfig       `mapstructure:"dex"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
	TUIMode     bool   `mapstructure:"-"`
}

// ChainConfig holds Polygon node and signer settings.
type ChainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	WebSocketURL   string        `mapstructure:"websocket_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	PrivateKey     string        `mapstructure:"private_key"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// PricingConfig holds price source settings.
type PricingConfig struct {
	MoralisAPIKey     string        `mapstructure:"moralis_api_key"`
	MoralisBaseURL    string        `mapstructure:"moralis_base_url"`
	MoralisChain      string        `mapstructure:"moralis_chain"`
	UniswapExchange   string        `mapstructure:"uniswap_exchange"`
	SubgraphURL       string        `mapstructure:"subgraph_url"`
	SubgraphAPIKey    string        `mapstructure:"subgraph_api_key"`
	SubgraphID        string        `mapstructure:"subgraph_id"`
	WETHAddress       string        `mapstructure:"weth_address"`
	WETHPriceTTL      time.Duration `mapstructure:"weth_price_ttl"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

// WETH returns the wrapped native token address.
func (c *PricingConfig) WETH() common.Address {
	return common.HexToAddress(c.WETHAddress)
}

// SubgraphEndpoint fills the {api_key} and {subgraph_id} placeholders of SubgraphURL.
func (c *PricingConfig) SubgraphEndpoint() string {
	return strings.NewReplacer(
		"{api_key}", c.SubgraphAPIKey,
		"{subgraph_id}", c.SubgraphID,
	).Replace(c.SubgraphURL)
}

// DEXConfig holds router addresses for both venues.
type DEXConfig struct {
	SushiSwapRouter string `mapstructure:"sushiswap_router"`
	UniswapRouter   string `mapstructure:"uniswap_router"`
}

// SushiSwapRouterAddress returns the SushiSwap router as common.Address.
func (c *DEXConfig) SushiSwapRouterAddress() common.Address {
	return common.HexToAddress(c.SushiSwapRouter)
}

// UniswapRouterAddress returns the Uniswap router as common.Address.
func (c *DEXConfig) UniswapRouterAddress() common.Address {
	return common.HexToAddress(c.UniswapRouter)
}

// ExecutionConfig holds swap submission settings.
type ExecutionConfig struct {
	GasLimit            uint64        `mapstructure:"gas_limit"`
	GasPriceGwei        int64         `mapstructure:"gas_price_gwei"`
	Deadline            time.Duration `mapstructure:"deadline"`
	Confirmations       uint64        `mapstructure:"confirmations"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	SlippageProtection  bool          `mapstructure:"slippage_protection"`
	SlippageBps         int64         `mapstructure:"slippage_bps"`
	// BaseAsset is the ERC-20 whose balance sizes trades. Empty means the native balance.
	BaseAsset string `mapstructure:"base_asset"`
}

// TradingConfig holds scanning and lifecycle settings.
type TradingConfig struct {
	TokenListPath        string        `mapstructure:"token_list_path"`
	CheckInterval        time.Duration `mapstructure:"check_interval"`
	MaxHold              time.Duration `mapstructure:"max_hold"`
	CloseProfitThreshold float64       `mapstructure:"close_profit_threshold"`
	MinNetProfit         float64       `mapstructure:"min_net_profit"`
	TransactionCost      float64       `mapstructure:"transaction_cost"`
	CycleDelay           time.Duration `mapstructure:"cycle_delay"`
	ScanConcurrency      int           `mapstructure:"scan_concurrency"`
}

// CloseProfitThresholdDecimal returns the close threshold in percent.
func (c *TradingConfig) CloseProfitThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.CloseProfitThreshold)
}

// MinNetProfitDecimal returns the entry threshold in percent.
func (c *TradingConfig) MinNetProfitDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinNetProfit)
}

// TransactionCostDecimal returns the assumed round-trip cost in percent.
func (c *TradingConfig) TransactionCostDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TransactionCost)
}

// LedgerConfig holds persistence paths.
type LedgerConfig struct {
	Path       string `mapstructure:"path"`
	PendingDir string `mapstructure:"pending_dir"`
}

// NotifyConfig holds email digest settings.
type NotifyConfig struct {
	EmailUser      string        `mapstructure:"email_user"`
	EmailPass      string        `mapstructure:"email_pass"`
	Recipient      string        `mapstructure:"recipient"`
	SMTPHost       string        `mapstructure:"smtp_host"`
	SMTPPort       int           `mapstructure:"smtp_port"`
	DigestInterval time.Duration `mapstructure:"digest_interval"`
}

// Enabled reports whether email credentials are present.
func (c *NotifyConfig) Enabled() bool {
	return c.EmailUser != "" && c.EmailPass != ""
}

// To returns the digest recipient, defaulting to the sender.
func (c *NotifyConfig) To() string {
	if c.Recipient != "" {
		return c.Recipient
	}
	return c.EmailUser
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.log_file", "ARB_LOG_FILE", "LOG_FILE")

	// Chain
	v.BindEnv("chain.rpc_url", "ARB_RPC_URL", "RPC_URL")
	v.BindEnv("chain.websocket_url", "ARB_WS_URL", "WS_URL")
	v.BindEnv("chain.chain_id", "ARB_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("chain.private_key", "ARB_PRIVATE_KEY", "PRIVATE_KEY")

	// Pricing
	v.BindEnv("pricing.moralis_api_key", "ARB_MORALIS_API_KEY", "MORALIS_API_KEY")
	v.BindEnv("pricing.subgraph_url", "ARB_SUBGRAPH_URL", "SUBGRAPH_URL")
	v.BindEnv("pricing.subgraph_api_key", "ARB_SUBGRAPH_API_KEY", "SUBGRAPH_API_KEY", "GRAPH_API_KEY")
	v.BindEnv("pricing.subgraph_id", "ARB_SUBGRAPH_ID", "SUBGRAPH_ID")

	// Execution
	v.BindEnv("execution.slippage_protection", "ARB_SLIPPAGE_PROTECTION")
	v.BindEnv("execution.slippage_bps", "ARB_SLIPPAGE_BPS")
	v.BindEnv("execution.base_asset", "ARB_BASE_ASSET")

	// Trading
	v.BindEnv("trading.token_list_path", "ARB_TOKEN_LIST", "TOKEN_LIST")

	// Ledger
	v.BindEnv("ledger.path", "ARB_LEDGER_PATH", "LEDGER_PATH")
	v.BindEnv("ledger.pending_dir", "ARB_PENDING_DIR")

	// Notify
	v.BindEnv("notify.email_user", "ARB_EMAIL_USER", "EMAIL_USER")
	v.BindEnv("notify.email_pass", "ARB_EMAIL_PASS", "EMAIL_PASS")
	v.BindEnv("notify.recipient", "ARB_EMAIL_TO", "EMAIL_TO")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")

	v.BindEnv("health.port", "ARB_HEALTH_PORT", "HEALTH_PORT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dex-arbitrage-bot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "logs/arbitrage.log")

	// Polygon defaults
	v.SetDefault("chain.chain_id", 137)
	v.SetDefault("chain.poll_interval", "2s")
	v.SetDefault("chain.initial_backoff", "1s")
	v.SetDefault("chain.max_backoff", "30s")

	// Pricing defaults
	v.SetDefault("pricing.moralis_base_url", "https://deep-index.moralis.io/api/v2.2")
	v.SetDefault("pricing.moralis_chain", "0x89")
	v.SetDefault("pricing.uniswap_exchange", "uniswapv3")
	v.SetDefault("pricing.subgraph_url", "https://gateway.thegraph.com/api/{api_key}/subgraphs/id/{subgraph_id}")
	v.SetDefault("pricing.weth_address", "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	v.SetDefault("pricing.weth_price_ttl", "30s")
	v.SetDefault("pricing.requests_per_minute", 1500)
	v.SetDefault("pricing.request_timeout", "10s")

	// Router defaults (Polygon)
	v.SetDefault("dex.sushiswap_router", "0x1b02da8cb0d097eb8d57a175b88c7d8b47997506")
	v.SetDefault("dex.uniswap_router", "0x7a250d5630b4cf539739df2c5dacabbe0a1c317c")

	// Execution defaults
	v.SetDefault("execution.gas_limit", 8000000)
	v.SetDefault("execution.gas_price_gwei", 60)
	v.SetDefault("execution.deadline", "20m")
	v.SetDefault("execution.confirmations", 3)
	v.SetDefault("execution.confirmation_timeout", "30m")
	v.SetDefault("execution.receipt_poll_interval", "3s")
	v.SetDefault("execution.slippage_protection", true)
	v.SetDefault("execution.slippage_bps", 50)
	v.SetDefault("execution.base_asset", "")

	// Trading defaults
	v.SetDefault("trading.token_list_path", "data.json")
	v.SetDefault("trading.check_interval", "10m")
	v.SetDefault("trading.max_hold", "60m")
	v.SetDefault("trading.close_profit_threshold", 3)
	v.SetDefault("trading.min_net_profit", 3)
	v.SetDefault("trading.transaction_cost", 1)
	v.SetDefault("trading.cycle_delay", "10s")
	v.SetDefault("trading.scan_concurrency", 8)

	// Ledger defaults
	v.SetDefault("ledger.path", "trades.json")
	v.SetDefault("ledger.pending_dir", "data/pending")

	// Notify defaults
	v.SetDefault("notify.smtp_host", "smtp.gmail.com")
	v.SetDefault("notify.smtp_port", 587)
	v.SetDefault("notify.digest_interval", "24h")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dex-arbitrage-bot")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required (RPC_URL)")
	}
	if c.Chain.PrivateKey == "" {
		return fmt.Errorf("chain.private_key is required (PRIVATE_KEY)")
	}
	if c.Pricing.MoralisAPIKey == "" {
		return fmt.Errorf("pricing.moralis_api_key is required (MORALIS_API_KEY)")
	}
	if c.Pricing.SubgraphURL == "" {
		return fmt.Errorf("pricing.subgraph_url is required")
	}
	if strings.Contains(c.Pricing.SubgraphURL, "{api_key}") && c.Pricing.SubgraphAPIKey == "" {
		return fmt.Errorf("pricing.subgraph_api_key is required (SUBGRAPH_API_KEY)")
	}
	if strings.Contains(c.Pricing.SubgraphURL, "{subgraph_id}") && c.Pricing.SubgraphID == "" {
		return fmt.Errorf("pricing.subgraph_id is required (SUBGRAPH_ID)")
	}
	if !common.IsHexAddress(c.Pricing.WETHAddress) {
		return fmt.Errorf("invalid pricing.weth_address: %s", c.Pricing.WETHAddress)
	}
	if !common.IsHexAddress(c.DEX.SushiSwapRouter) {
		return fmt.Errorf("invalid dex.sushiswap_router: %s", c.DEX.SushiSwapRouter)
	}
	if !common.IsHexAddress(c.DEX.UniswapRouter) {
		return fmt.Errorf("invalid dex.uniswap_router: %s", c.DEX.UniswapRouter)
	}
	if c.Execution.BaseAsset != "" && !common.IsHexAddress(c.Execution.BaseAsset) {
		return fmt.Errorf("invalid execution.base_asset: %s", c.Execution.BaseAsset)
	}
	if c.Execution.Confirmations == 0 {
		return fmt.Errorf("execution.confirmations must be at least 1")
	}
	if c.Execution.SlippageBps < 0 || c.Execution.SlippageBps >= 10000 {
		return fmt.Errorf("execution.slippage_bps must be in [0, 10000)")
	}
	if c.Trading.CheckInterval <= 0 {
		return fmt.Errorf("trading.check_interval must be positive")
	}
	if c.Trading.CycleDelay <= 0 {
		return fmt.Errorf("trading.cycle_delay must be positive")
	}
	if c.Trading.MaxHold <= 0 {
		return fmt.Errorf("trading.max_hold must be positive")
	}
	if c.Trading.ScanConcurrency < 1 {
		return fmt.Errorf("trading.scan_concurrency must be at least 1")
	}
	return nil
}
