package config

// Configuration is layered, later sources win:
// 1. defaults
// 2. config.yaml
// 3. .env file and environment
// 4. command line flags

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Chain    ChainConfig    `mapstructure:"chain"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	App      AppConfig      `mapstructure:"app"`
}

type ChainConfig struct {
	RPCURL          string  `mapstructure:"rpc_url"`
	HostAddress     string  `mapstructure:"host_address"` // wrapper app contract
	StartBlock      uint64  `mapstructure:"start_block"`
	PageSize        uint64  `mapstructure:"page_size"`
	PollInterval    int     `mapstructure:"poll_interval"` // seconds
	Confirmations   uint64  `mapstructure:"confirmations"`
	RateLimit       float64 `mapstructure:"rate_limit"` // requests per second
	RateBurst       int     `mapstructure:"rate_burst"`
	BreakerFailures uint32  `mapstructure:"breaker_failures"`
}

type RetryConfig struct {
	InitialMs     int     `mapstructure:"initial_ms"`
	Factor        float64 `mapstructure:"factor"`
	MaxIntervalMs int     `mapstructure:"max_interval_ms"` // 0 = no cap
}

type TelegramConfig struct {
	BotToken   string `mapstructure:"bot_token"`
	ChatID     int64  `mapstructure:"chat_id"`
	TopHolders int    `mapstructure:"top_holders"`
}

type AppConfig struct {
	DataDir  string `mapstructure:"data_dir"`
	LogDir   string `mapstructure:"log_dir"`
	LogLevel string `mapstructure:"log_level"`
}

func (c ChainConfig) PollEvery() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c RetryConfig) Initial() time.Duration {
	return time.Duration(c.InitialMs) * time.Millisecond
}

func (c RetryConfig) MaxInterval() time.Duration {
	return time.Duration(c.MaxIntervalMs) * time.Millisecond
}

// HostContract validates and returns the wrapper app address. Only the
// commands that talk to the chain need it.
func (c ChainConfig) HostContract() (common.Address, error) {
	if !common.IsHexAddress(c.HostAddress) {
		return common.Address{}, fmt.Errorf("chain.host_address must be a hex address, got %q", c.HostAddress)
	}
	return common.HexToAddress(c.HostAddress), nil
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

// RegisterFlags adds every setting as a flag on fs (usually cobra's
// persistent flag set).
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config file (default ./config.yaml)")

	fs.String("chain.rpc_url", "http://localhost:8545", "Ethereum JSON-RPC endpoint (env: RPC_URL)")
	fs.String("chain.host_address", "", "Wrapper app contract address (env: HOST_ADDRESS)")
	fs.Uint64("chain.start_block", 0, "First block to replay Transfer logs from (env: START_BLOCK)")
	fs.Uint64("chain.page_size", 5000, "Blocks per eth_getLogs request (env: PAGE_SIZE)")
	fs.Int("chain.poll_interval", 15, "Seconds between polls for new blocks (env: POLL_INTERVAL)")
	fs.Uint64("chain.confirmations", 0, "Blocks to stay behind head (env: CONFIRMATIONS)")
	fs.Float64("chain.rate_limit", 10, "Max RPC requests per second, 0 disables (env: RATE_LIMIT)")
	fs.Int("chain.rate_burst", 20, "RPC burst size (env: RATE_BURST)")
	fs.Uint32("chain.breaker_failures", 5, "Consecutive RPC failures that open the breaker (env: BREAKER_FAILURES)")

	fs.Int("retry.initial_ms", 1000, "First bootstrap retry delay in ms (env: RETRY_INITIAL_MS)")
	fs.Float64("retry.factor", 5, "Bootstrap retry growth factor (env: RETRY_FACTOR)")
	fs.Int("retry.max_interval_ms", 0, "Cap on a single bootstrap retry delay, 0 = none (env: RETRY_MAX_INTERVAL_MS)")

	fs.String("telegram.bot_token", "", "Telegram bot token for sync notifications (env: TELEGRAM_BOT_TOKEN)")
	fs.Int64("telegram.chat_id", 0, "Telegram chat to notify (env: TELEGRAM_CHAT_ID)")
	fs.Int("telegram.top_holders", 10, "Holders shown in reports (env: TELEGRAM_TOP_HOLDERS)")

	fs.String("app.data_dir", "data_out", "Directory for the state snapshot and charts (env: DATA_DIR)")
	fs.String("app.log_dir", "logs", "Directory for log files (env: LOG_DIR)")
	fs.String("app.log_level", "debug", "File log level (env: LOG_LEVEL)")
}

// LoadConfig reads config.yaml, .env, the environment and the flags in fs.
// fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else {
			readDefaultConfig(v)
		}
	} else {
		readDefaultConfig(v)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setupEnvAliases(v)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func readDefaultConfig(v *viper.Viper) {
	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // missing file is fine
}

func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("chain.rpc_url", "RPC_URL")
	v.BindEnv("chain.host_address", "HOST_ADDRESS")
	v.BindEnv("chain.start_block", "START_BLOCK")
	v.BindEnv("chain.page_size", "PAGE_SIZE")
	v.BindEnv("chain.poll_interval", "POLL_INTERVAL")
	v.BindEnv("chain.confirmations", "CONFIRMATIONS")
	v.BindEnv("chain.rate_limit", "RATE_LIMIT")
	v.BindEnv("chain.rate_burst", "RATE_BURST")
	v.BindEnv("chain.breaker_failures", "BREAKER_FAILURES")

	v.BindEnv("retry.initial_ms", "RETRY_INITIAL_MS")
	v.BindEnv("retry.factor", "RETRY_FACTOR")
	v.BindEnv("retry.max_interval_ms", "RETRY_MAX_INTERVAL_MS")

	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")
	v.BindEnv("telegram.top_holders", "TELEGRAM_TOP_HOLDERS")

	v.BindEnv("app.data_dir", "DATA_DIR")
	v.BindEnv("app.log_dir", "LOG_DIR")
	v.BindEnv("app.log_level", "LOG_LEVEL")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain.rpc_url", "http://localhost:8545")
	v.SetDefault("chain.host_address", "")
	v.SetDefault("chain.start_block", 0)
	v.SetDefault("chain.page_size", 5000)
	v.SetDefault("chain.poll_interval", 15)
	v.SetDefault("chain.confirmations", 0)
	v.SetDefault("chain.rate_limit", 10)
	v.SetDefault("chain.rate_burst", 20)
	v.SetDefault("chain.breaker_failures", 5)

	v.SetDefault("retry.initial_ms", 1000)
	v.SetDefault("retry.factor", 5)
	v.SetDefault("retry.max_interval_ms", 0)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.top_holders", 10)

	v.SetDefault("app.data_dir", "data_out")
	v.SetDefault("app.log_dir", "logs")
	v.SetDefault("app.log_level", "debug")
}

func validateConfig(cfg *Config) error {
	if cfg.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if cfg.Chain.PageSize == 0 {
		return fmt.Errorf("chain.page_size must be positive")
	}
	if cfg.Retry.InitialMs <= 0 {
		return fmt.Errorf("retry.initial_ms must be positive")
	}
	if cfg.Retry.Factor < 1 {
		return fmt.Errorf("retry.factor must be at least 1")
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}
