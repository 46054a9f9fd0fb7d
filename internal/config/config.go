package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fundingwatch/internal/logging"
)

// DefaultMarketAddress is the Drift SOL-PERP market account.
const DefaultMarketAddress = "8UJgxaiQx5nTrdDgph5FiahMmzduuLTLf5WmsPegYA6W"

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	RPC      RPCConfig      `mapstructure:"rpc"`
	Market   MarketConfig   `mapstructure:"market"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Alerting AlertingConfig `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// RPCConfig covers node connectivity.
type RPCConfig struct {
	URL            string        `mapstructure:"url"`
	Commitment     string        `mapstructure:"commitment"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// MarketConfig selects the perp market account.
type MarketConfig struct {
	Address string `mapstructure:"address"`
}

// OracleConfig selects the oracle account and its normalisation.
type OracleConfig struct {
	Address         string `mapstructure:"address"`
	TargetPrecision uint64 `mapstructure:"target_precision"`
	Divisor         uint64 `mapstructure:"divisor"`
}

// AlertingConfig defines the funding-rate alert threshold and routing.
type AlertingConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	ThresholdPct float64        `mapstructure:"threshold_pct"`
	Channels     []string       `mapstructure:"channels"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"rpc-url":          "rpc.url",
	"log-level":        "logging.level",
	"market":           "market.address",
	"oracle":           "oracle.address",
	"target-precision": "oracle.target_precision",
	"divisor":          "oracle.divisor",
}

// Load builds configuration from a .env file, config file, environment, flags and defaults.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("FUNDINGWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("rpc.url", "FUNDINGWATCH_RPC_URL", "RPC_URL"); err != nil {
		return nil, fmt.Errorf("bind rpc url env: %w", err)
	}

	setDefaults(v)

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fundingwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("rpc.commitment", "confirmed")
	v.SetDefault("rpc.request_timeout", "10s")

	v.SetDefault("market.address", DefaultMarketAddress)

	v.SetDefault("oracle.address", "")
	v.SetDefault("oracle.target_precision", uint64(1_000_000))
	v.SetDefault("oracle.divisor", uint64(1))

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.threshold_pct", 0.01)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPC.URL) == "" {
		return fmt.Errorf("rpc.url is required (set RPC_URL)")
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment %q must be processed, confirmed or finalized", c.RPC.Commitment)
	}
	if c.RPC.RequestTimeout <= 0 {
		return fmt.Errorf("rpc.request_timeout must be greater than zero")
	}
	if c.Market.Address == "" {
		return fmt.Errorf("market.address is required")
	}
	if _, err := solana.PublicKeyFromBase58(c.Market.Address); err != nil {
		return fmt.Errorf("market.address: %w", err)
	}
	if c.Oracle.Address != "" {
		if _, err := solana.PublicKeyFromBase58(c.Oracle.Address); err != nil {
			return fmt.Errorf("oracle.address: %w", err)
		}
	}
	if c.Oracle.TargetPrecision == 0 {
		return fmt.Errorf("oracle.target_precision must be greater than zero")
	}
	if c.Oracle.Divisor == 0 {
		return fmt.Errorf("oracle.divisor must be greater than zero")
	}
	if c.Alerting.ThresholdPct < 0 {
		return fmt.Errorf("alerting.threshold_pct cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// MarketKey returns the configured market account.
func (c *Config) MarketKey() (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(c.Market.Address)
}

// OracleKey returns the configured oracle account; ok is false when unset.
func (c *Config) OracleKey() (key solana.PublicKey, ok bool, err error) {
	if c.Oracle.Address == "" {
		return solana.PublicKey{}, false, nil
	}
	key, err = solana.PublicKeyFromBase58(c.Oracle.Address)
	return key, err == nil, err
}
