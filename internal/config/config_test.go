package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if key == "RPC_URL" || strings.HasPrefix(key, "FUNDINGWATCH_") {
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_URL", "https://rpc.example.com")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPC.URL != "https://rpc.example.com" {
		t.Fatalf("expected rpc url from RPC_URL, got %q", cfg.RPC.URL)
	}
	if cfg.RPC.Commitment != "confirmed" {
		t.Fatalf("expected confirmed commitment, got %q", cfg.RPC.Commitment)
	}
	if cfg.RPC.RequestTimeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %v", cfg.RPC.RequestTimeout)
	}
	if cfg.Market.Address != DefaultMarketAddress {
		t.Fatalf("expected default market, got %q", cfg.Market.Address)
	}
	if cfg.Oracle.TargetPrecision != 1_000_000 || cfg.Oracle.Divisor != 1 {
		t.Fatalf("unexpected oracle defaults %+v", cfg.Oracle)
	}
	if _, ok, err := cfg.OracleKey(); ok || err != nil {
		t.Fatalf("expected no oracle key by default, got ok=%v err=%v", ok, err)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected info log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadRequiresRPCURL(t *testing.T) {
	clearEnv(t)
	if _, err := Load("", nil); err == nil || !strings.Contains(err.Error(), "rpc.url") {
		t.Fatalf("expected rpc.url error, got %v", err)
	}
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_URL", "https://plain.example.com")
	t.Setenv("FUNDINGWATCH_RPC_URL", "https://prefixed.example.com")
	t.Setenv("FUNDINGWATCH_RPC_COMMITMENT", "finalized")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPC.URL != "https://prefixed.example.com" {
		t.Fatalf("expected prefixed url, got %q", cfg.RPC.URL)
	}
	if cfg.RPC.Commitment != "finalized" {
		t.Fatalf("expected finalized, got %q", cfg.RPC.Commitment)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "" +
		"rpc:\n" +
		"  url: https://file.example.com\n" +
		"  request_timeout: 3s\n" +
		"oracle:\n" +
		"  address: H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG\n" +
		"  divisor: 1000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPC.URL != "https://file.example.com" || cfg.RPC.RequestTimeout != 3*time.Second {
		t.Fatalf("unexpected rpc config %+v", cfg.RPC)
	}
	if cfg.Oracle.Divisor != 1000 {
		t.Fatalf("expected divisor 1000, got %d", cfg.Oracle.Divisor)
	}
	key, ok, err := cfg.OracleKey()
	if err != nil || !ok {
		t.Fatalf("expected oracle key, got ok=%v err=%v", ok, err)
	}
	if key.String() != "H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG" {
		t.Fatalf("unexpected oracle key %s", key)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_URL", "https://rpc.example.com")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadFlagsOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_URL", "https://env.example.com")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc-url", "", "")
	flags.String("market", "", "")
	flags.Uint64("divisor", 0, "")
	if err := flags.Parse([]string{"--rpc-url", "https://flag.example.com", "--divisor", "1000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPC.URL != "https://flag.example.com" {
		t.Fatalf("expected flag url, got %q", cfg.RPC.URL)
	}
	if cfg.Oracle.Divisor != 1000 {
		t.Fatalf("expected divisor 1000, got %d", cfg.Oracle.Divisor)
	}
	if cfg.Market.Address != DefaultMarketAddress {
		t.Fatalf("unset flag must not override default market, got %q", cfg.Market.Address)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RPC:    RPCConfig{URL: "https://rpc.example.com", Commitment: "confirmed", RequestTimeout: time.Second},
			Market: MarketConfig{Address: DefaultMarketAddress},
			Oracle: OracleConfig{TargetPrecision: 1_000_000, Divisor: 1},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := map[string]func(*Config){
		"commitment":      func(c *Config) { c.RPC.Commitment = "max" },
		"timeout":         func(c *Config) { c.RPC.RequestTimeout = 0 },
		"market address":  func(c *Config) { c.Market.Address = "not-base58-0OIl" },
		"empty market":    func(c *Config) { c.Market.Address = "" },
		"oracle address":  func(c *Config) { c.Oracle.Address = "0x1234" },
		"precision":       func(c *Config) { c.Oracle.TargetPrecision = 0 },
		"divisor":         func(c *Config) { c.Oracle.Divisor = 0 },
		"threshold":       func(c *Config) { c.Alerting.ThresholdPct = -1 },
		"telegram token":  func(c *Config) { c.Alerting.Telegram = TelegramConfig{Enabled: true, ChatID: "1"} },
		"telegram chatid": func(c *Config) { c.Alerting.Telegram = TelegramConfig{Enabled: true, BotToken: "t"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
