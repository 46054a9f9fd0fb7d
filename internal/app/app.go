package app

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"fundingwatch/internal/alerting"
	"fundingwatch/internal/config"
	"fundingwatch/internal/fetcher"
	"fundingwatch/internal/oracle"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer

	source   fetcher.AccountFetcher
	notifier alerting.Notifier
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

// newSource returns the account fetcher and a closer for it.
func (a *App) newSource() (fetcher.AccountFetcher, func()) {
	if a.source != nil {
		return a.source, func() {}
	}
	rpc := fetcher.NewRPC(fetcher.RPCOptions{
		URL:        a.Config.RPC.URL,
		Commitment: a.Config.RPC.Commitment,
		Timeout:    a.Config.RPC.RequestTimeout,
	}, a.Logger)
	return rpc, rpc.Close
}

func (a *App) newNotifier() alerting.Notifier {
	if a.notifier != nil {
		return a.notifier
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) newRescaler() *oracle.Rescaler {
	return oracle.NewRescaler(a.Logger)
}

// FundingOptions configure the funding command.
type FundingOptions struct {
	// WithOracle also decodes and normalises the oracle account. The configured
	// oracle address is used when set, otherwise the market's AMM oracle.
	WithOracle bool
}
