package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fundingwatch/internal/account"
	"fundingwatch/internal/alerting"
	"fundingwatch/internal/fetcher"
	"fundingwatch/internal/funding"
)

// Funding fetches the perp market and prints the funding-rate estimate. A
// configured oracle is always reported; WithOracle falls back to the
// market's own oracle when none is configured.
func (a *App) Funding(ctx context.Context, opts FundingOptions) error {
	marketKey, err := a.Config.MarketKey()
	if err != nil {
		return fmt.Errorf("market address: %w", err)
	}
	oracleKey, hasOracle, err := a.Config.OracleKey()
	if err != nil {
		return fmt.Errorf("oracle address: %w", err)
	}

	src, closeSrc := a.newSource()
	defer closeSrc()

	var (
		market   account.PerpMarket
		estimate funding.Estimate
		report   *oracleReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		market, estimate, err = a.fetchEstimate(gctx, src, marketKey)
		return err
	})
	if hasOracle {
		g.Go(func() error {
			r, err := a.fetchOracle(gctx, src, oracleKey)
			if err != nil {
				return err
			}
			report = &r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if opts.WithOracle && !hasOracle {
		r, err := a.fetchOracle(ctx, src, market.AMM.Oracle)
		if err != nil {
			return err
		}
		report = &r
	}

	a.printEstimate(estimate)
	if report != nil {
		a.printOracle(*report)
	}

	a.maybeAlert(ctx, marketKey, estimate)
	return nil
}

func (a *App) fetchMarket(ctx context.Context, src fetcher.AccountFetcher, key solana.PublicKey) (account.PerpMarket, error) {
	data, err := src.FetchAccount(ctx, key)
	if err != nil {
		return account.PerpMarket{}, fmt.Errorf("fetch perp market: %w", err)
	}
	market, err := account.DecodePerpMarket(data)
	if err != nil {
		return account.PerpMarket{}, fmt.Errorf("decode perp market %s: %w", key, err)
	}
	return market, nil
}

func (a *App) fetchEstimate(ctx context.Context, src fetcher.AccountFetcher, key solana.PublicKey) (account.PerpMarket, funding.Estimate, error) {
	market, err := a.fetchMarket(ctx, src, key)
	if err != nil {
		return account.PerpMarket{}, funding.Estimate{}, err
	}
	estimate, err := funding.FromMarket(market)
	if err != nil {
		return account.PerpMarket{}, funding.Estimate{}, fmt.Errorf("compute funding rate for %s: %w", key, err)
	}

	a.Logger.Info().
		Str("market", key.String()).
		Float64("funding_rate_pct", estimate.RatePct).
		Int64("mark_twap_ts", estimate.MarkTwapTs).
		Int64("oracle_twap_ts", estimate.OracleTwapTs).
		Msg("funding rate estimated")
	return market, estimate, nil
}

func (a *App) printEstimate(e funding.Estimate) {
	fmt.Fprintf(a.Out, "Funding rate percentage: %v\n", e.RatePct)
	fmt.Fprintf(a.Out, "mp_twap: %s\n", e.MarkTwap)
	fmt.Fprintf(a.Out, "oracle_twap: %s\n", e.OracleTwap)
	fmt.Fprintf(a.Out, "mp_twap_ts: %d\n", e.MarkTwapTs)
	fmt.Fprintf(a.Out, "oracle_twap_ts: %d\n", e.OracleTwapTs)
}

func (a *App) maybeAlert(ctx context.Context, market solana.PublicKey, e funding.Estimate) {
	if !a.Config.Alerting.Enabled {
		return
	}
	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("alerting enabled but no channel configured")
		return
	}

	threshold := decimal.NewFromFloat(a.Config.Alerting.ThresholdPct)
	rate := decimal.NewFromFloat(e.RatePct)
	if !rate.Abs().GreaterThan(threshold) {
		a.Logger.Debug().Str("rate_pct", rate.String()).Str("threshold_pct", threshold.String()).Msg("funding rate within threshold")
		return
	}

	note := alerting.Notification{
		Market:       market.String(),
		ObservedAt:   time.Now().UTC(),
		RatePct:      rate,
		ThresholdPct: threshold,
		MarkTwap:     e.MarkTwap,
		OracleTwap:   e.OracleTwap,
		Direction:    funding.Direction(e.RatePct),
		Channels:     a.Config.Alerting.Channels,
	}
	if err := notifier.Notify(ctx, note); err != nil {
		a.Logger.Error().Err(err).Str("market", note.Market).Msg("failed to dispatch alert")
	}
}
