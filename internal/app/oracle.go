package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fundingwatch/internal/account"
	"fundingwatch/internal/fetcher"
	"fundingwatch/internal/oracle"
)

type oracleReport struct {
	Address         solana.PublicKey
	Raw             account.PythPrice
	CurrentSlot     uint64
	TargetPrecision *big.Int
	Price           oracle.NormalizedPrice
}

// Oracle fetches the oracle account and prints its price at the target precision.
// Without a configured oracle address the market's AMM oracle is used.
func (a *App) Oracle(ctx context.Context) error {
	src, closeSrc := a.newSource()
	defer closeSrc()

	key, ok, err := a.Config.OracleKey()
	if err != nil {
		return fmt.Errorf("oracle address: %w", err)
	}
	if !ok {
		marketKey, err := a.Config.MarketKey()
		if err != nil {
			return fmt.Errorf("market address: %w", err)
		}
		market, err := a.fetchMarket(ctx, src, marketKey)
		if err != nil {
			return err
		}
		key = market.AMM.Oracle
		a.Logger.Info().Str("oracle", key.String()).Msg("using market oracle")
	}

	report, err := a.fetchOracle(ctx, src, key)
	if err != nil {
		return err
	}
	a.printOracle(report)
	return nil
}

func (a *App) fetchOracle(ctx context.Context, src fetcher.AccountFetcher, key solana.PublicKey) (oracleReport, error) {
	var (
		data []byte
		slot uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if data, err = src.FetchAccount(gctx, key); err != nil {
			return fmt.Errorf("fetch oracle %s: %w", key, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if slot, err = src.FetchSlot(gctx); err != nil {
			return fmt.Errorf("fetch current slot: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return oracleReport{}, err
	}

	raw, err := account.DecodePythPrice(data)
	if err != nil {
		return oracleReport{}, fmt.Errorf("decode oracle %s: %w", key, err)
	}

	target := new(big.Int).SetUint64(a.Config.Oracle.TargetPrecision)
	divisor := new(big.Int).SetUint64(a.Config.Oracle.Divisor)
	price, err := a.newRescaler().Rescale(oracle.SampleFromPyth(raw), slot, target, divisor)
	if err != nil {
		return oracleReport{}, fmt.Errorf("rescale oracle %s: %w", key, err)
	}

	a.Logger.Info().
		Str("oracle", key.String()).
		Int64("price", price.Price).
		Uint64("confidence", price.Confidence).
		Int64("delay", price.Delay).
		Str("status", raw.Agg.Status.String()).
		Msg("oracle price normalised")

	return oracleReport{
		Address:         key,
		Raw:             raw,
		CurrentSlot:     slot,
		TargetPrecision: target,
		Price:           price,
	}, nil
}

func (a *App) printOracle(r oracleReport) {
	scale := decimal.NewFromBigInt(r.TargetPrecision, 0)
	fmt.Fprintf(a.Out, "oracle: %s\n", r.Address)
	fmt.Fprintf(a.Out, "oracle_price: %d\n", r.Price.Price)
	fmt.Fprintf(a.Out, "oracle_price_display: %s\n", decimal.NewFromInt(r.Price.Price).Div(scale))
	fmt.Fprintf(a.Out, "oracle_confidence: %d\n", r.Price.Confidence)
	fmt.Fprintf(a.Out, "oracle_delay: %d\n", r.Price.Delay)
	fmt.Fprintf(a.Out, "oracle_status: %s\n", r.Raw.Agg.Status)
	fmt.Fprintf(a.Out, "has_sufficient_data_points: %t\n", r.Price.HasSufficientDataPoints)
}
