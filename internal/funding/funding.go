package funding

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	"fundingwatch/internal/account"
)

const (
	// PeriodFraction normalises the TWAP premium to one hourly payment of a
	// 24-period cycle.
	PeriodFraction = 1.0 / 24.0

	// DisplayScale is the fixed-point scale of Drift TWAP fields (6 decimals).
	DisplayScale = 1e6

	displayExp = -6
)

// ErrZeroOracleTwap is returned when the oracle TWAP divisor is zero.
var ErrZeroOracleTwap = errors.New("oracle twap is zero")

// RatePct returns the estimated funding rate in percent for the given TWAPs.
func RatePct(markTwap, oracleTwap float64) (float64, error) {
	if oracleTwap == 0 {
		return 0, ErrZeroOracleTwap
	}
	rate := PeriodFraction * ((markTwap - oracleTwap) / oracleTwap)
	return rate * 100, nil
}

// Estimate is a funding-rate estimate derived from a perp market snapshot.
type Estimate struct {
	RatePct      float64
	MarkTwap     decimal.Decimal
	OracleTwap   decimal.Decimal
	MarkTwapTs   int64
	OracleTwapTs int64
}

// FromMarket extracts both TWAPs from the market and computes the rate.
func FromMarket(m account.PerpMarket) (Estimate, error) {
	markRaw := m.AMM.LastMarkPriceTwap
	oracleRaw := m.AMM.HistoricalOracleData.LastOraclePriceTwap

	rate, err := RatePct(float64(markRaw)/DisplayScale, float64(oracleRaw)/DisplayScale)
	if err != nil {
		return Estimate{}, err
	}

	return Estimate{
		RatePct:      rate,
		MarkTwap:     decimal.NewFromBigInt(new(big.Int).SetUint64(markRaw), displayExp),
		OracleTwap:   decimal.New(oracleRaw, displayExp),
		MarkTwapTs:   m.AMM.LastMarkPriceTwapTs,
		OracleTwapTs: m.AMM.HistoricalOracleData.LastOraclePriceTwapTs,
	}, nil
}

// Direction classifies which side pays: "up" when longs pay shorts.
func Direction(ratePct float64) string {
	switch {
	case ratePct > 0:
		return "up"
	case ratePct < 0:
		return "down"
	default:
		return "flat"
	}
}
