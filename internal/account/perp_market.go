package account

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PerpMarketSize is the full Drift PerpMarket account size, discriminator included.
const PerpMarketSize = 1216

// Absolute offsets into the Drift protocol-v2 PerpMarket zero-copy layout.
// They track the upstream schema and must be revalidated on protocol upgrades.
const (
	offMarketPubkey = 8
	offAMM          = 40

	offAMMOracle             = offAMM + 0
	offHistoricalOracleData  = offAMM + 32
	offLastOraclePrice       = offHistoricalOracleData + 0
	offLastOracleConf        = offHistoricalOracleData + 8
	offLastOracleDelay       = offHistoricalOracleData + 16
	offLastOraclePriceTwap   = offHistoricalOracleData + 24
	offLastOraclePriceTwap5m = offHistoricalOracleData + 32
	offLastOraclePriceTwapTs = offHistoricalOracleData + 40

	offLastFundingRate     = offAMM + 440
	offLastMarkPriceTwap   = offAMM + 712
	offLastMarkPriceTwap5m = offAMM + 720
	offLastFundingRateTs   = offAMM + 752
	offFundingPeriod       = offAMM + 760
	offLastMarkPriceTwapTs = offAMM + 848
)

var perpMarketDiscriminator = Discriminator("PerpMarket")

// PerpMarket is the subset of the Drift perp market account used for funding estimates.
type PerpMarket struct {
	Pubkey solana.PublicKey
	AMM    AMM
}

// AMM holds the market's automated market maker state.
type AMM struct {
	Oracle                solana.PublicKey
	HistoricalOracleData  HistoricalOracleData
	LastFundingRate       int64
	LastMarkPriceTwap     uint64
	LastMarkPriceTwap5Min uint64
	LastFundingRateTs     int64
	FundingPeriod         int64
	LastMarkPriceTwapTs   int64
}

// HistoricalOracleData is the oracle snapshot the AMM keeps between updates.
// Prices are at 6-decimal precision.
type HistoricalOracleData struct {
	LastOraclePrice         int64
	LastOracleConf          uint64
	LastOracleDelay         int64
	LastOraclePriceTwap     int64
	LastOraclePriceTwap5Min int64
	LastOraclePriceTwapTs   int64
}

// DecodePerpMarket parses a raw Drift PerpMarket account.
func DecodePerpMarket(data []byte) (PerpMarket, error) {
	if err := checkSize("perp market", data, PerpMarketSize); err != nil {
		return PerpMarket{}, err
	}
	if !bytes.Equal(data[:DiscriminatorSize], perpMarketDiscriminator[:]) {
		return PerpMarket{}, fmt.Errorf("%w: discriminator %x is not PerpMarket", ErrWrongType, data[:DiscriminatorSize])
	}

	r := reader(data)
	return PerpMarket{
		Pubkey: r.pubkey(offMarketPubkey),
		AMM: AMM{
			Oracle: r.pubkey(offAMMOracle),
			HistoricalOracleData: HistoricalOracleData{
				LastOraclePrice:         r.i64(offLastOraclePrice),
				LastOracleConf:          r.u64(offLastOracleConf),
				LastOracleDelay:         r.i64(offLastOracleDelay),
				LastOraclePriceTwap:     r.i64(offLastOraclePriceTwap),
				LastOraclePriceTwap5Min: r.i64(offLastOraclePriceTwap5m),
				LastOraclePriceTwapTs:   r.i64(offLastOraclePriceTwapTs),
			},
			LastFundingRate:       r.i64(offLastFundingRate),
			LastMarkPriceTwap:     r.u64(offLastMarkPriceTwap),
			LastMarkPriceTwap5Min: r.u64(offLastMarkPriceTwap5m),
			LastFundingRateTs:     r.i64(offLastFundingRateTs),
			FundingPeriod:         r.i64(offFundingPeriod),
			LastMarkPriceTwapTs:   r.i64(offLastMarkPriceTwapTs),
		},
	}, nil
}

// Encode serialises the known fields into a zeroed PerpMarket-sized buffer.
// Fields this package does not model are left zero.
func (m PerpMarket) Encode() []byte {
	buf := make([]byte, PerpMarketSize)
	copy(buf, perpMarketDiscriminator[:])

	w := writer(buf)
	w.pubkey(offMarketPubkey, m.Pubkey)
	w.pubkey(offAMMOracle, m.AMM.Oracle)

	h := m.AMM.HistoricalOracleData
	w.i64(offLastOraclePrice, h.LastOraclePrice)
	w.u64(offLastOracleConf, h.LastOracleConf)
	w.i64(offLastOracleDelay, h.LastOracleDelay)
	w.i64(offLastOraclePriceTwap, h.LastOraclePriceTwap)
	w.i64(offLastOraclePriceTwap5m, h.LastOraclePriceTwap5Min)
	w.i64(offLastOraclePriceTwapTs, h.LastOraclePriceTwapTs)

	w.i64(offLastFundingRate, m.AMM.LastFundingRate)
	w.u64(offLastMarkPriceTwap, m.AMM.LastMarkPriceTwap)
	w.u64(offLastMarkPriceTwap5m, m.AMM.LastMarkPriceTwap5Min)
	w.i64(offLastFundingRateTs, m.AMM.LastFundingRateTs)
	w.i64(offFundingPeriod, m.AMM.FundingPeriod)
	w.i64(offLastMarkPriceTwapTs, m.AMM.LastMarkPriceTwapTs)
	return buf
}
