package oracle

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/rs/zerolog"

	"fundingwatch/internal/account"
)

// PricePrecision is the default target precision (6 decimals).
const PricePrecision = 1_000_000

// maxExponent is the largest |exponent| whose power of ten fits in u128.
const maxExponent = 38

var (
	// ErrDivisorTooLarge is returned when the divisor does not strictly reduce
	// the oracle's native precision.
	ErrDivisorTooLarge = errors.New("divisor larger than oracle precision")
	// ErrOverflow is returned when an intermediate leaves the 128-bit working width
	// or a result does not fit its 64-bit output.
	ErrOverflow = errors.New("oracle rescale overflow")
	// ErrInvalidPrecision is returned for a zero target precision or divisor.
	ErrInvalidPrecision = errors.New("target precision and divisor must be positive")
	// ErrIncompleteSample is returned when a sample has no price or confidence.
	ErrIncompleteSample = errors.New("oracle sample missing price or confidence")
)

var (
	one     = big.NewInt(1)
	ten     = big.NewInt(10)
	maxU128 = new(big.Int).Sub(new(big.Int).Lsh(one, 128), one)
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(one, 127), one)
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(one, 127))
	maxI64  = big.NewInt(math.MaxInt64)
	minI64  = big.NewInt(math.MinInt64)
	maxU64  = new(big.Int).SetUint64(math.MaxUint64)
)

// Sample is a raw oracle reading. Price is a signed 128-bit value and
// Confidence an unsigned 128-bit value, both scaled by 10^Exponent.
type Sample struct {
	Price      *big.Int
	Confidence *big.Int
	Exponent   int32
	ValidSlot  uint64
}

// SampleFromPyth adapts a decoded Pyth price account.
func SampleFromPyth(p account.PythPrice) Sample {
	return Sample{
		Price:      big.NewInt(p.Agg.Price),
		Confidence: new(big.Int).SetUint64(p.Agg.Conf),
		Exponent:   p.Exponent,
		ValidSlot:  p.ValidSlot,
	}
}

// NormalizedPrice is an oracle reading at the target precision.
type NormalizedPrice struct {
	Price                   int64
	Confidence              uint64
	Delay                   int64
	HasSufficientDataPoints bool
}

// Rescaler normalises oracle samples to a target fixed-point precision.
type Rescaler struct {
	logger zerolog.Logger
}

// NewRescaler constructs a Rescaler.
func NewRescaler(logger zerolog.Logger) *Rescaler {
	return &Rescaler{logger: logger.With().Str("component", "oracle_rescaler").Logger()}
}

// Rescale converts the sample to targetPrecision after reducing its native
// precision by divisor. All divisions truncate toward zero and every
// multiplication happens before its division.
func (r *Rescaler) Rescale(s Sample, currentSlot uint64, targetPrecision, divisor *big.Int) (NormalizedPrice, error) {
	if targetPrecision == nil || divisor == nil || targetPrecision.Sign() <= 0 || divisor.Sign() <= 0 {
		return NormalizedPrice{}, ErrInvalidPrecision
	}
	if !fitsU128(targetPrecision) || !fitsU128(divisor) {
		return NormalizedPrice{}, fmt.Errorf("%w: precision or divisor exceeds u128", ErrOverflow)
	}

	if s.Price == nil || s.Confidence == nil {
		return NormalizedPrice{}, ErrIncompleteSample
	}
	price, confidence := s.Price, s.Confidence
	if !fitsI128(price) {
		return NormalizedPrice{}, fmt.Errorf("%w: price %s exceeds i128", ErrOverflow, price)
	}
	if !fitsU128(confidence) {
		return NormalizedPrice{}, fmt.Errorf("%w: confidence %s exceeds u128", ErrOverflow, confidence)
	}

	exp := int64(s.Exponent)
	if exp < 0 {
		exp = -exp
	}
	if exp > maxExponent {
		return NormalizedPrice{}, fmt.Errorf("%w: 10^%d exceeds u128", ErrOverflow, exp)
	}
	native := new(big.Int).Exp(ten, big.NewInt(exp), nil)

	if native.Cmp(divisor) <= 0 {
		r.logger.Warn().
			Str("oracle_precision", native.String()).
			Str("divisor", divisor.String()).
			Msg("divisor larger than oracle precision")
		return NormalizedPrice{}, fmt.Errorf("%w: precision %s, divisor %s", ErrDivisorTooLarge, native, divisor)
	}
	adjusted := new(big.Int).Quo(native, divisor)

	scaleMult := big.NewInt(1)
	scaleDiv := big.NewInt(1)
	if adjusted.Cmp(targetPrecision) > 0 {
		scaleDiv = new(big.Int).Quo(adjusted, targetPrecision)
	} else {
		scaleMult = new(big.Int).Quo(targetPrecision, adjusted)
	}
	if !fitsI128(scaleMult) || !fitsI128(scaleDiv) {
		return NormalizedPrice{}, fmt.Errorf("%w: scale factor exceeds i128", ErrOverflow)
	}

	scaledPrice, err := mulQuo(price, scaleMult, scaleDiv, fitsI128)
	if err != nil {
		return NormalizedPrice{}, fmt.Errorf("price: %w", err)
	}
	if !fitsI64(scaledPrice) {
		return NormalizedPrice{}, fmt.Errorf("%w: scaled price %s exceeds i64", ErrOverflow, scaledPrice)
	}

	scaledConf, err := mulQuo(confidence, scaleMult, scaleDiv, fitsU128)
	if err != nil {
		return NormalizedPrice{}, fmt.Errorf("confidence: %w", err)
	}
	if !fitsU64(scaledConf) {
		return NormalizedPrice{}, fmt.Errorf("%w: scaled confidence %s exceeds u64", ErrOverflow, scaledConf)
	}

	delay, err := slotDelay(currentSlot, s.ValidSlot)
	if err != nil {
		return NormalizedPrice{}, err
	}

	return NormalizedPrice{
		Price:                   scaledPrice.Int64(),
		Confidence:              scaledConf.Uint64(),
		Delay:                   delay,
		HasSufficientDataPoints: true,
	}, nil
}

func mulQuo(v, mult, div *big.Int, fits func(*big.Int) bool) (*big.Int, error) {
	product := new(big.Int).Mul(v, mult)
	if !fits(product) {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, v, mult)
	}
	return product.Quo(product, div), nil
}

// slotDelay casts both slots to i64 before subtracting; the result may be negative.
func slotDelay(currentSlot, validSlot uint64) (int64, error) {
	if currentSlot > math.MaxInt64 || validSlot > math.MaxInt64 {
		return 0, fmt.Errorf("%w: slot exceeds i64", ErrOverflow)
	}
	return int64(currentSlot) - int64(validSlot), nil
}

func fitsI128(v *big.Int) bool { return v.Cmp(minI128) >= 0 && v.Cmp(maxI128) <= 0 }
func fitsU128(v *big.Int) bool { return v.Sign() >= 0 && v.Cmp(maxU128) <= 0 }
func fitsI64(v *big.Int) bool { return v.Cmp(minI64) >= 0 && v.Cmp(maxI64) <= 0 }
func fitsU64(v *big.Int) bool { return v.Sign() >= 0 && v.Cmp(maxU64) <= 0 }
