package account

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Pyth v2 price account constants.
const (
	PythMagic        uint32 = 0xa1b2c3d4
	PythVersion2     uint32 = 2
	PythAccountPrice uint32 = 3

	// PythPriceSize covers the header, aggregate and all 32 publisher components.
	PythPriceSize = 3312
)

const (
	offPythMagic     = 0
	offPythVersion   = 4
	offPythType      = 8
	offPythSize      = 12
	offPythExpo      = 20
	offPythLastSlot  = 32
	offPythValidSlot = 40
	offPythTimestamp = 96
	offPythProduct   = 112
	offPythAgg       = 208

	offAggPrice   = offPythAgg + 0
	offAggConf    = offPythAgg + 8
	offAggStatus  = offPythAgg + 16
	offAggPubSlot = offPythAgg + 24
)

// PriceStatus is the aggregate trading status published by Pyth.
type PriceStatus uint32

const (
	PriceStatusUnknown PriceStatus = iota
	PriceStatusTrading
	PriceStatusHalted
	PriceStatusAuction
	PriceStatusIgnored
)

func (s PriceStatus) String() string {
	switch s {
	case PriceStatusTrading:
		return "trading"
	case PriceStatusHalted:
		return "halted"
	case PriceStatusAuction:
		return "auction"
	case PriceStatusIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// PythPrice is the decoded header and aggregate of a Pyth v2 price account.
type PythPrice struct {
	Size      uint32
	Exponent  int32
	LastSlot  uint64
	ValidSlot uint64
	Timestamp int64
	Product   solana.PublicKey
	Agg       PriceInfo
}

// PriceInfo is the aggregate price, scaled by 10^Exponent.
type PriceInfo struct {
	Price   int64
	Conf    uint64
	Status  PriceStatus
	PubSlot uint64
}

// DecodePythPrice parses a raw Pyth v2 price account.
func DecodePythPrice(data []byte) (PythPrice, error) {
	if err := checkSize("pyth price", data, PythPriceSize); err != nil {
		return PythPrice{}, err
	}

	r := reader(data)
	if magic := r.u32(offPythMagic); magic != PythMagic {
		return PythPrice{}, fmt.Errorf("%w: pyth magic %#x", ErrWrongType, magic)
	}
	if version := r.u32(offPythVersion); version != PythVersion2 {
		return PythPrice{}, fmt.Errorf("%w: pyth version %d", ErrWrongType, version)
	}
	if atype := r.u32(offPythType); atype != PythAccountPrice {
		return PythPrice{}, fmt.Errorf("%w: pyth account type %d is not price", ErrWrongType, atype)
	}

	return PythPrice{
		Size:      r.u32(offPythSize),
		Exponent:  r.i32(offPythExpo),
		LastSlot:  r.u64(offPythLastSlot),
		ValidSlot: r.u64(offPythValidSlot),
		Timestamp: r.i64(offPythTimestamp),
		Product:   r.pubkey(offPythProduct),
		Agg: PriceInfo{
			Price:   r.i64(offAggPrice),
			Conf:    r.u64(offAggConf),
			Status:  PriceStatus(r.u32(offAggStatus)),
			PubSlot: r.u64(offAggPubSlot),
		},
	}, nil
}

// Encode serialises the price into a zeroed Pyth-sized buffer with a valid header.
func (p PythPrice) Encode() []byte {
	buf := make([]byte, PythPriceSize)
	w := writer(buf)
	w.u32(offPythMagic, PythMagic)
	w.u32(offPythVersion, PythVersion2)
	w.u32(offPythType, PythAccountPrice)
	size := p.Size
	if size == 0 {
		size = PythPriceSize
	}
	w.u32(offPythSize, size)
	w.i32(offPythExpo, p.Exponent)
	w.u64(offPythLastSlot, p.LastSlot)
	w.u64(offPythValidSlot, p.ValidSlot)
	w.i64(offPythTimestamp, p.Timestamp)
	w.pubkey(offPythProduct, p.Product)
	w.i64(offAggPrice, p.Agg.Price)
	w.u64(offAggConf, p.Agg.Conf)
	w.u32(offAggStatus, uint32(p.Agg.Status))
	w.u64(offAggPubSlot, p.Agg.PubSlot)
	return buf
}
