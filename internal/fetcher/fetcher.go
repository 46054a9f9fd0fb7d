package fetcher

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrAccountNotFound is returned when the node reports no account at the address.
var ErrAccountNotFound = errors.New("account not found")

// AccountFetcher retrieves raw account data and the current slot from a node.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error)
	FetchSlot(ctx context.Context) (uint64, error)
}
