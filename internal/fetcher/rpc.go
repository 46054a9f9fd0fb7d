package fetcher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

const (
	// CommitmentConfirmed trades some certainty for latency over "finalized".
	CommitmentConfirmed = "confirmed"

	defaultTimeout = 10 * time.Second
)

// RPCOptions parameterise the JSON-RPC fetcher.
type RPCOptions struct {
	URL        string
	Commitment string
	Timeout    time.Duration
}

// RPC reads accounts over Solana JSON-RPC 2.0.
type RPC struct {
	opts      RPCOptions
	logger    zerolog.Logger
	client    *rpc.Client
	clientMux sync.Mutex
}

// NewRPC builds a new JSON-RPC fetcher.
func NewRPC(opts RPCOptions, logger zerolog.Logger) *RPC {
	if opts.Commitment == "" {
		opts.Commitment = CommitmentConfirmed
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &RPC{opts: opts, logger: logger.With().Str("component", "rpc_fetcher").Logger()}
}

// FetchAccount returns the raw data of the account at address.
func (r *RPC) FetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	client, err := r.getClient(ctx)
	if err != nil {
		return nil, err
	}

	var res accountInfoResult
	params := map[string]string{"encoding": "base64", "commitment": r.opts.Commitment}
	if err := client.CallContext(ctx, &res, "getAccountInfo", address.String(), params); err != nil {
		return nil, fmt.Errorf("getAccountInfo %s: %w", address, err)
	}
	if res.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}

	data, err := res.Value.decode()
	if err != nil {
		return nil, fmt.Errorf("decode account %s: %w", address, err)
	}

	r.logger.Debug().
		Str("address", address.String()).
		Str("owner", res.Value.Owner).
		Uint64("context_slot", res.Context.Slot).
		Int("bytes", len(data)).
		Msg("account fetched")
	return data, nil
}

// FetchSlot returns the node's current slot at the configured commitment.
func (r *RPC) FetchSlot(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	client, err := r.getClient(ctx)
	if err != nil {
		return 0, err
	}

	var slot uint64
	if err := client.CallContext(ctx, &slot, "getSlot", map[string]string{"commitment": r.opts.Commitment}); err != nil {
		return 0, fmt.Errorf("getSlot: %w", err)
	}
	return slot, nil
}

// Close releases the underlying client.
func (r *RPC) Close() {
	r.clientMux.Lock()
	defer r.clientMux.Unlock()

	if r.client != nil {
		r.client.Close()
		r.client = nil
	}
}

func (r *RPC) getClient(ctx context.Context) (*rpc.Client, error) {
	if r.opts.URL == "" {
		return nil, errors.New("rpc url not configured")
	}

	r.clientMux.Lock()
	defer r.clientMux.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	client, err := rpc.DialContext(ctx, r.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	r.client = client
	return client, nil
}

type accountInfoResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value *accountInfo `json:"value"`
}

type accountInfo struct {
	Data       []string `json:"data"`
	Owner      string   `json:"owner"`
	Lamports   uint64   `json:"lamports"`
	Executable bool     `json:"executable"`
}

func (a *accountInfo) decode() ([]byte, error) {
	if len(a.Data) != 2 || a.Data[1] != "base64" {
		return nil, fmt.Errorf("unexpected account data encoding %v", a.Data)
	}
	return base64.StdEncoding.DecodeString(a.Data[0])
}

var _ AccountFetcher = (*RPC)(nil)
