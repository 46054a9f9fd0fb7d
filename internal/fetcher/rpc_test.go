package fetcher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

var testAddress = solana.MustPublicKeyFromBase58("8UJgxaiQx5nTrdDgph5FiahMmzduuLTLf5WmsPegYA6W")

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newRPCServer answers each JSON-RPC method with the given result or error object.
func newRPCServer(t *testing.T, results map[string]any, seen chan<- rpcRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if seen != nil {
			seen <- req
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		switch v := results[req.Method].(type) {
		case rpcErrorBody:
			resp["error"] = v
		default:
			resp["result"] = v
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestRPCMissingURL(t *testing.T) {
	r := NewRPC(RPCOptions{}, noopLogger())
	if _, err := r.FetchAccount(context.Background(), testAddress); err == nil {
		t.Fatal("expected error without rpc url")
	}
	if _, err := r.FetchSlot(context.Background()); err == nil {
		t.Fatal("expected error without rpc url")
	}
}

func TestRPCFetchAccount(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	seen := make(chan rpcRequest, 1)
	srv := newRPCServer(t, map[string]any{
		"getAccountInfo": map[string]any{
			"context": map[string]any{"slot": 123},
			"value": map[string]any{
				"data":       []string{base64.StdEncoding.EncodeToString(payload), "base64"},
				"owner":      "dRiftyHA39MWEi3m9aunc5MzRF1JYuBsbn6VPcn33UH",
				"lamports":   1,
				"executable": false,
			},
		},
	}, seen)
	defer srv.Close()

	r := NewRPC(RPCOptions{URL: srv.URL, Timeout: time.Second}, noopLogger())
	defer r.Close()

	data, err := r.FetchAccount(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("fetch account: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("expected %v, got %v", payload, data)
	}

	req := <-seen
	if req.Method != "getAccountInfo" {
		t.Fatalf("expected getAccountInfo, got %s", req.Method)
	}
	if len(req.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(req.Params))
	}
	var addr string
	if err := json.Unmarshal(req.Params[0], &addr); err != nil || addr != testAddress.String() {
		t.Fatalf("expected address param %s, got %s", testAddress, req.Params[0])
	}
	var cfg map[string]string
	if err := json.Unmarshal(req.Params[1], &cfg); err != nil {
		t.Fatalf("decode config param: %v", err)
	}
	if cfg["commitment"] != CommitmentConfirmed || cfg["encoding"] != "base64" {
		t.Fatalf("unexpected config param %v", cfg)
	}
}

func TestRPCFetchAccountNotFound(t *testing.T) {
	srv := newRPCServer(t, map[string]any{
		"getAccountInfo": map[string]any{
			"context": map[string]any{"slot": 1},
			"value":   nil,
		},
	}, nil)
	defer srv.Close()

	r := NewRPC(RPCOptions{URL: srv.URL}, noopLogger())
	defer r.Close()

	if _, err := r.FetchAccount(context.Background(), testAddress); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestRPCFetchAccountUnexpectedEncoding(t *testing.T) {
	srv := newRPCServer(t, map[string]any{
		"getAccountInfo": map[string]any{
			"context": map[string]any{"slot": 1},
			"value":   map[string]any{"data": []string{"AQID", "base58"}},
		},
	}, nil)
	defer srv.Close()

	r := NewRPC(RPCOptions{URL: srv.URL}, noopLogger())
	defer r.Close()

	if _, err := r.FetchAccount(context.Background(), testAddress); err == nil {
		t.Fatal("expected encoding error")
	}
}

func TestRPCNodeError(t *testing.T) {
	srv := newRPCServer(t, map[string]any{
		"getAccountInfo": rpcErrorBody{Code: -32602, Message: "Invalid param"},
	}, nil)
	defer srv.Close()

	r := NewRPC(RPCOptions{URL: srv.URL}, noopLogger())
	defer r.Close()

	_, err := r.FetchAccount(context.Background(), testAddress)
	if err == nil {
		t.Fatal("expected node error")
	}
	if errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("node error must not map to not found: %v", err)
	}
}

func TestRPCFetchSlot(t *testing.T) {
	seen := make(chan rpcRequest, 1)
	srv := newRPCServer(t, map[string]any{"getSlot": 250_000_123}, seen)
	defer srv.Close()

	r := NewRPC(RPCOptions{URL: srv.URL, Commitment: "finalized"}, noopLogger())
	defer r.Close()

	slot, err := r.FetchSlot(context.Background())
	if err != nil {
		t.Fatalf("fetch slot: %v", err)
	}
	if slot != 250_000_123 {
		t.Fatalf("expected slot 250000123, got %d", slot)
	}

	req := <-seen
	var cfg map[string]string
	if err := json.Unmarshal(req.Params[0], &cfg); err != nil {
		t.Fatalf("decode config param: %v", err)
	}
	if cfg["commitment"] != "finalized" {
		t.Fatalf("expected finalized commitment, got %v", cfg)
	}
}
