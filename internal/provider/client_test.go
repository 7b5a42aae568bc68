package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const snapshotJSON = `{
  "positions": [{
    "id": "uni-1",
    "chainId": 1,
    "protocolName": "Uniswap V3",
    "protocolVersion": "v3",
    "positionName": "LIQUIDITY_POOL",
    "detailType": "COMMON",
    "netValue": "896.20",
    "tokens": {
      "supplyTokenList": [
        {"amount": "0.2", "assetValue": "546.20", "asset": {"symbol": "WETH", "address": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", "decimals": 18, "price": "2731"}},
        {"amount": "350", "assetValue": "350.00", "asset": {"symbol": "USDC", "address": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "decimals": 6}}
      ]
    },
    "pool": {"id": "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640", "chainId": 1}
  }],
  "stats": {"Uniswap V3": {"netTotal": "896.20"}}
}`

func TestClientGetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 0, 3, 10*time.Millisecond)
	body, err := client.get(context.Background(), "/test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"status":"ok"}` {
		t.Errorf("body = %q, want {\"status\":\"ok\"}", string(body))
	}
}

func TestClientRetryOn429(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`rate limited`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 0, 3, 10*time.Millisecond)
	body, err := client.get(context.Background(), "/test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"status":"ok"}` {
		t.Errorf("body = %q, want success response", string(body))
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestClientMaxRetriesExceeded(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`rate limited`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 0, 2, 10*time.Millisecond)
	_, err := client.get(context.Background(), "/test")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if got := attempts.Load(); got != 3 { // initial + 2 retries
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestClientNon429Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`not found`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 0, 3, 10*time.Millisecond)
	if _, err := client.get(context.Background(), "/test"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestClientContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(server.URL, "", 0, 5, time.Second)
	if _, err := client.get(ctx, "/test"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestListPositions(t *testing.T) {
	var gotPath, gotCurrency, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCurrency = r.URL.Query().Get("currency")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(snapshotJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "secret", 100, 0, time.Millisecond)
	resp, err := client.ListPositions(context.Background(), "0xabc", "eur")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/positions/0xabc" {
		t.Errorf("path = %q", gotPath)
	}
	if gotCurrency != "EUR" {
		t.Errorf("currency = %q, want EUR", gotCurrency)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	if len(resp.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(resp.Positions))
	}
	p := resp.Positions[0]
	if p.Pool == nil || p.Pool.ID != "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640" {
		t.Errorf("pool = %+v", p.Pool)
	}
	supply := p.Tokens.SupplyTokenList
	if len(supply) != 2 || supply[0].AssetValue != "546.20" {
		t.Fatalf("supply = %+v", supply)
	}
	if supply[0].Asset.Price == nil || supply[0].Asset.Price.String() != "2731" {
		t.Errorf("price = %v, want 2731", supply[0].Asset.Price)
	}
	if supply[1].Asset.Price != nil {
		t.Errorf("USDC price = %v, want nil", supply[1].Asset.Price)
	}
	if resp.Stats["Uniswap V3"].NetTotal != "896.20" {
		t.Errorf("stats = %+v", resp.Stats)
	}
}

func TestListPositionsBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions": [`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 0, 0, time.Millisecond)
	if _, err := client.ListPositions(context.Background(), "0xabc", "USD"); err == nil {
		t.Fatal("expected JSON error")
	}
}

func TestListPositionsMalformedPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"positions": [{
			"id": "aave-1",
			"protocolName": "Aave V3",
			"positionName": "LENDING",
			"tokens": {"supplyTokenList": [
				{"amount": "1", "asset": {"symbol": "WETH", "address": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", "price": "n/a"}},
				{"amount": "10", "asset": {"symbol": "USDC", "address": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "price": 1}}
			]}
		}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 0, 0, time.Millisecond)
	resp, err := client.ListPositions(context.Background(), "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", "USD")
	if err != nil {
		t.Fatalf("one bad price must not reject the snapshot: %v", err)
	}

	supply := resp.Positions[0].Tokens.SupplyTokenList
	if len(supply) != 2 {
		t.Fatalf("supply tokens = %d, want 2", len(supply))
	}
	if supply[0].Asset.Price != nil || supply[0].Asset.PriceError() == nil {
		t.Errorf("bad price: Price=%v PriceError=%v, want nil price and an error", supply[0].Asset.Price, supply[0].Asset.PriceError())
	}
	if supply[1].Asset.Price == nil || supply[1].Asset.Price.String() != "1" {
		t.Errorf("good price = %v, want 1", supply[1].Asset.Price)
	}
}
