package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

const depthBody = `{
	"lastUpdateId": 1027024,
	"bids": [["100.50", "5.0"], ["100.40", "2.5"]],
	"asks": [["100.60", "1.0"]]
}`

func TestFetchDepth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/depth" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %s, want BTCUSDT", got)
		}
		if got := r.URL.Query().Get("limit"); got != "1000" {
			t.Errorf("limit = %s, want 1000", got)
		}
		w.Write([]byte(depthBody))
	}))
	defer server.Close()

	client := NewRestClient(server.URL)
	snap, err := client.FetchDepth(context.Background(), "btcusdt", 1000)
	if err != nil {
		t.Fatalf("FetchDepth error: %v", err)
	}

	if snap.LastUpdateID != 1027024 {
		t.Errorf("LastUpdateID = %d, want 1027024", snap.LastUpdateID)
	}
	if len(snap.Bids) != 2 || len(snap.Asks) != 1 {
		t.Fatalf("levels = %d bids / %d asks, want 2/1", len(snap.Bids), len(snap.Asks))
	}
	if snap.Bids[0].Price != quant.PriceMicros(100_500_000) {
		t.Errorf("bid price = %d", snap.Bids[0].Price)
	}
	if snap.Bids[0].Qty != quant.QtySats(500_000_000) {
		t.Errorf("bid qty = %d", snap.Bids[0].Qty)
	}
}

func TestFetchDepth_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewRestClient(server.URL)
	_, err := client.FetchDepth(context.Background(), "nope", 100)
	if !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
}

func TestFetchDepth_MalformedLevel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"lastUpdateId": 1, "bids": [["abc", "1.0"]], "asks": []}`))
	}))
	defer server.Close()

	client := NewRestClient(server.URL)
	_, err := client.FetchDepth(context.Background(), "btcusdt", 100)
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestFetchSymbolMeta(t *testing.T) {
	body := `{
		"symbols": [{
			"symbol": "BTCUSDT",
			"status": "TRADING",
			"filters": [
				{"filterType": "PRICE_FILTER", "tickSize": "0.01000000"},
				{"filterType": "LOT_SIZE", "stepSize": "0.00001000"}
			]
		}]
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/exchangeInfo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewRestClient(server.URL)
	meta, err := client.FetchSymbolMeta(context.Background(), "btcusdt")
	if err != nil {
		t.Fatalf("FetchSymbolMeta error: %v", err)
	}

	if meta.TickSize.String() != "0.01" {
		t.Errorf("tick size = %s, want 0.01", meta.TickSize)
	}
	if meta.LotStep.String() != "0.00001" {
		t.Errorf("lot step = %s, want 0.00001", meta.LotStep)
	}
	if meta.TickMicros() != quant.PriceMicros(10_000) {
		t.Errorf("tick micros = %d, want 10000", meta.TickMicros())
	}
}

func TestFetchSymbolMeta_UnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols": []}`))
	}))
	defer server.Close()

	client := NewRestClient(server.URL)
	if _, err := client.FetchSymbolMeta(context.Background(), "nope"); !errors.Is(err, domain.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}
