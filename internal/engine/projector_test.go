package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

func params(tick float64, grouping, rows int) ViewParams {
	return ViewParams{
		TickSize: quant.ToPriceMicros(tick),
		Grouping: grouping,
		Rows:     rows,
	}
}

func build(t *testing.T, bids, asks []domain.PriceQty, quote domain.BestQuote, hasQuote bool, p ViewParams) (*domain.Projection, error) {
	t.Helper()
	return BuildProjection("BTCUSDT", time.Now(), bids, asks, quote, hasQuote, p)
}

// Both sides empty yields an all-empty projection.
func TestBuildProjection_EmptyBook(t *testing.T) {
	proj, err := build(t, nil, nil, domain.BestQuote{}, false, params(0.01, 1, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !proj.Empty() {
		t.Fatal("projection should be empty")
	}
	if proj.Spread != 0 || proj.SpreadPercent != 0 || proj.Mid != 0 {
		t.Errorf("empty projection must be all-zero, got spread=%v pct=%v mid=%v",
			proj.Spread, proj.SpreadPercent, proj.Mid)
	}
}

func TestBuildProjection_BasicSpreadAndMid(t *testing.T) {
	bids := []domain.PriceQty{pq(100.00, 1), pq(99.50, 2)}
	asks := []domain.PriceQty{pq(101.00, 1), pq(101.50, 3)}

	proj, err := build(t, bids, asks, domain.BestQuote{}, false, params(0.01, 1, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if proj.Spread != quant.ToPriceMicros(1.00) {
		t.Errorf("spread = %v, want 1.00", proj.Spread)
	}
	if proj.Mid != quant.ToPriceMicros(100.50) {
		t.Errorf("mid = %v, want 100.50", proj.Mid)
	}
	wantPct := 1.0 / 100.50 * 100
	if diff := proj.SpreadPercent - wantPct; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("spreadPercent = %v, want %v", proj.SpreadPercent, wantPct)
	}
	if proj.BestBid == nil || proj.BestBid.Price != quant.ToPriceMicros(100.00) {
		t.Error("best bid row missing or wrong")
	}
	if proj.BestAsk == nil || proj.BestAsk.Price != quant.ToPriceMicros(101.00) {
		t.Error("best ask row missing or wrong")
	}
}

// Tick 0.01 x grouping 5 -> step 0.05; bids floor, asks ceil.
func TestBuildProjection_Bucketing(t *testing.T) {
	bids := []domain.PriceQty{pq(100.237, 1), pq(100.21, 2)}
	asks := []domain.PriceQty{pq(100.264, 1), pq(100.29, 2)}

	proj, err := build(t, bids, asks, domain.BestQuote{}, false, params(0.01, 5, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(proj.Bids) != 1 || proj.Bids[0].Price != quant.ToPriceMicros(100.20) {
		t.Fatalf("bids = %+v, want single bucket at 100.20", proj.Bids)
	}
	if proj.Bids[0].Qty != quant.ToQtySats(3) {
		t.Errorf("bid bucket qty = %v, want aggregated 3", proj.Bids[0].Qty)
	}
	if len(proj.Asks) != 1 || proj.Asks[0].Price != quant.ToPriceMicros(100.30) {
		t.Fatalf("asks = %+v, want single bucket at 100.30", proj.Asks)
	}
	if proj.Asks[0].Qty != quant.ToQtySats(3) {
		t.Errorf("ask bucket qty = %v, want aggregated 3", proj.Asks[0].Qty)
	}
}

func TestBuildProjection_RowOrderingAndTotals(t *testing.T) {
	bids := []domain.PriceQty{pq(99.00, 1), pq(100.00, 2), pq(98.00, 3), pq(97.00, 4)}
	asks := []domain.PriceQty{pq(103.00, 4), pq(101.00, 2), pq(102.00, 3), pq(104.00, 1)}

	proj, err := build(t, bids, asks, domain.BestQuote{}, false, params(0.01, 1, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(proj.Bids) != 3 || len(proj.Asks) != 3 {
		t.Fatalf("rows not truncated: %d bids, %d asks", len(proj.Bids), len(proj.Asks))
	}

	for i := 1; i < len(proj.Bids); i++ {
		if proj.Bids[i].Price >= proj.Bids[i-1].Price {
			t.Error("bid rows must be strictly descending by price")
		}
		if proj.Bids[i].Total < proj.Bids[i-1].Total {
			t.Error("bid cumulative totals must be non-decreasing")
		}
	}
	for i := 1; i < len(proj.Asks); i++ {
		if proj.Asks[i].Price <= proj.Asks[i-1].Price {
			t.Error("ask rows must be strictly ascending by price")
		}
		if proj.Asks[i].Total < proj.Asks[i-1].Total {
			t.Error("ask cumulative totals must be non-decreasing")
		}
	}

	if proj.Bids[0].Total != proj.Bids[0].Qty {
		t.Error("first row total must equal its own quantity")
	}
	if proj.MaxBidTotal != proj.Bids[2].Total {
		t.Errorf("MaxBidTotal = %v, want last row total %v", proj.MaxBidTotal, proj.Bids[2].Total)
	}
	if proj.MaxAskTotal != proj.Asks[2].Total {
		t.Errorf("MaxAskTotal = %v, want last row total %v", proj.MaxAskTotal, proj.Asks[2].Total)
	}
	// 2 + 1 + 3 on the bid side (100, 99, 98)
	if proj.MaxBidTotal != quant.ToQtySats(6) {
		t.Errorf("MaxBidTotal = %v, want 6", proj.MaxBidTotal)
	}
}

// A crossed local book falls back to the best-quote feed.
func TestBuildProjection_CrossedBookQuoteFallback(t *testing.T) {
	bids := []domain.PriceQty{pq(100.01, 1)}
	asks := []domain.PriceQty{pq(100.00, 1)} // spread -0.01

	quote := domain.BestQuote{
		BidPrice: quant.ToPriceMicros(100.00),
		BidQty:   quant.ToQtySats(1),
		AskPrice: quant.ToPriceMicros(100.05),
		AskQty:   quant.ToQtySats(2),
	}

	proj, err := build(t, bids, asks, quote, true, params(0.01, 1, 20))
	if !errors.Is(err, domain.ErrSpreadSanity) {
		t.Fatalf("error = %v, want ErrSpreadSanity", err)
	}
	if !proj.QuoteOnly {
		t.Fatal("projection should be quote-only")
	}
	if len(proj.Bids) != 0 || len(proj.Asks) != 0 {
		t.Error("quote-only projection must have empty row lists")
	}
	if proj.Spread != quant.ToPriceMicros(0.05) {
		t.Errorf("spread = %v, want 0.05", proj.Spread)
	}
	if proj.Mid != quant.ToPriceMicros(100.025) {
		t.Errorf("mid = %v, want 100.025", proj.Mid)
	}
}

func TestBuildProjection_CrossedBookNoQuote(t *testing.T) {
	bids := []domain.PriceQty{pq(100.01, 1)}
	asks := []domain.PriceQty{pq(100.00, 1)}

	// Insane quote (ask <= bid) must not be used either.
	quote := domain.BestQuote{BidPrice: quant.ToPriceMicros(100.00), AskPrice: quant.ToPriceMicros(99.00)}

	proj, err := build(t, bids, asks, quote, true, params(0.01, 1, 20))
	if !errors.Is(err, domain.ErrSpreadSanity) {
		t.Fatalf("error = %v, want ErrSpreadSanity", err)
	}
	if !proj.Empty() {
		t.Error("projection should degrade to empty")
	}
}

func TestBuildProjection_ExcessiveSpreadRejected(t *testing.T) {
	bids := []domain.PriceQty{pq(50.00, 1)}
	asks := []domain.PriceQty{pq(100.00, 1)} // ~66% of mid

	proj, err := build(t, bids, asks, domain.BestQuote{}, false, params(0.01, 1, 20))
	if !errors.Is(err, domain.ErrSpreadSanity) {
		t.Fatalf("error = %v, want ErrSpreadSanity", err)
	}
	if !proj.Empty() {
		t.Error("excessive spread must yield an empty projection, not a misleading one")
	}
}

func TestViewParams_Step(t *testing.T) {
	p := params(0.01, 5, 20)
	if p.Step() != quant.ToPriceMicros(0.05) {
		t.Errorf("step = %v, want 0.05", p.Step())
	}
	p.Grouping = 0 // degenerate: never below one tick
	if p.Step() != p.TickSize {
		t.Errorf("step = %v, want tick size", p.Step())
	}
}

// Pause suspends recomputation only: the engine keeps consuming, so
// resuming immediately shows everything that changed while paused.
func TestProjector_PauseSuspendsRecomputeOnly(t *testing.T) {
	fetcher := &stubFetcher{snaps: []domain.DepthSnapshot{snap100()}}
	eng, gen, cancel := startEngine(t, fetcher)
	defer cancel()

	waitFor(t, func() bool {
		bids, _, _, _ := eng.BookView()
		return len(bids) == 1
	})

	p := NewProjector(eng, 10*time.Millisecond, params(0.01, 1, 20))
	ctx, pcancel := context.WithCancel(context.Background())
	defer pcancel()
	go p.Run(ctx)

	waitFor(t, func() bool {
		proj := p.Latest()
		return proj != nil && len(proj.Bids) == 1
	})

	p.SetPaused(true)
	// Let any tick that started before the pause finish.
	time.Sleep(30 * time.Millisecond)
	before := p.Latest()

	// Ingestion must keep running while the display is paused.
	d := diff(101, 102, []domain.PriceQty{pq(99.50, 2)}, nil)
	d.Gen = gen
	eng.Inbox() <- d
	waitFor(t, func() bool {
		bids, _, _, _ := eng.BookView()
		return len(bids) == 2
	})

	time.Sleep(50 * time.Millisecond)
	if p.Latest() != before {
		t.Fatal("projection recomputed while paused")
	}

	// Resume: the next tick reflects the state mutated during the pause.
	p.SetPaused(false)
	waitFor(t, func() bool {
		proj := p.Latest()
		return proj != nil && len(proj.Bids) == 2
	})
}

func TestProjector_SetRowsClamped(t *testing.T) {
	p := NewProjector(nil, time.Second, params(0.01, 1, 20))

	p.SetRows(1)
	if p.params.Rows != MinRows {
		t.Errorf("rows = %d, want clamped to %d", p.params.Rows, MinRows)
	}
	p.SetRows(1000)
	if p.params.Rows != MaxRows {
		t.Errorf("rows = %d, want clamped to %d", p.params.Rows, MaxRows)
	}
}

func TestProjector_SetGroupingValidated(t *testing.T) {
	p := NewProjector(nil, time.Second, params(0.01, 1, 20))

	if err := p.SetGrouping(7); err == nil {
		t.Error("grouping 7 should be rejected")
	}
	if err := p.SetGrouping(50); err != nil {
		t.Errorf("grouping 50 should be accepted: %v", err)
	}
}
