package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra/metrics"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/safe"
)

const (
	// MinRows and MaxRows bound the configurable display row count.
	MinRows = 5
	MaxRows = 100

	// spreadSanityLimitPct: a spread wider than this fraction of mid is
	// treated as transiently inconsistent state, not displayed.
	spreadSanityLimitPct = 10.0
)

// AllowedGroupings is the discrete set of grouping multipliers.
var AllowedGroupings = []int{1, 5, 10, 50}

// ViewParams are the display knobs consumed by the projection builder.
type ViewParams struct {
	TickSize quant.PriceMicros
	Grouping int
	Rows     int
}

// Step is the bucketing step: at least one tick.
func (p ViewParams) Step() quant.PriceMicros {
	step := quant.PriceMicros(safe.SafeMul(int64(p.TickSize), int64(p.Grouping)))
	if step < p.TickSize {
		step = p.TickSize
	}
	return step
}

// BuildProjection turns raw side levels plus the best-quote fallback
// into a display projection. A domain.ErrSpreadSanity error means the
// result was deliberately degraded (empty or quote-only) because the
// local book state was not sane to show.
func BuildProjection(symbol string, now time.Time, bids, asks []domain.PriceQty,
	quote domain.BestQuote, hasQuote bool, params ViewParams) (*domain.Projection, error) {

	proj := &domain.Projection{Symbol: symbol, Time: now}

	// An empty side means we are between sessions or mid-resync: show
	// nothing rather than a one-sided book.
	if len(bids) == 0 || len(asks) == 0 {
		return proj, nil
	}

	bestBid := bids[0]
	for _, l := range bids[1:] {
		if l.Price > bestBid.Price {
			bestBid = l
		}
	}
	bestAsk := asks[0]
	for _, l := range asks[1:] {
		if l.Price < bestAsk.Price {
			bestAsk = l
		}
	}

	spread := quant.PriceMicros(safe.SafeSub(int64(bestAsk.Price), int64(bestBid.Price)))
	if spread <= 0 {
		// Crossed or locked book: a transient snapshot/diff race. Fall
		// back to the coarser best-quote feed when it is sane.
		if hasQuote && quote.Sane() {
			return quoteOnlyProjection(proj, quote), fmt.Errorf("book crossed (spread %s): %w", spread, domain.ErrSpreadSanity)
		}
		return proj, fmt.Errorf("book crossed (spread %s), no quote fallback: %w", spread, domain.ErrSpreadSanity)
	}

	mid := quant.PriceMicros((int64(bestAsk.Price) + int64(bestBid.Price)) / 2)
	spreadPct := float64(spread) / float64(mid) * 100
	if math.IsNaN(spreadPct) || math.IsInf(spreadPct, 0) || spreadPct > spreadSanityLimitPct {
		return proj, fmt.Errorf("spread %.4f%% exceeds sanity ceiling: %w", spreadPct, domain.ErrSpreadSanity)
	}

	step := params.Step()
	bidRows := bucketSide(bids, step, params.Rows, true)
	askRows := bucketSide(asks, step, params.Rows, false)

	proj.Bids = bidRows
	proj.Asks = askRows
	if n := len(bidRows); n > 0 {
		proj.MaxBidTotal = bidRows[n-1].Total
	}
	if n := len(askRows); n > 0 {
		proj.MaxAskTotal = askRows[n-1].Total
	}
	proj.Spread = spread
	proj.SpreadPercent = spreadPct
	proj.Mid = mid
	proj.BestBid = &domain.Row{Price: bestBid.Price, Qty: bestBid.Qty}
	proj.BestAsk = &domain.Row{Price: bestAsk.Price, Qty: bestAsk.Qty}
	return proj, nil
}

func quoteOnlyProjection(proj *domain.Projection, quote domain.BestQuote) *domain.Projection {
	spread := quant.PriceMicros(safe.SafeSub(int64(quote.AskPrice), int64(quote.BidPrice)))
	mid := quant.PriceMicros((int64(quote.AskPrice) + int64(quote.BidPrice)) / 2)
	proj.QuoteOnly = true
	proj.Spread = spread
	proj.Mid = mid
	proj.SpreadPercent = float64(spread) / float64(mid) * 100
	proj.BestBid = &domain.Row{Price: quote.BidPrice, Qty: quote.BidQty}
	proj.BestAsk = &domain.Row{Price: quote.AskPrice, Qty: quote.AskQty}
	return proj
}

// bucketSide aggregates levels into price buckets (bids floor, asks
// ceil), orders them for consumption, truncates to the row limit, and
// fills running cumulative totals.
func bucketSide(levels []domain.PriceQty, step quant.PriceMicros, rows int, isBid bool) []domain.Row {
	buckets := make(map[quant.PriceMicros]quant.QtySats, len(levels))
	for _, l := range levels {
		var key quant.PriceMicros
		if isBid {
			key = l.Price.FloorTo(step)
		} else {
			key = l.Price.CeilTo(step)
		}
		buckets[key] = quant.QtySats(safe.SafeAdd(int64(buckets[key]), int64(l.Qty)))
	}

	out := make([]domain.Row, 0, len(buckets))
	for p, q := range buckets {
		out = append(out, domain.Row{Price: p, Qty: q})
	}
	if isBid {
		sort.Slice(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	}
	if len(out) > rows {
		out = out[:rows]
	}

	var total quant.QtySats
	for i := range out {
		total = quant.QtySats(safe.SafeAdd(int64(total), int64(out[i].Qty)))
		out[i].Total = total
	}
	return out
}

// Sink receives each emitted projection (e.g. the Redis publisher).
type Sink interface {
	Publish(ctx context.Context, proj *domain.Projection) error
}

// Projector recomputes the display projection at a fixed cadence,
// decoupled from message arrival: any number of diffs between two ticks
// cost exactly one recompute. Pause suspends recomputation only - the
// engine keeps consuming, so resume shows current state instantly.
type Projector struct {
	eng      *Engine
	interval time.Duration

	mu     sync.RWMutex
	params ViewParams
	last   *domain.Projection

	paused  atomic.Bool
	updates chan *domain.Projection
	sinks   []Sink
}

func NewProjector(eng *Engine, interval time.Duration, params ViewParams, sinks ...Sink) *Projector {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	params.Rows = clampRows(params.Rows)
	if !allowedGrouping(params.Grouping) {
		params.Grouping = 1
	}
	return &Projector{
		eng:      eng,
		interval: interval,
		params:   params,
		updates:  make(chan *domain.Projection, 1),
		sinks:    sinks,
	}
}

// Updates is a latest-value channel: slow consumers only ever see the
// most recent projection.
func (p *Projector) Updates() <-chan *domain.Projection { return p.updates }

// Latest returns the most recently emitted projection, or nil.
func (p *Projector) Latest() *domain.Projection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// SetPaused toggles projection recomputation.
func (p *Projector) SetPaused(v bool) { p.paused.Store(v) }

func (p *Projector) Paused() bool { return p.paused.Load() }

// SetRows updates the display row count, clamped to [MinRows, MaxRows].
func (p *Projector) SetRows(rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params.Rows = clampRows(rows)
}

// SetGrouping updates the grouping multiplier; values outside the
// allowed set are rejected.
func (p *Projector) SetGrouping(mult int) error {
	if !allowedGrouping(mult) {
		return fmt.Errorf("grouping multiplier %d not in %v", mult, AllowedGroupings)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params.Grouping = mult
	return nil
}

// SetTickSize installs the symbol's price increment (on session start
// or symbol switch).
func (p *Projector) SetTickSize(tick quant.PriceMicros) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params.TickSize = tick
}

// Run drives the projection cadence until ctx is done.
func (p *Projector) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.paused.Load() {
				continue
			}
			p.tick(ctx)
		}
	}
}

func (p *Projector) tick(ctx context.Context) {
	started := time.Now()

	bids, asks, quote, hasQuote := p.eng.BookView()
	p.mu.RLock()
	params := p.params
	symbol := p.eng.Symbol()
	p.mu.RUnlock()

	proj, err := BuildProjection(symbol, started, bids, asks, quote, hasQuote, params)
	if err != nil {
		metrics.SpreadSanityTotal.Inc()
		slog.Debug("projection degraded", slog.Any("error", err))
	}

	metrics.ProjectionLatency.Observe(time.Since(started).Seconds())
	metrics.ProjectionsTotal.Inc()

	p.mu.Lock()
	p.last = proj
	p.mu.Unlock()

	// Coalesce: replace any unconsumed projection with the new one.
	select {
	case p.updates <- proj:
	default:
		select {
		case <-p.updates:
		default:
		}
		select {
		case p.updates <- proj:
		default:
		}
	}

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, proj); err != nil {
			metrics.PublishErrorsTotal.Inc()
			slog.Warn("projection publish failed", slog.Any("error", err))
		}
	}
}

func clampRows(rows int) int {
	if rows < MinRows {
		return MinRows
	}
	if rows > MaxRows {
		return MaxRows
	}
	return rows
}

func allowedGrouping(mult int) bool {
	for _, g := range AllowedGroupings {
		if g == mult {
			return true
		}
	}
	return false
}
