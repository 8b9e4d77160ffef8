package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/event"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra/metrics"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

// DepthFetcher retrieves a full-depth snapshot. Implemented by the
// exchange REST client; swapped for a stub in tests.
type DepthFetcher interface {
	FetchDepth(ctx context.Context, symbol string, limit int) (domain.DepthSnapshot, error)
}

// Config holds engine construction parameters.
type Config struct {
	Symbol        string
	DepthLimit    int
	InboxSize     int
	SnapshotRetry time.Duration // delay between failed snapshot fetches
	TradeCapacity int
	TradeFreshFor time.Duration
}

// Engine is the reconstruction core: it owns the book, the sequence
// state, the trade feed, and the best-quote cache, and mutates them on
// a single goroutine fed by the inbox. Its only surfaces are the inbox
// (feed) and the read accessors (project/status), which copy state
// under a read lock.
type Engine struct {
	cfg Config

	inbox chan event.Event
	gen   atomic.Int64

	mu       sync.RWMutex
	symbol   string
	book     *Book
	seq      *Sequencer
	trades   *TradeFeed
	quote    domain.BestQuote
	hasQuote bool

	fetcher  DepthFetcher
	fetching bool

	// status
	connected  map[string]bool
	lastErr    string
	lastUpdate time.Time
	reconnects int64

	// message-rate window
	msgWindowStart time.Time
	msgWindowCount int
	msgRate        float64
}

func New(cfg Config, fetcher DepthFetcher) *Engine {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 1024
	}
	if cfg.DepthLimit <= 0 {
		cfg.DepthLimit = 1000
	}
	if cfg.SnapshotRetry <= 0 {
		cfg.SnapshotRetry = 800 * time.Millisecond
	}
	book := NewBook()
	return &Engine{
		cfg:       cfg,
		inbox:     make(chan event.Event, cfg.InboxSize),
		symbol:    cfg.Symbol,
		book:      book,
		seq:       NewSequencer(book),
		trades:    NewTradeFeed(cfg.TradeCapacity, cfg.TradeFreshFor),
		fetcher:   fetcher,
		connected: make(map[string]bool),
	}
}

// Inbox is where stream workers and the snapshot loader deliver events.
func (e *Engine) Inbox() chan<- event.Event { return e.inbox }

// Generation returns the current session generation.
func (e *Engine) Generation() int64 { return e.gen.Load() }

// Symbol returns the active symbol.
func (e *Engine) Symbol() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.symbol
}

// StartSession rotates to a new session: fresh book, sequence state and
// trade feed, cleared quote, incremented generation. Anything in flight
// under the previous generation becomes a no-op on arrival. Returns the
// new generation for the caller to tag its stream workers with.
func (e *Engine) StartSession(ctx context.Context, symbol string) int64 {
	gen := e.gen.Add(1)

	e.mu.Lock()
	e.symbol = symbol
	e.book.Clear()
	e.seq.Reset()
	e.trades.Clear()
	e.quote = domain.BestQuote{}
	e.hasQuote = false
	e.fetching = false
	e.lastErr = ""
	e.mu.Unlock()

	slog.Info("session started", slog.String("symbol", symbol), slog.Int64("generation", gen))
	e.triggerSnapshot(ctx, gen, symbol)
	return gen
}

// Run is the single-threaded hotpath: every store mutation happens
// here, so diff application is never interleaved.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("engine started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping")
			return
		case ev := <-e.inbox:
			e.process(ctx, ev)
		}
	}
}

func (e *Engine) process(ctx context.Context, ev event.Event) {
	// Stale async completions are detected by generation comparison and
	// dropped, never acted upon.
	if ev.GetGen() != e.gen.Load() {
		metrics.StaleDropsTotal.Inc()
		if d, ok := ev.(*event.DepthDiffEvent); ok {
			event.ReleaseDepthDiff(d)
		}
		return
	}

	e.countMessage()

	switch v := ev.(type) {
	case *event.DepthDiffEvent:
		e.handleDiff(ctx, v)
	case *event.SnapshotEvent:
		e.handleSnapshot(ctx, v)
	case *event.TradeEvent:
		e.handleTrade(v)
	case *event.QuoteEvent:
		e.handleQuote(v)
	case *event.StreamStatusEvent:
		e.handleStreamStatus(v)
	default:
		slog.Warn("unknown event type", slog.Any("type", ev.GetType()))
	}
}

// staleLocked re-verifies the event generation while mu is held.
// StartSession bumps the generation before it takes mu, so any event
// that raced past the inbox check loses here and stays a no-op.
func (e *Engine) staleLocked(gen int64) bool {
	return gen != e.gen.Load()
}

func (e *Engine) handleDiff(ctx context.Context, ev *event.DepthDiffEvent) {
	e.mu.Lock()
	if e.staleLocked(ev.Gen) {
		e.mu.Unlock()
		metrics.StaleDropsTotal.Inc()
		event.ReleaseDepthDiff(ev)
		return
	}
	outcome := e.seq.Apply(ev)
	pending := e.seq.PendingLen()
	e.lastUpdate = time.Now()
	symbol := e.symbol
	e.mu.Unlock()

	metrics.DiffApplyTotal.WithLabelValues(outcome.String()).Inc()
	metrics.PendingBufferLen.Set(float64(pending))

	switch outcome {
	case OutcomeBuffered:
		// The sequencer retains the event until reconciliation.
		return
	case OutcomeResync:
		metrics.ResyncsTotal.Inc()
		slog.Warn("sequence gap, forcing resync",
			slog.Int64("first_update_id", ev.FirstUpdateID),
			slog.String("symbol", symbol))
		e.triggerSnapshot(ctx, ev.Gen, symbol)
	}
	event.ReleaseDepthDiff(ev)
}

func (e *Engine) handleSnapshot(ctx context.Context, ev *event.SnapshotEvent) {
	e.mu.Lock()
	if e.staleLocked(ev.Gen) {
		e.mu.Unlock()
		metrics.StaleDropsTotal.Inc()
		return
	}
	lenient, err := e.seq.Reconcile(ev.Snapshot)
	e.fetching = false
	e.lastUpdate = time.Now()
	symbol := e.symbol
	e.mu.Unlock()

	metrics.PendingBufferLen.Set(0)
	if lenient {
		metrics.LenientReconcilesTotal.Inc()
	}
	if err != nil {
		// Discontinuity mid-replay: discard everything and refetch.
		metrics.ResyncsTotal.Inc()
		slog.Warn("reconcile failed, refetching snapshot", slog.Any("error", err))
		e.mu.Lock()
		e.seq.Reset()
		e.mu.Unlock()
		e.triggerSnapshot(ctx, ev.Gen, symbol)
		return
	}

	slog.Info("book reconciled",
		slog.String("symbol", symbol),
		slog.Int64("last_update_id", ev.Snapshot.LastUpdateID),
		slog.Bool("lenient", lenient))
}

func (e *Engine) handleTrade(ev *event.TradeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.staleLocked(ev.Gen) {
		metrics.StaleDropsTotal.Inc()
		return
	}
	e.trades.Push(ev.Trade, time.Now())
	e.lastUpdate = time.Now()
}

func (e *Engine) handleQuote(ev *event.QuoteEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.staleLocked(ev.Gen) {
		metrics.StaleDropsTotal.Inc()
		return
	}
	e.quote = ev.Quote
	e.hasQuote = true
	e.lastUpdate = time.Now()
}

func (e *Engine) handleStreamStatus(ev *event.StreamStatusEvent) {
	e.mu.Lock()
	if e.staleLocked(ev.Gen) {
		e.mu.Unlock()
		metrics.StaleDropsTotal.Inc()
		return
	}
	e.connected[ev.Channel] = ev.Connected
	if !ev.Connected {
		e.reconnects++
		if ev.Reason != "" {
			e.lastErr = ev.Reason
		}
	}
	e.mu.Unlock()
}

// triggerSnapshot launches the session-gated fetch loop. At most one
// fetch is in flight per generation; the flag is cleared when the
// snapshot event is consumed or the session rotates.
func (e *Engine) triggerSnapshot(ctx context.Context, gen int64, symbol string) {
	e.mu.Lock()
	if e.fetching {
		e.mu.Unlock()
		return
	}
	e.fetching = true
	e.mu.Unlock()

	go e.fetchLoop(ctx, gen, symbol)
}

func (e *Engine) fetchLoop(ctx context.Context, gen int64, symbol string) {
	for {
		if e.gen.Load() != gen {
			return // session rotated; a new session refetches on its own
		}

		metrics.SnapshotFetchesTotal.Inc()
		snap, err := e.fetcher.FetchDepth(ctx, symbol, e.cfg.DepthLimit)

		if e.gen.Load() != gen {
			return
		}
		if err != nil {
			metrics.SnapshotFetchErrorsTotal.Inc()
			slog.Warn("snapshot fetch failed, retrying",
				slog.String("symbol", symbol),
				slog.Duration("retry_in", e.cfg.SnapshotRetry),
				slog.Any("error", err))
			e.mu.Lock()
			e.lastErr = err.Error()
			e.mu.Unlock()

			select {
			case <-ctx.Done():
				return
			case <-time.After(e.cfg.SnapshotRetry):
			}
			continue
		}

		ev := &event.SnapshotEvent{
			BaseEvent: event.BaseEvent{Gen: gen, Ts: nowMicros()},
			Snapshot:  snap,
		}
		select {
		case e.inbox <- ev:
		case <-ctx.Done():
		}
		return
	}
}

// BookView copies both sides and the quote cache for the projector.
func (e *Engine) BookView() (bids, asks []domain.PriceQty, quote domain.BestQuote, hasQuote bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.seq.Ready() {
		// No trusted baseline: expose nothing so the projection
		// degrades to empty or quote-only.
		return nil, nil, e.quote, e.hasQuote
	}
	return e.book.Levels(domain.SideBid), e.book.Levels(domain.SideAsk), e.quote, e.hasQuote
}

// Trades returns the recent-trade history, newest first.
func (e *Engine) Trades() []domain.TradeView {
	now := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trades.Rows(now)
}

// Status reports the connection/health surface for the caller.
func (e *Engine) Status() domain.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.Status{
		Connected:      e.connected["depth"],
		LastError:      e.lastErr,
		LastUpdate:     e.lastUpdate,
		MessagesPerSec: e.msgRate,
		Reconnects:     e.reconnects,
		PendingBuffer:  e.seq.PendingLen(),
		Generation:     e.gen.Load(),
	}
}

// countMessage maintains a one-second sliding window message rate.
// Called only from the engine loop; the rate itself is read under mu.
func (e *Engine) countMessage() {
	now := time.Now()
	e.mu.Lock()
	if e.msgWindowStart.IsZero() {
		e.msgWindowStart = now
	}
	e.msgWindowCount++
	if elapsed := now.Sub(e.msgWindowStart); elapsed >= time.Second {
		e.msgRate = float64(e.msgWindowCount) / elapsed.Seconds()
		e.msgWindowStart = now
		e.msgWindowCount = 0
	}
	e.mu.Unlock()
}

func nowMicros() quant.TimeStamp {
	return quant.TimeStamp(time.Now().UnixMicro())
}
