package binance

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/event"
)

// streamWorker is the common surface of the per-channel workers.
type streamWorker interface {
	Start(ctx context.Context)
	Stop()
	ID() string
}

// StreamManager owns the three channel workers for the active symbol.
// Each channel reconnects independently; switching symbols tears all
// three down and brings up a fresh set so no worker ever emits under
// two different stream URLs.
type StreamManager struct {
	wsBase     string
	intervalMS int
	inbox      chan<- event.Event
	gen        GenFunc

	mu      sync.Mutex
	workers []streamWorker
}

// NewStreamManager creates a manager bound to the engine inbox.
func NewStreamManager(wsBase string, intervalMS int, inbox chan<- event.Event, gen GenFunc) *StreamManager {
	return &StreamManager{
		wsBase:     wsBase,
		intervalMS: intervalMS,
		inbox:      inbox,
		gen:        gen,
	}
}

// Start brings up the depth, trade and quote workers for the symbol.
// Any previously running workers are stopped first.
func (m *StreamManager) Start(ctx context.Context, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	m.workers = []streamWorker{
		NewDepthWorker(m.wsBase, symbol, m.intervalMS, m.inbox, m.gen),
		NewTradeWorker(m.wsBase, symbol, m.inbox, m.gen),
		NewQuoteWorker(m.wsBase, symbol, m.inbox, m.gen),
	}

	for _, w := range m.workers {
		w.Start(ctx)
		slog.Info("stream worker started", slog.String("channel", w.ID()), slog.String("symbol", symbol))
	}
}

// Stop tears down all running workers.
func (m *StreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *StreamManager) stopLocked() {
	for _, w := range m.workers {
		w.Stop()
		slog.Info("stream worker stopped", slog.String("channel", w.ID()))
	}
	m.workers = nil
}
