package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/event"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra/metrics"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

const (
	ChannelDepth = "depth"
	ChannelTrade = "trade"
	ChannelQuote = "quote"
)

// GenFunc returns the current session generation. Every event a worker
// emits is stamped with it so the engine can drop leftovers from a
// previous session.
type GenFunc func() int64

// postEvent delivers to the inbox without blocking the read loop.
// Returns false when the inbox was full and the event dropped.
func postEvent(inbox chan<- event.Event, ev event.Event) bool {
	select {
	case inbox <- ev:
		return true
	default:
		metrics.InboxDropsTotal.Inc()
		return false
	}
}

func postStatus(inbox chan<- event.Event, gen int64, channel string, connected bool, reason string) {
	postEvent(inbox, &event.StreamStatusEvent{
		BaseEvent: event.BaseEvent{Gen: gen, Ts: quant.TimeStamp(time.Now().UnixMicro())},
		Channel:   channel,
		Connected: connected,
		Reason:    reason,
	})
}

// DepthWorker consumes the <symbol>@depth diff stream.
type DepthWorker struct {
	base       *infra.WSWorker
	wsBase     string
	symbol     string
	intervalMS int
	inbox      chan<- event.Event
	gen        GenFunc
}

// NewDepthWorker creates the depth-diff channel worker.
func NewDepthWorker(wsBase, symbol string, intervalMS int, inbox chan<- event.Event, gen GenFunc) *DepthWorker {
	w := &DepthWorker{
		wsBase:     strings.TrimRight(wsBase, "/"),
		symbol:     strings.ToLower(symbol),
		intervalMS: intervalMS,
		inbox:      inbox,
		gen:        gen,
	}
	w.base = infra.NewWSWorker(w)
	return w
}

func (w *DepthWorker) ID() string { return ChannelDepth }

func (w *DepthWorker) GetURL() string {
	return fmt.Sprintf("%s/ws/%s@depth@%dms", w.wsBase, w.symbol, w.intervalMS)
}

// Start begins the connect/read loop.
func (w *DepthWorker) Start(ctx context.Context) { w.base.Start(ctx) }

// Stop terminates the worker.
func (w *DepthWorker) Stop() { w.base.Stop() }

// OnConnect reports the channel as live. Subscription is part of the
// URL path, so no handshake message is needed.
func (w *DepthWorker) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	postStatus(w.inbox, w.gen(), ChannelDepth, true, "")
	return nil
}

func (w *DepthWorker) OnDisconnect(ctx context.Context, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	postStatus(w.inbox, w.gen(), ChannelDepth, false, reason)
}

func (w *DepthWorker) OnMessage(ctx context.Context, msg []byte) {
	metrics.MessagesTotal.WithLabelValues(ChannelDepth).Inc()

	var m depthUpdateMsg
	if err := json.Unmarshal(msg, &m); err != nil || m.EventType != "depthUpdate" {
		metrics.ParseErrorsTotal.WithLabelValues(ChannelDepth).Inc()
		return
	}

	ev := event.AcquireDepthDiff()
	ev.Gen = w.gen()
	ev.Ts = quant.TimeStamp(m.EventTime * 1000)
	ev.FirstUpdateID = m.FirstUpdateID
	ev.FinalUpdateID = m.FinalUpdateID

	var err error
	if ev.Bids, err = parseLevels(m.Bids, ev.Bids); err == nil {
		ev.Asks, err = parseLevels(m.Asks, ev.Asks)
	}
	if err != nil {
		// A half-parsed diff must never reach the book.
		metrics.ParseErrorsTotal.WithLabelValues(ChannelDepth).Inc()
		slog.Warn("depth diff parse failed", slog.Any("error", err))
		event.ReleaseDepthDiff(ev)
		return
	}

	if !postEvent(w.inbox, ev) {
		event.ReleaseDepthDiff(ev)
	}
}
