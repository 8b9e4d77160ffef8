package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/event"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra/metrics"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

// TradeWorker consumes the <symbol>@trade execution stream.
type TradeWorker struct {
	base   *infra.WSWorker
	wsBase string
	symbol string
	inbox  chan<- event.Event
	gen    GenFunc
}

// NewTradeWorker creates the trade channel worker.
func NewTradeWorker(wsBase, symbol string, inbox chan<- event.Event, gen GenFunc) *TradeWorker {
	w := &TradeWorker{
		wsBase: strings.TrimRight(wsBase, "/"),
		symbol: strings.ToLower(symbol),
		inbox:  inbox,
		gen:    gen,
	}
	w.base = infra.NewWSWorker(w)
	return w
}

func (w *TradeWorker) ID() string { return ChannelTrade }

func (w *TradeWorker) GetURL() string {
	return fmt.Sprintf("%s/ws/%s@trade", w.wsBase, w.symbol)
}

// Start begins the connect/read loop.
func (w *TradeWorker) Start(ctx context.Context) { w.base.Start(ctx) }

// Stop terminates the worker.
func (w *TradeWorker) Stop() { w.base.Stop() }

func (w *TradeWorker) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	postStatus(w.inbox, w.gen(), ChannelTrade, true, "")
	return nil
}

func (w *TradeWorker) OnDisconnect(ctx context.Context, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	postStatus(w.inbox, w.gen(), ChannelTrade, false, reason)
}

func (w *TradeWorker) OnMessage(ctx context.Context, msg []byte) {
	metrics.MessagesTotal.WithLabelValues(ChannelTrade).Inc()

	var m tradeMsg
	if err := json.Unmarshal(msg, &m); err != nil || m.EventType != "trade" {
		metrics.ParseErrorsTotal.WithLabelValues(ChannelTrade).Inc()
		return
	}

	price, err := quant.ParsePriceMicros(m.Price)
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues(ChannelTrade).Inc()
		return
	}
	qty, err := quant.ParseQtySats(m.Qty)
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues(ChannelTrade).Inc()
		return
	}

	postEvent(w.inbox, &event.TradeEvent{
		BaseEvent: event.BaseEvent{Gen: w.gen(), Ts: quant.TimeStamp(m.EventTime * 1000)},
		Trade: domain.Trade{
			ID:    m.TradeID,
			Price: price,
			Qty:   qty,
			Time:  time.UnixMilli(m.TradeTime),
			// Taker bought when the maker side was the seller.
			AggressiveBuy: !m.BuyerIsMaker,
		},
	})
}
