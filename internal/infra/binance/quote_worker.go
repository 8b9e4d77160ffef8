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

// QuoteWorker consumes the <symbol>@bookTicker top-of-book stream.
type QuoteWorker struct {
	base   *infra.WSWorker
	wsBase string
	symbol string
	inbox  chan<- event.Event
	gen    GenFunc
}

// NewQuoteWorker creates the best-quote channel worker.
func NewQuoteWorker(wsBase, symbol string, inbox chan<- event.Event, gen GenFunc) *QuoteWorker {
	w := &QuoteWorker{
		wsBase: strings.TrimRight(wsBase, "/"),
		symbol: strings.ToLower(symbol),
		inbox:  inbox,
		gen:    gen,
	}
	w.base = infra.NewWSWorker(w)
	return w
}

func (w *QuoteWorker) ID() string { return ChannelQuote }

func (w *QuoteWorker) GetURL() string {
	return fmt.Sprintf("%s/ws/%s@bookTicker", w.wsBase, w.symbol)
}

// Start begins the connect/read loop.
func (w *QuoteWorker) Start(ctx context.Context) { w.base.Start(ctx) }

// Stop terminates the worker.
func (w *QuoteWorker) Stop() { w.base.Stop() }

func (w *QuoteWorker) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	postStatus(w.inbox, w.gen(), ChannelQuote, true, "")
	return nil
}

func (w *QuoteWorker) OnDisconnect(ctx context.Context, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	postStatus(w.inbox, w.gen(), ChannelQuote, false, reason)
}

func (w *QuoteWorker) OnMessage(ctx context.Context, msg []byte) {
	metrics.MessagesTotal.WithLabelValues(ChannelQuote).Inc()

	var m bookTickerMsg
	if err := json.Unmarshal(msg, &m); err != nil || m.Symbol == "" {
		metrics.ParseErrorsTotal.WithLabelValues(ChannelQuote).Inc()
		return
	}

	var quote domain.BestQuote
	var err error
	if quote.BidPrice, err = quant.ParsePriceMicros(m.BidPrice); err == nil {
		if quote.BidQty, err = quant.ParseQtySats(m.BidQty); err == nil {
			if quote.AskPrice, err = quant.ParsePriceMicros(m.AskPrice); err == nil {
				quote.AskQty, err = quant.ParseQtySats(m.AskQty)
			}
		}
	}
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues(ChannelQuote).Inc()
		return
	}

	postEvent(w.inbox, &event.QuoteEvent{
		BaseEvent: event.BaseEvent{Gen: w.gen(), Ts: quant.TimeStamp(time.Now().UnixMicro())},
		Quote:     quote,
	})
}
