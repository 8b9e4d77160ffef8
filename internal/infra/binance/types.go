package binance

import (
	"fmt"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

// Wire types for the Binance market-data endpoints. Prices and
// quantities arrive as decimal strings and are parsed with the
// fixed-point parser, never through float64.

// depthUpdateMsg is one diff event from the <symbol>@depth stream.
type depthUpdateMsg struct {
	EventType     string      `json:"e"` // "depthUpdate"
	EventTime     int64       `json:"E"` // ms
	Symbol        string      `json:"s"`
	FirstUpdateID int64       `json:"U"`
	FinalUpdateID int64       `json:"u"`
	Bids          [][2]string `json:"b"`
	Asks          [][2]string `json:"a"`
}

// tradeMsg is one execution from the <symbol>@trade stream.
type tradeMsg struct {
	EventType    string `json:"e"` // "trade"
	EventTime    int64  `json:"E"` // ms
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Qty          string `json:"q"`
	TradeTime    int64  `json:"T"` // ms
	BuyerIsMaker bool   `json:"m"`
}

// bookTickerMsg is one top-of-book tick from <symbol>@bookTicker.
type bookTickerMsg struct {
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// depthResponse is the REST depth snapshot body.
type depthResponse struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

// exchangeInfoResponse carries the symbol filters we need for
// tick size and lot step.
type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Status  string `json:"status"`
		Filters []struct {
			FilterType string `json:"filterType"`
			TickSize   string `json:"tickSize"`
			StepSize   string `json:"stepSize"`
		} `json:"filters"`
	} `json:"symbols"`
}

// parseLevels converts wire [price, qty] string pairs into fixed-point
// levels. A single malformed pair fails the whole batch so a partial
// diff is never applied.
func parseLevels(raw [][2]string, dst []domain.PriceQty) ([]domain.PriceQty, error) {
	for _, pair := range raw {
		price, err := quant.ParsePriceMicros(pair[0])
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", pair[0], err)
		}
		qty, err := quant.ParseQtySats(pair[1])
		if err != nil {
			return nil, fmt.Errorf("qty %q: %w", pair[1], err)
		}
		dst = append(dst, domain.PriceQty{Price: price, Qty: qty})
	}
	return dst, nil
}
