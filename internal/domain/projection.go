package domain

import (
	"time"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

// Row is one bucketed depth row of the display projection.
// Total is the running cumulative quantity from the top of the side
// down to and including this row.
type Row struct {
	Price quant.PriceMicros `json:"price"`
	Qty   quant.QtySats     `json:"qty"`
	Total quant.QtySats     `json:"total"`
}

// Projection is the immutable display-ready view of the book.
// Consumers must treat it as read-only; a new value is emitted each
// projector tick.
type Projection struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`

	Bids []Row `json:"bids"` // strictly descending by price
	Asks []Row `json:"asks"` // strictly ascending by price

	MaxBidTotal quant.QtySats `json:"max_bid_total"`
	MaxAskTotal quant.QtySats `json:"max_ask_total"`

	Spread        quant.PriceMicros `json:"spread"`
	SpreadPercent float64           `json:"spread_percent"`
	Mid           quant.PriceMicros `json:"mid"`

	// Raw (un-bucketed) top of book; nil when the side is empty.
	BestBid *Row `json:"best_bid,omitempty"`
	BestAsk *Row `json:"best_ask,omitempty"`

	// QuoteOnly marks a projection built from the best-quote fallback:
	// spread/mid are valid but the row lists are empty.
	QuoteOnly bool `json:"quote_only,omitempty"`
}

// Empty reports whether the projection carries no usable book state.
func (p *Projection) Empty() bool {
	return len(p.Bids) == 0 && len(p.Asks) == 0 && !p.QuoteOnly
}
