package domain

import (
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

// BestQuote is the last known top-of-book from the independent
// best-quote channel. It is only consulted when the locally
// reconstructed book cannot produce a sane spread.
type BestQuote struct {
	BidPrice quant.PriceMicros
	BidQty   quant.QtySats
	AskPrice quant.PriceMicros
	AskQty   quant.QtySats
}

// Sane reports whether the quote can serve as a spread fallback.
func (q BestQuote) Sane() bool {
	return q.BidPrice > 0 && q.AskPrice > q.BidPrice
}
