package engine

import (
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

// Book is the canonical per-price-level ledger for both sides. Levels
// are keyed by fixed-point price; a quantity of zero removes the level,
// it is never stored. Book is not safe for concurrent use: all
// mutation happens on the engine loop, reads copy under the engine lock.
type Book struct {
	bids map[quant.PriceMicros]quant.QtySats
	asks map[quant.PriceMicros]quant.QtySats
}

func NewBook() *Book {
	return &Book{
		bids: make(map[quant.PriceMicros]quant.QtySats),
		asks: make(map[quant.PriceMicros]quant.QtySats),
	}
}

func (b *Book) side(s domain.Side) map[quant.PriceMicros]quant.QtySats {
	if s == domain.SideBid {
		return b.bids
	}
	return b.asks
}

// Apply upserts the level, or deletes it when qty is zero. O(1).
func (b *Book) Apply(s domain.Side, price quant.PriceMicros, qty quant.QtySats) {
	m := b.side(s)
	if qty == 0 {
		delete(m, price)
		return
	}
	m[price] = qty
}

// ApplyAll applies a batch of level changes to one side.
func (b *Book) ApplyAll(s domain.Side, changes []domain.PriceQty) {
	for _, c := range changes {
		b.Apply(s, c.Price, c.Qty)
	}
}

// ReplaceAll swaps in a full snapshot for one side. Zero-quantity
// entries are skipped rather than stored.
func (b *Book) ReplaceAll(s domain.Side, entries []domain.PriceQty) {
	m := make(map[quant.PriceMicros]quant.QtySats, len(entries))
	for _, e := range entries {
		if e.Qty == 0 {
			continue
		}
		m[e.Price] = e.Qty
	}
	if s == domain.SideBid {
		b.bids = m
	} else {
		b.asks = m
	}
}

// BestBid returns the highest bid level. O(size), called only at
// projection cadence, never per message.
func (b *Book) BestBid() (domain.PriceQty, bool) {
	return bestOf(b.bids, func(p, best quant.PriceMicros) bool { return p > best })
}

// BestAsk returns the lowest ask level.
func (b *Book) BestAsk() (domain.PriceQty, bool) {
	return bestOf(b.asks, func(p, best quant.PriceMicros) bool { return p < best })
}

func bestOf(m map[quant.PriceMicros]quant.QtySats, better func(p, best quant.PriceMicros) bool) (domain.PriceQty, bool) {
	var best domain.PriceQty
	found := false
	for p, q := range m {
		if !found || better(p, best.Price) {
			best = domain.PriceQty{Price: p, Qty: q}
			found = true
		}
	}
	return best, found
}

// Qty returns the resting quantity at a price, if the level exists.
func (b *Book) Qty(s domain.Side, price quant.PriceMicros) (quant.QtySats, bool) {
	q, ok := b.side(s)[price]
	return q, ok
}

// Levels returns an unordered copy of one side.
func (b *Book) Levels(s domain.Side) []domain.PriceQty {
	m := b.side(s)
	out := make([]domain.PriceQty, 0, len(m))
	for p, q := range m {
		out = append(out, domain.PriceQty{Price: p, Qty: q})
	}
	return out
}

// Depth returns the number of levels on one side.
func (b *Book) Depth(s domain.Side) int {
	return len(b.side(s))
}

// Clear empties both sides.
func (b *Book) Clear() {
	b.bids = make(map[quant.PriceMicros]quant.QtySats)
	b.asks = make(map[quant.PriceMicros]quant.QtySats)
}
