package domain

import (
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

// Side identifies which half of the book a level belongs to.
type Side uint8

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// PriceQty is a single price-level change or snapshot entry.
// Qty == 0 means the level is gone.
type PriceQty struct {
	Price quant.PriceMicros
	Qty   quant.QtySats
}

// DepthSnapshot is a full-state baseline of the book tagged with the
// exchange sequence id it was taken at.
type DepthSnapshot struct {
	Symbol       string
	LastUpdateID int64
	Bids         []PriceQty
	Asks         []PriceQty
}
