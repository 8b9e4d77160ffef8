package domain

import (
	"time"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

// Trade is a single executed trade from the trade channel.
type Trade struct {
	ID            int64
	Price         quant.PriceMicros
	Qty           quant.QtySats
	Time          time.Time
	AggressiveBuy bool // taker was the buyer
}

// TradeView is a trade as exposed to the display layer.
// IsNew is derived from an expiry timestamp at read time, so highlight
// behavior is deterministic and does not depend on per-trade timers.
type TradeView struct {
	Trade
	IsNew bool
}
