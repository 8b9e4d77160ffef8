package engine

import (
	"time"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
)

const (
	// DefaultTradeCapacity bounds the recent-trade history.
	DefaultTradeCapacity = 50
	// DefaultFreshFor is how long a trade keeps its "new" highlight.
	DefaultFreshFor = 300 * time.Millisecond
)

type tradeRow struct {
	trade      domain.Trade
	freshUntil time.Time
}

// TradeFeed is a bounded ring of recent trades, newest first. The
// "new" flag is an expiry timestamp checked lazily at read time, so no
// timer is scheduled per trade and pushes never block each other.
// Owned by the engine loop; not safe for concurrent use on its own.
type TradeFeed struct {
	capacity int
	freshFor time.Duration
	rows     []tradeRow
}

func NewTradeFeed(capacity int, freshFor time.Duration) *TradeFeed {
	if capacity <= 0 {
		capacity = DefaultTradeCapacity
	}
	if freshFor <= 0 {
		freshFor = DefaultFreshFor
	}
	return &TradeFeed{
		capacity: capacity,
		freshFor: freshFor,
		rows:     make([]tradeRow, 0, capacity),
	}
}

// Push prepends a trade, dropping the oldest entry past capacity.
func (f *TradeFeed) Push(t domain.Trade, now time.Time) {
	row := tradeRow{trade: t, freshUntil: now.Add(f.freshFor)}
	if len(f.rows) < f.capacity {
		f.rows = append(f.rows, tradeRow{})
	}
	copy(f.rows[1:], f.rows)
	f.rows[0] = row
}

// Rows returns a copy of the feed, newest first, with IsNew evaluated
// against now.
func (f *TradeFeed) Rows(now time.Time) []domain.TradeView {
	out := make([]domain.TradeView, len(f.rows))
	for i, r := range f.rows {
		out[i] = domain.TradeView{
			Trade: r.trade,
			IsNew: now.Before(r.freshUntil),
		}
	}
	return out
}

func (f *TradeFeed) Len() int { return len(f.rows) }

// Clear empties the feed. Called on session change.
func (f *TradeFeed) Clear() {
	f.rows = f.rows[:0]
}
