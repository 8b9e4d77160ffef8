package event

import (
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

// Type defines the type of event.
type Type uint16

const (
	EvDepthDiff Type = iota + 1
	EvTrade
	EvQuote
	EvSnapshot
	EvStreamStatus
)

// Event is the interface for everything flowing through the engine
// inbox. Gen is the session generation the event was issued under; the
// engine drops events whose generation is stale.
type Event interface {
	GetGen() int64
	GetTs() quant.TimeStamp
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Gen int64           `json:"gen"`
	Ts  quant.TimeStamp `json:"ts"`
}

func (e BaseEvent) GetGen() int64          { return e.Gen }
func (e BaseEvent) GetTs() quant.TimeStamp { return e.Ts }

// DepthDiffEvent is an incremental set of price-level changes covering
// exchange update ids [FirstUpdateID, FinalUpdateID].
type DepthDiffEvent struct {
	BaseEvent
	FirstUpdateID int64             `json:"first_update_id"`
	FinalUpdateID int64             `json:"final_update_id"`
	Bids          []domain.PriceQty `json:"bids"`
	Asks          []domain.PriceQty `json:"asks"`
}

func (e *DepthDiffEvent) GetType() Type { return EvDepthDiff }

// TradeEvent carries one executed trade.
type TradeEvent struct {
	BaseEvent
	Trade domain.Trade `json:"trade"`
}

func (e *TradeEvent) GetType() Type { return EvTrade }

// QuoteEvent carries a best-quote tick.
type QuoteEvent struct {
	BaseEvent
	Quote domain.BestQuote `json:"quote"`
}

func (e *QuoteEvent) GetType() Type { return EvQuote }

// SnapshotEvent delivers a fetched depth snapshot into the engine loop
// so baseline loading is serialized with diff application.
type SnapshotEvent struct {
	BaseEvent
	Snapshot domain.DepthSnapshot `json:"snapshot"`
}

func (e *SnapshotEvent) GetType() Type { return EvSnapshot }

// StreamStatusEvent reports a channel actor connecting or dropping.
type StreamStatusEvent struct {
	BaseEvent
	Channel   string `json:"channel"`
	Connected bool   `json:"connected"`
	Reason    string `json:"reason,omitempty"`
}

func (e *StreamStatusEvent) GetType() Type { return EvStreamStatus }
