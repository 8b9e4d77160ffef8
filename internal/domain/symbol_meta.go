package domain

import (
	"github.com/shopspring/decimal"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/pkg/quant"
)

// SymbolMeta holds per-symbol exchange filters used for display
// precision and the projector's grouping step.
type SymbolMeta struct {
	Symbol   string          `json:"symbol"`
	TickSize decimal.Decimal `json:"tick_size"` // price increment, e.g. 0.01
	LotStep  decimal.Decimal `json:"lot_step"`  // quantity increment, e.g. 0.00001
}

// DefaultSymbolMeta is used when the metadata endpoint is unreachable,
// so the projector can still group and format.
func DefaultSymbolMeta(symbol string) SymbolMeta {
	return SymbolMeta{
		Symbol:   symbol,
		TickSize: decimal.New(1, -2), // 0.01
		LotStep:  decimal.New(1, -8), // 0.00000001
	}
}

// TickMicros converts the tick size to the book's fixed-point scale.
// Ticks finer than one micro collapse to 1 so grouping never zeroes out.
func (m SymbolMeta) TickMicros() quant.PriceMicros {
	micros := m.TickSize.Shift(6).IntPart()
	if micros < 1 {
		micros = 1
	}
	return quant.PriceMicros(micros)
}

// PricePrecision derives display decimals from the tick size
// (tick 0.01 -> 2, tick 1 -> 0).
func (m SymbolMeta) PricePrecision() int {
	exp := int(m.TickSize.Exponent())
	if exp >= 0 {
		return 0
	}
	return -exp
}

// QtyPrecision derives display decimals from the lot step.
func (m SymbolMeta) QtyPrecision() int {
	exp := int(m.LotStep.Exponent())
	if exp >= 0 {
		return 0
	}
	return -exp
}
