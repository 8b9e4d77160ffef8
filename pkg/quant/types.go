package quant

import (
	"fmt"
	"math"
)

// PriceMicros represents price multiplied by 1,000,000 (10^6).
// E.g., 1.23 USD = 1,230,000 PriceMicros.
type PriceMicros int64

// QtySats represents quantity multiplied by 100,000,000 (10^8).
// E.g., 1.0 BTC = 100,000,000 QtySats.
type QtySats int64

// TimeStamp represents Unix Microseconds.
type TimeStamp int64

const (
	PriceScale = 1000000
	QtyScale   = 100000000
)

// ToPriceMicros converts a float64 (from external API) to PriceMicros.
// Only used at the boundary. Internal logic stays on PriceMicros.
func ToPriceMicros(f float64) PriceMicros {
	return PriceMicros(math.Round(f * PriceScale))
}

// ToQtySats converts a float64 to QtySats.
func ToQtySats(f float64) QtySats {
	return QtySats(math.Round(f * QtyScale))
}

// Float64 converts back to a display float. Boundary use only.
func (p PriceMicros) Float64() float64 {
	return float64(p) / PriceScale
}

func (q QtySats) Float64() float64 {
	return float64(q) / QtyScale
}

func (p PriceMicros) String() string {
	return fmt.Sprintf("%.6f", float64(p)/PriceScale)
}

func (q QtySats) String() string {
	return fmt.Sprintf("%.8f", float64(q)/QtyScale)
}

// FloorTo rounds p down to the nearest multiple of step.
// Prices are non-negative; step must be positive.
func (p PriceMicros) FloorTo(step PriceMicros) PriceMicros {
	if step <= 0 {
		return p
	}
	return p - p%step
}

// CeilTo rounds p up to the nearest multiple of step.
func (p PriceMicros) CeilTo(step PriceMicros) PriceMicros {
	if step <= 0 {
		return p
	}
	rem := p % step
	if rem == 0 {
		return p
	}
	return p + (step - rem)
}
