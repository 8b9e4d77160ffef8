package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
)

// FetchSymbolMeta retrieves tick size and lot step for one symbol from
// the exchangeInfo endpoint.
func (c *RestClient) FetchSymbolMeta(ctx context.Context, symbol string) (domain.SymbolMeta, error) {
	sym := strings.ToUpper(symbol)

	q := url.Values{}
	q.Set("symbol", sym)

	body, err := c.get(ctx, "/api/v3/exchangeInfo", q)
	if err != nil {
		return domain.SymbolMeta{}, err
	}

	var resp exchangeInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.SymbolMeta{}, fmt.Errorf("%w: exchangeInfo body: %v", domain.ErrParse, err)
	}

	for _, s := range resp.Symbols {
		if s.Symbol != sym {
			continue
		}

		meta := domain.DefaultSymbolMeta(sym)
		for _, f := range s.Filters {
			switch f.FilterType {
			case "PRICE_FILTER":
				if d, err := decimal.NewFromString(f.TickSize); err == nil && d.IsPositive() {
					meta.TickSize = d
				}
			case "LOT_SIZE":
				if d, err := decimal.NewFromString(f.StepSize); err == nil && d.IsPositive() {
					meta.LotStep = d
				}
			}
		}
		return meta, nil
	}

	return domain.SymbolMeta{}, fmt.Errorf("%w: symbol %s not in exchangeInfo", domain.ErrParse, sym)
}
