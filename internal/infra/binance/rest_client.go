package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra"
)

// RestClient fetches depth snapshots and symbol metadata over the REST
// API. Concurrent snapshot requests for the same symbol are collapsed
// into one upstream call.
type RestClient struct {
	baseURL string
	http    *http.Client
	limiter *infra.RateLimiter
	sf      singleflight.Group
}

// NewRestClient creates a REST client for the given API base URL.
func NewRestClient(baseURL string) *RestClient {
	return &RestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		// Depth at limit 1000 carries request weight 10; keep well
		// under the per-IP allowance.
		limiter: infra.NewRateLimiter(5, 2),
	}
}

// FetchDepth retrieves a full depth snapshot for the symbol.
func (c *RestClient) FetchDepth(ctx context.Context, symbol string, limit int) (domain.DepthSnapshot, error) {
	key := fmt.Sprintf("%s:%d", strings.ToUpper(symbol), limit)
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		return c.fetchDepth(ctx, symbol, limit)
	})
	if err != nil {
		return domain.DepthSnapshot{}, err
	}
	return v.(domain.DepthSnapshot), nil
}

func (c *RestClient) fetchDepth(ctx context.Context, symbol string, limit int) (domain.DepthSnapshot, error) {
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/api/v3/depth", q)
	if err != nil {
		return domain.DepthSnapshot{}, err
	}

	var resp depthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("%w: depth body: %v", domain.ErrParse, err)
	}

	snap := domain.DepthSnapshot{
		Symbol:       strings.ToUpper(symbol),
		LastUpdateID: resp.LastUpdateID,
	}
	if snap.Bids, err = parseLevels(resp.Bids, make([]domain.PriceQty, 0, len(resp.Bids))); err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("%w: snapshot bids: %v", domain.ErrParse, err)
	}
	if snap.Asks, err = parseLevels(resp.Asks, make([]domain.PriceQty, 0, len(resp.Asks))); err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("%w: snapshot asks: %v", domain.ErrParse, err)
	}

	return snap, nil
}

func (c *RestClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", domain.ErrNetwork, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrNetwork, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: status %d", domain.ErrNetwork, path, resp.StatusCode)
	}

	return body, nil
}
