package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pzse-platform/iebc-backend/config"
)

// Client talks to the external ATC climate-data service. Calls are
// rate-limited client-side; the upstream throttles aggressively.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg config.LookupConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

type atcResponse struct {
	Found   bool              `json:"found"`
	Message string            `json:"message"`
	State   string            `json:"state"`
	County  string            `json:"county"`
	City    string            `json:"city"`
	Metrics map[string]Metric `json:"metrics"`
}

func (c *Client) fetch(ctx context.Context, state, county, city string) (*atcResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("state", state)
	q.Set("county", county)
	q.Set("city", city)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/atc?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("atc request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("atc request: unexpected status %d", resp.StatusCode)
	}

	var out atcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("atc response: %w", err)
	}
	return &out, nil
}
