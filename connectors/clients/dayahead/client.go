package dayahead

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sukarth/wastewater-optimization/auth"
	"github.com/Sukarth/wastewater-optimization/connectors"
)

const defaultBaseURL = "https://api.marketdata.example.com/day_ahead/v2/prices"

// Client fetches hourly day-ahead auction prices for a date window.
type Client struct {
	baseURL   string
	startDate time.Time
	endDate   time.Time
}

// Fetch retrieves the auction results for the window set by the options.
// Exactly the start- and end-date options must be provided.
func (c *Client) Fetch(authClient *auth.ClientCred, opts ...connectors.Option) (connectors.PriceResponse, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.startDate.IsZero() || c.endDate.IsZero() {
		return nil, fmt.Errorf("start and end dates are required")
	}

	base := c.baseURL
	if base == "" {
		base = defaultBaseURL
	}
	url := fmt.Sprintf("%s?start_date=%s&end_date=%s",
		base, c.startDate.Format(time.RFC3339), c.endDate.Format(time.RFC3339))

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := authClient.SetAuthHeader(req); err != nil {
		return nil, fmt.Errorf("failed to set auth header: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var priceResponse Response
	if err := json.Unmarshal(body, &priceResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &priceResponse, nil
}
