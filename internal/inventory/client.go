// Package inventory fetches the latest actual value of the weekly crude
// stocks series from the EIA open data API.
package inventory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// Client queries one EIA v2 series.
type Client struct {
	baseURL    string
	seriesID   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an inventory data client.
func NewClient(baseURL, seriesID, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		seriesID:   seriesID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// LatestActual returns the newest published reading of the series.
func (c *Client) LatestActual(ctx context.Context) (models.InventoryReading, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v2/%s/data/", c.baseURL, c.seriesID))
	if err != nil {
		return models.InventoryReading{}, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("frequency", "weekly")
	q.Set("data[0]", "value")
	q.Set("sort[0][column]", "period")
	q.Set("sort[0][direction]", "desc")
	q.Set("length", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.InventoryReading{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.InventoryReading{}, fmt.Errorf("failed to fetch inventory data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.InventoryReading{}, fmt.Errorf("inventory API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.InventoryReading{}, fmt.Errorf("failed to read inventory response: %w", err)
	}

	row := gjson.GetBytes(body, "response.data.0")
	if !row.Exists() {
		return models.InventoryReading{}, fmt.Errorf("inventory API returned no data for %s", c.seriesID)
	}

	return models.InventoryReading{
		Value:  row.Get("value").Float(),
		Period: row.Get("period").String(),
	}, nil
}
