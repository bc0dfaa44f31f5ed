// Package marketdata fetches OHLC bars and latest prices from the Yahoo
// Finance chart API.
package marketdata

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

// Client provides access to the chart API for a single symbol.
type Client struct {
	baseURL    string
	symbol     string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a market data client.
func NewClient(baseURL, symbol string, timeout time.Duration, maxRetries int) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		baseURL:    baseURL,
		symbol:     symbol,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// Bars fetches the most recent bars at the given interval. The API may
// return fewer bars than requested near market open, and individual slots
// may be null during gaps; both are passed through as a shorter series for
// the detectors to judge sufficiency themselves.
func (c *Client) Bars(ctx context.Context, interval string, lookback int) (models.PriceSeries, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(c.symbol)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("interval", interval)
	q.Set("range", rangeForLookback(interval, lookback))
	u.RawQuery = q.Encode()

	body, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bars: %w", err)
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		if msg := gjson.GetBytes(body, "chart.error.description"); msg.Exists() {
			return nil, fmt.Errorf("chart API error: %s", msg.String())
		}
		return nil, fmt.Errorf("chart API returned no result for %s", c.symbol)
	}

	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()

	var series models.PriceSeries
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i].Type == gjson.Null {
			continue // gap in trading data
		}
		series = append(series, models.Bar{
			Time:  time.Unix(ts.Int(), 0),
			Open:  opens[i].Float(),
			High:  highs[i].Float(),
			Low:   lows[i].Float(),
			Close: closes[i].Float(),
		})
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("chart API returned malformed series: %w", err)
	}
	if len(series) > lookback {
		series = series[len(series)-lookback:]
	}
	return series, nil
}

// Latest fetches the most recent traded price.
func (c *Client) Latest(ctx context.Context) (float64, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1m&range=1d", c.baseURL, url.PathEscape(c.symbol))
	body, err := c.doRequest(ctx, u)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch latest price: %w", err)
	}
	price := gjson.GetBytes(body, "chart.result.0.meta.regularMarketPrice")
	if !price.Exists() || price.Float() <= 0 {
		return 0, fmt.Errorf("chart API returned no price for %s", c.symbol)
	}
	return price.Float(), nil
}

// rangeForLookback picks an API range wide enough to cover lookback bars,
// with slack for weekends and holidays.
func rangeForLookback(interval string, lookback int) string {
	switch interval {
	case "1d":
		if lookback <= 20 {
			return "1mo"
		}
		return "3mo"
	default: // intraday intervals
		if lookback <= 24 {
			return "5d"
		}
		return "1mo"
	}
}

// doRequest performs a GET with linear-backoff retry on transport errors and
// server-side failures.
func (c *Client) doRequest(ctx context.Context, urlStr string) ([]byte, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "crude-master-bot/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		} else if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		} else {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				lastErr = err
			} else {
				return body, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
