// Package models defines the core domain entities: price bars, alerts, news
// items, and per-detector state records.
package models

import (
	"errors"
	"time"
)

// Bar is a single OHLC candle at the sampling interval.
type Bar struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// PriceSeries is an ordered sequence of bars. Timestamps must be strictly
// increasing; the final bar may still be forming.
type PriceSeries []Bar

// Validate checks series ordering constraints.
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Time.After(s[i-1].Time) {
			return errors.New("bar timestamps must be strictly increasing")
		}
	}
	return nil
}

// Closes returns the close prices in series order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// Closed returns the series without the final (still-forming) bar.
func (s PriceSeries) Closed() PriceSeries {
	if len(s) == 0 {
		return s
	}
	return s[:len(s)-1]
}

// Last returns the most recent bar, or false if the series is empty.
func (s PriceSeries) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// NewsItem is one entry from the external news feed.
type NewsItem struct {
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
}

// InventoryReading is the latest actual value from the reference data source
// (e.g. EIA weekly crude stocks, in million barrels).
type InventoryReading struct {
	Value  float64 `json:"value"`
	Period string  `json:"period"`
}
