// Package news fetches recent entries from an RSS/Atom news feed.
package news

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// Client wraps a feed parser for a single feed URL.
type Client struct {
	feedURL string
	parser  *gofeed.Parser
	timeout time.Duration
}

// NewClient creates a news feed client.
func NewClient(feedURL string, timeout time.Duration) *Client {
	return &Client{
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
		timeout: timeout,
	}
}

// RecentEntries fetches the feed and returns its items in feed order.
// Items without a parseable publish time are dropped, since the watermark
// logic cannot position them.
func (c *Client) RecentEntries(ctx context.Context) ([]models.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	feed, err := c.parser.ParseURLWithContext(c.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news feed: %w", err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.PublishedParsed == nil {
			continue
		}
		items = append(items, models.NewsItem{
			Title:       item.Title,
			PublishedAt: *item.PublishedParsed,
		})
	}
	return items, nil
}
