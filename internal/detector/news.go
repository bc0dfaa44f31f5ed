package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// News matches feed item titles against the configured keyword set. A
// watermark in the ledger tracks the newest processed publish time; it only
// ever moves forward, so out-of-order feed entries cannot regress it.
type News struct {
	Keywords []string
}

func (n *News) Name() string { return "news" }

func (n *News) Check(_ context.Context, tick *Tick, led *ledger.Ledger) (*models.Alert, error) {
	if len(tick.News) == 0 {
		return nil, nil
	}

	st := led.State("news")
	if st.Watermark.IsZero() {
		// First observation: baseline the watermark so historical items
		// don't flood the channel at startup.
		for _, item := range tick.News {
			st.AdvanceWatermark(item.PublishedAt)
		}
		st.UpdatedAt = tick.Now
		return nil, nil
	}

	// Compare against the watermark as of the start of this tick; the feed
	// is typically newest-first, so advancing mid-scan would skip items.
	mark := st.Watermark
	var matched *models.NewsItem
	for i, item := range tick.News {
		if !item.PublishedAt.After(mark) {
			continue
		}
		st.AdvanceWatermark(item.PublishedAt)
		if matched == nil && n.titleMatches(item.Title) {
			matched = &tick.News[i]
		}
	}
	st.UpdatedAt = tick.Now

	if matched == nil {
		return nil, nil
	}
	st.MarkFired(tick.Now)
	return &models.Alert{
		Kind:     "news",
		Severity: models.SeverityInfo,
		Message:  fmt.Sprintf("📰 Crude news: %s", matched.Title),
		Time:     tick.Now,
	}, nil
}

func (n *News) titleMatches(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range n.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
