package detector

import (
	"context"
	"testing"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

func newsTick(now time.Time, items ...models.NewsItem) *Tick {
	tick := tickAt(now, nil, 0)
	tick.News = items
	return tick
}

func TestNews_BaselineSuppressesStartupFlood(t *testing.T) {
	n := &News{Keywords: []string{"OPEC"}}
	led := ledger.New()
	now := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	items := []models.NewsItem{
		{Title: "OPEC weighs output cut", PublishedAt: now.Add(-2 * time.Hour)},
		{Title: "OPEC meeting concludes", PublishedAt: now.Add(-1 * time.Hour)},
	}

	// First observation only records the watermark, no matter how many
	// matching items the feed already carries.
	alert, err := n.Check(context.Background(), newsTick(now, items...), led)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if alert != nil {
		t.Fatalf("baseline tick must not alert, got %+v", alert)
	}
	if got := led.State("news").Watermark; !got.Equal(now.Add(-1 * time.Hour)) {
		t.Errorf("watermark must sit at the newest item, got %v", got)
	}

	// Re-presenting the same items stays silent.
	if alert, _ := n.Check(context.Background(), newsTick(now.Add(time.Minute), items...), led); alert != nil {
		t.Errorf("already-seen items must not alert, got %+v", alert)
	}
}

func TestNews_FiresOnceOnNewMatch(t *testing.T) {
	n := &News{Keywords: []string{"opec", "sanction"}}
	led := ledger.New()
	now := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	seed := models.NewsItem{Title: "Market open", PublishedAt: now.Add(-time.Hour)}
	_, _ = n.Check(context.Background(), newsTick(now, seed), led)

	// Newest-first feed with one fresh match; matching is case-insensitive.
	later := now.Add(10 * time.Minute)
	fresh := []models.NewsItem{
		{Title: "US imposes new SANCTIONS on crude exports", PublishedAt: later},
		seed,
	}
	alert, err := n.Check(context.Background(), newsTick(later, fresh...), led)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if alert == nil || alert.Kind != "news" {
		t.Fatalf("expected news alert, got %+v", alert)
	}

	// Same feed again: the watermark has advanced past the match.
	if alert, _ := n.Check(context.Background(), newsTick(later.Add(time.Minute), fresh...), led); alert != nil {
		t.Errorf("repeated feed must not re-alert, got %+v", alert)
	}
}

func TestNews_WatermarkMonotonicOnOutOfOrderFeed(t *testing.T) {
	n := &News{Keywords: []string{"opec"}}
	led := ledger.New()
	now := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	seed := models.NewsItem{Title: "Market open", PublishedAt: now.Add(-time.Hour)}
	_, _ = n.Check(context.Background(), newsTick(now, seed), led)

	// Fresh items arriving newest-first: the watermark must end at the
	// maximum publish time, not at the last item processed.
	later := now.Add(30 * time.Minute)
	fresh := []models.NewsItem{
		{Title: "Crude inventories rise", PublishedAt: later},
		{Title: "Refinery update", PublishedAt: now.Add(10 * time.Minute)},
		seed,
	}
	_, _ = n.Check(context.Background(), newsTick(later, fresh...), led)

	if got := led.State("news").Watermark; !got.Equal(later) {
		t.Errorf("watermark must be the max publish time %v, got %v", later, got)
	}
}

func TestNews_NonMatchingItemsAdvanceWatermarkSilently(t *testing.T) {
	n := &News{Keywords: []string{"opec"}}
	led := ledger.New()
	now := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	seed := models.NewsItem{Title: "Market open", PublishedAt: now.Add(-time.Hour)}
	_, _ = n.Check(context.Background(), newsTick(now, seed), led)

	later := now.Add(5 * time.Minute)
	alert, _ := n.Check(context.Background(), newsTick(later,
		models.NewsItem{Title: "Equities rally on tech earnings", PublishedAt: later}), led)
	if alert != nil {
		t.Fatalf("non-matching item must not alert, got %+v", alert)
	}
	if got := led.State("news").Watermark; !got.Equal(later) {
		t.Errorf("non-matching items must still advance the watermark, got %v", got)
	}
}

func TestNews_EmptyFeedIsNoop(t *testing.T) {
	n := &News{Keywords: []string{"opec"}}
	led := ledger.New()
	now := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	alert, err := n.Check(context.Background(), newsTick(now), led)
	if err != nil || alert != nil {
		t.Errorf("empty feed must be a no-op, got alert=%+v err=%v", alert, err)
	}
	if !led.State("news").Watermark.IsZero() {
		t.Error("empty feed must not baseline the watermark")
	}
}
