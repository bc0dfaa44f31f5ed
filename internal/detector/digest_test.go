package detector

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/config"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
)

func testDigest(t *testing.T) *Digest {
	t.Helper()
	d, err := NewDigest(
		config.DigestConfig{Time: "18:00", Enabled: true},
		config.MonitorConfig{RSIPeriod: 2},
		config.InventoryConfig{ExpectedLevel: 455.2, PreviousLevel: 452.1},
	)
	if err != nil {
		t.Fatalf("NewDigest failed: %v", err)
	}
	return d
}

func TestDigest_OncePerDay(t *testing.T) {
	d := testDigest(t)
	led := ledger.New()
	start := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)
	series := seriesOf(start, 80, 81, 82)

	// Before the window: silent.
	before := time.Date(2025, 11, 10, 17, 59, 0, 0, time.UTC)
	if alert, _ := d.Check(context.Background(), tickAt(before, series, 82.5), led); alert != nil {
		t.Fatalf("digest before its window must not fire, got %+v", alert)
	}

	// At the window: fires with price, move, RSI and inventory lines.
	at := time.Date(2025, 11, 10, 18, 0, 5, 0, time.UTC)
	alert, err := d.Check(context.Background(), tickAt(at, series, 82.5), led)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if alert == nil || alert.Kind != "digest" {
		t.Fatalf("expected digest at window, got %+v", alert)
	}
	for _, want := range []string{"Price: 82.50", "Last 1h move: +1.23%", "RSI(2): 100.0", "prev 452.1"} {
		if !strings.Contains(alert.Message, want) {
			t.Errorf("digest missing %q:\n%s", want, alert.Message)
		}
	}

	// Any later tick the same day: already sent.
	later := time.Date(2025, 11, 10, 21, 30, 0, 0, time.UTC)
	if alert, _ := d.Check(context.Background(), tickAt(later, series, 82.5), led); alert != nil {
		t.Errorf("digest must be idempotent per day, got %+v", alert)
	}

	// Next day it fires again.
	next := time.Date(2025, 11, 11, 18, 0, 0, 0, time.UTC)
	if alert, _ := d.Check(context.Background(), tickAt(next, series, 82.5), led); alert == nil {
		t.Error("expected digest to fire again the next day")
	}
}

func TestDigest_SparseDataStillSends(t *testing.T) {
	d := testDigest(t)
	led := ledger.New()

	// No series and no price snapshot: the digest still goes out with
	// whatever it has (the inventory line).
	at := time.Date(2025, 11, 10, 18, 0, 0, 0, time.UTC)
	alert, err := d.Check(context.Background(), tickAt(at, nil, 0), led)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if alert == nil {
		t.Fatal("digest must send even with sparse data")
	}
	if strings.Contains(alert.Message, "Price:") {
		t.Errorf("digest without a snapshot must omit the price line:\n%s", alert.Message)
	}
	if !strings.Contains(alert.Message, "next expected 455.2") {
		t.Errorf("digest must always carry the inventory line:\n%s", alert.Message)
	}
}
