package detector

import (
	"context"
	"testing"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

func TestRSIExtreme_BucketTransitionsOnly(t *testing.T) {
	r := &RSIExtreme{Period: 14, Overbought: 70, Oversold: 30}
	st := &models.DetectorState{Key: "rsi_extreme", Bucket: models.BucketNeutral}
	now := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	sequence := []float64{50, 75, 80, 75, 50, 20, 50}
	var fired []float64
	for i, rsi := range sequence {
		tick := tickAt(now.Add(time.Duration(i)*time.Minute), nil, 0)
		if alert := r.evaluate(rsi, tick, st); alert != nil {
			fired = append(fired, rsi)
		}
	}

	// Exactly two: entering overbought at 75 and oversold at 20. Staying
	// above 70 (80, 75) and returning to neutral never fire.
	if len(fired) != 2 {
		t.Fatalf("expected exactly 2 alerts, got %d (at RSI values %v)", len(fired), fired)
	}
	if fired[0] != 75 || fired[1] != 20 {
		t.Errorf("expected alerts at RSI 75 and 20, got %v", fired)
	}
}

func TestRSIExtreme_NeutralCrossingRearms(t *testing.T) {
	r := &RSIExtreme{Period: 14, Overbought: 70, Oversold: 30}
	st := &models.DetectorState{Key: "rsi_extreme", Bucket: models.BucketNeutral}
	now := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)
	tick := tickAt(now, nil, 0)

	if alert := r.evaluate(75, tick, st); alert == nil {
		t.Fatal("expected alert entering overbought")
	}
	if alert := r.evaluate(50, tick, st); alert != nil {
		t.Fatal("returning to neutral must not alert")
	}
	if alert := r.evaluate(75, tick, st); alert == nil {
		t.Fatal("expected alert re-entering overbought after neutral crossing")
	}
}

func TestRSIExtreme_CheckEndToEnd(t *testing.T) {
	r := &RSIExtreme{Period: 14, Overbought: 70, Oversold: 30}
	led := ledger.New()
	start := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	// Monotonically falling closes: RSI 0, deep oversold.
	closes := make([]float64, 16)
	for i := range closes {
		closes[i] = 80 - float64(i)
	}
	series := seriesOf(start, closes...)

	alert, err := r.Check(context.Background(), tickAt(start, series, 65), led)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if alert == nil || alert.Kind != "rsi_extreme" {
		t.Fatalf("expected oversold alert, got %+v", alert)
	}

	// Same series on the next tick: same bucket, no refire.
	alert, err = r.Check(context.Background(), tickAt(start.Add(time.Minute), series, 65), led)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if alert != nil {
		t.Errorf("expected no refire while remaining oversold, got %+v", alert)
	}
}

func TestRSIExtreme_InsufficientHistorySkips(t *testing.T) {
	r := &RSIExtreme{Period: 14, Overbought: 70, Oversold: 30}
	led := ledger.New()
	start := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	series := seriesOf(start, 80, 79, 78) // way below period+1 closed bars
	alert, err := r.Check(context.Background(), tickAt(start, series, 78), led)
	if err != nil || alert != nil {
		t.Errorf("insufficient history must skip, got alert=%+v err=%v", alert, err)
	}
}
