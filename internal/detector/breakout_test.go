package detector

import (
	"context"
	"testing"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// sweepSeries builds lookback reference bars capped at refHigh, then a
// closed sweep bar poking above refHigh but closing below it, then a
// forming bar.
func sweepSeries(start time.Time, lookback int, refHigh, sweepHigh, sweepClose float64) models.PriceSeries {
	var series models.PriceSeries
	for i := 0; i < lookback; i++ {
		series = append(series, models.Bar{
			Time:  start.Add(time.Duration(i) * time.Hour),
			Open:  refHigh - 1,
			High:  refHigh,
			Low:   refHigh - 2,
			Close: refHigh - 1,
		})
	}
	series = append(series, models.Bar{
		Time:  start.Add(time.Duration(lookback) * time.Hour),
		Open:  refHigh - 1,
		High:  sweepHigh,
		Low:   refHigh - 2,
		Close: sweepClose,
	})
	series = append(series, models.Bar{ // still forming
		Time:  start.Add(time.Duration(lookback+1) * time.Hour),
		Open:  sweepClose,
		High:  sweepClose,
		Low:   sweepClose,
		Close: sweepClose,
	})
	return series
}

func TestBreakout_UpsideSweepFiresOnce(t *testing.T) {
	b := &Breakout{Lookback: 3, Cooldown: 30 * time.Minute}
	led := ledger.New()
	start := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)
	now := start.Add(5 * time.Hour)

	series := sweepSeries(start, 3, 105.0, 106.2, 104.1)
	alert, err := b.Check(context.Background(), tickAt(now, series, 104.1), led)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if alert == nil {
		t.Fatal("expected upside sweep rejection to fire")
	}

	st := led.State("breakout")
	if st.ActiveLevel != 105.0 {
		t.Errorf("expected active condition at swept level 105.0, got %f", st.ActiveLevel)
	}

	// Repeated sweep attempt 10 minutes later: suppressed by cooldown.
	now = now.Add(10 * time.Minute)
	if alert, _ := b.Check(context.Background(), tickAt(now, series, 104.1), led); alert != nil {
		t.Error("sweep within cooldown window must not refire")
	}

	// After the cooldown the condition has expired and a new sweep fires.
	now = now.Add(30 * time.Minute)
	if alert, _ := b.Check(context.Background(), tickAt(now, series, 104.1), led); alert == nil {
		t.Error("expected a new sweep to fire after cooldown expiry")
	}
}

func TestBreakout_DownsideSweep(t *testing.T) {
	b := &Breakout{Lookback: 3, Cooldown: 30 * time.Minute}
	led := ledger.New()
	start := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	var series models.PriceSeries
	for i := 0; i < 3; i++ {
		series = append(series, models.Bar{
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: 101, High: 102, Low: 100, Close: 101,
		})
	}
	// Wick below the 100 reference low, close back above it.
	series = append(series, models.Bar{
		Time: start.Add(3 * time.Hour),
		Open: 101, High: 101.5, Low: 99.2, Close: 100.8,
	})
	series = append(series, models.Bar{
		Time: start.Add(4 * time.Hour),
		Open: 100.8, High: 100.8, Low: 100.8, Close: 100.8,
	})

	alert, err := b.Check(context.Background(), tickAt(start.Add(4*time.Hour), series, 100.8), led)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if alert == nil {
		t.Fatal("expected downside sweep rejection to fire")
	}
	if led.State("breakout").ActiveLevel != 100.0 {
		t.Errorf("expected active condition at swept level 100.0, got %f", led.State("breakout").ActiveLevel)
	}
}

func TestBreakout_CleanBreakoutDoesNotFire(t *testing.T) {
	b := &Breakout{Lookback: 3, Cooldown: 30 * time.Minute}
	led := ledger.New()
	start := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	// Close above the swept high: a real breakout, not a rejection.
	series := sweepSeries(start, 3, 105.0, 106.2, 105.9)
	alert, _ := b.Check(context.Background(), tickAt(start.Add(5*time.Hour), series, 105.9), led)
	if alert != nil {
		t.Errorf("clean breakout must not fire the false-breakout detector, got %+v", alert)
	}
}

func TestBreakout_InsufficientBarsSkips(t *testing.T) {
	b := &Breakout{Lookback: 12, Cooldown: 30 * time.Minute}
	led := ledger.New()
	start := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

	series := sweepSeries(start, 3, 105.0, 106.2, 104.1) // fewer than 12+1 closed bars
	alert, err := b.Check(context.Background(), tickAt(start, series, 104.1), led)
	if err != nil || alert != nil {
		t.Errorf("under-length series must skip, got alert=%+v err=%v", alert, err)
	}
}
