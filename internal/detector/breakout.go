package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// Breakout detects false breakouts (liquidity sweeps) on the latest closed
// bar: a wick beyond the recent extreme with a close back inside it. The
// reference extreme excludes the bar under test. After firing, the swept
// level is held as an active condition and re-firing is suppressed for the
// cooldown window regardless of further sweeps; the condition is never
// explicitly closed, it simply expires with the cooldown.
type Breakout struct {
	Lookback int
	Cooldown time.Duration
}

func (b *Breakout) Name() string { return "breakout" }

func (b *Breakout) Check(_ context.Context, tick *Tick, led *ledger.Ledger) (*models.Alert, error) {
	closed := tick.Series.Closed()
	if len(closed) < b.Lookback+1 {
		return nil, nil
	}

	bar := closed[len(closed)-1]
	window := closed[len(closed)-1-b.Lookback : len(closed)-1]

	recentHigh := window[0].High
	recentLow := window[0].Low
	for _, w := range window[1:] {
		if w.High > recentHigh {
			recentHigh = w.High
		}
		if w.Low < recentLow {
			recentLow = w.Low
		}
	}

	var level float64
	var pattern string
	switch {
	case bar.High > recentHigh && bar.Close < recentHigh:
		level, pattern = recentHigh, "upside sweep rejected"
	case bar.Low < recentLow && bar.Close > recentLow:
		level, pattern = recentLow, "downside sweep rejected"
	default:
		return nil, nil
	}

	st := led.State("breakout")
	if !st.CooldownOver(tick.Now, b.Cooldown) {
		return nil, nil
	}
	st.ActiveLevel = level
	st.ActiveOpenedAt = tick.Now
	st.MarkFired(tick.Now)

	return &models.Alert{
		Kind:     "breakout",
		Severity: models.SeverityWarning,
		Message: fmt.Sprintf("🪤 False breakout: %s at %.2f (close %.2f)",
			pattern, level, bar.Close),
		Time: tick.Now,
	}, nil
}
