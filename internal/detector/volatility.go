package detector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/indicator"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// Volatility fires when the move between the last two closed bars exceeds the
// threshold. Bars are re-fetched every tick while the underlying bar is still
// forming, so the cooldown approximates "alert once per new bar event"
// instead of repeating the same move until the bar rolls.
type Volatility struct {
	ThresholdPct float64
	Cooldown     time.Duration
}

func (v *Volatility) Name() string { return "volatility" }

func (v *Volatility) Check(_ context.Context, tick *Tick, led *ledger.Ledger) (*models.Alert, error) {
	closed := tick.Series.Closed()
	if len(closed) < 2 {
		return nil, nil
	}
	prev := closed[len(closed)-2]
	last := closed[len(closed)-1]

	move, ok := indicator.PctChange(prev.Close, last.Close)
	if !ok || math.Abs(move) < v.ThresholdPct {
		return nil, nil
	}

	st := led.State("volatility")
	if !st.CooldownOver(tick.Now, v.Cooldown) {
		return nil, nil
	}
	st.MarkFired(tick.Now)

	direction := "UP"
	if move < 0 {
		direction = "DOWN"
	}
	return &models.Alert{
		Kind:     "volatility",
		Severity: models.SeverityWarning,
		Message: fmt.Sprintf("⚡ Crude 1h volatility spike: %s %+.2f%% (%.2f → %.2f)",
			direction, move, prev.Close, last.Close),
		Time: tick.Now,
	}, nil
}
