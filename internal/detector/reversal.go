package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/indicator"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// Reversal fires when the RSI recovers out of an extreme: bullish when the
// previous RSI was below the oversold floor and the current one has climbed
// past floor+margin, bearish symmetrically on the overbought side. The margin
// prevents flapping exactly at the threshold.
type Reversal struct {
	Period     int
	Overbought float64
	Oversold   float64
	Margin     float64
	Cooldown   time.Duration
}

func (r *Reversal) Name() string { return "reversal" }

func (r *Reversal) Check(_ context.Context, tick *Tick, led *ledger.Ledger) (*models.Alert, error) {
	rsi, ok := indicator.RSI(tick.Series.Closed().Closes(), r.Period)
	if !ok {
		return nil, nil
	}

	st := led.State("reversal")
	if st.UpdatedAt.IsZero() {
		// First observation, nothing to compare against yet.
		st.LastValue = rsi
		st.UpdatedAt = tick.Now
		return nil, nil
	}

	prev := st.LastValue
	st.LastValue = rsi
	st.UpdatedAt = tick.Now

	var kind, message string
	switch {
	case prev < r.Oversold && rsi > r.Oversold+r.Margin:
		kind = "reversal:bullish"
		message = fmt.Sprintf("🔄 Bullish reversal: RSI %.1f → %.1f recovered above %.0f", prev, rsi, r.Oversold)
	case prev > r.Overbought && rsi < r.Overbought-r.Margin:
		kind = "reversal:bearish"
		message = fmt.Sprintf("🔄 Bearish reversal: RSI %.1f → %.1f dropped below %.0f", prev, rsi, r.Overbought)
	default:
		return nil, nil
	}

	if !st.CooldownOver(tick.Now, r.Cooldown) {
		return nil, nil
	}
	st.MarkFired(tick.Now)

	return &models.Alert{
		Kind:     kind,
		Severity: models.SeverityInfo,
		Message:  message,
		Time:     tick.Now,
	}, nil
}
