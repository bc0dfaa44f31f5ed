package detector

import (
	"context"
	"fmt"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/indicator"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// RSIExtreme fires on bucket transitions into overbought or oversold. While
// the RSI stays in the same bucket across ticks it never refires; crossing
// back through neutral re-arms the next extreme.
type RSIExtreme struct {
	Period     int
	Overbought float64
	Oversold   float64
}

func (r *RSIExtreme) Name() string { return "rsi_extreme" }

func (r *RSIExtreme) Check(_ context.Context, tick *Tick, led *ledger.Ledger) (*models.Alert, error) {
	rsi, ok := indicator.RSI(tick.Series.Closed().Closes(), r.Period)
	if !ok {
		return nil, nil
	}
	return r.evaluate(rsi, tick, led.State("rsi_extreme")), nil
}

func (r *RSIExtreme) classify(rsi float64) string {
	switch {
	case rsi > r.Overbought:
		return models.BucketOverbought
	case rsi < r.Oversold:
		return models.BucketOversold
	default:
		return models.BucketNeutral
	}
}

func (r *RSIExtreme) evaluate(rsi float64, tick *Tick, st *models.DetectorState) *models.Alert {
	bucket := r.classify(rsi)
	if bucket == st.Bucket {
		return nil
	}
	st.Bucket = bucket
	st.UpdatedAt = tick.Now

	switch bucket {
	case models.BucketOverbought:
		return &models.Alert{
			Kind:     "rsi_extreme",
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("🔴 RSI OVERBOUGHT: %.1f (above %.0f)", rsi, r.Overbought),
			Time:     tick.Now,
		}
	case models.BucketOversold:
		return &models.Alert{
			Kind:     "rsi_extreme",
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("🟢 RSI OVERSOLD: %.1f (below %.0f)", rsi, r.Oversold),
			Time:     tick.Now,
		}
	default:
		// Back to neutral: no alert, bucket change alone re-arms.
		return nil
	}
}
