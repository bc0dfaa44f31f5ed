package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/config"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/indicator"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// Digest assembles a once-per-day summary at a fixed local time: current
// price, last 1h move, RSI, and inventory commentary. Idempotent per day via
// the ledger's date flag.
type Digest struct {
	Window        models.ScheduleWindow
	RSIPeriod     int
	ExpectedLevel float64
	PreviousLevel float64
}

// NewDigest builds the digest detector from configuration.
func NewDigest(cfg config.DigestConfig, monitor config.MonitorConfig, inv config.InventoryConfig) (*Digest, error) {
	hour, minute, err := config.ParseClockTime(cfg.Time)
	if err != nil {
		return nil, fmt.Errorf("digest time: %w", err)
	}
	return &Digest{
		Window:        models.ScheduleWindow{Hour: hour, Minute: minute},
		RSIPeriod:     monitor.RSIPeriod,
		ExpectedLevel: inv.ExpectedLevel,
		PreviousLevel: inv.PreviousLevel,
	}, nil
}

func (d *Digest) Name() string { return "digest" }

func (d *Digest) Check(_ context.Context, tick *Tick, led *ledger.Ledger) (*models.Alert, error) {
	st := led.State("digest")
	if st.FiredToday(tick.Now) || !d.Window.Reached(tick.Now) {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("📋 Daily Crude Digest\n")

	if tick.Latest > 0 {
		fmt.Fprintf(&b, "Price: %.2f\n", tick.Latest)
	}
	closed := tick.Series.Closed()
	if len(closed) >= 2 {
		if move, ok := indicator.PctChange(closed[len(closed)-2].Close, closed[len(closed)-1].Close); ok {
			fmt.Fprintf(&b, "Last 1h move: %+.2f%%\n", move)
		}
	}
	if rsi, ok := indicator.RSI(closed.Closes(), d.RSIPeriod); ok {
		fmt.Fprintf(&b, "RSI(%d): %.1f\n", d.RSIPeriod, rsi)
	}
	fmt.Fprintf(&b, "Inventory: prev %.1f MB, next expected %.1f MB", d.PreviousLevel, d.ExpectedLevel)

	st.MarkFiredToday(tick.Now)
	return &models.Alert{
		Kind:     "digest",
		Severity: models.SeverityInfo,
		Message:  b.String(),
		Time:     tick.Now,
	}, nil
}
