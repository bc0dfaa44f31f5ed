package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/config"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/indicator"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// InventorySource supplies the latest actual value of the reference series
// (weekly crude stocks).
type InventorySource interface {
	LatestActual(ctx context.Context) (models.InventoryReading, error)
}

// Macro handles the scheduled weekly inventory report. Instead of blocking
// the tick loop through the release window, it runs a three-phase machine
// (idle → awaiting_t5 → awaiting_t15) with its own next-wake time, polled by
// the scheduler. Phase and wake time live in the ledger, so an interrupted
// sequence resumes where it left off after a restart.
type Macro struct {
	Window        models.ScheduleWindow
	ResampleDelay time.Duration
	SummaryDelay  time.Duration

	Source         InventorySource
	ExpectedLevel  float64
	PreviousLevel  float64
	SimulateActual bool
}

// NewMacro builds the macro detector from configuration.
func NewMacro(cfg config.MacroConfig, inv config.InventoryConfig, source InventorySource) (*Macro, error) {
	hour, minute, err := config.ParseClockTime(cfg.Time)
	if err != nil {
		return nil, fmt.Errorf("macro time: %w", err)
	}
	weekday := time.Weekday(cfg.Weekday)
	return &Macro{
		Window:         models.ScheduleWindow{Weekday: &weekday, Hour: hour, Minute: minute},
		ResampleDelay:  cfg.ResampleDelay,
		SummaryDelay:   cfg.SummaryDelay,
		Source:         source,
		ExpectedLevel:  inv.ExpectedLevel,
		PreviousLevel:  inv.PreviousLevel,
		SimulateActual: inv.SimulateActual,
	}, nil
}

func (m *Macro) Name() string { return "macro" }

func (m *Macro) Check(ctx context.Context, tick *Tick, led *ledger.Ledger) (*models.Alert, error) {
	st := led.State("macro")

	switch st.Phase {
	case models.PhaseAwaitingT5:
		return m.resample(tick, st), nil
	case models.PhaseAwaitingT15:
		return m.summarize(ctx, tick, st)
	default:
		return m.trigger(tick, st), nil
	}
}

func (m *Macro) trigger(tick *Tick, st *models.DetectorState) *models.Alert {
	if st.FiredToday(tick.Now) || !m.Window.Reached(tick.Now) {
		return nil
	}
	if tick.Latest == 0 {
		// No usable price snapshot this tick; try again on the next one.
		return nil
	}

	st.MarkFiredToday(tick.Now)
	st.Phase = models.PhaseAwaitingT5
	st.NextWakeAt = tick.Now.Add(m.ResampleDelay)
	st.SnapshotPrice = tick.Latest
	st.UpdatedAt = tick.Now

	return &models.Alert{
		Kind:     "macro:reminder",
		Severity: models.SeverityCritical,
		Message: fmt.Sprintf("🛢️ EIA CRUDE INVENTORY due now. Pre-report price: %.2f (expected %.1f MB)",
			st.SnapshotPrice, m.ExpectedLevel),
		Time: tick.Now,
	}
}

func (m *Macro) resample(tick *Tick, st *models.DetectorState) *models.Alert {
	if tick.Now.Before(st.NextWakeAt) || tick.Latest == 0 {
		return nil
	}

	st.Phase = models.PhaseAwaitingT15
	st.NextWakeAt = tick.Now.Add(m.SummaryDelay - m.ResampleDelay)
	st.LastValue = tick.Latest
	st.UpdatedAt = tick.Now

	move, ok := indicator.PctChange(st.SnapshotPrice, tick.Latest)
	if !ok {
		return nil
	}
	return &models.Alert{
		Kind:     "macro:reaction",
		Severity: models.SeverityInfo,
		Message: fmt.Sprintf("🛢️ Initial reaction: %+.2f%% (%.2f → %.2f)",
			move, st.SnapshotPrice, tick.Latest),
		Time: tick.Now,
	}
}

func (m *Macro) summarize(ctx context.Context, tick *Tick, st *models.DetectorState) (*models.Alert, error) {
	if tick.Now.Before(st.NextWakeAt) || tick.Latest == 0 {
		return nil, nil
	}

	move, _ := indicator.PctChange(st.SnapshotPrice, tick.Latest)

	actual, simulated, err := m.actualValue(ctx, move)
	if err != nil {
		// Stay in this phase; the fetch is retried on the next tick.
		return nil, fmt.Errorf("macro summary: %w", err)
	}

	st.Phase = models.PhaseIdle
	st.NextWakeAt = time.Time{}
	st.MarkFired(tick.Now)

	change := actual - m.PreviousLevel
	var result string
	switch {
	case change < 0:
		result = fmt.Sprintf("DRAW 🟢 %.2f MB", -change)
	case change > 0:
		result = fmt.Sprintf("BUILD 🔴 +%.2f MB", change)
	default:
		result = "NO CHANGE ⚪"
	}

	var bias string
	switch {
	case actual < m.ExpectedLevel:
		bias = "BULLISH"
	case actual > m.ExpectedLevel:
		bias = "BEARISH"
	default:
		bias = "NEUTRAL"
	}

	source := "actual"
	if simulated {
		source = "simulated, non-authoritative"
	}

	return &models.Alert{
		Kind:     "macro:summary",
		Severity: models.SeverityCritical,
		Message: fmt.Sprintf("🛢️ EIA CRUDE INVENTORY REPORT\nResult: %s (%s)\nExpected: %.1f MB, got %.1f MB\nBias: %s\nPrice move since release: %+.2f%%",
			result, source, m.ExpectedLevel, actual, bias, move),
		Time: tick.Now,
	}, nil
}

// actualValue fetches the latest actual reading, or derives a placeholder
// from the price move when no real source is configured. The placeholder
// reads a draw-down below expectation as supply tightening; it is a
// heuristic, not ground truth, and is labelled as such in the summary.
func (m *Macro) actualValue(ctx context.Context, move float64) (float64, bool, error) {
	if !m.SimulateActual && m.Source != nil {
		reading, err := m.Source.LatestActual(ctx)
		if err == nil {
			return reading.Value, false, nil
		}
		return 0, false, err
	}
	return m.ExpectedLevel - move, true, nil
}
