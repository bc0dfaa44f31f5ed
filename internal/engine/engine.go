// Package engine runs the monitoring tick loop: pull fresh market and news
// snapshots, run the detectors in a fixed order against the shared ledger,
// dispatch resulting alerts, and checkpoint state.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/detector"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/logger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/storage"
)

// Clock supplies wall-clock time, injected so tests can simulate it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// MarketData supplies price bars and the latest traded price.
type MarketData interface {
	Bars(ctx context.Context, interval string, lookback int) (models.PriceSeries, error)
	Latest(ctx context.Context) (float64, error)
}

// NewsSource supplies recent feed entries. May return an empty or stale
// list; a fetch failure is non-fatal.
type NewsSource interface {
	RecentEntries(ctx context.Context) ([]models.NewsItem, error)
}

// Notifier delivers alerts downstream. Delivery failures are logged, never
// raised into the detector loop.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Config holds the engine's runtime parameters.
type Config struct {
	Interval           string
	LookbackBars       int
	CheckpointInterval int
	NewsEnabled        bool
}

// Engine owns the per-tick orchestration. It is single-threaded: one cycle
// at a time, detectors run sequentially, and only the ledger is shared, with
// each detector the sole writer of its own keys.
type Engine struct {
	market   MarketData
	news     NewsSource
	notifier Notifier
	store    *storage.Storage
	led      *ledger.Ledger
	clock    Clock
	loc      *time.Location

	detectors []detector.Detector
	cfg       Config

	// Last good snapshot, reused when a fetch fails so other detectors
	// keep running against stale-but-valid data.
	lastSeries models.PriceSeries
	lastLatest float64
	lastNews   []models.NewsItem

	cycleCount int
}

// New creates an engine and restores any persisted detector states.
// store and news may be nil (persistence and news detection disabled).
func New(market MarketData, news NewsSource, notifier Notifier, store *storage.Storage,
	clock Clock, loc *time.Location, detectors []detector.Detector, cfg Config) *Engine {
	e := &Engine{
		market:    market,
		news:      news,
		notifier:  notifier,
		store:     store,
		led:       ledger.New(),
		clock:     clock,
		loc:       loc,
		detectors: detectors,
		cfg:       cfg,
	}

	if store != nil {
		persisted, err := store.LoadAllStates()
		if err != nil {
			logger.Warn("Failed to load persisted detector states: %v", err)
		} else if len(persisted) > 0 {
			e.led.Restore(persisted)
			logger.Info("Restored %d persisted detector states", len(persisted))
		}
	}
	return e
}

// Ledger exposes the shared ledger, primarily for tests.
func (e *Engine) Ledger() *ledger.Ledger { return e.led }

// RunCycle executes one tick. It returns an error only when no market data
// is available at all (neither fresh nor cached); transient fetch failures
// with a cached snapshot are logged and the cycle proceeds.
func (e *Engine) RunCycle(ctx context.Context) error {
	startTime := time.Now()
	now := e.clock.Now().In(e.loc)
	stale := false

	series, err := e.market.Bars(ctx, e.cfg.Interval, e.cfg.LookbackBars)
	if err != nil {
		if e.lastSeries == nil {
			return fmt.Errorf("failed to fetch bars with no cached series: %w", err)
		}
		logger.Warn("Bar fetch failed, reusing cached series: %v", err)
		stale = true
	} else {
		e.lastSeries = series
	}

	latest, err := e.market.Latest(ctx)
	if err != nil {
		logger.Warn("Latest price fetch failed, reusing cached price: %v", err)
		stale = true
	} else {
		e.lastLatest = latest
	}

	if e.cfg.NewsEnabled && e.news != nil {
		items, err := e.news.RecentEntries(ctx)
		if err != nil {
			logger.Warn("News fetch failed, reusing cached items: %v", err)
		} else {
			e.lastNews = items
		}
	}

	tick := &detector.Tick{
		Now:    now,
		Series: e.lastSeries,
		Latest: e.lastLatest,
		News:   e.lastNews,
		Stale:  stale,
	}

	dispatched := 0
	for _, det := range e.detectors {
		alert, err := det.Check(ctx, tick, e.led)
		if err != nil {
			// One failing detector never prevents the others from running.
			logger.Warn("Detector %s failed: %v", det.Name(), err)
			continue
		}
		if alert == nil {
			continue
		}
		e.dispatch(ctx, alert)
		dispatched++
	}

	e.cycleCount++
	if e.cycleCount%e.cfg.CheckpointInterval == 0 {
		e.checkpoint()
	}

	logger.Debug("Cycle %d completed in %v: %d alerts, %d bars, stale=%v",
		e.cycleCount, time.Since(startTime), dispatched, len(e.lastSeries), stale)
	return nil
}

// dispatch records and delivers one alert. The ledger has already advanced
// by the time we get here, so a delivery failure counts as "attempted" and
// is not retried; that keeps a dead sink from producing alert storms later.
func (e *Engine) dispatch(ctx context.Context, alert *models.Alert) {
	alert.ID = uuid.New().String()

	if e.store != nil {
		if err := e.store.AddAlert(alert); err != nil {
			logger.Warn("Failed to record alert %s: %v", alert.Kind, err)
		}
	}

	if e.notifier == nil {
		logger.Info("Alert (no sink): [%s] %s", alert.Severity, alert.Message)
		return
	}
	if err := e.notifier.Notify(ctx, *alert); err != nil {
		logger.Error("Failed to deliver alert %s: %v", alert.Kind, err)
		return
	}
	logger.Info("Dispatched alert %s [%s]", alert.Kind, alert.Severity)
}

func (e *Engine) checkpoint() {
	if e.store == nil {
		return
	}
	for _, st := range e.led.Snapshot() {
		if err := e.store.SaveState(st); err != nil {
			logger.Warn("Failed to checkpoint state %s: %v", st.Key, err)
		}
	}
}

// Shutdown checkpoints the ledger before the process exits.
func (e *Engine) Shutdown() {
	logger.Info("Checkpointing %d detector states before shutdown", len(e.led.Keys()))
	e.checkpoint()
}
