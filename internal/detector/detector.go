// Package detector implements the signal detectors. Each detector consumes
// the current tick snapshot plus its own keys in the ledger and produces zero
// or one pending alert per invocation.
package detector

import (
	"context"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// Tick is the read-only snapshot a detector runs against. Market and news
// data may be stale if the latest fetch failed; Stale marks that case.
type Tick struct {
	Now    time.Time // wall-clock in the monitoring timezone
	Series models.PriceSeries
	Latest float64
	News   []models.NewsItem
	Stale  bool
}

// Detector is a single alert family. Check mutates only the detector's own
// ledger keys, immediately after firing or changing state.
type Detector interface {
	Name() string
	Check(ctx context.Context, tick *Tick, led *ledger.Ledger) (*models.Alert, error)
}
