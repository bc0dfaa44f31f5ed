// Package ledger tracks per-detector firing state for alert deduplication.
//
// Each detector owns a disjoint set of keys and is the single writer for
// them, so the tick loop needs no locking. States are created on first access
// with neutral defaults and persist for the life of the process; date-scoped
// flags reset implicitly when the date string rolls over.
package ledger

import (
	"sort"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// Ledger holds the detector state records.
type Ledger struct {
	states map[string]*models.DetectorState
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{states: make(map[string]*models.DetectorState)}
}

// State returns the record for key, creating it with neutral defaults on
// first access.
func (l *Ledger) State(key string) *models.DetectorState {
	if st, ok := l.states[key]; ok {
		return st
	}
	st := &models.DetectorState{Key: key, Bucket: models.BucketNeutral, Phase: models.PhaseIdle}
	l.states[key] = st
	return st
}

// Keys returns all known state keys in sorted order.
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.states))
	for k := range l.states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Restore replaces any existing records with the persisted ones. Missing
// fields keep their zero values; detectors treat those as neutral defaults.
func (l *Ledger) Restore(states map[string]*models.DetectorState) {
	for k, st := range states {
		if st.Bucket == "" {
			st.Bucket = models.BucketNeutral
		}
		if st.Phase == "" {
			st.Phase = models.PhaseIdle
		}
		l.states[k] = st
	}
}

// Snapshot returns the current records for checkpointing.
func (l *Ledger) Snapshot() map[string]*models.DetectorState {
	return l.states
}
