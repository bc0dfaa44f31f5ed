package models

import (
	"time"
)

// RSI bucket values for level-state detectors.
const (
	BucketNeutral    = "neutral"
	BucketOverbought = "overbought"
	BucketOversold   = "oversold"
)

// Macro event sequence phases.
const (
	PhaseIdle        = "idle"
	PhaseAwaitingT5  = "awaiting_t5"
	PhaseAwaitingT15 = "awaiting_t15"
)

// DetectorState is the per-detector persistent record in the ledger. Each
// detector owns a disjoint set of keys and is the single writer for them.
// Fields unused by a given detector stay at their zero value.
type DetectorState struct {
	Key string

	// Cooldown-gated detectors.
	LastFiredAt time.Time

	// Level-state detectors (edge-triggered bucket transitions).
	Bucket string

	// Last observed indicator value, for prev-vs-current comparisons.
	LastValue float64

	// In-progress condition tracking (e.g. an unresolved breakout sweep).
	ActiveLevel    float64
	ActiveOpenedAt time.Time

	// Feed watermark; only ever moves forward.
	Watermark time.Time

	// Date-scoped once-per-day flag, as "2006-01-02".
	LastFiredDate string

	// Multi-phase event sequence machine.
	Phase         string
	NextWakeAt    time.Time
	SnapshotPrice float64

	UpdatedAt time.Time
}

// MarkFired records a firing at now for cooldown gating.
func (s *DetectorState) MarkFired(now time.Time) {
	s.LastFiredAt = now
	s.UpdatedAt = now
}

// CooldownOver reports whether at least cooldown has elapsed since the last
// firing. A never-fired state is always over cooldown.
func (s *DetectorState) CooldownOver(now time.Time, cooldown time.Duration) bool {
	if s.LastFiredAt.IsZero() {
		return true
	}
	return now.Sub(s.LastFiredAt) >= cooldown
}

// FiredToday reports whether the once-per-day flag is set for now's date.
func (s *DetectorState) FiredToday(now time.Time) bool {
	return s.LastFiredDate == now.Format("2006-01-02")
}

// MarkFiredToday sets the once-per-day flag for now's date.
func (s *DetectorState) MarkFiredToday(now time.Time) {
	s.LastFiredDate = now.Format("2006-01-02")
	s.UpdatedAt = now
}

// AdvanceWatermark moves the feed watermark forward to t. The watermark never
// regresses, so out-of-order feed entries cannot reopen processed items.
func (s *DetectorState) AdvanceWatermark(t time.Time) {
	if t.After(s.Watermark) {
		s.Watermark = t
	}
}

// ScheduleWindow is a recurring trigger point with minute granularity.
// A nil Weekday matches every day.
type ScheduleWindow struct {
	Weekday *time.Weekday
	Hour    int
	Minute  int
}

// Reached reports whether t is at or past the window's trigger point on a
// matching day. Callers pair this with a once-per-day flag so the window
// fires at most once per occurrence.
func (w ScheduleWindow) Reached(t time.Time) bool {
	if w.Weekday != nil && t.Weekday() != *w.Weekday {
		return false
	}
	return t.Hour() > w.Hour || (t.Hour() == w.Hour && t.Minute() >= w.Minute)
}
