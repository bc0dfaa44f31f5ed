package detector

import (
	"context"
	"testing"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/config"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
)

func sessionsConfig() config.SessionsConfig {
	return config.SessionsConfig{
		AsiaOpen:   "09:00",
		EuropeOpen: "13:30",
		USOpen:     "19:00",
		Close:      "23:30",
	}
}

func TestSession_FiresOncePerDayUnderFastTicks(t *testing.T) {
	s, err := NewSession(sessionsConfig())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	led := ledger.New()

	counts := map[string]int{}
	now := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	end := now.Add(24 * time.Hour)

	// Tick every 15 seconds through a full day.
	for ; now.Before(end); now = now.Add(15 * time.Second) {
		alert, err := s.Check(context.Background(), tickAt(now, nil, 0), led)
		if err != nil {
			t.Fatalf("Check failed at %v: %v", now, err)
		}
		if alert != nil {
			counts[alert.Kind]++
		}
	}

	for _, kind := range []string{"session:asia", "session:europe", "session:us", "session:close"} {
		if counts[kind] != 1 {
			t.Errorf("expected %s to fire exactly once, fired %d times", kind, counts[kind])
		}
	}
}

func TestSession_RefiresAfterDateRollover(t *testing.T) {
	s, err := NewSession(sessionsConfig())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	led := ledger.New()

	day1 := time.Date(2025, 11, 10, 9, 0, 30, 0, time.UTC)
	alert, _ := s.Check(context.Background(), tickAt(day1, nil, 0), led)
	if alert == nil || alert.Kind != "session:asia" {
		t.Fatalf("expected asia session alert on day 1, got %+v", alert)
	}

	// Same day, later tick: no refire even well past the threshold.
	later := day1.Add(2 * time.Hour)
	if alert, _ := s.Check(context.Background(), tickAt(later, nil, 0), led); alert != nil && alert.Kind == "session:asia" {
		t.Error("asia session refired within the same day")
	}

	day2 := day1.Add(24 * time.Hour)
	alert, _ = s.Check(context.Background(), tickAt(day2, nil, 0), led)
	if alert == nil || alert.Kind != "session:asia" {
		t.Errorf("expected asia session alert after date rollover, got %+v", alert)
	}
}

func TestSession_LateStartStillFires(t *testing.T) {
	// Process started after the threshold: the first observed tick past it fires.
	s, err := NewSession(sessionsConfig())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	led := ledger.New()

	now := time.Date(2025, 11, 10, 11, 17, 0, 0, time.UTC)
	alert, _ := s.Check(context.Background(), tickAt(now, nil, 0), led)
	if alert == nil || alert.Kind != "session:asia" {
		t.Errorf("expected asia session to fire on first tick past threshold, got %+v", alert)
	}
}
