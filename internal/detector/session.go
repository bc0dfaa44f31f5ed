package detector

import (
	"context"
	"fmt"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/config"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/ledger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

type sessionWindow struct {
	key     string
	label   string
	window  models.ScheduleWindow
	closing bool
}

// Session fires once per calendar day when the wall clock crosses each
// session open (and the market close). Edge-triggered on the first tick that
// observes time >= threshold; the per-day flag prevents refiring and resets
// when the date rolls over.
type Session struct {
	windows []sessionWindow
}

// NewSession builds the session detector from the configured "HH:MM" times.
func NewSession(cfg config.SessionsConfig) (*Session, error) {
	specs := []struct {
		key, label, value string
		closing           bool
	}{
		{"asia", "Asia session OPEN", cfg.AsiaOpen, false},
		{"europe", "Europe session OPEN", cfg.EuropeOpen, false},
		{"us", "US session OPEN", cfg.USOpen, false},
		{"close", "Market CLOSE", cfg.Close, true},
	}

	s := &Session{}
	for _, spec := range specs {
		hour, minute, err := config.ParseClockTime(spec.value)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", spec.key, err)
		}
		s.windows = append(s.windows, sessionWindow{
			key:     spec.key,
			label:   spec.label,
			window:  models.ScheduleWindow{Hour: hour, Minute: minute},
			closing: spec.closing,
		})
	}
	return s, nil
}

func (s *Session) Name() string { return "session" }

func (s *Session) Check(_ context.Context, tick *Tick, led *ledger.Ledger) (*models.Alert, error) {
	for _, w := range s.windows {
		st := led.State("session:" + w.key)
		if st.FiredToday(tick.Now) || !w.window.Reached(tick.Now) {
			continue
		}
		st.MarkFiredToday(tick.Now)

		emoji := "📈"
		if w.closing {
			emoji = "📉"
		}
		return &models.Alert{
			Kind:     "session:" + w.key,
			Severity: models.SeverityInfo,
			Message:  fmt.Sprintf("%s Crude %s (IST)", emoji, w.label),
			Time:     tick.Now,
		}, nil
	}
	return nil, nil
}
