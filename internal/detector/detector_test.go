package detector

import (
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// seriesOf builds an hourly series whose closed bars carry the given closes,
// plus a trailing still-forming bar that detectors must ignore.
func seriesOf(start time.Time, closes ...float64) models.PriceSeries {
	series := make(models.PriceSeries, 0, len(closes)+1)
	for i, c := range closes {
		series = append(series, models.Bar{
			Time:  start.Add(time.Duration(i) * time.Hour),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		})
	}
	last := closes[len(closes)-1]
	series = append(series, models.Bar{
		Time:  start.Add(time.Duration(len(closes)) * time.Hour),
		Open:  last,
		High:  last,
		Low:   last,
		Close: last,
	})
	return series
}

func tickAt(now time.Time, series models.PriceSeries, latest float64) *Tick {
	return &Tick{Now: now, Series: series, Latest: latest}
}
