// Package weather scores hourly forecasts for stargazing and picks the best
// night-time hour in a multi-day forecast.
package weather

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoViableWindow is returned when no night-time hour in the forecast
// horizon has a forecast entry.
var ErrNoViableWindow = errors.New("no viable observing window")

// HourlyForecast is the forecast for one hour at one site.
type HourlyForecast struct {
	CloudCoverage     float32 `json:"cloud_coverage"`     // percent
	WindSpeed         float32 `json:"wind_speed"`         // m/s
	PrecipProbability float32 `json:"precip_probability"` // 0..1
	Humidity          float32 `json:"humidity"`           // percent
	Description       string  `json:"description"`
}

// Slot identifies a UTC (day, hour) in a forecast.
type Slot struct {
	Year  int
	Month time.Month
	Day   int
	Hour  int
}

// SlotOf returns the slot containing t (converted to UTC).
func SlotOf(t time.Time) Slot {
	t = t.UTC()
	return Slot{Year: t.Year(), Month: t.Month(), Day: t.Day(), Hour: t.Hour()}
}

// Time returns the start of the slot.
func (s Slot) Time() time.Time {
	return time.Date(s.Year, s.Month, s.Day, s.Hour, 0, 0, 0, time.UTC)
}

func (s Slot) String() string {
	return s.Time().Format("2006-01-02T15Z")
}

// Bundle is a multi-day hourly forecast for one site with the site's
// sunrise and sunset.
type Bundle struct {
	Hourly  map[Slot]HourlyForecast
	Sunrise time.Time
	Sunset  time.Time
}

// At returns the forecast for the hour containing t.
func (b Bundle) At(t time.Time) (HourlyForecast, bool) {
	f, ok := b.Hourly[SlotOf(t)]
	return f, ok
}

// Horizon returns the start of the last forecast slot, or the zero time for
// an empty bundle.
func (b Bundle) Horizon() time.Time {
	var last time.Time
	for s := range b.Hourly {
		if t := s.Time(); t.After(last) {
			last = t
		}
	}
	return last
}

// Provider fetches a multi-day forecast for a coordinate.
type Provider interface {
	Forecast(ctx context.Context, lonDeg, latDeg float64) (Bundle, error)
}

// ObservingIndex scores an hour for observing; lower is better.
//
// The score is a plain sum of cloud cover (%), wind speed (m/s),
// precipitation probability (0..1) and humidity (%). The units are
// intentionally mixed: precipitation probability contributes at most 1 point
// and acts as a tie-breaker, cloud and humidity dominate. It is a ranking
// heuristic, not a probability.
func ObservingIndex(f HourlyForecast) float32 {
	return f.CloudCoverage + f.WindSpeed + f.PrecipProbability + f.Humidity
}

// IsNight reports whether a UTC hour lies outside [sunriseHour, sunsetHour].
// When the UTC sunset hour precedes the sunrise hour (sites far from
// Greenwich), the night is the interval between them.
func IsNight(hour, sunriseHour, sunsetHour int) bool {
	if sunsetHour >= sunriseHour {
		return hour > sunsetHour || hour < sunriseHour
	}
	return hour > sunsetHour && hour < sunriseHour
}

// SelectBestWindow walks the forecast hourly from the start of now's UTC
// hour to the end of the horizon and returns the night hour with the lowest
// ObservingIndex. Ties keep the earliest hour. Hours without a forecast entry
// are skipped.
func SelectBestWindow(b Bundle, now time.Time) (time.Time, HourlyForecast, error) {
	end := b.Horizon()
	if len(b.Hourly) == 0 {
		return time.Time{}, HourlyForecast{}, fmt.Errorf("%w: empty forecast", ErrNoViableWindow)
	}

	sunriseHour := b.Sunrise.UTC().Hour()
	sunsetHour := b.Sunset.UTC().Hour()

	var (
		best      time.Time
		bestF     HourlyForecast
		bestIndex float32
		found     bool
	)
	for t := now.UTC().Truncate(time.Hour); !t.After(end); t = t.Add(time.Hour) {
		if !IsNight(t.Hour(), sunriseHour, sunsetHour) {
			continue
		}
		f, ok := b.At(t)
		if !ok {
			continue
		}
		idx := ObservingIndex(f)
		if !found || idx < bestIndex {
			best, bestF, bestIndex, found = t, f, idx, true
		}
	}

	if !found {
		return time.Time{}, HourlyForecast{}, fmt.Errorf("%w: no night hour between %s and %s",
			ErrNoViableWindow, now.UTC().Truncate(time.Hour).Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return best, bestF, nil
}
