package weather

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// WithSunTimes returns b with sunrise and sunset filled in for the UTC date
// of day when the provider left them empty. During polar day or night the
// computed times are zero and b is returned unchanged.
func WithSunTimes(b Bundle, lonDeg, latDeg float64, day time.Time) Bundle {
	if !b.Sunrise.IsZero() && !b.Sunset.IsZero() {
		return b
	}
	day = day.UTC()
	rise, set := sunrise.SunriseSunset(latDeg, lonDeg, day.Year(), day.Month(), day.Day())
	if rise.IsZero() || set.IsZero() {
		return b
	}
	b.Sunrise = rise.UTC()
	b.Sunset = set.UTC()
	return b
}
