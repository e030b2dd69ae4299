package transform

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const j2000 = 2451545.0

// ErrInvalidInput is returned when a time-dependent routine receives an
// instant that is not expressed in UTC.
var ErrInvalidInput = errors.New("invalid input")

// requireUTC rejects instants whose location is not time.UTC.
func requireUTC(t time.Time) error {
	if t.Location() != time.UTC {
		return fmt.Errorf("%w: instant %s is not UTC (location %q)", ErrInvalidInput, t.Format(time.RFC3339), t.Location())
	}
	return nil
}

// JulianDay converts a UTC instant to a Julian Day (Meeus, chapter 7).
// Valid for Gregorian calendar dates; no clamping is applied.
func JulianDay(t time.Time) (float64, error) {
	if err := requireUTC(t); err != nil {
		return 0, err
	}

	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Treat Jan/Feb as months 13/14 of the previous year.
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd, nil
}

// MeanSiderealTime returns Greenwich Mean Sidereal Time in degrees [0, 360)
// for a UTC instant (Meeus eq. 12.4):
//
//	θ0 = 280.46061837 + 360.98564736629·D + 0.000387933·T² − T³/38710000
//
// where D = JD − 2451545.0 and T = D/36525.
func MeanSiderealTime(t time.Time) (float64, error) {
	jd, err := JulianDay(t)
	if err != nil {
		return 0, err
	}

	d := jd - j2000
	T := d / 36525.0

	gmst := 280.46061837 +
		360.98564736629*d +
		0.000387933*T*T -
		T*T*T/38710000.0

	return normalizeDegrees(gmst), nil
}

// LocalSiderealTime returns the local mean sidereal time in degrees [0, 360)
// for an observer at the given east-positive longitude.
func LocalSiderealTime(t time.Time, lonDeg float64) (float64, error) {
	gmst, err := MeanSiderealTime(t)
	if err != nil {
		return 0, err
	}
	return normalizeDegrees(gmst + lonDeg), nil
}

// normalizeDegrees folds an angle into [0, 360) by repeated addition or
// subtraction of a full turn. math.Mod is avoided so values that land exactly
// on a boundary stay bit-identical to published reference tables.
func normalizeDegrees(deg float64) float64 {
	for deg < 0 {
		deg += 360
	}
	// A tiny negative input can round up to exactly 360 above.
	for deg >= 360 {
		deg -= 360
	}
	return deg
}
