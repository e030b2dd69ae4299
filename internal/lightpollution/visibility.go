package lightpollution

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/globe"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/rise"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"

	"github.com/star/skywindow/internal/transform"
)

// Sweep parameters for the horizon check.
const (
	sweepSamples = 24
	sweepStep    = time.Hour
)

// Target is the part of a catalogued object the evaluator needs.
type Target struct {
	ID        string
	Name      string
	Coord     transform.Equatorial
	Magnitude float32 // apparent visual magnitude
}

func (t Target) label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// AlertKind classifies a visibility alert.
type AlertKind int

const (
	// AlertHorizon: the object does not rise above the horizon in the next 24 hours.
	AlertHorizon AlertKind = iota + 1
	// AlertVisibility: the object is fainter than the site's naked-eye limit.
	AlertVisibility
)

func (k AlertKind) String() string {
	switch k {
	case AlertHorizon:
		return "horizon"
	case AlertVisibility:
		return "visibility"
	default:
		return "unknown"
	}
}

// MarshalText makes alert kinds readable in persisted reports.
func (k AlertKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the output of MarshalText.
func (k *AlertKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "horizon":
		*k = AlertHorizon
	case "visibility":
		*k = AlertVisibility
	default:
		return fmt.Errorf("unknown alert kind %q", b)
	}
	return nil
}

// Alert is a single human-readable visibility warning.
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

// Verdict is the outcome of EvaluateVisibility. The horizon and brightness
// checks are independent; both alerts may be present.
type Verdict struct {
	NakedEye        bool    `json:"naked_eye"`
	Message         string  `json:"message,omitempty"`
	Alerts          []Alert `json:"alerts,omitempty"`
	PeakAltitudeDeg float64 `json:"peak_altitude_deg"`
}

// Has reports whether the verdict carries an alert of the given kind.
func (v Verdict) Has(kind AlertKind) bool {
	for _, a := range v.Alerts {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// EvaluateVisibility checks whether target rises above the horizon at site
// within 24 hourly samples starting one hour after now, and whether it is
// bright enough for the naked eye under the site's sky. now must be UTC.
func EvaluateVisibility(target Target, site Site, now time.Time) (Verdict, error) {
	peak := math.Inf(-1)
	for i := 1; i <= sweepSamples; i++ {
		at := now.Add(time.Duration(i) * sweepStep)
		hz, err := transform.EquatorialToHorizontal(target.Coord, at, site.LonDeg, site.LatDeg)
		if err != nil {
			return Verdict{}, fmt.Errorf("horizon sweep for %s: %w", target.ID, err)
		}
		peak = math.Max(peak, hz.AltitudeDeg)
	}

	v := Verdict{PeakAltitudeDeg: peak}

	if peak <= 0 {
		v.Alerts = append(v.Alerts, Alert{
			Kind:    AlertHorizon,
			Message: fmt.Sprintf("%s is not visible from %s in the next 24 hours.", target.label(), siteLabel(site)),
		})
	}

	if target.Magnitude > site.NELM {
		v.Alerts = append(v.Alerts, Alert{
			Kind:    AlertVisibility,
			Message: fmt.Sprintf("%s (magnitude %.1f) is too dim for the naked eye at %s (limit %.2f), but visible through an instrument.",
				target.label(), target.Magnitude, siteLabel(site), site.NELM),
		})
	} else {
		v.NakedEye = true
		v.Message = fmt.Sprintf("%s (magnitude %.1f) is visible to the naked eye at %s (limit %.2f).",
			target.label(), target.Magnitude, siteLabel(site), site.NELM)
	}

	return v, nil
}

func siteLabel(s Site) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// RiseSet holds approximate UT rise, transit and set times for one day.
type RiseSet struct {
	Rise        time.Time `json:"rise,omitempty"`
	Transit     time.Time `json:"transit,omitempty"`
	Set         time.Time `json:"set,omitempty"`
	Circumpolar bool      `json:"circumpolar,omitempty"` // never sets
	NeverRises  bool      `json:"never_rises,omitempty"`
}

// RiseTransitSet estimates when target rises, transits and sets at site on
// the UTC date of day (Meeus chapter 15, standard stellar altitude -0.5667°).
// Objects that stay above or below the horizon all day are flagged instead.
func RiseTransitSet(target Target, site Site, day time.Time) (RiseSet, error) {
	if day.Location() != time.UTC {
		return RiseSet{}, fmt.Errorf("%w: day %s is not UTC", transform.ErrInvalidInput, day.Format(time.RFC3339))
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	jd := julian.TimeToJD(midnight)
	th0 := sidereal.Apparent0UT(jd)

	// Meeus counts longitude positive west.
	p := globe.Coord{
		Lat: unit.AngleFromDeg(site.LatDeg),
		Lon: unit.AngleFromDeg(-site.LonDeg),
	}
	ra := unit.RAFromDeg(target.Coord.RADegrees())
	dec := unit.AngleFromDeg(target.Coord.DecDegrees())

	tRise, tTransit, tSet, err := rise.ApproxTimes(p, rise.Stdh0Stellar, th0, ra, dec)
	if err != nil {
		if !errors.Is(err, rise.ErrorCircumpolar) {
			return RiseSet{}, fmt.Errorf("rise/set for %s: %w", target.ID, err)
		}
		// Upper culmination altitude decides which side of the horizon it stays on.
		culmination := 90 - math.Abs(site.LatDeg-target.Coord.DecDegrees())
		if culmination > rise.Stdh0Stellar.Deg() {
			return RiseSet{Circumpolar: true}, nil
		}
		return RiseSet{NeverRises: true}, nil
	}

	at := func(sec unit.Time) time.Time {
		return midnight.Add(time.Duration(float64(sec) * float64(time.Second))).Truncate(time.Second)
	}
	return RiseSet{
		Rise:    at(tRise),
		Transit: at(tTransit),
		Set:     at(tSet),
	}, nil
}
