package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// HMS is a right ascension in hours, minutes and seconds of time.
type HMS struct {
	H, M int
	S    float64
}

// DMS is a declination in degrees, minutes and seconds of arc.
// Neg carries the sign so that -0°30' is representable.
type DMS struct {
	Neg  bool
	D, M int
	S    float64
}

// Equatorial is a fixed position on the celestial sphere.
type Equatorial struct {
	RA  HMS
	Dec DMS
}

// RAHours returns right ascension as decimal hours mapped into [0, 24).
func (e Equatorial) RAHours() float64 {
	h := float64(e.RA.H) + float64(e.RA.M)/60.0 + e.RA.S/3600.0
	for h < 0 {
		h += 24
	}
	for h >= 24 {
		h -= 24
	}
	return h
}

// RADegrees returns right ascension in decimal degrees [0, 360).
func (e Equatorial) RADegrees() float64 {
	return e.RAHours() * 15.0
}

// DecDegrees returns declination in decimal degrees.
func (e Equatorial) DecDegrees() float64 {
	d := float64(e.Dec.D) + float64(e.Dec.M)/60.0 + e.Dec.S/3600.0
	if e.Dec.Neg {
		return -d
	}
	return d
}

// String formats the position as "23h09m16.64s -06°43'11.6"".
func (e Equatorial) String() string {
	sign := "+"
	if e.Dec.Neg {
		sign = "-"
	}
	return fmt.Sprintf("%02dh%02dm%05.2fs %s%02d°%02d'%04.1f\"",
		e.RA.H, e.RA.M, e.RA.S, sign, e.Dec.D, e.Dec.M, e.Dec.S)
}

// EquatorialFromDegrees builds an Equatorial from decimal RA and Dec degrees.
func EquatorialFromDegrees(raDeg, decDeg float64) Equatorial {
	hours := normalizeDegrees(raDeg) / 15.0
	h, m, s := split(hours)

	neg := decDeg < 0
	d, dm, ds := split(math.Abs(decDeg))

	return Equatorial{
		RA:  HMS{H: h, M: m, S: s},
		Dec: DMS{Neg: neg, D: d, M: dm, S: ds},
	}
}

// split breaks a non-negative decimal value into whole units, minutes and
// seconds.
func split(v float64) (int, int, float64) {
	whole := math.Floor(v)
	rem := (v - whole) * 60
	min := math.Floor(rem)
	sec := (rem - min) * 60
	return int(whole), int(min), sec
}

// ParseRA parses right ascension written as "23h09m16.641s", "23:09:16.641",
// "23 09 16.641" or as decimal hours ("23.1546").
func ParseRA(s string) (HMS, error) {
	fields := sexagesimalFields(s, "hms")
	switch len(fields) {
	case 1:
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return HMS{}, fmt.Errorf("parsing right ascension %q: %w", s, err)
		}
		if v < 0 || v >= 24 {
			return HMS{}, fmt.Errorf("right ascension %q outside [0,24) hours", s)
		}
		h, m, sec := split(v)
		return HMS{H: h, M: m, S: sec}, nil
	case 2, 3:
		parts, err := parseParts(fields)
		if err != nil {
			return HMS{}, fmt.Errorf("parsing right ascension %q: %w", s, err)
		}
		ra := HMS{H: int(parts[0]), M: int(parts[1]), S: parts[2]}
		if ra.H < 0 || ra.H >= 24 || ra.M < 0 || ra.M >= 60 || ra.S < 0 || ra.S >= 60 {
			return HMS{}, fmt.Errorf("right ascension %q out of range", s)
		}
		return ra, nil
	default:
		return HMS{}, fmt.Errorf("malformed right ascension %q", s)
	}
}

// ParseDec parses declination written as "-6°43'11.61\"", "-06:43:11.61",
// "-6 43 11.61", "-6d43m11.61s" or as decimal degrees ("-6.7199").
func ParseDec(s string) (DMS, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-") || strings.HasPrefix(s, "−")
	s = strings.TrimLeft(s, "+-−")

	fields := sexagesimalFields(s, "dms°'\"′″")
	var dec DMS
	switch len(fields) {
	case 1:
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return DMS{}, fmt.Errorf("parsing declination %q: %w", s, err)
		}
		d, m, sec := split(v)
		dec = DMS{D: d, M: m, S: sec}
	case 2, 3:
		parts, err := parseParts(fields)
		if err != nil {
			return DMS{}, fmt.Errorf("parsing declination %q: %w", s, err)
		}
		dec = DMS{D: int(parts[0]), M: int(parts[1]), S: parts[2]}
		if dec.M < 0 || dec.M >= 60 || dec.S < 0 || dec.S >= 60 {
			return DMS{}, fmt.Errorf("declination %q out of range", s)
		}
	default:
		return DMS{}, fmt.Errorf("malformed declination %q", s)
	}

	dec.Neg = neg
	if math.Abs(Equatorial{Dec: dec}.DecDegrees()) > 90 {
		return DMS{}, fmt.Errorf("declination %q outside [-90,90] degrees", s)
	}
	return dec, nil
}

// sexagesimalFields replaces unit markers and colons with spaces and splits
// the remainder.
func sexagesimalFields(s, markers string) []string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if r == ':' || strings.ContainsRune(markers, r) {
			return ' '
		}
		return r
	}, s)
	return strings.Fields(s)
}

// parseParts parses two or three numeric fields; a missing seconds field is 0.
func parseParts(fields []string) ([3]float64, error) {
	var out [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return out, err
		}
		if i < 2 && v != math.Trunc(v) {
			return out, fmt.Errorf("field %q must be a whole number", f)
		}
		out[i] = v
	}
	return out, nil
}
