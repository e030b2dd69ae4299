package transform

import (
	"math"
	"time"
)

// Horizontal is an altitude/azimuth position for one observer at one instant.
type Horizontal struct {
	AltitudeDeg float64 // 0 = horizon, 90 = zenith
	AzimuthDeg  float64 // 0 = North, 90 = East, clockwise, [0, 360)

	Instant time.Time
	LonDeg  float64 // observer longitude, east positive
	LatDeg  float64 // observer latitude, north positive
}

// AboveHorizon reports whether the position has positive altitude.
func (h Horizontal) AboveHorizon() bool {
	return h.AltitudeDeg > 0
}

// EquatorialToHorizontal converts an equatorial position to altitude and
// azimuth for an observer at (lonDeg, latDeg) at the UTC instant t.
// Longitude is east positive.
//
// Azimuth is reckoned from North through East. Meeus (eq. 13.5) measures
// azimuth from South; the two differ by exactly 180°.
func EquatorialToHorizontal(eq Equatorial, t time.Time, lonDeg, latDeg float64) (Horizontal, error) {
	lst, err := LocalSiderealTime(t, lonDeg)
	if err != nil {
		return Horizontal{}, err
	}

	// Local hour angle.
	H := degToRad(lst - eq.RADegrees())
	dec := degToRad(eq.DecDegrees())
	lat := degToRad(latDeg)

	sinDec, cosDec := math.Sincos(dec)
	sinLat, cosLat := math.Sincos(lat)
	sinH, cosH := math.Sincos(H)

	sinAlt := sinDec*sinLat + cosDec*cosLat*cosH
	// Clamp float drift at the zenith/nadir.
	sinAlt = math.Max(-1, math.Min(1, sinAlt))
	alt := math.Asin(sinAlt)

	// North-based azimuth from both components so the quadrant is never
	// ambiguous near H = 90° or 270°.
	y := -cosDec * sinH
	x := sinDec*cosLat - cosDec*sinLat*cosH
	az := normalizeDegrees(radToDeg(math.Atan2(y, x)))

	return Horizontal{
		AltitudeDeg: radToDeg(alt),
		AzimuthDeg:  az,
		Instant:     t,
		LonDeg:      lonDeg,
		LatDeg:      latDeg,
	}, nil
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
