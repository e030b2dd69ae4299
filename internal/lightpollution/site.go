package lightpollution

import (
	"context"
	"fmt"
)

// Site is an observing location with its sky darkness.
type Site struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	LonDeg float64 `json:"lon_deg"` // east positive, [-180, 180]
	LatDeg float64 `json:"lat_deg"` // north positive, [-90, 90]
	Bortle int     `json:"bortle"`
	NELM   float32 `json:"nelm"` // naked-eye limiting magnitude
}

// Reading is what a light-pollution dataset reports for one coordinate.
type Reading struct {
	Bortle   int
	Radiance float32 // artificial sky brightness, mcd/m²
}

// Provider looks up sky brightness for a coordinate. Implementations return
// an error wrapping ErrOutOfRange when the coordinate is outside the dataset.
type Provider interface {
	LightPollution(ctx context.Context, lonDeg, latDeg float64) (Reading, error)
}

// ValidateCoordinates checks longitude and latitude ranges.
func ValidateCoordinates(lonDeg, latDeg float64) error {
	if lonDeg < -180 || lonDeg > 180 {
		return fmt.Errorf("%w: longitude %.6f not in [-180,180]", ErrOutOfRange, lonDeg)
	}
	if latDeg < -90 || latDeg > 90 {
		return fmt.Errorf("%w: latitude %.6f not in [-90,90]", ErrOutOfRange, latDeg)
	}
	return nil
}

// NewSite builds a site whose Bortle class comes from the provider. The
// radiance is re-classified locally so that every site uses the same table,
// whatever class the provider itself suggests.
func NewSite(ctx context.Context, p Provider, id, name string, lonDeg, latDeg float64) (Site, error) {
	if err := ValidateCoordinates(lonDeg, latDeg); err != nil {
		return Site{}, err
	}

	reading, err := p.LightPollution(ctx, lonDeg, latDeg)
	if err != nil {
		return Site{}, fmt.Errorf("light pollution lookup for site %s: %w", id, err)
	}

	bortle := BortleFromRadiance(reading.Radiance)
	if reading.Radiance <= 0 && reading.Bortle != 0 {
		// Datasets without raw radiance only report the class.
		bortle = reading.Bortle
	}

	return NewSiteWithBortle(id, name, lonDeg, latDeg, bortle)
}

// NewSiteWithBortle builds a site whose Bortle class is already known.
func NewSiteWithBortle(id, name string, lonDeg, latDeg float64, bortle int) (Site, error) {
	if err := ValidateCoordinates(lonDeg, latDeg); err != nil {
		return Site{}, err
	}
	nelm, err := NakedEyeLimitingMagnitude(bortle)
	if err != nil {
		return Site{}, fmt.Errorf("site %s: %w", id, err)
	}
	return Site{
		ID:     id,
		Name:   name,
		LonDeg: lonDeg,
		LatDeg: latDeg,
		Bortle: bortle,
		NELM:   nelm,
	}, nil
}
