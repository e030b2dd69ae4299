// Package lightpollution maps sky brightness to the Bortle scale and decides
// whether catalogued objects can be seen from an observing site.
package lightpollution

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned for Bortle classes outside [1,8] and for
// coordinates that fall outside the light-pollution dataset.
var ErrOutOfRange = errors.New("out of range")

// Bortle class limits.
const (
	MinBortle = 1
	MaxBortle = 8
)

// radianceUpperBounds holds the inclusive upper bound of artificial sky
// brightness (mcd/m²) for Bortle classes 1 through 7. Anything brighter is 8.
var radianceUpperBounds = [...]float32{0.25, 0.275, 0.33, 0.5, 1.5, 4.0, 6.85}

// limitingMagnitudes is the naked-eye limiting magnitude for Bortle 1 through 8.
var limitingMagnitudes = [...]float32{7.8, 7.3, 6.8, 6.3, 5.8, 5.5, 5.0, 4.25}

// BortleFromRadiance classifies artificial sky brightness in mcd/m².
// A value exactly on a boundary belongs to the darker class.
func BortleFromRadiance(mcdPerM2 float32) int {
	for i, upper := range radianceUpperBounds {
		if mcdPerM2 <= upper {
			return i + 1
		}
	}
	return MaxBortle
}

// NakedEyeLimitingMagnitude returns the faintest magnitude visible without
// optical aid under the given Bortle class.
func NakedEyeLimitingMagnitude(bortle int) (float32, error) {
	if bortle < MinBortle || bortle > MaxBortle {
		return 0, fmt.Errorf("%w: bortle %d not in [%d,%d]", ErrOutOfRange, bortle, MinBortle, MaxBortle)
	}
	return limitingMagnitudes[bortle-1], nil
}
