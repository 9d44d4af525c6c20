// Package units converts Strava distances into challenge miles.
package units

import (
	"math"
	"strings"
)

const (
	// MilesPerMeter matches the factor used for all displayed distances
	MilesPerMeter = 0.000621371

	// WheeledFactor is how many wheeled miles count as one challenge mile
	WheeledFactor = 3.33
)

// wheeledCategories are the lowercased Strava types that get the cycling conversion
var wheeledCategories = map[string]bool{
	"ride":             true,
	"cycling":          true,
	"virtualride":      true,
	"ebikeride":        true,
	"mountainbikeride": true,
	"gravelride":       true,
}

// ActivityMiles holds the raw and challenge distance for one activity
type ActivityMiles struct {
	RawMiles       float64
	ConvertedMiles float64
	IsWheeled      bool
}

// MetersToMiles converts meters to miles without rounding.
// Negative and NaN inputs contribute nothing.
func MetersToMiles(meters float64) float64 {
	if math.IsNaN(meters) || meters <= 0 {
		return 0
	}
	return meters * MilesPerMeter
}

// IsWheeled reports whether a category gets the cycling conversion
func IsWheeled(category string) bool {
	return wheeledCategories[strings.ToLower(strings.TrimSpace(category))]
}

// ConvertedMiles applies the category conversion to a raw mileage
func ConvertedMiles(rawMiles float64, category string) float64 {
	if IsWheeled(category) {
		return rawMiles / WheeledFactor
	}
	return rawMiles
}

// ForActivity computes the miles for an activity's distance and category
func ForActivity(meters float64, category string) ActivityMiles {
	raw := MetersToMiles(meters)
	return ActivityMiles{
		RawMiles:       raw,
		ConvertedMiles: ConvertedMiles(raw, category),
		IsWheeled:      IsWheeled(category),
	}
}
