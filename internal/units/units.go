// Package units provides shared constants and conversion for speed units.
//
// The calibrated scaling factor produces km/h, so every speed that flows
// through the pipeline is km/h until it is converted for display.
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// FromKMPH converts a pipeline speed (km/h) to the target units. Unknown
// units leave the value in km/h.
func FromKMPH(speedKMPH float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedKMPH / 3.6
	case MPH:
		return speedKMPH * 0.621371192237334
	default:
		return speedKMPH
	}
}

// Label returns the human-readable suffix used on overlays and charts.
func Label(unit string) string {
	switch unit {
	case MPS:
		return "m/s"
	case MPH:
		return "mph"
	default:
		return "km/h"
	}
}

// Format renders a km/h speed in the target units with two decimals.
func Format(speedKMPH float64, targetUnits string) string {
	return fmt.Sprintf("%.2f %s", FromKMPH(speedKMPH, targetUnits), Label(targetUnits))
}
