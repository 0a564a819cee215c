package pipeline

// Class is the speed classification of a vehicle inside the region.
type Class string

const (
	Normal    Class = "normal"
	Warning   Class = "warning"   // above the speed limit
	Violation Class = "violation" // above the fine threshold
)

// Limits are the two classification thresholds, in km/h.
type Limits struct {
	SpeedLimit     float64
	FineSpeedLimit float64
}

// Classify compares speed against both thresholds. Equal to a threshold is
// not above it.
func Classify(speed float64, l Limits) Class {
	switch {
	case speed > l.FineSpeedLimit:
		return Violation
	case speed > l.SpeedLimit:
		return Warning
	default:
		return Normal
	}
}
