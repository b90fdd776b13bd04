package tracking

import "math"

// Accuracy buckets
const (
	AccuracyUnknown   = "unknown"
	AccuracyExcellent = "excellent"
	AccuracyGood      = "good"
	AccuracyFair      = "fair"
	AccuracyPoor      = "poor"
)

// AccuracyStatus buckets a horizontal accuracy in meters
func AccuracyStatus(accuracy float64) string {
	switch {
	case accuracy <= 10:
		return AccuracyExcellent
	case accuracy <= 20:
		return AccuracyGood
	case accuracy <= 50:
		return AccuracyFair
	default:
		return AccuracyPoor
	}
}

// SpeedKmh converts a reported m/s speed to km/h rounded to one decimal
func SpeedKmh(speed *float64) float64 {
	if speed == nil {
		return 0
	}
	return math.Round(*speed*3.6*10) / 10
}
