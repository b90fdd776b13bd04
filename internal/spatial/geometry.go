package spatial

import (
	"github.com/paulmach/orb"
)

// PathLength calculates the total length of a [lng, lat] line in meters
func PathLength(line orb.LineString) float64 {
	if len(line) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(line); i++ {
		total += HaversineDistance(line[i-1].Lat(), line[i-1].Lon(), line[i].Lat(), line[i].Lon())
	}
	return total
}

// MetersToDegrees approximates a ground distance as degrees of arc.
// Used for planar tolerances such as Douglas-Peucker epsilon.
func MetersToDegrees(meters float64) float64 {
	return meters / MetersPerDegree
}
