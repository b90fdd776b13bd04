package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// One degree of latitude on the mean sphere.
	assert.InDelta(t, MetersPerDegree, HaversineDistance(0, 0, 1, 0), 0.001)
	assert.Zero(t, HaversineDistance(10, 20, 10, 20))

	// Paris to London, roughly 343 km.
	d := HaversineDistance(48.8566, 2.3522, 51.5074, -0.1278)
	assert.InDelta(t, 343_500, d, 1_500)
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0, Bearing(0, 0, 1, 0), 1e-9)
	assert.InDelta(t, 90, Bearing(0, 0, 0, 1), 1e-9)
	assert.InDelta(t, 180, Bearing(1, 0, 0, 0), 1e-9)
	assert.InDelta(t, 270, Bearing(0, 1, 0, 0), 1e-9)
}

func TestDestinationPointRoundTrip(t *testing.T) {
	lat, lng := DestinationPoint(-20.1769, 57.4672, 45, 1000)
	assert.InDelta(t, 1000, HaversineDistance(-20.1769, 57.4672, lat, lng), 0.01)
}

func TestPathLength(t *testing.T) {
	assert.Zero(t, PathLength(nil))
	assert.Zero(t, PathLength(orb.LineString{{0, 0}}))

	line := orb.LineString{{0, 0}, {0, 1}, {0, 2}}
	assert.InDelta(t, 2*MetersPerDegree, PathLength(line), 0.01)
}

func TestMetersToDegrees(t *testing.T) {
	assert.InDelta(t, 1, MetersToDegrees(MetersPerDegree), 1e-12)
}
