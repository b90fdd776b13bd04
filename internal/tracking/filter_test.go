package tracking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/spatial"
)

var defaultFilterConfig = FilterConfig{
	MinAccuracyMeters:      50,
	MinMovementMeters:      5,
	MaxPlausibleStepMeters: 200,
	RouteJumpMeters:        500,
}

// pos returns a position meters north of the origin.
func pos(meters, accuracy float64, ts int64) models.Position {
	lat, lng := spatial.DestinationPoint(0, 0, 0, meters)
	return models.Position{Latitude: lat, Longitude: lng, Accuracy: accuracy, Timestamp: ts}
}

func TestFilterFirstPositionAccepted(t *testing.T) {
	f := NewFilter(defaultFilterConfig)

	d := f.Evaluate(pos(0, 10, 1))
	require.Equal(t, Accepted, d.Kind)
	require.NotNil(t, d.Event)
	assert.Zero(t, d.Event.Delta)
	assert.False(t, d.Event.DeltaDiscarded)
	assert.False(t, d.Event.Discontinuity)

	last, ok := f.LastAccepted()
	require.True(t, ok)
	assert.Equal(t, int64(1), last.Timestamp)
}

func TestFilterAccuracyGate(t *testing.T) {
	f := NewFilter(defaultFilterConfig)
	f.Evaluate(pos(0, 10, 1))

	d := f.Evaluate(pos(100, 51, 2))
	assert.Equal(t, Rejected, d.Kind)
	assert.Equal(t, ReasonAccuracy, d.Reason)
	assert.Nil(t, d.Event)

	cur, _ := f.Current()
	assert.Equal(t, int64(1), cur.Timestamp, "rejected position must not become current")
	last, _ := f.LastAccepted()
	assert.Equal(t, int64(1), last.Timestamp)

	// Exactly at the limit passes.
	assert.Equal(t, Accepted, f.Evaluate(pos(100, 50, 3)).Kind)
}

func TestFilterMovementGate(t *testing.T) {
	f := NewFilter(defaultFilterConfig)
	f.Evaluate(pos(0, 10, 1))

	d := f.Evaluate(pos(3, 10, 2))
	assert.Equal(t, Jitter, d.Kind)
	assert.Nil(t, d.Event)

	cur, ok := f.Current()
	require.True(t, ok)
	assert.Equal(t, int64(2), cur.Timestamp)
	last, _ := f.LastAccepted()
	assert.Equal(t, int64(1), last.Timestamp)
}

func TestFilterPlausibilityThresholdsAreIndependent(t *testing.T) {
	f := NewFilter(defaultFilterConfig)
	f.Evaluate(pos(0, 10, 1))

	d := f.Evaluate(pos(300, 10, 2))
	require.Equal(t, Accepted, d.Kind)
	assert.InDelta(t, 300, d.Event.Delta, 0.01)
	assert.True(t, d.Event.DeltaDiscarded)
	assert.False(t, d.Event.Discontinuity)

	d = f.Evaluate(pos(900, 10, 3))
	require.Equal(t, Accepted, d.Kind)
	assert.True(t, d.Event.DeltaDiscarded)
	assert.True(t, d.Event.Discontinuity)

	d = f.Evaluate(pos(950, 10, 4))
	require.Equal(t, Accepted, d.Kind)
	assert.False(t, d.Event.DeltaDiscarded)
	assert.False(t, d.Event.Discontinuity)
}

func TestFilterRejectsOutOfOrderAndInvalid(t *testing.T) {
	f := NewFilter(defaultFilterConfig)
	f.Evaluate(pos(0, 10, 100))

	d := f.Evaluate(pos(50, 10, 99))
	assert.Equal(t, Rejected, d.Kind)
	assert.Equal(t, ReasonStale, d.Reason)

	// Duplicate timestamps are evaluated normally.
	assert.Equal(t, Accepted, f.Evaluate(pos(50, 10, 100)).Kind)

	d = f.Evaluate(models.Position{Latitude: math.NaN(), Longitude: 0, Accuracy: 5, Timestamp: 200})
	assert.Equal(t, ReasonInvalid, d.Reason)
	d = f.Evaluate(models.Position{Latitude: 91, Longitude: 0, Accuracy: 5, Timestamp: 200})
	assert.Equal(t, ReasonInvalid, d.Reason)
}

func TestFilterReset(t *testing.T) {
	f := NewFilter(defaultFilterConfig)
	f.Evaluate(pos(0, 10, 1))
	f.Reset()

	_, ok := f.LastAccepted()
	assert.False(t, ok)

	d := f.Evaluate(pos(1000, 10, 2))
	require.Equal(t, Accepted, d.Kind)
	assert.Zero(t, d.Event.Delta)
}

func TestDecisionKindString(t *testing.T) {
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "jitter", Jitter.String())
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "unknown", DecisionKind(42).String())

	text, err := Accepted.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "accepted", string(text))
}

func TestFilterDerivesMissingHeading(t *testing.T) {
	f := NewFilter(defaultFilterConfig)
	f.Evaluate(pos(0, 10, 1))

	d := f.Evaluate(pos(50, 10, 2))
	require.NotNil(t, d.Event.Position.Heading)
	assert.InDelta(t, 0, *d.Event.Position.Heading, 1e-6)

	reported := 123.0
	p := pos(100, 10, 3)
	p.Heading = &reported
	d = f.Evaluate(p)
	assert.Equal(t, 123.0, *d.Event.Position.Heading)
}

func TestFilterSeedMeasuresFromSeededPosition(t *testing.T) {
	f := NewFilter(defaultFilterConfig)
	f.Seed(pos(100, 10, 5))

	last, ok := f.LastAccepted()
	require.True(t, ok)
	assert.Equal(t, int64(5), last.Timestamp)

	d := f.Evaluate(pos(90, 10, 4))
	assert.Equal(t, Rejected, d.Kind)
	assert.Equal(t, ReasonStale, d.Reason)

	d = f.Evaluate(pos(130, 10, 6))
	require.Equal(t, Accepted, d.Kind)
	assert.InDelta(t, 30, d.Event.Delta, 0.01)
}
