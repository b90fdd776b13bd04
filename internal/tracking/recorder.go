package tracking

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"

	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/spatial"
)

// Recorder keeps the visible route of one tracking session.
// The route is bounded: once full, the oldest point is evicted.
type Recorder struct {
	maxPoints int
	sessionID string
	points    []models.RoutePoint
}

// NewRecorder creates an empty route for sessionID
func NewRecorder(maxPoints int, sessionID string) *Recorder {
	if maxPoints <= 0 {
		maxPoints = 200
	}
	return &Recorder{
		maxPoints: maxPoints,
		sessionID: sessionID,
		points:    make([]models.RoutePoint, 0, maxPoints),
	}
}

// Append adds p to the route. A discontinuity clears the route first so no
// segment is drawn across the jump.
func (r *Recorder) Append(p models.RoutePoint, discontinuity bool) {
	if discontinuity {
		r.points = r.points[:0]
	}
	r.points = append(r.points, p)
	if over := len(r.points) - r.maxPoints; over > 0 {
		r.points = append(r.points[:0], r.points[over:]...)
	}
}

// Reset empties the route and binds it to a new session
func (r *Recorder) Reset(sessionID string) {
	r.sessionID = sessionID
	r.points = r.points[:0]
}

// Restore replaces the route with previously persisted points of the same session
func (r *Recorder) Restore(sessionID string, points []models.RoutePoint) {
	r.Reset(sessionID)
	if len(points) > r.maxPoints {
		points = points[len(points)-r.maxPoints:]
	}
	r.points = append(r.points, points...)
}

// SessionID returns the session the route belongs to
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Len returns the number of points in the route
func (r *Recorder) Len() int {
	return len(r.points)
}

// Points returns a copy of the route
func (r *Recorder) Points() []models.RoutePoint {
	out := make([]models.RoutePoint, len(r.points))
	copy(out, r.points)
	return out
}

// LineString returns the route as [lng, lat] pairs
func (r *Recorder) LineString() orb.LineString {
	ls := make(orb.LineString, len(r.points))
	for i, p := range r.points {
		ls[i] = orb.Point{p.Longitude, p.Latitude}
	}
	return ls
}

// Distance returns the route length in meters
func (r *Recorder) Distance() float64 {
	return spatial.PathLength(r.LineString())
}

// Simplified returns the route reduced with Douglas-Peucker.
// A non-positive tolerance returns the full line.
func (r *Recorder) Simplified(toleranceMeters float64) orb.LineString {
	ls := r.LineString()
	if toleranceMeters <= 0 || len(ls) < 3 {
		return ls
	}
	s := simplify.DouglasPeucker(spatial.MetersToDegrees(toleranceMeters)).Simplify(ls.Clone())
	if out, ok := s.(orb.LineString); ok {
		return out
	}
	return ls
}

// Feature exports the route as a GeoJSON LineString feature, nil when the
// route has fewer than two points
func (r *Recorder) Feature(now time.Time, toleranceMeters float64) *geojson.Feature {
	if len(r.points) < 2 {
		return nil
	}

	f := geojson.NewFeature(r.Simplified(toleranceMeters))
	f.Properties["distance"] = r.Distance()
	f.Properties["timestamp"] = now.UnixMilli()
	f.Properties["sessionId"] = r.sessionID
	f.Properties["points"] = len(r.points)
	return f
}
