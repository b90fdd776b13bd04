package models

// Position is a single location sample as reported by the device
type Position struct {
	Latitude  float64  `json:"lat" binding:"gte=-90,lte=90"`
	Longitude float64  `json:"lng" binding:"gte=-180,lte=180"`
	Accuracy  float64  `json:"accuracy" binding:"gte=0"`                  // meters
	Altitude  *float64 `json:"altitude,omitempty"`                        // meters
	Heading   *float64 `json:"heading,omitempty"`                         // degrees
	Speed     *float64 `json:"speed,omitempty" binding:"omitempty,gte=0"` // m/s
	Timestamp int64    `json:"timestamp" binding:"gte=0"`                 // Unix milliseconds
}

// RoutePoint is a position accepted into the visible route
type RoutePoint struct {
	Latitude  float64  `json:"lat" db:"lat"`
	Longitude float64  `json:"lng" db:"lng"`
	Altitude  *float64 `json:"altitude,omitempty" db:"altitude"`
	Speed     *float64 `json:"speed,omitempty" db:"speed"`
	Accuracy  *float64 `json:"accuracy,omitempty" db:"accuracy"`
	Timestamp int64    `json:"timestamp" db:"timestamp"` // Unix milliseconds

	// SegmentStart marks the first point after a session start or a route jump
	SegmentStart bool `json:"-" db:"segment_start"`
	// ReceivedAt is the server time the point was accepted, Unix milliseconds
	ReceivedAt int64 `json:"-" db:"received_at"`
}

// NewRoutePoint copies the fields a route keeps from a position
func NewRoutePoint(p Position) RoutePoint {
	accuracy := p.Accuracy
	return RoutePoint{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Altitude:  p.Altitude,
		Speed:     p.Speed,
		Accuracy:  &accuracy,
		Timestamp: p.Timestamp,
	}
}

// Position converts a route point back into the position it was recorded from
func (p RoutePoint) Position() Position {
	pos := Position{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Altitude:  p.Altitude,
		Speed:     p.Speed,
		Timestamp: p.Timestamp,
	}
	if p.Accuracy != nil {
		pos.Accuracy = *p.Accuracy
	}
	return pos
}

// PositionBatch is the request body for position ingestion
type PositionBatch struct {
	Positions []Position `json:"positions" binding:"required,min=1,max=500,dive"`
}
