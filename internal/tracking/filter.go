package tracking

import (
	"math"

	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/spatial"
)

// DecisionKind is the outcome of evaluating one position
type DecisionKind int

const (
	// Rejected positions change nothing, not even the current position
	Rejected DecisionKind = iota
	// Jitter positions update the current position only
	Jitter
	// Accepted positions produce one movement event
	Accepted
)

func (k DecisionKind) String() string {
	switch k {
	case Rejected:
		return "rejected"
	case Jitter:
		return "jitter"
	case Accepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON responses
func (k DecisionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Rejection reasons
const (
	ReasonInvalid  = "invalid_coordinates"
	ReasonAccuracy = "low_accuracy"
	ReasonStale    = "out_of_order"
)

// MovementEvent is emitted once per accepted position
type MovementEvent struct {
	Position models.Position `json:"position"`
	// Delta is the distance from the previous accepted position, 0 for the first one
	Delta float64 `json:"delta"`
	// DeltaDiscarded marks a delta too large to be real movement
	DeltaDiscarded bool `json:"deltaDiscarded"`
	// Discontinuity restarts the visible route
	Discontinuity bool `json:"discontinuity"`
}

// Decision describes what the filter did with a position
type Decision struct {
	Kind   DecisionKind   `json:"kind"`
	Reason string         `json:"reason,omitempty"`
	Event  *MovementEvent `json:"event,omitempty"`
}

// FilterConfig holds the gate thresholds in meters
type FilterConfig struct {
	MinAccuracyMeters      float64
	MinMovementMeters      float64
	MaxPlausibleStepMeters float64
	RouteJumpMeters        float64
}

// Filter gates raw positions by accuracy and movement
type Filter struct {
	cfg          FilterConfig
	lastAccepted *models.Position
	current      *models.Position
}

// NewFilter creates a filter with no history
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Evaluate runs the accuracy, ordering and movement gates on pos
func (f *Filter) Evaluate(pos models.Position) Decision {
	if !validCoordinates(pos) {
		return Decision{Kind: Rejected, Reason: ReasonInvalid}
	}
	if pos.Accuracy > f.cfg.MinAccuracyMeters {
		return Decision{Kind: Rejected, Reason: ReasonAccuracy}
	}
	if f.lastAccepted != nil && pos.Timestamp < f.lastAccepted.Timestamp {
		return Decision{Kind: Rejected, Reason: ReasonStale}
	}

	if f.lastAccepted == nil {
		f.accept(pos)
		return Decision{Kind: Accepted, Event: &MovementEvent{Position: pos}}
	}

	d := spatial.HaversineDistance(f.lastAccepted.Latitude, f.lastAccepted.Longitude, pos.Latitude, pos.Longitude)
	if d < f.cfg.MinMovementMeters {
		current := pos
		f.current = &current
		return Decision{Kind: Jitter}
	}

	// Devices without a compass get the course over ground
	if pos.Heading == nil {
		heading := spatial.Bearing(f.lastAccepted.Latitude, f.lastAccepted.Longitude, pos.Latitude, pos.Longitude)
		pos.Heading = &heading
	}

	f.accept(pos)
	return Decision{
		Kind: Accepted,
		Event: &MovementEvent{
			Position:       pos,
			Delta:          d,
			DeltaDiscarded: d >= f.cfg.MaxPlausibleStepMeters,
			Discontinuity:  d >= f.cfg.RouteJumpMeters,
		},
	}
}

func (f *Filter) accept(pos models.Position) {
	last := pos
	current := pos
	f.lastAccepted = &last
	f.current = &current
}

// Current returns the latest displayable position
func (f *Filter) Current() (models.Position, bool) {
	if f.current == nil {
		return models.Position{}, false
	}
	return *f.current, true
}

// LastAccepted returns the position distances are measured from
func (f *Filter) LastAccepted() (models.Position, bool) {
	if f.lastAccepted == nil {
		return models.Position{}, false
	}
	return *f.lastAccepted, true
}

// SetCurrent overrides the displayable position without touching movement history
func (f *Filter) SetCurrent(pos models.Position) {
	current := pos
	f.current = &current
}

// Seed makes pos the last accepted position, as if it had just passed the
// gates. Used when a persisted route is resumed.
func (f *Filter) Seed(pos models.Position) {
	f.accept(pos)
}

// Reset forgets the last accepted position so the next one starts a fresh path
func (f *Filter) Reset() {
	f.lastAccepted = nil
}

func validCoordinates(pos models.Position) bool {
	if math.IsNaN(pos.Latitude) || math.IsNaN(pos.Longitude) || math.IsNaN(pos.Accuracy) {
		return false
	}
	return pos.Latitude >= -90 && pos.Latitude <= 90 &&
		pos.Longitude >= -180 && pos.Longitude <= 180 &&
		pos.Accuracy >= 0
}
