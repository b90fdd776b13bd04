package tracking

// DistanceSink receives accrued distance in meters
type DistanceSink interface {
	AddDistance(meters float64)
}

// Accumulator turns movement events into accrued distance
type Accumulator struct {
	sink    DistanceSink
	session float64
}

// NewAccumulator forwards accrued distance to sink, which may be nil
func NewAccumulator(sink DistanceSink) *Accumulator {
	return &Accumulator{sink: sink}
}

// Apply accrues the event's delta unless it was discarded and returns the
// amount accrued. Applying the same event twice counts it twice.
func (a *Accumulator) Apply(ev MovementEvent) float64 {
	if ev.DeltaDiscarded || ev.Delta <= 0 {
		return 0
	}
	a.session += ev.Delta
	if a.sink != nil {
		a.sink.AddDistance(ev.Delta)
	}
	return ev.Delta
}

// SessionDistance is the distance accrued since the last ResetSession
func (a *Accumulator) SessionDistance() float64 {
	return a.session
}

// ResetSession zeroes the session total
func (a *Accumulator) ResetSession() {
	a.session = 0
}
