package tracking

import (
	"time"

	"github.com/jengzang/travel-journal-go/internal/logging"
	"github.com/jengzang/travel-journal-go/internal/models"
)

// ReasonInactive rejects positions that arrive while tracking is stopped
const ReasonInactive = "tracking_stopped"

// Config wires the tracking pipeline
type Config struct {
	Filter         FilterConfig
	MaxRoutePoints int
	SessionGap     time.Duration
	Fallback       models.Position
}

// Tracker runs positions through filter, accumulator, recorder and
// listeners. It is not safe for concurrent use; callers serialize access.
type Tracker struct {
	cfg        Config
	filter     *Filter
	recorder   *Recorder
	acc        *Accumulator
	dispatcher *Dispatcher

	session     Session
	active      bool
	onFallback  bool
	noticeShown bool
}

// NewTracker creates a stopped tracker. Accrued distance goes to sink.
func NewTracker(cfg Config, sink DistanceSink) *Tracker {
	return &Tracker{
		cfg:        cfg,
		filter:     NewFilter(cfg.Filter),
		recorder:   NewRecorder(cfg.MaxRoutePoints, ""),
		acc:        NewAccumulator(sink),
		dispatcher: NewDispatcher(),
	}
}

// Start activates tracking. When now falls outside the current session a
// new one is begun with an empty route; the bool reports that.
func (t *Tracker) Start(now time.Time) (Session, bool) {
	started := false
	if IsNewSession(t.session.ResumedAt, now, t.cfg.SessionGap) {
		t.beginSession(now)
		started = true
	} else {
		t.session.ResumedAt = now
	}
	t.active = true
	return t.session, started
}

// Stop deactivates tracking; state is kept for the next Start
func (t *Tracker) Stop() {
	t.active = false
}

// Active reports whether tracking is running
func (t *Tracker) Active() bool {
	return t.active
}

// Session returns the current session
func (t *Tracker) Session() Session {
	return t.session
}

// NewSession forces a session boundary, e.g. on day rollover
func (t *Tracker) NewSession(now time.Time) Session {
	t.beginSession(now)
	return t.session
}

// Resume restores a persisted session and its route without a boundary
// check. Movement continues from the last restored point.
func (t *Tracker) Resume(s Session, points []models.RoutePoint) {
	t.session = s
	t.recorder.Restore(s.ID, points)
	t.filter.Reset()
	if len(points) > 0 {
		t.filter.Seed(points[len(points)-1].Position())
	}
}

func (t *Tracker) beginSession(now time.Time) {
	t.session = NewSession(now)
	t.recorder.Reset(t.session.ID)
	t.filter.Reset()
	t.acc.ResetSession()
}

// Ingest evaluates pos and applies an accepted movement to the pipeline
func (t *Tracker) Ingest(pos models.Position) Decision {
	if !t.active {
		return Decision{Kind: Rejected, Reason: ReasonInactive}
	}

	d := t.filter.Evaluate(pos)
	if d.Kind != Accepted {
		return d
	}

	t.onFallback = false
	t.acc.Apply(*d.Event)
	t.recorder.Append(models.NewRoutePoint(d.Event.Position), d.Event.Discontinuity)
	t.dispatcher.Publish(d.Event.Position)
	return d
}

// Subscribe registers a movement listener
func (t *Tracker) Subscribe(l Listener) func() {
	return t.dispatcher.Subscribe(l)
}

// Recorder exposes the session route
func (t *Tracker) Recorder() *Recorder {
	return t.recorder
}

// SessionDistance is the distance accrued in the current session
func (t *Tracker) SessionDistance() float64 {
	return t.acc.SessionDistance()
}

// ErrorCode identifies a location sensor failure
type ErrorCode string

const (
	CodePermissionDenied    ErrorCode = "PERMISSION_DENIED"
	CodePositionUnavailable ErrorCode = "POSITION_UNAVAILABLE"
	CodeTimeout             ErrorCode = "TIMEOUT"
	CodeUnsupported         ErrorCode = "UNSUPPORTED"
)

// Valid reports whether c is a known code
func (c ErrorCode) Valid() bool {
	switch c {
	case CodePermissionDenied, CodePositionUnavailable, CodeTimeout, CodeUnsupported:
		return true
	}
	return false
}

// Fatal reports whether the sensor is unusable rather than temporarily failing
func (c ErrorCode) Fatal() bool {
	return c == CodePermissionDenied || c == CodeUnsupported
}

// ErrorOutcome tells the client how a sensor error was handled
type ErrorOutcome struct {
	Code     ErrorCode        `json:"code"`
	Message  string           `json:"message"`
	Notice   bool             `json:"notice"`
	Fallback *models.Position `json:"fallback,omitempty"`
}

// ReportError applies the sensor error policy. An unusable sensor switches
// the current position to the fallback coordinate and yields a one-time
// notice; transient errors keep the last good position.
func (t *Tracker) ReportError(code ErrorCode, now time.Time) ErrorOutcome {
	out := ErrorOutcome{Code: code, Message: errorMessage(code)}

	if !code.Fatal() {
		logging.Warn().Str("code", string(code)).Msg("transient location error")
		return out
	}

	fallback := t.cfg.Fallback
	fallback.Timestamp = now.UnixMilli()
	t.filter.SetCurrent(fallback)
	t.onFallback = true
	out.Fallback = &fallback

	if !t.noticeShown {
		t.noticeShown = true
		out.Notice = true
	}
	logging.Warn().Str("code", string(code)).Msg("location unavailable, using fallback position")
	return out
}

func errorMessage(code ErrorCode) string {
	switch code {
	case CodePermissionDenied:
		return "GPS permission denied. Please enable location access."
	case CodePositionUnavailable:
		return "GPS position unavailable. Trying again..."
	case CodeTimeout:
		return "GPS request timed out. Trying again..."
	case CodeUnsupported:
		return "Geolocation is not supported on this device."
	default:
		return "GPS error occurred"
	}
}

// Status is a read-only view of the tracker for display
type Status struct {
	Active          bool             `json:"active"`
	SessionID       string           `json:"sessionId"`
	Current         *models.Position `json:"current,omitempty"`
	AccuracyStatus  string           `json:"accuracyStatus"`
	SpeedKmh        float64          `json:"speedKmh"`
	OnFallback      bool             `json:"onFallback"`
	RoutePoints     int              `json:"routePoints"`
	RouteDistance   float64          `json:"routeDistance"`   // meters
	SessionDistance float64          `json:"sessionDistance"` // meters
}

// Status returns the current display state
func (t *Tracker) Status() Status {
	s := Status{
		Active:          t.active,
		SessionID:       t.session.ID,
		AccuracyStatus:  AccuracyUnknown,
		OnFallback:      t.onFallback,
		RoutePoints:     t.recorder.Len(),
		RouteDistance:   t.recorder.Distance(),
		SessionDistance: t.acc.SessionDistance(),
	}
	if cur, ok := t.filter.Current(); ok {
		s.Current = &cur
		s.AccuracyStatus = AccuracyStatus(cur.Accuracy)
		s.SpeedKmh = SpeedKmh(cur.Speed)
	}
	return s
}
