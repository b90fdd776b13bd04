package service

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/jengzang/travel-journal-go/internal/achievement"
	"github.com/jengzang/travel-journal-go/internal/logging"
	"github.com/jengzang/travel-journal-go/internal/metrics"
	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/progression"
	"github.com/jengzang/travel-journal-go/internal/repository"
	"github.com/jengzang/travel-journal-go/internal/scheduler"
	"github.com/jengzang/travel-journal-go/internal/tracking"
)

// JournalConfig holds the per-user pipeline settings
type JournalConfig struct {
	Tracking    tracking.Config
	Progression progression.Config
	Location    *time.Location
}

// Journal owns one user's tracker, stats and achievements. All operations
// are serialized by a mutex.
type Journal struct {
	userID string
	cfg    JournalConfig
	stores Stores
	writer *Writer
	live   Broadcaster
	clock  scheduler.Clock

	mu        sync.Mutex
	tracker   *tracking.Tracker
	agg       *progression.Aggregator
	evaluator *achievement.Evaluator
	steps     *tracking.StepDetector
	visited   map[string]bool
}

// RouteView is the current session route
type RouteView struct {
	SessionID string              `json:"sessionId"`
	Points    []models.RoutePoint `json:"points"`
	Distance  float64             `json:"distance"` // meters
}

// loadJournal restores a user's state from the stores. Read failures are
// logged and the journal starts from defaults.
func loadJournal(userID string, cfg JournalConfig, stores Stores, writer *Writer, live Broadcaster, clock scheduler.Clock) *Journal {
	if live == nil {
		live = noopBroadcaster{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	j := &Journal{
		userID:  userID,
		cfg:     cfg,
		stores:  stores,
		writer:  writer,
		live:    live,
		clock:   clock,
		steps:   tracking.NewStepDetector(),
		visited: make(map[string]bool),
	}

	now := j.now()
	today := tracking.DateKey(now)
	log := logging.With().Str("user", userID).Logger()

	prog, err := stores.Stats.GetProgression(userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		j.agg = progression.New(cfg.Progression, today)
	case err != nil:
		log.Error().Err(err).Msg("failed to load progression, starting fresh")
		j.agg = progression.New(cfg.Progression, today)
	default:
		daily := models.DailyStats{Date: prog.LastResetDate}
		if prog.LastResetDate != "" {
			if saved, err := stores.Stats.GetDaily(userID, prog.LastResetDate); err == nil {
				daily = *saved
			} else if !errors.Is(err, repository.ErrNotFound) {
				log.Error().Err(err).Msg("failed to load daily stats")
			}
		}
		j.agg = progression.Restore(cfg.Progression, daily, *prog)
	}

	states, err := stores.Achievements.List(userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load achievements")
	}
	j.evaluator = achievement.NewEvaluator(j.agg, j.agg, states)
	j.evaluator.SetClock(j.now)

	visits, err := stores.Visits.List(userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load visits")
	}
	for _, v := range visits {
		j.visited[v.HotspotID] = true
	}

	j.tracker = tracking.NewTracker(cfg.Tracking, j.agg)
	j.restoreSession(now)

	j.tracker.Subscribe(tracking.ListenerFunc(j.onMovement))
	j.agg.Observe(progression.ObserverFunc(j.onStatsEvent))

	if j.agg.NeedsReset(today) {
		j.agg.ResetDaily(today)
	}
	return j
}

// restoreSession resumes the last stored session if it has not expired.
// Expiry is measured from the server time the last point was received.
func (j *Journal) restoreSession(now time.Time) {
	sessionID, received, err := j.stores.Routes.GetLatestSession(j.userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logging.Error().Err(err).Str("user", j.userID).Msg("failed to load latest session")
		}
		return
	}

	last := time.UnixMilli(received).In(j.cfg.Location)
	if tracking.IsNewSession(last, now, j.cfg.Tracking.SessionGap) {
		return
	}

	points, err := j.stores.Routes.GetSessionPoints(j.userID, sessionID, j.cfg.Tracking.MaxRoutePoints)
	if err != nil {
		logging.Error().Err(err).Str("user", j.userID).Msg("failed to load session route")
		return
	}
	j.tracker.Resume(tracking.Session{ID: sessionID, StartedAt: last, ResumedAt: last}, points)
}

func (j *Journal) now() time.Time {
	return j.clock.Now().In(j.cfg.Location)
}

// UserID returns the owner of the journal
func (j *Journal) UserID() string {
	return j.userID
}

// Start begins tracking, opening a new session when the previous one expired
func (j *Journal) Start() (tracking.Session, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	session, started := j.tracker.Start(j.now())
	if started {
		logging.Info().Str("user", j.userID).Str("session", session.ID).Msg("tracking session started")
		j.live.Publish(j.userID, KindSession, session)
	}
	return session, started
}

// Stop pauses tracking
func (j *Journal) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tracker.Stop()
}

// IngestPositions runs a batch of positions through the pipeline in order
func (j *Journal) IngestPositions(positions []models.Position) ([]tracking.Decision, error) {
	if len(positions) == 0 {
		return nil, ErrInvalidPosition
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	decisions := make([]tracking.Decision, len(positions))
	for i, p := range positions {
		d := j.tracker.Ingest(p)
		metrics.PositionsProcessed.WithLabelValues(d.Kind.String()).Inc()
		if d.Event != nil {
			if !d.Event.DeltaDiscarded {
				metrics.DistanceAccrued.Add(d.Event.Delta)
			}
			if d.Event.Discontinuity {
				metrics.RouteDiscontinuities.Inc()
			}
		}
		decisions[i] = d
	}
	return decisions, nil
}

// onMovement runs under j.mu from tracker.Ingest
func (j *Journal) onMovement(pos models.Position) {
	if pos.Altitude != nil {
		j.agg.UpdateAltitude(*pos.Altitude)
	}

	sessionID := j.tracker.Session().ID
	point := models.NewRoutePoint(pos)
	// A one-point route was just started or cleared by a jump
	point.SegmentStart = j.tracker.Recorder().Len() == 1
	point.ReceivedAt = j.now().UnixMilli()
	j.enqueue("route_point", func() error {
		return j.stores.Routes.SavePoint(j.userID, sessionID, point)
	})
	j.live.Publish(j.userID, KindMovement, pos)
}

// onStatsEvent runs under j.mu whenever the aggregator changes
func (j *Journal) onStatsEvent(ev progression.Event) {
	switch ev.Kind {
	case progression.EventLevelUp:
		metrics.LevelUps.Inc()
		j.live.Publish(j.userID, KindLevelUp, ev.Snapshot.Progression)
	case progression.EventDailyReset:
		j.live.Publish(j.userID, KindDailyReset, ev.Snapshot.Daily)
	}

	changed, unlocked := j.evaluator.Evaluate()
	for _, a := range changed {
		state := achievement.State(a)
		j.enqueue("achievement", func() error {
			return j.stores.Achievements.Save(j.userID, state)
		})
	}
	for _, a := range unlocked {
		metrics.AchievementsUnlocked.WithLabelValues(a.ID).Inc()
		j.live.Publish(j.userID, KindAchievement, a)
	}

	// Rewards may have changed the state since ev was taken
	snap := j.agg.Snapshot()
	j.persistStats(snap)
	if ev.Kind == progression.EventStatsChanged {
		j.live.Publish(j.userID, KindStats, snap)
	}
}

func (j *Journal) persistStats(snap models.StatsSnapshot) {
	j.enqueue("daily_stats", func() error {
		return j.stores.Stats.SaveDaily(j.userID, snap.Daily)
	})
	j.enqueue("progression", func() error {
		return j.stores.Stats.SaveProgression(j.userID, snap.Progression)
	})
}

func (j *Journal) enqueue(name string, run func() error) {
	if j.writer == nil {
		return
	}
	j.writer.Enqueue(Job{Name: name, UserID: j.userID, Run: run})
}

// ReportError applies the sensor error policy
func (j *Journal) ReportError(code tracking.ErrorCode) (tracking.ErrorOutcome, error) {
	if !code.Valid() {
		return tracking.ErrorOutcome{}, ErrUnknownErrorCode
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	metrics.LocationErrors.WithLabelValues(string(code)).Inc()
	out := j.tracker.ReportError(code, j.now())
	if out.Notice {
		j.live.Publish(j.userID, KindNotice, out)
	}
	return out, nil
}

// Status returns the tracker display state
func (j *Journal) Status() tracking.Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tracker.Status()
}

// Route returns the current session route
func (j *Journal) Route() RouteView {
	j.mu.Lock()
	defer j.mu.Unlock()

	r := j.tracker.Recorder()
	return RouteView{
		SessionID: r.SessionID(),
		Points:    r.Points(),
		Distance:  r.Distance(),
	}
}

// RouteFeature exports the route as GeoJSON, nil with fewer than two points
func (j *Journal) RouteFeature(toleranceMeters float64) *geojson.Feature {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tracker.Recorder().Feature(j.now(), toleranceMeters)
}

// AddSteps records n steps
func (j *Journal) AddSteps(n int) models.StatsSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n > 0 {
		metrics.StepsDetected.Add(float64(n))
		j.agg.AddSteps(n)
	}
	return j.agg.Snapshot()
}

// FeedMotion runs accelerometer samples through the step detector and
// records each detected step
func (j *Journal) FeedMotion(samples []tracking.MotionSample) int {
	j.mu.Lock()
	defer j.mu.Unlock()

	steps := 0
	for _, s := range samples {
		if j.steps.Feed(s) {
			steps++
			j.agg.AddSteps(1)
		}
	}
	metrics.StepsDetected.Add(float64(steps))
	return steps
}

// Visit marks a hotspot visited. A hotspot counts once per user.
func (j *Journal) Visit(v models.Visit) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.visited[v.HotspotID] {
		return false
	}
	j.visited[v.HotspotID] = true
	if v.VisitedAt == 0 {
		v.VisitedAt = j.now().UnixMilli()
	}

	j.enqueue("visit", func() error {
		_, err := j.stores.Visits.Create(j.userID, v)
		return err
	})
	j.agg.IncrementPlacesVisited()
	return true
}

// SaveMemory records a memory and counts it for today
func (j *Journal) SaveMemory(req models.CreateMemoryRequest) models.Memory {
	j.mu.Lock()
	defer j.mu.Unlock()

	m := models.Memory{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		Title:     req.Title,
		Content:   req.Content,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		CreatedAt: j.now().UnixMilli(),
	}
	// Untagged memories take the current position when there is one
	if m.Latitude == nil || m.Longitude == nil {
		if cur := j.tracker.Status().Current; cur != nil {
			lat, lng := cur.Latitude, cur.Longitude
			m.Latitude, m.Longitude = &lat, &lng
		}
	}

	j.enqueue("memory", func() error {
		return j.stores.Memories.Create(j.userID, m)
	})
	j.agg.IncrementMemoriesSaved()
	return m
}

// Stats returns today's stats, progression and derived display values
func (j *Journal) Stats() models.StatsResponse {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := j.agg.Snapshot()
	return models.StatsResponse{
		StatsSnapshot:     snap,
		DistanceTodayKm:   snap.Daily.DistanceKm(),
		AllTimeDistanceKm: snap.Progression.AllTimeDistance / 1000,
		AverageSpeedKmh:   math.Round(snap.Daily.AverageSpeedKmh()*10) / 10,
	}
}

// Snapshot returns the raw stats snapshot
func (j *Journal) Snapshot() models.StatsSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.agg.Snapshot()
}

// Achievements returns the catalog with this user's progress
func (j *Journal) Achievements() []models.Achievement {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.evaluator.Achievements()
}

// Tick accrues time walked since the previous tick while tracking is active
func (j *Journal) Tick(now time.Time) float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.agg.TickTimeWalked(now, j.tracker.Active())
}

// Rollover resets the daily counters and starts a new session when the
// calendar day of now differs from the last reset date
func (j *Journal) Rollover(now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	today := tracking.DateKey(now.In(j.cfg.Location))
	if !j.agg.NeedsReset(today) {
		return false
	}

	j.agg.ResetDaily(today)
	session := j.tracker.NewSession(now)
	logging.Info().Str("user", j.userID).Str("date", today).Str("session", session.ID).Msg("daily stats reset")
	return true
}
