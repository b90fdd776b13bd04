package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/travel-journal-go/internal/config"
	"github.com/jengzang/travel-journal-go/internal/database"
	"github.com/jengzang/travel-journal-go/internal/logging"
	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/progression"
	"github.com/jengzang/travel-journal-go/internal/scheduler"
	"github.com/jengzang/travel-journal-go/internal/spatial"
	"github.com/jengzang/travel-journal-go/internal/tracking"
)

type recordingBroadcaster struct {
	mu    sync.Mutex
	kinds []string
}

func (b *recordingBroadcaster) Publish(_, kind string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds = append(b.kinds, kind)
}

func (b *recordingBroadcaster) has(kind string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range b.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

type fixture struct {
	registry *Registry
	writer   *Writer
	clock    *scheduler.ManualClock
	stores   Stores
	live     *recordingBroadcaster
}

var day1 = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func testJournalConfig() JournalConfig {
	return JournalConfig{
		Tracking: tracking.Config{
			Filter: tracking.FilterConfig{
				MinAccuracyMeters:      50,
				MinMovementMeters:      5,
				MaxPlausibleStepMeters: 200,
				RouteJumpMeters:        500,
			},
			MaxRoutePoints: 200,
			SessionGap:     5 * time.Minute,
			Fallback:       models.Position{Latitude: -20.176931457328774, Longitude: 57.467199105857894, Accuracy: 100},
		},
		Progression: progression.DefaultConfig(),
		Location:    time.UTC,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(database.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	stores := NewSQLiteStores(db)
	f := &fixture{
		writer: NewWriter(WriterConfig{QueueSize: 4096}),
		clock:  scheduler.NewManualClock(day1),
		stores: stores,
		live:   &recordingBroadcaster{},
	}
	f.registry = NewRegistry(testJournalConfig(), stores, f.writer, f.live, f.clock)
	return f
}

// reload drops loaded journals so the next access reads the store
func (f *fixture) reload() {
	f.writer.Drain()
	f.registry = NewRegistry(testJournalConfig(), f.stores, f.writer, f.live, f.clock)
}

func north(meters float64, ts int64) models.Position {
	lat, lng := spatial.DestinationPoint(-20.1769, 57.4672, 0, meters)
	return models.Position{Latitude: lat, Longitude: lng, Accuracy: 8, Timestamp: ts}
}

func TestJournalIngestAccruesAndPersists(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")
	j.Start()

	decisions, err := j.IngestPositions([]models.Position{
		north(0, 1000), north(3, 2000), north(100, 3000), north(400, 4000), north(70, 5000),
	})
	require.NoError(t, err)
	require.Len(t, decisions, 5)
	assert.Equal(t, tracking.Accepted, decisions[0].Kind)
	assert.Equal(t, tracking.Jitter, decisions[1].Kind)
	assert.Equal(t, tracking.Accepted, decisions[2].Kind)
	assert.True(t, decisions[3].Event.DeltaDiscarded)
	assert.False(t, decisions[4].Event.DeltaDiscarded)

	stats := j.Stats()
	// 100 m, then 300 m discarded, then 330 m discarded
	assert.InDelta(t, 100, stats.Daily.DistanceToday, 0.01)
	assert.Len(t, j.Route().Points, 4)
	assert.True(t, f.live.has(KindMovement))

	f.writer.Drain()
	points, err := f.stores.Routes.GetSessionPoints("u1", j.Route().SessionID, 0)
	require.NoError(t, err)
	assert.Len(t, points, 4)

	daily, err := f.stores.Stats.GetDaily("u1", "2024-05-10")
	require.NoError(t, err)
	assert.InDelta(t, 100, daily.DistanceToday, 0.01)

	_, err = j.IngestPositions(nil)
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestJournalAltitudeFromMovement(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")
	j.Start()

	p := north(0, 1)
	alt := 250.0
	p.Altitude = &alt
	_, err := j.IngestPositions([]models.Position{p})
	require.NoError(t, err)

	highest := j.Stats().Daily.HighestAltitude
	require.NotNil(t, highest)
	assert.Equal(t, 250.0, *highest)
}

func TestJournalStateSurvivesReload(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")
	j.Start()
	j.AddSteps(1000)
	assert.True(t, j.Visit(models.Visit{HotspotID: "h1", Name: "Trou aux Cerfs"}))
	j.SaveMemory(models.CreateMemoryRequest{Kind: models.MemoryText, Title: "crater"})
	_, err := j.IngestPositions([]models.Position{north(0, day1.UnixMilli()), north(50, day1.UnixMilli()+1000)})
	require.NoError(t, err)
	before := j.Stats()
	sessionID := j.Route().SessionID

	f.clock.Advance(2 * time.Minute)
	f.reload()
	j = f.registry.Journal("u1")

	after := j.Stats()
	assert.Equal(t, before.Progression, after.Progression)
	assert.Equal(t, before.Daily.StepsToday, after.Daily.StepsToday)
	assert.Equal(t, 1, after.Daily.PlacesVisited)
	assert.Equal(t, 1, after.Daily.MemoriesSaved)

	assert.False(t, j.Visit(models.Visit{HotspotID: "h1"}), "visits are deduplicated across reloads")
	assert.True(t, findAchievement(j.Achievements(), "steps_1000").Unlocked)

	// The session is still fresh, so the route is restored
	route := j.Route()
	assert.Equal(t, sessionID, route.SessionID)
	assert.Len(t, route.Points, 2)

	memories, err := f.registry.Memories("u1", 0)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "crater", memories[0].Title)
}

func TestJournalExpiredSessionIsNotRestored(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")
	j.Start()
	_, err := j.IngestPositions([]models.Position{
		north(0, day1.UnixMilli()), north(50, day1.Add(time.Second).UnixMilli()),
	})
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	f.reload()

	route := f.registry.Journal("u1").Route()
	assert.Empty(t, route.Points)
}

func TestJournalReloadKeepsOnlyRouteAfterJump(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")
	j.Start()
	ts := day1.UnixMilli()
	_, err := j.IngestPositions([]models.Position{north(0, ts), north(50, ts+1000), north(2000, ts+2000)})
	require.NoError(t, err)
	require.Len(t, j.Route().Points, 1)

	f.clock.Advance(time.Minute)
	f.reload()
	j = f.registry.Journal("u1")

	route := j.Route()
	require.Len(t, route.Points, 1)
	assert.Zero(t, route.Distance)
	assert.InDelta(t, north(2000, 0).Latitude, route.Points[0].Latitude, 1e-9)

	// Movement continues from the restored point
	j.Start()
	decisions, err := j.IngestPositions([]models.Position{north(2030, ts+3000)})
	require.NoError(t, err)
	require.Equal(t, tracking.Accepted, decisions[0].Kind)
	assert.InDelta(t, 30, decisions[0].Event.Delta, 0.01)
	assert.False(t, decisions[0].Event.Discontinuity)
	assert.Len(t, j.Route().Points, 2)
	assert.InDelta(t, 80, j.Stats().Daily.DistanceToday, 0.01)
}

func TestJournalSessionExpiryUsesReceiveTime(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")
	j.Start()
	// The device clock is decades behind the server
	_, err := j.IngestPositions([]models.Position{north(0, 1000), north(50, 2000)})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	f.reload()
	assert.Len(t, f.registry.Journal("u1").Route().Points, 2)

	f.clock.Advance(10 * time.Minute)
	f.reload()
	assert.Empty(t, f.registry.Journal("u1").Route().Points)
}

func TestJournalRollover(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")
	session, _ := j.Start()
	j.AddSteps(10)
	_, err := j.IngestPositions([]models.Position{north(0, 1), north(1500, 2)})
	require.NoError(t, err)
	before := j.Stats()

	assert.False(t, j.Rollover(day1.Add(time.Hour)))

	next := time.Date(2024, 5, 11, 0, 30, 0, 0, time.UTC)
	assert.True(t, j.Rollover(next))

	after := j.Stats()
	assert.Zero(t, after.Daily.StepsToday)
	assert.Zero(t, after.Daily.DistanceToday)
	assert.Zero(t, after.Daily.TimeWalkedToday)
	assert.Zero(t, after.Daily.PlacesVisited)
	assert.Equal(t, "2024-05-11", after.Daily.Date)
	assert.Equal(t, before.Progression.AllTimeDistance, after.Progression.AllTimeDistance)
	assert.Equal(t, before.Progression.Level, after.Progression.Level)
	assert.Equal(t, before.Progression.XP, after.Progression.XP)

	assert.NotEqual(t, session.ID, j.Route().SessionID)
	assert.True(t, f.live.has(KindDailyReset))

	f.writer.Drain()
	old, err := f.registry.DailyStats("u1", "2024-05-10")
	require.NoError(t, err)
	assert.Equal(t, 10, old.StepsToday)
}

func TestJournalTick(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")

	j.Tick(day1)
	j.Tick(day1.Add(10 * time.Second))
	assert.Zero(t, j.Stats().Daily.TimeWalkedToday, "inactive tracking accrues nothing")

	j.Start()
	j.Tick(day1.Add(20 * time.Second))
	j.Tick(day1.Add(30 * time.Second))
	assert.Equal(t, 20.0, j.Stats().Daily.TimeWalkedToday)
}

func TestJournalFeedMotion(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")

	steps := j.FeedMotion([]tracking.MotionSample{
		{Z: 11.5, Timestamp: 0},
		{Z: 11.5, Timestamp: 100},
		{Z: 11.5, Timestamp: 300},
	})
	assert.Equal(t, 2, steps)
	assert.Equal(t, 2, j.Stats().Daily.StepsToday)
}

func TestJournalReportError(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")

	_, err := j.ReportError("BROKEN")
	assert.ErrorIs(t, err, ErrUnknownErrorCode)

	out, err := j.ReportError(tracking.CodePermissionDenied)
	require.NoError(t, err)
	assert.True(t, out.Notice)
	assert.True(t, f.live.has(KindNotice))
	assert.True(t, j.Status().OnFallback)

	// Memories taken while on fallback are tagged with the fallback coordinate
	m := j.SaveMemory(models.CreateMemoryRequest{Kind: models.MemoryPhoto})
	require.NotNil(t, m.Latitude)
	assert.Equal(t, -20.176931457328774, *m.Latitude)
}

func TestRegistryDailyStats(t *testing.T) {
	f := newFixture(t)
	f.registry.Journal("u1").AddSteps(5)

	today, err := f.registry.DailyStats("u1", "2024-05-10")
	require.NoError(t, err)
	assert.Equal(t, 5, today.StepsToday)

	_, err = f.registry.DailyStats("u1", "10/05/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = f.registry.DailyStats("u1", "2023-01-01")
	assert.True(t, IsNotFound(err))
}

func TestRegistryScheduledTasks(t *testing.T) {
	f := newFixture(t)
	j := f.registry.Journal("u1")
	j.Start()
	assert.Equal(t, 1, f.registry.Len())

	s := scheduler.New(f.clock)
	s.Every("time-walked", 10*time.Second, f.registry.TickAll)
	s.Every("rollover", time.Hour, f.registry.RolloverAll)

	for i := 0; i < 24*360; i++ {
		f.clock.Advance(10 * time.Second)
		s.RunDue(context.Background(), f.clock.Now())
		f.writer.Drain()
	}

	snap := j.Stats()
	assert.Equal(t, "2024-05-11", snap.Daily.Date)
	// 09:00 to midnight is walked on day one, then 00:00 to 09:00 after the hourly reset
	assert.InDelta(t, 9*3600, snap.Daily.TimeWalkedToday, 3600)
}

func findAchievement(list []models.Achievement, id string) models.Achievement {
	for _, a := range list {
		if a.ID == id {
			return a
		}
	}
	return models.Achievement{}
}

func TestNewJournalConfigFromDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.Timezone = "UTC"

	jc := NewJournalConfig(cfg)

	assert.Equal(t, testJournalConfig(), jc)
	assert.Equal(t, WriterConfig{QueueSize: 256, BreakerFailures: 5, BreakerOpenDelay: 30 * time.Second}, NewWriterConfig(cfg))
}

var errStoreDown = errors.New("store down")

type failingRoutes struct{}

func (failingRoutes) SavePoint(string, string, models.RoutePoint) error { return errStoreDown }
func (failingRoutes) GetSessionPoints(string, string, int) ([]models.RoutePoint, error) {
	return nil, errStoreDown
}
func (failingRoutes) GetLatestSession(string) (string, int64, error) { return "", 0, errStoreDown }

type failingStats struct{}

func (failingStats) SaveDaily(string, models.DailyStats) error { return errStoreDown }
func (failingStats) GetDaily(string, string) (*models.DailyStats, error) {
	return nil, errStoreDown
}
func (failingStats) ListDaily(string, int) ([]models.DailyStats, error) { return nil, errStoreDown }
func (failingStats) SaveProgression(string, models.Progression) error   { return errStoreDown }
func (failingStats) GetProgression(string) (*models.Progression, error) {
	return nil, errStoreDown
}

type failingAchievements struct{}

func (failingAchievements) Save(string, models.AchievementState) error { return errStoreDown }
func (failingAchievements) List(string) ([]models.AchievementState, error) {
	return nil, errStoreDown
}

type failingVisits struct{}

func (failingVisits) Create(string, models.Visit) (bool, error) { return false, errStoreDown }
func (failingVisits) List(string) ([]models.Visit, error)        { return nil, errStoreDown }

type failingMemories struct{}

func (failingMemories) Create(string, models.Memory) error        { return errStoreDown }
func (failingMemories) List(string, int) ([]models.Memory, error) { return nil, errStoreDown }

func TestJournalKeepsWorkingWhenStoreFails(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	stores := Stores{
		Routes:       failingRoutes{},
		Stats:        failingStats{},
		Achievements: failingAchievements{},
		Visits:       failingVisits{},
		Memories:     failingMemories{},
	}
	writer := NewWriter(WriterConfig{QueueSize: 4096})
	registry := NewRegistry(testJournalConfig(), stores, writer, nil, scheduler.NewManualClock(day1))

	j := registry.Journal("u1")
	j.Start()
	ts := day1.UnixMilli()
	_, err := j.IngestPositions([]models.Position{north(0, ts), north(100, ts+1000)})
	require.NoError(t, err)
	j.AddSteps(10)
	assert.True(t, j.Visit(models.Visit{HotspotID: "h1"}))
	require.Positive(t, writer.Drain())

	stats := j.Stats()
	stepMeters := 10 * testJournalConfig().Progression.MetersPerStep
	assert.InDelta(t, 100+stepMeters, stats.Daily.DistanceToday, 0.01)
	assert.Equal(t, 10, stats.Daily.StepsToday)
	assert.Equal(t, 1, stats.Daily.PlacesVisited)

	route := j.Route()
	assert.Len(t, route.Points, 2)
	assert.InDelta(t, 100, route.Distance, 0.01)

	assert.Contains(t, buf.String(), "store write failed")
	assert.Contains(t, buf.String(), "store down")
}
