package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/travel-journal-go/internal/models"
)

func newTestAggregator() *Aggregator {
	return New(DefaultConfig(), "2024-05-10")
}

func TestAddXPScenario(t *testing.T) {
	a := newTestAggregator()
	a.AddXP(250)

	p := a.Snapshot().Progression
	assert.Equal(t, 3, p.Level)
	assert.Zero(t, p.XP)
	assert.Equal(t, 225, p.XPToNextLevel)
}

func TestAddDistanceAwardsFlooredXP(t *testing.T) {
	a := newTestAggregator()

	a.AddDistance(1000)
	snap := a.Snapshot()
	assert.Equal(t, 10, snap.Progression.XP)
	assert.Equal(t, 1000.0, snap.Daily.DistanceToday)
	assert.Equal(t, 1000.0, snap.Progression.AllTimeDistance)
	assert.Equal(t, 1.0, snap.Daily.DistanceKm())

	a.AddDistance(99)
	assert.Equal(t, 10, a.Snapshot().Progression.XP, "0.99 XP floors to 0")

	a.AddDistance(-5)
	assert.Equal(t, 1099.0, a.Snapshot().Daily.DistanceToday)
}

func TestAddSteps(t *testing.T) {
	a := newTestAggregator()

	a.AddSteps(1000)
	snap := a.Snapshot()
	assert.Equal(t, 1000, snap.Daily.StepsToday)
	assert.InDelta(t, 762, snap.Daily.DistanceToday, 1e-9)
	// floor(0.762 km × 10) + 1 per call
	assert.Equal(t, 8, snap.Progression.XP)

	a.AddSteps(0)
	assert.Equal(t, 1000, a.Snapshot().Daily.StepsToday)
}

func TestBonuses(t *testing.T) {
	a := newTestAggregator()

	a.IncrementPlacesVisited()
	a.IncrementMemoriesSaved()

	snap := a.Snapshot()
	assert.Equal(t, 1, snap.Daily.PlacesVisited)
	assert.Equal(t, 1, snap.Daily.MemoriesSaved)
	assert.Equal(t, 35, snap.Progression.XP)
}

func TestUpdateAltitudeStrictlyGreater(t *testing.T) {
	a := newTestAggregator()

	assert.True(t, a.UpdateAltitude(120))
	assert.False(t, a.UpdateAltitude(120))
	assert.False(t, a.UpdateAltitude(80))
	assert.False(t, a.UpdateAltitude(120.4), "rounds to the recorded 120")
	assert.True(t, a.UpdateAltitude(121.5))

	alt := a.Snapshot().Daily.HighestAltitude
	require.NotNil(t, alt)
	assert.Equal(t, 122.0, *alt)
}

func TestUpdateAltitudeIgnoresMissingFix(t *testing.T) {
	a := newTestAggregator()

	assert.False(t, a.UpdateAltitude(0))
	assert.Nil(t, a.Snapshot().Daily.HighestAltitude)

	assert.True(t, a.UpdateAltitude(-3.4))
	alt := a.Snapshot().Daily.HighestAltitude
	require.NotNil(t, alt)
	assert.Equal(t, -3.0, *alt)
}

func TestTickTimeWalked(t *testing.T) {
	a := newTestAggregator()
	t0 := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	assert.Zero(t, a.TickTimeWalked(t0, true), "first tick only records the time")
	assert.Equal(t, 10.0, a.TickTimeWalked(t0.Add(10*time.Second), true))
	assert.Zero(t, a.TickTimeWalked(t0.Add(20*time.Second), false))
	assert.Equal(t, 10.0, a.TickTimeWalked(t0.Add(30*time.Second), true))

	assert.Equal(t, 20.0, a.Snapshot().Daily.TimeWalkedToday)
}

func TestResetDailyKeepsProgression(t *testing.T) {
	a := newTestAggregator()
	t0 := time.Now()
	a.AddSteps(100)
	a.AddDistance(2500)
	a.IncrementPlacesVisited()
	a.IncrementMemoriesSaved()
	a.TickTimeWalked(t0, true)
	a.TickTimeWalked(t0.Add(time.Minute), true)
	before := a.Snapshot().Progression

	require.True(t, a.NeedsReset("2024-05-11"))
	a.ResetDaily("2024-05-11")

	snap := a.Snapshot()
	assert.Zero(t, snap.Daily.StepsToday)
	assert.Zero(t, snap.Daily.DistanceToday)
	assert.Zero(t, snap.Daily.TimeWalkedToday)
	assert.Zero(t, snap.Daily.PlacesVisited)
	assert.Equal(t, "2024-05-11", snap.Daily.Date)

	assert.Equal(t, before.AllTimeDistance, snap.Progression.AllTimeDistance)
	assert.Equal(t, before.Level, snap.Progression.Level)
	assert.Equal(t, before.XP, snap.Progression.XP)
	assert.False(t, a.NeedsReset("2024-05-11"))
}

func TestObserversReceiveEvents(t *testing.T) {
	a := newTestAggregator()
	var kinds []EventKind

	a.Observe(ObserverFunc(func(Event) { panic("broken observer") }))
	a.Observe(ObserverFunc(func(ev Event) { kinds = append(kinds, ev.Kind) }))

	a.AddXP(100)
	a.ResetDaily("2024-05-11")

	assert.Equal(t, []EventKind{EventLevelUp, EventStatsChanged, EventDailyReset}, kinds)
}

func TestObserverMayAwardXP(t *testing.T) {
	a := newTestAggregator()
	awarded := false
	a.Observe(ObserverFunc(func(ev Event) {
		if !awarded && ev.Snapshot.Daily.PlacesVisited == 1 {
			awarded = true
			a.AddXP(80)
		}
	}))

	a.IncrementPlacesVisited()

	p := a.Snapshot().Progression
	assert.Equal(t, 2, p.Level)
	assert.Zero(t, p.XP)
}

func TestRestore(t *testing.T) {
	daily := models.DailyStats{Date: "2024-05-10", StepsToday: 42}
	prog := models.Progression{Level: 3, XP: 12, XPToNextLevel: 225, AllTimeDistance: 5000, LastResetDate: "2024-05-10"}

	snap := Restore(DefaultConfig(), daily, prog).Snapshot()
	assert.Equal(t, 3, snap.Progression.Level)
	assert.Equal(t, 42, snap.Daily.StepsToday)
	assert.False(t, Restore(DefaultConfig(), daily, prog).NeedsReset("2024-05-10"))

	// A missing progression row starts at level 1 but keeps what was stored.
	snap = Restore(DefaultConfig(), daily, models.Progression{AllTimeDistance: 70, LastResetDate: "2024-05-09"}).Snapshot()
	assert.Equal(t, 1, snap.Progression.Level)
	assert.Equal(t, 100, snap.Progression.XPToNextLevel)
	assert.Equal(t, 70.0, snap.Progression.AllTimeDistance)
	assert.Equal(t, "2024-05-09", snap.Progression.LastResetDate)
}
