package progression

import (
	"math"
	"time"

	"github.com/jengzang/travel-journal-go/internal/logging"
	"github.com/jengzang/travel-journal-go/internal/models"
)

// Config holds the XP rules
type Config struct {
	XPPerKm              float64
	XPPerStep            int
	VisitBonusXP         int
	MemoryBonusXP        int
	LevelUpMultiplier    float64
	InitialXPToNextLevel int
	MetersPerStep        float64
}

// DefaultConfig returns the stock XP rules
func DefaultConfig() Config {
	return Config{
		XPPerKm:              10,
		XPPerStep:            1,
		VisitBonusXP:         20,
		MemoryBonusXP:        15,
		LevelUpMultiplier:    1.5,
		InitialXPToNextLevel: 100,
		MetersPerStep:        0.762,
	}
}

// EventKind classifies aggregator notifications
type EventKind string

const (
	EventStatsChanged EventKind = "stats"
	EventLevelUp      EventKind = "level_up"
	EventDailyReset   EventKind = "daily_reset"
)

// Event is delivered to observers after a change
type Event struct {
	Kind     EventKind            `json:"kind"`
	Snapshot models.StatsSnapshot `json:"snapshot"`
}

// Observer reacts to aggregator changes
type Observer interface {
	OnStatsEvent(ev Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ev Event)

// OnStatsEvent calls fn(ev)
func (fn ObserverFunc) OnStatsEvent(ev Event) { fn(ev) }

// Aggregator owns the daily stats and progression of one user.
// It is not safe for concurrent use.
type Aggregator struct {
	cfg       Config
	daily     models.DailyStats
	prog      models.Progression
	lastTick  time.Time
	observers []Observer
}

// New creates an aggregator at the initial progression for date
func New(cfg Config, date string) *Aggregator {
	prog := Initial(cfg.InitialXPToNextLevel)
	prog.LastResetDate = date
	return &Aggregator{
		cfg:   cfg,
		daily: models.DailyStats{Date: date},
		prog:  prog,
	}
}

// Restore creates an aggregator from persisted state
func Restore(cfg Config, daily models.DailyStats, prog models.Progression) *Aggregator {
	if prog.Level == 0 {
		lastReset := prog.LastResetDate
		allTime := prog.AllTimeDistance
		prog = Initial(cfg.InitialXPToNextLevel)
		prog.LastResetDate = lastReset
		prog.AllTimeDistance = allTime
	}
	return &Aggregator{cfg: cfg, daily: daily, prog: prog}
}

// Observe registers an observer for all subsequent changes
func (a *Aggregator) Observe(o Observer) {
	a.observers = append(a.observers, o)
}

// Snapshot returns a copy of the current state
func (a *Aggregator) Snapshot() models.StatsSnapshot {
	snap := models.StatsSnapshot{Daily: a.daily, Progression: a.prog}
	if a.daily.HighestAltitude != nil {
		alt := *a.daily.HighestAltitude
		snap.Daily.HighestAltitude = &alt
	}
	return snap
}

// AddDistance adds meters to today's and all-time distance and awards
// floor(km × XPPerKm) XP
func (a *Aggregator) AddDistance(meters float64) {
	if a.addDistance(meters) {
		a.notify(EventStatsChanged)
	}
}

func (a *Aggregator) addDistance(meters float64) bool {
	if meters <= 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		return false
	}
	a.daily.DistanceToday += meters
	a.prog.AllTimeDistance += meters
	a.award(int(math.Floor(meters / 1000 * a.cfg.XPPerKm)))
	return true
}

// AddSteps counts n steps, accrues their estimated distance and awards the
// per-call step XP. Step distance adds to GPS distance for the same walk.
func (a *Aggregator) AddSteps(n int) {
	if n <= 0 {
		return
	}
	a.daily.StepsToday += n
	a.addDistance(float64(n) * a.cfg.MetersPerStep)
	a.award(a.cfg.XPPerStep)
	a.notify(EventStatsChanged)
}

// IncrementPlacesVisited counts a visited place and awards the visit bonus
func (a *Aggregator) IncrementPlacesVisited() {
	a.daily.PlacesVisited++
	a.award(a.cfg.VisitBonusXP)
	a.notify(EventStatsChanged)
}

// IncrementMemoriesSaved counts a saved memory and awards the memory bonus
func (a *Aggregator) IncrementMemoriesSaved() {
	a.daily.MemoriesSaved++
	a.award(a.cfg.MemoryBonusXP)
	a.notify(EventStatsChanged)
}

// UpdateAltitude records meters, rounded to the nearest meter, if it is
// strictly above today's highest. A zero altitude means the sensor had no fix.
func (a *Aggregator) UpdateAltitude(meters float64) bool {
	if meters == 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		return false
	}
	alt := math.Round(meters)
	if a.daily.HighestAltitude != nil && alt <= *a.daily.HighestAltitude {
		return false
	}
	a.daily.HighestAltitude = &alt
	a.notify(EventStatsChanged)
	return true
}

// AddXP awards amount XP, leveling up as often as the total allows
func (a *Aggregator) AddXP(amount int) {
	if amount <= 0 {
		return
	}
	a.award(amount)
	a.notify(EventStatsChanged)
}

func (a *Aggregator) award(amount int) {
	next, gained := ApplyXP(a.prog, amount, a.cfg.LevelUpMultiplier)
	a.prog = next
	if gained > 0 {
		logging.Info().Int("level", a.prog.Level).Int("levels_gained", gained).Msg("level up")
		for i := 0; i < gained; i++ {
			a.notify(EventLevelUp)
		}
	}
}

// TickTimeWalked adds the time elapsed since the previous tick to today's
// time walked when tracking is active. The tick time is always recorded, so
// time spent inactive is never counted.
func (a *Aggregator) TickTimeWalked(now time.Time, active bool) float64 {
	prev := a.lastTick
	a.lastTick = now
	if !active || prev.IsZero() {
		return 0
	}
	elapsed := now.Sub(prev).Seconds()
	if elapsed <= 0 {
		return 0
	}
	a.daily.TimeWalkedToday += elapsed
	a.notify(EventStatsChanged)
	return elapsed
}

// NeedsReset reports whether the daily counters belong to a day other than date
func (a *Aggregator) NeedsReset(date string) bool {
	return a.prog.LastResetDate != date
}

// ResetDaily zeroes today's steps, distance, time walked and places visited
// and moves the counters to date. All-time distance, level and XP are kept.
func (a *Aggregator) ResetDaily(date string) {
	a.daily.StepsToday = 0
	a.daily.DistanceToday = 0
	a.daily.TimeWalkedToday = 0
	a.daily.PlacesVisited = 0
	a.daily.Date = date
	a.prog.LastResetDate = date
	a.notify(EventDailyReset)
}

func (a *Aggregator) notify(kind EventKind) {
	if len(a.observers) == 0 {
		return
	}
	ev := Event{Kind: kind, Snapshot: a.Snapshot()}
	observers := make([]Observer, len(a.observers))
	copy(observers, a.observers)
	for _, o := range observers {
		deliver(o, ev)
	}
}

func deliver(o Observer, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("event", string(ev.Kind)).Msg("stats observer panicked")
		}
	}()
	o.OnStatsEvent(ev)
}
