package achievement

import (
	"math"
	"time"

	"github.com/jengzang/travel-journal-go/internal/logging"
	"github.com/jengzang/travel-journal-go/internal/models"
)

// XPAwarder receives achievement rewards
type XPAwarder interface {
	AddXP(amount int)
}

// StatsSource provides the stats achievements are measured against
type StatsSource interface {
	Snapshot() models.StatsSnapshot
}

// Evaluator tracks achievement progress for one user and awards rewards
// on unlock. It is not safe for concurrent use.
type Evaluator struct {
	achievements []models.Achievement
	stats        StatsSource
	awarder      XPAwarder
	now          func() time.Time

	running bool
	again   bool
}

// NewEvaluator creates an evaluator over the catalog merged with saved state
func NewEvaluator(stats StatsSource, awarder XPAwarder, saved []models.AchievementState) *Evaluator {
	achievements := Catalog()
	byID := make(map[string]models.AchievementState, len(saved))
	for _, s := range saved {
		byID[s.AchievementID] = s
	}
	for i := range achievements {
		if s, ok := byID[achievements[i].ID]; ok {
			achievements[i].Progress = math.Round(s.Progress)
			achievements[i].Unlocked = s.Unlocked
			achievements[i].UnlockedAt = s.UnlockedAt
		}
	}
	return &Evaluator{
		achievements: achievements,
		stats:        stats,
		awarder:      awarder,
		now:          time.Now,
	}
}

// SetClock overrides the unlock timestamp source
func (e *Evaluator) SetClock(now func() time.Time) {
	e.now = now
}

// Achievements returns a copy of all achievements with progress
func (e *Evaluator) Achievements() []models.Achievement {
	out := make([]models.Achievement, len(e.achievements))
	copy(out, e.achievements)
	return out
}

// Evaluate updates progress from the current stats and unlocks completed
// achievements, awarding their XP. A reward may itself trigger another
// evaluation; nested calls are folded into the running one. Returns the
// achievements whose state changed and the ones newly unlocked.
func (e *Evaluator) Evaluate() (changed, unlocked []models.Achievement) {
	if e.running {
		e.again = true
		return nil, nil
	}
	e.running = true
	defer func() { e.running = false }()

	for {
		e.again = false
		c, u := e.evaluateOnce()
		changed = append(changed, c...)
		unlocked = append(unlocked, u...)
		if !e.again {
			return changed, unlocked
		}
	}
}

func (e *Evaluator) evaluateOnce() (changed, unlocked []models.Achievement) {
	for i := range e.achievements {
		a := &e.achievements[i]
		if a.Unlocked {
			continue
		}

		progress := math.Round(measure(a.Type, e.stats.Snapshot()))
		completed := progress >= a.Requirement
		clamped := math.Min(progress, a.Requirement)

		if clamped == a.Progress && !completed {
			continue
		}
		a.Progress = clamped

		if completed {
			a.Unlocked = true
			at := e.now().UnixMilli()
			a.UnlockedAt = &at
			unlocked = append(unlocked, *a)
			logging.Info().Str("achievement", a.ID).Int("reward", a.Reward).Msg("achievement unlocked")
			if e.awarder != nil {
				e.awarder.AddXP(a.Reward)
			}
		}
		changed = append(changed, *a)
	}
	return changed, unlocked
}

func measure(t models.AchievementType, snap models.StatsSnapshot) float64 {
	switch t {
	case models.AchievementDistance:
		return snap.Progression.AllTimeDistance
	case models.AchievementHotspots:
		return float64(snap.Daily.PlacesVisited)
	case models.AchievementMemories:
		return float64(snap.Daily.MemoriesSaved)
	case models.AchievementSteps:
		return float64(snap.Daily.StepsToday)
	default:
		return 0
	}
}

// State converts an achievement to its persisted form
func State(a models.Achievement) models.AchievementState {
	return models.AchievementState{
		AchievementID: a.ID,
		Progress:      a.Progress,
		Unlocked:      a.Unlocked,
		UnlockedAt:    a.UnlockedAt,
	}
}
