package service

import (
	"database/sql"

	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/repository"
)

// RouteStore persists route points
type RouteStore interface {
	SavePoint(userID, sessionID string, p models.RoutePoint) error
	GetSessionPoints(userID, sessionID string, limit int) ([]models.RoutePoint, error)
	GetLatestSession(userID string) (string, int64, error)
}

// StatsStore persists daily stats and progression
type StatsStore interface {
	SaveDaily(userID string, s models.DailyStats) error
	GetDaily(userID, date string) (*models.DailyStats, error)
	ListDaily(userID string, limit int) ([]models.DailyStats, error)
	SaveProgression(userID string, p models.Progression) error
	GetProgression(userID string) (*models.Progression, error)
}

// AchievementStore persists achievement progress
type AchievementStore interface {
	Save(userID string, s models.AchievementState) error
	List(userID string) ([]models.AchievementState, error)
}

// VisitStore persists hotspot visits
type VisitStore interface {
	Create(userID string, v models.Visit) (bool, error)
	List(userID string) ([]models.Visit, error)
}

// MemoryStore persists memory metadata
type MemoryStore interface {
	Create(userID string, m models.Memory) error
	List(userID string, limit int) ([]models.Memory, error)
}

// Stores groups the persistence collaborators of a journal
type Stores struct {
	Routes       RouteStore
	Stats        StatsStore
	Achievements AchievementStore
	Visits       VisitStore
	Memories     MemoryStore
}

// NewSQLiteStores backs every store with the SQLite repositories
func NewSQLiteStores(db *sql.DB) Stores {
	return Stores{
		Routes:       repository.NewRouteRepository(db),
		Stats:        repository.NewStatsRepository(db),
		Achievements: repository.NewAchievementRepository(db),
		Visits:       repository.NewVisitRepository(db),
		Memories:     repository.NewMemoryRepository(db),
	}
}

// Broadcaster pushes live updates to a user's connected clients
type Broadcaster interface {
	Publish(userID, kind string, data interface{})
}

type noopBroadcaster struct{}

func (noopBroadcaster) Publish(string, string, interface{}) {}

// Live update kinds
const (
	KindMovement    = "movement"
	KindStats       = "stats"
	KindLevelUp     = "level_up"
	KindAchievement = "achievement"
	KindDailyReset  = "daily_reset"
	KindSession     = "session"
	KindNotice      = "notice"
)
