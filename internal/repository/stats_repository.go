package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/travel-journal-go/internal/models"
)

// StatsRepository handles daily stats and progression rows
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// SaveDaily inserts or replaces the stats of one day
func (r *StatsRepository) SaveDaily(userID string, s models.DailyStats) error {
	query := `INSERT INTO daily_stats (user_id, date, steps_today, distance_today, time_walked_today,
			places_visited, memories_saved, highest_altitude, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, date) DO UPDATE SET
			steps_today = excluded.steps_today,
			distance_today = excluded.distance_today,
			time_walked_today = excluded.time_walked_today,
			places_visited = excluded.places_visited,
			memories_saved = excluded.memories_saved,
			highest_altitude = excluded.highest_altitude,
			updated_at = CURRENT_TIMESTAMP`

	_, err := r.db.Exec(query, userID, s.Date, s.StepsToday, s.DistanceToday, s.TimeWalkedToday,
		s.PlacesVisited, s.MemoriesSaved, s.HighestAltitude)
	if err != nil {
		return fmt.Errorf("failed to save daily stats: %w", err)
	}
	return nil
}

// GetDaily returns the stats of one day
func (r *StatsRepository) GetDaily(userID, date string) (*models.DailyStats, error) {
	query := `SELECT date, steps_today, distance_today, time_walked_today, places_visited,
			memories_saved, highest_altitude
		FROM daily_stats WHERE user_id = ? AND date = ?`

	var s models.DailyStats
	var altitude sql.NullFloat64
	err := r.db.QueryRow(query, userID, date).Scan(&s.Date, &s.StepsToday, &s.DistanceToday,
		&s.TimeWalkedToday, &s.PlacesVisited, &s.MemoriesSaved, &altitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	s.HighestAltitude = nullFloat(altitude)
	return &s, nil
}

// ListDaily returns the most recent days, newest first
func (r *StatsRepository) ListDaily(userID string, limit int) ([]models.DailyStats, error) {
	if limit < 1 || limit > 366 {
		limit = 30
	}

	query := `SELECT date, steps_today, distance_today, time_walked_today, places_visited,
			memories_saved, highest_altitude
		FROM daily_stats WHERE user_id = ?
		ORDER BY date DESC LIMIT ?`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	days := make([]models.DailyStats, 0)
	for rows.Next() {
		var s models.DailyStats
		var altitude sql.NullFloat64
		if err := rows.Scan(&s.Date, &s.StepsToday, &s.DistanceToday, &s.TimeWalkedToday,
			&s.PlacesVisited, &s.MemoriesSaved, &altitude); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		s.HighestAltitude = nullFloat(altitude)
		days = append(days, s)
	}
	return days, rows.Err()
}

// SaveProgression inserts or replaces the progression of a user
func (r *StatsRepository) SaveProgression(userID string, p models.Progression) error {
	query := `INSERT INTO progression (user_id, all_time_distance, level, xp, xp_to_next_level, last_reset_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			all_time_distance = excluded.all_time_distance,
			level = excluded.level,
			xp = excluded.xp,
			xp_to_next_level = excluded.xp_to_next_level,
			last_reset_date = excluded.last_reset_date,
			updated_at = CURRENT_TIMESTAMP`

	_, err := r.db.Exec(query, userID, p.AllTimeDistance, p.Level, p.XP, p.XPToNextLevel, p.LastResetDate)
	if err != nil {
		return fmt.Errorf("failed to save progression: %w", err)
	}
	return nil
}

// GetProgression returns the progression of a user
func (r *StatsRepository) GetProgression(userID string) (*models.Progression, error) {
	query := `SELECT all_time_distance, level, xp, xp_to_next_level, last_reset_date
		FROM progression WHERE user_id = ?`

	var p models.Progression
	var lastReset sql.NullString
	err := r.db.QueryRow(query, userID).Scan(&p.AllTimeDistance, &p.Level, &p.XP, &p.XPToNextLevel, &lastReset)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progression: %w", err)
	}
	p.LastResetDate = lastReset.String
	return &p, nil
}
