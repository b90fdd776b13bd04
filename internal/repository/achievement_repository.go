package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/travel-journal-go/internal/models"
)

// AchievementRepository stores achievement progress per user
type AchievementRepository struct {
	db *sql.DB
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db *sql.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Save upserts the state of one achievement
func (r *AchievementRepository) Save(userID string, s models.AchievementState) error {
	query := `INSERT INTO achievements (user_id, achievement_id, progress, unlocked, unlocked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, achievement_id) DO UPDATE SET
			progress = excluded.progress,
			unlocked = excluded.unlocked,
			unlocked_at = excluded.unlocked_at`

	if _, err := r.db.Exec(query, userID, s.AchievementID, s.Progress, s.Unlocked, s.UnlockedAt); err != nil {
		return fmt.Errorf("failed to save achievement %s: %w", s.AchievementID, err)
	}
	return nil
}

// List returns all saved achievement states of a user
func (r *AchievementRepository) List(userID string) ([]models.AchievementState, error) {
	rows, err := r.db.Query(`SELECT achievement_id, progress, unlocked, unlocked_at
		FROM achievements WHERE user_id = ? ORDER BY achievement_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var states []models.AchievementState
	for rows.Next() {
		var s models.AchievementState
		var unlockedAt sql.NullInt64
		if err := rows.Scan(&s.AchievementID, &s.Progress, &s.Unlocked, &unlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		if unlockedAt.Valid {
			at := unlockedAt.Int64
			s.UnlockedAt = &at
		}
		states = append(states, s)
	}
	return states, rows.Err()
}
