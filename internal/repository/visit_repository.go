package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/travel-journal-go/internal/models"
)

// VisitRepository stores hotspot check-ins
type VisitRepository struct {
	db *sql.DB
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db *sql.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Create records a visit. Returns false if the hotspot was already visited.
func (r *VisitRepository) Create(userID string, v models.Visit) (bool, error) {
	query := `INSERT OR IGNORE INTO visits (user_id, hotspot_id, name, lat, lng, visited_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	res, err := r.db.Exec(query, userID, v.HotspotID, v.Name, v.Latitude, v.Longitude, v.VisitedAt)
	if err != nil {
		return false, fmt.Errorf("failed to save visit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// List returns a user's visits, newest first
func (r *VisitRepository) List(userID string) ([]models.Visit, error) {
	rows, err := r.db.Query(`SELECT hotspot_id, name, lat, lng, visited_at
		FROM visits WHERE user_id = ? ORDER BY visited_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	visits := make([]models.Visit, 0)
	for rows.Next() {
		var v models.Visit
		var name sql.NullString
		if err := rows.Scan(&v.HotspotID, &name, &v.Latitude, &v.Longitude, &v.VisitedAt); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		v.Name = name.String
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
