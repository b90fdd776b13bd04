package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/travel-journal-go/internal/models"
)

// RouteRepository handles database operations for route points
type RouteRepository struct {
	db *sql.DB
}

// NewRouteRepository creates a new route repository
func NewRouteRepository(db *sql.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// SavePoint appends a route point to a session
func (r *RouteRepository) SavePoint(userID, sessionID string, p models.RoutePoint) error {
	query := `INSERT INTO route_points (user_id, session_id, lat, lng, altitude, speed, accuracy, timestamp, segment_start, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	segmentStart := 0
	if p.SegmentStart {
		segmentStart = 1
	}
	_, err := r.db.Exec(query, userID, sessionID, p.Latitude, p.Longitude, p.Altitude, p.Speed, p.Accuracy, p.Timestamp, segmentStart, p.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to save route point: %w", err)
	}
	return nil
}

// GetSessionPoints returns the last limit points of the current segment of a
// session in write order. Points before the last segment start are skipped.
func (r *RouteRepository) GetSessionPoints(userID, sessionID string, limit int) ([]models.RoutePoint, error) {
	if limit < 1 {
		limit = 200
	}

	query := `SELECT lat, lng, altitude, speed, accuracy, timestamp, segment_start, received_at FROM (
			SELECT id, lat, lng, altitude, speed, accuracy, timestamp, segment_start, received_at
			FROM route_points
			WHERE user_id = ? AND session_id = ?
				AND id >= COALESCE((
					SELECT MAX(id) FROM route_points
					WHERE user_id = ? AND session_id = ? AND segment_start = 1
				), 0)
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`

	rows, err := r.db.Query(query, userID, sessionID, userID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query route points: %w", err)
	}
	defer rows.Close()

	points := make([]models.RoutePoint, 0)
	for rows.Next() {
		var p models.RoutePoint
		var altitude, speed, accuracy sql.NullFloat64
		var segmentStart int64
		if err := rows.Scan(&p.Latitude, &p.Longitude, &altitude, &speed, &accuracy, &p.Timestamp, &segmentStart, &p.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan route point: %w", err)
		}
		p.Altitude = nullFloat(altitude)
		p.Speed = nullFloat(speed)
		p.Accuracy = nullFloat(accuracy)
		p.SegmentStart = segmentStart != 0
		points = append(points, p)
	}

	return points, rows.Err()
}

// GetLatestSession returns the most recently written session and the time
// its last point was received. Rows without a receive time fall back to the
// device timestamp.
func (r *RouteRepository) GetLatestSession(userID string) (string, int64, error) {
	query := `SELECT session_id, CASE WHEN received_at > 0 THEN received_at ELSE timestamp END
		FROM route_points
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT 1`

	var sessionID string
	var ts int64
	err := r.db.QueryRow(query, userID).Scan(&sessionID, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to query latest session: %w", err)
	}
	return sessionID, ts, nil
}

// CountPoints returns the number of stored points of a user
func (r *RouteRepository) CountPoints(userID string) (int64, error) {
	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM route_points WHERE user_id = ?", userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count route points: %w", err)
	}
	return count, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
