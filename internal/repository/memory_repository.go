package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/travel-journal-go/internal/models"
)

// MemoryRepository stores memory metadata
type MemoryRepository struct {
	db *sql.DB
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db *sql.DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// Create inserts a memory
func (r *MemoryRepository) Create(userID string, m models.Memory) error {
	query := `INSERT INTO memories (id, user_id, kind, title, content, lat, lng, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query, m.ID, userID, string(m.Kind), m.Title, m.Content, m.Latitude, m.Longitude, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// List returns a user's memories, newest first
func (r *MemoryRepository) List(userID string, limit int) ([]models.Memory, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	rows, err := r.db.Query(`SELECT id, kind, title, content, lat, lng, created_at
		FROM memories WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	memories := make([]models.Memory, 0)
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}

// GetByID returns one memory of a user
func (r *MemoryRepository) GetByID(userID, id string) (*models.Memory, error) {
	row := r.db.QueryRow(`SELECT id, kind, title, content, lat, lng, created_at
		FROM memories WHERE user_id = ? AND id = ?`, userID, id)

	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(s scanner) (*models.Memory, error) {
	var m models.Memory
	var kind string
	var title, content sql.NullString
	var lat, lng sql.NullFloat64
	if err := s.Scan(&m.ID, &kind, &title, &content, &lat, &lng, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan memory: %w", err)
	}
	m.Kind = models.MemoryKind(kind)
	m.Title = title.String
	m.Content = content.String
	m.Latitude = nullFloat(lat)
	m.Longitude = nullFloat(lng)
	return &m, nil
}
