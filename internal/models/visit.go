package models

// Visit records a hotspot the user has checked in at
type Visit struct {
	HotspotID string  `json:"hotspotId" db:"hotspot_id" binding:"required,max=128"`
	Name      string  `json:"name" db:"name" binding:"max=256"`
	Latitude  float64 `json:"lat" db:"lat" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"lng" db:"lng" binding:"gte=-180,lte=180"`
	VisitedAt int64   `json:"visitedAt" db:"visited_at"` // Unix milliseconds
}

// MemoryKind is the media type of a memory
type MemoryKind string

const (
	MemoryPhoto MemoryKind = "photo"
	MemoryAudio MemoryKind = "audio"
	MemoryText  MemoryKind = "text"
)

// Memory is the metadata of a geotagged photo, audio clip or note.
// Media bytes live in external object storage.
type Memory struct {
	ID        string     `json:"id" db:"id"`
	Kind      MemoryKind `json:"kind" db:"kind"`
	Title     string     `json:"title,omitempty" db:"title"`
	Content   string     `json:"content,omitempty" db:"content"`
	Latitude  *float64   `json:"lat,omitempty" db:"lat"`
	Longitude *float64   `json:"lng,omitempty" db:"lng"`
	CreatedAt int64      `json:"createdAt" db:"created_at"` // Unix milliseconds
}

// CreateMemoryRequest is the request body for POST /memories
type CreateMemoryRequest struct {
	Kind      MemoryKind `json:"kind" binding:"required,oneof=photo audio text"`
	Title     string     `json:"title" binding:"max=256"`
	Content   string     `json:"content" binding:"max=4096"`
	Latitude  *float64   `json:"lat" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64   `json:"lng" binding:"omitempty,gte=-180,lte=180"`
}
