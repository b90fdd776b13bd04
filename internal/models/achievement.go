package models

// AchievementType selects which stat an achievement tracks
type AchievementType string

const (
	AchievementDistance AchievementType = "distance"
	AchievementHotspots AchievementType = "hotspots"
	AchievementMemories AchievementType = "memories"
	AchievementSteps    AchievementType = "steps"
)

// Achievement is a catalog entry plus the user's progress on it
type Achievement struct {
	ID          string          `json:"id" db:"achievement_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Type        AchievementType `json:"type"`
	Requirement float64         `json:"requirement"`
	Reward      int             `json:"reward"`
	Progress    float64         `json:"progress" db:"progress"`
	Unlocked    bool            `json:"unlocked" db:"unlocked"`
	UnlockedAt  *int64          `json:"unlockedAt,omitempty" db:"unlocked_at"` // Unix milliseconds
}

// AchievementState is the persisted part of an achievement
type AchievementState struct {
	AchievementID string  `db:"achievement_id"`
	Progress      float64 `db:"progress"`
	Unlocked      bool    `db:"unlocked"`
	UnlockedAt    *int64  `db:"unlocked_at"`
}
