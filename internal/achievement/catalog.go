package achievement

import "github.com/jengzang/travel-journal-go/internal/models"

// Catalog returns the built-in achievements, all locked with no progress
func Catalog() []models.Achievement {
	return []models.Achievement{
		{
			ID:          "walker_1km",
			Name:        "First Steps",
			Description: "Walk 1 kilometer",
			Icon:        "fa-walking",
			Type:        models.AchievementDistance,
			Requirement: 1000,
			Reward:      50,
		},
		{
			ID:          "walker_5km",
			Name:        "Distance Walker",
			Description: "Walk 5 kilometers",
			Icon:        "fa-hiking",
			Type:        models.AchievementDistance,
			Requirement: 5000,
			Reward:      100,
		},
		{
			ID:          "walker_10km",
			Name:        "Marathon Trainee",
			Description: "Walk 10 kilometers",
			Icon:        "fa-running",
			Type:        models.AchievementDistance,
			Requirement: 10000,
			Reward:      200,
		},
		{
			ID:          "explorer_5",
			Name:        "Explorer",
			Description: "Visit 5 different hotspots",
			Icon:        "fa-map-marked-alt",
			Type:        models.AchievementHotspots,
			Requirement: 5,
			Reward:      75,
		},
		{
			ID:          "memory_10",
			Name:        "Memory Keeper",
			Description: "Save 10 memories",
			Icon:        "fa-camera",
			Type:        models.AchievementMemories,
			Requirement: 10,
			Reward:      100,
		},
		{
			ID:          "steps_1000",
			Name:        "Step Master",
			Description: "Take 1000 steps in a day",
			Icon:        "fa-shoe-prints",
			Type:        models.AchievementSteps,
			Requirement: 1000,
			Reward:      80,
		},
	}
}
