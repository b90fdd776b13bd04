package service

import (
	"github.com/jengzang/travel-journal-go/internal/config"
	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/progression"
	"github.com/jengzang/travel-journal-go/internal/tracking"
)

// fallbackAccuracy is reported for the fallback coordinate so it reads as poor
const fallbackAccuracy = 100

// NewJournalConfig maps the application configuration onto the pipeline
func NewJournalConfig(cfg *config.Config) JournalConfig {
	return JournalConfig{
		Tracking: tracking.Config{
			Filter: tracking.FilterConfig{
				MinAccuracyMeters:      cfg.Tracking.MinAccuracyMeters,
				MinMovementMeters:      cfg.Tracking.MinMovementMeters,
				MaxPlausibleStepMeters: cfg.Tracking.MaxPlausibleStepMeters,
				RouteJumpMeters:        cfg.Tracking.RouteJumpMeters,
			},
			MaxRoutePoints: cfg.Tracking.MaxRoutePoints,
			SessionGap:     cfg.Tracking.SessionGapThreshold,
			Fallback: models.Position{
				Latitude:  cfg.Tracking.FallbackLat,
				Longitude: cfg.Tracking.FallbackLng,
				Accuracy:  fallbackAccuracy,
			},
		},
		Progression: progression.Config{
			XPPerKm:              cfg.Progression.XPPerKm,
			XPPerStep:            cfg.Progression.XPPerStep,
			VisitBonusXP:         cfg.Progression.VisitBonusXP,
			MemoryBonusXP:        cfg.Progression.MemoryBonusXP,
			LevelUpMultiplier:    cfg.Progression.LevelUpMultiplier,
			InitialXPToNextLevel: cfg.Progression.InitialXPToNextLevel,
			MetersPerStep:        cfg.Progression.MetersPerStep,
		},
		Location: cfg.Location(),
	}
}

// NewWriterConfig maps the persistence settings onto the store writer
func NewWriterConfig(cfg *config.Config) WriterConfig {
	return WriterConfig{
		QueueSize:        cfg.Persistence.QueueSize,
		BreakerFailures:  cfg.Persistence.BreakerFailures,
		BreakerOpenDelay: cfg.Persistence.BreakerOpenDelay,
	}
}
