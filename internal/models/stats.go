package models

// DailyStats holds the counters of one calendar day
type DailyStats struct {
	Date            string   `json:"date" db:"date"` // YYYY-MM-DD
	StepsToday      int      `json:"stepsToday" db:"steps_today"`
	DistanceToday   float64  `json:"distanceToday" db:"distance_today"`       // meters
	TimeWalkedToday float64  `json:"timeWalkedToday" db:"time_walked_today"` // seconds
	PlacesVisited   int      `json:"placesVisited" db:"places_visited"`
	MemoriesSaved   int      `json:"memoriesSaved" db:"memories_saved"`
	HighestAltitude *float64 `json:"highestAltitude,omitempty" db:"highest_altitude"` // meters
}

// DistanceKm converts today's distance for display
func (s DailyStats) DistanceKm() float64 {
	return s.DistanceToday / 1000
}

// Progression is the all-time leveling state
type Progression struct {
	AllTimeDistance float64 `json:"allTimeDistance" db:"all_time_distance"` // meters
	Level           int     `json:"level" db:"level"`
	XP              int     `json:"xp" db:"xp"`
	XPToNextLevel   int     `json:"xpToNextLevel" db:"xp_to_next_level"`
	LastResetDate   string  `json:"lastResetDate,omitempty" db:"last_reset_date"`
}

// StatsSnapshot is a consistent copy of daily stats and progression
type StatsSnapshot struct {
	Daily       DailyStats  `json:"daily"`
	Progression Progression `json:"progression"`
}

// StatsResponse is returned by GET /stats
type StatsResponse struct {
	StatsSnapshot
	DistanceTodayKm   float64 `json:"distanceTodayKm"`
	AllTimeDistanceKm float64 `json:"allTimeDistanceKm"`
	AverageSpeedKmh   float64 `json:"averageSpeedKmh"`
}

// AverageSpeedKmh is today's distance over time walked, 0 before any time is recorded
func (s DailyStats) AverageSpeedKmh() float64 {
	if s.TimeWalkedToday <= 0 {
		return 0
	}
	return s.DistanceKm() / (s.TimeWalkedToday / 3600)
}
