package stats

import (
	"math"
	"sort"
	"time"

	"github.com/jengzang/travel-journal-go/internal/models"
)

const dateLayout = "2006-01-02"

// HistorySummary aggregates a range of stored days
type HistorySummary struct {
	Days            int     `json:"days"`
	ActiveDays      int     `json:"activeDays"`
	TotalDistance   float64 `json:"totalDistance"` // meters
	TotalSteps      int     `json:"totalSteps"`
	TotalTimeWalked float64 `json:"totalTimeWalked"` // seconds
	MeanDistance    float64 `json:"meanDistance"`    // meters per day
	MedianSteps     float64 `json:"medianSteps"`
	P90Distance     float64 `json:"p90Distance"` // meters
	BestDay         string  `json:"bestDay,omitempty"`
	BestDayDistance float64 `json:"bestDayDistance"`
	// CurrentStreak counts consecutive active days ending at the latest day
	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`
}

// Active reports whether the user moved at all that day
func Active(d models.DailyStats) bool {
	return d.DistanceToday > 0 || d.StepsToday > 0
}

// Summarize aggregates days in any order
func Summarize(days []models.DailyStats) HistorySummary {
	if len(days) == 0 {
		return HistorySummary{}
	}

	sorted := make([]models.DailyStats, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	distances := make([]float64, len(sorted))
	steps := make([]float64, len(sorted))
	s := HistorySummary{Days: len(sorted)}
	for i, d := range sorted {
		distances[i] = d.DistanceToday
		steps[i] = float64(d.StepsToday)
		s.TotalSteps += d.StepsToday
		s.TotalTimeWalked += d.TimeWalkedToday
		if Active(d) {
			s.ActiveDays++
		}
	}

	s.TotalDistance = Sum(distances)
	s.MeanDistance = round1(Mean(distances))
	s.MedianSteps = Median(steps)
	s.P90Distance = round1(Percentile(distances, 90))
	if best := ArgMax(distances); best >= 0 && distances[best] > 0 {
		s.BestDay = sorted[best].Date
		s.BestDayDistance = distances[best]
	}
	s.CurrentStreak, s.LongestStreak = streaks(sorted)
	return s
}

// streaks walks sorted days; a missing calendar day breaks a streak
func streaks(sorted []models.DailyStats) (current, longest int) {
	run := 0
	var prev time.Time
	for _, d := range sorted {
		day, err := time.Parse(dateLayout, d.Date)
		if err != nil || !Active(d) {
			run = 0
			continue
		}
		if run > 0 && day.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		prev = day
		if run > longest {
			longest = run
		}
	}
	if last := sorted[len(sorted)-1]; Active(last) {
		current = run
	}
	return current, longest
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
