package tracking

import (
	"math"
	"time"
)

const (
	gravity = 9.81

	// DefaultStepThreshold is the deviation from gravity counted as a step (m/s²)
	DefaultStepThreshold = 1.2
	// DefaultStepCooldown is the minimum time between two steps
	DefaultStepCooldown = 250 * time.Millisecond
)

// MotionSample is one accelerometer reading including gravity
type MotionSample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp int64   `json:"timestamp" binding:"gte=0"` // Unix milliseconds
}

// StepDetector counts steps from acceleration peaks
type StepDetector struct {
	threshold float64
	cooldown  time.Duration
	lastStep  int64
	hasStep   bool
	count     int
}

// NewStepDetector creates a detector with the default threshold and cooldown
func NewStepDetector() *StepDetector {
	return &StepDetector{threshold: DefaultStepThreshold, cooldown: DefaultStepCooldown}
}

// Feed reports whether s registers a step
func (d *StepDetector) Feed(s MotionSample) bool {
	magnitude := math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
	if math.Abs(magnitude-gravity) <= d.threshold {
		return false
	}
	if d.hasStep && s.Timestamp-d.lastStep < d.cooldown.Milliseconds() {
		return false
	}
	d.hasStep = true
	d.lastStep = s.Timestamp
	d.count++
	return true
}

// FeedAll returns the number of steps in samples
func (d *StepDetector) FeedAll(samples []MotionSample) int {
	steps := 0
	for _, s := range samples {
		if d.Feed(s) {
			steps++
		}
	}
	return steps
}

// Count is the total number of steps detected
func (d *StepDetector) Count() int {
	return d.count
}

// Reset zeroes the step count
func (d *StepDetector) Reset() {
	d.count = 0
	d.hasStep = false
	d.lastStep = 0
}
