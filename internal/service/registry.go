package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jengzang/travel-journal-go/internal/metrics"
	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/repository"
	"github.com/jengzang/travel-journal-go/internal/scheduler"
	"github.com/jengzang/travel-journal-go/internal/tracking"
)

// Registry creates and holds one Journal per user
type Registry struct {
	cfg    JournalConfig
	stores Stores
	writer *Writer
	live   Broadcaster
	clock  scheduler.Clock

	mu       sync.Mutex
	journals map[string]*Journal
}

// NewRegistry creates an empty registry. writer and live may be nil.
func NewRegistry(cfg JournalConfig, stores Stores, writer *Writer, live Broadcaster, clock scheduler.Clock) *Registry {
	if clock == nil {
		clock = scheduler.RealClock{}
	}
	return &Registry{
		cfg:      cfg,
		stores:   stores,
		writer:   writer,
		live:     live,
		clock:    clock,
		journals: make(map[string]*Journal),
	}
}

// Journal returns the user's journal, loading it on first use
func (r *Registry) Journal(userID string) *Journal {
	r.mu.Lock()
	defer r.mu.Unlock()

	if j, ok := r.journals[userID]; ok {
		return j
	}
	j := loadJournal(userID, r.cfg, r.stores, r.writer, r.live, r.clock)
	r.journals[userID] = j
	metrics.ActiveJournals.Set(float64(len(r.journals)))
	return j
}

// Len returns the number of loaded journals
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.journals)
}

func (r *Registry) all() []*Journal {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Journal, 0, len(r.journals))
	for _, j := range r.journals {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].userID < out[b].userID })
	return out
}

// TickAll accrues time walked for every journal
func (r *Registry) TickAll(_ context.Context, now time.Time) {
	for _, j := range r.all() {
		j.Tick(now)
	}
}

// RolloverAll runs the day rollover check on every journal
func (r *Registry) RolloverAll(_ context.Context, now time.Time) {
	for _, j := range r.all() {
		j.Rollover(now)
	}
}

// DailyStats returns the stats of date. Today comes from memory, other
// days from the store.
func (r *Registry) DailyStats(userID, date string) (*models.DailyStats, error) {
	day, err := time.ParseInLocation("2006-01-02", date, r.location())
	if err != nil {
		return nil, ErrInvalidDate
	}

	j := r.Journal(userID)
	snap := j.Snapshot()
	if snap.Daily.Date == tracking.DateKey(day) {
		return &snap.Daily, nil
	}
	return r.stores.Stats.GetDaily(userID, tracking.DateKey(day))
}

// History returns the most recent stored days
func (r *Registry) History(userID string, limit int) ([]models.DailyStats, error) {
	return r.stores.Stats.ListDaily(userID, limit)
}

// Memories lists the user's stored memories
func (r *Registry) Memories(userID string, limit int) ([]models.Memory, error) {
	return r.stores.Memories.List(userID, limit)
}

// Visits lists the user's stored visits
func (r *Registry) Visits(userID string) ([]models.Visit, error) {
	return r.stores.Visits.List(userID)
}

func (r *Registry) location() *time.Location {
	if r.cfg.Location == nil {
		return time.Local
	}
	return r.cfg.Location
}

// IsNotFound reports whether err means a missing record
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
