package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jengzang/travel-journal-go/internal/logging"
)

// TaskFunc is the body of a periodic task
type TaskFunc func(ctx context.Context, now time.Time)

type task struct {
	name     string
	interval time.Duration
	fn       TaskFunc
	next     time.Time
}

// Scheduler runs tasks at fixed intervals. Missed runs are not replayed:
// a late task runs once and is rescheduled an interval after that run.
type Scheduler struct {
	clock Clock

	mu    sync.Mutex
	tasks []*task
}

// New creates a scheduler on clock
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{clock: clock}
}

// Every registers fn to run every interval, first one interval from now
func (s *Scheduler) Every(name string, interval time.Duration, fn TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &task{
		name:     name,
		interval: interval,
		fn:       fn,
		next:     s.clock.Now().Add(interval),
	})
}

// RunDue runs every task whose time has come and returns how many ran
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if !t.next.After(now) {
			due = append(due, t)
			t.next = now.Add(t.interval)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		runTask(ctx, t, now)
	}
	return len(due)
}

// NextRun returns the earliest scheduled time, false without tasks
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next time.Time
	for i, t := range s.tasks {
		if i == 0 || t.next.Before(next) {
			next = t.next
		}
	}
	return next, len(s.tasks) > 0
}

// Run blocks running due tasks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next, ok := s.NextRun()
		if !ok {
			<-ctx.Done()
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(next.Sub(s.clock.Now())):
			s.RunDue(ctx, s.clock.Now())
		}
	}
}

// Serve implements suture.Service
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().Msg("scheduler started")
	err := s.Run(ctx)
	logging.Info().Msg("scheduler stopped")
	return err
}

// String implements fmt.Stringer for supervisor logs
func (s *Scheduler) String() string {
	return "scheduler"
}

func runTask(ctx context.Context, t *task, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Str("task", t.name).Interface("panic", r).Msg("scheduled task panicked")
		}
	}()
	t.fn(ctx, now)
}
