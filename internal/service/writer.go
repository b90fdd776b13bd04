package service

import (
	"context"
	"errors"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/jengzang/travel-journal-go/internal/logging"
	"github.com/jengzang/travel-journal-go/internal/metrics"
)

// Job is one fire-and-forget store write
type Job struct {
	Name   string
	UserID string
	Run    func() error
}

// WriterConfig controls the write queue and its circuit breaker
type WriterConfig struct {
	QueueSize        int
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// Writer drains store writes on a single goroutine. Failed writes are
// logged and dropped, never retried. While the store keeps failing the
// circuit breaker rejects writes without touching it.
type Writer struct {
	jobs chan Job
	cb   *gobreaker.CircuitBreaker[struct{}]

	mu     sync.RWMutex
	closed bool
}

const breakerName = "store-writer"

// NewWriter creates a writer; call Serve to start draining
func NewWriter(cfg WriterConfig) *Writer {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 256
	}
	if cfg.BreakerFailures < 1 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenDelay <= 0 {
		cfg.BreakerOpenDelay = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Writer{
		jobs: make(chan Job, cfg.QueueSize),
		cb:   cb,
	}
}

// Enqueue queues job without blocking. A full or closed queue drops it.
func (w *Writer) Enqueue(job Job) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return false
	}

	select {
	case w.jobs <- job:
		metrics.PersistenceQueueDepth.Set(float64(len(w.jobs)))
		return true
	default:
		metrics.PersistenceWrites.WithLabelValues(job.Name, "dropped").Inc()
		logging.Warn().Str("job", job.Name).Str("user", job.UserID).Msg("write queue full, dropping job")
		return false
	}
}

// Serve drains the queue until ctx is cancelled, then flushes what is left
func (w *Writer) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.Drain()
			return ctx.Err()
		case job := <-w.jobs:
			w.process(job)
		}
	}
}

// String implements fmt.Stringer for supervisor logs
func (w *Writer) String() string {
	return "store-writer"
}

// Drain runs every queued job on the calling goroutine
func (w *Writer) Drain() int {
	n := 0
	for {
		select {
		case job := <-w.jobs:
			w.process(job)
			n++
		default:
			return n
		}
	}
}

// Close stops accepting jobs
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// State returns the circuit breaker state
func (w *Writer) State() gobreaker.State {
	return w.cb.State()
}

func (w *Writer) process(job Job) {
	metrics.PersistenceQueueDepth.Set(float64(len(w.jobs)))

	_, err := w.cb.Execute(func() (struct{}, error) {
		return struct{}{}, runJob(job)
	})
	switch {
	case err == nil:
		metrics.PersistenceWrites.WithLabelValues(job.Name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.PersistenceWrites.WithLabelValues(job.Name, "rejected").Inc()
		logging.Debug().Str("job", job.Name).Str("user", job.UserID).Msg("store unavailable, write skipped")
	default:
		metrics.PersistenceWrites.WithLabelValues(job.Name, "failure").Inc()
		logging.Error().Err(err).Str("job", job.Name).Str("user", job.UserID).Msg("store write failed")
	}
}

func runJob(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("write job panicked")
			logging.Error().Interface("panic", r).Str("job", job.Name).Msg("write job panicked")
		}
	}()
	return job.Run()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
