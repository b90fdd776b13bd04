package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 5, 10, 23, 0, 0, 0, time.UTC)

func TestRunDueFollowsIntervals(t *testing.T) {
	clock := NewManualClock(start)
	s := New(clock)

	var ticks, checks int
	s.Every("tick", 10*time.Second, func(context.Context, time.Time) { ticks++ })
	s.Every("rollover", time.Hour, func(context.Context, time.Time) { checks++ })

	for i := 0; i < 360; i++ {
		clock.Advance(10 * time.Second)
		s.RunDue(context.Background(), clock.Now())
	}

	assert.Equal(t, 360, ticks)
	assert.Equal(t, 1, checks)
}

func TestRunDueDoesNotReplayMissedRuns(t *testing.T) {
	clock := NewManualClock(start)
	s := New(clock)

	var ticks int
	s.Every("tick", 10*time.Second, func(context.Context, time.Time) { ticks++ })

	clock.Advance(time.Minute)
	assert.Equal(t, 1, s.RunDue(context.Background(), clock.Now()))
	assert.Equal(t, 1, ticks)

	next, ok := s.NextRun()
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(10*time.Second), next)
}

func TestRunDueContainsPanics(t *testing.T) {
	clock := NewManualClock(start)
	s := New(clock)

	var ran bool
	s.Every("bad", time.Second, func(context.Context, time.Time) { panic("boom") })
	s.Every("good", time.Second, func(context.Context, time.Time) { ran = true })

	clock.Advance(time.Second)
	assert.NotPanics(t, func() { s.RunDue(context.Background(), clock.Now()) })
	assert.True(t, ran)
}

func TestRunWithManualClock(t *testing.T) {
	clock := NewManualClock(start)
	s := New(clock)

	var ticks atomic.Int32
	s.Every("tick", 10*time.Second, func(context.Context, time.Time) { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for i := 1; i <= 3; i++ {
		require.Eventually(t, func() bool { return clock.Waiters() == 1 }, time.Second, time.Millisecond)
		clock.Advance(10 * time.Second)
		want := int32(i)
		require.Eventually(t, func() bool { return ticks.Load() == want }, time.Second, time.Millisecond)
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunWithoutTasksWaitsForCancel(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)
	_, ok := s.NextRun()
	assert.False(t, ok)
	assert.Equal(t, "scheduler", s.String())
}

func TestManualClockAfter(t *testing.T) {
	clock := NewManualClock(start)

	immediate := clock.After(0)
	select {
	case <-immediate:
	default:
		t.Fatal("non-positive durations fire immediately")
	}

	ch := clock.After(time.Minute)
	clock.Advance(30 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	clock.Advance(30 * time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, start.Add(time.Minute), got)
	default:
		t.Fatal("did not fire")
	}
	assert.Zero(t, clock.Waiters())
}
