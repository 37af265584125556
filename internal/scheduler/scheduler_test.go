package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// --- Fakes ---

type countingCycle struct {
	starts  atomic.Int32
	calls   atomic.Int32
	running atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
	err     error
}

func (c *countingCycle) Run(_ context.Context) error {
	c.starts.Add(1)
	n := c.running.Add(1)
	for {
		m := c.maxSeen.Load()
		if n <= m || c.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(c.delay)
	c.running.Add(-1)
	c.calls.Add(1)
	return c.err
}

// blockingCycle runs until release is closed.
type blockingCycle struct {
	started  chan struct{}
	release  chan struct{}
	finished atomic.Bool
	ctxErr   atomic.Value
}

func (c *blockingCycle) Run(ctx context.Context) error {
	close(c.started)
	<-c.release
	if err := ctx.Err(); err != nil {
		c.ctxErr.Store(err)
	}
	c.finished.Store(true)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Tests ---

func TestRun_FiresImmediately(t *testing.T) {
	cycle := &countingCycle{}
	s := NewScheduler(cycle, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	if got := cycle.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (immediate firing only)", got)
	}
}

func TestRun_FiresOnInterval(t *testing.T) {
	cycle := &countingCycle{}
	s := NewScheduler(cycle, 50*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(230 * time.Millisecond)
	cancel()
	<-done

	if got := cycle.calls.Load(); got < 3 {
		t.Errorf("calls = %d, want >= 3", got)
	}
}

func TestRun_CyclesNeverOverlap(t *testing.T) {
	cycle := &countingCycle{delay: 40 * time.Millisecond}
	s := NewScheduler(cycle, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	if got := cycle.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent cycles = %d, want 1", got)
	}
	if got := cycle.calls.Load(); got < 2 {
		t.Errorf("calls = %d, want >= 2", got)
	}
}

func TestRun_CycleErrorDoesNotStopScheduling(t *testing.T) {
	cycle := &countingCycle{err: errors.New("upstream down")}
	s := NewScheduler(cycle, 30*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(150 * time.Millisecond)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("expected nil on shutdown, got %v", err)
	}
	if got := cycle.calls.Load(); got < 2 {
		t.Errorf("calls = %d, want >= 2", got)
	}
}

func TestRun_ShutdownWaitsForInFlightCycle(t *testing.T) {
	cycle := &blockingCycle{started: make(chan struct{}), release: make(chan struct{})}
	s := NewScheduler(cycle, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-cycle.started
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned while a cycle was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(cycle.release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the cycle finished")
	}

	if !cycle.finished.Load() {
		t.Error("cycle did not finish")
	}
	if v := cycle.ctxErr.Load(); v != nil {
		t.Errorf("cycle context was cancelled by shutdown: %v", v)
	}
}

func TestStop_NoFiringsAfterStop(t *testing.T) {
	cycle := &countingCycle{}
	s := NewScheduler(cycle, 20*time.Millisecond, discardLogger())

	s.Start(context.Background())
	time.Sleep(70 * time.Millisecond)
	<-s.Stop().Done()

	after := cycle.calls.Load()
	time.Sleep(80 * time.Millisecond)
	if got := cycle.calls.Load(); got != after {
		t.Errorf("calls grew from %d to %d after Stop", after, got)
	}
}

func TestStop_SlowCycleNoStartsAfterStop(t *testing.T) {
	cycle := &countingCycle{delay: 100 * time.Millisecond}
	s := NewScheduler(cycle, 10*time.Millisecond, discardLogger())

	s.Start(context.Background())
	time.Sleep(250 * time.Millisecond)

	begin := time.Now()
	stopped := s.Stop()
	startsAtStop := cycle.starts.Load()

	select {
	case <-stopped.Done():
	case <-time.After(time.Second):
		t.Fatal("Stop did not finish within a second")
	}
	if took := time.Since(begin); took > 300*time.Millisecond {
		t.Errorf("Stop took %v, want at most one in-flight cycle", took)
	}

	time.Sleep(100 * time.Millisecond)
	if got := cycle.starts.Load(); got != startsAtStop {
		t.Errorf("starts grew from %d to %d after Stop", startsAtStop, got)
	}
	if got := cycle.running.Load(); got != 0 {
		t.Errorf("running = %d after Stop finished", got)
	}
	if got := cycle.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent cycles = %d, want 1", got)
	}
}

func TestEvery_SubSecond(t *testing.T) {
	base := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	if got := every(250 * time.Millisecond).Next(base); !got.Equal(base.Add(250 * time.Millisecond)) {
		t.Errorf("Next = %v", got)
	}
}
