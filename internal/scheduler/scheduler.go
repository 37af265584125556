package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Cycle is one unit of scheduled work. *poller.Pipeline satisfies it.
type Cycle interface {
	Run(ctx context.Context) error
}

// Scheduler fires a cycle once at start and then on a fixed interval. Cycles
// never overlap: a firing that comes due while a cycle is running is skipped.
// Nothing starts once Stop has been called.
type Scheduler struct {
	cycle    Cycle
	interval time.Duration
	logger   *slog.Logger

	cron    *cron.Cron
	job     cron.Job
	wg      sync.WaitGroup // tracks the immediate firing, which cron does not own
	stopped atomic.Bool
}

// NewScheduler creates a scheduler that runs cycle every interval.
func NewScheduler(cycle Cycle, interval time.Duration, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger}
	return &Scheduler{
		cycle:    cycle,
		interval: interval,
		logger:   logger,
		cron:     cron.New(cron.WithLogger(cl)),
	}
}

// Start registers the interval schedule, starts it and fires one cycle
// immediately. Cycles run detached from ctx's cancellation, so stopping never
// aborts an in-flight upstream call.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	cycleCtx := context.WithoutCancel(ctx)
	cl := cronLogger{s.logger}
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() {
			if s.stopped.Load() {
				return
			}
			s.runCycle(cycleCtx)
		}))

	s.cron.Schedule(every(s.interval), s.job)
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
}

// Stop prevents further firings. The returned context is done once any
// in-flight cycle has finished.
func (s *Scheduler) Stop() context.Context {
	s.stopped.Store(true)
	cronDone := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// the in-flight cycle. It returns nil on graceful shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-s.Stop().Done()
	return nil
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()
	if err := s.cycle.Run(ctx); err != nil {
		s.logger.Error("poll cycle failed", "error", err)
		return
	}
	s.logger.Debug("poll cycle finished", "took", time.Since(start).String())
}

// every is a fixed-interval cron.Schedule. cron.Every rounds to whole
// seconds; this one does not.
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// cronLogger routes cron's internal logging to slog. Cron's Info chatter
// (wake, run, schedule) goes to Debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
