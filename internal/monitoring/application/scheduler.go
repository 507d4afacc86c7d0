package application

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"solar-watch/internal/observability/metrics"
)

// Runner executes one cycle.
type Runner interface {
	RunCycle(ctx context.Context) CycleResult
}

// Scheduler runs a cycle immediately and then on a fixed period measured
// from cycle start. A tick that arrives while a cycle is in flight is dropped.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *log.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewScheduler constructs a Scheduler.
func NewScheduler(runner Runner, interval time.Duration, logger *log.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("scheduler: nil runner")
	}
	if interval <= 0 {
		return nil, errors.New("scheduler: interval must be positive")
	}
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}, nil
}

// Start blocks until ctx is done, then waits for the in-flight cycle.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.runner == nil {
		return
	}
	defer s.wg.Wait()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("scheduler: stopping")
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger starts a cycle unless one is running. In-flight cycles are not
// cancelled on shutdown; their outbound calls carry their own timeouts.
func (s *Scheduler) trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		metrics.IncTickSkipped()
		s.logger.Printf("scheduler: tick skipped, previous cycle still running")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.runner.RunCycle(context.WithoutCancel(ctx))
	}()
	return true
}
