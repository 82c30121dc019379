package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/nginxlb/internal/domain"
	"github.com/MrSnakeDoc/nginxlb/internal/logger"
)

const (
	// DefaultCycleInterval is the pause between two certificate cycles.
	DefaultCycleInterval = 24 * time.Hour
)

// CycleRunner runs one full certificate pass.
type CycleRunner interface {
	RunCycle(ctx context.Context) []domain.Outcome
}

// CycleScheduler drives the certificate lifecycle forever: one cycle, then
// an interruptible wait, and again. Cycles run on the caller's goroutine and
// never overlap.
type CycleScheduler struct {
	runner        CycleRunner
	logger        logger.Logger
	interval      time.Duration
	manualTrigger <-chan struct{}
}

// NewCycleScheduler creates a scheduler. manualTrigger may be nil; a value
// received on it ends the current wait early.
func NewCycleScheduler(
	runner CycleRunner,
	log logger.Logger,
	interval time.Duration,
	manualTrigger <-chan struct{},
) *CycleScheduler {
	if interval < 0 {
		interval = DefaultCycleInterval
	}

	return &CycleScheduler{
		runner:        runner,
		logger:        log,
		interval:      interval,
		manualTrigger: manualTrigger,
	}
}

// Run blocks until ctx is cancelled and returns nil. Cancellation is only
// observed between cycles; a cycle in progress runs to completion.
func (cs *CycleScheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		cs.runner.RunCycle(ctx)

		if !cs.wait(ctx) {
			return nil
		}
	}
}

// wait sleeps for the interval. It returns false when ctx is cancelled.
func (cs *CycleScheduler) wait(ctx context.Context) bool {
	cs.logger.Info("next certificate cycle scheduled",
		logger.Duration("in", cs.interval))

	timer := time.NewTimer(cs.interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-cs.manualTrigger:
		cs.logger.Info("manual certificate cycle triggered")
		return true
	case <-ctx.Done():
		return false
	}
}
