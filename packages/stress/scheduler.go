package stress

import (
	"context"
	"sync/atomic"

	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
	"golang.org/x/time/rate"
)

// Scheduler paces scenario runs and bounds how many are in flight.
type Scheduler struct {
	limiter   *rate.Limiter
	sem       chan struct{}
	scenarios []*workflow.Scenario
	next      atomic.Uint64
}

func NewScheduler(config *Config, scenarios []*workflow.Scenario) *Scheduler {
	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		limiter:   rate.NewLimiter(rate.Limit(config.Rate), 1),
		sem:       make(chan struct{}, concurrency),
		scenarios: scenarios,
	}
}

// Next returns the scenarios in turn, starting over after the last one.
func (s *Scheduler) Next() *workflow.Scenario {
	if len(s.scenarios) == 0 {
		return nil
	}
	i := s.next.Add(1) - 1
	return s.scenarios[i%uint64(len(s.scenarios))]
}

// Wait blocks until the rate limiter allows another run
func (s *Scheduler) Wait(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

// Acquire acquires a slot from the concurrency semaphore
func (s *Scheduler) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a slot back to the semaphore
func (s *Scheduler) Release() {
	<-s.sem
}
