package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Report is the combined outcome of every registered check.
type Report struct {
	Status Status
	Checks map[string]Result
}

// Aggregator combines multiple health checkers into a single composite
// check, run in parallel.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates a new health aggregator. Timeout bounds one
// whole aggregation pass; default 10 seconds.
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{timeout: timeout}
}

// Register adds a health checker to the aggregator.
func (a *Aggregator) Register(c Checker) {
	a.mu.Lock()
	a.checkers = append(a.checkers, c)
	a.mu.Unlock()
}

// Check runs every registered checker in parallel and combines the
// results. The report is unhealthy if any single check is.
func (a *Aggregator) Check(ctx context.Context) Report {
	a.mu.RLock()
	checkers := make([]Checker, len(a.checkers))
	copy(checkers, a.checkers)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	report := Report{Status: StatusHealthy, Checks: make(map[string]Result, len(checkers))}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range checkers {
		g.Go(func() error {
			start := time.Now()
			res := c.Check(ctx)
			res.Duration = time.Since(start)

			mu.Lock()
			report.Checks[c.Name()] = res
			if res.Status == StatusUnhealthy {
				report.Status = StatusUnhealthy
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return report
}
