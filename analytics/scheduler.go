package analytics

import (
	"context"
	"sync"
	"time"
)

// Scheduler fires the rollup once per day at a fixed UTC time. It owns only
// the timing; the Aggregator owns the logic, so tests exercise RunForDay
// directly without waiting for wall-clock triggers.
type Scheduler struct {
	agg     *Aggregator
	hour    int
	minute  int
	timeout time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler creates a Scheduler firing daily at hour:minute UTC.
// Each run is capped by timeout so a wedged store cannot hang the loop.
func NewScheduler(agg *Aggregator, hour, minute int, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Scheduler{
		agg:     agg,
		hour:    hour,
		minute:  minute,
		timeout: timeout,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the scheduling loop in a background goroutine.
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		for {
			now := s.agg.now()
			timer := time.NewTimer(nextFireTime(now, s.hour, s.minute).Sub(now))
			select {
			case <-s.stop:
				timer.Stop()
				return
			case <-timer.C:
			}

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			// Errors are already logged by the Aggregator; the job has no
			// caller expecting a result and the next day's trigger is the
			// retry. Missed days are recovered via RunForDay backfill.
			_, _ = s.agg.Run(ctx)
			cancel()
		}
	}()
}

// Stop terminates the loop. Safe to call more than once; it does not cancel a
// run already in flight.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// nextFireTime returns the first hour:minute UTC instant strictly after now.
func nextFireTime(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
