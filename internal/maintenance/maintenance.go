// Package maintenance runs the periodic background jobs that sit
// outside the per-invocation pipeline: a stale-lease sweep (log only,
// never mutate) and a revalidation of the stock-resolution golden
// cases. Grounded on the teacher's internal/taskmanager package: a
// package-level gocron.Scheduler plus one RegisterXService function
// per job (internal/taskmanager/compressionService.go).
package maintenance

import (
	"context"
	"time"

	"github.com/feedpipe/catalog-worker/internal/checkpoint"
	"github.com/feedpipe/catalog-worker/internal/marketplace"
	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/go-co-op/gocron/v2"
)

var s gocron.Scheduler

// Start creates the scheduler and registers the background jobs.
// staleAfter is the lease-staleness threshold the sweep reports on.
func Start(store *checkpoint.SQLStore, staleAfter time.Duration) error {
	var err error
	s, err = gocron.NewScheduler()
	if err != nil {
		return err
	}

	registerStaleLeaseSweep(store, staleAfter)
	registerSelfCheck()

	s.Start()
	return nil
}

// Shutdown stops the scheduler.
func Shutdown() {
	if s != nil {
		s.Shutdown()
	}
}

// registerStaleLeaseSweep logs (never mutates) runs whose checkpoint
// has not advanced in longer than staleAfter, so an operator can
// decide whether to intervene. It intentionally never requeues or
// clears a lease itself: the orchestrator alone owns lease lifecycle.
func registerStaleLeaseSweep(store *checkpoint.SQLStore, staleAfter time.Duration) {
	s.NewJob(gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			runs, err := store.StaleRuns(ctx, int64(staleAfter.Seconds()))
			if err != nil {
				log.Warnf("maintenance: stale-lease sweep failed: %s", err.Error())
				return
			}
			for _, runID := range runs {
				log.Warnf("maintenance: run %s has not advanced in over %s", runID, staleAfter)
			}
		}))
}

// registerSelfCheck re-validates the stock-resolution golden cases on
// a fixed interval, so a future code change that breaks one of the
// frozen scenarios is caught even between deploys, not only at
// invocation time.
func registerSelfCheck() {
	s.NewJob(gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			if err := marketplace.SelfCheck(); err != nil {
				log.Errorf("maintenance: marketplace self-check failed: %s", err.Error())
			}
		}))
}
