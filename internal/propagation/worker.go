package propagation

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/kessler/kesslergo/internal/state"
	"github.com/kessler/kesslergo/internal/tle"
)

// batchJob is a unit of work for the worker pool.
type batchJob struct {
	set     tle.ElementSet
	minutes int
}

// batchResult is the output of propagating a single element set.
type batchResult struct {
	set  tle.ElementSet
	traj state.Trajectory
	err  error
}

// Pool manages a fixed number of goroutines for propagating many element
// sets in parallel. Trajectories are independent, so no synchronization
// is needed beyond collecting results.
type Pool struct {
	workers int
	driver  *Driver
	logger  *slog.Logger
}

// NewPool creates a worker pool with the given number of workers.
func NewPool(workers int, driver *Driver, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		driver:  driver,
		logger:  logger,
	}
}

// PropagateBatch produces one trajectory per element set, keyed by object
// name (disambiguated with the NORAD ID on collision). Element sets that
// fail SGP4 initialization are logged and skipped. Returns the
// trajectories plus success and failure counts.
func (p *Pool) PropagateBatch(ctx context.Context, sets []tle.ElementSet, durationMinutes int) (map[string]state.Trajectory, int, int) {
	if len(sets) == 0 {
		return nil, 0, 0
	}

	jobs := make(chan batchJob, p.workers*2)
	results := make(chan batchResult, p.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				traj, err := p.driver.Propagate(ctx, job.set, job.minutes)
				select {
				case results <- batchResult{set: job.set, traj: traj, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, set := range sets {
			select {
			case jobs <- batchJob{set: set, minutes: durationMinutes}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	trajectories := make(map[string]state.Trajectory, len(sets))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			p.logger.Warn("batch propagation failed",
				"norad_id", result.set.NoradID,
				"name", result.set.Name,
				"error", result.err,
			)
			continue
		}
		successCount++
		trajectories[batchKey(trajectories, result.set)] = result.traj
	}

	return trajectories, successCount, errorCount
}

// batchKey returns the object name, qualified with the NORAD ID when the
// plain name is already taken.
func batchKey(existing map[string]state.Trajectory, set tle.ElementSet) string {
	if _, taken := existing[set.Name]; !taken {
		return set.Name
	}
	return set.Name + " (" + strconv.Itoa(set.NoradID) + ")"
}
