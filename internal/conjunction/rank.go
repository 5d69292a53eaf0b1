package conjunction

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/kessler/kesslergo/internal/metrics"
	"github.com/kessler/kesslergo/internal/state"
)

// Event is a ranked conjunction between the debris object and one target.
// Derived and read-only: recomputed on every request, never persisted.
type Event struct {
	Target        string  `json:"target"`
	MinDistanceKM float64 `json:"min_distance_km"`
	TimestampMin  float64 `json:"timestamp_min"`
	RelSpeedKMS   float64 `json:"rel_speed_kms"`
	RiskScore     float64 `json:"risk_score"`
}

// Rank analyzes the debris trajectory against every target and returns
// conjunction events sorted by risk score descending, ties broken by
// smaller minimum distance first (the closer approach ranks higher among
// equal-risk entries).
//
// Targets are independent, so analysis runs on a bounded set of
// goroutines. distanceScaleKM is used as the scorer's d0 for all targets.
// An empty target trajectory is a hard error: it indicates a defect
// upstream, not a transient condition.
func Rank(ctx context.Context, debris state.Trajectory, targets map[string]state.Trajectory, distanceScaleKM float64) ([]Event, error) {
	start := time.Now()

	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	events := make([]Event, len(names))
	errs := make([]error, len(names))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, name := range names {
		wg.Add(1)
		go func(idx int, name string, target state.Trajectory) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			}

			approach, err := Closest(debris, target)
			if err != nil {
				errs[idx] = fmt.Errorf("target %q: %w", name, err)
				return
			}
			events[idx] = Event{
				Target:        name,
				MinDistanceKM: approach.MinDistanceKM,
				TimestampMin:  approach.TimestampMin,
				RelSpeedKMS:   approach.RelSpeedKMS,
				RiskScore:     Score(approach.MinDistanceKM, approach.RelSpeedKMS, distanceScaleKM),
			}
		}(i, name, targets[name])
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].RiskScore != events[j].RiskScore {
			return events[i].RiskScore > events[j].RiskScore
		}
		return events[i].MinDistanceKM < events[j].MinDistanceKM
	})

	metrics.RecordRank(time.Since(start))
	return events, nil
}
