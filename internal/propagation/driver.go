package propagation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kessler/kesslergo/internal/metrics"
	"github.com/kessler/kesslergo/internal/state"
	"github.com/kessler/kesslergo/internal/tle"
)

// stepInterval is the sampling cadence of generated trajectories. The
// conjunction analyzer pairs trajectories by index, so every driver in
// the process must use the same cadence.
const stepInterval = time.Minute

// Config holds propagation configuration loaded from environment variables.
type Config struct {
	Workers    int // batch pool size (default: runtime.NumCPU())
	MaxMinutes int // upper bound on requested durations
}

// Driver turns an element set plus a duration into an ECI trajectory by
// stepping the SGP4 primitive at one-minute cadence from the element-set
// epoch.
type Driver struct {
	logger *slog.Logger
}

// NewDriver creates a trajectory driver.
func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{logger: logger}
}

// stepper is the propagator primitive: absolute time in, ECI state out,
// error on a failed step.
type stepper interface {
	StateAt(t time.Time) (state.Vec3, state.Vec3, error)
}

// Propagate samples the object's state at minutes m = 0..durationMinutes
// inclusive. A step where the propagator fails is omitted from the output
// rather than retried or padded, so the result may be shorter than
// durationMinutes+1 entries and non-uniformly spaced; T stays strictly
// increasing. Downstream consumers must not assume fixed length or step.
func (d *Driver) Propagate(ctx context.Context, set tle.ElementSet, durationMinutes int) (state.Trajectory, error) {
	if durationMinutes < 0 {
		return nil, fmt.Errorf("duration must be >= 0 minutes, got %d", durationMinutes)
	}

	prop, err := NewSGP4(set.Line1, set.Line2, set.NoradID)
	if err != nil {
		return nil, err
	}
	return d.run(ctx, prop, set, durationMinutes)
}

// run drives the step primitive across the sampling grid, omitting
// failed steps.
func (d *Driver) run(ctx context.Context, prop stepper, set tle.ElementSet, durationMinutes int) (state.Trajectory, error) {
	start := time.Now()
	traj := make(state.Trajectory, 0, durationMinutes+1)
	var skipped int
	for m := 0; m <= durationMinutes; m++ {
		if err := ctx.Err(); err != nil {
			return traj, err
		}

		r, v, err := prop.StateAt(set.Epoch.Add(time.Duration(m) * stepInterval))
		if err != nil {
			skipped++
			d.logger.Debug("propagation step omitted",
				"norad_id", set.NoradID,
				"minute", m,
				"error", err,
			)
			continue
		}

		traj = append(traj, state.Vector{
			T: float64(m) * stepInterval.Seconds(),
			R: r,
			V: v,
		})
	}

	metrics.RecordPropagation(time.Since(start), len(traj), skipped)
	if skipped > 0 {
		d.logger.Warn("propagation completed with omitted steps",
			"norad_id", set.NoradID,
			"steps", len(traj),
			"omitted", skipped,
		)
	}
	return traj, nil
}
