// Package conjunction finds and scores close approaches between orbiting
// objects.
package conjunction

import (
	"errors"

	"github.com/kessler/kesslergo/internal/state"
)

// ErrNoOverlap is returned when two trajectories have no samples to
// compare. This indicates a programming or upstream-data defect, not a
// transient condition.
var ErrNoOverlap = errors.New("conjunction: trajectories have no overlapping samples")

// Approach is the closest approach found between two trajectories.
type Approach struct {
	MinDistanceKM float64
	RelSpeedKMS   float64
	TimestampMin  float64 // first trajectory's t at the minimum, minutes
}

// Closest pairs the two trajectories entry by entry and reports the pair
// with minimum positional separation, the relative speed at that instant,
// and the first trajectory's timestamp in minutes.
//
// Pairing is by index, not by matching timestamps: both trajectories are
// assumed to share step cadence and epoch offset. When lengths differ
// (propagation omissions upstream), only the overlapping prefix is
// compared; there is no resampling. Ties on distance keep the first
// occurrence.
func Closest(a, b state.Trajectory) (Approach, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return Approach{}, ErrNoOverlap
	}

	best := Approach{MinDistanceKM: -1}
	for i := 0; i < n; i++ {
		d := a[i].R.Sub(b[i].R).Norm()
		if best.MinDistanceKM < 0 || d < best.MinDistanceKM {
			best = Approach{
				MinDistanceKM: d,
				RelSpeedKMS:   a[i].V.Sub(b[i].V).Norm(),
				TimestampMin:  a[i].T / 60.0,
			}
		}
	}
	return best, nil
}
