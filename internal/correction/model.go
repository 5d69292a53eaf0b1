// Package correction refines baseline trajectories with a learned,
// physics-constrained delta model and applies the caller-selected
// fallback policy when no model is available.
package correction

import (
	"errors"
	"fmt"

	"github.com/kessler/kesslergo/internal/state"
)

// Delta is a per-sample adjustment to a baseline state vector.
type Delta struct {
	DR state.Vec3
	DV state.Vec3
}

// Model produces one delta per baseline sample. Implementations must
// return exactly len(baseline) deltas; anything else is a contract
// violation handled by the caller.
type Model interface {
	Correct(baseline state.Trajectory) ([]Delta, error)
}

// ErrUnavailable is the expected steady state when no trained model is
// loaded or inference failed. Callers resolve it via the fallback flag.
var ErrUnavailable = errors.New("correction model unavailable")

// Apply adds deltas to the baseline index for index, preserving order
// and timestamps. A length mismatch is a contract violation.
func Apply(baseline state.Trajectory, deltas []Delta) (state.Trajectory, error) {
	if len(deltas) != len(baseline) {
		return nil, fmt.Errorf("delta length %d does not match baseline length %d", len(deltas), len(baseline))
	}

	corrected := make(state.Trajectory, len(baseline))
	for i, sv := range baseline {
		corrected[i] = state.Vector{
			T: sv.T,
			R: sv.R.Add(deltas[i].DR),
			V: sv.V.Add(deltas[i].DV),
		}
	}
	return corrected, nil
}
