package physics

import (
	"math"

	"github.com/kessler/kesslergo/internal/state"
)

// Residual holds the RMS physics-consistency residuals of a trajectory.
// Position is the RMS of r' − v_mid (km/s), Velocity the RMS of
// v' − a(r_mid, v_mid) (km/s²). Both tend toward zero for a trajectory
// that obeys the modeled dynamics.
type Residual struct {
	Position float64 `json:"position"`
	Velocity float64 `json:"velocity"`
}

// Residuals computes finite-difference residuals for traj. For each
// adjacent pair of samples it forms central-difference derivatives over
// the actual pair spacing and compares them against the midpoint state's
// velocity and modeled acceleration. The RMS is taken over all residual
// vector components.
//
// Returns ok=false when traj has fewer than two samples; a single state
// has no derivative, and this is a diagnostic rather than an error path.
func Residuals(traj state.Trajectory) (Residual, bool) {
	if len(traj) < 2 {
		return Residual{}, false
	}

	var sumR, sumV float64
	n := 0
	for i := 0; i+1 < len(traj); i++ {
		a, b := traj[i], traj[i+1]
		dt := b.T - a.T
		if dt <= 0 {
			continue
		}

		rPrime := b.R.Sub(a.R).Scale(1.0 / dt)
		vPrime := b.V.Sub(a.V).Scale(1.0 / dt)
		rMid := a.R.Add(b.R).Scale(0.5)
		vMid := a.V.Add(b.V).Scale(0.5)

		rRes := rPrime.Sub(vMid)
		vRes := vPrime.Sub(Acceleration(rMid, vMid))

		sumR += rRes.Dot(rRes)
		sumV += vRes.Dot(vRes)
		n++
	}
	if n == 0 {
		return Residual{}, false
	}

	// RMS over all 3·n residual components.
	den := float64(3 * n)
	return Residual{
		Position: math.Sqrt(sumR / den),
		Velocity: math.Sqrt(sumV / den),
	}, true
}
