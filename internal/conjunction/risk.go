package conjunction

import "math"

// DefaultSpeedScaleKMS is the relative-speed scale v0: roughly the
// circular orbital speed in LEO.
const DefaultSpeedScaleKMS = 7.5

// minDistanceScaleKM floors d0 so the proximity term degenerates
// gracefully instead of dividing by zero.
const minDistanceScaleKM = 1e-6

// Score maps a closest-approach distance (km) and relative speed (km/s)
// to a risk value in [0, 1]:
//
//	proximity = 1 / (1 + (d/d0)²)
//	risk      = proximity · tanh(v/v0)
//
// The score is non-increasing in d, non-decreasing in v, and never hits
// a hard zero for finite distances; d = d0 gives proximity exactly 0.5.
// Negative inputs are clamped to zero rather than rejected, guarding
// against malformed upstream data.
func Score(distanceKM, relSpeedKMS, distanceScaleKM float64) float64 {
	return ScoreWithSpeedScale(distanceKM, relSpeedKMS, distanceScaleKM, DefaultSpeedScaleKMS)
}

// ScoreWithSpeedScale is Score with an explicit speed scale v0.
func ScoreWithSpeedScale(distanceKM, relSpeedKMS, distanceScaleKM, speedScaleKMS float64) float64 {
	d0 := math.Max(minDistanceScaleKM, distanceScaleKM)
	d := math.Max(0, distanceKM)
	v := math.Max(0, relSpeedKMS)

	proximity := 1.0 / (1.0 + (d/d0)*(d/d0))
	speedFactor := math.Tanh(v / speedScaleKMS)

	s := proximity * speedFactor
	return math.Min(1, math.Max(0, s))
}
