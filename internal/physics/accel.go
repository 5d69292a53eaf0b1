// Package physics models the accelerations acting on a low-Earth-orbit
// object and derives physics-consistency residuals for trajectories.
// All positions are km, velocities km/s, accelerations km/s².
package physics

import (
	"math"

	"github.com/kessler/kesslergo/internal/state"
)

// Physical constants. These values are fixed model parameters; changing
// any of them changes residual magnitudes and breaks parity with trained
// correction checkpoints.
const (
	MuEarthKM3S2   = 398600.4418 // gravitational parameter, km³/s²
	EarthRadiusKM  = 6378.1363
	DragCoeff      = 2.2
	AreaToMassM2KG = 0.01 // A/m for drag, m²/kg
	ScaleHeightKM  = 60.0
	SurfaceDensity = 4e-12  // ρ0 at h=0, kg/m³
	SolarPressure  = 4.5e-6 // P0, N/m²
	SRPAreaToMass  = 0.01   // Cr·A/m, m²/kg

	normEps = 1e-9 // guards divisions at the origin
)

// AtmosphericDensity returns the exponential-atmosphere density (kg/m³)
// at altitude hKM above the Earth radius.
func AtmosphericDensity(hKM float64) float64 {
	return SurfaceDensity * math.Exp(-hKM/ScaleHeightKM)
}

// TwoBody returns the point-mass gravitational acceleration -μ·r/|r|³.
func TwoBody(r state.Vec3) state.Vec3 {
	n := r.Norm() + normEps
	return r.Scale(-MuEarthKM3S2 / (n * n * n))
}

// Drag returns the atmospheric drag acceleration
// -½·Cd·(A/m)·ρ(h)·|v|·v, computed in m/s and converted back to km/s².
func Drag(r, v state.Vec3) state.Vec3 {
	h := r.Norm() - EarthRadiusKM
	rho := AtmosphericDensity(h)
	vMS := v.Scale(1000.0)
	vmag := vMS.Norm() + normEps
	aMS2 := vMS.Scale(-0.5 * DragCoeff * AreaToMassM2KG * rho * vmag)
	return aMS2.Scale(1.0 / 1000.0)
}

// SRP returns the solar radiation pressure acceleration: a constant
// magnitude P0·Cr·(A/m) directed outward along r̂.
func SRP(r state.Vec3) state.Vec3 {
	n := r.Norm() + normEps
	aMS2 := r.Scale(SolarPressure * SRPAreaToMass / n)
	return aMS2.Scale(1.0 / 1000.0)
}

// Acceleration returns the total modeled acceleration at state (r, v):
// two-body gravity + drag + solar radiation pressure.
func Acceleration(r, v state.Vec3) state.Vec3 {
	return TwoBody(r).Add(Drag(r, v)).Add(SRP(r))
}
