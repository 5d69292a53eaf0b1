package state

import "math"

// Vec3 is a 3-vector in the Earth-centered inertial frame.
// Components are kilometers for positions and km/s for velocities.
type Vec3 [3]float64

// Add returns a + b.
func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Scale returns a scaled by s.
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a[0] * s, a[1] * s, a[2] * s}
}

// Dot returns the dot product of a and b.
func (a Vec3) Dot(b Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Norm returns the Euclidean length of a.
func (a Vec3) Norm() float64 {
	return math.Sqrt(a.Dot(a))
}

// Vector is a state vector: a time-tagged ECI position/velocity pair.
// T is seconds since the element-set epoch. Immutable once produced.
type Vector struct {
	T float64 `json:"t"`
	R Vec3    `json:"r"` // km
	V Vec3    `json:"v"` // km/s
}

// Trajectory is an ordered sequence of state vectors with strictly
// increasing T. The nominal step is 60 s, but propagation failures leave
// gaps, so consumers must not assume fixed length or uniform spacing.
type Trajectory []Vector
