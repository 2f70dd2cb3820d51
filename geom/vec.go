// Package geom provides the periodic-box vector arithmetic shared by the
// tree-walk engine: wrapped distances, axis-aligned box/sphere culling
// tests, and the small [3]float64 position type particles and tree nodes
// are expressed in.
package geom

import "math"

// Vec is a position or displacement in the simulation box.
type Vec [3]float64

// Add returns v + w.
func (v Vec) Add(w Vec) Vec {
	return Vec{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vec) Sub(w Vec) Vec {
	return Vec{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Norm returns the Euclidean length of v.
func (v Vec) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// WrapDelta returns x1 - x2, wrapped to the image with the smallest
// magnitude inside a periodic box of the given width. Ported from
// gotetra's Header.wrapDist (box.go in the teacher repo), generalized to
// signed displacement rather than an unsigned distance since the engine
// needs the per-axis direction for r2/other bookkeeping, not just |d|.
//
// A boxSize <= 0 disables wrapping (treated as a non-periodic domain).
func WrapDelta(x1, x2, boxSize float64) float64 {
	d := x1 - x2
	if boxSize <= 0 {
		return d
	}
	if d > 0.5*boxSize {
		return d - boxSize
	}
	if d < -0.5*boxSize {
		return d + boxSize
	}
	return d
}

// WrapDeltaVec applies WrapDelta componentwise.
func WrapDeltaVec(a, b Vec, boxSize float64) Vec {
	return Vec{
		WrapDelta(a[0], b[0], boxSize),
		WrapDelta(a[1], b[1], boxSize),
		WrapDelta(a[2], b[2], boxSize),
	}
}

// PeriodicDist2 returns the squared periodic distance between a and b,
// short-circuiting as soon as the running sum exceeds maxR2. Returns
// (distance-squared, wrapped displacement a-b, true) if within maxR2, else
// (partial sum, partially filled displacement, false).
// This is the hot inner loop the spec (§4.2, §4.4) requires to
// short-circuit per axis.
func PeriodicDist2(a, b Vec, boxSize, maxR2 float64) (r2 float64, dist Vec, ok bool) {
	for d := 0; d < 3; d++ {
		dist[d] = WrapDelta(a[d], b[d], boxSize)
		r2 += dist[d] * dist[d]
		if r2 > maxR2 {
			return r2, dist, false
		}
	}
	return r2, dist, true
}
