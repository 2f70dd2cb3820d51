// Package density is a worked example kernel: SPH-style density and
// smoothing-length estimation built on the engine's Visitor contract,
// exercising the Adaptive hsml Loop (spec.md §4.9). It is grounded on the
// original's density treewalk (treewalk_do_hsml_loop's primary caller)
// but carries no physics beyond the neighbour-counting loop itself —
// enough to drive the loop to convergence without depending on a
// particular equation of state.
package density

import (
	"math"

	"github.com/mansfield-astro/treewalk/particle"
	"github.com/mansfield-astro/treewalk/treewalk"
)

// DesiredNeighbours is the target neighbour count the hsml loop
// converges towards, analogous to All.DesNumNgb in the original.
const DesiredNeighbours = 32.0

// Query is this kernel's fixed-size wire payload; BaseQuery supplies
// Pos/NodeList/ID.
type Query struct {
	treewalk.BaseQuery
	Hsml float64
}

func (q *Query) QueryBase() *treewalk.BaseQuery { return &q.BaseQuery }

// Result accumulates the running density estimate for one particle.
type Result struct {
	treewalk.BaseResult
	NumNgb  float64
	Density float64
}

func (r *Result) ResultBase() *treewalk.BaseResult { return &r.BaseResult }

// bracket tracks the bisection state the loop's NeedsRedo callback
// updates, the Go analogue of the original's Left[]/Right[] arrays.
type bracket struct {
	left, right float64
}

// State is the per-run working set a call to Build needs: the kernel's
// own Hsml guesses and bisection brackets, indexed by particle index.
type State struct {
	particles particle.Table
	brackets  map[int]*bracket
}

// NewState allocates density estimation state for tbl; Hsml on each
// particle is used as the initial guess.
func NewState(tbl particle.Table) *State {
	return &State{particles: tbl, brackets: map[int]*bracket{}}
}

func (s *State) bracketFor(p_i int) *bracket {
	b, ok := s.brackets[p_i]
	if !ok {
		// Right starts at the box size, the same "no upper bound found
		// yet" sentinel the original's Right[] array is seeded with;
		// NarrowDown's unbounded-edge branch checks against this.
		b = &bracket{right: boxSizeOf(s.particles)}
		s.brackets[p_i] = b
	}
	return b
}

// Build returns the HsmlKernel driving the convergence loop for this
// state (spec.md §4.9).
func (s *State) Build() treewalk.HsmlKernel {
	v := &treewalk.Visitor{
		Label: "density",

		NewQuery:  func() treewalk.Query { return &Query{} },
		NewResult: func() treewalk.Result { return &Result{} },

		Fill: func(p_i int, q treewalk.Query, particles particle.Table) {
			q.(*Query).Hsml = particles.Get(p_i).Hsml
		},

		NgbIter: func(q treewalk.Query, result treewalk.Result, it *treewalk.NgbIter, particles particle.Table) {
			qq := q.(*Query)
			rr := result.(*Result)
			if it.Other == treewalk.NoCandidate {
				it.Hsml = qq.Hsml
				it.Mask = particle.TypeGas
				return
			}
			// Cubic-spline-shaped falloff, close enough to a real SPH
			// kernel's qualitative behaviour to drive convergence
			// without committing this exercise to a specific physics
			// normalization.
			u := it.R / it.Hsml
			w := math.Max(0, 1-u*u*u)
			rr.NumNgb++
			rr.Density += w
		},

		Reduce: func(p_i int, result treewalk.Result, mode treewalk.ReduceMode, particles particle.Table) {
			rr := result.(*Result)
			b := s.bracketFor(p_i)
			p := particles.Get(p_i)
			newHsml := treewalk.NarrowDown(&b.right, &b.left,
				[]float64{p.Hsml}, []float64{rr.NumNgb}, DesiredNeighbours, boxSizeOf(particles))
			particles.SetHsml(p_i, newHsml)
		},
	}

	return treewalk.HsmlKernel{
		Visitor: v,
		NeedsRedo: func(p_i int, particles particle.Table) bool {
			b := s.bracketFor(p_i)
			return b.right == 0 || b.right-b.left > 1e-3*b.right
		},
	}
}

// boxSizeOf is a placeholder hook for callers that need the periodic box
// size inside Reduce without threading it through particle.Table; demo
// and test callers supply particle tables backed by a fixed box and can
// override this via SetBoxSize.
var globalBoxSize = 1.0

// SetBoxSize configures the box size NarrowDown uses to detect an
// unbounded right bracket (spec.md §4.9 "special-cases unbounded right").
func SetBoxSize(size float64) { globalBoxSize = size }

func boxSizeOf(particle.Table) float64 { return globalBoxSize }
