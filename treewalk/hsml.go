package treewalk

import (
	"context"
	"fmt"
	"math"

	"github.com/mansfield-astro/treewalk/cluster"
	"github.com/mansfield-astro/treewalk/particle"
	"github.com/mansfield-astro/treewalk/tree"
)

// HsmlKernel is the extra contract a density-like kernel satisfies to
// drive the adaptive smoothing-length convergence loop (spec.md §4.9),
// layered on top of an ordinary Visitor.
type HsmlKernel struct {
	*Visitor

	// NeedsRedo is called once per queue particle after a Run pass; it
	// returns true if the particle's desired neighbour count was not
	// yet bracketed and should be retried next iteration. The kernel
	// is expected to have already updated the particle's Hsml (via
	// NarrowDown) and its own Left/Right bookkeeping before returning.
	NeedsRedo func(p_i int, particles particle.Table) bool
}

// RunHsmlLoop wraps Run in the convergence loop adaptive-smoothing-length
// kernels need (spec.md §4.9, ported from treewalk_do_hsml_loop): after
// each pass, NeedsRedo selects which particles to retry, the redo set is
// compacted into the next queue, and the loop repeats until the global
// redo count is zero or the iteration ceiling is hit.
//
// The original alternates the redo queue between two memory arena
// "sides" (high/low) so both can be live during compaction; here that is
// modeled as alternating which of two reusable slices absorbs each
// round's redo list, since Go's GC makes the slab distinction a
// performance nicety rather than a correctness requirement.
func RunHsmlLoop(
	ctx context.Context,
	cfg Config,
	t cluster.Transport,
	k HsmlKernel,
	tr tree.Tree,
	particles particle.Table,
	activeSet []int,
) ([]Stats, error) {
	maxIter := cfg.Engine.MaxIter
	if maxIter == 0 {
		maxIter = 1000
	}

	queue := activeSet
	var bufs [2][]int
	side := 0

	var allStats []Stats
	for iter := 0; ; iter++ {
		st, err := Run(ctx, cfg, t, k.Visitor, tr, particles, queue)
		if err != nil {
			return allStats, err
		}
		allStats = append(allStats, st)

		redo := bufs[side][:0]
		for _, p_i := range queue {
			if k.NeedsRedo(p_i, particles) {
				redo = append(redo, p_i)
			}
		}
		bufs[side] = redo
		side = 1 - side

		total, err := t.AllreduceSum(ctx, len(redo))
		if err != nil {
			return allStats, err
		}
		if total == 0 {
			break
		}
		if iter+1 > maxIter {
			return allStats, &ConvergenceError{
				msg: fmt.Sprintf("failed to converge %q for %d particles after %d iterations", k.Label, total, iter+1),
			}
		}
		queue = redo
	}
	return allStats, nil
}

func cube(x float64) float64 { return x * x * x }

// NarrowDown implements ngb_narrow_down (spec.md §4.9 "Helper
// narrow_down"): given the current [left, right] bracket and the
// (radius, neighbour-count) samples tried for one particle so far, picks
// the sample closest to desNumNgb, tightens left/right in place, and
// returns the next radius to try. radius must be sorted ascending.
func NarrowDown(right, left *float64, radius, numNgb []float64, desNumNgb, boxSize float64) float64 {
	close := 0
	ngbdist := math.Abs(numNgb[0] - desNumNgb)
	for j := 1; j < len(radius); j++ {
		if d := math.Abs(numNgb[j] - desNumNgb); d < ngbdist {
			ngbdist = d
			close = j
		}
	}

	for j := 0; j < len(radius); j++ {
		if numNgb[j] < desNumNgb {
			*left = radius[j]
		}
		if numNgb[j] > desNumNgb {
			*right = radius[j]
			break
		}
	}

	hsml := radius[close]
	n := len(radius)

	if *right > 0.99*boxSize {
		var dngbdv float64
		if n > 1 && radius[n-1] > radius[n-2] {
			dngbdv = (numNgb[n-1] - numNgb[n-2]) / (cube(radius[n-1]) - cube(radius[n-2]))
		}
		// Approaching an unbounded right edge: grow aggressively but
		// cap the factor to avoid a single pass exploding the radius.
		newhsml := 4 * hsml
		if dngbdv > 0 {
			dngb := desNumNgb - numNgb[n-1]
			newvolume := cube(hsml) + dngb/dngbdv
			if cbrt := math.Cbrt(newvolume); cbrt < newhsml {
				newhsml = cbrt
			}
		}
		hsml = newhsml
	}
	if hsml > *right {
		hsml = *right
	}

	if *left == 0 {
		var dngbdv float64
		if n > 1 && radius[1] > radius[0] {
			dngbdv = (numNgb[1] - numNgb[0]) / (cube(radius[1]) - cube(radius[0]))
		}
		if n == 1 && radius[0] > 0 {
			dngbdv = numNgb[0] / cube(radius[0])
		}
		if dngbdv > 0 {
			dngb := desNumNgb - numNgb[0]
			newvolume := cube(hsml) + dngb/dngbdv
			hsml = math.Cbrt(newvolume)
		}
	}
	if hsml < *left {
		hsml = *left
	}

	return hsml
}
