package treewalk

import (
	"context"

	"github.com/mansfield-astro/treewalk/particle"
	"github.com/mansfield-astro/treewalk/tree"
)

// runSecondary evaluates every imported query in GHOSTS mode, producing
// an equally-long slice of results (spec.md §4.6 "Secondary Runner").
// Ghosts never export, so buffer exhaustion cannot occur here.
func runSecondary(
	ctx context.Context,
	v *Visitor,
	t tree.Tree,
	particles particle.Table,
	imports []Query,
	nThread int,
	debugIDs bool,
) ([]Result, error) {
	results := make([]Result, len(imports))
	sched := newChunkSchedule(len(imports), nThread)

	err := runWorkers(ctx, nThread, func(ctx context.Context, worker int) error {
		lv := &LocalWalk{Mode: ModeGhosts, Tree: t, Particles: particles, Target: -1, ngbIter: newWorkerNgbIter()}

		for {
			start, end, ok := sched.next()
			if !ok {
				return nil
			}
			for k := start; k < end; k++ {
				q := imports[k]
				r := v.NewResult()
				initResult(r, q, debugIDs)

				if _, err := VisitNgbIter(v, q, r, lv); err != nil {
					return err
				}
				results[k] = r
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
