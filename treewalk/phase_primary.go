package treewalk

import (
	"context"
	"sync/atomic"

	"github.com/mansfield-astro/treewalk/particle"
	"github.com/mansfield-astro/treewalk/tree"
)

// primaryResult aggregates the Primary Runner's interaction counters
// across threads (spec.md §4.6 "threads contribute per-particle
// interaction min/max/sum to the walk's aggregate via reductions").
type primaryResult struct {
	interactions int64
	maxInteract  int64
	minInteract  int64
}

// runPrimary walks every particle in queue over the full local subtree
// (NodeList = {root, NoNode}), no export (pseudo-nodes already enumerated
// by the Top-tree Runner), applying reduce(mode=PRIMARY) to each result
// (spec.md §4.6 "Primary Runner"). No early exit: the export table is
// never touched in this mode, so nothing here can fill it.
func runPrimary(
	ctx context.Context,
	v *Visitor,
	t tree.Tree,
	particles particle.Table,
	queue []int,
	nThread int,
	debugIDs bool,
) (primaryResult, error) {
	sched := newChunkSchedule(len(queue), nThread)
	var walkErr atomic.Value

	lvs := make([]*LocalWalk, nThread)
	err := runWorkers(ctx, nThread, func(ctx context.Context, worker int) error {
		lv := &LocalWalk{Mode: ModePrimary, Tree: t, Particles: particles, ngbIter: newWorkerNgbIter()}
		lvs[worker] = lv
		q := v.NewQuery()

		for {
			start, end, ok := sched.next()
			if !ok {
				return nil
			}
			for k := start; k < end; k++ {
				p_i := queue[k]
				r := v.NewResult()

				initQuery(v, q, p_i, particles, nil, int32(t.Root()), debugIDs)
				initResult(r, q, debugIDs)
				lv.Target = p_i
				lv.NThisParticleExport = 0

				if _, visitErr := VisitNgbIter(v, q, r, lv); visitErr != nil {
					walkErr.Store(visitErr)
					return visitErr
				}

				v.Reduce(p_i, r, ReducePrimary, particles)
				if idErr := checkReducedID(p_i, particles, r, debugIDs); idErr != nil {
					walkErr.Store(idErr)
					return idErr
				}
			}
		}
	})
	if err != nil {
		return primaryResult{}, err
	}
	if e, ok := walkErr.Load().(error); ok {
		return primaryResult{}, e
	}

	var res primaryResult
	for _, lv := range lvs {
		res.interactions += lv.Interactions
		if lv.MaxInteractions > res.maxInteract {
			res.maxInteract = lv.MaxInteractions
		}
		if res.minInteract == 0 || (lv.MinInteractions > 0 && lv.MinInteractions < res.minInteract) {
			res.minInteract = lv.MinInteractions
		}
	}
	return res, nil
}
