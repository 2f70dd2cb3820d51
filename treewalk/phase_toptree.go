package treewalk

import (
	"context"
	"sync/atomic"

	"github.com/mansfield-astro/treewalk/particle"
	"github.com/mansfield-astro/treewalk/tree"
)

// topTreeResult summarizes one Top-tree Runner pass (spec.md §4.6
// "Top-tree Runner"). This pass only enumerates exports — no kernel
// reduction happens here, since TOPTREE mode never surfaces a real
// candidate to dispatchCandidates (spec.md §4.3).
type topTreeResult struct {
	bufferFull  bool
	resumeStart int // next WorkSetStart if bufferFull
}

// runTopTree walks queue[resumeStart:] in TOPTREE mode, exporting pseudo-
// nodes into table's thread-local regions, until either the work set is
// exhausted or an export region fills. On fill, every worker rolls back
// its partially exported particle and the minimum last-completed index
// across workers (reduced with MIN) becomes the next resumeStart (spec.md
// §4.6 "the next-iteration starting point is min(lastSucceeded) + 1").
func runTopTree(
	ctx context.Context,
	v *Visitor,
	t tree.Tree,
	particles particle.Table,
	queue []int,
	resumeStart int,
	table *exportTable,
	evaluated []bool,
	nThread int,
	debugIDs bool,
) (topTreeResult, error) {
	remaining := queue[resumeStart:]
	sched := newChunkSchedule(len(remaining), nThread)

	var full int32
	lastSucceeded := make([]int, nThread)
	for i := range lastSucceeded {
		lastSucceeded[i] = resumeStart - 1
	}
	var walkErr atomic.Value

	err := runWorkers(ctx, nThread, func(ctx context.Context, worker int) error {
		lv := &LocalWalk{Mode: ModeTopTree, Tree: t, Particles: particles, export: table.regions[worker], ngbIter: newWorkerNgbIter()}
		q := v.NewQuery()
		r := v.NewResult()

	chunks:
		for {
			if atomic.LoadInt32(&full) != 0 {
				return nil
			}
			start, end, ok := sched.next()
			if !ok {
				return nil
			}
			for k := start; k < end; k++ {
				if atomic.LoadInt32(&full) != 0 {
					return nil
				}
				globalK := resumeStart + k
				if evaluated != nil && evaluated[globalK] {
					continue
				}
				p_i := remaining[k]

				initQuery(v, q, p_i, particles, nil, int32(t.Root()), debugIDs)
				initResult(r, q, debugIDs)
				lv.Target = p_i
				lv.NThisParticleExport = 0

				rt, visitErr := VisitNgbIter(v, q, r, lv)
				if visitErr != nil {
					walkErr.Store(visitErr)
					atomic.StoreInt32(&full, 1)
					return nil
				}
				if rt < 0 {
					table.regions[worker].rollback(lv.NThisParticleExport)
					atomic.StoreInt32(&full, 1)
					break chunks
				}

				lastSucceeded[worker] = globalK
				if evaluated != nil {
					evaluated[globalK] = true
				}
			}
		}
	})
	if err != nil {
		return topTreeResult{}, err
	}
	if e, ok := walkErr.Load().(error); ok {
		return topTreeResult{}, e
	}

	res := topTreeResult{bufferFull: full != 0}
	if res.bufferFull {
		min := lastSucceeded[0]
		for _, ls := range lastSucceeded[1:] {
			if ls < min {
				min = ls
			}
		}
		res.resumeStart = min + 1
	} else {
		res.resumeStart = len(queue)
	}
	return res, nil
}
