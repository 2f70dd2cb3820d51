package treewalk

import (
	"sync"

	"github.com/mansfield-astro/treewalk/particle"
)

// buildQueue constructs the active-particle work set for one walk
// (spec.md §4.1 "Queue Builder", ported from treewalk_build_queue).
// activeSet, if non-nil, restricts the walk to those particle indices;
// nil means every index in [0, particles.Len()).
//
// When v.HasWork is nil and mayHaveGarbage is false, the work set is
// exactly activeSet (or the identity range) with no copy — the "adopt
// verbatim" fast path, since nothing would be filtered out anyway.
// Otherwise each of nThread goroutines filters its contiguous static
// slice of the input into a thread-local slab, and the slabs are
// concatenated in thread order — preserving the input's relative order
// without any lock, the same guarantee gadget_compact_thread_arrays gives
// the C source.
func buildQueue(v *Visitor, particles particle.Table, activeSet []int, mayHaveGarbage bool, nThread int) []int {
	size := len(activeSet)
	if activeSet == nil {
		size = particles.Len()
	}

	if v.HasWork == nil && !mayHaveGarbage {
		if activeSet != nil {
			return activeSet
		}
		out := make([]int, size)
		for i := range out {
			out[i] = i
		}
		return out
	}

	if nThread < 1 {
		nThread = 1
	}
	if nThread > size {
		nThread = 1
	}

	thrQueues := make([][]int, nThread)
	schedsz := size/nThread + 1

	var wg sync.WaitGroup
	for tid := 0; tid < nThread; tid++ {
		tid := tid
		start := tid * schedsz
		end := start + schedsz
		if end > size {
			end = size
		}
		if start > size {
			start = size
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int, 0, end-start)
			for i := start; i < end; i++ {
				p_i := i
				if activeSet != nil {
					p_i = activeSet[i]
				}
				if particles.Get(p_i).Garbage {
					continue
				}
				if v.HasWork != nil && !v.HasWork(p_i, particles) {
					continue
				}
				local = append(local, p_i)
			}
			thrQueues[tid] = local
		}()
	}
	wg.Wait()

	total := 0
	for _, q := range thrQueues {
		total += len(q)
	}
	out := make([]int, 0, total)
	for _, q := range thrQueues {
		out = append(out, q...)
	}
	return out
}
