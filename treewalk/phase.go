package treewalk

import (
	"context"
	"sync/atomic"

	"github.com/outofforest/parallel"
)

// chunkSchedule is the hand-rolled dynamic scheduler shared by the
// Top-tree and Primary runners (spec.md §4.6 "hand-rolled dynamic
// schedule... fetch-add rather than OpenMP dynamic"). Each worker claims
// a chunk via fetch-add on a shared counter, shrinking the chunk size as
// the tail of the work set approaches so the last few chunks don't leave
// a straggler thread holding a disproportionate share.
type chunkSchedule struct {
	counter int64
	size    int
	nThread int
	chunk   int64
}

func newChunkSchedule(size, nThread int) *chunkSchedule {
	chunk := int64(size) / int64(4*nThread)
	if chunk < 1 {
		chunk = 1
	}
	if chunk > 100 {
		chunk = 100
	}
	return &chunkSchedule{size: size, nThread: nThread, chunk: chunk}
}

// next claims the next [start, end) range, or ok=false once the work set
// is exhausted. Must only be called by one goroutine at a time per
// worker — concurrent workers each call it independently.
func (s *chunkSchedule) next() (start, end int, ok bool) {
	chnksz := atomic.LoadInt64(&s.chunk)
	chnk := atomic.AddInt64(&s.counter, chnksz) - chnksz
	if chnk >= int64(s.size) {
		return 0, 0, false
	}
	e := chnk + chnksz
	if e > int64(s.size) {
		e = int64(s.size)
	}
	if int64(s.size) < e+chnksz*int64(s.nThread) && chnksz >= 2 {
		atomic.CompareAndSwapInt64(&s.chunk, chnksz, chnksz/2)
	}
	return int(chnk), int(e), true
}

// runWorkers spawns nThread goroutines under an outofforest/parallel
// group (spec.md §5's fork-join thread pool), each calling fn once with its
// worker id, then waits for all of them and returns the group's error.
func runWorkers(ctx context.Context, nThread int, fn func(ctx context.Context, worker int) error) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for w := 0; w < nThread; w++ {
			w := w
			spawn(workerName(w), parallel.Fail, func(ctx context.Context) error {
				return fn(ctx, w)
			})
		}
		return nil
	})
}

func workerName(w int) string {
	const digits = "0123456789"
	if w < 10 {
		return "worker-" + string(digits[w])
	}
	return "worker-" + string(digits[w/10]) + string(digits[w%10])
}
