package treewalk

import "github.com/outofforest/mass"

// threadArena is one OpenMP-thread-equivalent goroutine's private slab of
// reusable records, grounded on outofforest-quantum's use of mass.Mass for
// its per-request/per-entry pools (space/space.go, queue/queue.go). Each
// worker goroutine pulls its one NgbIter record from a slab sized up front
// (see walk.go's newWorkerNgbIter) instead of letting every VisitNgbIter
// call heap-allocate its own, so a dynamic-schedule thread never contends
// on a shared allocator (spec.md §5 "thread-local... no locking").
type threadArena[T any] struct {
	m *mass.Mass[T]
}

// newThreadArena preallocates capacity records; the arena grows past that
// in the same doubling chunks mass.Mass itself uses, it just avoids the
// first few reallocations on the hot path.
func newThreadArena[T any](capacity int) *threadArena[T] {
	return &threadArena[T]{m: mass.New[T](uint64(capacity))}
}

func (a *threadArena[T]) alloc() *T {
	return a.m.New()
}
