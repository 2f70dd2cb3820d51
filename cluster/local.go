package cluster

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// round holds the in-flight contributions for one occurrence of a
// collective call. Every rank writes its slot exactly once, so once all n
// slots are filled the round is immutable and safe to read without
// further locking.
type round[T any] struct {
	mu    sync.Mutex
	data  []T
	count int
	done  chan struct{}
}

// rendezvous is an n-party barrier that exchanges one value of type T per
// rank and hands every participant the full collected slice, indexed by
// rank. It is the building block every Transport collective below is
// implemented on top of.
type rendezvous[T any] struct {
	n   int
	mu  sync.Mutex
	cur *round[T]
}

func newRendezvous[T any](n int) *rendezvous[T] {
	return &rendezvous[T]{n: n, cur: &round[T]{data: make([]T, n), done: make(chan struct{})}}
}

func (r *rendezvous[T]) exchange(ctx context.Context, rank int, v T) ([]T, error) {
	r.mu.Lock()
	rnd := r.cur
	rnd.mu.Lock()
	rnd.data[rank] = v
	rnd.count++
	last := rnd.count == r.n
	if last {
		// Swap in a fresh round before releasing either lock, so no
		// late caller of this same rendezvous can write into a round
		// that's about to be handed out as a read-only result.
		r.cur = &round[T]{data: make([]T, r.n), done: make(chan struct{})}
	}
	rnd.mu.Unlock()
	r.mu.Unlock()

	if last {
		close(rnd.done)
		return rnd.data, nil
	}

	select {
	case <-rnd.done:
		return rnd.data, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "rendezvous cancelled")
	}
}

// sparseContribution is one rank's outgoing SparseExchange payload,
// carried through the rendezvous alongside the per-destination counts
// needed to slice it back apart on the receiving side.
type sparseContribution struct {
	buf        []byte
	sendCounts []int
}

// localCluster is the shared state backing every rank's Transport in an
// in-process simulated cluster (see transport.go's package doc for why
// this stands in for a real MPI/RPC binding).
type localCluster struct {
	n         int
	counts    *rendezvous[[]int]
	sparse    *rendezvous[sparseContribution]
	allreduce *rendezvous[int]
}

// NewLocalCluster returns n Transport instances, one per simulated rank,
// that synchronize collectives among themselves via in-process channels.
// Every rank's Transport must be driven by its own goroutine and must
// call the same sequence of collectives in the same order (the lock-step
// contract of spec.md §5's SPMD model); mismatched call order deadlocks,
// same as a real MPI program.
func NewLocalCluster(n int) []Transport {
	lc := &localCluster{
		n:         n,
		counts:    newRendezvous[[]int](n),
		sparse:    newRendezvous[sparseContribution](n),
		allreduce: newRendezvous[int](n),
	}
	out := make([]Transport, n)
	for i := 0; i < n; i++ {
		out[i] = &localTransport{rank: i, lc: lc}
	}
	return out
}

type localTransport struct {
	rank int
	lc   *localCluster
}

func (t *localTransport) Rank() int { return t.rank }
func (t *localTransport) Size() int { return t.lc.n }

func (t *localTransport) Alltoall(ctx context.Context, send []int) ([]int, error) {
	if len(send) != t.lc.n {
		return nil, errors.Errorf("alltoall: send length %d != cluster size %d", len(send), t.lc.n)
	}
	all, err := t.lc.counts.exchange(ctx, t.rank, send)
	if err != nil {
		return nil, err
	}
	recv := make([]int, t.lc.n)
	for src := range all {
		recv[src] = all[src][t.rank]
	}
	return recv, nil
}

func (t *localTransport) SparseExchange(
	ctx context.Context, send []byte, payloadSize int, sendCounts, recvCounts []int,
) ([]byte, error) {
	contributions, err := t.lc.sparse.exchange(ctx, t.rank, sparseContribution{buf: send, sendCounts: sendCounts})
	if err != nil {
		return nil, err
	}

	totalRecv := 0
	destOffset := make([]int, len(contributions))
	for src, c := range recvCounts {
		destOffset[src] = totalRecv
		totalRecv += c
	}
	recv := make([]byte, totalRecv*payloadSize)

	// Each source's contribution lands at a disjoint byte range of recv, so
	// the per-source copies can be posted concurrently instead of one at a
	// time — the same shape as posting a batch of non-blocking sparse
	// receives and waiting on the whole group.
	g, _ := errgroup.WithContext(ctx)
	for src := range contributions {
		src := src
		g.Go(func() error {
			srcCounts := contributions[src].sendCounts
			offset := 0
			for dst := 0; dst < t.rank; dst++ {
				offset += srcCounts[dst]
			}
			length := srcCounts[t.rank]
			start := offset * payloadSize
			end := start + length*payloadSize
			dstStart := destOffset[src] * payloadSize
			copy(recv[dstStart:dstStart+(end-start)], contributions[src].buf[start:end])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return recv, nil
}

func (t *localTransport) AllreduceSum(ctx context.Context, v int) (int, error) {
	all, err := t.lc.allreduce.exchange(ctx, t.rank, v)
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, x := range all {
		sum += x
	}
	return sum, nil
}
