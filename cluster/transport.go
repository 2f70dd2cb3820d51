// Package cluster models the SPMD process group the engine runs across
// (spec.md §5 "Hybrid: SPMD across processes... fork-join thread
// parallelism within a process"). No Go MPI binding appears anywhere in
// the example corpus this engine was grounded on, so ranks are modeled
// as goroutines communicating over channels within one process; Transport
// is the narrow seam a real MPI or RPC binding would implement instead
// (see DESIGN.md).
package cluster

import "context"

// Transport is the set of collectives the engine's Exchange phase needs
// (spec.md §6 "MPI interface"): a dense all-to-all for counts, and a
// sparse non-blocking all-to-all for the variable-size query/result
// payloads, plus a sum-reduction for the outer driver's completion check.
type Transport interface {
	Rank() int
	Size() int

	// Alltoall exchanges one int per destination rank and returns what
	// every rank sent to this one, in rank order.
	Alltoall(ctx context.Context, send []int) ([]int, error)

	// SparseExchange posts receives before sends for data whose
	// per-rank record count is given by sendCounts/recvCounts (already
	// known from a prior Alltoall), then waits for completion. send is
	// a contiguous buffer of payloadSize-byte records laid out by
	// destination rank in rank order (prefix-summed by sendCounts); the
	// returned buffer is laid out the same way by source rank using
	// recvCounts. This mirrors the spec's "post non-blocking sparse
	// receives, then sends" ordering (spec.md §4.7 step 2).
	SparseExchange(ctx context.Context, send []byte, payloadSize int, sendCounts, recvCounts []int) ([]byte, error)

	// AllreduceSum sums v across all ranks.
	AllreduceSum(ctx context.Context, v int) (int, error)
}
