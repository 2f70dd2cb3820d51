package treewalk

import (
	"context"
	"sort"

	"github.com/mansfield-astro/treewalk/cluster"
	"github.com/mansfield-astro/treewalk/particle"
)

// exchangeCounts tallies this rank's per-destination export counts from
// table and performs the dense Alltoall to learn how many queries every
// other rank is about to send here (spec.md §4.7 step 1 "count
// exchange"). The returned entries are grouped by destination task
// (stable, so each task's exports keep their original relative order) —
// the layout exchangeQueries' payload buffer and recvCounts both assume.
func exchangeCounts(ctx context.Context, t cluster.Transport, table *exportTable) (sendCounts, recvCounts []int, entries []ExportEntry, err error) {
	entries = table.flatten()
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Task < entries[j].Task })

	n := t.Size()
	sendCounts = make([]int, n)
	for _, e := range entries {
		sendCounts[e.Task]++
	}
	recvCounts, err = t.Alltoall(ctx, sendCounts)
	if err != nil {
		return nil, nil, nil, err
	}
	return sendCounts, recvCounts, entries, nil
}

// exchangeQueries builds the query payload for every export entry and
// ships them via the transport's sparse non-blocking all-to-all, posting
// receives before sends per the Transport contract (spec.md §4.7 step 2).
// The returned slice is the imports this rank must run through the
// Secondary Runner, in source-rank-contiguous order matching recvCounts.
func exchangeQueries(
	ctx context.Context, t cluster.Transport, v *Visitor, particles particle.Table,
	entries []ExportEntry, sendCounts, recvCounts []int, debugIDs bool,
) ([]Query, error) {
	sample := v.NewQuery()
	payloadSize := sizeOf(sample)
	if payloadSize < 0 {
		return nil, fatalf(0, "%q: query type is not a fixed-size struct", v.Label)
	}
	if payloadSize%8 != 0 {
		return nil, fatalf(0, "%q: query structure has size %d, not aligned to a 64-bit boundary", v.Label, payloadSize)
	}

	send := make([]byte, len(entries)*payloadSize)
	for i, e := range entries {
		q := v.NewQuery()
		nl := e.NodeList
		initQuery(v, q, e.Index, particles, &nl, 0, debugIDs)
		copy(send[i*payloadSize:], encodeFixed(q))
	}

	recvBuf, err := t.SparseExchange(ctx, send, payloadSize, sendCounts, recvCounts)
	if err != nil {
		return nil, err
	}

	total := len(recvBuf) / payloadSize
	imports := make([]Query, total)
	for i := 0; i < total; i++ {
		q := v.NewQuery()
		decodeFixed(recvBuf[i*payloadSize:(i+1)*payloadSize], q)
		imports[i] = q
	}
	return imports, nil
}

// exchangeResults ships the Secondary Runner's results back to the ranks
// that requested them — the mirror image of exchangeQueries with send
// and receive counts swapped, since what we received as queries we now
// send back as results, and what we sent as queries we now receive back
// as results (spec.md §4.7 step 4 "send results back").
func exchangeResults(ctx context.Context, t cluster.Transport, v *Visitor, results []Result, sendCounts, recvCounts []int) ([]Result, error) {
	sample := v.NewResult()
	payloadSize := sizeOf(sample)
	if payloadSize < 0 {
		return nil, fatalf(0, "%q: result type is not a fixed-size struct", v.Label)
	}
	if payloadSize%8 != 0 {
		return nil, fatalf(0, "%q: result structure has size %d, not aligned to a 64-bit boundary", v.Label, payloadSize)
	}

	send := make([]byte, len(results)*payloadSize)
	for i, r := range results {
		copy(send[i*payloadSize:], encodeFixed(r))
	}

	recvBuf, err := t.SparseExchange(ctx, send, payloadSize, recvCounts, sendCounts)
	if err != nil {
		return nil, err
	}

	total := len(recvBuf) / payloadSize
	out := make([]Result, total)
	for i := 0; i < total; i++ {
		r := v.NewResult()
		decodeFixed(recvBuf[i*payloadSize:(i+1)*payloadSize], r)
		out[i] = r
	}
	return out, nil
}
