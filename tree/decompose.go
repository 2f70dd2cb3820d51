package tree

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// AssignOwners deterministically spreads a set of leaf node ids across
// nRanks simulated remote owners, standing in for the real domain
// decomposition this package only states the contract for (tree.go's
// package doc). Hashing the node id rather than round-robining it means
// the assignment is stable across repeated calls with a growing leaf set
// — useful for tests that build a tree once and then want a consistent
// rank map to derive from it.
func AssignOwners(leafIDs []int, nRanks int) map[int]TopLeafEntry {
	out := make(map[int]TopLeafEntry, len(leafIDs))
	if nRanks <= 0 {
		return out
	}
	var buf [8]byte
	for _, id := range leafIDs {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(id)))
		h := xxhash.Sum64(buf[:])
		out[id] = TopLeafEntry{Rank: int(h % uint64(nRanks)), Node: id}
	}
	return out
}
