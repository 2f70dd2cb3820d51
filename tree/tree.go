// Package tree defines the spatial tree the engine walks. Building the
// tree — partitioning particles across processes, assigning top-level
// leaves to owning ranks — is an external collaborator (spec.md §1); this
// package only states the contract the engine consumes, plus (in
// octree.go) a minimal concrete implementation used by tests and the demo
// command.
package tree

import (
	"github.com/mansfield-astro/treewalk/geom"
	"github.com/mansfield-astro/treewalk/particle"
)

// ChildType is the node's traversal-state discriminator (spec.md §9,
// "node traversal state"). Ported as an explicit sum type rather than
// pointer-chasing through a polymorphic node.
type ChildType int

const (
	// Leaf holds particles directly; Node.Suns lists their indices.
	Leaf ChildType = iota
	// Pseudo stands in for a remote sub-domain; must be exported, never
	// descended locally.
	Pseudo
	// Internal has real children to descend into.
	Internal
)

// NoSibling marks a node with no sibling to move sideways to (the end of
// a branch).
const NoSibling = -1

// Node is one node of the spatial tree, as the engine sees it (spec.md
// §3 "Tree Node (external)"). The meaning of FirstChild/Suns/PseudoID
// depends on Child, mirroring the C source's tagged union
// (`current->s.suns`) but spelled out instead of reinterpreted.
type Node struct {
	Center  geom.Vec
	HalfLen float64
	Sibling int
	Child   ChildType

	// Internal only: node id of the first child to descend into.
	FirstChild int
	// Leaf only: local particle-table indices contained in this node.
	Suns []int
	// Pseudo only: identifier resolved via Tree.TopLeaf to find the
	// owning rank and remote entry node.
	PseudoID int

	TopLevel         bool // part of the replicated top-tree
	TopLevelInternal bool // internal top-tree node (not yet a leaf/pseudo)

	HmaxValid bool
	Hmax      float64
}

// TopLeafEntry maps a pseudo-node's identifier to the rank owning that
// sub-domain and the node id to resume the walk from on that rank
// (spec.md §3 "Top Leaf Map (external)").
type TopLeafEntry struct {
	Rank int
	Node int
}

// Tree is the interface the engine walks. Implementations own the node
// storage; the engine only ever dereferences via these accessors.
type Tree interface {
	// Root is the first node id to start a PRIMARY/TOPTREE walk from.
	Root() int
	// LastNode is the id one past the last real tree node; pseudo-node
	// identifiers passed to TopLeaf are offset from it, matching the C
	// source's `no - tree->lastnode` convention.
	LastNode() int
	NumParticles() int
	// Mask is the bitmask union of particle types present in this tree.
	Mask() particle.Type
	BoxSize() float64

	Node(no int) Node
	// TopLeaf resolves a pseudo-node (identified the same way as
	// Node.PseudoID for a Pseudo child) to its owning rank and remote
	// entry node.
	TopLeaf(no int) TopLeafEntry
}
