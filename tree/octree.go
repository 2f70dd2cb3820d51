package tree

import (
	"github.com/mansfield-astro/treewalk/geom"
	"github.com/mansfield-astro/treewalk/particle"
)

// Octree is a minimal in-memory spatial tree used by tests and the demo
// command. Real deployments build the tree from a domain decomposition
// (an external collaborator per spec.md §1); Octree exists only so the
// engine has something concrete to walk without that machinery.
//
// It supports a single rank (no pseudo-nodes, no top-tree) and an
// optional "remote" mode where a subset of leaves are marked Pseudo and
// resolve through a caller-supplied TopLeaf map — enough to exercise the
// export/exchange path in tests with more than one simulated rank.
type Octree struct {
	nodes     []Node
	numPart   int
	boxSize   float64
	mask      particle.Type
	topLeaves map[int]TopLeafEntry
}

const maxLeafOccupancy = 8

// BuildOctree partitions ps (by position) into a simple bisecting octree
// rooted on the full periodic box [0, boxSize)^3. Every node it builds is
// local; callers turn nodes into Pseudo nodes afterwards with MarkPseudo
// to simulate a multi-rank domain decomposition in tests.
func BuildOctree(tbl *particle.SliceTable, boxSize float64) *Octree {
	t := &Octree{
		numPart:   tbl.Len(),
		boxSize:   boxSize,
		topLeaves: map[int]TopLeafEntry{},
	}

	idx := make([]int, tbl.Len())
	for i := range idx {
		idx[i] = i
		t.mask |= tbl.Get(i).Type
	}

	center := [3]float64{boxSize / 2, boxSize / 2, boxSize / 2}
	t.build(tbl, idx, center, boxSize/2, NoSibling)
	return t
}

// MarkPseudo converts leaf node `no` into a Pseudo node owned by the
// given rank/remote-node pair. Used by tests to carve out a simulated
// remote sub-domain.
func (t *Octree) MarkPseudo(no int, owner TopLeafEntry) {
	n := t.nodes[no]
	n.Child = Pseudo
	n.PseudoID = no - t.LastNode()
	n.Suns = nil
	t.nodes[no] = n
	// Keyed the same way finder.go resolves it (Tree.TopLeaf(no -
	// t.LastNode())), not by the raw node id.
	t.topLeaves[no-t.LastNode()] = owner
}

// MarkTopLevel flags node `no` (and, if internal, requests its subtree be
// treated as part of the replicated top-tree) — used by tests that need
// to exercise the TOPTREE walk phase explicitly.
func (t *Octree) MarkTopLevel(no int, internal bool) {
	n := t.nodes[no]
	n.TopLevel = true
	n.TopLevelInternal = internal
	t.nodes[no] = n
}

// build recurses depth-first in ascending octant-bit order, assigning node
// ids as it goes. nextSibling is the node to resume the stack-free descend
// at (finder.go's descend: no = node.Sibling) once this entire subtree has
// been visited or skipped — normally the next populated octant among this
// node's own siblings, or, for the last of them, the enclosing node's own
// nextSibling propagated one level further down. Threading it through the
// recursion is what lets a skipped last child hand control back up past its
// parent instead of falling off the edge of the tree.
func (t *Octree) build(tbl *particle.SliceTable, idx []int, center [3]float64, halfLen float64, nextSibling int) int {
	no := len(t.nodes)
	t.nodes = append(t.nodes, Node{})

	if len(idx) <= maxLeafOccupancy || halfLen < 1e-9 {
		t.nodes[no] = Node{
			Center:  geom.Vec(center),
			HalfLen: halfLen,
			Sibling: nextSibling,
			Child:   Leaf,
			Suns:    append([]int(nil), idx...),
		}
		return no
	}

	var octants [8][]int
	for _, i := range idx {
		p := tbl.Get(i)
		bit := 0
		for d := 0; d < 3; d++ {
			if p.Pos[d] >= center[d] {
				bit |= 1 << d
			}
		}
		octants[bit] = append(octants[bit], i)
	}

	t.nodes[no] = Node{
		Center:  geom.Vec(center),
		HalfLen: halfLen,
		Sibling: nextSibling,
		Child:   Internal,
	}

	lastBit := -1
	for bit := 7; bit >= 0; bit-- {
		if len(octants[bit]) > 0 {
			lastBit = bit
			break
		}
	}

	childHalf := halfLen / 2
	var firstChild = -1
	var prevChild = -1
	for bit := 0; bit < 8; bit++ {
		if len(octants[bit]) == 0 {
			continue
		}
		childCenter := center
		for d := 0; d < 3; d++ {
			if bit&(1<<d) != 0 {
				childCenter[d] += childHalf
			} else {
				childCenter[d] -= childHalf
			}
		}
		childNextSibling := NoSibling
		if bit == lastBit {
			childNextSibling = nextSibling
		}
		childNo := t.build(tbl, octants[bit], childCenter, childHalf, childNextSibling)
		if firstChild < 0 {
			firstChild = childNo
		}
		if prevChild >= 0 {
			n := t.nodes[prevChild]
			n.Sibling = childNo
			t.nodes[prevChild] = n
		}
		prevChild = childNo
	}

	root := t.nodes[no]
	root.FirstChild = firstChild
	t.nodes[no] = root
	return no
}


func (t *Octree) Root() int           { return 0 }
func (t *Octree) LastNode() int       { return len(t.nodes) }
func (t *Octree) NumParticles() int   { return t.numPart }
func (t *Octree) Mask() particle.Type { return t.mask }
func (t *Octree) BoxSize() float64    { return t.boxSize }

func (t *Octree) Node(no int) Node { return t.nodes[no] }

func (t *Octree) TopLeaf(no int) TopLeafEntry {
	return t.topLeaves[no]
}
