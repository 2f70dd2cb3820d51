package treewalk

import (
	"github.com/mansfield-astro/treewalk/geom"
	"github.com/mansfield-astro/treewalk/tree"
)

// candidateCollector receives raw candidate particle indices found during
// descent, standing in for the C source's thread-local ngblist (spec.md
// §4.4 "Neighbour Finder"). It is reset and reused across NodeList entries
// of the same particle rather than reallocated, since a particle's search
// typically touches only a handful of leaves.
type candidateCollector struct {
	buf []int
}

func (c *candidateCollector) reset() { c.buf = c.buf[:0] }

func cullDist(it *NgbIter, n tree.Node) float64 {
	if it.Symmetric == SymmetricSearch {
		if n.Hmax > it.Hsml {
			return n.Hmax
		}
	}
	return it.Hsml
}

// descend walks the tree from startNode, culling subtrees via
// geom.NodeIntersectsSphere and exporting pseudo-nodes it cannot resolve
// locally (spec.md §4.4, ported from ngb_treefind_threads). onLeaf is
// called once per leaf node reached with that leaf's particle indices.
// Because cullDist re-reads it.Hsml on every node visited, a caller that
// shrinks it.Hsml from within onLeaf (the nolist variant) narrows later
// cull tests in the same descent — findCandidates never does this, since
// it only ever reads it.Hsml once up front via its caller.
//
// Returns the number of leaf particles visited, -1 if the export table
// filled up mid-descent (caller must abandon this particle until the next
// buffer fill-up), or -2 if a pseudo-node was reached while walking an
// imported (GHOSTS) query — a protocol violation, since ghosts must
// resolve entirely within one rank.
func descend(q Query, it *NgbIter, startNode int, lv *LocalWalk, onLeaf func(suns []int)) int {
	t := lv.Tree
	boxSize := t.BoxSize()
	base := q.QueryBase()

	no := startNode
	n := 0
	for no >= 0 {
		node := t.Node(no)

		// Walking an exported (GHOSTS) particle starts from its
		// enclosing top-level node; hitting another top-level node
		// means this branch is exhausted (spec.md §4.4 "GHOSTS mode
		// starts from the recorded top-level entry node").
		if lv.Mode == ModeGhosts && node.TopLevel && no != startNode {
			break
		}

		if !geom.NodeIntersectsSphere(node.Center, base.Pos, node.HalfLen, cullDist(it, node), boxSize) {
			no = node.Sibling
			continue
		}

		switch node.Child {
		case tree.Leaf:
			// TOPTREE only enumerates exports; real local particles
			// carry nothing to export and are left for the Primary
			// Runner's full descent (spec.md §4.3 "TOPTREE: walk only
			// nodes flagged top-level-internal").
			if lv.Mode != ModeTopTree {
				onLeaf(node.Suns)
				n += len(node.Suns)
			}
			no = node.Sibling

		case tree.Pseudo:
			switch lv.Mode {
			case ModeGhosts:
				return -2
			case ModePrimary:
				// Already exported by the Top-tree Runner; the
				// Primary Runner just moves past it (spec.md §4.3
				// "pseudo-nodes are skipped").
				no = node.Sibling
			default: // ModeTopTree
				entry := t.TopLeaf(no - t.LastNode())
				if !lv.export.export(lv, entry.Rank, lv.Target, entry.Node) {
					return -1
				}
				no = node.Sibling
			}

		default: // tree.Internal
			if lv.Mode == ModeTopTree && !node.TopLevelInternal {
				// Whole subtree is local; nothing here needs
				// exporting, so stop descending into it.
				no = node.Sibling
				continue
			}
			no = node.FirstChild
		}
	}
	return n
}

// findCandidates is the list-based finder (spec.md §4.4): it buffers
// every candidate from the subtree into out, deferring mask/garbage/
// distance filtering to the Visitor Dispatcher.
func findCandidates(q Query, it *NgbIter, startNode int, lv *LocalWalk, out *candidateCollector) int {
	return descend(q, it, startNode, lv, func(suns []int) {
		out.buf = append(out.buf, suns...)
	})
}
