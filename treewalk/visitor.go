package treewalk

import (
	"math"

	"github.com/mansfield-astro/treewalk/geom"
)

// VisitNgbIter is the standard ngbiter dispatcher (spec.md §4.4 "Visitor
// Dispatcher", ported from treewalk_visit_ngbiter): it seeds the
// iterator with one Other == NoCandidate call, buffers every candidate
// under q's NodeList entries, filters by garbage/mask/distance, and calls
// v.NgbIter once per surviving candidate. Preferred over
// VisitNgbIterNolist for memory locality and because it never partially
// evaluates a particle twice across a buffer fill-up.
//
// Returns -1 if the export table filled mid-walk (caller must retry this
// particle next fill-up), or an error on a protocol violation.
func VisitNgbIter(v *Visitor, q Query, result Result, lv *LocalWalk) (int, error) {
	base := q.QueryBase()

	it := lv.ngbIter
	it.reset()
	it.Other = NoCandidate
	if v.Symmetric {
		it.Symmetric = SymmetricSearch
	}
	v.NgbIter(q, result, it, lv.Particles)

	if mask := lv.Tree.Mask(); mask&it.Mask != it.Mask {
		return 0, fatalf(5, "%q searched for mask %d but tree only has %d (overlap %d)",
			v.Label, it.Mask, mask, mask&it.Mask)
	}

	boxSize := lv.Tree.BoxSize()
	var ninteractions int64

	for _, nodeID32 := range base.NodeList {
		nodeID := int(nodeID32)
		if nodeID < 0 {
			break
		}

		lv.cands.reset()
		numcand := findCandidates(q, it, nodeID, lv, &lv.cands)
		if numcand == -1 {
			return -1, nil
		}
		if numcand == -2 {
			return 0, protocolf("%q: secondary walk reached a pseudo-node from start %d", v.Label, nodeID)
		}

		visited := dispatchCandidates(v, q, result, it, lv, boxSize, lv.cands.buf)
		ninteractions += visited
	}

	lv.addInteractions(ninteractions)
	return 0, nil
}

// dispatchCandidates applies the garbage/mask/periodic-distance filter to
// a batch of candidate indices and invokes v.NgbIter on every survivor,
// returning the survivor count.
func dispatchCandidates(v *Visitor, q Query, result Result, it *NgbIter, lv *LocalWalk, boxSize float64, cands []int) int64 {
	base := q.QueryBase()
	var n int64
	for _, other := range cands {
		p := lv.Particles.Get(other)
		if p.Garbage {
			continue
		}
		if p.Type&it.Mask == 0 {
			continue
		}

		dist := it.Hsml
		if it.Symmetric == SymmetricSearch && p.Hsml > dist {
			dist = p.Hsml
		}

		r2, d, ok := geom.PeriodicDist2(base.Pos, p.Pos, boxSize, dist*dist)
		if !ok {
			continue
		}

		it.Other = other
		it.R2 = r2
		it.R = math.Sqrt(r2)
		it.Dist = d

		v.NgbIter(q, result, it, lv.Particles)
		n++
	}
	return n
}

// VisitNgbIterNolist is the list-free dispatcher variant (spec.md §4.4,
// ported from treewalk_visit_nolist_ngbiter): it invokes v.NgbIter
// directly as candidates are discovered during descent instead of
// buffering them first. Use this only for kernels whose NgbIter may
// shrink it.Hsml mid-walk (k-NN style searches) — descend re-reads
// it.Hsml on every node, so a shrinking radius narrows later cull tests
// within the same call. Kernels that mutate other particles must not use
// this variant, since a candidate can be visited while the buffer-based
// variant would have deferred it past a buffer fill-up boundary.
func VisitNgbIterNolist(v *Visitor, q Query, result Result, lv *LocalWalk) (int, error) {
	base := q.QueryBase()

	it := lv.ngbIter
	it.reset()
	it.Other = NoCandidate
	if v.Symmetric {
		it.Symmetric = SymmetricSearch
	}
	v.NgbIter(q, result, it, lv.Particles)

	boxSize := lv.Tree.BoxSize()
	var ninteractions int64
	var exportFailed bool
	var protocolErr error

	for _, nodeID32 := range base.NodeList {
		nodeID := int(nodeID32)
		if nodeID < 0 || exportFailed || protocolErr != nil {
			break
		}

		numcand := descend(q, it, nodeID, lv, func(suns []int) {
			if exportFailed || protocolErr != nil {
				return
			}
			ninteractions += dispatchCandidates(v, q, result, it, lv, boxSize, suns)
		})
		if numcand == -1 {
			exportFailed = true
		}
		if numcand == -2 {
			protocolErr = protocolf("%q: secondary walk reached a pseudo-node from start %d", v.Label, nodeID)
		}
	}

	if exportFailed {
		return -1, nil
	}
	if protocolErr != nil {
		return 0, protocolErr
	}

	lv.addInteractions(ninteractions)
	return 0, nil
}
