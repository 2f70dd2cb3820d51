package treewalk

import (
	"github.com/mansfield-astro/treewalk/particle"
	"github.com/mansfield-astro/treewalk/tree"
)

// WalkMode selects which of the three phases a LocalWalk is running under
// (spec.md §4 "Phase Runners"). TOPTREE and PRIMARY both run over local
// particles; only TOPTREE exports, and PRIMARY skips pseudo-nodes. GHOSTS
// runs over imported queries and never exports — reaching a pseudo-node
// in GHOSTS mode is a protocol violation.
type WalkMode int

const (
	ModeTopTree WalkMode = iota
	ModePrimary
	ModeGhosts
)

func (m WalkMode) String() string {
	switch m {
	case ModeTopTree:
		return "toptree"
	case ModePrimary:
		return "primary"
	case ModeGhosts:
		return "ghosts"
	default:
		return "unknown"
	}
}

// Visitor is a kernel's complete binding to the engine: a record of
// function handles plus whatever closed-over state the kernel needs, not
// a method set implemented by inheritance (spec.md §9 Design Notes). A
// density kernel, a gravity kernel, and a hydro kernel are each one
// Visitor value; none of them subtype anything.
type Visitor struct {
	// Label names the walk for logging and Stats (spec.md §3 "ev_label").
	Label string

	NewQuery  func() Query
	NewResult func() Result

	// HasWork reports whether local particle p_i participates in this
	// walk at all (spec.md §4.1 "Queue Builder... optional predicate").
	// Nil means every particle in the active set participates.
	HasWork func(p_i int, particles particle.Table) bool

	// Fill populates a freshly created query from particle p_i. The
	// engine has already set Pos from the particle table, NodeList, and
	// (with the debug ID check on) ID; Fill adds the kernel's own
	// fixed-size fields.
	Fill func(p_i int, q Query, particles particle.Table)

	// NgbIter is called once with it.Other == NoCandidate to let the
	// kernel seed it.Hsml/Mask/Symmetric from q, then once per
	// in-range candidate with it populated (spec.md §4.4 "ngbiter").
	NgbIter func(q Query, result Result, it *NgbIter, particles particle.Table)

	// Reduce merges a partial result into particle p_i's stored state;
	// mode distinguishes a locally computed partial (ReducePrimary)
	// from one returned by a peer rank (ReduceGhosts), since some
	// kernels only apply side effects once (spec.md §4.6 "reduce...
	// called twice per exported particle").
	Reduce func(p_i int, result Result, mode ReduceMode, particles particle.Table)

	Preprocess  func(p_i int, particles particle.Table)
	Postprocess func(p_i int, particles particle.Table)

	// RepeatDisallowed forbids evaluating the same particle twice
	// across buffer fill-ups, forcing the evaluated-bitmap bookkeeping
	// the driver otherwise only turns on after the first fill-up
	// (spec.md §4.5 "repeatdisallowed").
	RepeatDisallowed bool

	// Symmetric marks a walk that needs per-node cached hmax to be
	// valid before it starts (spec.md §4.2 "symmetric walk").
	Symmetric bool
}

// LocalWalk is the per-goroutine, per-particle context threaded through
// one kernel invocation — the Go analogue of the C source's
// LocalTreeWalk (spec.md §3 "Local Walk Context (internal)").
type LocalWalk struct {
	Mode   WalkMode
	Target int // local particle index (TOPTREE/PRIMARY), or -1 (GHOSTS)

	Tree      tree.Tree
	Particles particle.Table

	export  *exportRegion // nil in GHOSTS mode
	cands   candidateCollector
	ngbIter *NgbIter // this worker's private slab-allocated iterator record, reused every particle

	NThisParticleExport int

	Interactions    int64
	MaxInteractions int64
	MinInteractions int64
}

func (lv *LocalWalk) addInteractions(n int64) {
	lv.Interactions += n
	if n > lv.MaxInteractions {
		lv.MaxInteractions = n
	}
	if lv.MinInteractions == 0 || n < lv.MinInteractions {
		lv.MinInteractions = n
	}
}

// newWorkerNgbIter hands out one *NgbIter from a single-record slab private
// to the calling worker — allocated once per goroutine rather than once per
// particle (spec.md §5 "thread-local... no locking"), matching arena.go's
// threadArena over outofforest/mass.
func newWorkerNgbIter() *NgbIter {
	return newThreadArena[NgbIter](1).alloc()
}
