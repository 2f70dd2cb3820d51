package treewalk

import (
	"github.com/mansfield-astro/treewalk/geom"
	"github.com/mansfield-astro/treewalk/particle"
)

// NodeListLen is fixed at 2 (spec.md §6 "NODELISTLENGTH is fixed at 2");
// the export coalescing rule (export.go) depends on there being exactly
// one spare slot beyond the first.
const NodeListLen = 2

// NoNode marks an unfilled NodeList slot.
const NoNode = -1

// BaseQuery carries the fields the engine itself populates before handing
// a query to a kernel's Fill callback (spec.md §3 "First fields of a
// Query include position and the node-list"). A kernel's concrete query
// type embeds this and adds its own fixed-size fields.
type BaseQuery struct {
	Pos      geom.Vec
	NodeList [NodeListLen]int32
	ID       int64 // debug identity echo seed; see debug.go
}

// Query is implemented by every kernel's query payload. Per the engine's
// "record of function handles, not inheritance" design (spec.md §9), this
// is the one interface method kernels must add — a one-line accessor —
// everything else is wired through Visitor's function fields.
type Query interface {
	QueryBase() *BaseQuery
}

func (q *BaseQuery) QueryBase() *BaseQuery { return q }

// BaseResult carries the reserved debug identity echo (spec.md §3 "First
// field of a Result is reserved for an identity echo (debug)").
type BaseResult struct {
	IDEcho int64
}

type Result interface {
	ResultBase() *BaseResult
}

func (r *BaseResult) ResultBase() *BaseResult { return r }

// SymmetryMode selects whether a neighbour search uses the query's own
// Hsml or the symmetric max(query Hsml, candidate Hsml) (spec.md
// GLOSSARY "Symmetric walk").
type SymmetryMode int

const (
	// AsymmetricSearch searches strictly within the query's own Hsml.
	AsymmetricSearch SymmetryMode = iota
	// SymmetricSearch uses max(query Hsml, candidate Hsml), and requires
	// the tree's cached per-node hmax to be valid.
	SymmetricSearch
)

// NgbIter is the per-candidate iterator state passed to a kernel's
// NgbIter callback (spec.md §6 "ngbiter"). The callback is invoked once
// with Other == NoCandidate to let the kernel seed Hsml/Mask/Symmetric,
// then once per in-range candidate.
type NgbIter struct {
	Hsml      float64
	Mask      particle.Type
	Symmetric SymmetryMode

	Other int // NoCandidate on the seeding call
	R2    float64
	R     float64
	Dist  geom.Vec
}

// NoCandidate is the sentinel NgbIter.Other value on the seeding call.
const NoCandidate = -1

// reset clears every field before a worker's slab-allocated NgbIter is
// reused for the next particle — otherwise a symmetric search's leftover
// Symmetric/R2/R/Dist from a previous candidate would leak into the next
// particle's seeding call.
func (it *NgbIter) reset() {
	*it = NgbIter{}
}

// ReduceMode tells a kernel's Reduce callback whether it is merging the
// local (PRIMARY) partial result or one returned from a peer rank
// (GHOSTS) (spec.md §6 "reduce... called twice per exported particle").
type ReduceMode int

const (
	ReducePrimary ReduceMode = iota
	ReduceGhosts
)
