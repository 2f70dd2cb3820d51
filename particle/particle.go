// Package particle defines the particle table the tree-walk engine reads
// from and writes search results into. The engine treats this package as
// an external collaborator (spec.md §1 "out of scope"): it consumes the
// Table interface only and never assumes a storage layout.
package particle

import "github.com/mansfield-astro/treewalk/geom"

// Type bits, bitmaskable per spec.md §3 ("type tag (small integer,
// bitmaskable)"). Mirrors the Gadget particle type convention gotetra's
// catalog package (catalog.go) reads off disk.
const (
	TypeGas Type = 1 << iota
	TypeHalo
	TypeDisk
	TypeBulge
	TypeStar
	TypeBndry

	TypeAll = TypeGas | TypeHalo | TypeDisk | TypeBulge | TypeStar | TypeBndry
)

// Type is a bitmaskable particle species tag.
type Type uint32

// Particle is the subset of per-particle state the engine observes
// (spec.md §3 "Particle (external)"). Simulation-specific fields
// (velocity, mass, entropy, ...) live beside this in a real code; the
// engine never reaches past what Table exposes.
type Particle struct {
	Pos     geom.Vec
	ID      int64
	Type    Type
	Garbage bool
	Hsml    float64
}

// Table is the particle store the engine reads from. Kernels (gravity,
// density, FoF, ...) see the same table through their own domain-specific
// accessors; the engine only ever needs these three.
type Table interface {
	// Len returns the number of particle slots, including garbage.
	Len() int
	// Get returns the particle at local index i.
	Get(i int) Particle
	// SetHsml updates the adaptive search radius of particle i. Used by
	// the hsml convergence loop (spec.md §4.9) between passes.
	SetHsml(i int, hsml float64)
}

// SliceTable is the simplest Table: a flat in-memory slice. Adapted from
// gotetra's catalog.ParticleManager (catalog/manager.go in the teacher
// repo), simplified to the engine's five-field contract — the teacher's
// ID-to-slice-index lookup map is dropped since the engine addresses
// particles purely by local index, never by ID.
type SliceTable struct {
	Particles []Particle
}

// NewSliceTable wraps ps as a Table without copying.
func NewSliceTable(ps []Particle) *SliceTable {
	return &SliceTable{Particles: ps}
}

func (t *SliceTable) Len() int { return len(t.Particles) }

func (t *SliceTable) Get(i int) Particle { return t.Particles[i] }

func (t *SliceTable) SetHsml(i int, hsml float64) {
	t.Particles[i].Hsml = hsml
}
