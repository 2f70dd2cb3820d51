package particle

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"github.com/mansfield-astro/treewalk/geom"
)

// gadgetHeader mirrors the fixed-size Gadget-2 snapshot header, ported
// from the teacher repo's catalog.gadgetHeader (catalog/catalog.go) and
// io.gadgetHeader (io/io.go) — both of which carried an identical
// duplicate of this struct for two different callers. Here it has exactly
// one caller: ReadGadgetSnapshot.
type gadgetHeader struct {
	NPart                                     [6]uint32
	Mass                                      [6]float64
	Time, Redshift                            float64
	FlagSfr, FlagFeedback                     int32
	NPartTotal                                [6]uint32
	FlagCooling, NumFiles                     int32
	BoxSize, Omega0, OmegaLambda, HubbleParam float64
	FlagStellarAge, HashTabSize               int32

	Padding [88]byte
}

// Cosmology describes the cosmological context a snapshot was produced
// in. Carried through unchanged from the teacher's CosmologyHeader
// (catalog/catalog.go) since the engine itself is cosmology-agnostic but
// downstream kernels (gravity, feedback) need it.
type Cosmology struct {
	Z      float64
	OmegaM float64
	OmegaL float64
	H100   float64
}

// SnapshotHeader is the standardized, byte-order-independent summary of a
// Gadget-2 file returned alongside its particles.
type SnapshotHeader struct {
	Cosmo   Cosmology
	BoxSize float64
	Count   int64
}

func (gh *gadgetHeader) standardize() SnapshotHeader {
	return SnapshotHeader{
		Count:   int64(gh.NPart[1]) + int64(gh.NPart[0])<<32,
		BoxSize: gh.BoxSize,
		Cosmo: Cosmology{
			Z:      gh.Redshift,
			OmegaM: gh.Omega0,
			OmegaL: gh.OmegaLambda,
			H100:   gh.HubbleParam,
		},
	}
}

func readInt32(f *os.File, order binary.ByteOrder) (int32, error) {
	var n int32
	if err := binary.Read(f, order, &n); err != nil {
		return 0, errors.Wrap(err, "reading Fortran record marker")
	}
	return n, nil
}

// ReadGadgetSnapshot reads a Gadget-2 format-1 binary snapshot and
// returns its standardized header together with a SliceTable of type-1
// ("halo"/dark-matter) particles, each carrying the defaultHsml starting
// search radius the hsml loop (treewalk.RunHsmlLoop) will refine.
//
// Ported from ReadGadgetHeader/ReadGadgetParticlesAt (io/io.go in the
// teacher repo); trimmed to the single particle type this engine's tests
// exercise and extended to populate the Hsml/Type/Garbage fields the
// original gotetra reader had no use for.
func ReadGadgetSnapshot(path string, order binary.ByteOrder, defaultHsml float64) (SnapshotHeader, *SliceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotHeader{}, nil, errors.Wrap(err, "opening gadget snapshot")
	}
	defer f.Close()

	if _, err := readInt32(f, order); err != nil {
		return SnapshotHeader{}, nil, err
	}
	gh := &gadgetHeader{}
	if err := binary.Read(f, order, gh); err != nil {
		return SnapshotHeader{}, nil, errors.Wrap(err, "reading gadget header")
	}
	hd := gh.standardize()

	if _, err := readInt32(f, order); err != nil {
		return SnapshotHeader{}, nil, err
	}
	if _, err := readInt32(f, order); err != nil {
		return SnapshotHeader{}, nil, err
	}

	n := int(gh.NPart[1])
	ps := make([]Particle, n)
	for i := 0; i < n; i++ {
		var pos [3]float32
		if err := binary.Read(f, order, &pos); err != nil {
			return SnapshotHeader{}, nil, errors.Wrapf(err, "reading position %d", i)
		}
		ps[i] = Particle{
			Pos:  geom.Vec{float64(pos[0]), float64(pos[1]), float64(pos[2])},
			ID:   int64(i),
			Type: TypeHalo,
			Hsml: defaultHsml,
		}
	}

	return hd, NewSliceTable(ps), nil
}
