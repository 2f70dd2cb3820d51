package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansfield-astro/treewalk/geom"
	"github.com/mansfield-astro/treewalk/particle"
)

func buildSmallOctree(t *testing.T) (*Octree, *particle.SliceTable) {
	t.Helper()
	ps := []particle.Particle{
		{Pos: geom.Vec{1, 1, 1}, ID: 0, Type: particle.TypeGas},
		{Pos: geom.Vec{9, 9, 9}, ID: 1, Type: particle.TypeGas},
		{Pos: geom.Vec{1, 9, 1}, ID: 2, Type: particle.TypeHalo},
	}
	tbl := particle.NewSliceTable(ps)
	return BuildOctree(tbl, 10), tbl
}

func TestBuildOctreeRootCoversWholeBox(t *testing.T) {
	ot, _ := buildSmallOctree(t)
	root := ot.Node(ot.Root())
	assert.Equal(t, 5.0, root.HalfLen)
	assert.Equal(t, geom.Vec{5, 5, 5}, root.Center)
	assert.Equal(t, 10.0, ot.BoxSize())
}

func TestBuildOctreeMaskUnionsParticleTypes(t *testing.T) {
	ot, _ := buildSmallOctree(t)
	assert.Equal(t, particle.TypeGas|particle.TypeHalo, ot.Mask())
}

func TestBuildOctreeLeafContainsAllParticlesUnderOccupancyLimit(t *testing.T) {
	ot, _ := buildSmallOctree(t)
	root := ot.Node(ot.Root())
	require.Equal(t, Leaf, root.Child, "3 particles is under the leaf occupancy limit; tree should stay a single leaf")
	assert.ElementsMatch(t, []int{0, 1, 2}, root.Suns)
}

func TestBuildOctreeSplitsOnceOverOccupancy(t *testing.T) {
	// 10 particles total exceeds the root's occupancy limit (8), forcing a
	// split; each of the two clusters holds only 5, so each lands directly
	// in a Leaf without any further recursion.
	ps := make([]particle.Particle, 0, 10)
	for i := 0; i < 5; i++ {
		ps = append(ps, particle.Particle{Pos: geom.Vec{1, 1, 1}, ID: int64(i), Type: particle.TypeGas})
	}
	for i := 5; i < 10; i++ {
		ps = append(ps, particle.Particle{Pos: geom.Vec{9, 9, 9}, ID: int64(i), Type: particle.TypeGas})
	}
	tbl := particle.NewSliceTable(ps)
	ot := BuildOctree(tbl, 10)

	root := ot.Node(ot.Root())
	require.Equal(t, Internal, root.Child)
	require.NotEqual(t, NoSibling, root.FirstChild)

	// Walk the sibling chain and confirm every leaf reached only holds
	// particles consistent with its own octant (no cross-contamination).
	var leafCounts int
	no := root.FirstChild
	for no >= 0 {
		n := ot.Node(no)
		if n.Child == Leaf {
			leafCounts += len(n.Suns)
		}
		no = n.Sibling
	}
	assert.Equal(t, 10, leafCounts)
}

func TestMarkPseudoConvertsLeafAndRecordsOwner(t *testing.T) {
	ot, _ := buildSmallOctree(t)
	root := ot.Root()
	owner := TopLeafEntry{Rank: 3, Node: 42}
	ot.MarkPseudo(root, owner)

	n := ot.Node(root)
	assert.Equal(t, Pseudo, n.Child)
	assert.Nil(t, n.Suns)
	// finder.go resolves a pseudo-node via TopLeaf(no - t.LastNode()),
	// the same offset MarkPseudo stores under.
	assert.Equal(t, owner, ot.TopLeaf(root-ot.LastNode()))
}

func TestMarkTopLevelFlagsNode(t *testing.T) {
	ot, _ := buildSmallOctree(t)
	root := ot.Root()
	ot.MarkTopLevel(root, true)
	n := ot.Node(root)
	assert.True(t, n.TopLevel)
	assert.True(t, n.TopLevelInternal)
}
