package treewalk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCoalescesConsecutiveSameTaskEntries(t *testing.T) {
	r := newExportRegion(0, 10)
	lv := &LocalWalk{export: r}

	require.True(t, r.export(lv, 2, 100, 5))
	require.True(t, r.export(lv, 2, 100, 6))
	assert.Equal(t, 1, r.len(), "two exports to the same task from the same particle must coalesce into one entry")
	assert.Equal(t, [NodeListLen]int32{5, 6}, r.entries[0].NodeList)

	// A third export to the same task has no free NodeList slot left and
	// must start a new entry rather than silently drop the node.
	require.True(t, r.export(lv, 2, 100, 7))
	assert.Equal(t, 2, r.len())
	assert.Equal(t, [NodeListLen]int32{7, NoNode}, r.entries[1].NodeList)
}

func TestExportDoesNotCoalesceAcrossDifferentTasks(t *testing.T) {
	r := newExportRegion(0, 10)
	lv := &LocalWalk{export: r}

	require.True(t, r.export(lv, 1, 100, 5))
	require.True(t, r.export(lv, 2, 100, 6))
	assert.Equal(t, 2, r.len())
}

func TestExportReturnsFalseWhenRegionFull(t *testing.T) {
	r := newExportRegion(0, 1)
	lv := &LocalWalk{export: r}

	require.True(t, r.export(lv, 1, 100, 5))
	assert.False(t, r.export(lv, 2, 200, 6), "region at capacity must reject further exports")
	assert.Equal(t, 1, r.len())
}

func TestExportRollbackUndoesPartialParticleExports(t *testing.T) {
	r := newExportRegion(0, 10)
	lv := &LocalWalk{export: r}

	require.True(t, r.export(lv, 1, 100, 5))
	require.True(t, r.export(lv, 2, 100, 6))
	assert.Equal(t, 2, r.len())

	r.rollback(lv.NThisParticleExport)
	assert.Equal(t, 0, r.len())
}

func TestExportRollbackClampsAtZero(t *testing.T) {
	r := newExportRegion(0, 10)
	r.rollback(5)
	assert.Equal(t, 0, r.len())
}

func TestExportTableSplitsCapacityWithRemainderOnLastRegion(t *testing.T) {
	table := newExportTable(3, 10)
	require.Len(t, table.regions, 3)
	assert.Len(t, table.regions[0].entries, 3)
	assert.Len(t, table.regions[1].entries, 3)
	assert.Len(t, table.regions[2].entries, 4)
}

func TestExportTableFlattenPreservesRegionOrder(t *testing.T) {
	table := newExportTable(2, 10)
	lv0 := &LocalWalk{export: table.regions[0]}
	lv1 := &LocalWalk{export: table.regions[1]}

	table.regions[0].export(lv0, 1, 10, 1)
	table.regions[1].export(lv1, 2, 20, 2)
	table.regions[0].export(lv0, 3, 11, 3)

	flat := table.flatten()
	require.Len(t, flat, 3)
	assert.Equal(t, 1, flat[0].Task)
	assert.Equal(t, 3, flat[1].Task)
	assert.Equal(t, 2, flat[2].Task)
	assert.Equal(t, 3, table.total())
}
