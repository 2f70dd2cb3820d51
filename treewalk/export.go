package treewalk

// ExportEntry is one row of the gathered export table (spec.md §3 "Export
// Table (internal)"): a local particle destined for a remote Task, plus
// the tree node(s) on that task the remote walk should resume from.
type ExportEntry struct {
	Task     int
	Index    int
	NodeList [NodeListLen]int32
}

// exportRegion is one thread's private slice of the shared export table
// (spec.md §4.5 "thread-local regions... no locking"), sized BunchSize /
// NThread with any remainder folded into the last thread's region,
// mirroring the original's localbunch split.
type exportRegion struct {
	entries []ExportEntry
	offset  int // base offset into the logical global table (DataIndexOffset)
	n       int
}

func newExportRegion(offset, capacity int) *exportRegion {
	return &exportRegion{entries: make([]ExportEntry, capacity), offset: offset}
}

func (r *exportRegion) reset() { r.n = 0 }

func (r *exportRegion) len() int { return r.n }

// rollback discards the last n entries written by the partially exported
// particle that triggered a buffer-full abort (spec.md §4.6 "rolls back
// its export count by NThisParticleExport").
func (r *exportRegion) rollback(n int) {
	r.n -= n
	if r.n < 0 {
		r.n = 0
	}
}

// export appends an export of the particle currently being walked
// (lv.Target) to the given task/node, coalescing into the previous entry
// when it is also destined for task and still has a free NodeList slot
// (spec.md §4.3 "coalescing rule"). Exports for one particle are always
// contiguous within a region, since a single thread walks one particle to
// completion before starting the next, so checking only the last-written
// entry is sufficient. Returns false if the region is full; the caller
// must abandon this particle's walk until the next buffer fill-up.
func (r *exportRegion) export(lv *LocalWalk, task, target, nodeID int) bool {
	if lv.NThisParticleExport >= 1 {
		last := &r.entries[r.n-1]
		if last.Task == task && last.NodeList[1] == NoNode {
			last.NodeList[1] = int32(nodeID)
			return true
		}
	}
	if r.n >= len(r.entries) {
		return false
	}
	r.entries[r.n] = ExportEntry{
		Task:     task,
		Index:    target,
		NodeList: [NodeListLen]int32{int32(nodeID), NoNode},
	}
	r.n++
	lv.NThisParticleExport++
	return true
}

// exportTable gathers every thread's region into one contiguous view,
// indexed exactly as DataIndexOffset + local-region-index in the original
// (spec.md §4.5). A fresh table is made for each outer iteration and
// flattened once every Top-tree Runner worker has finished.
type exportTable struct {
	regions []*exportRegion
}

func newExportTable(nThread, bunchSize int) *exportTable {
	regions := make([]*exportRegion, nThread)
	base := 0
	per := bunchSize / nThread
	for i := 0; i < nThread; i++ {
		capacity := per
		if i == nThread-1 {
			capacity = bunchSize - per*(nThread-1)
		}
		regions[i] = newExportRegion(base, capacity)
		base += capacity
	}
	return &exportTable{regions: regions}
}

func (t *exportTable) reset() {
	for _, r := range t.regions {
		r.reset()
	}
}

func (t *exportTable) total() int {
	n := 0
	for _, r := range t.regions {
		n += r.len()
	}
	return n
}

// flatten returns every exported entry in thread-region order, the layout
// the exchange phase groups by destination task from.
func (t *exportTable) flatten() []ExportEntry {
	out := make([]ExportEntry, 0, t.total())
	for _, r := range t.regions {
		out = append(out, r.entries[:r.n]...)
	}
	return out
}
