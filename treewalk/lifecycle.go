package treewalk

import "github.com/mansfield-astro/treewalk/particle"

// initQuery fills a freshly created query the way treewalk_init_query
// does: position from the particle table, node-list either copied from an
// import record or defaulted to {root, NoNode}, then the kernel's own
// Fill. debugIDs gates the identity-echo seed (spec.md §0.2).
func initQuery(v *Visitor, q Query, p_i int, particles particle.Table, nodeList *[NodeListLen]int32, root int32, debugIDs bool) {
	base := q.QueryBase()
	base.Pos = particles.Get(p_i).Pos
	if nodeList != nil {
		base.NodeList = *nodeList
	} else {
		base.NodeList[0] = root
		for i := 1; i < NodeListLen; i++ {
			base.NodeList[i] = NoNode
		}
	}
	if debugIDs {
		base.ID = particles.Get(p_i).ID
	}
	v.Fill(p_i, q, particles)
}

// initResult seeds a freshly created result's debug echo from the query
// (treewalk_init_result); it does not clear any other field, so callers
// pass a new result for every particle.
func initResult(r Result, q Query, debugIDs bool) {
	if debugIDs {
		r.ResultBase().IDEcho = q.QueryBase().ID
	}
}

// checkReducedID is the debug-only ID mismatch check (spec.md §7
// "Debug-only — ID mismatch between query and reduced result").
func checkReducedID(p_i int, particles particle.Table, r Result, debugIDs bool) error {
	if !debugIDs {
		return nil
	}
	if particles.Get(p_i).ID != r.ResultBase().IDEcho {
		return fatalf(2, "mismatched ID (%d != %d) for particle %d in treewalk reduction",
			particles.Get(p_i).ID, r.ResultBase().IDEcho, p_i)
	}
	return nil
}
