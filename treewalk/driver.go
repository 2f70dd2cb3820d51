package treewalk

import (
	"context"

	"go.uber.org/zap"

	"github.com/mansfield-astro/treewalk/cluster"
	"github.com/mansfield-astro/treewalk/internal/obslog"
	"github.com/mansfield-astro/treewalk/particle"
	"github.com/mansfield-astro/treewalk/tree"
)

// Stats reports the counters the original exposes via
// treewalk_print_stats (spec.md §0.2), returned to the caller instead of
// logged directly so callers decide how (or whether) to report them.
type Stats struct {
	Label string

	Interactions    int64
	MaxInteractions int64
	MinInteractions int64

	// PrimaryCount is the number of particles the Primary Runner
	// visited — Nlistprimary in the original, kept distinct from
	// Interactions (total pair evaluations) per SPEC_FULL.md §0.3(b).
	PrimaryCount int64

	BufferFillUps        int // Nexportfull
	ExportsTotal         int64 // Nexport_sum across every buffer fill-up
	DistinctDestinations int
}

func computeBunchSize(cfg Config, v *Visitor) (int, error) {
	if cfg.Engine.BunchSize > 0 {
		return cfg.Engine.BunchSize, nil
	}

	querySize := sizeOf(v.NewQuery())
	resultSize := sizeOf(v.NewResult())
	if querySize <= 0 || querySize%8 != 0 {
		return 0, fatalf(0, "%q: query structure size %d is not a nonzero 64-bit-aligned size", v.Label, querySize)
	}
	if resultSize <= 0 || resultSize%8 != 0 {
		return 0, fatalf(0, "%q: result structure size %d is not a nonzero 64-bit-aligned size", v.Label, resultSize)
	}

	// Matches ExportEntry's encoded layout: two ints plus a
	// NodeListLen-element int32 array.
	const exportRecordSize = 8 + 8 + NodeListLen*4
	boost := cfg.Engine.ImportBufferBoost
	bytesPerRecord := float64(exportRecordSize) + float64(querySize) + boost*float64(querySize+resultSize)

	freeBytes := cfg.Engine.MemoryBudgetBytes
	if freeBytes == 0 {
		freeBytes = 1 << 30
	}
	safety := cfg.Engine.SafetyMarginBytes
	if safety == 0 {
		safety = int64(4096 * 10 * bytesPerRecord)
	}
	if freeBytes <= int64(4096*11*bytesPerRecord) {
		return 0, fatalf(1231245, "not enough memory for exporting any particles: needed %d bytes have %d",
			int64(bytesPerRecord), freeBytes)
	}
	freeBytes -= safety

	bunch := int(float64(freeBytes) / bytesPerRecord)

	// ~3 GiB MPI-safe ceiling (spec.md §0.2).
	const mpiSafeCeiling = 1024 * 1024 * 3092
	if bunch*querySize > mpiSafeCeiling {
		bunch = mpiSafeCeiling / querySize
	}

	if bunch < 100 {
		return 0, fatalf(2, "only enough memory budget to export %d elements", bunch)
	}
	return bunch, nil
}

// Run is the Outer Driver (spec.md §4.8 "run"): build the queue, run the
// optional preprocess pass, then cycle Top-tree/Exchange/Secondary until
// every rank has finished exporting, running the Primary Runner exactly
// once (spec.md §4.8 "Primary-once vs per-iteration"), then the optional
// postprocess pass.
func Run(
	ctx context.Context,
	cfg Config,
	t cluster.Transport,
	v *Visitor,
	tr tree.Tree,
	particles particle.Table,
	activeSet []int,
) (Stats, error) {
	nThread := cfg.Engine.NThread
	if nThread < 1 {
		nThread = 1
	}

	queue := buildQueue(v, particles, activeSet, false, nThread)

	if v.Preprocess != nil {
		for _, p_i := range queue {
			v.Preprocess(p_i, particles)
		}
	}

	bunchSize, err := computeBunchSize(cfg, v)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Label: v.Label}
	var evaluated []bool
	resumeStart := 0
	destinations := map[int]struct{}{}
	log := obslog.Walk(ctx, v.Label)

	for {
		table := newExportTable(nThread, bunchSize)

		if evaluated == nil && (stats.BufferFillUps >= 1 || v.RepeatDisallowed) {
			evaluated = make([]bool, len(queue))
		}

		ttRes, err := runTopTree(ctx, v, tr, particles, queue, resumeStart, table, evaluated, nThread, cfg.Engine.DebugIDCheck)
		if err != nil {
			return Stats{}, err
		}

		sendCounts, recvCounts, entries, err := exchangeCounts(ctx, t, table)
		if err != nil {
			return Stats{}, err
		}
		for _, e := range entries {
			destinations[e.Task] = struct{}{}
		}

		imports, err := exchangeQueries(ctx, t, v, particles, entries, sendCounts, recvCounts, cfg.Engine.DebugIDCheck)
		if err != nil {
			return Stats{}, err
		}

		if stats.BufferFillUps == 0 {
			primRes, err := runPrimary(ctx, v, tr, particles, queue, nThread, cfg.Engine.DebugIDCheck)
			if err != nil {
				return Stats{}, err
			}
			stats.Interactions = primRes.interactions
			stats.MaxInteractions = primRes.maxInteract
			stats.MinInteractions = primRes.minInteract
			stats.PrimaryCount = int64(len(queue))
		}

		secResults, err := runSecondary(ctx, v, tr, particles, imports, nThread, cfg.Engine.DebugIDCheck)
		if err != nil {
			return Stats{}, err
		}

		reduced, err := exchangeResults(ctx, t, v, secResults, sendCounts, recvCounts)
		if err != nil {
			return Stats{}, err
		}
		for i, e := range entries {
			if i >= len(reduced) {
				break
			}
			v.Reduce(e.Index, reduced[i], ReduceGhosts, particles)
			if idErr := checkReducedID(e.Index, particles, reduced[i], cfg.Engine.DebugIDCheck); idErr != nil {
				return Stats{}, idErr
			}
		}

		stats.BufferFillUps++
		stats.ExportsTotal += int64(len(entries))

		if ttRes.bufferFull {
			log.Warn("export buffer filled mid-walk, resuming next pass",
				zap.Int("fillup", stats.BufferFillUps), zap.Int("resumeStart", ttRes.resumeStart))
		}
		resumeStart = ttRes.resumeStart

		localDone := 0
		if !ttRes.bufferFull {
			localDone = 1
		}
		globalDone, err := t.AllreduceSum(ctx, localDone)
		if err != nil {
			return Stats{}, err
		}
		if globalDone >= t.Size() {
			break
		}
	}

	if v.Postprocess != nil {
		for _, p_i := range queue {
			v.Postprocess(p_i, particles)
		}
	}

	stats.DistinctDestinations = len(destinations)
	log.Debug("walk complete",
		zap.Int("fillups", stats.BufferFillUps),
		zap.Int64("interactions", stats.Interactions),
		zap.Int64("exportsTotal", stats.ExportsTotal))
	return stats, nil
}
