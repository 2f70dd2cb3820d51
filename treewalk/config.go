package treewalk

import (
	"fmt"

	"gopkg.in/gcfg.v1"
)

// Config mirrors the tunables libgadget/treewalk.c otherwise hardcodes or
// reads from All.* globals (spec.md §0.2): thread count, buffer sizing,
// and the hsml convergence ceiling. Following the teacher's own
// io/config.go idiom, it is gcfg-driven ini and validated by CheckInit
// rather than trusted blind.
type Config struct {
	Engine struct {
		// NThread is the fork-join thread count within a rank (spec.md
		// §5). Zero means a single worker.
		NThread int

		// ImportBufferBoost scales the imported-query buffer beyond the
		// local export buffer (spec.md §0.2 "buffer-sizing formula").
		// Zero defaults to 1.0.
		ImportBufferBoost float64

		// BunchSize overrides the export-table capacity computed from
		// available memory; zero means "compute it" (spec.md §4.5).
		BunchSize int

		// SafetyMarginBytes is subtracted from the memory budget before
		// the BunchSize formula runs, mirroring the original's safety
		// margin for the whole export table. Zero means "compute the
		// original's 4096*10*bytesPerRecord margin".
		SafetyMarginBytes int64

		// MemoryBudgetBytes stands in for the original's
		// mymalloc_freebytes() query — Go has no equivalent arena
		// introspection, so the budget is configured instead of probed.
		// Zero defaults to 1 GiB.
		MemoryBudgetBytes int64

		// MaxIter bounds the hsml convergence loop (spec.md §7
		// "Convergence"); zero defaults to 1000, matching MAXITER in the
		// original source.
		MaxIter int

		// DebugIDCheck turns on the identity-echo check normally gated
		// behind a DEBUG build tag in the original (spec.md §0.2); a
		// runtime flag here instead, since Go has no debug build
		// convention in this corpus.
		DebugIDCheck bool
	}
}

// DefaultConfig returns the zero-value defaults documented on each field
// above, resolved to concrete numbers.
func DefaultConfig() Config {
	var c Config
	c.Engine.ImportBufferBoost = 1.0
	c.Engine.MaxIter = 1000
	return c
}

// CheckInit validates and fills in zero-value defaults, following the
// teacher's CheckInit convention (io/config.go).
func (c *Config) CheckInit() error {
	if c.Engine.ImportBufferBoost == 0 {
		c.Engine.ImportBufferBoost = 1.0
	} else if c.Engine.ImportBufferBoost < 1.0 {
		return fmt.Errorf(
			"Engine.ImportBufferBoost must be >= 1.0, got %g", c.Engine.ImportBufferBoost,
		)
	}

	if c.Engine.MaxIter == 0 {
		c.Engine.MaxIter = 1000
	} else if c.Engine.MaxIter < 0 {
		return fmt.Errorf("Engine.MaxIter must be positive, got %d", c.Engine.MaxIter)
	}

	if c.Engine.NThread < 0 {
		return fmt.Errorf("Engine.NThread must be >= 0, got %d", c.Engine.NThread)
	}

	if c.Engine.BunchSize < 0 {
		return fmt.Errorf("Engine.BunchSize must be >= 0, got %d", c.Engine.BunchSize)
	}

	return nil
}

// ReadConfig loads an ini-format config file via gcfg, the teacher's own
// config-parsing dependency (io/config.go's ReadBoundsConfig).
func ReadConfig(fname string) (Config, error) {
	c := DefaultConfig()
	if err := gcfg.ReadFileInto(&c, fname); err != nil {
		return Config{}, err
	}
	if err := c.CheckInit(); err != nil {
		return Config{}, err
	}
	return c, nil
}
