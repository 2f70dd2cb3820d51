package treewalk

// Debug-only identity echo check (spec.md §7 "Debug-only — ID mismatch
// between query and reduced result"). The original gates this behind a
// DEBUG compile-time macro; Go has no equivalent build convention used
// anywhere in this corpus, so Config.Engine.DebugIDCheck gates it at
// runtime instead (spec.md §0.2). Every call site threading a debugIDs
// bool through (initQuery, initResult, checkReducedID) is this flag,
// passed down from Config rather than read from a package-level global.

// WithDebugIDCheck is a small constructor helper for tests and demos that
// want a Config identical to DefaultConfig but with the identity echo
// check turned on.
func WithDebugIDCheck(cfg Config) Config {
	cfg.Engine.DebugIDCheck = true
	return cfg
}
