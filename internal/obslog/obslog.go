// Package obslog wires the engine's logging onto outofforest/logger's
// context convention, replacing the original's bare message()/endrun()
// calls (spec.md §0 "ambient stack") with structured zap fields — walk
// label, iteration, rank — attached per call site instead of interpolated
// into a format string.
package obslog

import (
	"context"

	"github.com/outofforest/logger"
	"go.uber.org/zap"
)

// New returns a context carrying a configured logger, the same
// logger.WithLogger(ctx, logger.New(cfg)) pairing outofforest-quantum's
// tests use to bootstrap logging before spawning workers.
func New(ctx context.Context, cfg zap.Config) context.Context {
	return logger.WithLogger(ctx, logger.New(cfg))
}

// Get returns the zap logger attached to ctx, or a no-op logger if none
// was attached — callers in tests that build a bare context.Background()
// should not have to special-case logging.
func Get(ctx context.Context) *zap.Logger {
	l := logger.Get(ctx)
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Walk returns a child logger scoped to one named walk, standing in for
// the original's ev_label-prefixed message() calls.
func Walk(ctx context.Context, label string) *zap.Logger {
	return Get(ctx).With(zap.String("walk", label))
}
