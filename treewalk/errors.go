package treewalk

import "github.com/pkg/errors"

// FatalError marks a condition the C source (libgadget/treewalk.c) would
// have handled with endrun(): a configuration mistake or an invariant
// violation that leaves the walk in an unrecoverable state. The engine
// never panics on these directly — it returns a FatalError-wrapped error
// and lets the caller (typically cmd/treewalk-demo) decide how to die,
// since a library has no business calling os.Exit itself.
type FatalError struct {
	// Code mirrors endrun's numeric diagnostic code, kept only because
	// the original source keys its operator runbooks off these numbers.
	Code int
	msg  string
}

func (e *FatalError) Error() string { return e.msg }

func fatalf(code int, format string, args ...any) error {
	return errors.Wrapf(&FatalError{Code: code, msg: errors.Errorf(format, args...).Error()}, "treewalk")
}

// ProtocolError marks a violation of the engine's internal contract
// between phases rather than a user configuration mistake. The one case
// the engine detects is a pseudo-node reached in GHOSTS mode; export calls
// outside TOPTREE and the order of the export queue are not checked.
// Always fatal per spec.md §7.
type ProtocolError struct {
	msg string
}

func (e *ProtocolError) Error() string { return e.msg }

func protocolf(format string, args ...any) error {
	return &ProtocolError{msg: errors.Errorf(format, args...).Error()}
}

// ConvergenceError marks the hsml loop exceeding its iteration ceiling
// (spec.md §7 "Convergence").
type ConvergenceError struct {
	msg string
}

func (e *ConvergenceError) Error() string { return e.msg }
