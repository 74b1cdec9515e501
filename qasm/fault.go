package qasm

import (
	"github.com/wippyai/qcircuit/errors"
)

// fault is the panic payload used for construction faults. It is distinct
// from arbitrary panics so that recovery never swallows programming errors.
type fault struct {
	err *errors.Error
}

func (f fault) Error() string { return f.err.Error() }

func (f fault) Unwrap() error { return f.err }

func raise(err *errors.Error) {
	panic(fault{err: err})
}

// recoverFault stores a recovered construction fault in *errp and re-panics
// anything else.
func recoverFault(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if f, ok := r.(fault); ok {
		*errp = f.err
		return
	}
	panic(r)
}

// Try runs fn and returns the construction fault it raised, if any.
func Try(fn func()) (err error) {
	defer recoverFault(&err)
	fn()
	return nil
}
