package reach

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidInput is returned by setters and the constructor for
// malformed input: negative interval endpoints, non-monotone intervals,
// or a constraint set whose grids disagree.
var ErrInvalidInput = errors.New("reach: invalid input")

// ErrQPSolveFailed is returned when a primitive's underlying QP solve
// does not report a successful status; the enclosing pass aborts and
// returns false rather than retrying.
var ErrQPSolveFailed = errors.New("reach: qp solve did not succeed")

// NotParameterizableError is raised by SolveTOPP when the backward pass
// establishes that the path cannot be parameterized at all: either the
// controllable set at stage 0 is empty, or the start interval lies
// entirely outside it.
type NotParameterizableError struct {
	K0Empty     bool
	I0OutsideK0 bool
}

func (e *NotParameterizableError) Error() string {
	return fmt.Sprintf("reach: not parameterizable (K0 empty: %t, I0 outside K0: %t)", e.K0Empty, e.I0OutsideK0)
}
