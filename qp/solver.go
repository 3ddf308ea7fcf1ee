// Package qp defines the opaque QP backend the reachability solver
// drives: an init/hotstart/getPrimal capability over problems of the
// form
//
//	min   0.5 y^T H y + g^T y
//	s.t.  lA <= A y <= hA
//	      l  <= y  <= h
//
// and ActiveSet, a dense primal active-set implementation of that
// interface. Production TOPP-RA ports typically wrap a dedicated
// active-set QP package (qpOASES); this module has no such binding
// available, so it rolls its own, structured the way the teacher
// structures solver wrappers: a narrow interface plus exactly one
// concrete implementation.
package qp

import "gonum.org/v1/gonum/mat"

// Status reports the outcome of a solve.
type Status int

const (
	// Successful indicates the solve converged to an optimal point.
	Successful Status = iota
	// Infeasible indicates no point satisfies every constraint within tolerance.
	Infeasible
	// MaxIterationsExceeded indicates the working-set budget (nWSR) ran out.
	MaxIterationsExceeded
)

func (s Status) String() string {
	switch s {
	case Successful:
		return "Successful"
	case Infeasible:
		return "Infeasible"
	case MaxIterationsExceeded:
		return "MaxIterationsExceeded"
	default:
		return "Unknown"
	}
}

// Solver is the narrow capability the reachability solver consumes: a
// stateful QP instance that can be (re)initialized or hot-started from
// its previous active set, and queried for its primal solution.
type Solver interface {
	// Init solves the given problem from a cold start, discarding any
	// previous solver state. nWSR bounds the number of working-set
	// recalculations.
	Init(H *mat.SymDense, g []float64, a *mat.Dense, l, h, lA, hA []float64, nWSR int) (Status, error)
	// Hotstart solves the given problem reusing the previous solution as
	// a warm-start point.
	Hotstart(H *mat.SymDense, g []float64, a *mat.Dense, l, h, lA, hA []float64, nWSR int) (Status, error)
	// GetPrimal copies the primal solution of the most recent solve into out.
	GetPrimal(out []float64) error
	// GetObjective returns the objective value at the most recent solve.
	GetObjective() float64
}
