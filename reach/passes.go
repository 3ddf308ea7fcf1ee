package reach

import (
	"github.com/pkg/errors"

	"github.com/viam-labs/go-toppra/toppraconst"
)

// epsControllable is the numerical buffer subtracted from every
// controllable-set upper bound to guard against over-reporting the
// true controllable boundary.
const epsControllable = 1e-14

// SolveControllableSets runs the backward recursion computing K_0..K_N,
// the controllable sets: the squared-velocity intervals at each stage
// from which the goal interval IN is reachable while respecting every
// constraint. Returns false on the first primitive failure; the rows
// already computed by then (the stages after the failed one, up to N)
// stay in place and K() still reports them.
func (s *Solver) SolveControllableSets(eps float64) bool {
	if eps == 0 {
		eps = epsControllable
	}
	s.resetOperationalRows()

	lo, hi, ok := s.projXAdmissible(s.n, s.iN.Low, s.iN.High, true)
	if !ok {
		s.logger.Debugf("reach: controllable-set pass failed computing K[%d]", s.n)
		return false
	}
	s.k[s.n] = Interval{lo, hi}

	for i := s.n - 1; i >= 0; i-- {
		next := s.k[i+1]
		lo, hi, ok := s.oneStep(i, next.Low, next.High, i == s.n-1)
		if !ok {
			s.logger.Debugf("reach: controllable-set pass failed computing K[%d]", i)
			return false
		}
		hi -= eps
		if lo < 0 {
			lo = 0
		}
		s.k[i] = Interval{lo, hi}
	}
	return true
}

// SolveReachableSets runs the forward recursion computing L_0..L_N, the
// reachable sets: the squared-velocity intervals reachable at each
// stage from the start interval I0. Returns false on the first
// primitive failure.
func (s *Solver) SolveReachableSets() bool {
	s.resetOperationalRows()

	lo, hi, ok := s.projXAdmissible(0, s.i0.Low, s.i0.High, true)
	if !ok {
		s.logger.Debugf("reach: reachable-set pass failed computing L[0]")
		return false
	}
	s.l[0] = Interval{lo, hi}

	for i := 0; i < s.n; i++ {
		cur := s.l[i]
		initFlag := i <= 1
		a, b, ok := s.reach(i, cur.Low, cur.High, initFlag)
		if !ok {
			s.logger.Debugf("reach: reachable-set pass failed at reach(%d)", i)
			return false
		}
		lo, hi, ok := s.projXAdmissible(i+1, a, b, initFlag)
		if !ok {
			s.logger.Debugf("reach: reachable-set pass failed projecting L[%d]", i+1)
			return false
		}
		s.l[i+1] = Interval{lo, hi}
	}
	return true
}

// SolveTOPP runs the forward greedy pass producing the time-optimal
// control profile: a path acceleration u[i] for each of the N segments
// and the squared path velocity x[i] at each of the N+1 gridpoints.
// SolveControllableSets must have already succeeded, with I0
// intersecting K[0], or SolveTOPP returns a *NotParameterizableError.
// saveSolutions is accepted for interface symmetry with the source
// pass but this implementation always keeps u and x in full; reg adds
// a Tikhonov term to the slack sub-block of H on every greedy step
// that carries slack columns.
func (s *Solver) SolveTOPP(saveSolutions bool, reg float64) (u, x []float64, err error) {
	k0Populated := s.k[0].Low >= -toppraconst.Tiny
	k0Empty := !k0Populated || s.k[0].Low > s.k[0].High
	i0OutsideK0 := k0Populated && (s.k[0].High < s.i0.Low || s.k[0].Low > s.i0.High)
	if k0Empty || i0OutsideK0 {
		return nil, nil, &NotParameterizableError{K0Empty: k0Empty, I0OutsideK0: i0OutsideK0}
	}

	s.resetOperationalRows()
	for i := range s.tensors.A {
		s.tensors.A[i].Set(0, colX, 1)
		s.tensors.A[i].Set(0, colU, 0)
		s.tensors.A[i].Set(1, colX, 1)
		if i < s.n {
			s.tensors.A[i].Set(1, colU, 2*s.ds[i])
		}
	}

	x = make([]float64, s.n+1)
	u = make([]float64, s.n)

	x[0] = s.k[0].High
	if s.i0.High < x[0] {
		x[0] = s.i0.High
	}

	// Warm-start call at stage 0 with Init; its result is discarded and
	// the forward loop below re-solves stage 0 with Hotstart. qp.ActiveSet
	// keeps no working set between solves, so with it this call only
	// checks that stage 0 is solvable.
	if _, _, ok := s.greedyStep(0, x[0], s.k[1].Low, s.k[1].High, true, reg); !ok {
		return nil, nil, errors.Wrap(ErrQPSolveFailed, "reach: TOPP warm-start greedy step failed")
	}

	for i := 0; i < s.n; i++ {
		next := s.k[i+1]
		uI, xNext, ok := s.greedyStep(i, x[i], next.Low, next.High, false, reg)
		if !ok {
			return nil, nil, errors.Wrapf(ErrQPSolveFailed, "reach: TOPP greedy step failed at stage %d", i)
		}
		u[i] = uI
		x[i+1] = xNext
	}

	return u, x, nil
}
