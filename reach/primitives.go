package reach

import (
	"gonum.org/v1/gonum/floats"

	"github.com/viam-labs/go-toppra/qp"
	"github.com/viam-labs/go-toppra/toppraconst"
)

// resetOperationalRows zeroes the top toppraconst.NumOperationalRows
// rows (and their bounds) of every stage's A/lA/hA, plus the shared H
// and g. Each outer pass calls this once before it starts; primitives
// rewrite only the row entries they pin on every call, so no reset is
// needed between primitive calls within the same pass.
func (s *Solver) resetOperationalRows() {
	nop := toppraconst.NumOperationalRows
	for i := range s.tensors.A {
		a := s.tensors.A[i]
		_, nV := a.Dims()
		for r := 0; r < nop; r++ {
			for c := 0; c < nV; c++ {
				a.Set(r, c, 0)
			}
			s.tensors.LA[i][r] = 0
			s.tensors.HA[i][r] = 0
		}
	}
	rows, _ := s.h.Dims()
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			s.h.SetSym(i, j, 0)
		}
		s.g[i] = 0
	}
}

func (s *Solver) solve(solver *qp.ActiveSet, i int, init bool) (qp.Status, []float64, error) {
	nV := s.tensors.NV
	primal := make([]float64, nV)
	var status qp.Status
	var err error
	if init {
		status, err = solver.Init(s.h, s.g, s.tensors.A[i], s.tensors.L[i], s.tensors.H[i], s.tensors.LA[i], s.tensors.HA[i], s.nWSR)
	} else {
		status, err = solver.Hotstart(s.h, s.g, s.tensors.A[i], s.tensors.L[i], s.tensors.H[i], s.tensors.LA[i], s.tensors.HA[i], s.nWSR)
	}
	if err != nil {
		return status, nil, err
	}
	if status != qp.Successful {
		return status, nil, nil
	}
	if err := solver.GetPrimal(primal); err != nil {
		return status, nil, err
	}
	return status, primal, nil
}

const (
	colU = 0
	colX = 1
)

// oneStep computes the one-step predecessor interval of [xmin, xmax] at
// stage i: xmin <= x + 2*ds[i]*u <= xmax, maximizing and minimizing x.
// Returns ok=false if either solve fails.
func (s *Solver) oneStep(i int, xmin, xmax float64, init bool) (lo, hi float64, ok bool) {
	s.setRow0(i, 2*s.ds[i], 1, xmin, xmax)

	s.g[colX] = -1
	upStatus, upPrimal, err := s.solve(s.solverUp, i, init)
	if err != nil || upStatus != qp.Successful {
		s.logFailure("oneStep", i, xmin, xmax, init, upStatus, upStatus)
		return 0, 0, false
	}

	s.g[colX] = 1
	downStatus, downPrimal, err := s.solve(s.solverDown, i, init)
	if err != nil || downStatus != qp.Successful {
		s.logFailure("oneStep", i, xmin, xmax, init, upStatus, downStatus)
		return 0, 0, false
	}

	return downPrimal[colX], upPrimal[colX], true
}

// reach computes the image of [xmin, xmax] one step forward: maximizes
// and minimizes x + 2*ds[i]*u subject to xmin <= x <= xmax. The bound
// is carried on the objective value directly (the source returns the
// signed objective, not the primal), since the objective *is*
// x + 2*ds[i]*u at the optimum.
func (s *Solver) reach(i int, xmin, xmax float64, init bool) (lo, hi float64, ok bool) {
	s.setRow0(i, 0, 1, xmin, xmax)

	s.g[colU] = -2 * s.ds[i]
	s.g[colX] = -1
	upStatus, _, err := s.solve(s.solverUp, i, init)
	if err != nil || upStatus != qp.Successful {
		s.logFailure("reach", i, xmin, xmax, init, upStatus, upStatus)
		return 0, 0, false
	}
	xmaxI := -s.solverUp.GetObjective()

	s.g[colU] = 2 * s.ds[i]
	s.g[colX] = 1
	downStatus, _, err := s.solve(s.solverDown, i, init)
	if err != nil || downStatus != qp.Successful {
		s.logFailure("reach", i, xmin, xmax, init, upStatus, downStatus)
		return 0, 0, false
	}
	xminI := s.solverDown.GetObjective()

	return xminI, xmaxI, true
}

// projXAdmissible projects [xmin, xmax] onto the feasible x range at
// stage i given every other constraint active there: xmin <= x <= xmax,
// objective 0 plus x maximized/minimized.
func (s *Solver) projXAdmissible(i int, xmin, xmax float64, init bool) (lo, hi float64, ok bool) {
	s.setRow0(i, 0, 1, xmin, xmax)
	s.g[colU] = 0

	s.g[colX] = -1
	upStatus, upPrimal, err := s.solve(s.solverUp, i, init)
	if err != nil || upStatus != qp.Successful {
		s.logFailure("projXAdmissible", i, xmin, xmax, init, upStatus, upStatus)
		return 0, 0, false
	}

	s.g[colX] = 1
	downStatus, downPrimal, err := s.solve(s.solverDown, i, init)
	if err != nil || downStatus != qp.Successful {
		s.logFailure("projXAdmissible", i, xmin, xmax, init, upStatus, downStatus)
		return 0, 0, false
	}

	xminI, xmaxI := downPrimal[colX], upPrimal[colX]
	if xminI > xmaxI && !floats.EqualWithinAbs(xminI, xmaxI, toppraconst.SuperTiny) {
		s.logger.Debugf("reach: projXAdmissible stage %d collapsed an out-of-tolerance gap (xmin=%g xmax=%g)", i, xminI, xmaxI)
	}
	if xminI > xmaxI {
		xmaxI = xminI
	}
	return xminI, xmaxI, true
}

// greedyStep is the forward TOPP primitive: pin x = x on row 0, pin
// xmin <= x+2*ds[i]*u <= xmax on row 1, maximize u. reg adds a fresh
// (not accumulated) Tikhonov term to the slack sub-block of H each
// call when the problem carries slack columns, matching the spec's
// description of a per-call regularization rather than a running one.
func (s *Solver) greedyStep(i int, x, xmin, xmax float64, init bool, reg float64) (u, xNext float64, ok bool) {
	s.tensors.A[i].Set(0, colX, 1)
	s.tensors.A[i].Set(0, colU, 0)
	s.tensors.LA[i][0] = x
	s.tensors.HA[i][0] = x

	s.tensors.A[i].Set(1, colX, 1)
	s.tensors.A[i].Set(1, colU, 2*s.ds[i])
	s.tensors.LA[i][1] = xmin
	s.tensors.HA[i][1] = xmax

	s.g[colU] = -1
	s.g[colX] = 0
	s.applySlackRegularization(reg)

	status, primal, err := s.solve(s.solverUp, i, init)
	if err != nil || status != qp.Successful {
		s.logFailure("greedyStep", i, xmin, xmax, init, status, status)
		return 0, 0, false
	}

	uGreedy := primal[colU]
	xGreedy := x + 2*s.ds[i]*uGreedy
	if xGreedy < 0 {
		xGreedy = toppraconst.SuperTiny
	}
	return uGreedy, xGreedy, true
}

// leastGreedyStep is the reversed-objective twin of greedyStep: it
// minimizes u instead of maximizing it, and resets the operational rows
// itself. No pass calls it; it exists so a caller wanting the slowest feasible profile instead of
// the fastest has a symmetric primitive to build on.
func (s *Solver) leastGreedyStep(i int, x, xmin, xmax float64, init bool, reg float64) (u, xNext float64, ok bool) {
	s.resetOperationalRows()
	s.tensors.A[i].Set(0, colX, 1)
	s.tensors.A[i].Set(0, colU, 0)
	s.tensors.LA[i][0] = x
	s.tensors.HA[i][0] = x

	s.tensors.A[i].Set(1, colX, 1)
	s.tensors.A[i].Set(1, colU, 2*s.ds[i])
	s.tensors.LA[i][1] = xmin
	s.tensors.HA[i][1] = xmax

	s.g[colU] = 1
	s.g[colX] = 0
	s.applySlackRegularization(reg)

	status, primal, err := s.solve(s.solverUp, i, init)
	if err != nil || status != qp.Successful {
		s.logFailure("leastGreedyStep", i, xmin, xmax, init, status, status)
		return 0, 0, false
	}

	uLeast := primal[colU]
	xLeast := x + 2*s.ds[i]*uLeast
	if xLeast < 0 {
		xLeast = toppraconst.SuperTiny
	}
	return uLeast, xLeast, true
}

// applySlackRegularization sets the slack sub-block of the shared
// Hessian to reg*I, columns/rows 2..NV. It is a plain assignment rather
// than an accumulation: greedyStep is called once per stage of the
// forward pass and each call's regularization should reflect only the
// reg argument that call was given, not the sum of every prior call's.
func (s *Solver) applySlackRegularization(reg float64) {
	nV := s.tensors.NV
	for i := 2; i < nV; i++ {
		for j := i; j < nV; j++ {
			v := 0.0
			if i == j {
				v = reg
			}
			s.h.SetSym(i, j, v)
		}
	}
}

// setRow0 writes operational row 0 as coeffU*u + coeffX*x bounded by
// [lo, hi]. Both the coefficients and the bounds are written on every
// call, so no prior call's row-0 pin can leak through; the one-time
// resetOperationalRows() at the start of each outer pass is what
// clears H, g, and rows left over from whatever ran before it.
func (s *Solver) setRow0(i int, coeffU, coeffX, lo, hi float64) {
	s.tensors.A[i].Set(0, colU, coeffU)
	s.tensors.A[i].Set(0, colX, coeffX)
	s.tensors.LA[i][0] = lo
	s.tensors.HA[i][0] = hi
}

func (s *Solver) logFailure(primitive string, i int, xmin, xmax float64, init bool, up, down qp.Status) {
	s.logger.Debugf("reach: %s failed at stage %d (xmin=%g xmax=%g init=%t up=%s down=%s)",
		primitive, i, xmin, xmax, init, up, down)
}
