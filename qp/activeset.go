package qp

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ridge is added to the Hessian diagonal before every KKT solve. Most
// problems the reachability solver poses are pure LPs (H all zero): the
// ridge turns the direction-finding subproblem into a nearby strictly
// convex QP so the same null-space machinery handles both LPs and QPs
// without a separate simplex path.
const ridge = 1e-9

// activeSetTol is the tolerance used for step-direction convergence and
// multiplier-sign checks.
const activeSetTol = 1e-9

// bigM penalizes the shared feasibility slack; large enough that the
// solver only accepts a nonzero slack when no feasible point exists.
const bigM = 1e6

// ActiveSet is a dense primal active-set QP solver over problems of the
// form min 0.5 y^T H y + g^T y s.t. lA <= A y <= hA, l <= y <= h. It
// relaxes every bound by a single shared slack variable penalized at a
// large coefficient, so a feasible starting vertex always exists for
// the relaxed problem; the slack converges to zero exactly when the
// original problem is feasible.
type ActiveSet struct {
	nV, nC int

	rows []row // every relaxed bound as a ">=" row over augmented z=[y;s]

	primal    []float64
	objective float64
}

type row struct {
	coeff []float64 // length nV+1 (last entry is the slack coefficient)
	rhs   float64
}

// NewActiveSet constructs a solver sized for nV variables and nC general
// (A-row) constraints in addition to the nV box constraints on y.
func NewActiveSet(nV, nC int) *ActiveSet {
	return &ActiveSet{nV: nV, nC: nC}
}

// Init solves the problem from a cold start: every row relaxation
// begins unconstrained (empty working set) at y=0.
func (s *ActiveSet) Init(H *mat.SymDense, g []float64, a *mat.Dense, l, h, lA, hA []float64, nWSR int) (Status, error) {
	return s.solve(H, g, a, l, h, lA, hA, nWSR)
}

// Hotstart re-solves the problem. A true qpOASES-style hotstart reuses
// the previous factorization and active set directly; this backend
// approximates that by re-deriving a feasible vertex from scratch each
// call, which is cheap given how small these problems are (nV is the
// path state dimension plus a handful of slacks).
func (s *ActiveSet) Hotstart(H *mat.SymDense, g []float64, a *mat.Dense, l, h, lA, hA []float64, nWSR int) (Status, error) {
	return s.solve(H, g, a, l, h, lA, hA, nWSR)
}

func (s *ActiveSet) GetPrimal(out []float64) error {
	if s.primal == nil {
		return errors.New("qp: GetPrimal called before a successful solve")
	}
	if len(out) != s.nV {
		return errors.Errorf("qp: GetPrimal output length %d does not match nV %d", len(out), s.nV)
	}
	copy(out, s.primal)
	return nil
}

func (s *ActiveSet) GetObjective() float64 {
	return s.objective
}

func (s *ActiveSet) solve(H *mat.SymDense, g []float64, a *mat.Dense, l, h, lA, hA []float64, nWSR int) (Status, error) {
	if len(g) != s.nV || len(l) != s.nV || len(h) != s.nV {
		return 0, errors.New("qp: box vectors do not match solver dimension")
	}
	if s.nC > 0 && (len(lA) != s.nC || len(hA) != s.nC) {
		return 0, errors.New("qp: row bound vectors do not match solver dimension")
	}

	nZ := s.nV + 1 // augmented with one shared slack variable
	s.rows = buildRows(s.nV, s.nC, a, l, h, lA, hA)
	// the shared slack only ever relaxes constraints; without its own
	// lower bound, driving it negative would relax nothing and the
	// bigM*s term would pull the objective to -infinity.
	sBound := make([]float64, nZ)
	sBound[s.nV] = 1
	s.rows = append(s.rows, row{coeff: sBound, rhs: 0})

	// augmented Hessian: original H (regularized) in the y block, zero
	// coupling to the slack column/row.
	hReg := mat.NewSymDense(nZ, nil)
	for i := 0; i < s.nV; i++ {
		for j := i; j < s.nV; j++ {
			v := 0.0
			if H != nil {
				v = H.At(i, j)
			}
			if i == j {
				v += ridge
			}
			hReg.SetSym(i, j, v)
		}
	}
	hReg.SetSym(s.nV, s.nV, ridge)

	gAug := make([]float64, nZ)
	copy(gAug, g)
	gAug[s.nV] = bigM

	// starting point: y0 = 0, s0 = worst-case violation across all
	// relaxed rows so that z0 = (y0, s0) is feasible for the relaxed
	// problem regardless of whether the original problem is feasible.
	z := make([]float64, nZ)
	worst := 0.0
	for _, r := range s.rows {
		v := dotPrefix(r.coeff, z, s.nV) - r.rhs
		if -v > worst {
			worst = -v
		}
	}
	z[s.nV] = worst + 1e-6

	working := map[int]bool{}

	status := MaxIterationsExceeded
	budget := nWSR
	if budget <= 0 {
		budget = 1000
	}

	for iter := 0; iter < budget; iter++ {
		p, order, lambda, ok := s.direction(hReg, gAug, z, working, nZ)
		if !ok {
			return 0, errors.New("qp: singular KKT system")
		}

		if normInf(p) < activeSetTol {
			// at a stationary point of the current working set: accept if
			// every active inequality multiplier is non-negative.
			minLambda := -activeSetTol
			minIdx := -1
			for wi, idx := range order {
				if lambda[wi] < minLambda {
					minLambda = lambda[wi]
					minIdx = idx
				}
			}
			if minIdx < 0 {
				status = Successful
				break
			}
			delete(working, minIdx)
			continue
		}

		alpha := 1.0
		blocking := -1
		for idx, r := range s.rows {
			if working[idx] {
				continue
			}
			ap := dotFull(r.coeff, p)
			if ap >= -activeSetTol {
				continue
			}
			slack := dotFull(r.coeff, z) - r.rhs
			if slack < 0 {
				slack = 0
			}
			cand := slack / (-ap)
			if cand < alpha {
				alpha = cand
				blocking = idx
			}
		}

		for i := range z {
			z[i] += alpha * p[i]
		}
		if blocking >= 0 {
			working[blocking] = true
		}
	}

	if z[s.nV] > 1e-6 {
		status = Infeasible
	}

	s.primal = append([]float64(nil), z[:s.nV]...)
	s.objective = quadObjective(H, g, s.primal)
	return status, nil
}

func dotPrefix(coeff, z []float64, n int) float64 {
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += coeff[i] * z[i]
	}
	return sum
}

func dotFull(coeff, z []float64) float64 {
	sum := 0.0
	for i := range coeff {
		sum += coeff[i] * z[i]
	}
	return sum
}

func normInf(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if x < 0 {
			x = -x
		}
		if x > m {
			m = x
		}
	}
	return m
}

func quadObjective(H *mat.SymDense, g, y []float64) float64 {
	sum := 0.0
	for i, gi := range g {
		sum += gi * y[i]
	}
	if H != nil {
		n, _ := H.Dims()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				sum += 0.5 * y[i] * H.At(i, j) * y[j]
			}
		}
	}
	return sum
}

// direction solves the null-space KKT system for the current working
// set, returning the step p and the multipliers for the constraints in
// working, keyed by the same ordering as a map iteration over working's
// keys (the caller tracks which multiplier belongs to which index by
// iterating in the same order it was built).
func (s *ActiveSet) direction(h *mat.SymDense, g, z []float64, working map[int]bool, nZ int) (p []float64, order []int, lambda []float64, ok bool) {
	nW := len(working)
	n := nZ + nW
	m := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)

	for i := 0; i < nZ; i++ {
		for j := 0; j < nZ; j++ {
			m.Set(i, j, h.At(i, j))
		}
	}
	for i := 0; i < nZ; i++ {
		acc := g[i]
		for j := 0; j < nZ; j++ {
			acc += h.At(i, j) * z[j]
		}
		rhs.SetVec(i, -acc)
	}

	order = make([]int, 0, nW)
	for k := range working {
		order = append(order, k)
	}
	for wi, k := range order {
		r := s.rows[k]
		for j := 0; j < nZ; j++ {
			m.Set(nZ+wi, j, r.coeff[j])
			m.Set(j, nZ+wi, -r.coeff[j])
		}
	}

	var soln mat.VecDense
	if err := soln.SolveVec(m, rhs); err != nil {
		return nil, nil, nil, false
	}

	p = make([]float64, nZ)
	for i := 0; i < nZ; i++ {
		p[i] = soln.AtVec(i)
	}
	lambda = make([]float64, nW)
	for wi := range order {
		lambda[wi] = soln.AtVec(nZ + wi)
	}
	return p, order, lambda, true
}

// buildRows expands the box (l,h) and general (lA,hA over A) bounds
// into the uniform relaxed-inequality form described on ActiveSet: for
// every finite bound, one row of the form coeff^T z >= rhs
// where z = [y; s] and s is the shared slack.
func buildRows(nV, nC int, a *mat.Dense, l, h, lA, hA []float64) []row {
	var rows []row
	const infTol = 1e7

	addBound := func(coeffY []float64, lo, hi float64) {
		if lo > -infTol {
			c := make([]float64, nV+1)
			copy(c, coeffY)
			c[nV] = 1
			rows = append(rows, row{coeff: c, rhs: lo})
		}
		if hi < infTol {
			c := make([]float64, nV+1)
			for i, v := range coeffY {
				c[i] = -v
			}
			c[nV] = 1
			rows = append(rows, row{coeff: c, rhs: -hi})
		}
	}

	for i := 0; i < nV; i++ {
		e := make([]float64, nV)
		e[i] = 1
		addBound(e, l[i], h[i])
	}
	for i := 0; i < nC; i++ {
		rowVec := mat.Row(nil, i, a)
		addBound(rowVec, lA[i], hA[i])
	}
	return rows
}
