package geopath

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CubicSpline interpolates a sequence of joint-space waypoints with a
// natural cubic spline, independently per joint. It is continuous
// through the second derivative on the open knot sequence, matching
// the continuity requirement the reachability solver places on its
// path capability.
type CubicSpline struct {
	knots []float64   // s0 < s1 < ... < sM, strictly increasing
	waypt [][]float64 // waypt[k] is the DOF-vector at knots[k]
	// second[k][j] is the second derivative of joint j at knots[k],
	// precomputed once at construction time by solving the natural
	// cubic spline tridiagonal system.
	second [][]float64
	dof    int
}

// NewCubicSpline builds a natural cubic spline through waypoints at the
// given knots. knots must be strictly increasing and waypoints must all
// share the same, nonzero DOF.
func NewCubicSpline(knots []float64, waypoints [][]float64) (*CubicSpline, error) {
	if len(knots) < 2 || len(knots) != len(waypoints) {
		return nil, errors.Errorf("geopath: need at least 2 matching knots/waypoints, got %d knots, %d waypoints", len(knots), len(waypoints))
	}
	for k := 1; k < len(knots); k++ {
		if knots[k] <= knots[k-1] {
			return nil, errors.New("geopath: knots must be strictly increasing")
		}
	}
	dof := len(waypoints[0])
	if dof == 0 {
		return nil, errors.New("geopath: waypoints have zero DOF")
	}
	for _, w := range waypoints {
		if len(w) != dof {
			return nil, errors.Errorf("geopath: waypoint DOF mismatch, want %d got %d", dof, len(w))
		}
	}

	sp := &CubicSpline{knots: knots, waypt: waypoints, dof: dof}
	sp.second = make([][]float64, len(knots))
	for k := range sp.second {
		sp.second[k] = make([]float64, dof)
	}
	for j := 0; j < dof; j++ {
		col := make([]float64, len(knots))
		for k := range knots {
			col[k] = waypoints[k][j]
		}
		secondJ := naturalSplineSecondDerivatives(knots, col)
		for k := range knots {
			sp.second[k][j] = secondJ[k]
		}
	}
	return sp, nil
}

// naturalSplineSecondDerivatives solves the classic tridiagonal system
// for a natural cubic spline (zero second derivative at both ends)
// through the given (x, y) samples.
func naturalSplineSecondDerivatives(x, y []float64) []float64 {
	n := len(x)
	m2 := make([]float64, n) // second derivatives, m2[0] = m2[n-1] = 0

	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = x[i+1] - x[i]
	}

	// Tridiagonal system for interior points, Thomas algorithm.
	alpha := make([]float64, n)
	for i := 1; i < n-1; i++ {
		alpha[i] = 3*(y[i+1]-y[i])/h[i] - 3*(y[i]-y[i-1])/h[i-1]
	}

	l := make([]float64, n)
	mu := make([]float64, n)
	z := make([]float64, n)
	l[0] = 1
	for i := 1; i < n-1; i++ {
		l[i] = 2*(x[i+1]-x[i-1]) - h[i-1]*mu[i-1]
		mu[i] = h[i] / l[i]
		z[i] = (alpha[i] - h[i-1]*z[i-1]) / l[i]
	}
	l[n-1] = 1

	c := make([]float64, n) // c[k] == m2[k]/2 in the classic notation below
	for j := n - 2; j >= 0; j-- {
		c[j] = z[j] - mu[j]*c[j+1]
	}
	for k := range c {
		m2[k] = 2 * c[k]
	}
	return m2
}

// DOF implements Path.
func (sp *CubicSpline) DOF() int { return sp.dof }

// Domain implements Path.
func (sp *CubicSpline) Domain() (float64, float64) {
	return sp.knots[0], sp.knots[len(sp.knots)-1]
}

// segmentFor returns the index k such that s lies in [knots[k], knots[k+1]],
// clamping to the first/last segment for out-of-range s.
func (sp *CubicSpline) segmentFor(s float64) int {
	if s <= sp.knots[0] {
		return 0
	}
	last := len(sp.knots) - 2
	if s >= sp.knots[len(sp.knots)-1] {
		return last
	}
	k := sort.Search(len(sp.knots)-1, func(i int) bool { return sp.knots[i+1] > s })
	if k > last {
		k = last
	}
	return k
}

// evalAt returns (q, qs, qss) for joint j at parameter s, using the
// standard piecewise-cubic-in-terms-of-second-derivatives formula.
func (sp *CubicSpline) evalAt(s float64, j int) (q, qs, qss float64) {
	k := sp.segmentFor(s)
	h := sp.knots[k+1] - sp.knots[k]
	a := (sp.knots[k+1] - s) / h
	b := (s - sp.knots[k]) / h
	y0, y1 := sp.waypt[k][j], sp.waypt[k+1][j]
	m0, m1 := sp.second[k][j], sp.second[k+1][j]

	q = a*y0 + b*y1 +
		((a*a*a-a)*m0+(b*b*b-b)*m1)*(h*h)/6
	qs = (y1-y0)/h - (3*a*a-1)*h*m0/6 + (3*b*b-1)*h*m1/6
	qss = a*m0 + b*m1
	return
}

func (sp *CubicSpline) Eval(s []float64) (*mat.Dense, error) {
	out := mat.NewDense(len(s), sp.dof, nil)
	for i, si := range s {
		for j := 0; j < sp.dof; j++ {
			q, _, _ := sp.evalAt(si, j)
			out.Set(i, j, q)
		}
	}
	return out, nil
}

func (sp *CubicSpline) Evald(s []float64) (*mat.Dense, error) {
	out := mat.NewDense(len(s), sp.dof, nil)
	for i, si := range s {
		for j := 0; j < sp.dof; j++ {
			_, qs, _ := sp.evalAt(si, j)
			out.Set(i, j, qs)
		}
	}
	return out, nil
}

func (sp *CubicSpline) Evaldd(s []float64) (*mat.Dense, error) {
	out := mat.NewDense(len(s), sp.dof, nil)
	for i, si := range s {
		for j := 0; j < sp.dof; j++ {
			_, _, qss := sp.evalAt(si, j)
			out.Set(i, j, qss)
		}
	}
	return out, nil
}
