package qp

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

// TestActiveSetUnconstrainedMinimum checks a pure box-constrained QP:
// minimize 0.5*(y0-1)^2 + 0.5*(y1-2)^2 over y in [-10,10]^2, which has
// an interior minimum the active set never needs to touch.
func TestActiveSetUnconstrainedMinimum(t *testing.T) {
	s := NewActiveSet(2, 0)
	h := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	g := []float64{-1, -2}
	l := []float64{-10, -10}
	hi := []float64{10, 10}

	status, err := s.Init(h, g, nil, l, hi, nil, nil, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, Successful)

	out := make([]float64, 2)
	test.That(t, s.GetPrimal(out), test.ShouldBeNil)
	test.That(t, out[0], test.ShouldAlmostEqual, 1.0, 1e-4)
	test.That(t, out[1], test.ShouldAlmostEqual, 2.0, 1e-4)
}

// TestActiveSetBindingUpperBound checks that a box bound clamps the
// solution when the unconstrained minimum lies outside it.
func TestActiveSetBindingUpperBound(t *testing.T) {
	s := NewActiveSet(1, 0)
	h := mat.NewSymDense(1, []float64{1})
	g := []float64{-10}
	l := []float64{-1}
	hi := []float64{1}

	status, err := s.Init(h, g, nil, l, hi, nil, nil, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, Successful)

	out := make([]float64, 1)
	test.That(t, s.GetPrimal(out), test.ShouldBeNil)
	test.That(t, out[0], test.ShouldAlmostEqual, 1.0, 1e-4)
}

// TestActiveSetLinearProgram exercises the pure-LP path (H=0): minimize
// -u subject to a single row bound 0 <= u <= 5, i.e. a canonical
// TOPP-style one_step maximization recast as a minimization.
func TestActiveSetLinearProgram(t *testing.T) {
	s := NewActiveSet(1, 1)
	h := mat.NewSymDense(1, nil)
	g := []float64{-1}
	l := []float64{-1e8}
	hi := []float64{1e8}
	a := mat.NewDense(1, 1, []float64{1})
	lA := []float64{0}
	hA := []float64{5}

	status, err := s.Init(h, g, a, l, hi, lA, hA, 200)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, Successful)

	out := make([]float64, 1)
	test.That(t, s.GetPrimal(out), test.ShouldBeNil)
	test.That(t, out[0], test.ShouldAlmostEqual, 5.0, 1e-3)
}

// TestActiveSetInfeasibleDetected checks that mutually exclusive row
// bounds (u <= -1 and u >= 1) are reported as infeasible rather than
// silently returning a bogus point.
func TestActiveSetInfeasibleDetected(t *testing.T) {
	s := NewActiveSet(1, 2)
	h := mat.NewSymDense(1, nil)
	g := []float64{0}
	l := []float64{-1e8}
	hi := []float64{1e8}
	a := mat.NewDense(2, 1, []float64{1, 1})
	lA := []float64{1, -1e8}
	hA := []float64{1e8, -1}

	status, err := s.Init(h, g, a, l, hi, lA, hA, 200)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, Infeasible)
}

// TestActiveSetHotstartMatchesInit verifies Hotstart reaches the same
// solution Init would on an identical problem.
func TestActiveSetHotstartMatchesInit(t *testing.T) {
	s := NewActiveSet(2, 0)
	h := mat.NewSymDense(2, []float64{2, 0, 0, 2})
	g := []float64{-4, -6}
	l := []float64{-100, -100}
	hi := []float64{100, 100}

	_, err := s.Init(h, g, nil, l, hi, nil, nil, 100)
	test.That(t, err, test.ShouldBeNil)

	status, err := s.Hotstart(h, g, nil, l, hi, nil, nil, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, Successful)

	out := make([]float64, 2)
	test.That(t, s.GetPrimal(out), test.ShouldBeNil)
	test.That(t, out[0], test.ShouldAlmostEqual, 2.0, 1e-3)
	test.That(t, out[1], test.ShouldAlmostEqual, 3.0, 1e-3)
}
