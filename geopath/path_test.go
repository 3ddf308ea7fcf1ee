package geopath

import (
	"testing"

	"go.viam.com/test"
)

func TestLinear(t *testing.T) {
	p, err := NewLinear([]float64{0}, []float64{2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.DOF(), test.ShouldEqual, 1)

	s := []float64{0, 0.5, 1}
	q, err := p.Eval(s)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.At(0, 0), test.ShouldEqual, 0)
	test.That(t, q.At(1, 0), test.ShouldEqual, 1)
	test.That(t, q.At(2, 0), test.ShouldEqual, 2)

	qs, err := p.Evald(s)
	test.That(t, err, test.ShouldBeNil)
	for i := range s {
		test.That(t, qs.At(i, 0), test.ShouldEqual, 2)
	}

	qss, err := p.Evaldd(s)
	test.That(t, err, test.ShouldBeNil)
	for i := range s {
		test.That(t, qss.At(i, 0), test.ShouldEqual, 0)
	}
}

func TestLinearMismatchedEndpoints(t *testing.T) {
	_, err := NewLinear([]float64{0, 1}, []float64{1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCubicSplinePassesThroughWaypoints(t *testing.T) {
	knots := []float64{0, 1, 2, 3}
	waypoints := [][]float64{{0, 0}, {1, 2}, {0, 4}, {2, 1}}
	sp, err := NewCubicSpline(knots, waypoints)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sp.DOF(), test.ShouldEqual, 2)

	q, err := sp.Eval(knots)
	test.That(t, err, test.ShouldBeNil)
	for k, w := range waypoints {
		for j, v := range w {
			test.That(t, q.At(k, j), test.ShouldAlmostEqual, v, 1e-9)
		}
	}
}

func TestCubicSplineRequiresMonotoneKnots(t *testing.T) {
	_, err := NewCubicSpline([]float64{0, 0.5, 0.2}, [][]float64{{0}, {1}, {2}})
	test.That(t, err, test.ShouldNotBeNil)
}
