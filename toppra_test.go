package toppra

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/viam-labs/go-toppra/constraint"
	"github.com/viam-labs/go-toppra/geopath"
	"github.com/viam-labs/go-toppra/reach"
)

func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a + (b-a)*float64(i)/float64(n-1)
	}
	return out
}

// accelerationOnly builds a canonical constraint |u| <= amax at every
// gridpoint, as two rows: u - amax <= 0 and -u - amax <= 0.
func accelerationOnly(t *testing.T, ss []float64, amax float64) constraint.Set {
	n1 := len(ss)
	a := mat.NewDense(n1, 2, nil)
	b := mat.NewDense(n1, 2, nil)
	c := mat.NewDense(n1, 2, nil)
	for i := 0; i < n1; i++ {
		a.Set(i, 0, 1)
		c.Set(i, 0, -amax)
		a.Set(i, 1, -1)
		c.Set(i, 1, -amax)
	}
	pc, err := constraint.New(constraint.Config{Name: "acceleration", Ss: ss, A: a, B: b, C: c})
	test.That(t, err, test.ShouldBeNil)
	return constraint.Set{pc}
}

func TestPlanRestToRestAccelerationLimited(t *testing.T) {
	path, err := geopath.NewLinear([]float64{0}, []float64{1})
	test.That(t, err, test.ShouldBeNil)

	ss := linspace(0, 1, 11)
	set := accelerationOnly(t, ss, 1.0)

	sampled, err := Plan(path, set, reach.Interval{Low: 0, High: 1e-4}, reach.Interval{Low: 0, High: 1e-4}, PlanOptions{Dt: 0.05})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(sampled.T), test.ShouldBeGreaterThan, 0)

	rows, cols := sampled.Q.Dims()
	test.That(t, rows, test.ShouldEqual, len(sampled.T))
	test.That(t, cols, test.ShouldEqual, 1)
}

func TestPlanAllMismatchedLengthsErrors(t *testing.T) {
	path, err := geopath.NewLinear([]float64{0}, []float64{1})
	test.That(t, err, test.ShouldBeNil)
	set := accelerationOnly(t, linspace(0, 1, 4), 1.0)

	_, err = PlanAll([]geopath.Path{path}, []constraint.Set{set, set}, reach.Interval{Low: 0, High: 1e-4}, reach.Interval{Low: 0, High: 1e-4}, PlanOptions{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlanRejectsEmptyConstraints(t *testing.T) {
	path, err := geopath.NewLinear([]float64{0}, []float64{1})
	test.That(t, err, test.ShouldBeNil)
	_, err = Plan(path, constraint.Set{}, reach.Interval{Low: 0, High: 1e-4}, reach.Interval{Low: 0, High: 1e-4}, PlanOptions{})
	test.That(t, err, test.ShouldNotBeNil)
}
