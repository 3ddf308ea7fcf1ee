package trajectory

import (
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/go-toppra/geopath"
)

func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a + (b-a)*float64(i)/float64(n-1)
	}
	return out
}

func TestGridpointTrajectoryConstantVelocity(t *testing.T) {
	path, err := geopath.NewLinear([]float64{0}, []float64{1})
	test.That(t, err, test.ShouldBeNil)

	ss := linspace(0, 1, 5)
	u := make([]float64, 4)
	x := make([]float64, 5)
	for i := range x {
		x[i] = 1 // constant squared velocity sd=1
	}

	sampled, err := GridpointTrajectory(path, ss, u, x)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(sampled.T), test.ShouldEqual, 5)

	// sd=1 throughout means t advances at the same rate as s.
	test.That(t, sampled.T[4], test.ShouldAlmostEqual, 1.0, 1e-9)
	for i := 0; i < 5; i++ {
		test.That(t, sampled.Qd.At(i, 0), test.ShouldAlmostEqual, 1.0, 1e-9)
	}
}

func TestGridpointTrajectoryRejectsMismatchedLengths(t *testing.T) {
	path, err := geopath.NewLinear([]float64{0}, []float64{1})
	test.That(t, err, test.ShouldBeNil)
	_, err = GridpointTrajectory(path, linspace(0, 1, 5), make([]float64, 2), make([]float64, 5))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestResampleWithoutSmoothingStartsAtZeroAndIsMonotone(t *testing.T) {
	path, err := geopath.NewLinear([]float64{0, 0}, []float64{1, 2})
	test.That(t, err, test.ShouldBeNil)

	ss := linspace(0, 1, 6)
	n := len(ss) - 1
	u := make([]float64, n)
	x := make([]float64, n+1)
	for i := range x {
		x[i] = 1
	}

	sampled, err := Resample(path, ss, u, x, 0.2, false, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sampled.T[0], test.ShouldEqual, 0.0)

	q0, _ := sampled.Q.Dims()
	test.That(t, q0, test.ShouldBeGreaterThan, 1)
	for i := 1; i < q0; i++ {
		test.That(t, sampled.T[i], test.ShouldBeGreaterThanOrEqualTo, sampled.T[i-1])
	}
}

func TestResampleWithSmoothingMatchesTerminalState(t *testing.T) {
	path, err := geopath.NewLinear([]float64{0}, []float64{1})
	test.That(t, err, test.ShouldBeNil)

	ss := linspace(0, 1, 11)
	n := len(ss) - 1
	u := make([]float64, n)
	x := make([]float64, n+1)
	for i := range x {
		x[i] = 1
	}

	unsmoothed, err := Resample(path, ss, u, x, 0.1, false, 0)
	test.That(t, err, test.ShouldBeNil)
	smoothed, err := Resample(path, ss, u, x, 0.1, true, 1e-6)
	test.That(t, err, test.ShouldBeNil)

	last := len(unsmoothed.T) - 1
	test.That(t, smoothed.Q.At(last, 0), test.ShouldAlmostEqual, unsmoothed.Q.At(last, 0), 1e-3)
	test.That(t, smoothed.Qd.At(last, 0), test.ShouldAlmostEqual, unsmoothed.Qd.At(last, 0), 1e-3)
}

func TestSmoothJointSingleStepSatisfiesTerminalEquality(t *testing.T) {
	sq, sqd, sqdd, err := smoothJoint([]float64{0, 0.1}, []float64{0, 2}, 0.1, 1e-6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(sq), test.ShouldEqual, 2)
	test.That(t, sq[0], test.ShouldEqual, 0.0)
	test.That(t, sqd[0], test.ShouldEqual, 0.0)
	// a single free control exactly pinned by the terminal equality
	// reproduces the input's final state (u = 20: q = dt^2/2*u, qd = dt*u).
	test.That(t, sq[1], test.ShouldAlmostEqual, 0.1, 1e-6)
	test.That(t, sqd[1], test.ShouldAlmostEqual, 2.0, 1e-6)
	test.That(t, len(sqdd), test.ShouldEqual, 2)
}
