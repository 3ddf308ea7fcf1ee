package constraint

import (
	"math/rand"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a + (b-a)*float64(i)/float64(n-1)
	}
	return out
}

func TestNewDefaultsMissingBlocksToZeroWidth(t *testing.T) {
	ss := linspace(0, 1, 21)
	pc, err := New(Config{Name: "empty", Ss: ss})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.NM(), test.ShouldEqual, 0)
	test.That(t, pc.NEq(), test.ShouldEqual, 0)
	test.That(t, pc.NIq(), test.ShouldEqual, 0)
	test.That(t, pc.NV(), test.ShouldEqual, 0)
	test.That(t, pc.Kind(), test.ShouldEqual, TypeI)
}

func TestNewCanonicalClassification(t *testing.T) {
	ss := linspace(0, 1, 5)
	n1 := len(ss)
	a := mat.NewDense(n1, 2, nil)
	b := mat.NewDense(n1, 2, nil)
	c := mat.NewDense(n1, 2, nil)
	pc, err := New(Config{Name: "canon", Ss: ss, A: a, B: b, C: c})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Kind(), test.ShouldEqual, Canonical)
	test.That(t, pc.NM(), test.ShouldEqual, 2)
}

func TestSetValidateRejectsMismatchedGrids(t *testing.T) {
	ss1 := linspace(0, 1, 5)
	ss2 := linspace(0, 1, 6)
	pc1, err := New(Config{Name: "a", Ss: ss1})
	test.That(t, err, test.ShouldBeNil)
	pc2, err := New(Config{Name: "b", Ss: ss2})
	test.That(t, err, test.ShouldBeNil)

	set := Set{pc1, pc2}
	err = set.Validate()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSetSortOrdersByKind(t *testing.T) {
	ss := linspace(0, 1, 5)
	n1 := len(ss)
	canon, err := New(Config{Ss: ss, A: mat.NewDense(n1, 1, nil), B: mat.NewDense(n1, 1, nil), C: mat.NewDense(n1, 1, nil)})
	test.That(t, err, test.ShouldBeNil)
	typeI, err := New(Config{Ss: ss})
	test.That(t, err, test.ShouldBeNil)

	set := Set{typeI, canon}
	set.Sort()
	test.That(t, set[0].Kind(), test.ShouldEqual, Canonical)
	test.That(t, set[1].Kind(), test.ShouldEqual, TypeI)
}

// TestInterpolationDoublesShapeAndPreservesRightHalf verifies testable
// property 8 and scenario (e) from the spec: interpolating a canonical
// constraint doubles row width, and at every stage i the right-half row
// satisfies a_{i+1}*u + b_{i+1}*(x + 2*Ds_i*u) + c_{i+1} <= 0 whenever
// the original row i+1 was itself satisfied at the boundary.
func TestInterpolationDoublesShapeAndPreservesRightHalf(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ss := linspace(0, 1, 11)
	n1 := len(ss)
	nm := 3
	a := mat.NewDense(n1, nm, nil)
	b := mat.NewDense(n1, nm, nil)
	c := mat.NewDense(n1, nm, nil)
	for i := 0; i < n1; i++ {
		for k := 0; k < nm; k++ {
			a.Set(i, k, rng.NormFloat64())
			b.Set(i, k, rng.NormFloat64())
			c.Set(i, k, rng.NormFloat64())
		}
	}
	pc, err := New(Config{Name: "canon", Ss: ss, A: a, B: b, C: c})
	test.That(t, err, test.ShouldBeNil)

	interp := Interpolate(pc)
	test.That(t, interp.NM(), test.ShouldEqual, 2*nm)

	n := pc.N()
	for i := 0; i < n; i++ {
		ds := ss[i+1] - ss[i]
		for k := 0; k < nm; k++ {
			gotA := interp.A.At(i, nm+k)
			gotB := interp.B.At(i, nm+k)
			gotC := interp.C.At(i, nm+k)
			wantA := a.At(i+1, k) + 2*ds*b.At(i+1, k)
			test.That(t, gotA, test.ShouldAlmostEqual, wantA, 1e-12)
			test.That(t, gotB, test.ShouldAlmostEqual, b.At(i+1, k), 1e-12)
			test.That(t, gotC, test.ShouldAlmostEqual, c.At(i+1, k), 1e-12)
		}
	}
}

func TestInterpolationReplicatesLastRow(t *testing.T) {
	ss := linspace(0, 1, 5)
	n1 := len(ss)
	a := mat.NewDense(n1, 1, []float64{1, 2, 3, 4, 5})
	b := mat.NewDense(n1, 1, nil)
	c := mat.NewDense(n1, 1, nil)
	pc, err := New(Config{Ss: ss, A: a, B: b, C: c})
	test.That(t, err, test.ShouldBeNil)

	interp := Interpolate(pc)
	n := pc.N()
	test.That(t, interp.A.At(n, 0), test.ShouldEqual, interp.A.At(n, 1))
}
