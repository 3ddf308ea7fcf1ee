package assembly

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/viam-labs/go-toppra/constraint"
	"github.com/viam-labs/go-toppra/toppraconst"
)

func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a + (b-a)*float64(i)/float64(n-1)
	}
	return out
}

func TestAssembleCanonicalOnly(t *testing.T) {
	ss := linspace(0, 1, 5)
	n1 := len(ss)
	a := mat.NewDense(n1, 1, nil)
	b := mat.NewDense(n1, 1, nil)
	c := mat.NewDense(n1, 1, nil)
	for i := 0; i < n1; i++ {
		a.Set(i, 0, 1)
		b.Set(i, 0, 2)
		c.Set(i, 0, -3)
	}
	pc, err := constraint.New(constraint.Config{Name: "canon", Ss: ss, A: a, B: b, C: c})
	test.That(t, err, test.ShouldBeNil)

	tn, err := Assemble(constraint.Set{pc})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tn.NV, test.ShouldEqual, 2)
	test.That(t, tn.NC, test.ShouldEqual, toppraconst.NumOperationalRows+1)
	test.That(t, tn.N, test.ShouldEqual, 4)

	row := toppraconst.NumOperationalRows
	test.That(t, tn.A[0].At(row, colU), test.ShouldAlmostEqual, 1.0, 1e-12)
	test.That(t, tn.A[0].At(row, colX), test.ShouldAlmostEqual, 2.0, 1e-12)
	test.That(t, tn.HA[0][row], test.ShouldAlmostEqual, 3.0, 1e-12)
	test.That(t, tn.LA[0][row], test.ShouldEqual, -toppraconst.Infty)

	test.That(t, tn.L[0][colU], test.ShouldEqual, -toppraconst.Infty)
	test.That(t, tn.L[0][colX], test.ShouldEqual, 0.0)
}

func TestAssembleTypeIAndTypeIIColumnsDoNotOverlap(t *testing.T) {
	ss := linspace(0, 1, 3)
	n1 := len(ss)

	abar := mat.NewDense(n1, 1, nil)
	bbar := mat.NewDense(n1, 1, nil)
	cbar := mat.NewDense(n1, 1, nil)
	d := make([]*mat.Dense, n1)
	for i := 0; i < n1; i++ {
		abar.Set(i, 0, 1)
		d[i] = mat.NewDense(1, 2, []float64{1, 0})
	}
	eqConstraint, err := constraint.New(constraint.Config{
		Name: "eq", Ss: ss, Abar: abar, Bbar: bbar, Cbar: cbar, D: d,
	})
	test.That(t, err, test.ShouldBeNil)

	g := make([]*mat.Dense, n1)
	lg := mat.NewDense(n1, 1, nil)
	hg := mat.NewDense(n1, 1, nil)
	for i := 0; i < n1; i++ {
		g[i] = mat.NewDense(1, 3, []float64{0, 1, 0})
		lg.Set(i, 0, -1)
		hg.Set(i, 0, 1)
	}
	iqConstraint, err := constraint.New(constraint.Config{
		Name: "iq", Ss: ss, G: g, LG: lg, HG: hg,
	})
	test.That(t, err, test.ShouldBeNil)

	set := constraint.Set{eqConstraint, iqConstraint}
	tn, err := Assemble(set)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, tn.VOffset[eqConstraint], test.ShouldEqual, colVStart)
	test.That(t, tn.VOffset[iqConstraint], test.ShouldEqual, colVStart+eqConstraint.NV())

	eqRow := toppraconst.NumOperationalRows
	iqRow := eqRow + eqConstraint.NEq()
	test.That(t, tn.A[0].At(eqRow, colVStart), test.ShouldAlmostEqual, -1.0, 1e-12)
	test.That(t, tn.A[0].At(iqRow, colVStart+eqConstraint.NV()+1), test.ShouldAlmostEqual, 1.0, 1e-12)
	test.That(t, tn.LA[0][iqRow], test.ShouldAlmostEqual, -1.0, 1e-12)
	test.That(t, tn.HA[0][iqRow], test.ShouldAlmostEqual, 1.0, 1e-12)
}

func TestAssembleRejectsMismatchedGrids(t *testing.T) {
	pc1, err := constraint.New(constraint.Config{Ss: linspace(0, 1, 5)})
	test.That(t, err, test.ShouldBeNil)
	pc2, err := constraint.New(constraint.Config{Ss: linspace(0, 1, 6)})
	test.That(t, err, test.ShouldBeNil)

	_, err = Assemble(constraint.Set{pc1, pc2})
	test.That(t, err, test.ShouldNotBeNil)
}
