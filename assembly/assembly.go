// Package assembly packs a constraint.Set sharing one grid into the
// per-stage QP tensors the reachability solver drives: A[i], lA[i],
// hA[i], l[i], h[i], one stage per grid point. Row packing is fixed and
// deterministic so the reachability solver can address operational
// rows by a constant offset: operational rows first, then canonical,
// then Type-I equalities, then Type-II inequalities, matching
// toppraconst.NumOperationalRows reserved at the top of every stage.
package assembly

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/viam-labs/go-toppra/constraint"
	"github.com/viam-labs/go-toppra/toppraconst"
)

// Tensors holds the assembled per-stage QP data for a constraint.Set.
// A, LA, HA carry one entry per grid point (length N+1); L and H are
// also per grid point since a constraint's slack box may vary with i.
// The top toppraconst.NumOperationalRows rows of every A[i]/LA[i]/HA[i]
// are zeroed placeholders the reachability solver overwrites in place
// before each primitive call.
type Tensors struct {
	NV, NC int
	N      int

	A      []*mat.Dense
	LA, HA [][]float64
	L, H   [][]float64

	// VOffset maps each constraint in the assembled set to the column
	// offset of its slack sub-block within the shared v region (column
	// 2 onward). Needed by callers that want to read back a particular
	// constraint's slack values from a stage's primal vector.
	VOffset map[*constraint.PathConstraint]int
}

const (
	colU      = 0
	colX      = 1
	colVStart = 2
)

// Assemble packs set into per-stage tensors. set must already satisfy
// constraint.Set.Validate (shared grid).
func Assemble(set constraint.Set) (*Tensors, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	nmTotal, neqTotal, niqTotal, _, nV := set.Dims()
	nop := toppraconst.NumOperationalRows
	nC := nop + nmTotal + neqTotal + niqTotal
	n1 := len(set[0].Ss())
	n := n1 - 1

	vOffset := make(map[*constraint.PathConstraint]int, len(set))
	col := colVStart
	for _, c := range set {
		vOffset[c] = col
		col += c.NV()
	}
	if col != nV {
		return nil, errors.Errorf("assembly: slack column bookkeeping produced width %d, expected %d", col, nV)
	}

	t := &Tensors{
		NV: nV, NC: nC, N: n,
		A:       make([]*mat.Dense, n1),
		LA:      make([][]float64, n1),
		HA:      make([][]float64, n1),
		L:       make([][]float64, n1),
		H:       make([][]float64, n1),
		VOffset: vOffset,
	}

	for i := 0; i < n1; i++ {
		a := mat.NewDense(nC, nV, nil)
		lA := make([]float64, nC)
		hA := make([]float64, nC)

		row := nop
		for _, c := range set {
			row = fillCanonical(a, lA, hA, row, c, i)
		}
		for _, c := range set {
			row = fillTypeI(a, lA, hA, row, c, i, vOffset[c])
		}
		for _, c := range set {
			row = fillTypeII(a, lA, hA, row, c, i, vOffset[c])
		}
		if row != nC {
			return nil, errors.Errorf("assembly: stage %d packed %d rows, expected %d", i, row, nC)
		}

		l := make([]float64, nV)
		h := make([]float64, nV)
		l[colU], h[colU] = -toppraconst.Infty, toppraconst.Infty
		l[colX], h[colX] = 0, toppraconst.Infty
		for _, c := range set {
			off := vOffset[c]
			for k := 0; k < c.NV(); k++ {
				l[off+k] = c.L.At(i, k)
				h[off+k] = c.H.At(i, k)
			}
		}

		t.A[i] = a
		t.LA[i] = lA
		t.HA[i] = hA
		t.L[i] = l
		t.H[i] = h
	}

	return t, nil
}

func fillCanonical(a *mat.Dense, lA, hA []float64, row int, c *constraint.PathConstraint, i int) int {
	for k := 0; k < c.NM(); k++ {
		a.Set(row, colU, c.A.At(i, k))
		a.Set(row, colX, c.B.At(i, k))
		lA[row] = -toppraconst.Infty
		hA[row] = -c.C.At(i, k)
		row++
	}
	return row
}

func fillTypeI(a *mat.Dense, lA, hA []float64, row int, c *constraint.PathConstraint, i, vOff int) int {
	d := c.D[i]
	for k := 0; k < c.NEq(); k++ {
		a.Set(row, colU, c.Abar.At(i, k))
		a.Set(row, colX, c.Bbar.At(i, k))
		for j := 0; j < c.NV(); j++ {
			a.Set(row, vOff+j, -d.At(k, j))
		}
		lA[row] = -c.Cbar.At(i, k)
		hA[row] = -c.Cbar.At(i, k)
		row++
	}
	return row
}

func fillTypeII(a *mat.Dense, lA, hA []float64, row int, c *constraint.PathConstraint, i, vOff int) int {
	g := c.G[i]
	for k := 0; k < c.NIq(); k++ {
		for j := 0; j < c.NV(); j++ {
			a.Set(row, vOff+j, g.At(k, j))
		}
		lA[row] = c.LG.At(i, k)
		hA[row] = c.HG.At(i, k)
		row++
	}
	return row
}
