// Package constraint implements the discretized PathConstraint model:
// a single constraint object carries up to three independent coupling
// kinds (canonical, Type-I slack-equality, Type-II slack-inequality),
// each defined at every grid point. Constraints are constructed once
// from a path and a dynamics/limits model and are immutable afterward.
package constraint

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Kind classifies a PathConstraint by which block it carries. Assembly
// packs rows in Kind order so that row ranges are contiguous and
// deterministic.
type Kind int

const (
	// Canonical constraints are linear in (u, x) with no slack: a*u + b*x + c <= 0.
	Canonical Kind = iota
	// TypeI constraints couple (u, x) to a slack vector v through an equality.
	TypeI
	// TypeII constraints are pure inequalities on the slack vector v.
	TypeII
)

// PathConstraint is a single discretized constraint over a shared grid
// ss, carrying any subset of the four coefficient blocks listed in its
// fields below. Missing blocks default to zero-width matrices with
// first dimension N+1, so a constraint that is purely canonical still
// reports NEq == NIq == NV == 0 cleanly.
type PathConstraint struct {
	Name string
	ss   []float64

	// Canonical block: a*u + b*x + c <= 0, each (N+1, NM).
	A, B, C *mat.Dense

	// Type-I block: abar*u + bbar*x + cbar == D*v, each (N+1, NEq) except
	// D which is (N+1, NEq, NV) flattened into a slice of per-stage matrices.
	Abar, Bbar, Cbar *mat.Dense
	D                []*mat.Dense // len N+1, each (NEq, NV)

	// Slack box: L <= v <= H, each (N+1, NV).
	L, H *mat.Dense

	// Type-II block: LG <= G*v <= HG, G is (N+1, NIQ, NV).
	G      []*mat.Dense // len N+1, each (NIQ, NV)
	LG, HG *mat.Dense   // each (N+1, NIQ)

	nm, neq, niq, nv int
	kind             Kind
}

// Config carries the subset of blocks a caller wants to set when
// constructing a PathConstraint. Any nil field is replaced by a
// zero-width matrix of the correct first dimension at construction
// time, except that nil L and H on a constraint with slack columns
// (nv > 0) become (N+1, nv) zero matrices, boxing v to zero.
type Config struct {
	Name string
	Ss   []float64

	A, B, C *mat.Dense

	Abar, Bbar, Cbar *mat.Dense
	D                []*mat.Dense

	L, H *mat.Dense

	G      []*mat.Dense
	LG, HG *mat.Dense
}

// New builds a PathConstraint from cfg, filling any unset block with a
// zero-width placeholder and deriving the constraint's Kind.
func New(cfg Config) (*PathConstraint, error) {
	if len(cfg.Ss) < 2 {
		return nil, errors.New("constraint: grid must have at least 2 points")
	}
	n1 := len(cfg.Ss)

	pc := &PathConstraint{Name: cfg.Name, ss: append([]float64(nil), cfg.Ss...)}

	pc.A, pc.nm = orZeroCols(cfg.A, n1)
	pc.B, _ = orZeroCols(cfg.B, n1)
	pc.C, _ = orZeroCols(cfg.C, n1)
	if cfg.A != nil && (cfg.B == nil || cfg.C == nil) {
		return nil, errors.New("constraint: canonical block requires a, b and c together")
	}

	pc.Abar, pc.neq = orZeroCols(cfg.Abar, n1)
	pc.Bbar, _ = orZeroCols(cfg.Bbar, n1)
	pc.Cbar, _ = orZeroCols(cfg.Cbar, n1)
	if cfg.Abar != nil && (cfg.Bbar == nil || cfg.Cbar == nil || cfg.D == nil) {
		return nil, errors.New("constraint: type-I block requires abar, bbar, cbar and D together")
	}

	pc.nv = 0
	switch {
	case len(cfg.D) > 0:
		_, pc.nv = cfg.D[0].Dims()
	case len(cfg.G) > 0:
		_, pc.nv = cfg.G[0].Dims()
	}
	if len(cfg.D) > 0 {
		pc.D = cfg.D
	} else {
		pc.D = zeroTensor(n1, pc.neq, pc.nv)
	}

	pc.L, _ = orZeroCols(cfg.L, n1)
	pc.H, _ = orZeroCols(cfg.H, n1)
	if cfg.L != nil {
		_, nv := cfg.L.Dims()
		if nv != pc.nv {
			return nil, errors.Errorf("constraint: slack box width %d does not match D's nv %d", nv, pc.nv)
		}
	} else if pc.nv > 0 {
		pc.L = mat.NewDense(n1, pc.nv, nil)
		pc.H = mat.NewDense(n1, pc.nv, nil)
	}

	pc.LG, pc.niq = orZeroCols(cfg.LG, n1)
	pc.HG, _ = orZeroCols(cfg.HG, n1)
	if len(cfg.G) > 0 {
		pc.G = cfg.G
	} else {
		pc.G = zeroTensor(n1, pc.niq, pc.nv)
	}

	switch {
	case pc.nm > 0:
		pc.kind = Canonical
	case pc.niq == 0:
		pc.kind = TypeI
	default:
		pc.kind = TypeII
	}

	return pc, nil
}

func orZeroCols(m *mat.Dense, rows int) (*mat.Dense, int) {
	if m == nil {
		return mat.NewDense(rows, 0, nil), 0
	}
	_, c := m.Dims()
	return m, c
}

func zeroTensor(n1, rows, cols int) []*mat.Dense {
	out := make([]*mat.Dense, n1)
	for i := range out {
		out[i] = mat.NewDense(rows, cols, nil)
	}
	return out
}

// Ss returns the shared grid this constraint is defined over.
func (pc *PathConstraint) Ss() []float64 { return pc.ss }

// N is the number of grid segments (len(ss) - 1).
func (pc *PathConstraint) N() int { return len(pc.ss) - 1 }

// NM, NEq, NIq, NV report the per-block dimensions of the fields above.
func (pc *PathConstraint) NM() int  { return pc.nm }
func (pc *PathConstraint) NEq() int { return pc.neq }
func (pc *PathConstraint) NIq() int { return pc.niq }
func (pc *PathConstraint) NV() int  { return pc.nv }

// Kind reports the constraint's classification.
func (pc *PathConstraint) Kind() Kind { return pc.kind }

// Set is an ordered list of PathConstraint sharing one grid. Assembly
// packs each block's rows contiguously in any Set order and does not
// sort the Set; slack columns follow the Set's order.
type Set []*PathConstraint

// Sort orders the set by Kind (Canonical < TypeI < TypeII), stable so
// constraints of equal kind keep their construction order.
func (s Set) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].kind < s[j].kind })
}

// Validate checks the grid-identity invariant: every constraint in the
// set must share the exact same grid.
func (s Set) Validate() error {
	if len(s) == 0 {
		return errors.New("constraint: empty constraint set")
	}
	ss := s[0].ss
	for _, c := range s[1:] {
		if !sameGrid(ss, c.ss) {
			return errors.Errorf("constraint: constraint %q grid does not match set grid", c.Name)
		}
	}
	return nil
}

func sameGrid(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Dims reports the aggregate dimensions of the set: total canonical
// rows, equality rows, inequality rows and slack width, plus nV = nv+2.
func (s Set) Dims() (nmTotal, neqTotal, niqTotal, nvTotal, nV int) {
	for _, c := range s {
		nmTotal += c.nm
		neqTotal += c.neq
		niqTotal += c.niq
		nvTotal += c.nv
	}
	nV = nvTotal + 2
	return
}
