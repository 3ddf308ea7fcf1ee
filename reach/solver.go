// Package reach implements the reachability core of TOPP-RA: backward
// controllable-set recursion, forward reachable-set recursion, and the
// forward greedy time-optimal pass, all driven through two persistent
// QP instances following go.viam.com/rdk's pattern of a long-lived
// planner object wrapping a stateful solver handle.
package reach

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/viam-labs/go-toppra/assembly"
	"github.com/viam-labs/go-toppra/constraint"
	"github.com/viam-labs/go-toppra/qp"
	"github.com/viam-labs/go-toppra/toppraconst"
)

// Interval is a closed, non-empty-by-convention [Low, High] range of
// squared path velocity. A Low below -toppraconst.Tiny marks an
// unpopulated entry in a K/L table (mirroring the teacher's use of
// sentinel values over an explicit "not yet computed" type).
type Interval struct {
	Low, High float64
}

const unsolvedSentinel = -1.0

// Solver owns the two warm-started QP instances and the K/L tables for
// one constraint set sharing a grid. It is not safe for concurrent use:
// a single goroutine must own it, since every pass rewrites the shared
// operational rows, H and g in place.
type Solver struct {
	tensors *assembly.Tensors
	ss      []float64
	ds      []float64
	n       int
	nWSR    int

	solverUp, solverDown *qp.ActiveSet

	h *mat.SymDense
	g []float64

	i0, iN Interval
	k, l   []Interval

	logger golog.Logger
}

// NewSolver validates that every constraint in constraints shares one
// grid, assembles the per-stage QP tensors, and allocates the two QP
// handles sized to the assembled problem. A set that is empty or whose
// grids disagree yields an error wrapping ErrInvalidInput. verbose
// selects a development logger instead of a debug logger; failures are
// logged with Debugf either way.
func NewSolver(constraints constraint.Set, verbose bool) (*Solver, error) {
	if err := constraints.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}
	tensors, err := assembly.Assemble(constraints)
	if err != nil {
		return nil, errors.Wrap(err, "reach: assembling constraint set")
	}
	ss := constraints[0].Ss()
	n := tensors.N
	ds := make([]float64, n)
	for i := 0; i < n; i++ {
		ds[i] = ss[i+1] - ss[i]
	}

	s := &Solver{
		tensors:    tensors,
		ss:         ss,
		ds:         ds,
		n:          n,
		nWSR:       toppraconst.DefaultNWSR,
		solverUp:   qp.NewActiveSet(tensors.NV, tensors.NC),
		solverDown: qp.NewActiveSet(tensors.NV, tensors.NC),
		h:          mat.NewSymDense(tensors.NV, nil),
		g:          make([]float64, tensors.NV),
	}
	if verbose {
		s.logger = golog.NewDevelopmentLogger("reach")
	} else {
		s.logger = golog.NewDebugLogger("reach")
	}

	widen := func(v float64) Interval { return Interval{Low: v, High: v + toppraconst.DefaultIntervalWidth} }
	s.i0 = widen(0)
	s.iN = widen(0)

	s.k = make([]Interval, n+1)
	s.l = make([]Interval, n+1)
	for i := range s.k {
		s.k[i] = Interval{unsolvedSentinel, unsolvedSentinel}
		s.l[i] = Interval{unsolvedSentinel, unsolvedSentinel}
	}

	return s, nil
}

// SetStartInterval sets I0, the interval of admissible squared path
// velocities at stage 0.
func (s *Solver) SetStartInterval(i Interval) error {
	if err := validateInterval(i); err != nil {
		return err
	}
	s.i0 = i
	return nil
}

// SetGoalInterval sets IN, the interval of admissible squared path
// velocities at the final stage.
func (s *Solver) SetGoalInterval(i Interval) error {
	if err := validateInterval(i); err != nil {
		return err
	}
	s.iN = i
	return nil
}

func validateInterval(i Interval) error {
	if i.Low < 0 {
		return errors.Wrap(ErrInvalidInput, "negative lower endpoint")
	}
	if i.High < i.Low {
		return errors.Wrap(ErrInvalidInput, "non-increasing interval")
	}
	return nil
}

// K returns the populated controllable-set rows, in stage order,
// dropping any row never successfully computed (mirroring the source's
// `_K[:, 0] >= -TINY` filter).
func (s *Solver) K() []Interval { return populated(s.k) }

// L returns the populated reachable-set rows, in stage order.
func (s *Solver) L() []Interval { return populated(s.l) }

func populated(ivs []Interval) []Interval {
	out := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if iv.Low >= -toppraconst.Tiny {
			out = append(out, iv)
		}
	}
	return out
}

// N is the number of grid segments.
func (s *Solver) N() int { return s.n }

// Ss returns the shared grid.
func (s *Solver) Ss() []float64 { return s.ss }

// NV, NC report the assembled problem's variable and constraint counts.
func (s *Solver) NV() int { return s.tensors.NV }
func (s *Solver) NC() int { return s.tensors.NC }
