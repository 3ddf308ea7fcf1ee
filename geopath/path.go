// Package geopath provides the geometric path capability consumed by
// the reachability solver: evaluation of joint position, velocity and
// acceleration with respect to the path parameter s. The concrete
// dynamics, collision geometry and everything else about the robot are
// out of scope here; a Path only needs to answer q(s), q'(s), q''(s).
package geopath

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Path evaluates a geometric path in joint space and its first two
// derivatives with respect to the path parameter s. Implementations
// must be defined on a closed interval [s0, sEnd] and continuous
// through the second derivative on the open interval.
type Path interface {
	// Eval returns q(s) for each entry of s, stacked as an (len(s), DOF) matrix.
	Eval(s []float64) (*mat.Dense, error)
	// Evald returns dq/ds for each entry of s.
	Evald(s []float64) (*mat.Dense, error)
	// Evaldd returns d2q/ds2 for each entry of s.
	Evaldd(s []float64) (*mat.Dense, error)
	// DOF returns the number of joints the path is defined over.
	DOF() int
	// Domain returns [sStart, sEnd], the domain of the path.
	Domain() (sStart, sEnd float64)
}

// Linear is a straight-line path in joint space between two waypoints,
// parameterized directly by s over [0, 1]. It is degenerate (qss == 0)
// and is mainly useful for the scalar test scenarios where only qs
// matters.
type Linear struct {
	Q0, Q1 []float64
}

// NewLinear builds a Linear path; q0 and q1 must have equal, nonzero length.
func NewLinear(q0, q1 []float64) (*Linear, error) {
	if len(q0) == 0 || len(q0) != len(q1) {
		return nil, errors.Errorf("geopath: mismatched or empty endpoints, len(q0)=%d len(q1)=%d", len(q0), len(q1))
	}
	return &Linear{Q0: q0, Q1: q1}, nil
}

// DOF implements Path.
func (p *Linear) DOF() int { return len(p.Q0) }

// Domain implements Path.
func (p *Linear) Domain() (float64, float64) { return 0, 1 }

// Eval implements Path.
func (p *Linear) Eval(s []float64) (*mat.Dense, error) {
	out := mat.NewDense(len(s), p.DOF(), nil)
	for i, si := range s {
		for j := range p.Q0 {
			out.Set(i, j, p.Q0[j]+si*(p.Q1[j]-p.Q0[j]))
		}
	}
	return out, nil
}

// Evald implements Path.
func (p *Linear) Evald(s []float64) (*mat.Dense, error) {
	out := mat.NewDense(len(s), p.DOF(), nil)
	for i := range s {
		for j := range p.Q0 {
			out.Set(i, j, p.Q1[j]-p.Q0[j])
		}
	}
	return out, nil
}

// Evaldd implements Path.
func (p *Linear) Evaldd(s []float64) (*mat.Dense, error) {
	// Zero matrix; a straight segment has no curvature.
	return mat.NewDense(len(s), p.DOF(), nil), nil
}
