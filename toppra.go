// Package toppra ties the reachability solver and trajectory
// reconstruction together behind a small set of entry points, the way
// go.viam.com/rdk/motionplan exposes PlanMotion/PlanWaypoints as the
// public surface over its planner/solver/smoother internals.
package toppra

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/viam-labs/go-toppra/constraint"
	"github.com/viam-labs/go-toppra/geopath"
	"github.com/viam-labs/go-toppra/reach"
	"github.com/viam-labs/go-toppra/trajectory"
)

// PlanOptions carries the knobs a caller may want over the default
// behavior of Plan. The zero value is usable: Dt defaults to 10ms, Reg
// and SmoothEps default to 0, and Smooth defaults to off.
type PlanOptions struct {
	// Dt is the uniform resampling period of the returned trajectory,
	// in seconds. Zero selects a 10ms default.
	Dt float64
	// Smooth enables the per-joint least-squares smoothing pass during
	// resampling.
	Smooth bool
	// SmoothEps weights the smoothing pass's first-difference penalty.
	SmoothEps float64
	// Reg is the Tikhonov regularization passed to the forward greedy
	// pass; 0 disables it.
	Reg float64
	// Verbose switches the reachability solver's logger from debug to
	// development level.
	Verbose bool
}

const defaultDt = 0.01

// Plan runs the full TOPP-RA pipeline for a single path against a
// constraint set: backward controllable sets, forward greedy time
// parameterization, and trajectory resampling. i0 and iN bound the
// admissible squared path velocity at the start and goal; pass a wide
// interval (e.g. {Low: 0, High: 1e8}) when the caller has no preference.
func Plan(path geopath.Path, constraints constraint.Set, i0, iN reach.Interval, opts PlanOptions) (*trajectory.Sampled, error) {
	if len(constraints) == 0 {
		return nil, errors.New("toppra: no constraints passed to Plan")
	}

	dt := opts.Dt
	if dt <= 0 {
		dt = defaultDt
	}

	logger := golog.NewDebugLogger("toppra")
	if opts.Verbose {
		logger = golog.NewDevelopmentLogger("toppra")
	}

	solver, err := reach.NewSolver(constraints, opts.Verbose)
	if err != nil {
		return nil, errors.Wrap(err, "toppra: constructing reachability solver")
	}
	if err := solver.SetStartInterval(i0); err != nil {
		return nil, errors.Wrap(err, "toppra: invalid start interval")
	}
	if err := solver.SetGoalInterval(iN); err != nil {
		return nil, errors.Wrap(err, "toppra: invalid goal interval")
	}

	logger.Debugf("toppra: solving controllable sets over %d stages", solver.N())
	if ok := solver.SolveControllableSets(0); !ok {
		return nil, errors.New("toppra: controllable sets pass failed to converge")
	}

	u, x, err := solver.SolveTOPP(false, opts.Reg)
	if err != nil {
		return nil, errors.Wrap(err, "toppra: forward time-optimal pass failed")
	}

	sampled, err := trajectory.Resample(path, solver.Ss(), u, x, dt, opts.Smooth, opts.SmoothEps)
	if err != nil {
		return nil, errors.Wrap(err, "toppra: resampling trajectory")
	}
	return sampled, nil
}

// PlanAll runs Plan independently over a list of (path, constraints)
// pairs sharing the same start/goal interval convention and options,
// matching motionplan.PlanWaypoints's role of sequencing several
// single-goal plans. It stops and returns the first error encountered.
func PlanAll(paths []geopath.Path, constraintSets []constraint.Set, i0, iN reach.Interval, opts PlanOptions) ([]*trajectory.Sampled, error) {
	if len(paths) != len(constraintSets) {
		return nil, errors.Errorf("toppra: mismatched paths/constraints lengths, %d vs %d", len(paths), len(constraintSets))
	}
	out := make([]*trajectory.Sampled, len(paths))
	for i, p := range paths {
		sampled, err := Plan(p, constraintSets[i], i0, iN, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "toppra: planning waypoint %d", i)
		}
		out[i] = sampled
	}
	return out, nil
}
