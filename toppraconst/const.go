// Package toppraconst holds the numerical tolerances shared by every
// stage of the reachability pipeline: constraint assembly, the QP
// passes, and trajectory reconstruction all compare against zero using
// these same constants so that a clamp made in one package is never
// mistaken for a violation in another.
package toppraconst

const (
	// SuperTiny is the value a negative x after a forward greedy step is
	// clamped up to, and the tolerance projXAdmissible allows on an
	// up/down gap before logging its collapse. Every negative x is
	// clamped whatever its size; no check reports a larger violation.
	SuperTiny = 1e-16

	// Tiny is the default threshold below which a K/L interval lower
	// endpoint is considered "not populated" by the accessors.
	Tiny = 1e-8

	// Small is the singular-value cutoff below which
	// NewRobotTorqueConstraint takes a direction as part of the
	// loop-closure null space. Grid comparison does not use it: grids
	// must match exactly.
	Small = 1e-5

	// Infty stands in for +/- infinity in QP bound vectors.
	Infty = 1e8

	// DefaultIntervalWidth is the width of the default start and goal
	// intervals, [0, DefaultIntervalWidth], a new reach.Solver holds
	// until they are set.
	DefaultIntervalWidth = 1e-4

	// DefaultNWSR is the default working-set recalculation budget passed
	// to every QP solve.
	DefaultNWSR = 1000

	// NumOperationalRows is the number of scratch rows reserved at the
	// top of every per-stage constraint matrix for solver-driven pins.
	NumOperationalRows = 3
)
