// Package trajectory reconstructs a joint-space trajectory from a
// reach.Solver's time-optimal (u, x) profile: gridpoint sampling
// (exact, one sample per original grid point) and uniform-time
// resampling with an optional per-joint least-squares smoothing pass.
package trajectory

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/viam-labs/go-toppra/geopath"
	"github.com/viam-labs/go-toppra/qp"
)

// Sampled is a joint-space trajectory sampled at a sequence of times:
// position, velocity and acceleration per joint at every sample.
type Sampled struct {
	T       []float64
	Q, Qd, Qdd *mat.Dense // each (len(T), DOF)
}

// GridpointTrajectory reconstructs the exact trajectory at the original
// grid points ss, given the time-optimal profile u (length N, path
// acceleration per segment) and x (length N+1, squared path velocity
// per gridpoint).
func GridpointTrajectory(path geopath.Path, ss []float64, u, x []float64) (*Sampled, error) {
	n1 := len(ss)
	if len(x) != n1 || len(u) != n1-1 {
		return nil, errors.Errorf("trajectory: expected len(x)=%d len(u)=%d, got %d and %d", n1, n1-1, len(x), len(u))
	}

	sd := make([]float64, n1)
	for i, xi := range x {
		if xi < 0 {
			xi = 0
		}
		sd[i] = math.Sqrt(xi)
	}

	t := make([]float64, n1)
	for i := 0; i < n1-1; i++ {
		ds := ss[i+1] - ss[i]
		denom := sd[i] + sd[i+1]
		if denom == 0 {
			return nil, errors.Errorf("trajectory: zero path speed at both ends of segment %d, undefined time step", i)
		}
		t[i+1] = t[i] + 2*ds/denom
	}

	sdd := make([]float64, n1)
	copy(sdd, u)
	sdd[n1-1] = u[n1-2] // the last gridpoint has no outgoing segment; hold the final acceleration.

	q, err := path.Eval(ss)
	if err != nil {
		return nil, errors.Wrap(err, "trajectory: evaluating path")
	}
	qs, err := path.Evald(ss)
	if err != nil {
		return nil, errors.Wrap(err, "trajectory: evaluating path derivative")
	}
	qss, err := path.Evaldd(ss)
	if err != nil {
		return nil, errors.Wrap(err, "trajectory: evaluating path second derivative")
	}

	dof := path.DOF()
	qd := mat.NewDense(n1, dof, nil)
	qdd := mat.NewDense(n1, dof, nil)
	for i := 0; i < n1; i++ {
		for j := 0; j < dof; j++ {
			qd.Set(i, j, qs.At(i, j)*sd[i])
			qdd.Set(i, j, qs.At(i, j)*sdd[i]+qss.At(i, j)*sd[i]*sd[i])
		}
	}

	return &Sampled{T: t, Q: q, Qd: qd, Qdd: qdd}, nil
}

// Resample builds a uniform-time-step version of the trajectory. When
// smooth is true, each joint's (q, qd) sequence is additionally passed
// through a per-joint least-squares smoothing QP (see smoothJoint),
// with smoothEps controlling the curvature penalty on the recovered
// acceleration sequence.
func Resample(path geopath.Path, ss []float64, u, x []float64, dt float64, smooth bool, smoothEps float64) (*Sampled, error) {
	if dt <= 0 {
		return nil, errors.New("trajectory: dt must be positive")
	}
	grid, err := GridpointTrajectory(path, ss, u, x)
	if err != nil {
		return nil, err
	}

	tEnd := grid.T[len(grid.T)-1]
	nSamples := int(math.Floor(tEnd/dt)) + 1
	tOut := make([]float64, nSamples+1)
	for k := range tOut {
		tOut[k] = math.Min(float64(k)*dt, tEnd)
	}

	sd := make([]float64, len(x))
	for i, xi := range x {
		if xi < 0 {
			xi = 0
		}
		sd[i] = math.Sqrt(xi)
	}

	dof := path.DOF()
	sOut := make([]float64, len(tOut))
	seg := 0
	for k, tk := range tOut {
		for seg < len(u)-1 && tk >= grid.T[seg+1] {
			seg++
		}
		dtk := tk - grid.T[seg]
		uSeg := u[seg]
		sdK := sd[seg] + dtk*uSeg
		xK := sdK * sdK
		var sK float64
		if uSeg == 0 {
			sK = ss[seg] + sd[seg]*dtk
		} else {
			sK = ss[seg] + (xK-x[seg])/(2*uSeg)
		}
		sOut[k] = sK
	}

	q, err := path.Eval(sOut)
	if err != nil {
		return nil, errors.Wrap(err, "trajectory: evaluating resampled path")
	}
	qs, err := path.Evald(sOut)
	if err != nil {
		return nil, errors.Wrap(err, "trajectory: evaluating resampled path derivative")
	}
	qss, err := path.Evaldd(sOut)
	if err != nil {
		return nil, errors.Wrap(err, "trajectory: evaluating resampled path second derivative")
	}

	qd := mat.NewDense(len(tOut), dof, nil)
	qdd := mat.NewDense(len(tOut), dof, nil)
	seg = 0
	for k, tk := range tOut {
		for seg < len(u)-1 && tk >= grid.T[seg+1] {
			seg++
		}
		dtk := tk - grid.T[seg]
		uSeg := u[seg]
		sdK := sd[seg] + dtk*uSeg
		for j := 0; j < dof; j++ {
			qd.Set(k, j, qs.At(k, j)*sdK)
			qdd.Set(k, j, qs.At(k, j)*uSeg+qss.At(k, j)*sdK*sdK)
		}
	}

	sampled := &Sampled{T: tOut, Q: q, Qd: qd, Qdd: qdd}
	if !smooth {
		return sampled, nil
	}

	for j := 0; j < dof; j++ {
		qCol := mat.Col(nil, j, q)
		qdCol := mat.Col(nil, j, qd)
		sq, sqd, sqdd, err := smoothJoint(qCol, qdCol, dt, smoothEps)
		if err != nil {
			return nil, errors.Wrapf(err, "trajectory: smoothing joint %d", j)
		}
		for k := range tOut {
			sampled.Q.Set(k, j, sq[k])
			sampled.Qd.Set(k, j, sqd[k])
			sampled.Qdd.Set(k, j, sqdd[k])
		}
	}
	return sampled, nil
}

// smoothJoint solves the strictly-convex least-squares smoothing QP for
// one joint's (q, qd) sequence: find an acceleration sequence u (length
// K = len(q)-1) for the discrete double integrator
// [q_{k+1}; qd_{k+1}] = A*[q_k; qd_k] + B*u_k, A = [[1,dt],[0,1]],
// B = [dt^2/2, dt], minimizing ||Phi*u + Psi*x0 - Xd||^2 +
// smoothEps*||Delta*u||^2, pinned to the input's terminal state by two
// equality rows. Phi/Psi are the lifted dynamics matrices; Delta is the
// first-difference operator used to penalize jerky u sequences.
func smoothJoint(q, qd []float64, dt, smoothEps float64) (sq, sqd, sqdd []float64, err error) {
	n1 := len(q)
	k := n1 - 1
	if k < 1 {
		return append([]float64(nil), q...), append([]float64(nil), qd...), make([]float64, n1), nil
	}

	a00, a01, a11 := 1.0, dt, 1.0
	b0, b1 := dt*dt/2, dt

	// phiQ[m][j], phiQd[m][j] are the q-row/qd-row coefficients of u_j
	// in the state reached after m steps (m=1..k, j=0..m-1), built by
	// unrolling the A/B recursion forward.
	phiQ := make([][]float64, k+1)
	phiQd := make([][]float64, k+1)
	aPowQ0 := make([]float64, k+1) // x0 contribution to q-row after m steps
	aPowQ1 := make([]float64, k+1)
	aPowQd0 := make([]float64, k+1) // x0 contribution to qd-row after m steps
	aPowQd1 := make([]float64, k+1)
	aPowQ0[0], aPowQ1[0] = 1, 0
	aPowQd0[0], aPowQd1[0] = 0, 1
	phiQ[0], phiQd[0] = nil, nil

	for m := 1; m <= k; m++ {
		aPowQ0[m] = a00*aPowQ0[m-1] + a01*aPowQd0[m-1]
		aPowQ1[m] = a00*aPowQ1[m-1] + a01*aPowQd1[m-1]
		aPowQd0[m] = a11 * aPowQd0[m-1]
		aPowQd1[m] = a11 * aPowQd1[m-1]

		phiQ[m] = make([]float64, m)
		phiQd[m] = make([]float64, m)
		for j := 0; j < m-1; j++ {
			phiQ[m][j] = a00*phiQ[m-1][j] + a01*phiQd[m-1][j]
			phiQd[m][j] = a11 * phiQd[m-1][j]
		}
		phiQ[m][m-1] = b0
		phiQd[m][m-1] = b1
	}

	phi := mat.NewDense(2*k, k, nil)
	psi := mat.NewDense(2*k, 2, nil)
	xd := mat.NewVecDense(2*k, nil)
	for m := 1; m <= k; m++ {
		row := 2 * (m - 1)
		for j := 0; j < m; j++ {
			phi.Set(row, j, phiQ[m][j])
			phi.Set(row+1, j, phiQd[m][j])
		}
		psi.Set(row, 0, aPowQ0[m])
		psi.Set(row, 1, aPowQ1[m])
		psi.Set(row+1, 0, aPowQd0[m])
		psi.Set(row+1, 1, aPowQd1[m])
		xd.SetVec(row, q[m])
		xd.SetVec(row+1, qd[m])
	}

	x0 := mat.NewVecDense(2, []float64{q[0], qd[0]})
	var psiX0 mat.VecDense
	psiX0.MulVec(psi, x0)

	var resid mat.VecDense
	resid.SubVec(&psiX0, xd) // Psi*x0 - Xd

	var hDense mat.Dense
	hDense.Mul(phi.T(), phi)
	if smoothEps > 0 && k > 1 {
		for i := 0; i < k-1; i++ {
			hDense.Set(i, i, hDense.At(i, i)+smoothEps)
			hDense.Set(i+1, i+1, hDense.At(i+1, i+1)+smoothEps)
			hDense.Set(i, i+1, hDense.At(i, i+1)-smoothEps)
			hDense.Set(i+1, i, hDense.At(i+1, i)-smoothEps)
		}
	}
	h := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			h.SetSym(i, j, 2*hDense.At(i, j))
		}
	}

	var phiTResid mat.VecDense
	phiTResid.MulVec(phi.T(), &resid)
	g := make([]float64, k)
	for i := 0; i < k; i++ {
		g[i] = 2 * phiTResid.AtVec(i)
	}

	// Terminal equality: pin the last two state rows exactly.
	aEq := mat.NewDense(2, k, nil)
	for j := 0; j < k; j++ {
		aEq.Set(0, j, phiQ[k][j])
		aEq.Set(1, j, phiQd[k][j])
	}
	lAEq := []float64{q[k] - aPowQ0[k]*q[0] - aPowQ1[k]*qd[0], qd[k] - aPowQd0[k]*q[0] - aPowQd1[k]*qd[0]}
	hAEq := append([]float64(nil), lAEq...)

	l := make([]float64, k)
	hBound := make([]float64, k)
	for i := range l {
		l[i] = -1e8
		hBound[i] = 1e8
	}

	solver := qp.NewActiveSet(k, 2)
	status, err := solver.Init(h, g, aEq, l, hBound, lAEq, hAEq, 1000)
	if err != nil {
		return nil, nil, nil, err
	}
	if status != qp.Successful {
		return nil, nil, nil, errors.Errorf("trajectory: smoothing QP did not converge (status %s)", status)
	}
	uOut := make([]float64, k)
	if err := solver.GetPrimal(uOut); err != nil {
		return nil, nil, nil, err
	}

	sq = make([]float64, n1)
	sqd = make([]float64, n1)
	sqdd = make([]float64, n1)
	sq[0], sqd[0] = q[0], qd[0]
	for m := 0; m < k; m++ {
		sq[m+1] = a00*sq[m] + a01*sqd[m] + b0*uOut[m]
		sqd[m+1] = a11*sqd[m] + b1*uOut[m]
		sqdd[m] = uOut[m]
	}
	sqdd[k] = uOut[k-1]

	return sq, sqd, sqdd, nil
}
