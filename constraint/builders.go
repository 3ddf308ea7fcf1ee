package constraint

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/viam-labs/go-toppra/geopath"
	"github.com/viam-labs/go-toppra/toppraconst"
)

// RobotDynamics is the opaque robot-dynamics collaborator consumed by
// the torque and contact-stability builders. Joint torque along the
// path decomposes as tau = t1*sdd + (t2+t3)*sd^2 + t4; callers obtain
// (t1, t3, t4) by calling InverseDynamics with qd passed as both the
// velocity and acceleration argument, and obtain t2 (discarding the
// other two return values) by passing the true qdd.
type RobotDynamics interface {
	InverseDynamics(q, qd, qddArg []float64) (t1, t3, t4 []float64, err error)
	// WrenchJacobian returns the Jacobian mapping a contact wrench at
	// point p on the named link to joint torques, shape (dof, 6).
	WrenchJacobian(link string, p []float64) (*mat.Dense, error)
}

// Contact describes one stance contact used by the contact-stability
// builder: the link and point the wrench acts through, and the
// friction-cone face matrix bounding the local wrench (rows are faces,
// columns the 6 wrench components).
type Contact struct {
	Link        string
	Point       []float64
	WrenchFaces *mat.Dense // (nFaces, 6); WrenchFaces * w <= 0
}

// NewVelocityConstraint builds the canonical joint-velocity-limit
// constraint: 0*u + 1*x - sdmax^2 <= 0 and 0*u - 1*x + sdmin^2 <= 0,
// where [sdmin, sdmax] is the path-speed range each joint's limits allow
// through qdot = qs*sd (sdmin^2 is taken as 0 when sdmin <= 0),
// following create_velocity_path_constraint.
func NewVelocityConstraint(path geopath.Path, ss []float64, vlim [][2]float64) (*PathConstraint, error) {
	dof := path.DOF()
	if len(vlim) != dof {
		return nil, errors.Errorf("constraint: velocity limits length %d does not match path DOF %d", len(vlim), dof)
	}
	qs, err := path.Evald(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path derivative")
	}
	n1 := len(ss)

	a := mat.NewDense(n1, 2*dof, nil) // all zero: velocity limit has no dependence on u
	b := mat.NewDense(n1, 2*dof, nil)
	c := mat.NewDense(n1, 2*dof, nil)
	for i := 0; i < n1; i++ {
		for j := 0; j < dof; j++ {
			qsij := qs.At(i, j)
			sdmax := vlim[j][1]
			sdmin := vlim[j][0]
			// x represents squared path velocity; convert joint velocity
			// bounds to bounds on x via qdot = qs * sd.
			var xmax, xmin float64
			if qsij != 0 {
				// sd >= 0: dividing by a negative qs swaps the bounds, and a
				// non-positive lower bound on sd places no bound on x.
				sdHi, sdLo := sdmax/qsij, sdmin/qsij
				if qsij < 0 {
					sdHi, sdLo = sdLo, sdHi
				}
				xmax = sdHi * sdHi
				if sdLo > 0 {
					xmin = sdLo * sdLo
				}
			} else {
				xmax = infBig
				xmin = 0
			}
			b.Set(i, j, 1)
			c.Set(i, j, -xmax)
			b.Set(i, dof+j, -1)
			c.Set(i, dof+j, xmin)
		}
	}

	return New(Config{Name: "Velocity", Ss: ss, A: a, B: b, C: c})
}

const infBig = 1e8

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// NewAccelerationConstraint builds the canonical joint-acceleration-limit
// constraint: qs(si)*u + qss(si)*x - admax <= 0 and the symmetric lower
// bound, following create_acceleration_path_constraint.
func NewAccelerationConstraint(path geopath.Path, ss []float64, alim [][2]float64) (*PathConstraint, error) {
	dof := path.DOF()
	if len(alim) != dof {
		return nil, errors.Errorf("constraint: acceleration limits length %d does not match path DOF %d", len(alim), dof)
	}
	qs, err := path.Evald(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path derivative")
	}
	qss, err := path.Evaldd(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path second derivative")
	}
	n1 := len(ss)

	a := mat.NewDense(n1, 2*dof, nil)
	b := mat.NewDense(n1, 2*dof, nil)
	c := mat.NewDense(n1, 2*dof, nil)
	for i := 0; i < n1; i++ {
		for j := 0; j < dof; j++ {
			qsij := qs.At(i, j)
			qssij := qss.At(i, j)
			amax := alim[j][1]
			amin := alim[j][0]

			a.Set(i, j, qsij)
			b.Set(i, j, qssij)
			c.Set(i, j, -amax)

			a.Set(i, dof+j, -qsij)
			b.Set(i, dof+j, -qssij)
			c.Set(i, dof+j, amin)
		}
	}

	return New(Config{Name: "Acceleration", Ss: ss, A: a, B: b, C: c})
}

// NewJointTorqueConstraint builds the canonical joint-torque-limit
// constraint from an inverse-dynamics callback, following
// create_rave_torque_path_constraint: tau = t1*sdd + (t2+t3)*sd^2 + t4,
// bounded by torqueLimits, expressed as
//
//	t1*u + (t2+t3)*x + (t4 - taumax) <= 0
//	-t1*u - (t2+t3)*x + (taumin - t4) <= 0
func NewJointTorqueConstraint(
	path geopath.Path,
	ss []float64,
	dyn RobotDynamics,
	torqueLimits [][2]float64,
) (*PathConstraint, error) {
	dof := path.DOF()
	if len(torqueLimits) != dof {
		return nil, errors.Errorf("constraint: torque limits length %d does not match path DOF %d", len(torqueLimits), dof)
	}
	q, err := path.Eval(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path")
	}
	qs, err := path.Evald(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path derivative")
	}
	qss, err := path.Evaldd(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path second derivative")
	}
	n1 := len(ss)

	a := mat.NewDense(n1, 2*dof, nil)
	b := mat.NewDense(n1, 2*dof, nil)
	c := mat.NewDense(n1, 2*dof, nil)
	for i := 0; i < n1; i++ {
		qi := mat.Row(nil, i, q)
		qsi := mat.Row(nil, i, qs)
		qssi := mat.Row(nil, i, qss)

		t1, t3, t4, err := dyn.InverseDynamics(qi, qsi, qsi)
		if err != nil {
			return nil, errors.Wrap(err, "constraint: inverse dynamics")
		}
		t2, _, _, err := dyn.InverseDynamics(qi, qsi, qssi)
		if err != nil {
			return nil, errors.Wrap(err, "constraint: inverse dynamics")
		}

		for j := 0; j < dof; j++ {
			a.Set(i, j, t1[j])
			b.Set(i, j, t2[j]+t3[j])
			c.Set(i, j, t4[j]-torqueLimits[j][1])

			a.Set(i, dof+j, -t1[j])
			b.Set(i, dof+j, -(t2[j] + t3[j]))
			c.Set(i, dof+j, -t4[j]+torqueLimits[j][0])
		}
	}

	return New(Config{Name: "JointTorque", Ss: ss, A: a, B: b, C: c})
}

// RedundantActuationDynamics extends RobotDynamics with the Jacobian of
// a robot's loop-closure constraint, consumed by
// NewRobotTorqueConstraint. LoopClosureJacobian maps a configuration q
// to the (d, dof) matrix J_lc such that only virtual displacements dq
// satisfying J_lc(q)*dq == 0 are admissible.
type RedundantActuationDynamics interface {
	RobotDynamics
	LoopClosureJacobian(q []float64) (*mat.Dense, error)
}

// NewRobotTorqueConstraint builds the Type-I torque-limit constraint for
// a redundantly-actuated robot under loop-closure constraints, following
// create_rave_re_torque_path_constraint: at each gridpoint the per-joint
// torque coefficients (t1, t2+t3, t4) are projected onto the null space
// of the loop-closure Jacobian (found via SVD), yielding a dof x dof
// actuation map D whose rows are the null-space basis vectors padded
// with zero rows, and an equality abar*u+bbar*x+cbar == D*v with v (the
// generalized torques) boxed by torqueLimits.
func NewRobotTorqueConstraint(
	path geopath.Path,
	ss []float64,
	dyn RedundantActuationDynamics,
	torqueLimits [][2]float64,
) (*PathConstraint, error) {
	dof := path.DOF()
	if len(torqueLimits) != dof {
		return nil, errors.Errorf("constraint: torque limits length %d does not match path DOF %d", len(torqueLimits), dof)
	}
	q, err := path.Eval(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path")
	}
	qs, err := path.Evald(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path derivative")
	}
	qss, err := path.Evaldd(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path second derivative")
	}
	n1 := len(ss)

	abar := mat.NewDense(n1, dof, nil)
	bbar := mat.NewDense(n1, dof, nil)
	cbar := mat.NewDense(n1, dof, nil)
	l := mat.NewDense(n1, dof, nil)
	h := mat.NewDense(n1, dof, nil)
	d := make([]*mat.Dense, n1)

	for i := 0; i < n1; i++ {
		for j := 0; j < dof; j++ {
			l.Set(i, j, torqueLimits[j][0])
			h.Set(i, j, torqueLimits[j][1])
		}

		qi := mat.Row(nil, i, q)
		qsi := mat.Row(nil, i, qs)
		qssi := mat.Row(nil, i, qss)

		t1, t3, t4, err := dyn.InverseDynamics(qi, qsi, qsi)
		if err != nil {
			return nil, errors.Wrap(err, "constraint: inverse dynamics")
		}
		t2, _, _, err := dyn.InverseDynamics(qi, qsi, qssi)
		if err != nil {
			return nil, errors.Wrap(err, "constraint: inverse dynamics")
		}

		jlp, err := dyn.LoopClosureJacobian(qi)
		if err != nil {
			return nil, errors.Wrap(err, "constraint: loop closure jacobian")
		}

		var svd mat.SVD
		if ok := svd.Factorize(jlp, mat.SVDFullV); !ok {
			return nil, errors.Errorf("constraint: svd factorization failed at gridpoint %d", i)
		}
		var v mat.Dense
		svd.VTo(&v)
		values := svd.Values(nil)

		di := mat.NewDense(dof, dof, nil)
		row := 0
		for col := 0; col < dof; col++ {
			s := 0.0
			if col < len(values) {
				s = values[col]
			}
			if s >= toppraconst.Small {
				continue
			}
			for c := 0; c < dof; c++ {
				di.Set(row, c, v.At(c, col))
			}
			row++
		}
		d[i] = di

		for r := 0; r < dof; r++ {
			var a1, a2, a4 float64
			for c := 0; c < dof; c++ {
				coeff := di.At(r, c)
				a1 += coeff * t1[c]
				a2 += coeff * (t2[c] + t3[c])
				a4 += coeff * t4[c]
			}
			abar.Set(i, r, a1)
			bbar.Set(i, r, a2)
			cbar.Set(i, r, a4)
		}
	}

	return New(Config{
		Name: "RedundantTorqueBounds", Ss: ss,
		Abar: abar, Bbar: bbar, Cbar: cbar, D: d,
		L: l, H: h,
	})
}

// NewContactStabilityConstraint builds the full contact-stability
// constraint (Coulomb friction model), following
// create_full_contact_path_constraint: joint torque is split into a
// Type-I equality (tau == D*v where D pins the torque rows of v to
// identity and the contact-wrench rows to the wrench Jacobians), and
// each contact's friction cone is a Type-II inequality on its wrench
// slack.
func NewContactStabilityConstraint(
	path geopath.Path,
	ss []float64,
	dyn RobotDynamics,
	torqueLimits [][2]float64,
	contacts []Contact,
) (*PathConstraint, error) {
	dof := path.DOF()
	q, err := path.Eval(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path")
	}
	qs, err := path.Evald(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path derivative")
	}
	qss, err := path.Evaldd(ss)
	if err != nil {
		return nil, errors.Wrap(err, "constraint: evaluating path second derivative")
	}

	n1 := len(ss)
	nv := dof + 6*len(contacts)
	niq := 0
	for _, co := range contacts {
		r, _ := co.WrenchFaces.Dims()
		niq += r
	}

	abar := mat.NewDense(n1, dof, nil)
	bbar := mat.NewDense(n1, dof, nil)
	cbar := mat.NewDense(n1, dof, nil)
	l := mat.NewDense(n1, nv, nil)
	h := mat.NewDense(n1, nv, nil)
	d := make([]*mat.Dense, n1)
	g := make([]*mat.Dense, n1)
	lg := mat.NewDense(n1, niq, nil)
	hg := mat.NewDense(n1, niq, nil)

	for i := 0; i < n1; i++ {
		qi := mat.Row(nil, i, q)
		qsi := mat.Row(nil, i, qs)
		qssi := mat.Row(nil, i, qss)

		t1, t3, t4, err := dyn.InverseDynamics(qi, qsi, qsi)
		if err != nil {
			return nil, errors.Wrap(err, "constraint: inverse dynamics")
		}
		t2, _, _, err := dyn.InverseDynamics(qi, qsi, qssi)
		if err != nil {
			return nil, errors.Wrap(err, "constraint: inverse dynamics")
		}
		for j := 0; j < dof; j++ {
			abar.Set(i, j, t1[j])
			bbar.Set(i, j, t2[j]+t3[j])
			cbar.Set(i, j, t4[j])
		}

		di := mat.NewDense(dof, nv, nil)
		for j := 0; j < dof; j++ {
			di.Set(j, j, 1)
		}
		r := dof
		for _, co := range contacts {
			jw, err := dyn.WrenchJacobian(co.Link, co.Point)
			if err != nil {
				return nil, errors.Wrap(err, "constraint: wrench jacobian")
			}
			for a := 0; a < dof; a++ {
				for b := 0; b < 6; b++ {
					di.Set(a, r+b, jw.At(a, b))
				}
			}
			r += 6
		}
		d[i] = di

		for j := 0; j < dof; j++ {
			l.Set(i, j, torqueLimits[j][0])
			h.Set(i, j, torqueLimits[j][1])
		}
		for j := dof; j < nv; j++ {
			l.Set(i, j, -infBig)
			h.Set(i, j, infBig)
		}

		gi := mat.NewDense(niq, nv, nil)
		row := 0
		col := dof
		for _, co := range contacts {
			fr, fc := co.WrenchFaces.Dims()
			block := gi.Slice(row, row+fr, col, col+fc).(*mat.Dense)
			block.Copy(co.WrenchFaces)
			for k := 0; k < fr; k++ {
				lg.Set(i, row+k, -infBig)
				hg.Set(i, row+k, 0)
			}
			row += fr
			col += 6
		}
		g[i] = gi
	}

	return New(Config{
		Name: "FullContactStability", Ss: ss,
		Abar: abar, Bbar: bbar, Cbar: cbar, D: d,
		L: l, H: h,
		G: g, LG: lg, HG: hg,
	})
}
