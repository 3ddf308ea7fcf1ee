package constraint

import "gonum.org/v1/gonum/mat"

// Interpolate produces a first-order interpolated constraint with every
// row block doubled: the left half is the original row i, the right
// half encodes the same row evaluated at the next collocation point
// i+1, expressed in stage i's (u, x) coordinates via the identity
// x_{i+1} = x_i + 2*Ds_i*u_i. Row N replicates row N in both halves,
// since there is no stage N+1 to look ahead to.
func Interpolate(pc *PathConstraint) *PathConstraint {
	n := pc.N()
	ds := make([]float64, n)
	for i := 0; i < n; i++ {
		ds[i] = pc.ss[i+1] - pc.ss[i]
	}

	out := &PathConstraint{
		Name: pc.Name,
		ss:   pc.ss,
		nm:   2 * pc.nm,
		neq:  2 * pc.neq,
		niq:  2 * pc.niq,
		nv:   2 * pc.nv,
		kind: pc.kind,
	}

	out.A, out.B, out.C = interpolateCanonical(pc, ds)
	out.Abar, out.Bbar, out.Cbar, out.D = interpolateTypeI(pc, ds)
	out.L, out.H = interpolateSlackBox(pc)
	out.G, out.LG, out.HG = interpolateTypeII(pc)

	return out
}

func interpolateCanonical(pc *PathConstraint, ds []float64) (a, b, c *mat.Dense) {
	n, nm := pc.N(), pc.nm
	a = mat.NewDense(n+1, 2*nm, nil)
	b = mat.NewDense(n+1, 2*nm, nil)
	c = mat.NewDense(n+1, 2*nm, nil)
	for i := 0; i <= n; i++ {
		for k := 0; k < nm; k++ {
			a.Set(i, k, pc.A.At(i, k))
			b.Set(i, k, pc.B.At(i, k))
			c.Set(i, k, pc.C.At(i, k))
		}
		if i < n {
			for k := 0; k < nm; k++ {
				// right half at row i enforces constraint i+1 in stage i's coords:
				// a_{i+1}*u + b_{i+1}*(x + 2*Ds_i*u) + c_{i+1} <= 0.
				a.Set(i, nm+k, pc.A.At(i+1, k)+2*ds[i]*pc.B.At(i+1, k))
				b.Set(i, nm+k, pc.B.At(i+1, k))
				c.Set(i, nm+k, pc.C.At(i+1, k))
			}
		} else {
			for k := 0; k < nm; k++ {
				a.Set(i, nm+k, pc.A.At(i, k))
				b.Set(i, nm+k, pc.B.At(i, k))
				c.Set(i, nm+k, pc.C.At(i, k))
			}
		}
	}
	return
}

func interpolateTypeI(pc *PathConstraint, ds []float64) (abar, bbar, cbar *mat.Dense, d []*mat.Dense) {
	n, neq, nv := pc.N(), pc.neq, pc.nv
	abar = mat.NewDense(n+1, 2*neq, nil)
	bbar = mat.NewDense(n+1, 2*neq, nil)
	cbar = mat.NewDense(n+1, 2*neq, nil)
	d = make([]*mat.Dense, n+1)

	for i := 0; i <= n; i++ {
		di := mat.NewDense(2*neq, 2*nv, nil)
		d[i] = di

		for k := 0; k < neq; k++ {
			abar.Set(i, k, pc.Abar.At(i, k))
			bbar.Set(i, k, pc.Bbar.At(i, k))
			cbar.Set(i, k, pc.Cbar.At(i, k))
		}
		setBlock(di, 0, 0, pc.D[i])

		if i < n {
			for k := 0; k < neq; k++ {
				abar.Set(i, neq+k, pc.Abar.At(i+1, k)+2*ds[i]*pc.Bbar.At(i+1, k))
				bbar.Set(i, neq+k, pc.Bbar.At(i+1, k))
				cbar.Set(i, neq+k, pc.Cbar.At(i+1, k))
			}
			setBlock(di, neq, nv, pc.D[i+1])
		} else {
			for k := 0; k < neq; k++ {
				abar.Set(i, neq+k, pc.Abar.At(i, k))
				bbar.Set(i, neq+k, pc.Bbar.At(i, k))
				cbar.Set(i, neq+k, pc.Cbar.At(i, k))
			}
			setBlock(di, neq, nv, pc.D[i])
		}
	}
	return
}

func interpolateSlackBox(pc *PathConstraint) (l, h *mat.Dense) {
	n, nv := pc.N(), pc.nv
	l = mat.NewDense(n+1, 2*nv, nil)
	h = mat.NewDense(n+1, 2*nv, nil)
	for i := 0; i <= n; i++ {
		for k := 0; k < nv; k++ {
			l.Set(i, k, pc.L.At(i, k))
			h.Set(i, k, pc.H.At(i, k))
		}
		src := i + 1
		if src > n {
			src = i
		}
		for k := 0; k < nv; k++ {
			l.Set(i, nv+k, pc.L.At(src, k))
			h.Set(i, nv+k, pc.H.At(src, k))
		}
	}
	return
}

func interpolateTypeII(pc *PathConstraint) (g []*mat.Dense, lg, hg *mat.Dense) {
	n, niq, nv := pc.N(), pc.niq, pc.nv
	g = make([]*mat.Dense, n+1)
	lg = mat.NewDense(n+1, 2*niq, nil)
	hg = mat.NewDense(n+1, 2*niq, nil)

	for i := 0; i <= n; i++ {
		gi := mat.NewDense(2*niq, 2*nv, nil)
		g[i] = gi
		setBlock(gi, 0, 0, pc.G[i])
		for k := 0; k < niq; k++ {
			lg.Set(i, k, pc.LG.At(i, k))
			hg.Set(i, k, pc.HG.At(i, k))
		}
		src := i + 1
		if src > n {
			src = i
		}
		setBlock(gi, niq, nv, pc.G[src])
		for k := 0; k < niq; k++ {
			lg.Set(i, niq+k, pc.LG.At(src, k))
			hg.Set(i, niq+k, pc.HG.At(src, k))
		}
	}
	return
}

// setBlock copies src into dst starting at (rowOff, colOff).
func setBlock(dst *mat.Dense, rowOff, colOff int, src *mat.Dense) {
	r, c := src.Dims()
	if r == 0 || c == 0 {
		return
	}
	sub := dst.Slice(rowOff, rowOff+r, colOff, colOff+c).(*mat.Dense)
	sub.Copy(src)
}
