package anywass

import "math"

// conjugateSinkhorn solves the conjugate problem of the
// transport ball: it moves one sample src to the image z
// maximizing the inner product with grad, subject to the
// transport cost between src and z staying within eps.
//
// With entropic regularization the optimal plan has the
// closed form
//
//	plan[i][j] = u[i] * exp(reg*(grad[j] - psi*C[i][j]) - 1)
//
// so each iteration only rescales the rows to match the
// source marginal and takes a Newton step on the cost
// multiplier psi.
// Like projectedSinkhorn, it stops on a stable objective
// or at maxIter, and returns the iteration count.
func conjugateSinkhorn(g geometry, src, grad, kernel []float64, kernelSize int,
	eps, reg float64, maxIter int) ([]float64, int) {
	mass := sum(src)
	if mass <= 0 {
		return append([]float64{}, src...), 0
	}

	n := len(src)
	sn := make([]float64, n)
	for i := range sn {
		sn[i] = src[i] / mass
	}

	// Shift the exponents of the objective so that the
	// largest one is e^-1; the row rescaling cancels the
	// shift exactly.
	shift := math.Inf(-1)
	for _, x := range grad {
		shift = math.Max(shift, reg*x)
	}
	expG := make([]float64, n)
	for i, x := range grad {
		expG[i] = boundedExp(reg*x - shift - 1)
	}

	psi := 1.0
	expK := make([]float64, len(kernel))
	kc := make([]float64, len(kernel))
	kcc := make([]float64, len(kernel))
	updateKernels := func() {
		for i, c := range kernel {
			expK[i] = math.Exp(-reg * psi * c)
			kc[i] = expK[i] * c
			kcc[i] = kc[i] * c
		}
	}
	updateKernels()

	u := make([]float64, n)
	z := make([]float64, n)
	tmp := make([]float64, n)
	objective := math.Inf(-1)
	var iters int
	for iters < maxIter {
		iters++

		// Match the source marginal.
		// The row sums are tiny wherever the objective's
		// shifted exponentials are, so the guard only has
		// to exclude exact zero.
		g.localTransport(expK, expG, tmp, kernelSize)
		for i := range u {
			u[i] = sn[i] / math.Max(tmp[i], divFloor)
		}

		// Newton step on the cost multiplier.
		g.localTransport(kc, expG, tmp, kernelSize)
		cost := dot(u, tmp)
		g.localTransport(kcc, expG, tmp, kernelSize)
		deriv := -reg * dot(u, tmp)
		var delta float64
		if deriv != 0 {
			delta = (cost - eps) / deriv
		}
		step := 1.0
		for psi-step*delta < 0 && step > 1e-2 {
			step /= 2
		}
		psi = math.Max(psi-step*delta, 0)
		updateKernels()

		// Read the result off the column sums.
		g.localTransport(expK, u, tmp, kernelSize)
		for i := range z {
			z[i] = expG[i] * tmp[i]
		}
		next := dot(grad, z)
		if !math.IsInf(objective, -1) &&
			math.Abs(objective-next) <= dualTolerance+dualTolerance*math.Abs(next) {
			break
		}
		objective = next
	}

	res := make([]float64, n)
	for i := range res {
		res[i] = z[i] * mass
	}
	return res, iters
}
