package anywass

import "math"

const (
	// logFloor guards logarithms of empty pixels.
	logFloor = 1e-10

	// divFloor guards divisions by kernel sums that may
	// legitimately be many orders of magnitude below
	// logFloor.
	divFloor = 1e-300

	// expCeil caps exponents so that intermediate dual
	// variables saturate instead of overflowing.
	expCeil = 500

	// dualTolerance is the relative change of the dual
	// objective below which a solver is converged.
	dualTolerance = 1e-4
)

// projectedSinkhorn approximately projects one sample w
// onto the set of images within transport cost eps of
// src, using entropic regularization of strength reg.
//
// The routine runs a block-coordinate ascent on the dual
// of the regularized projection: an update of the source
// marginal variables, an update of the target marginal
// variables through the Lambert W function, and a Newton
// step on the multiplier of the cost constraint.
// It stops when the dual objective stabilizes or after
// maxIter iterations, whichever comes first, and returns
// the number of iterations used.
//
// Hitting the iteration cap is not an error; the best
// iterate found so far is still returned.
func projectedSinkhorn(g geometry, w, src, kernel []float64, kernelSize int,
	eps, reg float64, maxIter int) ([]float64, int) {
	mass := sum(src)
	if mass <= 0 {
		return append([]float64{}, src...), 0
	}

	n := len(src)
	wn := make([]float64, n)
	sn := make([]float64, n)
	for i := range wn {
		wn[i] = w[i] / mass
		sn[i] = src[i] / mass
	}

	alpha := make([]float64, n)
	expAlpha := make([]float64, n)
	beta := make([]float64, n)
	expBeta := make([]float64, n)
	tmp := make([]float64, n)
	logN := math.Log(float64(n))
	for i := range alpha {
		alpha[i] = -logN
		expAlpha[i] = float64(n)
		beta[i] = -reg * wn[i]
		expBeta[i] = boundedExp(-beta[i])
	}

	psi := 1.0
	k := make([]float64, len(kernel))
	kc := make([]float64, len(kernel))
	kcc := make([]float64, len(kernel))
	updateKernels := func() {
		for i, c := range kernel {
			k[i] = math.Exp(-psi*c - 1)
			kc[i] = k[i] * c
			kcc[i] = kc[i] * c
		}
	}
	updateKernels()

	conv := math.Inf(-1)
	var iters int
	for iters < maxIter {
		iters++

		// Source marginal block.
		g.localTransport(k, expBeta, tmp, kernelSize)
		for i := range alpha {
			alpha[i] = math.Log(math.Max(tmp[i], logFloor)) -
				math.Log(math.Max(sn[i], logFloor))
			expAlpha[i] = boundedExp(-alpha[i])
		}

		// Target marginal block.
		g.localTransport(k, expAlpha, tmp, kernelSize)
		for i := range beta {
			val := reg * boundedExp(reg*wn[i]) * tmp[i]
			if val > logFloor {
				val = lambertW(val)
			}
			beta[i] = val - reg*wn[i]
			expBeta[i] = boundedExp(-beta[i])
		}

		// Newton step on the cost multiplier.
		g.localTransport(kc, expBeta, tmp, kernelSize)
		grad := -eps + dot(expAlpha, tmp)
		g.localTransport(kcc, expBeta, tmp, kernelSize)
		hess := -dot(expAlpha, tmp)
		var delta float64
		if hess != 0 {
			delta = grad / hess
		}
		step := 1.0
		for psi-step*delta < 0 && step > 1e-2 {
			step /= 2
		}
		psi = math.Max(psi-step*delta, 0)
		updateKernels()

		g.localTransport(k, expBeta, tmp, kernelSize)
		next := -0.5/reg*math.Pow(norm2(beta), 2) - psi*eps -
			cappedDot(alpha, sn) - cappedDot(beta, wn) - dot(expAlpha, tmp)
		if !math.IsInf(conv, -1) &&
			math.Abs(conv-next) <= dualTolerance+dualTolerance*math.Abs(next) {
			break
		}
		conv = next
	}

	res := make([]float64, n)
	for i := range res {
		res[i] = (beta[i]/reg + wn[i]) * mass
	}
	return res, iters
}

// cappedDot is a dot product with the first argument
// capped component-wise, which keeps the dual objective
// finite when a marginal variable saturates.
func cappedDot(a, b []float64) float64 {
	var total float64
	for i, x := range a {
		total += math.Min(x, 1e10) * b[i]
	}
	return total
}

func boundedExp(x float64) float64 {
	return math.Exp(math.Min(x, expCeil))
}

// lambertW approximates the principal branch of the
// Lambert W function for non-negative arguments using
// Halley's iteration.
func lambertW(x float64) float64 {
	if x == 0 {
		return 0
	}
	w := math.Log1p(x)
	if x > math.E {
		w = math.Log(x) - math.Log(math.Log(x))
	}
	for i := 0; i < 32; i++ {
		ew := math.Exp(w)
		f := w*ew - x
		denom := ew*(w+1) - (w+2)*f/(2*w+2)
		next := w - f/denom
		if math.Abs(next-w) <= 1e-12*(1+math.Abs(next)) {
			return next
		}
		w = next
	}
	return w
}
