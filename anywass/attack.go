// Package anywass generates adversarial examples that
// stay within a bounded Wasserstein transport distance
// of the original inputs, after Wong et al.,
// "Wasserstein Adversarial Examples via Projected
// Sinkhorn Iterations."
//
// Transport-bounded perturbations move pixel mass to
// nearby positions instead of changing pixel values
// independently, which produces shifts, blurs, and other
// structurally plausible distortions.
package anywass

import (
	"fmt"

	"github.com/unixpickle/anyadv"
	"github.com/unixpickle/anyvec"
)

// An Attack is a configured adversarial example
// generator for one classifier.
//
// An Attack holds no per-invocation state, so a single
// instance may be shared as long as nobody reconfigures
// it concurrently.
type Attack struct {
	classifier anyadv.LossGradienter
	params     Params
	geom       geometry
}

// New creates an Attack against the classifier.
//
// The classifier must be able to compute loss gradients;
// otherwise a *anyadv.CapabilityError is returned.
// Invalid hyperparameters produce a *anyadv.ConfigError.
// The params bundle is copied, so the caller may reuse
// it afterwards.
func New(c anyadv.Classifier, params *Params) (*Attack, error) {
	if err := params.Check(); err != nil {
		return nil, err
	}
	lg, err := anyadv.CheckGradients(c)
	if err != nil {
		return nil, err
	}
	geom, err := newGeometry(c)
	if err != nil {
		return nil, err
	}
	return &Attack{
		classifier: lg,
		params:     *params,
		geom:       geom,
	}, nil
}

// Params returns a copy of the current hyperparameters.
func (a *Attack) Params() *Params {
	res := a.params
	return &res
}

// SetParams replaces the attack hyperparameters.
//
// The new bundle is validated before any of it is
// stored, so a failed update leaves the previous
// parameters in effect.
func (a *Attack) SetParams(params *Params) error {
	if err := params.Check(); err != nil {
		return err
	}
	a.params = *params
	return nil
}

// Generate produces adversarial examples for a packed
// batch of n samples.
//
// If y is nil, the classifier's own predicted labels are
// attacked, which only makes sense for an untargeted
// attack; a targeted attack requires explicit targets.
// Otherwise y must be a packed one-hot matrix with n
// rows.
//
// The result is a new vector of the same length as x;
// x is never modified.
// Samples that could not be pushed across the decision
// boundary come back unchanged or nearly unchanged
// rather than producing an error.
func (a *Attack) Generate(x anyvec.Vector, n int, y anyvec.Vector) (anyvec.Vector, error) {
	sampleSize := a.geom.SampleSize()
	if n < 1 || x.Len() != n*sampleSize {
		return nil, fmt.Errorf("generate: input length %d does not pack %d samples of size %d",
			x.Len(), n, sampleSize)
	}
	numClasses := a.classifier.NumClasses()
	if y == nil {
		if a.params.Targeted {
			return nil, fmt.Errorf("generate: targeted attack requires target labels")
		}
		y = anyadv.PredictedLabels(a.classifier, x, n)
	} else if y.Len() != n*numClasses {
		return nil, fmt.Errorf("generate: label length %d does not pack %d rows of %d classes",
			y.Len(), n, numClasses)
	}

	kernel := costKernel(a.params.P, a.params.KernelSize)

	var outs []anyvec.Vector
	for start := 0; start < n; start += a.params.BatchSize {
		m := a.params.BatchSize
		if start+m > n {
			m = n - start
		}
		bx := x.Slice(start*sampleSize, (start+m)*sampleSize)
		by := y.Slice(start*numClasses, (start+m)*numClasses)
		outs = append(outs, a.generateBatch(bx, by, m, kernel))
	}
	return x.Creator().Concat(outs...), nil
}

// generateBatch runs the outer perturbation loop for one
// batch of m samples.
func (a *Attack) generateBatch(x, y anyvec.Vector, m int, kernel []float64) anyvec.Vector {
	adv := x.Copy()
	best := x.Copy()

	labels := anyadv.ClassIndices(y, m)
	success := a.successes(adv, labels, m)
	bestRate := successRate(success)

	eps := make([]float64, m)
	for i := range eps {
		eps[i] = a.params.Eps
	}

	for iter := 0; iter < a.params.MaxIter && bestRate < 1; iter++ {
		adv = a.step(adv, x, y, m, kernel, eps, success)
		success = a.successes(adv, labels, m)
		if rate := successRate(success); rate > bestRate {
			bestRate = rate
			best = adv.Copy()
		}
		if bestRate == 1 {
			break
		}
		// Widen the ball for stubborn samples.
		if (iter+1)%a.params.EpsIter == 0 {
			for i, ok := range success {
				if !ok {
					eps[i] *= a.params.EpsFactor
				}
			}
		}
	}
	return best
}

// step applies one gradient step and projection to every
// unfrozen sample of the batch.
func (a *Attack) step(adv, orig, y anyvec.Vector, m int, kernel []float64,
	eps []float64, frozen []bool) anyvec.Vector {
	sampleSize := a.geom.SampleSize()

	gradData := floatData(a.classifier.LossGrad(adv, y, m))
	if a.params.Targeted {
		for i, g := range gradData {
			gradData[i] = -g
		}
	}

	advData := floatData(adv)
	origData := floatData(orig)
	out := append([]float64{}, advData...)
	for i := 0; i < m; i++ {
		if frozen[i] {
			continue
		}
		cur := advData[i*sampleSize : (i+1)*sampleSize]
		src := origData[i*sampleSize : (i+1)*sampleSize]
		grad := gradData[i*sampleSize : (i+1)*sampleSize]
		stepped := a.perturb(cur, grad, kernel)
		copy(out[i*sampleSize:], a.project(stepped, src, kernel, eps[i]))
	}
	a.clip(out)
	return makeVector(adv.Creator(), out)
}

// perturb takes one unconstrained ascent step on a
// single sample; the result may leave the feasible ball.
func (a *Attack) perturb(x, grad, kernel []float64) []float64 {
	const tol = 1e-8
	res := make([]float64, len(x))
	switch a.params.Norm {
	case NormInf:
		for i, g := range grad {
			res[i] = x[i] + a.params.EpsStep*sign(g)
		}
	case NormOne:
		scale := a.params.EpsStep / (norm1(grad) + tol)
		for i, g := range grad {
			res[i] = x[i] + scale*g
		}
	case NormTwo:
		scale := a.params.EpsStep / (norm2(grad) + tol)
		for i, g := range grad {
			res[i] = x[i] + scale*g
		}
	case NormWasserstein:
		res, _ = conjugateSinkhorn(a.geom, x, grad, kernel, a.params.KernelSize,
			a.params.EpsStep, a.params.Regularization, a.params.ConjugateSinkhornMaxIter)
	}
	return res
}

// project maps one stepped sample back onto the ball of
// radius eps around its original.
func (a *Attack) project(x, src, kernel []float64, eps float64) []float64 {
	res := make([]float64, len(x))
	switch a.params.Ball {
	case BallMax:
		for i := range res {
			res[i] = src[i] + clamp(x[i]-src[i], -eps, eps)
		}
	case BallOne, BallTwo:
		diff := make([]float64, len(x))
		for i := range diff {
			diff[i] = x[i] - src[i]
		}
		var norm float64
		if a.params.Ball == BallOne {
			norm = norm1(diff)
		} else {
			norm = norm2(diff)
		}
		scale := 1.0
		if norm > eps {
			scale = eps / norm
		}
		for i, d := range diff {
			res[i] = src[i] + scale*d
		}
	case BallWasserstein:
		res, _ = projectedSinkhorn(a.geom, x, src, kernel, a.params.KernelSize,
			eps, a.params.Regularization, a.params.ProjectedSinkhornMaxIter)
	}
	return res
}

// clip clamps a packed batch into the classifier's
// declared input range, if it declares one.
func (a *Attack) clip(data []float64) {
	ranger, ok := a.classifier.(anyadv.ClipRanger)
	if !ok {
		return
	}
	min, max, ok := ranger.ClipRange()
	if !ok {
		return
	}
	for i, x := range data {
		data[i] = clamp(x, min, max)
	}
}

// successes reports, per sample, whether the candidate
// batch already satisfies the adversarial objective.
func (a *Attack) successes(adv anyvec.Vector, labels []int, m int) []bool {
	preds := anyadv.ClassIndices(a.classifier.Predict(adv, m), m)
	res := make([]bool, m)
	for i, pred := range preds {
		if a.params.Targeted {
			res[i] = pred == labels[i]
		} else {
			res[i] = pred != labels[i]
		}
	}
	return res
}

func successRate(success []bool) float64 {
	var count int
	for _, ok := range success {
		if ok {
			count++
		}
	}
	return float64(count) / float64(len(success))
}

func sign(x float64) float64 {
	if x > 0 {
		return 1
	} else if x < 0 {
		return -1
	}
	return 0
}
