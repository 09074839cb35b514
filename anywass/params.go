package anywass

import "github.com/unixpickle/anyadv"

// A Norm selects the geometry used to turn a raw loss
// gradient into a perturbation step.
type Norm string

// Supported gradient-step geometries.
//
// NormWasserstein takes the steepest ascent step inside
// a small transport ball, computed with the conjugate
// Sinkhorn solver.
// The other values take a normalized gradient step.
const (
	NormWasserstein Norm = "wasserstein"
	NormOne         Norm = "1"
	NormTwo         Norm = "2"
	NormInf         Norm = "inf"
)

// A Ball selects the region that perturbed inputs are
// projected back onto after every step.
type Ball string

// Supported projection regions.
//
// BallWasserstein projects onto a transport-cost ball
// with the projected Sinkhorn solver.
// BallOne and BallTwo rescale the perturbation into a
// p-norm ball, and BallMax clamps it component-wise.
const (
	BallWasserstein Ball = "wasserstein"
	BallOne         Ball = "1"
	BallTwo         Ball = "2"
	BallMax         Ball = "max"
)

// Params bundles the attack hyperparameters.
//
// A Params value is validated as a whole by Check, and
// attacks copy it at construction time, so a caller can
// reuse and modify one bundle freely.
type Params struct {
	// Regularization is the entropic regularization
	// strength of the Sinkhorn solvers.
	// Larger values approximate exact transport more
	// closely at the price of numerical range.
	Regularization float64

	// MaxIter bounds the outer perturbation loop.
	MaxIter int

	// ConjugateSinkhornMaxIter bounds the inner loop of
	// the conjugate Sinkhorn solver.
	ConjugateSinkhornMaxIter int

	// ProjectedSinkhornMaxIter bounds the inner loop of
	// the projected Sinkhorn solver.
	ProjectedSinkhornMaxIter int

	// Norm is the gradient-step geometry.
	Norm Norm

	// Ball is the projection geometry.
	Ball Ball

	// P is the exponent of the transport cost between
	// pixel positions, and of the fallback p-norm
	// geometries.
	P float64

	// Eps is the initial per-sample radius of the ball
	// around the original input.
	Eps float64

	// EpsStep is the size of each perturbation step.
	EpsStep float64

	// EpsIter is the number of outer iterations between
	// radius adjustments.
	EpsIter int

	// EpsFactor multiplies the radius of samples that
	// are still unsuccessful after EpsIter iterations.
	EpsFactor float64

	// KernelSize is the side length of the local
	// transport neighborhood.
	// It must be odd so the neighborhood is centered.
	KernelSize int

	// BatchSize is the number of samples optimized at
	// once.
	BatchSize int

	// Targeted indicates that the attack should move
	// samples toward the provided labels rather than
	// away from them.
	Targeted bool
}

// DefaultParams creates a Params with the standard
// hyperparameters for images with components in [0, 1].
func DefaultParams() *Params {
	return &Params{
		Regularization:           3000,
		MaxIter:                  400,
		ConjugateSinkhornMaxIter: 400,
		ProjectedSinkhornMaxIter: 400,
		Norm:                     NormWasserstein,
		Ball:                     BallWasserstein,
		P:                        2,
		Eps:                      0.3,
		EpsStep:                  0.1,
		EpsIter:                  10,
		EpsFactor:                1.1,
		KernelSize:               5,
		BatchSize:                1,
	}
}

// Check validates every field, returning a
// *anyadv.ConfigError for the first violation.
func (p *Params) Check() error {
	if p.Regularization <= 0 {
		return configErr("Regularization", "must be positive")
	}
	if p.MaxIter < 1 {
		return configErr("MaxIter", "must be at least 1")
	}
	if p.ConjugateSinkhornMaxIter < 1 {
		return configErr("ConjugateSinkhornMaxIter", "must be at least 1")
	}
	if p.ProjectedSinkhornMaxIter < 1 {
		return configErr("ProjectedSinkhornMaxIter", "must be at least 1")
	}
	switch p.Norm {
	case NormWasserstein, NormOne, NormTwo, NormInf:
	default:
		return configErr("Norm", "unsupported geometry")
	}
	switch p.Ball {
	case BallWasserstein, BallOne, BallTwo, BallMax:
	default:
		return configErr("Ball", "unsupported geometry")
	}
	if p.P <= 0 {
		return configErr("P", "must be positive")
	}
	if p.Eps <= 0 {
		return configErr("Eps", "must be positive")
	}
	if p.EpsStep <= 0 {
		return configErr("EpsStep", "must be positive")
	}
	if p.EpsIter < 1 {
		return configErr("EpsIter", "must be at least 1")
	}
	if p.EpsFactor <= 1 {
		return configErr("EpsFactor", "must be greater than 1")
	}
	if p.KernelSize < 1 || p.KernelSize%2 == 0 {
		return configErr("KernelSize", "must be a positive odd integer")
	}
	if p.BatchSize < 1 {
		return configErr("BatchSize", "must be at least 1")
	}
	return nil
}

func configErr(param, reason string) error {
	return &anyadv.ConfigError{Param: param, Reason: reason}
}
