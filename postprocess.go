package anyadv

import "github.com/unixpickle/anyvec"

// A Postprocessor transforms a classifier's raw
// prediction vectors before they are returned to a
// caller.
//
// Postprocessors are stateless apart from their
// configuration, so applying one twice to the same
// predictions is always safe.
type Postprocessor interface {
	// Apply transforms a packed prediction matrix.
	// The result is a new vector of the same length;
	// the argument is never modified.
	Apply(preds anyvec.Vector) anyvec.Vector

	// Fit updates learned state from a batch of raw
	// predictions.
	// Transforms without learned state do nothing.
	Fit(preds anyvec.Vector)

	// ApplyFit indicates whether the surrounding
	// pipeline should apply the transform on its
	// training-time output path.
	ApplyFit() bool

	// ApplyPredict is like ApplyFit, but for the
	// inference-time output path.
	ApplyPredict() bool
}
