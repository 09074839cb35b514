// Package anyadv provides tools for studying the
// robustness of classifiers: adversarial example
// generators and defences that transform classifier
// outputs.
// It includes sub-packages for specific attacks and for
// concrete classifier implementations.
package anyadv

import "github.com/unixpickle/anyvec"

// A Classifier is a prediction model that an attack or
// defence operates on.
//
// Like layers in a neural network, a Classifier is
// batched: the x argument of Predict packs n
// equally-sized samples into one vector, and the result
// packs n rows of NumClasses scores.
type Classifier interface {
	// InputShape returns the dimensions of a single
	// sample, e.g. [1, 28, 28] for channels-first MNIST
	// digits.
	InputShape() []int

	// ChannelsFirst indicates whether InputShape orders
	// a sample as (channels, height, width) rather than
	// (height, width, channels).
	ChannelsFirst() bool

	// NumClasses returns the number of output classes.
	NumClasses() int

	// Predict computes class scores for a packed batch
	// of n samples.
	Predict(x anyvec.Vector, n int) anyvec.Vector
}

// A LossGradienter is a Classifier that can compute the
// gradient of its classification loss with respect to
// its input.
type LossGradienter interface {
	Classifier

	// LossGrad computes the gradient of the loss at the
	// packed batch x under the packed one-hot label
	// matrix y with n rows.
	// The result is the same length as x.
	LossGrad(x, y anyvec.Vector, n int) anyvec.Vector
}

// A ClipRanger is a Classifier with a declared range of
// valid input component values.
type ClipRanger interface {
	Classifier

	// ClipRange returns the valid component range.
	// If ok is false, inputs are unbounded.
	ClipRange() (min, max float64, ok bool)
}

// CheckGradients verifies that the classifier can
// produce loss gradients.
// If it cannot, a *CapabilityError is returned.
//
// Gradient-based attacks perform this check once at
// construction time, so that an unusable classifier is
// rejected before any optimization starts.
func CheckGradients(c Classifier) (LossGradienter, error) {
	if lg, ok := c.(LossGradienter); ok {
		return lg, nil
	}
	return nil, &CapabilityError{Capability: "loss gradients"}
}

// SampleSize returns the number of components in one
// sample of the classifier's input.
func SampleSize(c Classifier) int {
	size := 1
	for _, d := range c.InputShape() {
		size *= d
	}
	return size
}
