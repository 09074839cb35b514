// Package anycls provides a basic feed-forward softmax
// classifier that satisfies the capability contract
// consumed by the attacks and defences in this module:
// batched prediction, loss gradients with respect to the
// input, and an optional clip range.
package anycls

import (
	"fmt"
	"math"

	"github.com/unixpickle/anyadv"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var n Net
	serializer.RegisterTypedDeserializer(n.SerializerType(), DeserializeNet)
}

// A Net is a feed-forward classifier with an optional
// tanh hidden layer and a log-softmax output.
type Net struct {
	shape   []int
	chFirst bool
	classes int
	hidden  int

	hiddenWeights *anydiff.Var
	hiddenBiases  *anydiff.Var
	outWeights    *anydiff.Var
	outBiases     *anydiff.Var

	clipMin float64
	clipMax float64
	hasClip bool
}

// NewNet creates a randomized Net for samples of the
// given 3-dimensional shape.
// A hidden size of 0 produces a purely linear model.
//
// The randomization scheme targets an output variance of
// 1, given that the input variance is 1.
func NewNet(c anyvec.Creator, shape []int, channelsFirst bool, hidden,
	classes int) *Net {
	if len(shape) != 3 {
		panic(fmt.Sprintf("input shape must have 3 dimensions, got %d", len(shape)))
	}
	inSize := 1
	for _, d := range shape {
		if d < 1 {
			panic(fmt.Sprintf("invalid input shape: %v", shape))
		}
		inSize *= d
	}
	if classes < 2 {
		panic("a classifier needs at least 2 classes")
	}
	res := &Net{
		shape:   append([]int{}, shape...),
		chFirst: channelsFirst,
		classes: classes,
		hidden:  hidden,
	}
	outIn := inSize
	if hidden > 0 {
		res.hiddenWeights = randomizedVar(c, inSize, hidden)
		res.hiddenBiases = anydiff.NewVar(c.MakeVector(hidden))
		outIn = hidden
	}
	res.outWeights = randomizedVar(c, outIn, classes)
	res.outBiases = anydiff.NewVar(c.MakeVector(classes))
	return res
}

// DeserializeNet attempts to deserialize a Net.
func DeserializeNet(d []byte) (*Net, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Net", err)
	}
	badData := fmt.Errorf("deserialize Net: unexpected payload")
	if len(slice) < 9 {
		return nil, badData
	}
	header := make([]serializer.Int, 7)
	for i := range header {
		x, ok := slice[i].(serializer.Int)
		if !ok {
			return nil, badData
		}
		header[i] = x
	}
	clipMin, ok1 := slice[7].(serializer.Float64)
	clipMax, ok2 := slice[8].(serializer.Float64)
	if !ok1 || !ok2 {
		return nil, badData
	}
	res := &Net{
		shape:   []int{int(header[0]), int(header[1]), int(header[2])},
		chFirst: header[3] == 1,
		classes: int(header[4]),
		hidden:  int(header[5]),
		hasClip: header[6] == 1,
		clipMin: float64(clipMin),
		clipMax: float64(clipMax),
	}
	vecs := slice[9:]
	if res.hidden > 0 {
		if len(vecs) != 4 {
			return nil, badData
		}
		res.hiddenWeights, err = varFromSerialized(vecs[0])
		if err == nil {
			res.hiddenBiases, err = varFromSerialized(vecs[1])
		}
		vecs = vecs[2:]
	} else if len(vecs) != 2 {
		return nil, badData
	}
	if err == nil {
		res.outWeights, err = varFromSerialized(vecs[0])
	}
	if err == nil {
		res.outBiases, err = varFromSerialized(vecs[1])
	}
	if err != nil {
		return nil, essentials.AddCtx("deserialize Net", err)
	}
	return res, nil
}

// InputShape returns the dimensions of one sample.
func (n *Net) InputShape() []int {
	return append([]int{}, n.shape...)
}

// ChannelsFirst indicates the sample layout.
func (n *Net) ChannelsFirst() bool {
	return n.chFirst
}

// NumClasses returns the number of output classes.
func (n *Net) NumClasses() int {
	return n.classes
}

// SetClipRange declares the range of valid input
// component values.
func (n *Net) SetClipRange(min, max float64) {
	if min >= max {
		panic("invalid clip range")
	}
	n.clipMin = min
	n.clipMax = max
	n.hasClip = true
}

// ClipRange returns the declared input range, if any.
func (n *Net) ClipRange() (min, max float64, ok bool) {
	return n.clipMin, n.clipMax, n.hasClip
}

// Parameters returns the learnable variables, making a
// Net trainable by any gradient loop.
func (n *Net) Parameters() []*anydiff.Var {
	if n.hidden > 0 {
		return []*anydiff.Var{n.hiddenWeights, n.hiddenBiases, n.outWeights,
			n.outBiases}
	}
	return []*anydiff.Var{n.outWeights, n.outBiases}
}

// Apply computes log class probabilities for a packed
// batch of n samples as a differentiable result.
func (n *Net) Apply(in anydiff.Res, batch int) anydiff.Res {
	inSize := anyadv.SampleSize(n)
	if batch*inSize != in.Output().Len() {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			batch*inSize, in.Output().Len()))
	}
	out := in
	if n.hidden > 0 {
		out = anydiff.Tanh(applyFC(out, n.hiddenWeights, n.hiddenBiases,
			inSize, n.hidden, batch))
		inSize = n.hidden
	}
	out = applyFC(out, n.outWeights, n.outBiases, inSize, n.classes, batch)
	return anydiff.LogSoftmax(out, n.classes)
}

// Predict computes log class probabilities for a packed
// batch of n samples.
func (n *Net) Predict(x anyvec.Vector, batch int) anyvec.Vector {
	return n.Apply(anydiff.NewConst(x), batch).Output().Copy()
}

// LossGrad computes the gradient of the cross-entropy
// loss with respect to the input batch.
func (n *Net) LossGrad(x, y anyvec.Vector, batch int) anyvec.Vector {
	if y.Len() != batch*n.classes {
		panic(fmt.Sprintf("label length should be %d, but got %d",
			batch*n.classes, y.Len()))
	}
	c := x.Creator()
	inVar := anydiff.NewVar(x.Copy())
	out := n.Apply(inVar, batch)
	comb := anydiff.Mul(anydiff.NewConst(y), out)
	cost := anydiff.Scale(anydiff.Sum(comb), c.MakeNumeric(-1))

	grad := anydiff.NewGrad(inVar)
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	cost.Propagate(upstream, grad)
	return grad[inVar]
}

// SerializerType returns the unique ID used to serialize
// a Net with the serializer package.
func (n *Net) SerializerType() string {
	return "github.com/unixpickle/anyadv/anycls.Net"
}

// Serialize serializes the Net.
func (n *Net) Serialize() ([]byte, error) {
	clipFlag := serializer.Int(0)
	if n.hasClip {
		clipFlag = 1
	}
	chFlag := serializer.Int(0)
	if n.chFirst {
		chFlag = 1
	}
	parts := []serializer.Serializer{
		serializer.Int(n.shape[0]),
		serializer.Int(n.shape[1]),
		serializer.Int(n.shape[2]),
		chFlag,
		serializer.Int(n.classes),
		serializer.Int(n.hidden),
		clipFlag,
		serializer.Float64(n.clipMin),
		serializer.Float64(n.clipMax),
	}
	if n.hidden > 0 {
		parts = append(parts, &anyvecsave.S{Vector: n.hiddenWeights.Vector},
			&anyvecsave.S{Vector: n.hiddenBiases.Vector})
	}
	parts = append(parts, &anyvecsave.S{Vector: n.outWeights.Vector},
		&anyvecsave.S{Vector: n.outBiases.Vector})
	return serializer.SerializeSlice(parts)
}

func applyFC(in anydiff.Res, weights, biases *anydiff.Var, inCount, outCount,
	batch int) anydiff.Res {
	weightMat := &anydiff.Matrix{
		Data: weights,
		Rows: outCount,
		Cols: inCount,
	}
	inMat := &anydiff.Matrix{
		Data: in,
		Rows: batch,
		Cols: inCount,
	}
	weighted := anydiff.MatMul(false, true, inMat, weightMat)
	return anydiff.AddRepeated(weighted.Data, biases)
}

func randomizedVar(c anyvec.Creator, in, out int) *anydiff.Var {
	res := anydiff.NewVar(c.MakeVector(in * out))
	anyvec.Rand(res.Vector, anyvec.Normal, nil)
	res.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(in))))
	return res
}

func varFromSerialized(obj serializer.Serializer) (*anydiff.Var, error) {
	s, ok := obj.(*anyvecsave.S)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T", obj)
	}
	return anydiff.NewVar(s.Vector), nil
}
