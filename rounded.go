package anyadv

import (
	"fmt"
	"math"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var r Rounded
	serializer.RegisterTypedDeserializer(r.SerializerType(), DeserializeRounded)
}

// Rounded is a defence which rounds every component of a
// prediction vector to a fixed number of decimal places,
// hiding the low-order output bits that some model
// extraction techniques rely on.
type Rounded struct {
	decimals     int
	applyFit     bool
	applyPredict bool
}

// NewRounded creates a Rounded that is applied on the
// inference path only.
//
// The decimals argument must be a positive integer;
// otherwise a *ConfigError is returned.
func NewRounded(decimals int) (*Rounded, error) {
	return NewRoundedFlags(decimals, false, true)
}

// NewRoundedFlags is like NewRounded, but with explicit
// pipeline placement flags.
func NewRoundedFlags(decimals int, applyFit, applyPredict bool) (*Rounded, error) {
	if err := checkDecimals(decimals); err != nil {
		return nil, err
	}
	return &Rounded{
		decimals:     decimals,
		applyFit:     applyFit,
		applyPredict: applyPredict,
	}, nil
}

// DeserializeRounded deserializes a Rounded.
func DeserializeRounded(d []byte) (*Rounded, error) {
	var decimals, fit, predict serializer.Int
	if err := serializer.DeserializeAny(d, &decimals, &fit, &predict); err != nil {
		return nil, essentials.AddCtx("deserialize Rounded", err)
	}
	res, err := NewRoundedFlags(int(decimals), fit == 1, predict == 1)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Rounded", err)
	}
	return res, nil
}

// Decimals returns the configured number of decimal
// places.
func (r *Rounded) Decimals() int {
	return r.decimals
}

// SetDecimals reconfigures the number of decimal places.
//
// The new value is validated before it is stored, so a
// failed update leaves the previous value in effect.
func (r *Rounded) SetDecimals(decimals int) error {
	if err := checkDecimals(decimals); err != nil {
		return err
	}
	r.decimals = decimals
	return nil
}

// Apply rounds each component of preds to the configured
// number of decimal places.
func (r *Rounded) Apply(preds anyvec.Vector) anyvec.Vector {
	c := preds.Creator()
	scale := math.Pow(10, float64(r.decimals))
	switch data := preds.Data().(type) {
	case []float64:
		for i, x := range data {
			data[i] = math.Round(x*scale) / scale
		}
		return c.MakeVectorData(data)
	case []float32:
		for i, x := range data {
			data[i] = float32(math.Round(float64(x)*scale) / scale)
		}
		return c.MakeVectorData(data)
	default:
		panic(fmt.Sprintf("unsupported numeric list type: %T", data))
	}
}

// Fit does nothing, since rounding has no learned state.
func (r *Rounded) Fit(preds anyvec.Vector) {
}

// ApplyFit indicates whether the transform should run on
// the training-time output path.
func (r *Rounded) ApplyFit() bool {
	return r.applyFit
}

// ApplyPredict indicates whether the transform should
// run on the inference-time output path.
func (r *Rounded) ApplyPredict() bool {
	return r.applyPredict
}

// SerializerType returns the unique ID used to serialize
// a Rounded with the serializer package.
func (r *Rounded) SerializerType() string {
	return "github.com/unixpickle/anyadv.Rounded"
}

// Serialize serializes the Rounded.
func (r *Rounded) Serialize() ([]byte, error) {
	fit := serializer.Int(0)
	if r.applyFit {
		fit = 1
	}
	predict := serializer.Int(0)
	if r.applyPredict {
		predict = 1
	}
	return serializer.SerializeAny(serializer.Int(r.decimals), fit, predict)
}

func checkDecimals(decimals int) error {
	if decimals <= 0 {
		return &ConfigError{
			Param:  "decimals",
			Reason: "must be a positive integer",
		}
	}
	return nil
}
