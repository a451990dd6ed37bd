// Package anyspeech provides the building blocks shared
// by speech recognition models: layers, the model
// contract, and helpers for differentiable reshaping.
//
// Sub-packages implement masked convolutions (anymask,
// anyconv), recurrent blocks (anyrnn), the DeepSpeech2
// model (anyds2), CTC training (anyctc), decoding
// (anysearch), and scoring (anyvocab, anycer).
package anyspeech

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var n Net
	serializer.RegisterTypedDeserializer(n.SerializerType(), DeserializeNet)
}

// A Parameterizer is anything with learnable variables.
//
// The parameters of a Parameterizer must be in the same
// order every time Parameters() is called.
type Parameterizer interface {
	Parameters() []*anydiff.Var
}

// AllParameters returns the parameters of every argument
// which implements Parameterizer, in order.
func AllParameters(objs ...interface{}) []*anydiff.Var {
	var res []*anydiff.Var
	for _, x := range objs {
		if p, ok := x.(Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// A Layer is a composable computation unit.
//
// A Layer's Apply method is inherently batched.
// The input's length must be divisible by the batch size,
// since the batch size indicates how many equally-long
// vectors are packed into the input vector.
type Layer interface {
	Apply(in anydiff.Res, batchSize int) anydiff.Res
}

// A Net evaluates a list of layers, one after another.
type Net []Layer

// DeserializeNet attempts to deserialize the network.
func DeserializeNet(d []byte) (Net, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Net", err)
	}
	res := make(Net, len(slice))
	for i, x := range slice {
		if layer, ok := x.(Layer); ok {
			res[i] = layer
		} else {
			return nil, fmt.Errorf("deserialize Net: not a Layer: %T", x)
		}
	}
	return res, nil
}

// Apply applies the network to a batch.
// If the network contains no layers, the input is
// returned as output.
func (n Net) Apply(in anydiff.Res, batchSize int) anydiff.Res {
	for _, l := range n {
		in = l.Apply(in, batchSize)
	}
	return in
}

// Parameters returns the parameters of the network.
func (n Net) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, x := range n {
		res = append(res, AllParameters(x)...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a Net with the serializer package.
func (n Net) SerializerType() string {
	return "github.com/unixpickle/anyspeech.Net"
}

// Serialize attempts to serialize the network.
// If any Layer is not a serializer.Serializer,
// this fails.
func (n Net) Serialize() ([]byte, error) {
	var slice []serializer.Serializer
	for _, x := range n {
		if s, ok := x.(serializer.Serializer); ok {
			slice = append(slice, s)
		} else {
			return nil, fmt.Errorf("not a Serializer: %T", x)
		}
	}
	return serializer.SerializeSlice(slice)
}

// Output is the result of running a Model on a batch.
//
// LogProbs contains one log-probability vector over the
// vocabulary per example per timestep.
// An example is present at timestep t if and only if
// t < Lengths[i].
type Output struct {
	LogProbs anyseq.Seq
	Lengths  []int
}

// A Model maps a batch of padded feature tensors to
// per-timestep class log-probabilities.
//
// Targets and forcing are used by models that feed
// labels back into a decoder.
// Models which do not are free to ignore them; a forcing
// ratio of 0 always means inference-style unrolling.
type Model interface {
	Parameterizer

	Forward(in *anymask.Tensor, targets [][]int, forcing float64) (*Output, error)

	// SetTraining enables or disables training-only
	// behavior such as dropout.
	SetTraining(training bool)
}
