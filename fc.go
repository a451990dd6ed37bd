package anyspeech

import (
	"errors"
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var f FC
	serializer.RegisterTypedDeserializer(f.SerializerType(), DeserializeFC)
}

// FC is a fully-connected layer.
//
// Weights is a row-major OutCount by InCount matrix.
type FC struct {
	InCount  int
	OutCount int
	Weights  *anydiff.Var
	Biases   *anydiff.Var
}

// DeserializeFC attempts to deserialize an FC.
func DeserializeFC(d []byte) (*FC, error) {
	var weights, biases *anyvecsave.S
	if err := serializer.DeserializeAny(d, &weights, &biases); err != nil {
		return nil, essentials.AddCtx("deserialize FC", err)
	}
	outCount := biases.Vector.Len()
	if outCount == 0 || weights.Vector.Len()%outCount != 0 {
		return nil, errors.New("deserialize FC: invalid matrix dimensions")
	}
	return &FC{
		InCount:  weights.Vector.Len() / outCount,
		OutCount: outCount,
		Weights:  anydiff.NewVar(weights.Vector),
		Biases:   anydiff.NewVar(biases.Vector),
	}, nil
}

// NewFC creates a new, randomized FC.
//
// Weights and biases are drawn uniformly from
// [-1/sqrt(in), 1/sqrt(in)).
func NewFC(c anyvec.Creator, in, out int) *FC {
	res := NewFCZero(c, in, out)
	bound := 1 / math.Sqrt(float64(in))
	for _, v := range res.Parameters() {
		uniformFill(v.Vector, bound)
	}
	return res
}

// NewFCZero creates a new, zero'd out FC.
func NewFCZero(c anyvec.Creator, in, out int) *FC {
	return &FC{
		InCount:  in,
		OutCount: out,
		Weights:  anydiff.NewVar(c.MakeVector(in * out)),
		Biases:   anydiff.NewVar(c.MakeVector(out)),
	}
}

// Apply applies the fully-connected layer to a batch of
// inputs.
func (f *FC) Apply(in anydiff.Res, batch int) anydiff.Res {
	if batch*f.InCount != in.Output().Len() {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			batch*f.InCount, in.Output().Len()))
	}
	weightMat := &anydiff.Matrix{
		Data: f.Weights,
		Rows: f.OutCount,
		Cols: f.InCount,
	}
	inMat := &anydiff.Matrix{
		Data: in,
		Rows: batch,
		Cols: f.InCount,
	}
	weighted := anydiff.MatMul(false, true, inMat, weightMat)
	return anydiff.AddRepeated(weighted.Data, f.Biases)
}

// Parameters returns a slice containing the weights
// and the biases, in that order.
func (f *FC) Parameters() []*anydiff.Var {
	return []*anydiff.Var{f.Weights, f.Biases}
}

// SerializerType returns the unique ID used to serialize
// an FC with the serializer package.
func (f *FC) SerializerType() string {
	return "github.com/unixpickle/anyspeech.FC"
}

// Serialize serializes the FC.
func (f *FC) Serialize() ([]byte, error) {
	weights := &anyvecsave.S{Vector: f.Weights.Vector}
	biases := &anyvecsave.S{Vector: f.Biases.Vector}
	return serializer.SerializeAny(weights, biases)
}

// MapSeq applies a Layer independently at every timestep
// of a sequence batch.
func MapSeq(l Layer, s anyseq.Seq) anyseq.Seq {
	return anyseq.Map(s, func(in anydiff.Res, n int) anydiff.Res {
		return l.Apply(in, n)
	})
}

func uniformFill(v anyvec.Vector, bound float64) {
	c := v.Creator()
	anyvec.Rand(v, anyvec.Uniform, nil)
	v.Scale(c.MakeNumeric(2 * bound))
	v.AddScalar(c.MakeNumeric(-bound))
}
