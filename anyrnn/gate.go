package anyrnn

import (
	"errors"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var g Gate
	serializer.RegisterTypedDeserializer(g.SerializerType(), DeserializeGate)
}

// A Gate computes the pre-activation
//
//     Wi*input + Ws*state + b
//
// which every recurrent block in this package is made of.
type Gate struct {
	InCount  int
	OutCount int

	InputWeights *anydiff.Var
	StateWeights *anydiff.Var
	Biases       *anydiff.Var
}

// DeserializeGate deserializes a Gate.
func DeserializeGate(d []byte) (*Gate, error) {
	var inW, stW, b *anyvecsave.S
	if err := serializer.DeserializeAny(d, &inW, &stW, &b); err != nil {
		return nil, essentials.AddCtx("deserialize Gate", err)
	}
	outCount := b.Vector.Len()
	if outCount == 0 || inW.Vector.Len()%outCount != 0 {
		return nil, errors.New("deserialize Gate: invalid input matrix size")
	}
	if stW.Vector.Len() != outCount*outCount {
		return nil, errors.New("deserialize Gate: invalid state matrix size")
	}
	return &Gate{
		InCount:      inW.Vector.Len() / outCount,
		OutCount:     outCount,
		InputWeights: anydiff.NewVar(inW.Vector),
		StateWeights: anydiff.NewVar(stW.Vector),
		Biases:       anydiff.NewVar(b.Vector),
	}, nil
}

// NewGate creates a Gate with every parameter drawn
// uniformly from [-1/sqrt(out), 1/sqrt(out)).
func NewGate(c anyvec.Creator, in, out int) *Gate {
	res := NewGateZero(c, in, out)
	bound := 1 / math.Sqrt(float64(out))
	for _, p := range res.Parameters() {
		anyvec.Rand(p.Vector, anyvec.Uniform, nil)
		p.Vector.Scale(c.MakeNumeric(2 * bound))
		p.Vector.AddScalar(c.MakeNumeric(-bound))
	}
	return res
}

// NewGateZero creates a zero'd Gate.
func NewGateZero(c anyvec.Creator, in, out int) *Gate {
	return &Gate{
		InCount:      in,
		OutCount:     out,
		InputWeights: anydiff.NewVar(c.MakeVector(in * out)),
		StateWeights: anydiff.NewVar(c.MakeVector(out * out)),
		Biases:       anydiff.NewVar(c.MakeVector(out)),
	}
}

// Apply computes the pre-activation for a batch.
func (g *Gate) Apply(in, state anydiff.Res, n int) anydiff.Res {
	wInput := applyWeights(g.InCount, g.OutCount, g.InputWeights, in)
	wState := applyWeights(g.OutCount, g.OutCount, g.StateWeights, state)
	return anydiff.AddRepeated(anydiff.Add(wInput, wState), g.Biases)
}

// Parameters returns the input weights, state weights,
// and biases, in that order.
func (g *Gate) Parameters() []*anydiff.Var {
	return []*anydiff.Var{g.InputWeights, g.StateWeights, g.Biases}
}

// SerializerType returns the unique ID used to serialize
// a Gate with the serializer package.
func (g *Gate) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyrnn.Gate"
}

// Serialize serializes the Gate.
func (g *Gate) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: g.InputWeights.Vector},
		&anyvecsave.S{Vector: g.StateWeights.Vector},
		&anyvecsave.S{Vector: g.Biases.Vector},
	)
}

func applyWeights(in, out int, weights anydiff.Res, batch anydiff.Res) anydiff.Res {
	weightMat := &anydiff.Matrix{Data: weights, Rows: out, Cols: in}
	inMat := &anydiff.Matrix{Data: batch, Rows: batch.Output().Len() / in, Cols: in}
	return anydiff.MatMul(false, true, inMat, weightMat).Data
}
