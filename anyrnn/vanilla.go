package anyrnn

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var v Vanilla
	serializer.RegisterTypedDeserializer(v.SerializerType(), DeserializeVanilla)
}

// Vanilla is an Elman RNN block:
//
//     h' = s(Wi*input + Ws*h + b)
//
// The output of a timestep is its new state.
type Vanilla struct {
	Gate       *Gate
	StartState *anydiff.Var
	Activation anyspeech.Activation
}

// DeserializeVanilla deserializes a Vanilla block.
func DeserializeVanilla(d []byte) (*Vanilla, error) {
	var gate *Gate
	var start *anyvecsave.S
	var act anyspeech.Activation
	if err := serializer.DeserializeAny(d, &gate, &start, &act); err != nil {
		return nil, essentials.AddCtx("deserialize Vanilla", err)
	}
	if start.Vector.Len() != gate.OutCount {
		return nil, errors.New("deserialize Vanilla: incorrect start state size")
	}
	return &Vanilla{Gate: gate, StartState: anydiff.NewVar(start.Vector), Activation: act}, nil
}

// NewVanilla creates a randomized Vanilla block with a
// zero start state.
func NewVanilla(c anyvec.Creator, in, out int, activation anyspeech.Activation) *Vanilla {
	return &Vanilla{
		Gate:       NewGate(c, in, out),
		StartState: anydiff.NewVar(c.MakeVector(out)),
		Activation: activation,
	}
}

// Start generates an initial state.
func (v *Vanilla) Start(n int) State {
	return v.block().Start(n)
}

// PropagateStart propagates through the start state.
func (v *Vanilla) PropagateStart(s StateGrad, g anydiff.Grad) {
	v.block().PropagateStart(s, g)
}

// Step performs one timestep.
func (v *Vanilla) Step(s State, in anyvec.Vector) Res {
	return v.block().Step(s, in)
}

// Parameters returns the gate parameters followed by the
// start state.
func (v *Vanilla) Parameters() []*anydiff.Var {
	return append(v.Gate.Parameters(), v.StartState)
}

// SerializerType returns the unique ID used to serialize
// a Vanilla with the serializer package.
func (v *Vanilla) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyrnn.Vanilla"
}

// Serialize serializes the Vanilla.
func (v *Vanilla) Serialize() ([]byte, error) {
	return serializer.SerializeAny(v.Gate, &anyvecsave.S{Vector: v.StartState.Vector},
		v.Activation)
}

func (v *Vanilla) block() *FuncBlock {
	return &FuncBlock{
		Func: func(in, state anydiff.Res, n int) (out, newState anydiff.Res) {
			return nil, v.Activation.Apply(v.Gate.Apply(in, state, n), n)
		},
		MakeStart: RepeatedStart(v.StartState),
	}
}
