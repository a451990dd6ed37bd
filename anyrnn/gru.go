package anyrnn

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var g GRU
	serializer.RegisterTypedDeserializer(g.SerializerType(), DeserializeGRU)
}

// GRU is a gated recurrent unit block:
//
//     r  = sigmoid(Reset(input, h))
//     z  = sigmoid(Update(input, h))
//     n  = tanh(Candidate(input, r*h))
//     h' = (1-z)*n + z*h
//
// The output of a timestep is its new state.
type GRU struct {
	Reset      *Gate
	Update     *Gate
	Candidate  *Gate
	StartState *anydiff.Var
}

// DeserializeGRU deserializes a GRU.
func DeserializeGRU(d []byte) (*GRU, error) {
	var res GRU
	var start *anyvecsave.S
	err := serializer.DeserializeAny(d, &res.Reset, &res.Update, &res.Candidate, &start)
	if err != nil {
		return nil, essentials.AddCtx("deserialize GRU", err)
	}
	if start.Vector.Len() != res.Reset.OutCount {
		return nil, errors.New("deserialize GRU: incorrect start state size")
	}
	res.StartState = anydiff.NewVar(start.Vector)
	return &res, nil
}

// NewGRU creates a randomized GRU with a zero start
// state.
func NewGRU(c anyvec.Creator, in, hidden int) *GRU {
	return &GRU{
		Reset:      NewGate(c, in, hidden),
		Update:     NewGate(c, in, hidden),
		Candidate:  NewGate(c, in, hidden),
		StartState: anydiff.NewVar(c.MakeVector(hidden)),
	}
}

// Start generates an initial state.
func (g *GRU) Start(n int) State {
	return g.block().Start(n)
}

// PropagateStart propagates through the start state.
func (g *GRU) PropagateStart(s StateGrad, grad anydiff.Grad) {
	g.block().PropagateStart(s, grad)
}

// Step performs one timestep.
func (g *GRU) Step(s State, in anyvec.Vector) Res {
	return g.block().Step(s, in)
}

// Parameters returns the parameters of the reset, update,
// and candidate gates, followed by the start state.
func (g *GRU) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, gate := range []*Gate{g.Reset, g.Update, g.Candidate} {
		res = append(res, gate.Parameters()...)
	}
	return append(res, g.StartState)
}

// SerializerType returns the unique ID used to serialize
// a GRU with the serializer package.
func (g *GRU) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyrnn.GRU"
}

// Serialize serializes the GRU.
func (g *GRU) Serialize() ([]byte, error) {
	return serializer.SerializeAny(g.Reset, g.Update, g.Candidate,
		&anyvecsave.S{Vector: g.StartState.Vector})
}

func (g *GRU) block() *FuncBlock {
	return &FuncBlock{
		Func: func(in, state anydiff.Res, n int) (out, newState anydiff.Res) {
			reset := anydiff.Sigmoid(g.Reset.Apply(in, state, n))
			update := anydiff.Sigmoid(g.Update.Apply(in, state, n))
			candidate := anydiff.Tanh(g.Candidate.Apply(in, anydiff.Mul(reset, state), n))
			newState = anydiff.Pool(update, func(update anydiff.Res) anydiff.Res {
				return anydiff.Add(
					anydiff.Mul(anydiff.Complement(update), candidate),
					anydiff.Mul(update, state),
				)
			})
			return nil, newState
		},
		MakeStart: RepeatedStart(g.StartState),
	}
}
