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

const lstmRememberBias = 1

func init() {
	var l LSTM
	serializer.RegisterTypedDeserializer(l.SerializerType(), DeserializeLSTM)
}

// LSTM is a long short-term memory block.
//
// The state of every sequence is its output h followed
// by its memory cell c, so StartState has twice as many
// components as the block has outputs.
type LSTM struct {
	InValue    *Gate
	In         *Gate
	Remember   *Gate
	Output     *Gate
	StartState *anydiff.Var
}

// DeserializeLSTM deserializes an LSTM.
func DeserializeLSTM(d []byte) (*LSTM, error) {
	var res LSTM
	var start *anyvecsave.S
	err := serializer.DeserializeAny(d, &res.InValue, &res.In, &res.Remember, &res.Output,
		&start)
	if err != nil {
		return nil, essentials.AddCtx("deserialize LSTM", err)
	}
	if start.Vector.Len() != 2*res.InValue.OutCount {
		return nil, errors.New("deserialize LSTM: incorrect start state size")
	}
	res.StartState = anydiff.NewVar(start.Vector)
	return &res, nil
}

// NewLSTM creates a randomized LSTM with a zero start
// state.
//
// The remember gates are initially biased to remember.
func NewLSTM(c anyvec.Creator, in, hidden int) *LSTM {
	res := &LSTM{
		InValue:    NewGate(c, in, hidden),
		In:         NewGate(c, in, hidden),
		Remember:   NewGate(c, in, hidden),
		Output:     NewGate(c, in, hidden),
		StartState: anydiff.NewVar(c.MakeVector(2 * hidden)),
	}
	res.Remember.Biases.Vector.AddScalar(c.MakeNumeric(lstmRememberBias))
	return res
}

// Start generates an initial state.
func (l *LSTM) Start(n int) State {
	return l.block().Start(n)
}

// PropagateStart propagates through the start state.
func (l *LSTM) PropagateStart(s StateGrad, g anydiff.Grad) {
	l.block().PropagateStart(s, g)
}

// Step performs one timestep.
func (l *LSTM) Step(s State, in anyvec.Vector) Res {
	return l.block().Step(s, in)
}

// Parameters returns the parameters of the block.
func (l *LSTM) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, g := range []*Gate{l.InValue, l.In, l.Remember, l.Output} {
		res = append(res, g.Parameters()...)
	}
	return append(res, l.StartState)
}

// SerializerType returns the unique ID used to serialize
// an LSTM with the serializer package.
func (l *LSTM) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyrnn.LSTM"
}

// Serialize serializes the LSTM.
func (l *LSTM) Serialize() ([]byte, error) {
	return serializer.SerializeAny(l.InValue, l.In, l.Remember, l.Output,
		&anyvecsave.S{Vector: l.StartState.Vector})
}

func (l *LSTM) block() *FuncBlock {
	hidden := l.InValue.OutCount
	return &FuncBlock{
		Func: func(in, state anydiff.Res, n int) (out, newState anydiff.Res) {
			h := anyspeech.Columns(state, 2*hidden, 0, hidden)
			cell := anyspeech.Columns(state, 2*hidden, hidden, 2*hidden)

			inVal := anydiff.Tanh(l.InValue.Apply(in, h, n))
			inGate := anydiff.Sigmoid(l.In.Apply(in, h, n))
			remember := anydiff.Sigmoid(l.Remember.Apply(in, h, n))
			outGate := anydiff.Sigmoid(l.Output.Apply(in, h, n))

			newCell := anydiff.Add(anydiff.Mul(remember, cell), anydiff.Mul(inGate, inVal))
			newState = anydiff.Pool(newCell, func(newCell anydiff.Res) anydiff.Res {
				newH := anydiff.Mul(outGate, anydiff.Tanh(newCell))
				return anyspeech.ConcatMixer{}.Mix(newH, newCell, n)
			})
			return anyspeech.Columns(newState, 2*hidden, 0, hidden), newState
		},
		MakeStart: RepeatedStart(l.StartState),
	}
}
