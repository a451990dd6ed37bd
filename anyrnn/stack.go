package anyrnn

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var s Stack
	serializer.RegisterTypedDeserializer(s.SerializerType(), DeserializeStack)
}

// A Stack is a Block which feeds the output of each of
// its Blocks into the next one.
//
// An empty Stack is invalid.
type Stack []Block

// DeserializeStack deserializes a Stack.
func DeserializeStack(d []byte) (Stack, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Stack", err)
	}
	res := make(Stack, len(slice))
	for i, x := range slice {
		block, ok := x.(Block)
		if !ok {
			return nil, fmt.Errorf("deserialize Stack: not a Block: %T", x)
		}
		res[i] = block
	}
	return res, nil
}

// Start produces a start state.
func (s Stack) Start(n int) State {
	s.assertNonEmpty()
	res := make(stackState, len(s))
	for i, x := range s {
		res[i] = x.Start(n)
	}
	return res
}

// PropagateStart back-propagates through the start state.
func (s Stack) PropagateStart(sg StateGrad, g anydiff.Grad) {
	for i, x := range s {
		x.PropagateStart(sg.(stackGrad)[i], g)
	}
}

// Step applies the block for a single timestep.
func (s Stack) Step(st State, in anyvec.Vector) Res {
	s.assertNonEmpty()
	res := &stackRes{V: anydiff.VarSet{}}
	inVec := in
	for i, x := range s {
		blockRes := x.Step(st.(stackState)[i], inVec)
		inVec = blockRes.Output()
		res.Reses = append(res.Reses, blockRes)
		res.OutState = append(res.OutState, blockRes.State())
		res.V = anydiff.MergeVarSets(res.V, blockRes.Vars())
	}
	return res
}

// Parameters returns the parameters of every Block.
func (s Stack) Parameters() []*anydiff.Var {
	objs := make([]interface{}, len(s))
	for i, x := range s {
		objs[i] = x
	}
	return anyspeech.AllParameters(objs...)
}

// SerializerType returns the unique ID used to serialize
// a Stack with the serializer package.
func (s Stack) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyrnn.Stack"
}

// Serialize serializes the Stack.
// It fails if any Block is not a serializer.Serializer.
func (s Stack) Serialize() ([]byte, error) {
	slice := make([]serializer.Serializer, len(s))
	for i, x := range s {
		ser, ok := x.(serializer.Serializer)
		if !ok {
			return nil, fmt.Errorf("serialize Stack: not a Serializer: %T", x)
		}
		slice[i] = ser
	}
	return serializer.SerializeSlice(slice)
}

func (s Stack) assertNonEmpty() {
	if len(s) == 0 {
		panic("empty Stack is invalid")
	}
}

type stackRes struct {
	Reses    []Res
	OutState stackState
	V        anydiff.VarSet
}

func (s *stackRes) State() State {
	return s.OutState
}

func (s *stackRes) Output() anyvec.Vector {
	return s.Reses[len(s.Reses)-1].Output()
}

func (s *stackRes) Vars() anydiff.VarSet {
	return s.V
}

func (s *stackRes) Propagate(u anyvec.Vector, sg StateGrad, g anydiff.Grad) (anyvec.Vector,
	StateGrad) {
	downVec := u
	downStates := make(stackGrad, len(s.Reses))
	for i := len(s.Reses) - 1; i >= 0; i-- {
		var stateUpstream StateGrad
		if sg != nil {
			stateUpstream = sg.(stackGrad)[i]
		}
		downVec, downStates[i] = s.Reses[i].Propagate(downVec, stateUpstream, g)
	}
	return downVec, downStates
}

type stackState []State

func (s stackState) Present() PresentMap {
	return s[0].Present()
}

func (s stackState) Reduce(p PresentMap) State {
	res := make(stackState, len(s))
	for i, x := range s {
		res[i] = x.Reduce(p)
	}
	return res
}

type stackGrad []StateGrad

func (s stackGrad) Present() PresentMap {
	return s[0].Present()
}

func (s stackGrad) Expand(p PresentMap) StateGrad {
	res := make(stackGrad, len(s))
	for i, x := range s {
		res[i] = x.Expand(p)
	}
	return res
}
