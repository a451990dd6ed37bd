// Package anyrnn implements the recurrent layers of an
// acoustic model.
//
// A Block processes one timestep of a batch at a time.
// Map unrolls a Block over a whole anyseq.Seq, which is
// how sequences of different lengths share a batch.
package anyrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A PresentMap indicates which sequences of a batch are
// still running.
// A true value indicates present.
type PresentMap []bool

// NumPresent counts the present sequences.
func (p PresentMap) NumPresent() int {
	var i int
	for _, x := range p {
		if x {
			i++
		}
	}
	return i
}

// A State stores a batch of internal Block states.
//
// Only present sequences have a state.
// Once a sequence ends, its state is dropped from the
// batch with Reduce.
type State interface {
	Present() PresentMap

	// Reduce creates a copy of the State with a new
	// PresentMap.
	//
	// The PresentMap must be a subset of Present().
	Reduce(PresentMap) State
}

// A StateGrad is an upstream gradient for a State.
type StateGrad interface {
	Present() PresentMap

	// Expand inserts zero gradients for the sequences
	// which are present in p but not in Present().
	//
	// Expand is the inverse of State.Reduce().
	Expand(p PresentMap) StateGrad
}

// A Block is a differentiable unit in an RNN.
// It receives an input/state batch and produces a batch
// of outputs and new states.
type Block interface {
	// Start produces the start state with a batch size of n.
	Start(n int) State

	// PropagateStart back-propagates through the start
	// state.
	// After this is called, s should not be used again.
	PropagateStart(s StateGrad, g anydiff.Grad)

	// Step applies the block for a single timestep.
	Step(s State, in anyvec.Vector) Res
}

// A Res is the output of one Block timestep.
type Res interface {
	State() State
	Output() anyvec.Vector

	// Vars includes variables from previous states.
	Vars() anydiff.VarSet

	// Propagate propagates the gradient for one timestep.
	// It returns a downstream vector for the input and a
	// StateGrad for the previous timestep.
	//
	// The upstream state s may be nil, which is treated as
	// a zero upstream.
	// Upstream arguments may be modified.
	Propagate(u anyvec.Vector, s StateGrad, g anydiff.Grad) (anyvec.Vector, StateGrad)
}
