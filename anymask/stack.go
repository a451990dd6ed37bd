package anymask

import (
	"fmt"

	"github.com/unixpickle/anydiff"
)

// A Stage is a layer which can be placed in a Stack.
//
// Apply transforms a batch of tensors with dimensions d
// and returns the output along with its dimensions.
// The output width must agree with OutputLen applied to
// the input width and Desc().
type Stage interface {
	Desc() LayerDesc
	Apply(in anydiff.Res, d Dims, batch int) (anydiff.Res, Dims)
}

// A Stack applies Stages in order, propagating lengths
// and masking padding after every Stage.
type Stack []Stage

// Apply applies the stack to a batch.
//
// After every stage, components beyond each tensor's
// length are zero.
func (s Stack) Apply(t *Tensor) (*Tensor, error) {
	if err := t.Check(); err != nil {
		return nil, fmt.Errorf("apply stack: %w", err)
	}
	data := Mask(t.Data, t.Dims, t.Lengths)
	dims := t.Dims
	lengths := t.Lengths
	for i, stage := range s {
		desc := stage.Desc()
		expectedWidth, err := OutputLen(dims.Width, desc)
		if err != nil {
			return nil, fmt.Errorf("apply stack: stage %d: %w", i, err)
		}
		newLengths, err := Propagate(lengths, desc)
		if err != nil {
			return nil, fmt.Errorf("apply stack: stage %d: %w", i, err)
		}
		out, outDims := stage.Apply(data, dims, len(lengths))
		if outDims.Width != expectedWidth {
			return nil, fmt.Errorf("apply stack: stage %d (%s): %w: expected width %d but got %d",
				i, desc.Kind, ErrLengthMismatch, expectedWidth, outDims.Width)
		}
		data = Mask(out, outDims, newLengths)
		dims = outDims
		lengths = newLengths
	}
	return &Tensor{Data: data, Dims: dims, Lengths: lengths}, nil
}

// Descs returns the descriptors of every stage.
func (s Stack) Descs() []LayerDesc {
	res := make([]LayerDesc, len(s))
	for i, x := range s {
		res[i] = x.Desc()
	}
	return res
}

// Parameters returns the parameters of every stage that
// has any.
func (s Stack) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, x := range s {
		if p, ok := x.(interface {
			Parameters() []*anydiff.Var
		}); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}
