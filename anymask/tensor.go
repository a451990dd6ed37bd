package anymask

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Dims stores the dimensions of a single tensor in a
// batch.
// Width is the time axis.
type Dims struct {
	Width  int
	Height int
	Depth  int
}

// Size returns the number of components in one tensor.
func (d Dims) Size() int {
	return d.Width * d.Height * d.Depth
}

// Index returns the offset of the component at (x, y, z)
// in a row-major depth-minor tensor.
func (d Dims) Index(x, y, z int) int {
	return (y*d.Width+x)*d.Depth + z
}

// A Tensor is a batch of zero-padded tensors with one
// valid length per tensor.
type Tensor struct {
	Data    anydiff.Res
	Dims    Dims
	Lengths []int
}

// NewTensor creates a Tensor and checks that its fields
// are consistent.
func NewTensor(data anydiff.Res, dims Dims, lengths []int) (*Tensor, error) {
	t := &Tensor{Data: data, Dims: dims, Lengths: lengths}
	if err := t.Check(); err != nil {
		return nil, err
	}
	return t, nil
}

// BatchSize returns the number of tensors in the batch.
func (t *Tensor) BatchSize() int {
	return len(t.Lengths)
}

// Check verifies that the data size matches the batch
// and that every length fits in the time axis.
func (t *Tensor) Check() error {
	if size := t.Data.Output().Len(); size != t.Dims.Size()*len(t.Lengths) {
		return fmt.Errorf("tensor data has %d components but %d tensors of %+v need %d",
			size, len(t.Lengths), t.Dims, t.Dims.Size()*len(t.Lengths))
	}
	for i, l := range t.Lengths {
		if l < 0 || l > t.Dims.Width {
			return fmt.Errorf("%w: length %d of tensor %d outside [0, %d]",
				ErrLengthMismatch, l, i, t.Dims.Width)
		}
	}
	return nil
}

// Mask returns a copy of data where every component at a
// time position at or beyond the tensor's length is zero.
//
// Padding is overwritten rather than scaled, so it may hold
// any value, including infinities and NaNs.
// Gradients of the masked components are zero.
// If no component needs masking, data is returned as-is.
func Mask(data anydiff.Res, dims Dims, lengths []int) anydiff.Res {
	if data.Output().Len() != dims.Size()*len(lengths) {
		panic(fmt.Sprintf("mask: data length %d does not match %d tensors of %+v",
			data.Output().Len(), len(lengths), dims))
	}
	needed := false
	for _, l := range lengths {
		if l < dims.Width {
			needed = true
			break
		}
	}
	if !needed {
		return data
	}
	c := data.Output().Creator()
	table := validIndices(dims, lengths)
	if len(table) == 0 {
		return anydiff.NewConst(c.MakeVector(data.Output().Len()))
	}
	mapper := c.MakeMapper(data.Output().Len(), table)
	packed := c.MakeVector(mapper.OutSize())
	mapper.Map(data.Output(), packed)
	out := c.MakeVector(mapper.InSize())
	mapper.MapTranspose(packed, out)
	return &maskRes{In: data, Mapper: mapper, OutVec: out}
}

// validIndices lists the components inside their tensor's
// length, in increasing order.
func validIndices(dims Dims, lengths []int) []int {
	var res []int
	for i, l := range lengths {
		offset := i * dims.Size()
		for y := 0; y < dims.Height; y++ {
			for x := 0; x < l && x < dims.Width; x++ {
				for z := 0; z < dims.Depth; z++ {
					res = append(res, offset+dims.Index(x, y, z))
				}
			}
		}
	}
	return res
}

type maskRes struct {
	In     anydiff.Res
	Mapper anyvec.Mapper
	OutVec anyvec.Vector
}

func (m *maskRes) Output() anyvec.Vector {
	return m.OutVec
}

func (m *maskRes) Vars() anydiff.VarSet {
	return m.In.Vars()
}

func (m *maskRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	c := u.Creator()
	packed := c.MakeVector(m.Mapper.OutSize())
	m.Mapper.Map(u, packed)
	down := c.MakeVector(m.Mapper.InSize())
	m.Mapper.MapTranspose(packed, down)
	m.In.Propagate(down, g)
}
