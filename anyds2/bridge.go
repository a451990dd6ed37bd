package anyds2

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
)

// tensorSeq views a batch of tensors as a sequence batch
// over the width axis.
//
// Timestep t holds, for every tensor with a length
// greater than t, the height by depth column at x=t.
type tensorSeq struct {
	In     anydiff.Res
	Mapper anyvec.Mapper
	Out    []*anyseq.Batch
}

// TensorToSeq converts the output of a convolutional
// front-end into the input of a recurrent stack.
func TensorToSeq(t *anymask.Tensor) anyseq.Seq {
	c := t.Data.Output().Creator()
	d := t.Dims
	colSize := d.Height * d.Depth

	var table []int
	var presents [][]bool
	var counts []int
	for x := 0; x < d.Width; x++ {
		present := make([]bool, len(t.Lengths))
		var count int
		for i, l := range t.Lengths {
			if l <= x {
				continue
			}
			present[i] = true
			count++
			offset := i * d.Size()
			for y := 0; y < d.Height; y++ {
				for z := 0; z < d.Depth; z++ {
					table = append(table, offset+d.Index(x, y, z))
				}
			}
		}
		if count == 0 {
			break
		}
		presents = append(presents, present)
		counts = append(counts, count)
	}

	res := &tensorSeq{In: t.Data}
	if len(table) == 0 {
		return res
	}
	res.Mapper = c.MakeMapper(t.Data.Output().Len(), table)
	packed := c.MakeVector(len(table))
	res.Mapper.Map(t.Data.Output(), packed)

	var offset int
	for i, present := range presents {
		size := counts[i] * colSize
		res.Out = append(res.Out, &anyseq.Batch{
			Packed:  packed.Slice(offset, offset+size),
			Present: present,
		})
		offset += size
	}
	return res
}

func (t *tensorSeq) Output() []*anyseq.Batch {
	return t.Out
}

func (t *tensorSeq) Vars() anydiff.VarSet {
	return t.In.Vars()
}

func (t *tensorSeq) Propagate(u []*anyseq.Batch, g anydiff.Grad) {
	if t.Mapper == nil {
		return
	}
	c := t.In.Output().Creator()
	var packed []anyvec.Vector
	for _, b := range u {
		packed = append(packed, b.Packed)
	}
	down := c.MakeVector(t.Mapper.InSize())
	t.Mapper.MapTranspose(c.Concat(packed...), down)
	t.In.Propagate(down, g)
}
