package anyspeech

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

type gatherRes struct {
	In     anydiff.Res
	Mapper anyvec.Mapper
	OutVec anyvec.Vector
}

// Gather selects components of the input according to
// a mapper, producing a vector of m.OutSize() components.
//
// It is the differentiable form of m.Map, and is used to
// permute or slice packed tensors.
func Gather(in anydiff.Res, m anyvec.Mapper) anydiff.Res {
	if in.Output().Len() != m.InSize() {
		panic(fmt.Sprintf("gather: input size %d should be %d", in.Output().Len(),
			m.InSize()))
	}
	out := in.Output().Creator().MakeVector(m.OutSize())
	m.Map(in.Output(), out)
	return &gatherRes{In: in, Mapper: m, OutVec: out}
}

func (g *gatherRes) Output() anyvec.Vector {
	return g.OutVec
}

func (g *gatherRes) Vars() anydiff.VarSet {
	return g.In.Vars()
}

func (g *gatherRes) Propagate(u anyvec.Vector, grad anydiff.Grad) {
	down := u.Creator().MakeVector(g.Mapper.InSize())
	g.Mapper.MapTranspose(u, down)
	g.In.Propagate(down, grad)
}

// Columns extracts the columns [start, end) of a batch of
// row vectors, each with cols components.
func Columns(in anydiff.Res, cols, start, end int) anydiff.Res {
	if start == 0 && end == cols {
		return in
	}
	rows := in.Output().Len() / cols
	table := make([]int, 0, rows*(end-start))
	for i := 0; i < rows; i++ {
		for j := start; j < end; j++ {
			table = append(table, i*cols+j)
		}
	}
	c := in.Output().Creator()
	return Gather(in, c.MakeMapper(in.Output().Len(), table))
}
