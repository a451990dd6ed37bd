package anyconv

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
)

// padMapper creates a mapper from a padded tensor to the
// unpadded tensor inside of it.
//
// Map crops a padded tensor and MapTranspose pads an
// unpadded one with zeros.
func padMapper(c anyvec.Creator, d anymask.Dims, padX, padY int) anyvec.Mapper {
	padded := paddedDims(d, padX, padY)
	table := make([]int, 0, d.Size())
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			base := padded.Index(x+padX, y+padY, 0)
			for z := 0; z < d.Depth; z++ {
				table = append(table, base+z)
			}
		}
	}
	return c.MakeMapper(padded.Size(), table)
}

func paddedDims(d anymask.Dims, padX, padY int) anymask.Dims {
	return anymask.Dims{
		Width:  d.Width + 2*padX,
		Height: d.Height + 2*padY,
		Depth:  d.Depth,
	}
}

type paddingRes struct {
	In     anydiff.Res
	Mapper anyvec.Mapper
	OutVec anyvec.Vector
}

// pad surrounds every tensor in a batch with zeros.
func pad(in anydiff.Res, m anyvec.Mapper) anydiff.Res {
	return &paddingRes{
		In:     in,
		Mapper: m,
		OutVec: batchMapTranspose(m, in.Output()),
	}
}

func (p *paddingRes) Output() anyvec.Vector {
	return p.OutVec
}

func (p *paddingRes) Vars() anydiff.VarSet {
	return p.In.Vars()
}

func (p *paddingRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	p.In.Propagate(batchMap(p.Mapper, u), g)
}

// batchMap applies m.Map to every tensor in a batch.
func batchMap(m anyvec.Mapper, in anyvec.Vector) anyvec.Vector {
	n := in.Len() / m.InSize()
	pieces := make([]anyvec.Vector, n)
	for i := range pieces {
		pieces[i] = in.Creator().MakeVector(m.OutSize())
		m.Map(in.Slice(i*m.InSize(), (i+1)*m.InSize()), pieces[i])
	}
	return in.Creator().Concat(pieces...)
}

// batchMapTranspose applies m.MapTranspose to every
// tensor in a batch.
func batchMapTranspose(m anyvec.Mapper, in anyvec.Vector) anyvec.Vector {
	n := in.Len() / m.OutSize()
	pieces := make([]anyvec.Vector, n)
	for i := range pieces {
		pieces[i] = in.Creator().MakeVector(m.InSize())
		m.MapTranspose(in.Slice(i*m.OutSize(), (i+1)*m.OutSize()), pieces[i])
	}
	return in.Creator().Concat(pieces...)
}
