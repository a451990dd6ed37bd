package anyctc

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// Cost computes the cost for a batch of output sequences.
// The cost for each sequence is the negative log
// likelihood of the corresponding label.
//
// Every timestep holds one log probability per class.
// The class at index blank is the special "blank"
// symbol, and labels must not contain it.
//
// The anyvec.Creator must use an anyvec.NumericList type
// []float32 or []float64.
// The recursion itself always runs in float64.
func Cost(seqs anyseq.Seq, labels [][]int, blank int) anydiff.Res {
	c := seqs.Creator()
	if len(seqs.Output()) == 0 {
		return anydiff.NewConst(c.MakeVector(0))
	}
	return anydiff.Scale(pool(seqs, func(in [][]anydiff.Res) anydiff.Res {
		var res []anydiff.Res
		for i, x := range in {
			res = append(res, logLikelihood(internalCreator, x, labels[i], blank))
		}
		return anydiff.Concat(res...)
	}), c.MakeNumeric(-1))
}

// poolRes splits a sequence batch into float64 variables,
// one per sequence.
type poolRes struct {
	In      anyseq.Seq
	Pools   []*anydiff.Var
	Lengths []int
	Res     anydiff.Res
	OutVec  anyvec.Vector
}

func pool(seqs anyseq.Seq, f func(in [][]anydiff.Res) anydiff.Res) anydiff.Res {
	rawData := anyseq.SeparateSeqs(seqs.Output())
	pools := make([]*anydiff.Var, len(rawData))
	splitPools := make([][]anydiff.Res, len(rawData))
	lengths := make([]int, len(rawData))
	for i, raw := range rawData {
		if len(raw) == 0 {
			pools[i] = anydiff.NewVar(internalCreator.MakeVector(0))
		} else {
			pools[i] = anydiff.NewVar(vectorTo64(seqs.Creator().Concat(raw...)))
		}
		splitPools[i] = splitRes(pools[i], len(raw))
		lengths[i] = len(raw)
	}
	res := f(splitPools)
	return &poolRes{
		In:      seqs,
		Pools:   pools,
		Lengths: lengths,
		Res:     res,
		OutVec:  vectorFrom64(seqs.Creator(), res.Output()),
	}
}

func (p *poolRes) Output() anyvec.Vector {
	return p.OutVec
}

func (p *poolRes) Vars() anydiff.VarSet {
	return p.In.Vars()
}

func (p *poolRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	c := p.In.Creator()
	for _, pvar := range p.Pools {
		g[pvar] = internalCreator.MakeVector(pvar.Vector.Len())
	}
	p.Res.Propagate(vectorTo64(u), g)
	downstream := make([][]anyvec.Vector, len(p.Pools))
	for i, pvar := range p.Pools {
		downstream[i] = splitVec(vectorFrom64(c, g[pvar]), p.Lengths[i])
		delete(g, pvar)
	}
	joinedU := anyseq.ConstSeqList(c, downstream).Output()
	p.In.Propagate(joinedU, g)
}

func splitVec(vec anyvec.Vector, parts int) []anyvec.Vector {
	res := make([]anyvec.Vector, parts)
	if parts == 0 {
		return res
	}
	chunkSize := vec.Len() / parts
	for i := range res {
		res[i] = vec.Slice(i*chunkSize, (i+1)*chunkSize)
	}
	return res
}

func splitRes(res anydiff.Res, parts int) []anydiff.Res {
	if parts == 0 {
		return nil
	}
	reses := make([]anydiff.Res, parts)
	chunkSize := res.Output().Len() / parts
	for i := range reses {
		reses[i] = anydiff.Slice(res, i*chunkSize, (i+1)*chunkSize)
	}
	return reses
}
