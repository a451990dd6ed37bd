package anyconv

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

type scaledRowSumRes struct {
	In     anydiff.Res
	Scaler anyvec.Numeric
	Out    anyvec.Vector
}

// scaledRowSum sums the rows of a row-major matrix and
// scales the result.
// With a scaler of 1/rows this is the mean row.
func scaledRowSum(in anydiff.Res, cols int, scaler float64) anydiff.Res {
	if in.Output().Len()%cols != 0 {
		panic("column count must divide input size")
	}
	num := in.Output().Creator().MakeNumeric(scaler)
	out := anyvec.SumRows(in.Output().Copy(), cols)
	out.Scale(num)
	return &scaledRowSumRes{In: in, Scaler: num, Out: out}
}

// rowMoments computes the negative mean row and the mean
// squared row of a row-major matrix.
func rowMoments(in anydiff.Res, cols int) (negMean, meanSquare anydiff.Res) {
	rows := in.Output().Len() / cols
	negMean = scaledRowSum(in, cols, -1/float64(rows))
	meanSquare = scaledRowSum(anydiff.Square(in), cols, 1/float64(rows))
	return
}

func (s *scaledRowSumRes) Output() anyvec.Vector {
	return s.Out
}

func (s *scaledRowSumRes) Vars() anydiff.VarSet {
	return s.In.Vars()
}

func (s *scaledRowSumRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	u.Scale(s.Scaler)
	downstream := s.Out.Creator().MakeVector(s.In.Output().Len())
	anyvec.AddRepeated(downstream, u)
	s.In.Propagate(downstream, g)
}
