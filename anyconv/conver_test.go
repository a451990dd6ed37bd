package anyconv

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestParallelConv(t *testing.T) {
	c := anyvec64.CurrentCreator()
	serial := &Conv{
		FilterCount:  13,
		FilterWidth:  4,
		FilterHeight: 3,

		StrideX:  2,
		StrideY:  3,
		PaddingX: 1,
		PaddingY: 2,

		InputDepth: 7,
	}
	serial.InitRand(c)
	parallel := &Conv{
		FilterCount:  serial.FilterCount,
		FilterWidth:  serial.FilterWidth,
		FilterHeight: serial.FilterHeight,
		StrideX:      serial.StrideX,
		StrideY:      serial.StrideY,
		PaddingX:     serial.PaddingX,
		PaddingY:     serial.PaddingY,
		InputDepth:   serial.InputDepth,
		Filters:      serial.Filters,
		Biases:       serial.Biases,
		Parallel:     true,
	}
	dims := anymask.Dims{Width: 30, Height: 20, Depth: 7}

	batchSize := 32
	inBatch := c.MakeVector(dims.Size() * batchSize)
	anyvec.Rand(inBatch, anyvec.Normal, nil)
	inVar := anydiff.NewVar(inBatch)

	out1, outDims := serial.Apply(inVar, dims, batchSize)
	out2, _ := parallel.Apply(inVar, dims, batchSize)
	if !vecsClose(out1.Output(), out2.Output()) {
		t.Error("mismatching output values")
	}

	upstream := c.MakeVector(outDims.Size() * batchSize)
	anyvec.Rand(upstream, anyvec.Normal, nil)

	vars := []*anydiff.Var{inVar, serial.Filters, serial.Biases}
	grad1 := anydiff.NewGrad(vars...)
	out1.Propagate(upstream.Copy(), grad1)
	grad2 := anydiff.NewGrad(vars...)
	out2.Propagate(upstream.Copy(), grad2)

	for i, variable := range vars {
		g1 := grad1[variable]
		g2 := grad2[variable]
		if !vecsClose(g1, g2) {
			t.Errorf("gradient for variable %d differs", i)
		}
	}
}

func vecsClose(v1, v2 anyvec.Vector) bool {
	c := v1.Creator()
	diff := v1.Copy()
	diff.Sub(v2)
	maxDiff := anyvec.AbsMax(diff)
	thresh := c.MakeNumeric(1e-3)
	return c.NumOps().Less(maxDiff, thresh)
}
