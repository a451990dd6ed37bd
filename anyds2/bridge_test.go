package anyds2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestTensorToSeqOutput(t *testing.T) {
	// Two 3x2x1 tensors with lengths 3 and 1.
	data := anyvec64.MakeVectorData([]float64{
		1, 2, 3,
		4, 5, 6,

		7, 8, 9,
		10, 11, 12,
	})
	dims := anymask.Dims{Width: 3, Height: 2, Depth: 1}
	tensor, err := anymask.NewTensor(anydiff.NewConst(data), dims, []int{3, 1})
	require.NoError(t, err)

	out := TensorToSeq(tensor).Output()
	require.Len(t, out, 3)
	assert.Equal(t, []bool{true, true}, out[0].Present)
	assert.Equal(t, []float64{1, 4, 7, 10}, out[0].Packed.Data())
	assert.Equal(t, []bool{true, false}, out[1].Present)
	assert.Equal(t, []float64{2, 5}, out[1].Packed.Data())
	assert.Equal(t, []bool{true, false}, out[2].Present)
	assert.Equal(t, []float64{3, 6}, out[2].Packed.Data())
}

func TestTensorToSeqEmpty(t *testing.T) {
	dims := anymask.Dims{Width: 2, Height: 1, Depth: 2}
	data := anydiff.NewConst(anyvec64.MakeVector(dims.Size() * 2))
	tensor, err := anymask.NewTensor(data, dims, []int{0, 0})
	require.NoError(t, err)
	assert.Empty(t, TensorToSeq(tensor).Output())
}

func TestTensorToSeqProp(t *testing.T) {
	dims := anymask.Dims{Width: 4, Height: 2, Depth: 3}
	vec := anyvec64.MakeVector(dims.Size() * 3)
	anyvec.Rand(vec, anyvec.Normal, nil)
	inVar := anydiff.NewVar(vec)
	tensor, err := anymask.NewTensor(inVar, dims, []int{4, 2, 3})
	require.NoError(t, err)

	checker := &anydifftest.SeqChecker{
		F: func() anyseq.Seq {
			return TensorToSeq(tensor)
		},
		V: []*anydiff.Var{inVar},
	}
	checker.FullCheck(t)
}
