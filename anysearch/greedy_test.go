package anysearch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
)

type fakeModel struct {
	Out      *anyspeech.Output
	Err      error
	Forcing  []float64
	Targets  [][][]int
	Training bool
}

func (f *fakeModel) Forward(in *anymask.Tensor, targets [][]int,
	forcing float64) (*anyspeech.Output, error) {
	f.Forcing = append(f.Forcing, forcing)
	f.Targets = append(f.Targets, targets)
	return f.Out, f.Err
}

func (f *fakeModel) Parameters() []*anydiff.Var {
	return nil
}

func (f *fakeModel) SetTraining(t bool) {
	f.Training = t
}

func testSeq(seqs [][][]float32) anyseq.Seq {
	lists := make([][]anyvec.Vector, len(seqs))
	for i, seq := range seqs {
		for _, step := range seq {
			lists[i] = append(lists[i], anyvec32.MakeVectorData(step))
		}
	}
	return anyseq.ConstSeqList(anyvec32.CurrentCreator(), lists)
}

func TestArgMax(t *testing.T) {
	seq := testSeq([][][]float32{
		{{-1, -0.5, -2}, {-0.1, -3, -3}, {-2, -2, -0.2}},
		{{-0.7, -0.7, -3}, {-3, -0.3, -1}},
		{},
	})
	lengths := []int{3, 2, 0}

	assert.Equal(t, [][]int{{1, 0, 2}, {0, 1}, {}}, ArgMax(seq, lengths, 0))
	assert.Equal(t, [][]int{{1, 0}, {0, 1}, {}}, ArgMax(seq, lengths, 2))
	assert.Equal(t, [][]int{{1}, {0}, {}}, ArgMax(seq, lengths, 1))
	assert.Equal(t, [][]int{{1, 0, 2}, {0, 1}, {}}, ArgMax(seq, lengths, 10))
}

func TestArgMaxEmpty(t *testing.T) {
	seq := anyseq.ConstSeqList(anyvec32.CurrentCreator(), [][]anyvec.Vector{{}, {}})
	assert.Equal(t, [][]int{{}, {}}, ArgMax(seq, []int{0, 0}, 3))
}

func TestGreedy(t *testing.T) {
	model := &fakeModel{
		Out: &anyspeech.Output{
			LogProbs: testSeq([][][]float32{
				{{-1, -0.5}, {-0.1, -3}},
				{{-0.2, -2}},
			}),
			Lengths: []int{2, 1},
		},
	}
	labels, err := GreedyDecoder{}.Decode(model, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 0}, {0}}, labels)
	assert.Equal(t, []float64{0}, model.Forcing)
	assert.Nil(t, model.Targets[0])
	assert.False(t, model.Training)

	model.Err = errors.New("bad input")
	_, err = Greedy(model, nil, 0)
	assert.ErrorIs(t, err, model.Err)
}
