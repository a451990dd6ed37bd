package anyds2

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyspeech/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func testConfig(kind string, bidir bool) Config {
	return Config{
		NumFreq:       9,
		NumClasses:    5,
		RNNType:       kind,
		HiddenSize:    3,
		NumLayers:     2,
		Bidirectional: bidir,
		Dropout:       0.3,
	}
}

func testInput(t *testing.T, numFreq int, lengths []int) *anymask.Tensor {
	var width int
	for _, l := range lengths {
		if l > width {
			width = l
		}
	}
	dims := anymask.Dims{Width: width, Height: numFreq, Depth: 1}
	vec := anyvec64.MakeVector(dims.Size() * len(lengths))
	anyvec.Rand(vec, anyvec.Normal, nil)
	tensor, err := anymask.NewTensor(anydiff.NewConst(vec), dims, lengths)
	require.NoError(t, err)
	return tensor
}

func TestModelForward(t *testing.T) {
	for _, kind := range []string{anyrnn.KindRNN, anyrnn.KindGRU, anyrnn.KindLSTM} {
		for _, bidir := range []bool{false, true} {
			cfg := testConfig(kind, bidir)
			model, err := New(anyvec64.DefaultCreator{}, cfg)
			require.NoError(t, err)

			lengths := []int{9, 4, 0}
			in := testInput(t, cfg.NumFreq, lengths)
			out, err := model.Forward(in, nil, 0)
			require.NoError(t, err)

			expected, err := anymask.PropagateAll(lengths, model.Front().Descs()...)
			require.NoError(t, err)
			assert.Equal(t, expected, out.Lengths)
			assert.Equal(t, []int{5, 2, 0}, out.Lengths)

			steps := out.LogProbs.Output()
			require.Len(t, steps, 5)
			for tIdx, step := range steps {
				var numPres int
				for i, p := range step.Present {
					assert.Equal(t, tIdx < out.Lengths[i], p)
					if p {
						numPres++
					}
				}
				values := step.Packed.Data().([]float64)
				require.Len(t, values, numPres*cfg.NumClasses)
				for row := 0; row < numPres; row++ {
					var sum float64
					for _, x := range values[row*cfg.NumClasses : (row+1)*cfg.NumClasses] {
						sum += math.Exp(x)
					}
					assert.InDelta(t, 1, sum, 1e-5)
				}
			}
		}
	}
}

func TestModelInputShape(t *testing.T) {
	model, err := New(anyvec64.DefaultCreator{}, testConfig(anyrnn.KindGRU, true))
	require.NoError(t, err)
	_, err = model.Forward(testInput(t, 7, []int{3}), nil, 0)
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestModelConfig(t *testing.T) {
	cfg := testConfig("transformer", true)
	_, err := New(anyvec64.DefaultCreator{}, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testConfig(anyrnn.KindLSTM, true)
	cfg.Dropout = 1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig(29)
	require.NoError(t, cfg.Validate())
	model, err := New(anyvec64.DefaultCreator{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 41*32, model.RNNInputSize())
}

func TestModelSetTraining(t *testing.T) {
	model, err := New(anyvec64.DefaultCreator{}, testConfig(anyrnn.KindRNN, false))
	require.NoError(t, err)
	model.SetTraining(false)
	assert.False(t, model.Norm1.Training)
	assert.False(t, model.Dropout.Enabled)

	stack := model.Layers[0].(*anyrnn.Unidir).Block.(anyrnn.Stack)
	require.Len(t, stack, 3)
	assert.False(t, stack[1].(*anyrnn.LayerBlock).Layer.(*anyspeech.Dropout).Enabled)

	model.SetTraining(true)
	assert.True(t, model.Norm2.Training)
	assert.True(t, stack[1].(*anyrnn.LayerBlock).Layer.(*anyspeech.Dropout).Enabled)
}

func TestModelSaveLoad(t *testing.T) {
	for _, bidir := range []bool{false, true} {
		model, err := New(anyvec64.DefaultCreator{}, testConfig(anyrnn.KindLSTM, bidir))
		require.NoError(t, err)
		model.SetTraining(false)

		path := filepath.Join(t.TempDir(), "model")
		require.NoError(t, model.Save(path))
		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, model.Config, loaded.Config)
		assert.Equal(t, len(model.Parameters()), len(loaded.Parameters()))

		in := testInput(t, model.Config.NumFreq, []int{6, 3})
		expected, err := model.Forward(in, nil, 0)
		require.NoError(t, err)
		actual, err := loaded.Forward(in, nil, 0)
		require.NoError(t, err)

		expSteps := expected.LogProbs.Output()
		actSteps := actual.LogProbs.Output()
		require.Len(t, actSteps, len(expSteps))
		for i, step := range expSteps {
			assert.InDeltaSlice(t, step.Packed.Data(), actSteps[i].Packed.Data(), 1e-8)
		}
	}
}

func TestModelGradient(t *testing.T) {
	model, err := New(anyvec64.DefaultCreator{}, testConfig(anyrnn.KindGRU, true))
	require.NoError(t, err)
	in := testInput(t, model.Config.NumFreq, []int{5, 2})
	out, err := model.Forward(in, nil, 0)
	require.NoError(t, err)

	grad := anydiff.NewGrad(model.Parameters()...)
	var upstream []*anyseq.Batch
	for _, b := range out.LogProbs.Output() {
		u := b.Packed.Creator().MakeVector(b.Packed.Len())
		u.AddScalar(u.Creator().MakeNumeric(-1))
		upstream = append(upstream, &anyseq.Batch{Packed: u, Present: b.Present})
	}
	out.LogProbs.Propagate(upstream, grad)

	filters := grad[model.Conv1.Filters].Data().([]float64)
	var nonZero bool
	for _, x := range filters {
		if x != 0 {
			nonZero = true
		}
	}
	assert.True(t, nonZero, "front-end should receive a gradient")
}

func TestModelOptions(t *testing.T) {
	cfg := testConfig(anyrnn.KindRNN, true)
	cfg.RNNActivation = "relu"
	cfg.BidirMerge = MergeSum
	model, err := New(anyvec64.DefaultCreator{}, cfg)
	require.NoError(t, err)
	bidir := model.Layers[1].(*anyrnn.Bidir)
	assert.IsType(t, anyspeech.AddMixer{}, bidir.Mixer)
	assert.Equal(t, anyspeech.ReLU, bidir.Forward.(*anyrnn.Vanilla).Activation)
	// Summed directions keep the hidden width.
	assert.Equal(t, cfg.HiddenSize, model.Output[0].(*anyspeech.FC).InCount)

	out, err := model.Forward(testInput(t, cfg.NumFreq, []int{7, 3}), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2}, out.Lengths)

	path := filepath.Join(t.TempDir(), "model")
	require.NoError(t, model.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.Config, loaded.Config)

	cfg.BidirMerge = "product"
	_, err = New(anyvec64.DefaultCreator{}, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	model, err = New(anyvec64.DefaultCreator{}, testConfig(anyrnn.KindGRU, true))
	require.NoError(t, err)
	assert.Equal(t, "tanh", model.Config.RNNActivation)
	assert.Equal(t, MergeConcat, model.Config.BidirMerge)
}
