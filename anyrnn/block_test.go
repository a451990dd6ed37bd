package anyrnn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestNewBlock(t *testing.T) {
	c := anyvec32.CurrentCreator()
	cases := map[string]interface{}{
		KindRNN:  &Vanilla{},
		KindGRU:  &GRU{},
		KindLSTM: &LSTM{},
	}
	for kind, expected := range cases {
		block, err := NewBlock(kind, c, 5, 3, anyspeech.Tanh)
		require.NoError(t, err, kind)
		assert.IsType(t, expected, block, kind)

		inSeq, _ := randomTestSequence(c, 5)
		out := Map(inSeq, block).Output()
		require.Len(t, out, 3)
		assert.Equal(t, 9, out[0].Packed.Len(), kind)
	}
}

func TestNewBlockUnknown(t *testing.T) {
	_, err := NewBlock("transformer", anyvec32.CurrentCreator(), 5, 3, anyspeech.Tanh)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNewBlockActivation(t *testing.T) {
	block, err := NewBlock(KindRNN, anyvec32.CurrentCreator(), 5, 3, anyspeech.ReLU)
	require.NoError(t, err)
	assert.Equal(t, anyspeech.ReLU, block.(*Vanilla).Activation)
}
