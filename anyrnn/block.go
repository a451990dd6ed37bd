package anyrnn

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyvec"
)

// Names of the supported recurrent blocks.
const (
	KindRNN  = "rnn"
	KindGRU  = "gru"
	KindLSTM = "lstm"
)

// ErrUnknownKind is returned for an unsupported block
// name.
var ErrUnknownKind = errors.New("unknown recurrent block kind")

// NewBlock creates a randomized block by name.
//
// Every kind of block produces hidden outputs per
// timestep.
// The act argument is the nonlinearity of KindRNN blocks;
// the gated kinds ignore it.
func NewBlock(kind string, c anyvec.Creator, in, hidden int,
	act anyspeech.Activation) (Block, error) {
	switch kind {
	case KindRNN:
		return NewVanilla(c, in, hidden, act), nil
	case KindGRU:
		return NewGRU(c, in, hidden), nil
	case KindLSTM:
		return NewLSTM(c, in, hidden), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
