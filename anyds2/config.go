package anyds2

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/unixpickle/anyspeech/anyrnn"
)

// Ways to merge the directions of a bidirectional layer.
const (
	MergeConcat = "concat"
	MergeSum    = "sum"
)

// ErrInvalidConfig is returned for a Config which fails
// validation.
var ErrInvalidConfig = errors.New("invalid DeepSpeech2 config")

// Config describes a DeepSpeech2 model.
type Config struct {
	// NumFreq is the number of spectrogram bins per frame.
	NumFreq int `mapstructure:"num_freq" validate:"gt=0"`

	// NumClasses is the size of the output distribution,
	// blank included.
	NumClasses int `mapstructure:"num_classes" validate:"gt=1"`

	RNNType       string  `mapstructure:"rnn_type" validate:"oneof=rnn gru lstm"`
	HiddenSize    int     `mapstructure:"hidden_size" validate:"gt=0"`
	NumLayers     int     `mapstructure:"num_layers" validate:"gt=0"`
	Bidirectional bool    `mapstructure:"bidirectional"`
	Dropout       float64 `mapstructure:"dropout" validate:"gte=0,lt=1"`

	// RNNActivation is the nonlinearity of "rnn" layers.
	// Empty means "tanh".
	RNNActivation string `mapstructure:"rnn_activation" validate:"omitempty,oneof=tanh relu"`

	// BidirMerge combines the two directions of a
	// bidirectional layer: "concat" doubles the layer
	// width, "sum" keeps it.
	// Empty means "concat".
	BidirMerge string `mapstructure:"bidir_merge" validate:"omitempty,oneof=concat sum"`
}

// DefaultConfig returns the standard DeepSpeech2 setup
// for 20ms windows of 16kHz audio.
func DefaultConfig(numClasses int) Config {
	return Config{
		NumFreq:       161,
		NumClasses:    numClasses,
		RNNType:       anyrnn.KindLSTM,
		HiddenSize:    512,
		NumLayers:     5,
		Bidirectional: true,
		Dropout:       0.3,
		RNNActivation: "tanh",
		BidirMerge:    MergeConcat,
	}
}

func (c Config) withDefaults() Config {
	if c.RNNActivation == "" {
		c.RNNActivation = "tanh"
	}
	if c.BidirMerge == "" {
		c.BidirMerge = MergeConcat
	}
	return c
}

// Validate checks the config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
