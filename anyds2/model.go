// Package anyds2 implements the DeepSpeech2 acoustic
// model: a masked convolutional front-end followed by a
// recurrent stack and a per-timestep classifier.
package anyds2

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyspeech/anyconv"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyspeech/anyrnn"
	"github.com/unixpickle/anyvec"
)

const (
	convChannels = 32
	hardTanhMax  = 20
)

// ErrInputShape is returned when a feature tensor does
// not match the model's input layout.
var ErrInputShape = errors.New("input tensor shape mismatch")

// A Recurrent layer maps a sequence batch to another
// sequence batch.
type Recurrent interface {
	Apply(in anyseq.Seq) anyseq.Seq
}

// Model is a DeepSpeech2 network.
//
// Every recurrent layer but the first one sees its input
// through Dropout.
// In a unidirectional model, the dropout lives inside a
// single anyrnn.Stack instead.
type Model struct {
	Config Config

	Conv1 *anyconv.Conv
	Norm1 *anyconv.BatchNorm
	Conv2 *anyconv.Conv
	Norm2 *anyconv.BatchNorm
	Clamp *anyconv.HardTanh

	Layers  []Recurrent
	Dropout *anyspeech.Dropout

	// Output maps recurrent outputs to log-probabilities.
	Output anyspeech.Net
}

// New creates a randomized model in training mode.
func New(c anyvec.Creator, cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	act, err := anyspeech.ParseActivation(cfg.RNNActivation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	res := &Model{
		Config: cfg,
		Conv1: &anyconv.Conv{
			FilterCount:  convChannels,
			FilterWidth:  11,
			FilterHeight: 41,
			StrideX:      2,
			StrideY:      2,
			PaddingX:     5,
			PaddingY:     20,
			InputDepth:   1,
		},
		Norm1: anyconv.NewBatchNorm(c, convChannels),
		Conv2: &anyconv.Conv{
			FilterCount:  convChannels,
			FilterWidth:  11,
			FilterHeight: 21,
			StrideX:      1,
			StrideY:      2,
			PaddingX:     5,
			PaddingY:     10,
			InputDepth:   convChannels,
		},
		Norm2:   anyconv.NewBatchNorm(c, convChannels),
		Clamp:   &anyconv.HardTanh{Min: 0, Max: hardTanhMax},
		Dropout: anyspeech.NewDropout(cfg.Dropout),
	}
	res.Conv1.InitRand(c)
	res.Conv2.InitRand(c)
	inSize := res.RNNInputSize()
	if inSize == 0 {
		return nil, fmt.Errorf("%w: %d frequency bins leave no features", ErrInputShape,
			cfg.NumFreq)
	}
	outSize := cfg.HiddenSize
	if cfg.Bidirectional {
		var mixer anyspeech.Mixer = anyspeech.ConcatMixer{}
		if cfg.BidirMerge == MergeSum {
			mixer = anyspeech.AddMixer{}
		} else {
			outSize *= 2
		}
		for i := 0; i < cfg.NumLayers; i++ {
			forward, err := anyrnn.NewBlock(cfg.RNNType, c, inSize, cfg.HiddenSize, act)
			if err != nil {
				return nil, err
			}
			backward, err := anyrnn.NewBlock(cfg.RNNType, c, inSize, cfg.HiddenSize, act)
			if err != nil {
				return nil, err
			}
			res.Layers = append(res.Layers, &anyrnn.Bidir{
				Forward:  forward,
				Backward: backward,
				Mixer:    mixer,
			})
			inSize = outSize
		}
	} else {
		var stack anyrnn.Stack
		for i := 0; i < cfg.NumLayers; i++ {
			if i > 0 {
				stack = append(stack, &anyrnn.LayerBlock{Layer: res.Dropout})
			}
			block, err := anyrnn.NewBlock(cfg.RNNType, c, inSize, cfg.HiddenSize, act)
			if err != nil {
				return nil, err
			}
			stack = append(stack, block)
			inSize = outSize
		}
		res.Layers = []Recurrent{&anyrnn.Unidir{Block: stack}}
	}
	res.Output = anyspeech.Net{
		anyspeech.NewFC(c, outSize, cfg.NumClasses),
		anyspeech.LogSoftmax,
	}
	return res, nil
}

// Front returns the convolutional front-end as a masked
// stack.
func (m *Model) Front() anymask.Stack {
	return anymask.Stack{m.Conv1, m.Norm1, m.Clamp, m.Conv2, m.Norm2, m.Clamp}
}

// RNNInputSize returns the number of features per
// timestep fed to the first recurrent layer.
func (m *Model) RNNInputSize() int {
	d := anymask.Dims{Height: m.Config.NumFreq, Depth: 1}
	d = m.Conv2.OutputDims(m.Conv1.OutputDims(d))
	return d.Height * d.Depth
}

// Forward computes per-timestep log-probabilities.
//
// The targets and forcing ratio are ignored, since the
// model has no decoder.
func (m *Model) Forward(in *anymask.Tensor, targets [][]int,
	forcing float64) (*anyspeech.Output, error) {
	if in.Dims.Height != m.Config.NumFreq || in.Dims.Depth != 1 {
		return nil, fmt.Errorf("%w: got %dx%d, expected %dx1 (height x depth)",
			ErrInputShape, in.Dims.Height, in.Dims.Depth, m.Config.NumFreq)
	}
	front, err := m.Front().Apply(in)
	if err != nil {
		return nil, fmt.Errorf("front-end: %w", err)
	}
	seq := TensorToSeq(front)
	for i, layer := range m.Layers {
		if i > 0 {
			seq = anyspeech.MapSeq(m.Dropout, seq)
		}
		seq = layer.Apply(seq)
	}
	return &anyspeech.Output{
		LogProbs: anyspeech.MapSeq(m.Output, seq),
		Lengths:  front.Lengths,
	}, nil
}

// SetTraining toggles dropout and batch statistics.
func (m *Model) SetTraining(training bool) {
	m.Norm1.Training = training
	m.Norm2.Training = training
	m.Dropout.Enabled = training
	for _, layer := range m.Layers {
		if u, ok := layer.(*anyrnn.Unidir); ok {
			if stack, ok := u.Block.(anyrnn.Stack); ok {
				for _, block := range stack {
					if lb, ok := block.(*anyrnn.LayerBlock); ok {
						if d, ok := lb.Layer.(*anyspeech.Dropout); ok {
							d.Enabled = training
						}
					}
				}
			}
		}
	}
}

// Parameters returns every learnable parameter.
func (m *Model) Parameters() []*anydiff.Var {
	objs := []interface{}{m.Conv1, m.Norm1, m.Conv2, m.Norm2}
	for _, l := range m.Layers {
		objs = append(objs, l)
	}
	objs = append(objs, m.Output)
	return anyspeech.AllParameters(objs...)
}
