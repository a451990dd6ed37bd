// Package anysearch turns per-timestep class
// distributions into label sequences.
package anysearch

import (
	"fmt"

	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
)

// A Decoder produces one label sequence per example in a
// batch.
//
// The hint is the number of labels the caller expects
// (usually the reference length).
// Decoders may use it to truncate their outputs.
type Decoder interface {
	Decode(m anyspeech.Model, in *anymask.Tensor, hint int) ([][]int, error)
}

// GreedyDecoder is a Decoder that uses Greedy.
type GreedyDecoder struct{}

// Decode calls Greedy.
func (GreedyDecoder) Decode(m anyspeech.Model, in *anymask.Tensor, hint int) ([][]int, error) {
	return Greedy(m, in, hint)
}

// Greedy runs the model with no teacher forcing and picks
// the most likely class at every timestep.
//
// Each example is truncated to hint timesteps.
// If hint is 0 or negative, every timestep is kept.
//
// The model is not modified, so the caller should disable
// training behavior beforehand.
func Greedy(m anyspeech.Model, in *anymask.Tensor, hint int) ([][]int, error) {
	out, err := m.Forward(in, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("greedy decode: %w", err)
	}
	return ArgMax(out.LogProbs, out.Lengths, hint), nil
}

// ArgMax computes the arg-max of every timestep of every
// sequence.
// Ties go to the lowest class.
//
// The result has one row per entry of lengths.
// Row i has min(lengths[i], hint) entries, or lengths[i]
// entries if hint is not positive.
// Sequences shorter than lengths[i] produce shorter rows.
func ArgMax(seq anyseq.Seq, lengths []int, hint int) [][]int {
	separate := anyseq.SeparateSeqs(seq.Output())
	res := make([][]int, len(lengths))
	for i, length := range lengths {
		if hint > 0 && hint < length {
			length = hint
		}
		res[i] = []int{}
		if i >= len(separate) {
			continue
		}
		for t, vec := range separate[i] {
			if t >= length {
				break
			}
			res[i] = append(res[i], argMax(vec))
		}
	}
	return res
}

func argMax(v anyvec.Vector) int {
	var best int
	switch data := v.Data().(type) {
	case []float32:
		for i, x := range data {
			if x > data[best] {
				best = i
			}
		}
	case []float64:
		for i, x := range data {
			if x > data[best] {
				best = i
			}
		}
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", data))
	}
	return best
}
