package anydata

import (
	"errors"
	"fmt"
	"io"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyspeech/anyvocab"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// ErrEmptyBatch is returned when a batch has no samples.
var ErrEmptyBatch = errors.New("empty batch")

// A Batch is a padded group of samples.
type Batch struct {
	// Features holds one tensor per sample with time on
	// the width axis, bins on the height axis, and a depth
	// of 1.
	Features *anymask.Tensor

	// Labels holds the encoded transcripts.
	Labels [][]int

	// Targets holds each label sequence followed by the
	// EOS id, padded with the pad id.
	Targets *anyvocab.LabelTensor

	Transcripts []string
}

// MaxLabelLen returns the length of the longest label.
func (b *Batch) MaxLabelLen() int {
	var res int
	for _, l := range b.Labels {
		if len(l) > res {
			res = len(l)
		}
	}
	return res
}

// MakeBatch pads and encodes a list of samples.
//
// Every sample must have frames with the same number of
// bins.
func MakeBatch(c anyvec.Creator, samples []*Sample, v *anyvocab.Vocab) (*Batch, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyBatch
	}
	bins := -1
	var maxFrames int
	lengths := make([]int, len(samples))
	for i, s := range samples {
		for _, frame := range s.Input {
			if bins == -1 {
				bins = frame.Len()
			} else if frame.Len() != bins {
				return nil, fmt.Errorf("make batch: %w: sample %d has %d bins, not %d",
					ErrFeatureShape, i, frame.Len(), bins)
			}
		}
		lengths[i] = len(s.Input)
		if lengths[i] > maxFrames {
			maxFrames = lengths[i]
		}
	}
	if bins == -1 {
		return nil, fmt.Errorf("make batch: %w: no frames", ErrFeatureShape)
	}

	dims := anymask.Dims{Width: maxFrames, Height: bins, Depth: 1}
	data := make([]float64, dims.Size()*len(samples))
	for i, s := range samples {
		offset := i * dims.Size()
		for t, frame := range s.Input {
			for f, x := range vectorFloats(frame) {
				data[offset+dims.Index(t, f, 0)] = x
			}
		}
	}
	vec := c.MakeVectorData(c.MakeNumericList(data))
	features, err := anymask.NewTensor(anydiff.NewConst(vec), dims, lengths)
	if err != nil {
		return nil, essentials.AddCtx("make batch", err)
	}

	res := &Batch{Features: features}
	for _, s := range samples {
		label, err := v.Encode(s.Transcript)
		if err != nil {
			return nil, fmt.Errorf("make batch: %w", err)
		}
		res.Labels = append(res.Labels, label)
		res.Transcripts = append(res.Transcripts, s.Transcript)
	}
	res.Targets = makeTargets(res.Labels, v)
	return res, nil
}

func makeTargets(labels [][]int, v *anyvocab.Vocab) *anyvocab.LabelTensor {
	width := 1
	for _, l := range labels {
		if len(l)+1 > width {
			width = len(l) + 1
		}
	}
	res := &anyvocab.LabelTensor{
		Shape: []int{len(labels), width},
		Data:  make([]int, len(labels)*width),
	}
	for i, l := range labels {
		row := res.Data[i*width : (i+1)*width]
		copy(row, l)
		row[len(l)] = v.EOS
		for j := len(l) + 1; j < width; j++ {
			row[j] = v.Pad
		}
	}
	return res
}

// A BatchIter iterates over a SampleList in order.
type BatchIter struct {
	list SampleList
	size int
	idx  int
}

// Batches creates an iterator over consecutive groups of
// at most size samples.
func Batches(list SampleList, size int) *BatchIter {
	if size <= 0 {
		size = list.Len()
	}
	return &BatchIter{list: list, size: size}
}

// Next returns the next group of samples.
// It returns io.EOF after the last group.
func (b *BatchIter) Next() ([]*Sample, error) {
	if b.idx >= b.list.Len() {
		return nil, io.EOF
	}
	end := b.idx + b.size
	if end > b.list.Len() {
		end = b.list.Len()
	}
	res := make([]*Sample, 0, end-b.idx)
	for ; b.idx < end; b.idx++ {
		s, err := b.list.GetSample(b.idx)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}
