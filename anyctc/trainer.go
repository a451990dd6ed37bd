package anyctc

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyspeech/anycer"
	"github.com/unixpickle/anyspeech/anydata"
	"github.com/unixpickle/anyspeech/anysearch"
	"github.com/unixpickle/anyspeech/anysgd"
	"github.com/unixpickle/anyspeech/anyvocab"
	"github.com/unixpickle/anyvec"
)

// A Trainer creates batches, computes gradients, and adds
// up costs for CTC.
//
// The blank id comes from Vocab.
type Trainer struct {
	Model   anyspeech.Model
	Vocab   *anyvocab.Vocab
	Creator anyvec.Creator

	// After every gradient computation, LastCost is set to
	// the mean cost per sequence in the batch.
	LastCost float64

	// After every gradient computation, LastStats is set
	// to the error statistics of the greedy arg-max of the
	// same forward pass.
	LastStats anycer.Stats
}

// Fetch produces an *anydata.Batch for the subset of
// samples.
// The s argument must implement anydata.SampleList.
// The batch may not be empty.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	l, ok := s.(anydata.SampleList)
	if !ok {
		return nil, fmt.Errorf("fetch batch: unsupported sample list: %T", s)
	}
	samples := make([]*anydata.Sample, l.Len())
	for i := range samples {
		sample, err := l.GetSample(i)
		if err != nil {
			return nil, fmt.Errorf("fetch batch: %w", err)
		}
		samples[i] = sample
	}
	return anydata.MakeBatch(t.Creator, samples, t.Vocab)
}

// Cost runs the model on a batch and computes the mean
// cost per sequence.
//
// The model output is returned as well, so that callers
// can decode it without a second forward pass.
func (t *Trainer) Cost(b *anydata.Batch) (anydiff.Res, *anyspeech.Output, error) {
	out, err := t.Model.Forward(b.Features, b.Labels, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("ctc cost: %w", err)
	}
	costs := Cost(out.LogProbs, b.Labels, t.Vocab.Blank)
	c := out.LogProbs.Creator()
	scaler := c.MakeNumeric(1 / float64(len(b.Labels)))
	return anydiff.Scale(anydiff.Sum(costs), scaler), out, nil
}

// TotalCost computes the mean cost for the batch.
// The b argument must be an *anydata.Batch.
//
// It panics if the model cannot process the batch.
func (t *Trainer) TotalCost(b anysgd.Batch) anydiff.Res {
	cost, _, err := t.Cost(b.(*anydata.Batch))
	if err != nil {
		panic(err)
	}
	return cost
}

// Gradient computes the gradient for the batch's cost.
// It sets LastCost and LastStats.
//
// The model is put in training mode.
// The b argument must be an *anydata.Batch.
// It panics if the model cannot process the batch or if
// the model predicts an id which the vocabulary cannot
// decode.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	batch := b.(*anydata.Batch)
	t.Model.SetTraining(true)

	res := anydiff.NewGrad(t.Model.Parameters()...)
	cost, out, err := t.Cost(batch)
	if err != nil {
		panic(err)
	}
	stats, err := t.Stats(batch, out)
	if err != nil {
		panic(err)
	}
	t.LastCost = numericFloat(anyvec.Sum(cost.Output()))
	t.LastStats = stats

	c := cost.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	cost.Propagate(upstream, res)

	return res
}

// Stats scores the greedy arg-max of a model output
// against the batch's references.
func (t *Trainer) Stats(b *anydata.Batch, out *anyspeech.Output) (anycer.Stats, error) {
	refs, err := t.Vocab.DecodeTensor(b.Targets)
	if err != nil {
		return anycer.Stats{}, fmt.Errorf("decode references: %w", err)
	}
	hyps, err := t.Vocab.Strings(anysearch.ArgMax(out.LogProbs, out.Lengths, 0))
	if err != nil {
		return anycer.Stats{}, fmt.Errorf("decode predictions: %w", err)
	}
	return anycer.Score(refs, hyps)
}
