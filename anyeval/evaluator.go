// Package anyeval measures how well speech models
// transcribe held-out data.
package anyeval

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyspeech/anycer"
	"github.com/unixpickle/anyspeech/anydata"
	"github.com/unixpickle/anyspeech/anysearch"
	"github.com/unixpickle/anyspeech/anyvocab"
	"github.com/unixpickle/anyvec"
)

// A Row is the transcript of one example.
//
// CER is the cumulative character error rate over every
// batch up to and including the example's batch.
// It is NaN while no reference characters have been seen.
type Row struct {
	Target     string
	Prediction string
	CER        float64
}

// A Report is the result of an evaluation.
type Report struct {
	Rows  []Row
	Stats anycer.Stats
}

// CER returns the character error rate over the whole
// evaluation.
func (r *Report) CER() (float64, error) {
	return r.Stats.Rate()
}

// An Evaluator decodes a data set and scores the result.
type Evaluator struct {
	Model   anyspeech.Model
	Vocab   *anyvocab.Vocab
	Creator anyvec.Creator

	// Decoder turns model outputs into labels.
	// If nil, anysearch.GreedyDecoder is used.
	Decoder anysearch.Decoder

	// PrintInterval is the number of batches between
	// progress logs.
	// If it is 0, progress is not logged.
	PrintInterval int

	// Truncate limits every decoded example to the width
	// of the batch's target rows.
	Truncate bool

	Logger zerolog.Logger
}

// Evaluate decodes every sample of the list in batches.
//
// The model is put in inference mode.
func (e *Evaluator) Evaluate(ctx context.Context, list anydata.SampleList,
	batchSize int) (*Report, error) {
	e.Model.SetTraining(false)
	decoder := e.Decoder
	if decoder == nil {
		decoder = anysearch.GreedyDecoder{}
	}

	report := &Report{}
	iter := anydata.Batches(list, batchSize)
	for batchIdx := 0; ; batchIdx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		samples, err := iter.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		batch, err := anydata.MakeBatch(e.Creator, samples, e.Vocab)
		if err != nil {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		var hint int
		if e.Truncate {
			hint = batch.Targets.Shape[1]
		}
		labels, err := decoder.Decode(e.Model, batch.Features, hint)
		if err != nil {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		refs, hyps, stats, err := score(e.Vocab, batch, labels)
		if err != nil {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		report.Stats = report.Stats.Add(stats)
		cer := report.Stats.RateOrNaN()
		for i, ref := range refs {
			report.Rows = append(report.Rows, Row{Target: ref, Prediction: hyps[i], CER: cer})
		}
		if e.PrintInterval > 0 && batchIdx%e.PrintInterval == 0 {
			e.Logger.Info().
				Int("batch", batchIdx).
				Int("examples", len(report.Rows)).
				Float64("cer", cer).
				Msg("evaluation progress")
		}
	}
	return report, nil
}

func score(v *anyvocab.Vocab, b *anydata.Batch, labels [][]int) (refs, hyps []string,
	stats anycer.Stats, err error) {
	refs, err = v.DecodeTensor(b.Targets)
	if err != nil {
		return
	}
	hyps, err = v.Strings(labels)
	if err != nil {
		return
	}
	stats, err = anycer.Score(refs, hyps)
	return
}
