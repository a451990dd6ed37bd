package anyeval

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/unixpickle/anyspeech/anycer"
	"github.com/unixpickle/anyspeech/anyctc"
	"github.com/unixpickle/anyspeech/anydata"
	"github.com/unixpickle/anyspeech/anysearch"
	"github.com/unixpickle/anyvec"
)

// An EpochPoint summarizes the loss and character error
// rate of one epoch.
type EpochPoint struct {
	Loss float64
	CER  float64
}

// A Validator computes the CTC loss and the greedy
// character error rate of a data set.
type Validator struct {
	Trainer *anyctc.Trainer
	Logger  zerolog.Logger
}

// Validate runs the model over the list in inference mode.
//
// Loss is the mean cost per sequence.
// CER is NaN if the references have no characters.
func (v *Validator) Validate(ctx context.Context, list anydata.SampleList,
	batchSize int) (EpochPoint, error) {
	model := v.Trainer.Model
	model.SetTraining(false)

	var totalLoss float64
	var count int
	var stats anycer.Stats
	iter := anydata.Batches(list, batchSize)
	for {
		if err := ctx.Err(); err != nil {
			return EpochPoint{}, err
		}
		samples, err := iter.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return EpochPoint{}, fmt.Errorf("validate: %w", err)
		}
		batch, err := anydata.MakeBatch(v.Trainer.Creator, samples, v.Trainer.Vocab)
		if err != nil {
			return EpochPoint{}, fmt.Errorf("validate: %w", err)
		}
		cost, out, err := v.Trainer.Cost(batch)
		if err != nil {
			return EpochPoint{}, fmt.Errorf("validate: %w", err)
		}
		totalLoss += numericFloat(anyvec.Sum(cost.Output())) * float64(len(samples))
		count += len(samples)

		labels := anysearch.ArgMax(out.LogProbs, out.Lengths, 0)
		_, _, batchStats, err := score(v.Trainer.Vocab, batch, labels)
		if err != nil {
			return EpochPoint{}, fmt.Errorf("validate: %w", err)
		}
		stats = stats.Add(batchStats)
	}
	if count == 0 {
		return EpochPoint{}, fmt.Errorf("validate: %w", anydata.ErrEmptyBatch)
	}
	point := EpochPoint{Loss: totalLoss / float64(count), CER: stats.RateOrNaN()}
	v.Logger.Info().
		Int("examples", count).
		Float64("loss", point.Loss).
		Float64("cer", point.CER).
		Msg("validation")
	return point, nil
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", n))
	}
}
