// Package anysgd provides tools for Stochastic Gradient
// Descent.
package anysgd

import (
	"context"
	"errors"
	"fmt"

	"github.com/unixpickle/anydiff"
)

var (
	// ErrStop may be returned by an EpochFunc to end
	// training without an error.
	ErrStop = errors.New("stop training")

	// ErrEmptySamples is returned when SGD is run on an
	// empty sample list.
	ErrEmptySamples = errors.New("empty sample list")
)

// SGD performs stochastic gradient descent.
type SGD struct {
	// Fetcher is used to turn mini-batch sample lists
	// into Batches.
	// Batches are fetched in the background while the
	// previous batch is being used.
	Fetcher Fetcher

	// Gradienter is used to compute initial, untransformed
	// gradients for each mini-batch.
	Gradienter Gradienter

	// Transformer, if non-nil, is used to transform each
	// gradient before the step.
	Transformer Transformer

	// Samples is the list of training samples to use for
	// training.
	// It will be shuffled and re-shuffled as needed.
	//
	// The list may not be empty.
	Samples SampleList

	// Rater determines the learning rate for each step.
	Rater Rater

	// StatusFunc, if non-nil, is called before every
	// iteration with the next mini-batch.
	StatusFunc func(batch SampleList)

	// EpochFunc, if non-nil, is called after every full
	// pass over Samples with the number of passes so far.
	// If it returns ErrStop, Run returns nil.
	// Any other error is returned by Run.
	EpochFunc func(epoch int) error

	// BatchSize is the mini-batch size.
	// If it is 0, then the entire sample list is used at
	// every iteration.
	BatchSize int

	// NumProcessed keeps track of the number of samples that
	// have been passed to Gradienter so far.
	// It is used to compute the epoch for Rater.
	// Most of the time, this should be initialized to 0.
	NumProcessed int
}

// Run runs SGD until ctx is done, a batch cannot be
// fetched, or EpochFunc returns an error.
//
// When ctx is done, ctx.Err() is returned.
func (s *SGD) Run(ctx context.Context) error {
	if s.Samples.Len() == 0 {
		return ErrEmptySamples
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	numSamples := s.Samples.Len()
	batches := s.fetchBatches(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var b *fetchedBatch
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b = <-batches:
		}
		if b.Err != nil {
			return fmt.Errorf("fetch batch: %w", b.Err)
		}

		if s.StatusFunc != nil {
			s.StatusFunc(b.List)
		}

		grad := s.Gradienter.Gradient(b.Batch)
		if s.Transformer != nil {
			grad = s.Transformer.Transform(grad)
		}

		epoch := float64(s.NumProcessed) / float64(numSamples)
		scaleGradient(grad, -s.Rater.Rate(epoch))
		grad.AddToVars()

		s.NumProcessed += b.List.Len()

		if b.EpochEnd && s.EpochFunc != nil {
			if err := s.EpochFunc(s.NumProcessed / numSamples); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}
	}
}

type fetchedBatch struct {
	List     SampleList
	Batch    Batch
	EpochEnd bool
	Err      error
}

// fetchBatches produces mini-batches until ctx is done or
// a fetch fails.
func (s *SGD) fetchBatches(ctx context.Context) <-chan *fetchedBatch {
	res := make(chan *fetchedBatch, 1)
	go func() {
		defer close(res)
		for {
			Shuffle(s.Samples)
			for idx := 0; idx < s.Samples.Len(); {
				size := s.batchSize(s.Samples.Len() - idx)
				list := s.Samples.Slice(idx, idx+size)
				idx += size
				b := &fetchedBatch{List: list, EpochEnd: idx == s.Samples.Len()}
				b.Batch, b.Err = s.Fetcher.Fetch(list)
				select {
				case res <- b:
				case <-ctx.Done():
					return
				}
				if b.Err != nil {
					return
				}
			}
		}
	}()
	return res
}

func (s *SGD) batchSize(remaining int) int {
	if s.BatchSize == 0 || s.BatchSize > remaining {
		return remaining
	}
	return s.BatchSize
}

func scaleGradient(g anydiff.Grad, s float64) {
	for _, v := range g {
		g.Scale(v.Creator().MakeNumeric(s))
		return
	}
}
