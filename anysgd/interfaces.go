package anysgd

import "github.com/unixpickle/anydiff"

// A Transformer rewrites gradients before they are
// applied, e.g. to implement Adam.
//
// A Transformer sees gradients for the same variables on
// every call.
// It may modify and return its input, but it must not
// keep a reference to it; any state it needs belongs in
// separately allocated gradients.
// The returned gradient is valid until the next call.
type Transformer interface {
	Transform(g anydiff.Grad) anydiff.Grad
}

// A Batch is a materialized mini-batch, such as a padded
// feature tensor with its labels.
//
// Batches come from a Fetcher and go to a Gradienter.
// Unlike a SampleList, a Batch holds its data in memory,
// so it should only be created right before it is used.
type Batch interface{}

// A Fetcher turns a slice of a SampleList into a Batch.
//
// SGD calls Fetch on a background goroutine, so the next
// Batch is usually ready when the previous gradient step
// finishes.
type Fetcher interface {
	Fetch(s SampleList) (Batch, error)
}

// A Gradienter computes the gradient of a Batch's cost.
//
// Successive calls may return the same Grad instance.
type Gradienter interface {
	Gradient(b Batch) anydiff.Grad
}

// A Rater picks a learning rate for a (possibly
// fractional) epoch number.
type Rater interface {
	Rate(epoch float64) float64
}

// A SampleList is a lazily evaluated list of training
// samples.
type SampleList interface {
	Len() int
	Swap(i, j int)

	// Slice returns a shallow copy of samples [i, j).
	Slice(i, j int) SampleList
}

// A PostShuffler is notified after its list has been
// shuffled, so that it can regroup samples.
// Speech lists use this to keep utterances of similar
// duration in the same mini-batch.
type PostShuffler interface {
	PostShuffle()
}

// A Coster computes a one-component cost for a Batch.
type Coster interface {
	TotalCost(b Batch) anydiff.Res
}
