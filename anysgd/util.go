package anysgd

import (
	"fmt"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Shuffle shuffles a list of samples.
// If the list implements PostShuffler, then PostShuffle
// is called after the shuffle completes.
func Shuffle(s SampleList) {
	for i := 0; i < s.Len(); i++ {
		j := i + rand.Intn(s.Len()-i)
		s.Swap(i, j)
	}
	if p, ok := s.(PostShuffler); ok {
		p.PostShuffle()
	}
}

// A ConstRater is a Rater which always returns the same
// constant learning rate.
type ConstRater float64

// Rate returns float64(c).
func (c ConstRater) Rate(epoch float64) float64 {
	return float64(c)
}

// NewTransformer creates a gradient Transformer by name.
//
// Supported names are "adam", "rmsprop", "momentum"
// (with a momentum of 0.9), and "sgd" (no transformer).
func NewTransformer(name string) (Transformer, error) {
	switch name {
	case "adam":
		return &Adam{}, nil
	case "rmsprop":
		return &RMSProp{}, nil
	case "momentum":
		return &Momentum{Momentum: 0.9}, nil
	case "sgd":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown optimizer: %q", name)
	}
}

func copyGrad(g anydiff.Grad) anydiff.Grad {
	res := anydiff.Grad{}
	for v, x := range g {
		res[v] = x.Copy()
	}
	return res
}

func zeroGrad(g anydiff.Grad) anydiff.Grad {
	res := anydiff.Grad{}
	for v, x := range g {
		res[v] = x.Creator().MakeVector(x.Len())
	}
	return res
}

// decayAverage moves every vector of avg toward the
// matching gradient raised to power, keeping decay of the
// old value.
func decayAverage(avg, g anydiff.Grad, decay, power float64) {
	for v, x := range g {
		term := x.Copy()
		if power != 1 {
			anyvec.Pow(term, term.Creator().MakeNumeric(power))
		}
		term.Sub(avg[v])
		term.Scale(term.Creator().MakeNumeric(1 - decay))
		avg[v].Add(term)
	}
}

func scaleGrad(g anydiff.Grad, s float64) {
	for _, x := range g {
		x.Scale(x.Creator().MakeNumeric(s))
	}
}

func valueOrDefault(value, def float64) float64 {
	if value == 0 {
		return def
	}
	return value
}
