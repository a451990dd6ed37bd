package anysgd

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

const (
	rmspropDefaultDecayRate = 0.9
	rmspropDefaultDamping   = 1e-8
)

// RMSProp divides every gradient component by a running
// root-mean-square of its recent values; see
// http://www.cs.toronto.edu/~tijmen/csc321/slides/lecture_slides_lec6.pdf.
type RMSProp struct {
	// DecayRate is the decay rate of the running average.
	// Zero selects 0.9.
	DecayRate float64

	// Damping keeps the update finite when the average
	// vanishes.
	// Zero selects 1e-8.
	Damping float64

	meanSquare anydiff.Grad
}

// Transform scales the gradient in place.
//
// This is not thread-safe.
func (r *RMSProp) Transform(g anydiff.Grad) anydiff.Grad {
	if r.meanSquare == nil {
		r.meanSquare = copyGrad(g)
		for _, x := range r.meanSquare {
			anyvec.Pow(x, x.Creator().MakeNumeric(2))
		}
	} else {
		decayAverage(r.meanSquare, g, valueOrDefault(r.DecayRate, rmspropDefaultDecayRate), 2)
	}
	damping := valueOrDefault(r.Damping, rmspropDefaultDamping)
	for v, vec := range g {
		c := vec.Creator()
		div := r.meanSquare[v].Copy()
		div.AddScalar(c.MakeNumeric(damping))
		anyvec.Pow(div, c.MakeNumeric(-0.5))
		vec.Mul(div)
	}
	return g
}
