package anysgd

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

const (
	adamDefaultDecayRate1 = 0.9
	adamDefaultDecayRate2 = 0.999
	adamDefaultDamping    = 1e-8
)

// Adam implements the adaptive moments SGD technique
// described in https://arxiv.org/pdf/1412.6980.pdf.
type Adam struct {
	// DecayRate1 and DecayRate2 are the decay rates of the
	// first and second moment estimates.
	// Zero values select 0.9 and 0.999.
	DecayRate1, DecayRate2 float64

	// Damping keeps the update finite when the second
	// moment vanishes.
	// Zero selects 1e-8.
	Damping float64

	first     anydiff.Grad
	second    anydiff.Grad
	iteration float64
}

// Transform replaces the gradient with the Adam step
// direction.
//
// This is not thread-safe.
func (a *Adam) Transform(g anydiff.Grad) anydiff.Grad {
	rate1 := valueOrDefault(a.DecayRate1, adamDefaultDecayRate1)
	rate2 := valueOrDefault(a.DecayRate2, adamDefaultDecayRate2)
	if a.first == nil {
		a.first = zeroGrad(g)
		a.second = zeroGrad(g)
	}
	decayAverage(a.first, g, rate1, 1)
	decayAverage(a.second, g, rate2, 2)

	a.iteration++
	correction := math.Sqrt(1-math.Pow(rate2, a.iteration)) /
		(1 - math.Pow(rate1, a.iteration))
	damping := valueOrDefault(a.Damping, adamDefaultDamping)
	for v, vec := range g {
		c := vec.Creator()
		vec.Set(a.first[v])
		vec.Scale(c.MakeNumeric(correction))

		divisor := a.second[v].Copy()
		divisor.AddScalar(c.MakeNumeric(damping))
		anyvec.Pow(divisor, c.MakeNumeric(0.5))
		vec.Div(divisor)
	}
	return g
}
