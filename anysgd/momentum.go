package anysgd

import "github.com/unixpickle/anydiff"

// Momentum accumulates a velocity v from the gradients
// and uses it as the step direction:
//
//	v := Momentum*v + grad
type Momentum struct {
	Momentum float64

	velocity anydiff.Grad
}

// Transform replaces the gradient with the velocity.
//
// This is not thread-safe.
func (m *Momentum) Transform(g anydiff.Grad) anydiff.Grad {
	if m.velocity == nil {
		m.velocity = copyGrad(g)
		return g
	}
	scaleGrad(m.velocity, m.Momentum)
	for v, x := range m.velocity {
		x.Add(g[v])
		g[v].Set(x)
	}
	return g
}
