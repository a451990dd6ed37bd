package anyconv

import (
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestPaddingOutput(t *testing.T) {
	dims := anymask.Dims{Width: 3, Height: 2, Depth: 2}
	inTensor := anyvec32.MakeVectorData([]float32{
		3.868200, 1.104760, 0.360270, 0.046398, 0.800748, -0.579334,
		-0.540134, -0.095748, -0.240087, 0.298587, 0.018990, 0.481808,
	})

	expected := []float32{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 3.868200, 1.104760, 0.360270, 0.046398, 0.800748, -0.579334, 0, 0, 0, 0,
		0, 0, 0, 0, -0.540134, -0.095748, -0.240087, 0.298587, 0.018990, 0.481808, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	m := padMapper(anyvec32.CurrentCreator(), dims, 2, 1)
	if padded := paddedDims(dims, 2, 1); padded.Size() != len(expected) {
		t.Fatalf("padded size should be %d but got %d", len(expected), padded.Size())
	}
	actual := pad(anydiff.NewConst(inTensor), m).Output().Data().([]float32)

	if len(actual) != len(expected) {
		t.Fatalf("len should be %d but got %d", len(expected), len(actual))
	}
	for i, x := range expected {
		a := actual[i]
		if math.IsNaN(float64(a)) || math.Abs(float64(a-x)) > 1e-3 {
			t.Errorf("value %d: should be %f but got %f", i, x, a)
		}
	}
}

func TestPaddingProp(t *testing.T) {
	dims := anymask.Dims{Width: 3, Height: 4, Depth: 2}
	m := padMapper(anyvec32.CurrentCreator(), dims, 3, 1)
	img := anyvec32.MakeVector(dims.Size() * 2)
	anyvec.Rand(img, anyvec.Uniform, nil)
	inVar := anydiff.NewVar(img)

	checker := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return pad(inVar, m)
		},
		V:     []*anydiff.Var{inVar},
		Delta: 1e-3,
		Prec:  5e-3,
	}
	checker.FullCheck(t)
}
