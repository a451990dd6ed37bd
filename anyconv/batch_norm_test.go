package anyconv

import (
	"math"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/serializer"
)

func TestBatchNormSerialize(t *testing.T) {
	layer := NewBatchNorm(anyvec32.CurrentCreator(), 4)
	for _, v := range []anyvec.Vector{layer.Scalers.Vector, layer.Biases.Vector,
		layer.RunningMean, layer.RunningVariance} {
		anyvec.Rand(v, anyvec.Normal, nil)
	}
	layer.Momentum = 0.3
	layer.Training = false

	data, err := serializer.SerializeAny(layer)
	if err != nil {
		t.Fatal(err)
	}
	var newLayer *BatchNorm
	if err := serializer.DeserializeAny(data, &newLayer); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(layer, newLayer) {
		t.Error("layers differ")
	}
}

func TestBatchNormOutput(t *testing.T) {
	layer := NewBatchNorm(anyvec32.CurrentCreator(), 2)
	layer.Scalers.Vector.SetData([]float32{2, -3})
	layer.Biases.Vector.SetData([]float32{-1.5, 2})
	layer.Stabilizer = 1e-3

	vec := anyvec32.MakeVectorData([]float32{
		-0.636299517987754, 1.381820934572628, 1.117062796520384,
		-1.032042307499387, -0.603144099627179, 0.937477768422949,
	})
	dims := anymask.Dims{Width: 3, Height: 1, Depth: 2}
	out, outDims := layer.Apply(anydiff.NewConst(vec), dims, 1)
	if outDims != dims {
		t.Fatalf("unexpected dims %+v", outDims)
	}
	actual := out.Output().Data().([]float32)
	expected := []float32{
		-2.953427612694010, -0.723517206628873, 1.325934113323319,
		6.176822169129221, -2.872506500629310, 0.546695037499651,
	}
	assertClose(t, "output", actual, expected)

	assertClose(t, "running mean", layer.RunningMean.Data().([]float32),
		[]float32{-0.0040793607, 0.0429085465})
}

func TestBatchNormRunning(t *testing.T) {
	layer := NewBatchNorm(anyvec32.CurrentCreator(), 2)
	layer.Scalers.Vector.SetData([]float32{2, -3})
	layer.Biases.Vector.SetData([]float32{-1.5, 2})
	layer.RunningMean.SetData([]float32{1, -1})
	layer.RunningVariance.SetData([]float32{4, 0.25})
	layer.Training = false

	vec := anyvec32.MakeVectorData([]float32{3, 0, 1, -1.5})
	dims := anymask.Dims{Width: 2, Height: 1, Depth: 2}
	out, _ := layer.Apply(anydiff.NewConst(vec), dims, 1)
	assertClose(t, "output", out.Output().Data().([]float32), []float32{0.5, -4, -1.5, 5})
	assertClose(t, "running mean", layer.RunningMean.Data().([]float32), []float32{1, -1})
}

func TestBatchNormProp(t *testing.T) {
	layer := NewBatchNorm(anyvec32.CurrentCreator(), 2)
	input := anyvec32.MakeVector(24)
	anyvec.Rand(input, anyvec.Normal, nil)
	inVar := anydiff.NewVar(input)

	dims := anymask.Dims{Width: 3, Height: 2, Depth: 2}
	checker := anydifftest.ResChecker{
		F: func() anydiff.Res {
			out, _ := layer.Apply(inVar, dims, 2)
			return out
		},
		V:     []*anydiff.Var{inVar, layer.Scalers, layer.Biases},
		Delta: 1e-3,
		Prec:  5e-3,
	}
	checker.FullCheck(t)
}

func assertClose(t *testing.T, name string, actual, expected []float32) {
	t.Helper()
	if len(actual) != len(expected) {
		t.Fatalf("%s: expected %v but got %v", name, expected, actual)
	}
	for i, x := range expected {
		a := actual[i]
		if math.IsNaN(float64(a)) || math.Abs(float64(a-x)) > 1e-3 {
			t.Fatalf("%s: expected %v but got %v", name, expected, actual)
		}
	}
}
