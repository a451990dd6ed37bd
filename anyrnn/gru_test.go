package anyrnn

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestGRUOutput(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	block := NewGRU(c, 1, 1)
	for _, g := range []*Gate{block.Reset, block.Update, block.Candidate} {
		g.InputWeights.Vector.SetData([]float64{1})
		g.StateWeights.Vector.SetData([]float64{0})
		g.Biases.Vector.SetData([]float64{0})
	}
	block.StartState.Vector.SetData([]float64{0.5})

	seq := anyseq.ConstSeq(c, []*anyseq.Batch{
		{Packed: c.MakeVectorData([]float64{0}), Present: []bool{true}},
	})
	actual := Map(seq, block).Output()[0].Packed.Data().([]float64)[0]

	// With a zero input, both gates are 0.5 and the
	// candidate is 0.
	if actual < 0.25-1e-5 || actual > 0.25+1e-5 {
		t.Errorf("expected 0.25 but got %f", actual)
	}
}

func TestGRUProp(t *testing.T) {
	c := anyvec32.CurrentCreator()
	inSeq, inVars := randomTestSequence(c, 3)
	block := NewGRU(c, 3, 2)
	anyvec.Rand(block.StartState.Vector, anyvec.Normal, nil)
	if len(block.Parameters()) != 10 {
		t.Errorf("expected 10 parameters, but got %d", len(block.Parameters()))
	}
	checker := &anydifftest.SeqChecker{
		F: func() anyseq.Seq {
			return Map(inSeq, block)
		},
		V: append(inVars, block.Parameters()...),
	}
	checker.FullCheck(t)
}

func TestGRUStartGrad(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	inSeq, _ := randomTestSequence(c, 3)
	block := NewGRU(c, 3, 2)

	out := Map(inSeq, block)
	grad := anydiff.NewGrad(block.StartState)
	var upstream []*anyseq.Batch
	for _, b := range out.Output() {
		u := c.MakeVector(b.Packed.Len())
		u.AddScalar(c.MakeNumeric(1))
		upstream = append(upstream, &anyseq.Batch{Packed: u, Present: b.Present})
	}
	out.Propagate(upstream, grad)
	if grad[block.StartState].Len() != 2 {
		t.Fatalf("unexpected gradient size %d", grad[block.StartState].Len())
	}
}
