package anyrnn

import (
	"testing"

	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestBidirOutput(t *testing.T) {
	c := anyvec32.CurrentCreator()
	inSeq, _ := randomTestSequence(c, 3)
	b := &Bidir{
		Forward:  NewVanilla(c, 3, 2, anyspeech.Tanh),
		Backward: NewVanilla(c, 3, 4, anyspeech.Tanh),
		Mixer:    anyspeech.ConcatMixer{},
	}
	out := b.Apply(inSeq).Output()
	forward := Map(inSeq, b.Forward).Output()
	backward := anyseq.Reverse(Map(anyseq.Reverse(inSeq), b.Backward)).Output()
	if len(out) != len(forward) {
		t.Fatalf("expected %d timesteps but got %d", len(forward), len(out))
	}
	for i, batch := range out {
		data := batch.Packed.Data().([]float32)
		fData := forward[i].Packed.Data().([]float32)
		bData := backward[i].Packed.Data().([]float32)
		n := len(fData) / 2
		if len(data) != 6*n {
			t.Fatalf("timestep %d: expected %d values but got %d", i, 6*n, len(data))
		}
		for j := 0; j < n; j++ {
			row := data[j*6 : (j+1)*6]
			expected := append(append([]float32{}, fData[j*2:(j+1)*2]...),
				bData[j*4:(j+1)*4]...)
			for k, x := range expected {
				if diff := x - row[k]; diff > 1e-4 || diff < -1e-4 {
					t.Fatalf("timestep %d row %d: expected %v but got %v", i, j,
						expected, row)
				}
			}
		}
	}
}

func TestBidirProp(t *testing.T) {
	c := anyvec32.CurrentCreator()
	inSeq, inVars := randomTestSequence(c, 3)
	b := &Bidir{
		Forward:  NewGRU(c, 3, 2),
		Backward: NewLSTM(c, 3, 2),
		Mixer:    anyspeech.AddMixer{},
	}
	checker := &anydifftest.SeqChecker{
		F: func() anyseq.Seq {
			return b.Apply(inSeq)
		},
		V: append(inVars, b.Parameters()...),
	}
	checker.FullCheck(t)
}
