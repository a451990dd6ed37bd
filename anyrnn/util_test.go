package anyrnn

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// randomTestSequence creates a batch of three sequences
// with lengths 3, 1, and 2.
func randomTestSequence(c anyvec.Creator, inSize int) (anyseq.Seq, []*anydiff.Var) {
	presents := [][]bool{
		{true, true, true},
		{true, false, true},
		{true, false, false},
	}
	var inVars []*anydiff.Var
	var batches []*anyseq.ResBatch
	for _, pres := range presents {
		var numPres int
		for _, p := range pres {
			if p {
				numPres++
			}
		}
		vec := c.MakeVector(inSize * numPres)
		anyvec.Rand(vec, anyvec.Normal, nil)
		v := anydiff.NewVar(vec)
		inVars = append(inVars, v)
		batches = append(batches, &anyseq.ResBatch{Packed: v, Present: pres})
	}
	return anyseq.ResSeq(c, batches), inVars
}

func seqString(s []*anyseq.Batch) string {
	var parts []string
	for _, x := range s {
		parts = append(parts, fmt.Sprintf("{Packed: %v, Present: %v}", x.Packed.Data(),
			x.Present))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func seqsEquivalent(s1, s2 []*anyseq.Batch) bool {
	if len(s1) != len(s2) {
		return false
	}
	for i, b1 := range s1 {
		b2 := s2[i]
		if !reflect.DeepEqual(b1.Present, b2.Present) {
			return false
		}
		diff := b1.Packed.Copy()
		diff.Sub(b2.Packed)
		max := anyvec.AbsMax(diff)
		switch max := max.(type) {
		case float32:
			if max > 1e-3 {
				return false
			}
		case float64:
			if max > 1e-5 {
				return false
			}
		default:
			panic(fmt.Sprintf("unsupported numeric type: %T", max))
		}
	}
	return true
}
